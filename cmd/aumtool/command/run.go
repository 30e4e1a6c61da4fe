// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package command

import (
	"os"

	"github.com/Azure/aumlib"
	"github.com/Azure/aumlib/config"
	"github.com/Azure/aumlib/deployment"
	"github.com/Azure/aumlib/internal/auth"
	"github.com/Azure/aumlib/internal/azclient"
	"github.com/Azure/aumlib/internal/logging"
	"github.com/Azure/aumlib/internal/report"
	"github.com/spf13/cobra"
)

func addReportFlags(cmd *cobra.Command) {
	cmd.Flags().String("report-format", string(report.FormatCSV),
		"Format of the managed identity report, csv or markdown.")
	cmd.Flags().String("report-out", "",
		"File to write the managed identity report to, defaults to stdout.")
}

// deploy authenticates, runs the pipeline for the plan and writes the reports.
// Credentials come from the document, falling back to the environment.
func deploy(cmd *cobra.Command, doc *config.Document, plan *aumlib.Plan) {
	ctx := cmd.Context()

	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		fail(cmd, "could not get verbose flag", err)
	}

	log := logging.New(cmd.ErrOrStderr(), verbose)

	format, err := reportFormat(cmd)
	if err != nil {
		fail(cmd, "could not get report flags", err)
	}

	settings, err := auth.SettingsFromEnv(auth.Settings{
		TenantID:     doc.Tenant,
		ClientID:     doc.ClientID,
		ClientSecret: doc.ClientSecret,
		Environment:  plan.Cloud,
	})
	if err != nil {
		fail(cmd, "could not read credential settings", err)
	}

	cred, err := auth.NewCredential(settings)
	if err != nil {
		fail(cmd, "could not get Azure credential", err)
	}

	if err := auth.Verify(ctx, cred, settings); err != nil {
		fail(cmd, "could not authenticate", err)
	}

	opts, err := auth.ClientOptions(settings)
	if err != nil {
		fail(cmd, "could not create Azure client options", err)
	}

	clients, err := azclient.New(cred, opts, plan.Target.SubscriptionID)
	if err != nil {
		fail(cmd, "could not create Azure clients", err)
	}

	sum, runErr := deployment.NewPipeline(clients, deployment.WithLogger(log)).Run(ctx, plan)
	if sum != nil {
		if err := report.Summary(cmd.OutOrStdout(), sum); err != nil {
			log.Error().Err(err).Msg("could not write run summary")
		}

		if sum.Identities != nil {
			if err := writeIdentities(cmd, format, sum.Identities); err != nil {
				log.Error().Err(err).Msg("could not write identity report")
			}
		}

		if err := sum.Err(); err != nil {
			log.Warn().Int("failures", len(sum.ItemErrors())).Msg("run completed with item failures")
		}
	}

	if runErr != nil {
		log.Error().Err(runErr).Msg("run aborted")
		fail(cmd, "run aborted", runErr)
	}
}

func reportFormat(cmd *cobra.Command) (report.Format, error) {
	s, err := cmd.Flags().GetString("report-format")
	if err != nil {
		return "", err
	}

	return report.ParseFormat(s)
}

func writeIdentities(cmd *cobra.Command, format report.Format, ids []deployment.Identity) error {
	path, err := cmd.Flags().GetString("report-out")
	if err != nil {
		return err
	}

	if path == "" {
		return report.Identities(cmd.OutOrStdout(), format, ids)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := report.Identities(f, format, ids); err != nil {
		f.Close() // nolint: errcheck
		return err
	}

	return f.Close()
}
