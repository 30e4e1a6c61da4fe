// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package command

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/Azure/aumlib"
	"github.com/spf13/cobra"
)

var version = "dev"

const (
	exitFatal      = 1
	exitValidation = 2
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:     "aumtool",
	Version: version,
	Short:   "A cli tool that deploys Azure Update Manager schedules at management group scale",
	Long: `A cli tool that deploys Azure Update Manager schedules at management group scale.

This tool can:

- Validate a configuration document without contacting Azure.
- Apply a configuration document: maintenance configurations, dynamic scopes, policy assignments and remediation.
- Apply a single schedule described entirely by flags.
`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(exitFatal)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log debug output.")
	rootCmd.AddCommand(&applyCmd)
	rootCmd.AddCommand(&validateCmd)
	rootCmd.AddCommand(&quickstartCmd)
}

// exitCode maps a fatal error to the process exit status.
func exitCode(err error) int {
	var verr *aumlib.ValidationError
	if errors.As(err, &verr) {
		return exitValidation
	}

	return exitFatal
}

// fail prints the error and exits with the status for it.
func fail(cmd *cobra.Command, what string, err error) {
	cmd.PrintErrf("%s %s: %v\n", cmd.ErrPrefix(), what, err)
	os.Exit(exitCode(err))
}
