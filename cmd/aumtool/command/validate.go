// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package command

import (
	"fmt"

	"github.com/Azure/aumlib/config"
	"github.com/spf13/cobra"
)

// validateCmd represents the validate command.
var validateCmd = cobra.Command{
	Use:   "validate [flags] config",
	Short: "Validate a configuration document.",
	Long:  `Runs every configuration check and reports all problems found. Azure is not contacted.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		doc, err := config.Load(cmd.Context(), args[0])
		if err != nil {
			fail(cmd, "could not load configuration", err)
		}

		plan, err := config.Normalize(doc, cmd.OutOrStdout())
		if err != nil {
			fail(cmd, "configuration is invalid", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "configuration is valid: %d schedule(s) for management group `%s`\n",
			len(plan.Schedules), plan.Target.ManagementGroupID)
	},
}
