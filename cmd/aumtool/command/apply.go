// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package command

import (
	"github.com/Azure/aumlib/config"
	"github.com/spf13/cobra"
)

// applyCmd represents the apply command.
var applyCmd = cobra.Command{
	Use:   "apply [flags] config",
	Short: "Apply a configuration document to Azure.",
	Long: `Apply a configuration document to Azure.

The document is a local YAML or JSON file, or any go-getter source such as an https URL or a git:: reference.
Maintenance configurations, dynamic scope assignments and policy assignments are created when missing.
Existing resources with the same name are left unchanged.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		doc, err := config.Load(cmd.Context(), args[0])
		if err != nil {
			fail(cmd, "could not load configuration", err)
		}

		if err := applyPhaseFlags(cmd, doc); err != nil {
			fail(cmd, "could not read flags", err)
		}

		plan, err := config.Normalize(doc, nil)
		if err != nil {
			fail(cmd, "configuration is invalid", err)
		}

		deploy(cmd, doc, plan)
	},
}

func init() {
	addPhaseFlags(&applyCmd)
	addReportFlags(&applyCmd)
}

func addPhaseFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("register-providers", false,
		"Register the resource providers in every subscription under the management group.")
	cmd.Flags().Bool("remediate", false,
		"Start remediation tasks for the policy assignments.")
	cmd.Flags().Bool("create-resource-group", false,
		"Create the resource group for the maintenance configurations if it does not exist.")
}

// applyPhaseFlags overrides the phase switches of the document with the flags that were set.
func applyPhaseFlags(cmd *cobra.Command, doc *config.Document) error {
	for name, dst := range map[string]*bool{
		"register-providers":    &doc.RegisterProviders,
		"remediate":             &doc.Remediate,
		"create-resource-group": &doc.CreateResourceGroup,
	} {
		if !cmd.Flags().Changed(name) {
			continue
		}

		v, err := cmd.Flags().GetBool(name)
		if err != nil {
			return err
		}

		*dst = v
	}

	return nil
}
