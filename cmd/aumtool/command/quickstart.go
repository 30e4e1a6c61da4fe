// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package command

import (
	"io"

	"github.com/Azure/aumlib/config"
	"github.com/spf13/cobra"
)

// quickstartCmd represents the quickstart command.
var quickstartCmd = cobra.Command{
	Use:   "quickstart [flags]",
	Short: "Apply a single schedule described by flags.",
	Long: `Apply a single schedule described by flags, without a configuration document.

The schedule is validated with the same rules as a configuration document.
Credentials are read from AZURE_TENANT_ID, AZURE_CLIENT_ID and AZURE_CLIENT_SECRET, or the default Azure credential chain.
Use --dry-run to stop after validation.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		in, err := wizardInput(cmd)
		if err != nil {
			fail(cmd, "could not read flags", err)
		}

		doc, err := in.Document()
		if err != nil {
			fail(cmd, "quickstart input is invalid", err)
		}

		dryRun, err := cmd.Flags().GetBool("dry-run")
		if err != nil {
			fail(cmd, "could not get dry-run flag", err)
		}

		var progress io.Writer
		if dryRun {
			progress = cmd.ErrOrStderr()
		}

		plan, err := config.Normalize(doc, progress)
		if err != nil {
			fail(cmd, "quickstart input is invalid", err)
		}

		if dryRun {
			cmd.PrintErrf("schedule `%s` is valid\n", plan.Schedules[0].Name)
			return
		}

		deploy(cmd, doc, plan)
	},
}

func init() {
	addQuickstartFlags(&quickstartCmd)
	addPhaseFlags(&quickstartCmd)
	addReportFlags(&quickstartCmd)
}

func addQuickstartFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("management-group", "", "Management group id the policies are assigned to.")
	f.String("subscription", "", "Subscription that holds the maintenance configurations.")
	f.String("resource-group", "", "Resource group that holds the maintenance configurations.")
	f.String("location", "", "Azure region of the maintenance configurations.")
	f.String("tenant", "", "Tenant id, defaults to AZURE_TENANT_ID.")
	f.String("cloud", "", "Cloud environment: public, usgovernment or china.")

	f.String("name", "", "Schedule name.")
	f.String("scope", "InGuestPatch", "Maintenance scope: InGuestPatch, Host, OSImage or Resource.")
	f.String("os", "", "Operating system of an InGuestPatch schedule: Windows or Linux.")
	f.StringSlice("classifications", nil, "Update classifications to install.")
	f.StringSlice("include", nil, "KB numbers or package masks to include.")
	f.StringSlice("exclude", nil, "KB numbers or package masks to exclude.")
	f.String("reboot", "", "Reboot setting: IfRequired, Never or Always.")
	f.String("recurrence", "", "Recurrence, e.g. 'Week Saturday' or 'Month Second Tuesday'.")
	f.String("start", "", "First window start, yyyy-MM-dd HH:mm.")
	f.String("duration", "", "Window duration, HH:mm.")
	f.String("timezone", "", "Windows time zone name, defaults to UTC.")

	f.StringSlice("scope-subscriptions", nil, "Subscriptions of the dynamic scope.")
	f.StringSlice("scope-resource-groups", nil, "Resource group filter of the dynamic scope.")
	f.StringSlice("scope-locations", nil, "Location filter of the dynamic scope.")
	f.StringSlice("scope-os-types", nil, "Operating system filter of the dynamic scope.")
	f.StringSlice("scope-tags", nil, "Tag filter of the dynamic scope as key=value pairs.")
	f.String("scope-tag-operator", "", "Tag operator of the dynamic scope: Any or All.")

	f.Bool("dry-run", false, "Validate the input and exit without contacting Azure.")
}

func wizardInput(cmd *cobra.Command) (config.WizardInput, error) {
	in := config.WizardInput{}
	f := cmd.Flags()

	for name, dst := range map[string]*string{
		"management-group":   &in.ManagementGroup,
		"subscription":       &in.Subscription,
		"resource-group":     &in.ResourceGroup,
		"location":           &in.Location,
		"tenant":             &in.Tenant,
		"cloud":              &in.Cloud,
		"name":               &in.ScheduleName,
		"scope":              &in.MaintenanceScope,
		"os":                 &in.OsType,
		"reboot":             &in.RebootSetting,
		"recurrence":         &in.Recurrence,
		"start":              &in.StartDateTime,
		"duration":           &in.Duration,
		"timezone":           &in.Timezone,
		"scope-tag-operator": &in.ScopeTagOperator,
	} {
		v, err := f.GetString(name)
		if err != nil {
			return in, err
		}

		*dst = v
	}

	for name, dst := range map[string]*[]string{
		"classifications":       &in.Classifications,
		"include":               &in.IncludeFilters,
		"exclude":               &in.ExcludeFilters,
		"scope-subscriptions":   &in.ScopeSubscriptions,
		"scope-resource-groups": &in.ScopeResourceGroups,
		"scope-locations":       &in.ScopeLocations,
		"scope-os-types":        &in.ScopeOsTypes,
		"scope-tags":            &in.ScopeTags,
	} {
		v, err := f.GetStringSlice(name)
		if err != nil {
			return in, err
		}

		*dst = v
	}

	for name, dst := range map[string]*bool{
		"register-providers":    &in.RegisterProviders,
		"remediate":             &in.Remediate,
		"create-resource-group": &in.CreateResourceGroup,
	} {
		v, err := f.GetBool(name)
		if err != nil {
			return in, err
		}

		*dst = v
	}

	return in, nil
}
