// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package config

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/Azure/aumlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	sub1 = "11111111-1111-1111-1111-111111111111"
	sub2 = "22222222-2222-2222-2222-222222222222"
)

func validDocument() *Document {
	return &Document{
		ManagementGroup: "contoso",
		Subscription:    sub1,
		ResourceGroup:   "rg-update-manager",
		Location:        "westeurope",
		Schedules: []ScheduleDocument{
			{
				Name:             "Patch-Win-Sat",
				MaintenanceScope: "InGuestPatch",
				OsType:           "Windows",
				Classifications:  []string{"Critical", "Security"},
				RebootSetting:    "IfRequired",
				Recurrence:       "Week Saturday",
				StartDateTime:    "2024-01-06 22:00",
				Duration:         "03:00",
				DynamicScopes: []DynamicScopeDocument{
					{
						Subscriptions: []string{sub1, sub2},
						Tags:          map[string][]string{"Environment": {"Production"}},
					},
				},
			},
		},
	}
}

// validationFields returns the field of every ValidationError in err.
func validationFields(t *testing.T, err error) []string {
	t.Helper()
	require.Error(t, err)

	var res []string
	for _, e := range unwrapAll(err) {
		var ve *aumlib.ValidationError
		if assert.ErrorAs(t, e, &ve) {
			res = append(res, ve.Field)
		}
	}

	return res
}

func unwrapAll(err error) []error {
	if m, ok := err.(interface{ WrappedErrors() []error }); ok {
		return m.WrappedErrors()
	}

	return []error{err}
}

func TestNormalizeValidDocument(t *testing.T) {
	t.Parallel()

	plan, err := Normalize(validDocument(), nil)
	require.NoError(t, err)

	assert.Equal(t, "contoso", plan.Target.ManagementGroupID)
	assert.Equal(t, sub1, plan.Target.SubscriptionID)
	assert.Equal(t, DefaultCloud, plan.Cloud)
	assert.Equal(t, DefaultRequiredRole, plan.RequiredRole)
	assert.False(t, plan.Providers.Enabled)
	assert.Equal(t, DefaultProviderNamespaces(), plan.Providers.Namespaces)
	assert.Equal(t, DefaultProviderInterval, plan.Providers.Interval)
	assert.Equal(t, DefaultPrerequisiteDefinition, plan.Policies.Prerequisite[aumlib.OsTypeWindows])
	assert.Equal(t, DefaultPrerequisiteDefinition, plan.Policies.Prerequisite[aumlib.OsTypeLinux])

	require.Len(t, plan.Schedules, 1)
	s := plan.Schedules[0]
	assert.Equal(t, "Patch-Win-Sat", s.Name)
	assert.Equal(t, aumlib.MaintenanceScopeInGuestPatch, s.MaintenanceScope())
	assert.Equal(t, DefaultTimezone, s.Window.TimeZone)
	assert.Equal(t, "1Week Saturday", s.Recurrence.RecurEvery())

	p, ok := s.InGuestPatch()
	require.True(t, ok)
	assert.Equal(t, aumlib.RebootIfRequired, p.Reboot)
	assert.Equal(t, aumlib.OsTypeWindows, p.OsType())
	assert.Equal(t, []aumlib.Classification{aumlib.ClassificationCritical, aumlib.ClassificationSecurity}, p.OS.PatchClassifications())

	require.Len(t, s.DynamicScopes, 1)
	assert.Equal(t, []string{sub1, sub2}, s.DynamicScopes[0].Subscriptions())
	assert.Equal(t, aumlib.TagOperatorAny, s.DynamicScopes[0].TagOperator)

	_, resolved := s.ResolvedConfigID()
	assert.False(t, resolved)
}

func TestNormalizeMissingRequiredFields(t *testing.T) {
	t.Parallel()

	_, err := Normalize(&Document{}, nil)
	fields := validationFields(t, err)
	assert.ElementsMatch(t, []string{"managementGroup", "subscription", "resourceGroup", "location", "schedules"}, fields)
}

func TestNormalizeNilDocument(t *testing.T) {
	t.Parallel()

	_, err := Normalize(nil, nil)
	var ve *aumlib.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestNormalizeCredentialPair(t *testing.T) {
	t.Parallel()

	doc := validDocument()
	doc.ClientID = "app"
	_, err := Normalize(doc, nil)
	assert.Equal(t, []string{"clientId"}, validationFields(t, err))

	doc.ClientSecret = "secret"
	_, err = Normalize(doc, nil)
	assert.NoError(t, err)
}

func TestNormalizeRejectsClassificationOutsideVocabulary(t *testing.T) {
	t.Parallel()

	doc := validDocument()
	// Other is a Linux classification.
	doc.Schedules[0].Classifications = []string{"Critical", "Other"}
	_, err := Normalize(doc, nil)
	assert.Equal(t, []string{"schedules[0].classifications"}, validationFields(t, err))
}

func TestNormalizeRejectsDynamicScopeWithoutSubscriptions(t *testing.T) {
	t.Parallel()

	doc := validDocument()
	doc.Schedules[0].DynamicScopes[0].Subscriptions = nil
	_, err := Normalize(doc, nil)
	assert.Equal(t, []string{"schedules[0].dynamicScopes[0]"}, validationFields(t, err))
	assert.ErrorIs(t, err, aumlib.ErrNoSubscriptions)
}

func TestNormalizeRebootSettingIsNotDefaulted(t *testing.T) {
	t.Parallel()

	doc := validDocument()
	doc.Schedules[0].RebootSetting = ""
	_, err := Normalize(doc, nil)
	assert.Equal(t, []string{"schedules[0].rebootSetting"}, validationFields(t, err))
}

func TestNormalizeInvalidRecurrence(t *testing.T) {
	t.Parallel()

	cases := []string{"Month Fifth Monday", "Week Caturday", "Fortnight", "Month First"}
	for _, rec := range cases {
		rec := rec
		t.Run(rec, func(t *testing.T) {
			t.Parallel()

			doc := validDocument()
			doc.Schedules[0].Recurrence = rec
			_, err := Normalize(doc, nil)
			assert.Equal(t, []string{"schedules[0].recurrence"}, validationFields(t, err))
			assert.ErrorIs(t, err, aumlib.ErrInvalidRecurrence)
		})
	}
}

func TestNormalizePatchFieldsRejectedForOtherScopes(t *testing.T) {
	t.Parallel()

	doc := validDocument()
	doc.Schedules[0].MaintenanceScope = "Host"
	doc.Schedules[0].DynamicScopes = nil
	_, err := Normalize(doc, nil)
	assert.ElementsMatch(t, []string{
		"schedules[0].osType",
		"schedules[0].classifications",
		"schedules[0].rebootSetting",
	}, validationFields(t, err))
}

func TestNormalizeHostSchedule(t *testing.T) {
	t.Parallel()

	doc := validDocument()
	doc.Schedules[0] = ScheduleDocument{
		Name:             "Host-Window",
		MaintenanceScope: "host",
		Recurrence:       "Day",
		StartDateTime:    "2024-01-01 00:00",
		Duration:         "05:00",
	}
	plan, err := Normalize(doc, nil)
	require.NoError(t, err)

	s := plan.Schedules[0]
	assert.Equal(t, aumlib.MaintenanceScopeHost, s.MaintenanceScope())
	_, ok := s.InGuestPatch()
	assert.False(t, ok)
}

func TestNormalizeWindowsFilters(t *testing.T) {
	t.Parallel()

	doc := validDocument()
	doc.Schedules[0].IncludeFilters = []string{"KB5034441", "5034122"}
	plan, err := Normalize(doc, nil)
	require.NoError(t, err)

	p, _ := plan.Schedules[0].InGuestPatch()
	win, ok := p.OS.(*aumlib.WindowsPatch)
	require.True(t, ok)
	assert.Equal(t, []string{"5034441", "5034122"}, win.KbNumbersToInclude)

	doc.Schedules[0].ExcludeFilters = []string{"openssl*"}
	_, err = Normalize(doc, nil)
	assert.Equal(t, []string{"schedules[0].excludeFilters"}, validationFields(t, err))
}

func TestNormalizeLinuxFilters(t *testing.T) {
	t.Parallel()

	doc := validDocument()
	doc.Schedules[0].OsType = "linux"
	doc.Schedules[0].Classifications = []string{"critical", "other"}
	doc.Schedules[0].IncludeFilters = []string{"kernel*", "openssl"}
	plan, err := Normalize(doc, nil)
	require.NoError(t, err)

	p, _ := plan.Schedules[0].InGuestPatch()
	linux, ok := p.OS.(*aumlib.LinuxPatch)
	require.True(t, ok)
	assert.Equal(t, []string{"kernel*", "openssl"}, linux.PackageNameMasksToInclude)
	assert.Equal(t, []aumlib.Classification{aumlib.ClassificationCritical, aumlib.ClassificationOther}, linux.PatchClassifications())
}

func TestNormalizeWindow(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		mutate func(*ScheduleDocument)
		field  string
	}{
		"missing start":          {func(s *ScheduleDocument) { s.StartDateTime = "" }, "schedules[0].startDateTime"},
		"bad start":              {func(s *ScheduleDocument) { s.StartDateTime = "06/01/2024 22:00" }, "schedules[0].startDateTime"},
		"expiry before start":    {func(s *ScheduleDocument) { s.ExpirationDateTime = "2023-01-01 00:00" }, "schedules[0].expirationDateTime"},
		"missing duration":       {func(s *ScheduleDocument) { s.Duration = "" }, "schedules[0].duration"},
		"bad duration":           {func(s *ScheduleDocument) { s.Duration = "3h" }, "schedules[0].duration"},
		"patch window too short": {func(s *ScheduleDocument) { s.Duration = "01:00" }, "schedules[0].duration"},
		"patch window too long":  {func(s *ScheduleDocument) { s.Duration = "04:00" }, "schedules[0].duration"},
	}

	for name, tc := range cases {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			doc := validDocument()
			tc.mutate(&doc.Schedules[0])
			_, err := Normalize(doc, nil)
			assert.Equal(t, []string{tc.field}, validationFields(t, err))
		})
	}
}

func TestNormalizeDuplicateScheduleNames(t *testing.T) {
	t.Parallel()

	doc := validDocument()
	doc.Schedules = append(doc.Schedules, doc.Schedules[0])
	doc.Schedules[1].Name = "patch-win-sat"
	_, err := Normalize(doc, nil)
	assert.Equal(t, []string{"schedules[1].name"}, validationFields(t, err))
}

func TestNormalizeProviderRegistration(t *testing.T) {
	t.Parallel()

	doc := validDocument()
	doc.RegisterProviders = true
	doc.ProviderRegistration = &ProviderRegistrationDocument{
		Namespaces: []string{"Microsoft.Maintenance"},
		Interval:   "1s",
		Timeout:    "30s",
	}
	plan, err := Normalize(doc, nil)
	require.NoError(t, err)
	assert.True(t, plan.Providers.Enabled)
	assert.Equal(t, []string{"Microsoft.Maintenance"}, plan.Providers.Namespaces)
	assert.Equal(t, time.Second, plan.Providers.Interval)
	assert.Equal(t, 30*time.Second, plan.Providers.Timeout)

	doc.ProviderRegistration.Timeout = "soon"
	_, err = Normalize(doc, nil)
	assert.Equal(t, []string{"providerRegistration.timeout"}, validationFields(t, err))
}

func TestNormalizePolicyDefinitionOverrides(t *testing.T) {
	t.Parallel()

	doc := validDocument()
	custom := "/providers/Microsoft.Management/managementGroups/contoso/providers/Microsoft.Authorization/policyDefinitions/linux-prereq"
	doc.PolicyDefinitions = &PolicyDefinitionsDocument{LinuxPrerequisite: custom}
	plan, err := Normalize(doc, nil)
	require.NoError(t, err)
	assert.Equal(t, custom, plan.Policies.Prerequisite[aumlib.OsTypeLinux])
	assert.Equal(t, DefaultPrerequisiteDefinition, plan.Policies.Prerequisite[aumlib.OsTypeWindows])

	doc.PolicyDefinitions.ScheduleLink = "/subscriptions/" + sub1 + "/resourceGroups/rg"
	_, err = Normalize(doc, nil)
	assert.Equal(t, []string{"policyDefinitions.scheduleLink"}, validationFields(t, err))
}

func TestNormalizeReportsAllProblems(t *testing.T) {
	t.Parallel()

	doc := validDocument()
	doc.Location = ""
	doc.Schedules[0].Classifications = []string{"Everything"}
	doc.Schedules[0].Recurrence = "Week"
	_, err := Normalize(doc, nil)
	assert.ElementsMatch(t, []string{
		"location",
		"schedules[0].classifications",
		"schedules[0].recurrence",
	}, validationFields(t, err))
}

func TestNormalizeProgressOutput(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	_, err := Normalize(validDocument(), &buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "==> Starting check: CheckSchedules\n")
	assert.Contains(t, buf.String(), "==> Finished check: CheckRequiredFields\n")
}

func TestLoadAndNormalizeTestdata(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"valid.yaml", "valid.json"} {
		name := name
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			doc, err := Load(context.Background(), filepath.Join("testdata", name))
			require.NoError(t, err)
			plan, err := Normalize(doc, nil)
			require.NoError(t, err)
			assert.Equal(t, "Patch-Win-Sat", plan.Schedules[0].Name)
		})
	}
}

func TestLoadYamlDocument(t *testing.T) {
	t.Parallel()

	doc, err := Load(context.Background(), filepath.Join("testdata", "valid.yaml"))
	require.NoError(t, err)
	plan, err := Normalize(doc, nil)
	require.NoError(t, err)

	require.Len(t, plan.Schedules, 3)
	assert.True(t, plan.CreateResourceGroup)
	assert.True(t, plan.Providers.Enabled)
	assert.Equal(t, 2*time.Second, plan.Providers.Interval)
	assert.Equal(t, "Month Second Tuesday", plan.Schedules[1].Recurrence.String())
	assert.Equal(t, "W. Europe Standard Time", plan.Schedules[1].Window.TimeZone)
	assert.Equal(t, aumlib.MaintenanceScopeHost, plan.Schedules[2].MaintenanceScope())
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()

	var ve *aumlib.ValidationError

	_, err := Load(context.Background(), "")
	assert.ErrorAs(t, err, &ve)

	_, err = Load(context.Background(), filepath.Join("testdata", "unknownfield.yaml"))
	assert.ErrorAs(t, err, &ve)

	_, err = Load(context.Background(), filepath.Join("testdata", "empty.yaml"))
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "configuration document is empty", ve.Reason)
}

func TestDecodeUnsupportedExtension(t *testing.T) {
	t.Parallel()

	_, err := Decode([]byte("a = 1"), ".toml")
	var ve *aumlib.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestSourceExt(t *testing.T) {
	t.Parallel()

	assert.Equal(t, ".yaml", sourceExt("https://example.com/aum.yaml?token=abc"))
	assert.Equal(t, ".json", sourceExt("git::https://example.com/repo.git//aum.json?ref=v1"))
	assert.Equal(t, ".yml", sourceExt(filepath.Join("dir", "aum.yml")))
}
