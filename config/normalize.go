// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package config

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Azure/aumlib"
	"github.com/Azure/aumlib/internal/tools/checker"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
)

const windowDateTimeLayout = "2006-01-02 15:04"

var (
	durationRegex = regexp.MustCompile(`^(\d{2}):([0-5]\d)$`)
	kbRegex       = regexp.MustCompile(`^\d+$`)

	// InGuestPatch windows must be between 1h30 and 3h55 long.
	minInGuestPatchDuration = 90 * time.Minute
	maxInGuestPatchDuration = 235 * time.Minute
)

// Normalize validates the document and builds the Plan.
// All validation problems are returned together as a *multierror.Error of *aumlib.ValidationError.
// If progress is not nil, a start and finish line is written for every check.
func Normalize(doc *Document, progress io.Writer) (*aumlib.Plan, error) {
	if doc == nil {
		return nil, aumlib.NewValidationError("config", "no configuration document", nil)
	}

	plan := new(aumlib.Plan)

	checks := []checker.ValidatorCheck{
		checker.NewValidatorCheck("CheckRequiredFields", func() error {
			return checkRequiredFields(doc)
		}),
		checker.NewValidatorCheck("CheckCredentialPair", func() error {
			return checkCredentialPair(doc)
		}),
		checker.NewValidatorCheck("CheckUniqueScheduleNames", func() error {
			return checkUniqueScheduleNames(doc.Schedules)
		}),
		checker.NewValidatorCheck("CheckProviderRegistration", func() error {
			var err error
			plan.Providers, err = providerRegistration(doc)
			return err
		}),
		checker.NewValidatorCheck("CheckPolicyDefinitions", func() error {
			var err error
			plan.Policies, err = policyDefinitions(doc.PolicyDefinitions)
			return err
		}),
		checker.NewValidatorCheck("CheckSchedules", func() error {
			var err error
			plan.Schedules, err = buildSchedules(doc.Schedules)
			return err
		}),
	}

	v := checker.NewValidatorQuiet(checks...)
	if progress != nil {
		v = checker.NewValidator(progress, checks...)
	}

	if err := v.Validate(); err != nil {
		return nil, err
	}

	plan.Target = aumlib.Target{
		ManagementGroupID: strings.TrimSpace(doc.ManagementGroup),
		SubscriptionID:    strings.ToLower(strings.TrimSpace(doc.Subscription)),
		ResourceGroup:     strings.TrimSpace(doc.ResourceGroup),
		Location:          strings.TrimSpace(doc.Location),
		TenantID:          strings.TrimSpace(doc.Tenant),
	}
	plan.Cloud = doc.Cloud
	if plan.Cloud == "" {
		plan.Cloud = DefaultCloud
	}
	plan.CreateResourceGroup = doc.CreateResourceGroup
	plan.Remediate = doc.Remediate
	plan.RequiredRole = doc.RequiredRole
	if plan.RequiredRole == "" {
		plan.RequiredRole = DefaultRequiredRole
	}

	return plan, nil
}

func checkRequiredFields(doc *Document) error {
	var errs error

	required := []struct {
		field string
		value string
	}{
		{"managementGroup", doc.ManagementGroup},
		{"subscription", doc.Subscription},
		{"resourceGroup", doc.ResourceGroup},
		{"location", doc.Location},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			errs = multierror.Append(errs, aumlib.NewValidationError(r.field, "required field is missing", nil))
		}
	}

	if doc.Subscription != "" {
		if _, err := uuid.Parse(strings.TrimSpace(doc.Subscription)); err != nil {
			errs = multierror.Append(errs, aumlib.NewValidationError("subscription", "must be a subscription id", err))
		}
	}

	if len(doc.Schedules) == 0 {
		errs = multierror.Append(errs, aumlib.NewValidationError("schedules", "at least one schedule is required", nil))
	}

	return errs
}

func checkCredentialPair(doc *Document) error {
	if (doc.ClientID == "") != (doc.ClientSecret == "") {
		return aumlib.NewValidationError("clientId", "clientId and clientSecret must be supplied together", nil)
	}

	return nil
}

func checkUniqueScheduleNames(schedules []ScheduleDocument) error {
	var errs error

	seen := mapset.NewThreadUnsafeSet[string]()
	for i, s := range schedules {
		if s.Name == "" {
			continue
		}

		if !seen.Add(strings.ToLower(s.Name)) {
			errs = multierror.Append(errs, aumlib.NewValidationError(
				fieldPath(i, "name"),
				fmt.Sprintf("schedule name `%s` is used more than once", s.Name),
				nil,
			))
		}
	}

	return errs
}

func providerRegistration(doc *Document) (aumlib.ProviderRegistration, error) {
	res := aumlib.ProviderRegistration{
		Enabled:    doc.RegisterProviders,
		Namespaces: DefaultProviderNamespaces(),
		Interval:   DefaultProviderInterval,
		Timeout:    DefaultProviderTimeout,
	}

	pr := doc.ProviderRegistration
	if pr == nil {
		return res, nil
	}

	var errs error

	if len(pr.Namespaces) > 0 {
		res.Namespaces = pr.Namespaces
	}

	if pr.Interval != "" {
		d, err := time.ParseDuration(pr.Interval)
		if err != nil || d <= 0 {
			errs = multierror.Append(errs, aumlib.NewValidationError("providerRegistration.interval", "must be a positive duration", err))
		}
		res.Interval = d
	}

	if pr.Timeout != "" {
		d, err := time.ParseDuration(pr.Timeout)
		if err != nil || d <= 0 {
			errs = multierror.Append(errs, aumlib.NewValidationError("providerRegistration.timeout", "must be a positive duration", err))
		}
		res.Timeout = d
	}

	if errs == nil && res.Timeout < res.Interval {
		errs = aumlib.NewValidationError("providerRegistration.timeout", "must not be shorter than the interval", nil)
	}

	return res, errs
}

func policyDefinitions(in *PolicyDefinitionsDocument) (aumlib.PolicyDefinitions, error) {
	res := aumlib.PolicyDefinitions{
		PeriodicAssessment: DefaultPeriodicAssessmentDefinition,
		Prerequisite: map[aumlib.OsType]string{
			aumlib.OsTypeWindows: DefaultPrerequisiteDefinition,
			aumlib.OsTypeLinux:   DefaultPrerequisiteDefinition,
		},
		ScheduleLink: DefaultScheduleLinkDefinition,
	}

	if in == nil {
		return res, nil
	}

	var errs error

	override := func(field, value string, dst *string) {
		if value == "" {
			return
		}

		if err := checkDefinitionReference(value); err != nil {
			errs = multierror.Append(errs, aumlib.NewValidationError("policyDefinitions."+field, "invalid policy definition reference", err))
			return
		}

		*dst = value
	}

	win := res.Prerequisite[aumlib.OsTypeWindows]
	linux := res.Prerequisite[aumlib.OsTypeLinux]

	override("periodicAssessment", in.PeriodicAssessment, &res.PeriodicAssessment)
	override("windowsPrerequisite", in.WindowsPrerequisite, &win)
	override("linuxPrerequisite", in.LinuxPrerequisite, &linux)
	override("scheduleLink", in.ScheduleLink, &res.ScheduleLink)

	res.Prerequisite[aumlib.OsTypeWindows] = win
	res.Prerequisite[aumlib.OsTypeLinux] = linux

	return res, errs
}

// checkDefinitionReference accepts a bare definition name or a full policy definition resource id.
func checkDefinitionReference(ref string) error {
	if !strings.Contains(ref, "/") {
		return nil
	}

	id, err := arm.ParseResourceID(ref)
	if err != nil {
		return err
	}

	if !strings.EqualFold(id.ResourceType.String(), "Microsoft.Authorization/policyDefinitions") {
		return fmt.Errorf("resource type `%s` is not Microsoft.Authorization/policyDefinitions", id.ResourceType.String())
	}

	return nil
}

func buildSchedules(in []ScheduleDocument) ([]*aumlib.Schedule, error) {
	var errs error

	res := make([]*aumlib.Schedule, 0, len(in))
	for i, sd := range in {
		s, err := buildSchedule(i, sd)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}

		res = append(res, s)
	}

	return res, errs
}

func buildSchedule(i int, sd ScheduleDocument) (*aumlib.Schedule, error) {
	var errs error

	addErr := func(field, reason string, inner error) {
		errs = multierror.Append(errs, aumlib.NewValidationError(fieldPath(i, field), reason, inner))
	}

	s := &aumlib.Schedule{Name: strings.TrimSpace(sd.Name)}
	if s.Name == "" {
		addErr("name", "required field is missing", nil)
	} else if strings.ContainsAny(s.Name, `/\?#%`) {
		addErr("name", "must not contain any of / \\ ? # %", nil)
	}

	scope, err := aumlib.ParseMaintenanceScope(sd.MaintenanceScope)
	if err != nil {
		addErr("maintenanceScope", "invalid maintenance scope", err)
	}

	switch scope {
	case aumlib.MaintenanceScopeInGuestPatch:
		settings, err := buildInGuestPatch(i, sd)
		if err != nil {
			errs = multierror.Append(errs, err)
		}
		s.Settings = settings
	case aumlib.MaintenanceScopeHost, aumlib.MaintenanceScopeOSImage, aumlib.MaintenanceScopeResource:
		if err := checkNoPatchFields(i, sd); err != nil {
			errs = multierror.Append(errs, err)
		}
		s.Settings = nonPatchSettings(scope)
	}

	if sd.Recurrence == "" {
		addErr("recurrence", "required field is missing", nil)
	} else if r, err := aumlib.ParseRecurrence(sd.Recurrence); err != nil {
		addErr("recurrence", "invalid recurrence pattern", err)
	} else {
		s.Recurrence = r
	}

	window, err := buildWindow(i, sd, scope)
	if err != nil {
		errs = multierror.Append(errs, err)
	}
	s.Window = window

	for j, dsd := range sd.DynamicScopes {
		ds, err := buildDynamicScope(dsd)
		if err != nil {
			addErr(fmt.Sprintf("dynamicScopes[%d]", j), "invalid dynamic scope", err)
			continue
		}

		s.DynamicScopes = append(s.DynamicScopes, ds)
	}

	if errs != nil {
		return nil, errs
	}

	return s, nil
}

func buildInGuestPatch(i int, sd ScheduleDocument) (*aumlib.InGuestPatch, error) {
	var errs error

	addErr := func(field, reason string, inner error) {
		errs = multierror.Append(errs, aumlib.NewValidationError(fieldPath(i, field), reason, inner))
	}

	p := new(aumlib.InGuestPatch)

	reboot, err := aumlib.ParseRebootSetting(sd.RebootSetting)
	if err != nil {
		addErr("rebootSetting", "required for InGuestPatch schedules", err)
	}
	p.Reboot = reboot

	if sd.OsType == "" {
		addErr("osType", "required for InGuestPatch schedules", nil)
		return p, errs
	}

	os, err := aumlib.ParseOsType(sd.OsType)
	if err != nil {
		addErr("osType", "invalid os type", err)
		return p, errs
	}

	classifications, err := aumlib.ParseClassifications(os, sd.Classifications)
	if err != nil {
		addErr("classifications", "invalid classification", err)
	}

	switch os {
	case aumlib.OsTypeWindows:
		include, err := normalizeKbNumbers(sd.IncludeFilters)
		if err != nil {
			addErr("includeFilters", "windows filters must be KB identifiers", err)
		}

		exclude, err := normalizeKbNumbers(sd.ExcludeFilters)
		if err != nil {
			addErr("excludeFilters", "windows filters must be KB identifiers", err)
		}

		p.OS = &aumlib.WindowsPatch{
			Classifications:           classifications,
			KbNumbersToInclude:        include,
			KbNumbersToExclude:        exclude,
			ExcludeKbsRequiringReboot: sd.ExcludeKbsRequiringReboot,
		}
	case aumlib.OsTypeLinux:
		if sd.ExcludeKbsRequiringReboot {
			addErr("excludeKbsRequiringReboot", "only applicable to Windows schedules", nil)
		}

		include, err := normalizePackageMasks(sd.IncludeFilters)
		if err != nil {
			addErr("includeFilters", "invalid package name mask", err)
		}

		exclude, err := normalizePackageMasks(sd.ExcludeFilters)
		if err != nil {
			addErr("excludeFilters", "invalid package name mask", err)
		}

		p.OS = &aumlib.LinuxPatch{
			Classifications:           classifications,
			PackageNameMasksToInclude: include,
			PackageNameMasksToExclude: exclude,
		}
	}

	p.PreTask = taskReference(sd.PreTask)
	p.PostTask = taskReference(sd.PostTask)

	if sd.PreTask != nil && p.PreTask == nil {
		addErr("preTask.source", "required field is missing", nil)
	}

	if sd.PostTask != nil && p.PostTask == nil {
		addErr("postTask.source", "required field is missing", nil)
	}

	return p, errs
}

// checkNoPatchFields rejects in-guest patch fields on schedules of other maintenance scopes.
func checkNoPatchFields(i int, sd ScheduleDocument) error {
	var errs error

	set := map[string]bool{
		"osType":                    sd.OsType != "",
		"classifications":           len(sd.Classifications) > 0,
		"includeFilters":            len(sd.IncludeFilters) > 0,
		"excludeFilters":            len(sd.ExcludeFilters) > 0,
		"excludeKbsRequiringReboot": sd.ExcludeKbsRequiringReboot,
		"rebootSetting":             sd.RebootSetting != "",
		"preTask":                   sd.PreTask != nil,
		"postTask":                  sd.PostTask != nil,
	}

	for _, field := range []string{
		"osType", "classifications", "includeFilters", "excludeFilters",
		"excludeKbsRequiringReboot", "rebootSetting", "preTask", "postTask",
	} {
		if set[field] {
			errs = multierror.Append(errs, aumlib.NewValidationError(
				fieldPath(i, field),
				fmt.Sprintf("only applicable to InGuestPatch schedules, maintenance scope is %s", sd.MaintenanceScope),
				nil,
			))
		}
	}

	return errs
}

func nonPatchSettings(scope aumlib.MaintenanceScope) aumlib.ScopeSettings {
	switch scope {
	case aumlib.MaintenanceScopeHost:
		return aumlib.HostMaintenance{}
	case aumlib.MaintenanceScopeOSImage:
		return aumlib.OSImageMaintenance{}
	default:
		return aumlib.ResourceMaintenance{}
	}
}

func buildWindow(i int, sd ScheduleDocument, scope aumlib.MaintenanceScope) (aumlib.MaintenanceWindow, error) {
	var errs error

	addErr := func(field, reason string, inner error) {
		errs = multierror.Append(errs, aumlib.NewValidationError(fieldPath(i, field), reason, inner))
	}

	w := aumlib.MaintenanceWindow{
		StartDateTime:      strings.TrimSpace(sd.StartDateTime),
		ExpirationDateTime: strings.TrimSpace(sd.ExpirationDateTime),
		Duration:           strings.TrimSpace(sd.Duration),
		TimeZone:           strings.TrimSpace(sd.Timezone),
	}
	if w.TimeZone == "" {
		w.TimeZone = DefaultTimezone
	}

	start, err := time.Parse(windowDateTimeLayout, w.StartDateTime)
	if w.StartDateTime == "" {
		addErr("startDateTime", "required field is missing", nil)
	} else if err != nil {
		addErr("startDateTime", "must use the format yyyy-MM-dd HH:mm", err)
	}

	if w.ExpirationDateTime != "" {
		expiry, expErr := time.Parse(windowDateTimeLayout, w.ExpirationDateTime)
		switch {
		case expErr != nil:
			addErr("expirationDateTime", "must use the format yyyy-MM-dd HH:mm", expErr)
		case err == nil && !expiry.After(start):
			addErr("expirationDateTime", "must be after startDateTime", nil)
		}
	}

	d, err := parseWindowDuration(w.Duration)
	switch {
	case w.Duration == "":
		addErr("duration", "required field is missing", nil)
	case err != nil:
		addErr("duration", "must use the format HH:mm", err)
	case scope == aumlib.MaintenanceScopeInGuestPatch && (d < minInGuestPatchDuration || d > maxInGuestPatchDuration):
		addErr("duration", "InGuestPatch windows must be between 01:30 and 03:55", nil)
	}

	return w, errs
}

func parseWindowDuration(s string) (time.Duration, error) {
	m := durationRegex.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("`%s` is not HH:mm", s)
	}

	h, _ := strconv.Atoi(m[1])
	mins, _ := strconv.Atoi(m[2])

	return time.Duration(h)*time.Hour + time.Duration(mins)*time.Minute, nil
}

func buildDynamicScope(in DynamicScopeDocument) (*aumlib.DynamicScope, error) {
	op, err := aumlib.ParseTagOperator(in.TagOperator)
	if err != nil {
		return nil, err
	}

	osTypes := make([]aumlib.OsType, 0, len(in.OsTypes))
	for _, o := range in.OsTypes {
		os, err := aumlib.ParseOsType(o)
		if err != nil {
			return nil, err
		}

		osTypes = append(osTypes, os)
	}

	return aumlib.NewDynamicScope(in.Subscriptions, aumlib.ScopeFilter{
		ResourceGroups: in.ResourceGroups,
		Locations:      in.Locations,
		OsTypes:        osTypes,
		Tags:           in.Tags,
		TagOperator:    op,
	})
}

func normalizeKbNumbers(in []string) ([]string, error) {
	res := make([]string, 0, len(in))
	for _, kb := range in {
		n := strings.TrimSpace(kb)
		if len(n) > 2 && strings.EqualFold(n[:2], "KB") {
			n = n[2:]
		}

		if !kbRegex.MatchString(n) {
			return nil, fmt.Errorf("`%s` is not a KB identifier", kb)
		}

		res = append(res, n)
	}

	return res, nil
}

func normalizePackageMasks(in []string) ([]string, error) {
	res := make([]string, 0, len(in))
	for _, m := range in {
		m = strings.TrimSpace(m)
		if m == "" || strings.ContainsAny(m, " \t") {
			return nil, fmt.Errorf("`%s` is not a package name mask", m)
		}

		res = append(res, m)
	}

	return res, nil
}

func taskReference(in *TaskDocument) *aumlib.TaskReference {
	if in == nil || strings.TrimSpace(in.Source) == "" {
		return nil
	}

	return &aumlib.TaskReference{
		Source:     strings.TrimSpace(in.Source),
		Parameters: in.Parameters,
	}
}

func fieldPath(i int, field string) string {
	return fmt.Sprintf("schedules[%d].%s", i, field)
}
