// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package config

import (
	"fmt"
	"io"
	"strings"

	"github.com/Azure/aumlib"
)

// WizardInput holds the values collected interactively for a single schedule with at most one
// dynamic scope. Tags are `key=value` pairs, repeating a key adds another acceptable value.
type WizardInput struct {
	ManagementGroup     string
	Subscription        string
	ResourceGroup       string
	Location            string
	Tenant              string
	Cloud               string
	CreateResourceGroup bool
	RegisterProviders   bool
	Remediate           bool

	ScheduleName     string
	MaintenanceScope string
	OsType           string
	Classifications  []string
	IncludeFilters   []string
	ExcludeFilters   []string
	RebootSetting    string
	Recurrence       string
	StartDateTime    string
	Duration         string
	Timezone         string

	ScopeSubscriptions  []string
	ScopeResourceGroups []string
	ScopeLocations      []string
	ScopeOsTypes        []string
	ScopeTags           []string
	ScopeTagOperator    string
}

// FromWizard normalizes wizard input into a Plan, using the same rules as a document.
func FromWizard(in WizardInput, progress io.Writer) (*aumlib.Plan, error) {
	doc, err := in.Document()
	if err != nil {
		return nil, err
	}

	return Normalize(doc, progress)
}

// Document converts the wizard input to the equivalent configuration document.
func (in WizardInput) Document() (*Document, error) {
	sd := ScheduleDocument{
		Name:             in.ScheduleName,
		MaintenanceScope: in.MaintenanceScope,
		OsType:           in.OsType,
		Classifications:  in.Classifications,
		IncludeFilters:   in.IncludeFilters,
		ExcludeFilters:   in.ExcludeFilters,
		RebootSetting:    in.RebootSetting,
		Recurrence:       in.Recurrence,
		StartDateTime:    in.StartDateTime,
		Duration:         in.Duration,
		Timezone:         in.Timezone,
	}

	if len(in.ScopeSubscriptions) > 0 {
		tags, err := parseTagPairs(in.ScopeTags)
		if err != nil {
			return nil, err
		}

		sd.DynamicScopes = []DynamicScopeDocument{{
			Subscriptions:  in.ScopeSubscriptions,
			ResourceGroups: in.ScopeResourceGroups,
			Locations:      in.ScopeLocations,
			OsTypes:        in.ScopeOsTypes,
			Tags:           tags,
			TagOperator:    in.ScopeTagOperator,
		}}
	}

	return &Document{
		ManagementGroup:     in.ManagementGroup,
		Subscription:        in.Subscription,
		ResourceGroup:       in.ResourceGroup,
		Location:            in.Location,
		Tenant:              in.Tenant,
		Cloud:               in.Cloud,
		CreateResourceGroup: in.CreateResourceGroup,
		RegisterProviders:   in.RegisterProviders,
		Remediate:           in.Remediate,
		Schedules:           []ScheduleDocument{sd},
	}, nil
}

func parseTagPairs(pairs []string) (map[string][]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	res := make(map[string][]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, aumlib.NewValidationError("tags", fmt.Sprintf("`%s` is not a key=value pair", p), nil)
		}

		k = strings.TrimSpace(k)
		res[k] = append(res[k], strings.TrimSpace(v))
	}

	return res, nil
}
