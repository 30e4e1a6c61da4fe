// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package aumlib

import (
	"fmt"
	"maps"

	"github.com/brunoga/deep"
	mapset "github.com/deckarep/golang-set/v2"
)

// Clone returns a copy of the plan that shares no mutable state with p.
// Dynamic scopes are immutable once built and are shared.
func (p *Plan) Clone() (*Plan, error) {
	if p == nil {
		return nil, nil
	}

	res := &Plan{
		Target:              p.Target,
		Cloud:               p.Cloud,
		CreateResourceGroup: p.CreateResourceGroup,
		Remediate:           p.Remediate,
		RequiredRole:        p.RequiredRole,
	}

	var err error

	if res.Providers, err = deep.Copy(p.Providers); err != nil {
		return nil, fmt.Errorf("aumlib.Plan.Clone: provider registration: %w", err)
	}

	if res.Policies, err = deep.Copy(p.Policies); err != nil {
		return nil, fmt.Errorf("aumlib.Plan.Clone: policy definitions: %w", err)
	}

	if p.Schedules != nil {
		res.Schedules = make([]*Schedule, len(p.Schedules))
	}

	for i, s := range p.Schedules {
		if res.Schedules[i], err = s.Clone(); err != nil {
			return nil, fmt.Errorf("aumlib.Plan.Clone: %w", err)
		}
	}

	return res, nil
}

// Clone returns a copy of the schedule, including its resolved configuration id.
// The settings keep their concrete type.
func (s *Schedule) Clone() (*Schedule, error) {
	if s == nil {
		return nil, nil
	}

	rec, err := deep.Copy(s.Recurrence)
	if err != nil {
		return nil, fmt.Errorf("schedule `%s`: recurrence: %w", s.Name, err)
	}

	res := &Schedule{
		Name:             s.Name,
		Settings:         cloneSettings(s.Settings),
		Recurrence:       rec,
		Window:           s.Window,
		resolvedConfigID: s.resolvedConfigID,
	}

	if s.DynamicScopes != nil {
		res.DynamicScopes = append(make([]*DynamicScope, 0, len(s.DynamicScopes)), s.DynamicScopes...)
	}

	return res, nil
}

func cloneSettings(settings ScopeSettings) ScopeSettings {
	if p, ok := settings.(*InGuestPatch); ok && p != nil {
		return p.clone()
	}

	// The other variants are empty value types.
	return settings
}

func (t *TaskReference) clone() *TaskReference {
	if t == nil {
		return nil
	}

	return &TaskReference{Source: t.Source, Parameters: maps.Clone(t.Parameters)}
}

func (p *InGuestPatch) clone() *InGuestPatch {
	res := &InGuestPatch{
		Reboot:   p.Reboot,
		PreTask:  p.PreTask.clone(),
		PostTask: p.PostTask.clone(),
	}

	switch os := p.OS.(type) {
	case *WindowsPatch:
		if os != nil {
			res.OS = &WindowsPatch{
				Classifications:           cloneClassifications(os.Classifications),
				KbNumbersToInclude:        cloneStrings(os.KbNumbersToInclude),
				KbNumbersToExclude:        cloneStrings(os.KbNumbersToExclude),
				ExcludeKbsRequiringReboot: os.ExcludeKbsRequiringReboot,
			}
		}
	case *LinuxPatch:
		if os != nil {
			res.OS = &LinuxPatch{
				Classifications:           cloneClassifications(os.Classifications),
				PackageNameMasksToInclude: cloneStrings(os.PackageNameMasksToInclude),
				PackageNameMasksToExclude: cloneStrings(os.PackageNameMasksToExclude),
			}
		}
	}

	return res
}

func cloneClassifications(set mapset.Set[Classification]) mapset.Set[Classification] {
	if set == nil {
		return nil
	}

	return set.Clone()
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}

	return append(make([]string, 0, len(in)), in...)
}
