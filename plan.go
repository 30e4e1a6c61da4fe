// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package aumlib

import (
	"fmt"
	"time"
)

const (
	// MaxNameLength is the ceiling applied to generated child resource names.
	MaxNameLength = 64

	managementGroupIDFmt          = "/providers/Microsoft.Management/managementGroups/%s"
	maintenanceConfigurationIDFmt = "/subscriptions/%s/resourceGroups/%s/providers/Microsoft.Maintenance/maintenanceConfigurations/%s"
)

// Target identifies where the maintenance configurations live and where policy is assigned.
type Target struct {
	ManagementGroupID string
	SubscriptionID    string
	ResourceGroup     string
	Location          string
	TenantID          string
}

// ManagementGroupResourceID returns the resource id of the target management group.
func (t Target) ManagementGroupResourceID() string {
	return fmt.Sprintf(managementGroupIDFmt, t.ManagementGroupID)
}

// MaintenanceConfigurationID returns the resource id a maintenance configuration with the given
// name has in the target resource group.
func (t Target) MaintenanceConfigurationID(name string) string {
	return fmt.Sprintf(maintenanceConfigurationIDFmt, t.SubscriptionID, t.ResourceGroup, name)
}

// PolicyDefinitions are the policy definition references used by the policy bindings.
// Values are either built-in definition names or full definition resource ids.
type PolicyDefinitions struct {
	PeriodicAssessment string
	Prerequisite       map[OsType]string
	ScheduleLink       string
}

// ProviderRegistration controls the optional provider registration phase.
type ProviderRegistration struct {
	Enabled    bool
	Namespaces []string
	Interval   time.Duration
	Timeout    time.Duration
}

// Plan is the normalized input of one run.
type Plan struct {
	Target              Target
	Cloud               string
	CreateResourceGroup bool
	Remediate           bool
	Providers           ProviderRegistration
	Policies            PolicyDefinitions
	RequiredRole        string
	Schedules           []*Schedule
}

// TruncateName cuts name to MaxNameLength bytes by dropping trailing characters.
// The result is not guaranteed to be unique.
func TruncateName(name string) string {
	if len(name) <= MaxNameLength {
		return name
	}

	return name[:MaxNameLength]
}
