// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package config

import "time"

const (
	DefaultCloud        = "public"
	DefaultTimezone     = "UTC"
	DefaultRequiredRole = "Contributor"

	DefaultProviderInterval = 10 * time.Second
	DefaultProviderTimeout  = 5 * time.Minute

	// Built-in definition names.
	DefaultPeriodicAssessmentDefinition = "59efceea-0c96-497e-a4a1-4eb2290dac15"
	DefaultPrerequisiteDefinition       = "9905ca54-1471-49c6-8291-7582c04cd4d4"
	DefaultScheduleLinkDefinition       = "ba0df93e-e4ac-479a-aac2-134bbae39a1a"
)

// DefaultProviderNamespaces are the resource providers registered by the provider registration phase.
func DefaultProviderNamespaces() []string {
	return []string{"Microsoft.Maintenance", "Microsoft.PolicyInsights"}
}
