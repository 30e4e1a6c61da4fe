// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package config

// Document is the structured configuration document.
type Document struct {
	ManagementGroup      string                        `json:"managementGroup" yaml:"managementGroup"`
	Subscription         string                        `json:"subscription" yaml:"subscription"`
	ResourceGroup        string                        `json:"resourceGroup" yaml:"resourceGroup"`
	Tenant               string                        `json:"tenant,omitempty" yaml:"tenant,omitempty"`
	ClientID             string                        `json:"clientId,omitempty" yaml:"clientId,omitempty"`
	ClientSecret         string                        `json:"clientSecret,omitempty" yaml:"clientSecret,omitempty"`
	Location             string                        `json:"location" yaml:"location"`
	Cloud                string                        `json:"cloud,omitempty" yaml:"cloud,omitempty"`
	CreateResourceGroup  bool                          `json:"createResourceGroup,omitempty" yaml:"createResourceGroup,omitempty"`
	RegisterProviders    bool                          `json:"registerProviders,omitempty" yaml:"registerProviders,omitempty"`
	Remediate            bool                          `json:"remediate,omitempty" yaml:"remediate,omitempty"`
	ProviderRegistration *ProviderRegistrationDocument `json:"providerRegistration,omitempty" yaml:"providerRegistration,omitempty"`
	PolicyDefinitions    *PolicyDefinitionsDocument    `json:"policyDefinitions,omitempty" yaml:"policyDefinitions,omitempty"`
	RequiredRole         string                        `json:"requiredRole,omitempty" yaml:"requiredRole,omitempty"`
	Schedules            []ScheduleDocument            `json:"schedules" yaml:"schedules"`
}

// ProviderRegistrationDocument overrides the provider registration defaults.
// Interval and Timeout are Go duration strings, e.g. `10s`, `5m`.
type ProviderRegistrationDocument struct {
	Namespaces []string `json:"namespaces,omitempty" yaml:"namespaces,omitempty"`
	Interval   string   `json:"interval,omitempty" yaml:"interval,omitempty"`
	Timeout    string   `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// PolicyDefinitionsDocument overrides the policy definitions used by the policy bindings.
type PolicyDefinitionsDocument struct {
	PeriodicAssessment  string `json:"periodicAssessment,omitempty" yaml:"periodicAssessment,omitempty"`
	WindowsPrerequisite string `json:"windowsPrerequisite,omitempty" yaml:"windowsPrerequisite,omitempty"`
	LinuxPrerequisite   string `json:"linuxPrerequisite,omitempty" yaml:"linuxPrerequisite,omitempty"`
	ScheduleLink        string `json:"scheduleLink,omitempty" yaml:"scheduleLink,omitempty"`
}

// ScheduleDocument mirrors aumlib.Schedule.
type ScheduleDocument struct {
	Name                      string                 `json:"name" yaml:"name"`
	MaintenanceScope          string                 `json:"maintenanceScope" yaml:"maintenanceScope"`
	OsType                    string                 `json:"osType,omitempty" yaml:"osType,omitempty"`
	Classifications           []string               `json:"classifications,omitempty" yaml:"classifications,omitempty"`
	IncludeFilters            []string               `json:"includeFilters,omitempty" yaml:"includeFilters,omitempty"`
	ExcludeFilters            []string               `json:"excludeFilters,omitempty" yaml:"excludeFilters,omitempty"`
	ExcludeKbsRequiringReboot bool                   `json:"excludeKbsRequiringReboot,omitempty" yaml:"excludeKbsRequiringReboot,omitempty"`
	RebootSetting             string                 `json:"rebootSetting,omitempty" yaml:"rebootSetting,omitempty"`
	Recurrence                string                 `json:"recurrence" yaml:"recurrence"`
	StartDateTime             string                 `json:"startDateTime" yaml:"startDateTime"`
	ExpirationDateTime        string                 `json:"expirationDateTime,omitempty" yaml:"expirationDateTime,omitempty"`
	Duration                  string                 `json:"duration" yaml:"duration"`
	Timezone                  string                 `json:"timezone,omitempty" yaml:"timezone,omitempty"`
	PreTask                   *TaskDocument          `json:"preTask,omitempty" yaml:"preTask,omitempty"`
	PostTask                  *TaskDocument          `json:"postTask,omitempty" yaml:"postTask,omitempty"`
	DynamicScopes             []DynamicScopeDocument `json:"dynamicScopes,omitempty" yaml:"dynamicScopes,omitempty"`
}

// TaskDocument references a pre or post maintenance task.
type TaskDocument struct {
	Source     string            `json:"source" yaml:"source"`
	Parameters map[string]string `json:"parameters,omitempty" yaml:"parameters,omitempty"`
}

// DynamicScopeDocument mirrors aumlib.DynamicScope.
type DynamicScopeDocument struct {
	Subscriptions  []string            `json:"subscriptions" yaml:"subscriptions"`
	ResourceGroups []string            `json:"resourceGroups,omitempty" yaml:"resourceGroups,omitempty"`
	Locations      []string            `json:"locations,omitempty" yaml:"locations,omitempty"`
	OsTypes        []string            `json:"osTypes,omitempty" yaml:"osTypes,omitempty"`
	Tags           map[string][]string `json:"tags,omitempty" yaml:"tags,omitempty"`
	TagOperator    string              `json:"tagOperator,omitempty" yaml:"tagOperator,omitempty"`
}
