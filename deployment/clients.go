// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package deployment

import (
	"context"
	"errors"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/maintenance/armmaintenance"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/policyinsights/armpolicyinsights"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armpolicy"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armresources"
)

// The client interfaces below use the Azure SDK method signatures, so the SDK clients satisfy them.

// ResourceGroupsClient is the subset of *armresources.ResourceGroupsClient used by the pipeline.
type ResourceGroupsClient interface {
	CheckExistence(
		ctx context.Context,
		resourceGroupName string,
		options *armresources.ResourceGroupsClientCheckExistenceOptions,
	) (armresources.ResourceGroupsClientCheckExistenceResponse, error)
	CreateOrUpdate(
		ctx context.Context,
		resourceGroupName string,
		parameters armresources.ResourceGroup,
		options *armresources.ResourceGroupsClientCreateOrUpdateOptions,
	) (armresources.ResourceGroupsClientCreateOrUpdateResponse, error)
}

// ProvidersClient is the subset of *armresources.ProvidersClient used by the pipeline.
type ProvidersClient interface {
	Get(
		ctx context.Context,
		resourceProviderNamespace string,
		options *armresources.ProvidersClientGetOptions,
	) (armresources.ProvidersClientGetResponse, error)
	Register(
		ctx context.Context,
		resourceProviderNamespace string,
		options *armresources.ProvidersClientRegisterOptions,
	) (armresources.ProvidersClientRegisterResponse, error)
}

// MaintenanceConfigurationsClient is the subset of *armmaintenance.ConfigurationsClient used by the pipeline.
type MaintenanceConfigurationsClient interface {
	Get(
		ctx context.Context,
		resourceGroupName string,
		resourceName string,
		options *armmaintenance.ConfigurationsClientGetOptions,
	) (armmaintenance.ConfigurationsClientGetResponse, error)
	CreateOrUpdate(
		ctx context.Context,
		resourceGroupName string,
		resourceName string,
		configuration armmaintenance.Configuration,
		options *armmaintenance.ConfigurationsClientCreateOrUpdateOptions,
	) (armmaintenance.ConfigurationsClientCreateOrUpdateResponse, error)
}

// ScopeAssignmentsClient is the subset of *armmaintenance.ConfigurationAssignmentsForSubscriptionsClient
// used by the pipeline.
type ScopeAssignmentsClient interface {
	Get(
		ctx context.Context,
		configurationAssignmentName string,
		options *armmaintenance.ConfigurationAssignmentsForSubscriptionsClientGetOptions,
	) (armmaintenance.ConfigurationAssignmentsForSubscriptionsClientGetResponse, error)
	CreateOrUpdate(
		ctx context.Context,
		configurationAssignmentName string,
		configurationAssignment armmaintenance.ConfigurationAssignment,
		options *armmaintenance.ConfigurationAssignmentsForSubscriptionsClientCreateOrUpdateOptions,
	) (armmaintenance.ConfigurationAssignmentsForSubscriptionsClientCreateOrUpdateResponse, error)
}

// PolicyAssignmentsClient is the subset of *armpolicy.AssignmentsClient used by the pipeline.
type PolicyAssignmentsClient interface {
	Get(
		ctx context.Context,
		scope string,
		policyAssignmentName string,
		options *armpolicy.AssignmentsClientGetOptions,
	) (armpolicy.AssignmentsClientGetResponse, error)
	Create(
		ctx context.Context,
		scope string,
		policyAssignmentName string,
		parameters armpolicy.Assignment,
		options *armpolicy.AssignmentsClientCreateOptions,
	) (armpolicy.AssignmentsClientCreateResponse, error)
}

// PolicyDefinitionsClient is the subset of *armpolicy.DefinitionsClient used by the pipeline.
type PolicyDefinitionsClient interface {
	GetBuiltIn(
		ctx context.Context,
		policyDefinitionName string,
		options *armpolicy.DefinitionsClientGetBuiltInOptions,
	) (armpolicy.DefinitionsClientGetBuiltInResponse, error)
	GetAtManagementGroup(
		ctx context.Context,
		policyDefinitionName string,
		managementGroupID string,
		options *armpolicy.DefinitionsClientGetAtManagementGroupOptions,
	) (armpolicy.DefinitionsClientGetAtManagementGroupResponse, error)
}

// RemediationsClient is the subset of *armpolicyinsights.RemediationsClient used by the pipeline.
type RemediationsClient interface {
	CreateOrUpdateAtManagementGroup(
		ctx context.Context,
		managementGroupID string,
		remediationName string,
		parameters armpolicyinsights.Remediation,
		options *armpolicyinsights.RemediationsClientCreateOrUpdateAtManagementGroupOptions,
	) (armpolicyinsights.RemediationsClientCreateOrUpdateAtManagementGroupResponse, error)
}

// SubscriptionLister enumerates the subscriptions beneath a management group, at any depth.
type SubscriptionLister interface {
	ListSubscriptions(ctx context.Context, managementGroupID string) ([]string, error)
}

// RoleResolver looks up the id (a GUID) of a role definition by its name at the given scope.
type RoleResolver interface {
	RoleDefinitionID(ctx context.Context, scope, roleName string) (string, error)
}

// Clients builds the clients used by the phases.
// Subscription scoped clients take the subscription explicitly, there is no ambient
// "current subscription".
type Clients interface {
	ResourceGroups(subscriptionID string) (ResourceGroupsClient, error)
	Providers(subscriptionID string) (ProvidersClient, error)
	MaintenanceConfigurations(subscriptionID string) (MaintenanceConfigurationsClient, error)
	ScopeAssignments(subscriptionID string) (ScopeAssignmentsClient, error)
	PolicyAssignments() (PolicyAssignmentsClient, error)
	PolicyDefinitions() (PolicyDefinitionsClient, error)
	Remediations() (RemediationsClient, error)
	Subscriptions() (SubscriptionLister, error)
	Roles() (RoleResolver, error)
}

// isNotFound reports whether err is an Azure 404 response.
func isNotFound(err error) bool {
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		return respErr.StatusCode == http.StatusNotFound
	}

	return false
}
