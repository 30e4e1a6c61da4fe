// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

// Package azclient builds the Azure SDK clients used by the deployment pipeline.
package azclient

import (
	"context"
	"fmt"

	"github.com/Azure/aumlib/deployment"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/authorization/armauthorization"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/maintenance/armmaintenance"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/managementgroups/armmanagementgroups"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/policyinsights/armpolicyinsights"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armpolicy"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armresources"
)

var _ deployment.Clients = &Factory{}

// Factory creates Azure SDK clients. Subscription scoped clients are cached per subscription.
// Management group and tenant scoped clients are bound to the home subscription, which the
// SDK requires but does not use for those operations.
// It is not safe for concurrent use.
type Factory struct {
	cred           azcore.TokenCredential
	opts           *arm.ClientOptions
	subscriptionID string

	policy          *armpolicy.ClientFactory
	resourceGroups  map[string]*armresources.ResourceGroupsClient
	providers       map[string]*armresources.ProvidersClient
	configurations  map[string]*armmaintenance.ConfigurationsClient
	scopeAssignment map[string]*armmaintenance.ConfigurationAssignmentsForSubscriptionsClient
}

// New creates a Factory. The subscription id is the home subscription of the plan.
func New(cred azcore.TokenCredential, opts *arm.ClientOptions, subscriptionID string) (*Factory, error) {
	policy, err := armpolicy.NewClientFactory(subscriptionID, cred, opts)
	if err != nil {
		return nil, fmt.Errorf("azclient.New: could not create policy client factory: %w", err)
	}

	return &Factory{
		cred:            cred,
		opts:            opts,
		subscriptionID:  subscriptionID,
		policy:          policy,
		resourceGroups:  make(map[string]*armresources.ResourceGroupsClient),
		providers:       make(map[string]*armresources.ProvidersClient),
		configurations:  make(map[string]*armmaintenance.ConfigurationsClient),
		scopeAssignment: make(map[string]*armmaintenance.ConfigurationAssignmentsForSubscriptionsClient),
	}, nil
}

// cached returns the client for the subscription, creating it with newFn on first use.
func cached[C any](
	m map[string]*C,
	subscriptionID string,
	newFn func(string, azcore.TokenCredential, *arm.ClientOptions) (*C, error),
	cred azcore.TokenCredential,
	opts *arm.ClientOptions,
) (*C, error) {
	if c, ok := m[subscriptionID]; ok {
		return c, nil
	}

	c, err := newFn(subscriptionID, cred, opts)
	if err != nil {
		return nil, fmt.Errorf("azclient: could not create client for subscription `%s`: %w", subscriptionID, err)
	}

	m[subscriptionID] = c

	return c, nil
}

// ResourceGroups implements deployment.Clients.
func (f *Factory) ResourceGroups(subscriptionID string) (deployment.ResourceGroupsClient, error) {
	return cached(f.resourceGroups, subscriptionID, armresources.NewResourceGroupsClient, f.cred, f.opts)
}

// Providers implements deployment.Clients.
func (f *Factory) Providers(subscriptionID string) (deployment.ProvidersClient, error) {
	return cached(f.providers, subscriptionID, armresources.NewProvidersClient, f.cred, f.opts)
}

// MaintenanceConfigurations implements deployment.Clients.
func (f *Factory) MaintenanceConfigurations(subscriptionID string) (deployment.MaintenanceConfigurationsClient, error) {
	return cached(f.configurations, subscriptionID, armmaintenance.NewConfigurationsClient, f.cred, f.opts)
}

// ScopeAssignments implements deployment.Clients.
func (f *Factory) ScopeAssignments(subscriptionID string) (deployment.ScopeAssignmentsClient, error) {
	return cached(f.scopeAssignment, subscriptionID, armmaintenance.NewConfigurationAssignmentsForSubscriptionsClient, f.cred, f.opts)
}

// PolicyAssignments implements deployment.Clients.
func (f *Factory) PolicyAssignments() (deployment.PolicyAssignmentsClient, error) {
	return f.policy.NewAssignmentsClient(), nil
}

// PolicyDefinitions implements deployment.Clients.
func (f *Factory) PolicyDefinitions() (deployment.PolicyDefinitionsClient, error) {
	return f.policy.NewDefinitionsClient(), nil
}

// Remediations implements deployment.Clients.
func (f *Factory) Remediations() (deployment.RemediationsClient, error) {
	c, err := armpolicyinsights.NewRemediationsClient(f.subscriptionID, f.cred, f.opts)
	if err != nil {
		return nil, fmt.Errorf("azclient: could not create remediations client: %w", err)
	}

	return c, nil
}

// Subscriptions implements deployment.Clients.
func (f *Factory) Subscriptions() (deployment.SubscriptionLister, error) {
	c, err := armmanagementgroups.NewManagementGroupSubscriptionsClient(f.cred, f.opts)
	if err != nil {
		return nil, fmt.Errorf("azclient: could not create management group subscriptions client: %w", err)
	}

	return &subscriptionLister{client: c}, nil
}

// Roles implements deployment.Clients.
func (f *Factory) Roles() (deployment.RoleResolver, error) {
	c, err := armauthorization.NewRoleDefinitionsClient(f.cred, f.opts)
	if err != nil {
		return nil, fmt.Errorf("azclient: could not create role definitions client: %w", err)
	}

	return &roleResolver{client: c}, nil
}

type subscriptionLister struct {
	client *armmanagementgroups.ManagementGroupSubscriptionsClient
}

// ListSubscriptions drains the pager of subscriptions under the management group.
func (l *subscriptionLister) ListSubscriptions(ctx context.Context, managementGroupID string) ([]string, error) {
	var res []string

	pager := l.client.NewGetSubscriptionsUnderManagementGroupPager(managementGroupID, nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("azclient: listing subscriptions under management group `%s`: %w", managementGroupID, err)
		}

		for _, s := range page.Value {
			if s != nil && s.Name != nil {
				res = append(res, *s.Name)
			}
		}
	}

	return res, nil
}

type roleResolver struct {
	client *armauthorization.RoleDefinitionsClient
}

// RoleDefinitionID returns the GUID of the role definition with the given name.
func (r *roleResolver) RoleDefinitionID(ctx context.Context, scope, roleName string) (string, error) {
	filter := fmt.Sprintf("roleName eq '%s'", roleName)

	pager := r.client.NewListPager(scope, &armauthorization.RoleDefinitionsClientListOptions{Filter: &filter})
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return "", fmt.Errorf("azclient: listing role definitions at `%s`: %w", scope, err)
		}

		for _, rd := range page.Value {
			if rd != nil && rd.Name != nil {
				return *rd.Name, nil
			}
		}
	}

	return "", fmt.Errorf("azclient: role definition `%s` not found at `%s`", roleName, scope)
}
