// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package azclient

import (
	"context"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticCredential struct{}

func (staticCredential) GetToken(context.Context, policy.TokenRequestOptions) (azcore.AccessToken, error) {
	return azcore.AccessToken{Token: "token"}, nil
}

const (
	subA = "11111111-1111-1111-1111-111111111111"
	subB = "22222222-2222-2222-2222-222222222222"
)

func TestFactoryCachesPerSubscription(t *testing.T) {
	t.Parallel()

	f, err := New(staticCredential{}, nil, subA)
	require.NoError(t, err)

	a1, err := f.ScopeAssignments(subA)
	require.NoError(t, err)
	a2, err := f.ScopeAssignments(subA)
	require.NoError(t, err)
	b, err := f.ScopeAssignments(subB)
	require.NoError(t, err)

	assert.Same(t, a1, a2)
	assert.NotSame(t, a1, b)
	assert.Len(t, f.scopeAssignment, 2)

	_, err = f.ResourceGroups(subB)
	require.NoError(t, err)
	_, err = f.Providers(subB)
	require.NoError(t, err)
	_, err = f.MaintenanceConfigurations(subA)
	require.NoError(t, err)
	assert.Len(t, f.resourceGroups, 1)
	assert.Len(t, f.providers, 1)
	assert.Len(t, f.configurations, 1)
}

func TestFactoryTenantScopedClients(t *testing.T) {
	t.Parallel()

	f, err := New(staticCredential{}, nil, subA)
	require.NoError(t, err)

	pa, err := f.PolicyAssignments()
	require.NoError(t, err)
	assert.NotNil(t, pa)

	pd, err := f.PolicyDefinitions()
	require.NoError(t, err)
	assert.NotNil(t, pd)

	rem, err := f.Remediations()
	require.NoError(t, err)
	assert.NotNil(t, rem)

	subs, err := f.Subscriptions()
	require.NoError(t, err)
	assert.NotNil(t, subs)

	roles, err := f.Roles()
	require.NoError(t, err)
	assert.NotNil(t, roles)
}
