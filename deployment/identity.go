// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package deployment

import (
	"context"

	"github.com/Azure/aumlib"
	"github.com/Azure/aumlib/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armpolicy"
	"github.com/rs/zerolog"
)

const (
	// ContributorRoleDefinitionID is the id of the built-in Contributor role.
	ContributorRoleDefinitionID = "b24988ac-6180-42a0-ab88-20f7382dd24c"
	contributorRoleName         = "Contributor"

	// StatusRBACNotAssigned is the status of every reported identity. Granting the role is left
	// to a separate process.
	StatusRBACNotAssigned = "RBAC not assigned"
)

// Identity is one managed identity that needs the required role before remediation can succeed.
type Identity struct {
	AssignmentName   string
	DisplayName      string
	PrincipalID      string
	Kind             string
	RoleName         string
	RoleDefinitionID string
	Scope            string
	Status           string
}

// IdentityReporter collects the managed identities of the policy assignments.
type IdentityReporter struct {
	clients Clients
	log     zerolog.Logger
}

// NewIdentityReporter creates an IdentityReporter.
func NewIdentityReporter(clients Clients, log zerolog.Logger) *IdentityReporter {
	return &IdentityReporter{clients: clients, log: log}
}

// Report returns one record per assignment that carries a managed identity. No identities is
// an empty result, not an error.
func (r *IdentityReporter) Report(ctx context.Context, plan *aumlib.Plan, assignments []*armpolicy.Assignment) []Identity {
	scope := plan.Target.ManagementGroupResourceID()
	res := make([]Identity, 0, len(assignments))

	var roleID string

	for _, a := range assignments {
		if a == nil || a.Identity == nil || to.ValOrZero(a.Identity.PrincipalID) == "" {
			continue
		}

		if roleID == "" {
			roleID = r.roleDefinitionID(ctx, scope, plan.RequiredRole)
		}

		id := Identity{
			AssignmentName:   to.ValOrZero(a.Name),
			PrincipalID:      *a.Identity.PrincipalID,
			Kind:             string(to.ValOrZero(a.Identity.Type)),
			RoleName:         plan.RequiredRole,
			RoleDefinitionID: roleID,
			Scope:            scope,
			Status:           StatusRBACNotAssigned,
		}

		if a.Properties != nil {
			id.DisplayName = to.ValOrZero(a.Properties.DisplayName)
		}

		res = append(res, id)
	}

	return res
}

// roleDefinitionID looks up the role by name, falling back to the Contributor role id.
func (r *IdentityReporter) roleDefinitionID(ctx context.Context, scope, roleName string) string {
	resolver, err := r.clients.Roles()
	if err == nil {
		var id string

		id, err = resolver.RoleDefinitionID(ctx, scope, roleName)
		if err == nil && id != "" {
			return id
		}
	}

	r.log.Warn().Err(err).Str("role", roleName).Msgf("could not look up role definition, using %s", ContributorRoleDefinitionID)

	if roleName != contributorRoleName {
		r.log.Warn().Str("role", roleName).Msg("reported role id is the Contributor role, not the configured role")
	}

	return ContributorRoleDefinitionID
}
