// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package deployment

import (
	"context"
	"fmt"
	"strings"

	"github.com/Azure/aumlib"
	"github.com/Azure/aumlib/to"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armpolicy"
	"github.com/Masterminds/semver/v3"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	builtInDefinitionIDFmt         = "/providers/Microsoft.Authorization/policyDefinitions/%s"
	managementGroupDefinitionIDFmt = "/providers/Microsoft.Management/managementGroups/%s/providers/Microsoft.Authorization/policyDefinitions/%s"
	managementGroupResourceType    = "Microsoft.Management/managementGroups"
	policyDefinitionResourceType   = "Microsoft.Authorization/policyDefinitions"

	assessmentAssignmentNameFmt   = "aum-assess-%s"
	prerequisiteAssignmentNameFmt = "aum-prereq-%s"
	scheduleAssignmentNameFmt     = "aum-sched-%s-%s"
	scheduleAssignmentHashLength  = 12

	purposeAssessment   = "periodic assessment"
	purposePrerequisite = "patch mode prerequisite"
	purposeSchedule     = "schedule link"
)

// policyBinding is a policy assignment to create at management group scope.
type policyBinding struct {
	name         string
	displayName  string
	description  string
	definitionID string
	parameters   map[string]*armpolicy.ParameterValuesValue
}

// resolvedDefinitions holds the definition ids after preflight.
type resolvedDefinitions struct {
	assessment   string
	prerequisite map[aumlib.OsType]string
	schedule     string
}

// PolicyAssigner creates the Update Manager policy assignments at management group scope.
// Every assignment requests a system assigned identity.
type PolicyAssigner struct {
	clients Clients
	log     zerolog.Logger
}

// NewPolicyAssigner creates a PolicyAssigner.
func NewPolicyAssigner(clients Clients, log zerolog.Logger) *PolicyAssigner {
	return &PolicyAssigner{clients: clients, log: log}
}

// ScheduleAssignmentName returns the name of the schedule link assignment for a maintenance configuration.
// Management group assignment names are limited to 24 characters, so the configuration id is hashed.
func ScheduleAssignmentName(os aumlib.OsType, configID string) string {
	h := uuid.NewSHA1(uuid.NameSpaceURL, []byte(strings.ToLower(configID)))
	hex := strings.ReplaceAll(h.String(), "-", "")

	return fmt.Sprintf(scheduleAssignmentNameFmt, os.Short(), hex[:scheduleAssignmentHashLength])
}

// Assign resolves every referenced policy definition first. A definition that cannot be resolved
// is a *aumlib.DefinitionResolutionError and no assignment is created. Assignments are then
// upserted by name: an existing assignment with the same name at the same scope is returned unchanged.
func (p *PolicyAssigner) Assign(ctx context.Context, plan *aumlib.Plan) ([]*armpolicy.Assignment, []Result, error) {
	defs, err := p.preflight(ctx, plan.Policies)
	if err != nil {
		return nil, nil, err
	}

	client, err := p.clients.PolicyAssignments()
	if err != nil {
		return nil, nil, fmt.Errorf("deployment.PolicyAssigner.Assign: could not create client: %w", err)
	}

	bindings := newPolicyBindings(plan, defs)
	scope := plan.Target.ManagementGroupResourceID()
	assignments := make([]*armpolicy.Assignment, 0, len(bindings))
	results := make([]Result, 0, len(bindings))

	for _, b := range bindings {
		a, outcome, err := p.upsert(ctx, client, scope, plan.Target.Location, b)
		if err != nil {
			return assignments, results, aumlib.NewItemOperationError(string(PhasePolicies), b.name, err)
		}

		assignments = append(assignments, a)
		results = append(results, succeeded(PhasePolicies, b.name, to.ValOrZero(a.ID), outcome))
	}

	return assignments, results, nil
}

func (p *PolicyAssigner) upsert(
	ctx context.Context,
	client PolicyAssignmentsClient,
	scope, location string,
	b policyBinding,
) (*armpolicy.Assignment, Outcome, error) {
	existing, err := client.Get(ctx, scope, b.name, nil)
	if err == nil {
		p.log.Debug().Str("item", b.name).Msg("policy assignment exists")
		return &existing.Assignment, OutcomeExisting, nil
	}

	if !isNotFound(err) {
		return nil, "", err
	}

	created, err := client.Create(ctx, scope, b.name, armpolicy.Assignment{
		Location: to.Ptr(location),
		Identity: &armpolicy.Identity{
			Type: to.Ptr(armpolicy.ResourceIdentityTypeSystemAssigned),
		},
		Properties: &armpolicy.AssignmentProperties{
			DisplayName:        to.Ptr(b.displayName),
			Description:        to.Ptr(b.description),
			PolicyDefinitionID: to.Ptr(b.definitionID),
			Parameters:         b.parameters,
		},
	}, nil)
	if err != nil {
		return nil, "", err
	}

	p.log.Info().Str("item", b.name).Msg("created policy assignment")

	return &created.Assignment, OutcomeCreated, nil
}

// preflight resolves all definitions before anything is assigned.
func (p *PolicyAssigner) preflight(ctx context.Context, refs aumlib.PolicyDefinitions) (resolvedDefinitions, error) {
	client, err := p.clients.PolicyDefinitions()
	if err != nil {
		return resolvedDefinitions{}, fmt.Errorf("deployment.PolicyAssigner: could not create definitions client: %w", err)
	}

	cache := make(map[string]string)
	resolve := func(ref, purpose string) (string, error) {
		if id, ok := cache[strings.ToLower(ref)]; ok {
			return id, nil
		}

		id, err := p.resolveDefinition(ctx, client, ref, purpose)
		if err != nil {
			return "", err
		}

		cache[strings.ToLower(ref)] = id

		return id, nil
	}

	res := resolvedDefinitions{prerequisite: make(map[aumlib.OsType]string, 2)}

	if res.assessment, err = resolve(refs.PeriodicAssessment, purposeAssessment); err != nil {
		return resolvedDefinitions{}, err
	}

	for _, os := range aumlib.OsTypes() {
		id, err := resolve(refs.Prerequisite[os], fmt.Sprintf("%s (%s)", purposePrerequisite, os))
		if err != nil {
			return resolvedDefinitions{}, err
		}

		res.prerequisite[os] = id
	}

	if res.schedule, err = resolve(refs.ScheduleLink, purposeSchedule); err != nil {
		return resolvedDefinitions{}, err
	}

	if strings.EqualFold(res.prerequisite[aumlib.OsTypeWindows], res.prerequisite[aumlib.OsTypeLinux]) {
		p.log.Warn().
			Str("definition", res.prerequisite[aumlib.OsTypeWindows]).
			Msg("Windows and Linux patch mode prerequisites use the same policy definition, the environment may only expose one")
	}

	return res, nil
}

func (p *PolicyAssigner) resolveDefinition(
	ctx context.Context,
	client PolicyDefinitionsClient,
	ref, purpose string,
) (string, error) {
	name, mg, err := parseDefinitionRef(ref)
	if err != nil {
		return "", aumlib.NewDefinitionResolutionError(ref, purpose, err)
	}

	var (
		def armpolicy.Definition
		id  string
	)

	if mg == "" {
		resp, err := client.GetBuiltIn(ctx, name, nil)
		if err != nil {
			return "", aumlib.NewDefinitionResolutionError(ref, purpose, err)
		}

		def, id = resp.Definition, fmt.Sprintf(builtInDefinitionIDFmt, name)
	} else {
		resp, err := client.GetAtManagementGroup(ctx, name, mg, nil)
		if err != nil {
			return "", aumlib.NewDefinitionResolutionError(ref, purpose, err)
		}

		def, id = resp.Definition, fmt.Sprintf(managementGroupDefinitionIDFmt, mg, name)
	}

	if def.ID != nil && *def.ID != "" {
		id = *def.ID
	}

	if v := definitionVersion(def); v != nil && v.Prerelease() != "" {
		p.log.Warn().Str("definition", id).Str("version", v.String()).Msgf("%s policy definition is a prerelease version", purpose)
	}

	return id, nil
}

// parseDefinitionRef accepts a built-in definition name, a built-in definition id or a management
// group definition id. It returns the definition name and, for the latter, the management group.
func parseDefinitionRef(ref string) (string, string, error) {
	if ref == "" {
		return "", "", fmt.Errorf("empty policy definition reference")
	}

	if !strings.HasPrefix(ref, "/") {
		return ref, "", nil
	}

	rid, err := arm.ParseResourceID(ref)
	if err != nil {
		return "", "", fmt.Errorf("invalid policy definition id: %w", err)
	}

	if !strings.EqualFold(rid.ResourceType.String(), policyDefinitionResourceType) {
		return "", "", fmt.Errorf("resource type is `%s`, expected %s", rid.ResourceType.String(), policyDefinitionResourceType)
	}

	if rid.SubscriptionID != "" {
		return "", "", fmt.Errorf("subscription scoped policy definitions are not supported")
	}

	if rid.Parent != nil && strings.EqualFold(rid.Parent.ResourceType.String(), managementGroupResourceType) {
		return rid.Name, rid.Parent.Name, nil
	}

	return rid.Name, "", nil
}

// definitionVersion reads the semantic version from the definition metadata, if there is one.
func definitionVersion(def armpolicy.Definition) *semver.Version {
	if def.Properties == nil {
		return nil
	}

	md, ok := def.Properties.Metadata.(map[string]any)
	if !ok {
		return nil
	}

	s, ok := md["version"].(string)
	if !ok {
		return nil
	}

	v, err := semver.NewVersion(s)
	if err != nil {
		return nil
	}

	return v
}

// newPolicyBindings returns the assessment and prerequisite assignments for both operating systems
// followed by one schedule link assignment per distinct in-guest patch configuration id, grouped by OS.
func newPolicyBindings(plan *aumlib.Plan, defs resolvedDefinitions) []policyBinding {
	bindings := make([]policyBinding, 0, 4)

	for _, os := range aumlib.OsTypes() {
		lower := strings.ToLower(string(os))
		bindings = append(bindings,
			policyBinding{
				name:         fmt.Sprintf(assessmentAssignmentNameFmt, lower),
				displayName:  fmt.Sprintf("Update Manager: periodic assessment (%s)", os),
				description:  fmt.Sprintf("Enables periodic checking for missing updates on %s machines.", os),
				definitionID: defs.assessment,
				parameters: map[string]*armpolicy.ParameterValuesValue{
					"osType":         {Value: string(os)},
					"assessmentMode": {Value: "AutomaticByPlatform"},
				},
			},
			policyBinding{
				name:         fmt.Sprintf(prerequisiteAssignmentNameFmt, lower),
				displayName:  fmt.Sprintf("Update Manager: schedule prerequisites (%s)", os),
				description:  fmt.Sprintf("Sets the patch orchestration prerequisites for scheduled patching on %s machines.", os),
				definitionID: defs.prerequisite[os],
				parameters: map[string]*armpolicy.ParameterValuesValue{
					"operatingSystemTypes": {Value: []any{string(os)}},
				},
			},
		)
	}

	for _, os := range aumlib.OsTypes() {
		seen := mapset.NewThreadUnsafeSet[string]()

		for _, s := range plan.Schedules {
			p, ok := s.InGuestPatch()
			if !ok || p.OsType() != os {
				continue
			}

			id, ok := s.ResolvedConfigID()
			if !ok || !seen.Add(strings.ToLower(id)) {
				continue
			}

			bindings = append(bindings, policyBinding{
				name:         ScheduleAssignmentName(os, id),
				displayName:  fmt.Sprintf("Update Manager: schedule %s (%s)", s.Name, os),
				description:  fmt.Sprintf("Links %s machines to the maintenance configuration %s.", os, id),
				definitionID: defs.schedule,
				parameters: map[string]*armpolicy.ParameterValuesValue{
					"maintenanceConfigurationResourceId": {Value: id},
					"operatingSystemTypes":               {Value: []any{string(os)}},
				},
			})
		}
	}

	return bindings
}
