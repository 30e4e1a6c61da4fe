// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package deployment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Azure/aumlib"
	"github.com/Azure/aumlib/to"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/maintenance/armmaintenance"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/policyinsights/armpolicyinsights"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armpolicy"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armresources"
	"github.com/google/uuid"
)

const (
	testMG       = "contoso"
	testHubSub   = "00000000-0000-0000-0000-000000000001"
	testSubA     = "11111111-1111-1111-1111-111111111111"
	testSubB     = "22222222-2222-2222-2222-222222222222"
	testRG       = "rg-aum"
	testLocation = "westeurope"
)

var errBoom = errors.New("boom")

func notFound() error {
	return &azcore.ResponseError{StatusCode: http.StatusNotFound, ErrorCode: "ResourceNotFound"}
}

// fakeAzure is an in-memory stand in for the Azure Resource Manager APIs used by the pipeline.
type fakeAzure struct {
	resourceGroups map[string]bool
	rgCreates      int

	subscriptions  map[string][]string
	listSubsErr    error
	providerStates map[string]string
	// registerAfterPolls is the number of status reads after Register before a provider reports Registered.
	// A negative value never completes.
	registerAfterPolls int
	pollsSinceRegister map[string]int
	registerCalls      int
	registerErr        map[string]error

	configs       map[string]armmaintenance.Configuration
	configCreates int

	scopeAssignments  map[string]armmaintenance.ConfigurationAssignment
	scopeCreates      int
	scopeCreateErr    map[string]error
	scopeCreatedNames []string

	definitions       map[string]armpolicy.Definition
	definitionGets    int
	assignments       map[string]armpolicy.Assignment
	assignmentCreates int

	remediations   map[string]armpolicyinsights.Remediation
	remediationErr error

	roles   map[string]string
	roleErr error
}

func newFakeAzure() *fakeAzure {
	return &fakeAzure{
		resourceGroups:     map[string]bool{testHubSub + "/" + testRG: true},
		subscriptions:      map[string][]string{testMG: {testSubA, testSubB}},
		providerStates:     map[string]string{},
		pollsSinceRegister: map[string]int{},
		registerErr:        map[string]error{},
		configs:            map[string]armmaintenance.Configuration{},
		scopeAssignments:   map[string]armmaintenance.ConfigurationAssignment{},
		scopeCreateErr:     map[string]error{},
		definitions: map[string]armpolicy.Definition{
			"59efceea-0c96-497e-a4a1-4eb2290dac15": builtIn("59efceea-0c96-497e-a4a1-4eb2290dac15", "2.0.0"),
			"9905ca54-1471-49c6-8291-7582c04cd4d4": builtIn("9905ca54-1471-49c6-8291-7582c04cd4d4", "1.0.0-preview"),
			"ba0df93e-e4ac-479a-aac2-134bbae39a1a": builtIn("ba0df93e-e4ac-479a-aac2-134bbae39a1a", "1.0.0"),
		},
		assignments:  map[string]armpolicy.Assignment{},
		remediations: map[string]armpolicyinsights.Remediation{},
		roles:        map[string]string{"Contributor": "b24988ac-6180-42a0-ab88-20f7382dd24c"},
	}
}

func builtIn(name, version string) armpolicy.Definition {
	return armpolicy.Definition{
		ID:   to.Ptr(fmt.Sprintf("/providers/Microsoft.Authorization/policyDefinitions/%s", name)),
		Name: to.Ptr(name),
		Properties: &armpolicy.DefinitionProperties{
			Metadata: map[string]any{"version": version},
		},
	}
}

// created returns the total number of create calls.
func (f *fakeAzure) created() int {
	return f.rgCreates + f.configCreates + f.scopeCreates + f.assignmentCreates
}

func (f *fakeAzure) ResourceGroups(sub string) (ResourceGroupsClient, error) {
	return &fakeResourceGroups{f: f, sub: sub}, nil
}

func (f *fakeAzure) Providers(sub string) (ProvidersClient, error) {
	return &fakeProviders{f: f, sub: sub}, nil
}

func (f *fakeAzure) MaintenanceConfigurations(sub string) (MaintenanceConfigurationsClient, error) {
	return &fakeConfigurations{f: f, sub: sub}, nil
}

func (f *fakeAzure) ScopeAssignments(sub string) (ScopeAssignmentsClient, error) {
	return &fakeScopeAssignments{f: f, sub: sub}, nil
}

func (f *fakeAzure) PolicyAssignments() (PolicyAssignmentsClient, error) {
	return &fakePolicyAssignments{f: f}, nil
}

func (f *fakeAzure) PolicyDefinitions() (PolicyDefinitionsClient, error) {
	return &fakePolicyDefinitions{f: f}, nil
}

func (f *fakeAzure) Remediations() (RemediationsClient, error) {
	return &fakeRemediations{f: f}, nil
}

func (f *fakeAzure) Subscriptions() (SubscriptionLister, error) {
	return f, nil
}

func (f *fakeAzure) Roles() (RoleResolver, error) {
	return f, nil
}

func (f *fakeAzure) ListSubscriptions(_ context.Context, mg string) ([]string, error) {
	if f.listSubsErr != nil {
		return nil, f.listSubsErr
	}

	return f.subscriptions[mg], nil
}

func (f *fakeAzure) RoleDefinitionID(_ context.Context, _, roleName string) (string, error) {
	if f.roleErr != nil {
		return "", f.roleErr
	}

	id, ok := f.roles[roleName]
	if !ok {
		return "", fmt.Errorf("role %s not found", roleName)
	}

	return id, nil
}

type fakeResourceGroups struct {
	f   *fakeAzure
	sub string
}

func (c *fakeResourceGroups) CheckExistence(
	_ context.Context,
	name string,
	_ *armresources.ResourceGroupsClientCheckExistenceOptions,
) (armresources.ResourceGroupsClientCheckExistenceResponse, error) {
	return armresources.ResourceGroupsClientCheckExistenceResponse{Success: c.f.resourceGroups[c.sub+"/"+name]}, nil
}

func (c *fakeResourceGroups) CreateOrUpdate(
	_ context.Context,
	name string,
	rg armresources.ResourceGroup,
	_ *armresources.ResourceGroupsClientCreateOrUpdateOptions,
) (armresources.ResourceGroupsClientCreateOrUpdateResponse, error) {
	c.f.resourceGroups[c.sub+"/"+name] = true
	c.f.rgCreates++
	rg.Name = to.Ptr(name)

	return armresources.ResourceGroupsClientCreateOrUpdateResponse{ResourceGroup: rg}, nil
}

type fakeProviders struct {
	f   *fakeAzure
	sub string
}

func (c *fakeProviders) Get(
	_ context.Context,
	ns string,
	_ *armresources.ProvidersClientGetOptions,
) (armresources.ProvidersClientGetResponse, error) {
	key := c.sub + "/" + ns

	state, ok := c.f.providerStates[key]
	if !ok {
		state = "NotRegistered"
	}

	if state == "Registering" {
		c.f.pollsSinceRegister[key]++
		if c.f.registerAfterPolls >= 0 && c.f.pollsSinceRegister[key] > c.f.registerAfterPolls {
			state = "Registered"
			c.f.providerStates[key] = state
		}
	}

	return armresources.ProvidersClientGetResponse{Provider: armresources.Provider{
		ID:                to.Ptr("/subscriptions/" + c.sub + "/providers/" + ns),
		Namespace:         to.Ptr(ns),
		RegistrationState: to.Ptr(state),
	}}, nil
}

func (c *fakeProviders) Register(
	_ context.Context,
	ns string,
	_ *armresources.ProvidersClientRegisterOptions,
) (armresources.ProvidersClientRegisterResponse, error) {
	key := c.sub + "/" + ns
	c.f.registerCalls++

	if err := c.f.registerErr[key]; err != nil {
		return armresources.ProvidersClientRegisterResponse{}, err
	}

	c.f.providerStates[key] = "Registering"

	return armresources.ProvidersClientRegisterResponse{}, nil
}

type fakeConfigurations struct {
	f   *fakeAzure
	sub string
}

func (c *fakeConfigurations) Get(
	_ context.Context,
	rg, name string,
	_ *armmaintenance.ConfigurationsClientGetOptions,
) (armmaintenance.ConfigurationsClientGetResponse, error) {
	cfg, ok := c.f.configs[strings.ToLower(c.sub+"/"+rg+"/"+name)]
	if !ok {
		return armmaintenance.ConfigurationsClientGetResponse{}, notFound()
	}

	return armmaintenance.ConfigurationsClientGetResponse{Configuration: cfg}, nil
}

func (c *fakeConfigurations) CreateOrUpdate(
	_ context.Context,
	rg, name string,
	cfg armmaintenance.Configuration,
	_ *armmaintenance.ConfigurationsClientCreateOrUpdateOptions,
) (armmaintenance.ConfigurationsClientCreateOrUpdateResponse, error) {
	cfg.ID = to.Ptr(fmt.Sprintf(
		"/subscriptions/%s/resourceGroups/%s/providers/Microsoft.Maintenance/maintenanceConfigurations/%s", c.sub, rg, name))
	cfg.Name = to.Ptr(name)
	c.f.configs[strings.ToLower(c.sub+"/"+rg+"/"+name)] = cfg
	c.f.configCreates++

	return armmaintenance.ConfigurationsClientCreateOrUpdateResponse{Configuration: cfg}, nil
}

type fakeScopeAssignments struct {
	f   *fakeAzure
	sub string
}

func (c *fakeScopeAssignments) Get(
	_ context.Context,
	name string,
	_ *armmaintenance.ConfigurationAssignmentsForSubscriptionsClientGetOptions,
) (armmaintenance.ConfigurationAssignmentsForSubscriptionsClientGetResponse, error) {
	a, ok := c.f.scopeAssignments[c.sub+"/"+name]
	if !ok {
		return armmaintenance.ConfigurationAssignmentsForSubscriptionsClientGetResponse{}, notFound()
	}

	return armmaintenance.ConfigurationAssignmentsForSubscriptionsClientGetResponse{ConfigurationAssignment: a}, nil
}

func (c *fakeScopeAssignments) CreateOrUpdate(
	_ context.Context,
	name string,
	a armmaintenance.ConfigurationAssignment,
	_ *armmaintenance.ConfigurationAssignmentsForSubscriptionsClientCreateOrUpdateOptions,
) (armmaintenance.ConfigurationAssignmentsForSubscriptionsClientCreateOrUpdateResponse, error) {
	c.f.scopeCreates++

	if err := c.f.scopeCreateErr[c.sub]; err != nil {
		return armmaintenance.ConfigurationAssignmentsForSubscriptionsClientCreateOrUpdateResponse{}, err
	}

	a.ID = to.Ptr(fmt.Sprintf("/subscriptions/%s/providers/Microsoft.Maintenance/configurationAssignments/%s", c.sub, name))
	a.Name = to.Ptr(name)
	c.f.scopeAssignments[c.sub+"/"+name] = a
	c.f.scopeCreatedNames = append(c.f.scopeCreatedNames, c.sub+"/"+name)

	return armmaintenance.ConfigurationAssignmentsForSubscriptionsClientCreateOrUpdateResponse{ConfigurationAssignment: a}, nil
}

type fakePolicyAssignments struct {
	f *fakeAzure
}

func (c *fakePolicyAssignments) Get(
	_ context.Context,
	scope, name string,
	_ *armpolicy.AssignmentsClientGetOptions,
) (armpolicy.AssignmentsClientGetResponse, error) {
	a, ok := c.f.assignments[scope+"/"+name]
	if !ok {
		return armpolicy.AssignmentsClientGetResponse{}, notFound()
	}

	return armpolicy.AssignmentsClientGetResponse{Assignment: a}, nil
}

func (c *fakePolicyAssignments) Create(
	_ context.Context,
	scope, name string,
	a armpolicy.Assignment,
	_ *armpolicy.AssignmentsClientCreateOptions,
) (armpolicy.AssignmentsClientCreateResponse, error) {
	a.ID = to.Ptr(scope + "/providers/Microsoft.Authorization/policyAssignments/" + name)
	a.Name = to.Ptr(name)

	if a.Identity != nil && to.ValOrZero(a.Identity.Type) == armpolicy.ResourceIdentityTypeSystemAssigned {
		a.Identity.PrincipalID = to.Ptr(uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)).String())
	}

	c.f.assignments[scope+"/"+name] = a
	c.f.assignmentCreates++

	return armpolicy.AssignmentsClientCreateResponse{Assignment: a}, nil
}

type fakePolicyDefinitions struct {
	f *fakeAzure
}

func (c *fakePolicyDefinitions) GetBuiltIn(
	_ context.Context,
	name string,
	_ *armpolicy.DefinitionsClientGetBuiltInOptions,
) (armpolicy.DefinitionsClientGetBuiltInResponse, error) {
	c.f.definitionGets++

	d, ok := c.f.definitions[name]
	if !ok {
		return armpolicy.DefinitionsClientGetBuiltInResponse{}, notFound()
	}

	return armpolicy.DefinitionsClientGetBuiltInResponse{Definition: d}, nil
}

func (c *fakePolicyDefinitions) GetAtManagementGroup(
	_ context.Context,
	name, mg string,
	_ *armpolicy.DefinitionsClientGetAtManagementGroupOptions,
) (armpolicy.DefinitionsClientGetAtManagementGroupResponse, error) {
	c.f.definitionGets++

	d, ok := c.f.definitions[mg+"/"+name]
	if !ok {
		return armpolicy.DefinitionsClientGetAtManagementGroupResponse{}, notFound()
	}

	return armpolicy.DefinitionsClientGetAtManagementGroupResponse{Definition: d}, nil
}

type fakeRemediations struct {
	f *fakeAzure
}

func (c *fakeRemediations) CreateOrUpdateAtManagementGroup(
	_ context.Context,
	mg, name string,
	r armpolicyinsights.Remediation,
	_ *armpolicyinsights.RemediationsClientCreateOrUpdateAtManagementGroupOptions,
) (armpolicyinsights.RemediationsClientCreateOrUpdateAtManagementGroupResponse, error) {
	if c.f.remediationErr != nil {
		return armpolicyinsights.RemediationsClientCreateOrUpdateAtManagementGroupResponse{}, c.f.remediationErr
	}

	r.ID = to.Ptr("/providers/Microsoft.Management/managementGroups/" + mg + "/providers/Microsoft.PolicyInsights/remediations/" + name)
	r.Name = to.Ptr(name)
	c.f.remediations[name] = r

	return armpolicyinsights.RemediationsClientCreateOrUpdateAtManagementGroupResponse{Remediation: r}, nil
}

// fakeClock advances only when slept on.
type fakeClock struct {
	now    time.Time
	sleeps int
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 6, 1, 22, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.sleeps++
	c.now = c.now.Add(d)

	return nil
}

// testPlan returns the plan of the end-to-end scenario: one weekly Windows schedule with one
// dynamic scope over two subscriptions.
func testPlan() *aumlib.Plan {
	ds, err := aumlib.NewDynamicScope([]string{testSubA, testSubB}, aumlib.ScopeFilter{
		Tags:        map[string][]string{"Environment": {"Production"}},
		TagOperator: aumlib.TagOperatorAny,
	})
	if err != nil {
		panic(err)
	}

	rec, err := aumlib.ParseRecurrence("Week Saturday")
	if err != nil {
		panic(err)
	}

	classifications, err := aumlib.ParseClassifications(aumlib.OsTypeWindows, []string{"Critical", "Security"})
	if err != nil {
		panic(err)
	}

	return &aumlib.Plan{
		Target: aumlib.Target{
			ManagementGroupID: testMG,
			SubscriptionID:    testHubSub,
			ResourceGroup:     testRG,
			Location:          testLocation,
		},
		Cloud:        "public",
		RequiredRole: "Contributor",
		Providers: aumlib.ProviderRegistration{
			Namespaces: []string{"Microsoft.Maintenance", "Microsoft.PolicyInsights"},
			Interval:   10 * time.Second,
			Timeout:    time.Minute,
		},
		Policies: aumlib.PolicyDefinitions{
			PeriodicAssessment: "59efceea-0c96-497e-a4a1-4eb2290dac15",
			Prerequisite: map[aumlib.OsType]string{
				aumlib.OsTypeWindows: "9905ca54-1471-49c6-8291-7582c04cd4d4",
				aumlib.OsTypeLinux:   "9905ca54-1471-49c6-8291-7582c04cd4d4",
			},
			ScheduleLink: "ba0df93e-e4ac-479a-aac2-134bbae39a1a",
		},
		Schedules: []*aumlib.Schedule{{
			Name: "Patch-Win-Sat",
			Settings: &aumlib.InGuestPatch{
				Reboot: aumlib.RebootIfRequired,
				OS:     &aumlib.WindowsPatch{Classifications: classifications},
			},
			Recurrence: rec,
			Window: aumlib.MaintenanceWindow{
				StartDateTime: "2024-06-01 22:00",
				Duration:      "03:00",
				TimeZone:      "UTC",
			},
			DynamicScopes: []*aumlib.DynamicScope{ds},
		}},
	}
}
