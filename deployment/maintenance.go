// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package deployment

import (
	"context"
	"errors"
	"fmt"

	"github.com/Azure/aumlib"
	"github.com/Azure/aumlib/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/maintenance/armmaintenance"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armresources"
	"github.com/rs/zerolog"
)

const (
	maintenanceNamespace     = "Microsoft.Maintenance"
	inGuestPatchModeProperty = "InGuestPatchMode"
	inGuestPatchModeUser     = "User"
	resourceGroupIDFmt       = "/subscriptions/%s/resourceGroups/%s"
)

// MaintenanceConfigProvisioner creates one maintenance configuration per schedule in the target
// resource group. The schedule name is the idempotency key.
type MaintenanceConfigProvisioner struct {
	clients Clients
	log     zerolog.Logger
}

// NewMaintenanceConfigProvisioner creates a MaintenanceConfigProvisioner.
func NewMaintenanceConfigProvisioner(clients Clients, log zerolog.Logger) *MaintenanceConfigProvisioner {
	return &MaintenanceConfigProvisioner{clients: clients, log: log}
}

// Provision ensures the resource group and the maintenance configurations exist and records
// each configuration id on its schedule.
// A missing resource group that may not be created is a *aumlib.PreconditionError.
// Any other failure is returned as an error and stops the run.
func (m *MaintenanceConfigProvisioner) Provision(ctx context.Context, plan *aumlib.Plan) ([]Result, error) {
	if err := m.ensureResourceGroup(ctx, plan); err != nil {
		return nil, err
	}

	client, err := m.clients.MaintenanceConfigurations(plan.Target.SubscriptionID)
	if err != nil {
		return nil, fmt.Errorf("deployment.MaintenanceConfigProvisioner.Provision: could not create client: %w", err)
	}

	results := make([]Result, 0, len(plan.Schedules))

	for _, s := range plan.Schedules {
		res, err := m.provision(ctx, client, plan, s)
		if err != nil {
			return results, aumlib.NewItemOperationError(string(PhaseMaintenance), s.Name, err)
		}

		results = append(results, res)
	}

	return results, nil
}

func (m *MaintenanceConfigProvisioner) ensureResourceGroup(ctx context.Context, plan *aumlib.Plan) error {
	t := plan.Target
	rgID := fmt.Sprintf(resourceGroupIDFmt, t.SubscriptionID, t.ResourceGroup)

	client, err := m.clients.ResourceGroups(t.SubscriptionID)
	if err != nil {
		return fmt.Errorf("deployment.MaintenanceConfigProvisioner: could not create resource groups client: %w", err)
	}

	resp, err := client.CheckExistence(ctx, t.ResourceGroup, nil)
	if err != nil {
		return fmt.Errorf("deployment.MaintenanceConfigProvisioner: checking resource group `%s`: %w", rgID, err)
	}

	if resp.Success {
		return nil
	}

	if !plan.CreateResourceGroup {
		return aumlib.NewPreconditionError(rgID, "resource group does not exist and createResourceGroup is false", nil)
	}

	if _, err := client.CreateOrUpdate(ctx, t.ResourceGroup, armresources.ResourceGroup{
		Location: to.Ptr(t.Location),
	}, nil); err != nil {
		return aumlib.NewPreconditionError(rgID, "resource group could not be created", err)
	}

	m.log.Info().Str("item", rgID).Msg("created resource group")

	return nil
}

func (m *MaintenanceConfigProvisioner) provision(
	ctx context.Context,
	client MaintenanceConfigurationsClient,
	plan *aumlib.Plan,
	s *aumlib.Schedule,
) (Result, error) {
	if err := checkSchedule(s); err != nil {
		return Result{}, err
	}

	rg := plan.Target.ResourceGroup

	existing, err := client.Get(ctx, rg, s.Name, nil)
	if err == nil {
		id := to.ValOrZero(existing.ID)
		if id == "" {
			id = plan.Target.MaintenanceConfigurationID(s.Name)
		}

		if err := s.ResolveConfigID(id); err != nil {
			return Result{}, err
		}

		m.log.Debug().Str("item", s.Name).Msg("maintenance configuration exists")

		return succeeded(PhaseMaintenance, s.Name, id, OutcomeExisting), nil
	}

	if !isNotFound(err) {
		return Result{}, err
	}

	body, err := newMaintenanceConfiguration(plan.Target.Location, s)
	if err != nil {
		return Result{}, err
	}

	created, err := client.CreateOrUpdate(ctx, rg, s.Name, body, nil)
	if err != nil {
		return Result{}, err
	}

	id := to.ValOrZero(created.ID)
	if id == "" {
		id = plan.Target.MaintenanceConfigurationID(s.Name)
	}

	if err := s.ResolveConfigID(id); err != nil {
		return Result{}, err
	}

	m.log.Info().Str("item", s.Name).Str("scope", string(s.MaintenanceScope())).Msg("created maintenance configuration")

	return succeeded(PhaseMaintenance, s.Name, id, OutcomeCreated), nil
}

var (
	ErrNoScopeSettings = errors.New("schedule has no maintenance scope settings")
	ErrNoOSSettings    = errors.New("in-guest patch schedule has no operating system settings")
)

// checkSchedule rejects schedules that were not built by the normalizer and miss a variant.
func checkSchedule(s *aumlib.Schedule) error {
	if s.Settings == nil {
		return ErrNoScopeSettings
	}

	if p, ok := s.InGuestPatch(); ok && p.OsType() == "" {
		return ErrNoOSSettings
	}

	return nil
}

// newMaintenanceConfiguration builds the creation request for a schedule.
func newMaintenanceConfiguration(location string, s *aumlib.Schedule) (armmaintenance.Configuration, error) {
	scope, err := maintenanceScope(s.MaintenanceScope())
	if err != nil {
		return armmaintenance.Configuration{}, err
	}

	props := &armmaintenance.ConfigurationProperties{
		MaintenanceScope: to.Ptr(scope),
		Namespace:        to.Ptr(maintenanceNamespace),
		Visibility:       to.Ptr(armmaintenance.VisibilityCustom),
		MaintenanceWindow: &armmaintenance.Window{
			StartDateTime: to.Ptr(s.Window.StartDateTime),
			Duration:      to.Ptr(s.Window.Duration),
			TimeZone:      to.Ptr(s.Window.TimeZone),
			RecurEvery:    to.Ptr(s.Recurrence.RecurEvery()),
		},
	}

	if s.Window.ExpirationDateTime != "" {
		props.MaintenanceWindow.ExpirationDateTime = to.Ptr(s.Window.ExpirationDateTime)
	}

	if p, ok := s.InGuestPatch(); ok {
		props.ExtensionProperties = map[string]*string{inGuestPatchModeProperty: to.Ptr(inGuestPatchModeUser)}
		props.InstallPatches = installPatches(p)
	}

	return armmaintenance.Configuration{
		Location:   to.Ptr(location),
		Properties: props,
	}, nil
}

func installPatches(p *aumlib.InGuestPatch) *armmaintenance.InputPatchConfiguration {
	res := &armmaintenance.InputPatchConfiguration{
		RebootSetting: to.Ptr(armmaintenance.RebootOptions(p.Reboot)),
		PreTasks:      tasks(p.PreTask),
		PostTasks:     tasks(p.PostTask),
	}

	switch patch := p.OS.(type) {
	case *aumlib.WindowsPatch:
		res.WindowsParameters = &armmaintenance.InputWindowsParameters{
			ClassificationsToInclude:  to.StringSliceOf(patch.PatchClassifications()),
			KbNumbersToInclude:        to.SliceOfPtrs(patch.KbNumbersToInclude...),
			KbNumbersToExclude:        to.SliceOfPtrs(patch.KbNumbersToExclude...),
			ExcludeKbsRequiringReboot: to.Ptr(patch.ExcludeKbsRequiringReboot),
		}
	case *aumlib.LinuxPatch:
		res.LinuxParameters = &armmaintenance.InputLinuxParameters{
			ClassificationsToInclude:  to.StringSliceOf(patch.PatchClassifications()),
			PackageNameMasksToInclude: to.SliceOfPtrs(patch.PackageNameMasksToInclude...),
			PackageNameMasksToExclude: to.SliceOfPtrs(patch.PackageNameMasksToExclude...),
		}
	}

	return res
}

func tasks(t *aumlib.TaskReference) []*armmaintenance.TaskProperties {
	if t == nil {
		return nil
	}

	return []*armmaintenance.TaskProperties{{
		Source:     to.Ptr(t.Source),
		Parameters: to.MapOfPtrs(t.Parameters),
		TaskScope:  to.Ptr(armmaintenance.TaskScopeGlobal),
	}}
}

func maintenanceScope(s aumlib.MaintenanceScope) (armmaintenance.MaintenanceScope, error) {
	switch s {
	case aumlib.MaintenanceScopeInGuestPatch:
		return armmaintenance.MaintenanceScopeInGuestPatch, nil
	case aumlib.MaintenanceScopeHost:
		return armmaintenance.MaintenanceScopeHost, nil
	case aumlib.MaintenanceScopeOSImage:
		return armmaintenance.MaintenanceScopeOSImage, nil
	case aumlib.MaintenanceScopeResource:
		return armmaintenance.MaintenanceScopeResource, nil
	default:
		return "", fmt.Errorf("unsupported maintenance scope `%s`", s)
	}
}
