// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package deployment

import (
	"context"
	"fmt"

	"github.com/Azure/aumlib"
	"github.com/Azure/aumlib/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/maintenance/armmaintenance"
	"github.com/rs/zerolog"
)

const scopeAssignmentNameFmt = "%s-scope-%d"

// scopeResourceTypes are the machine types a dynamic scope can select.
var scopeResourceTypes = []string{
	"Microsoft.Compute/virtualMachines",
	"Microsoft.HybridCompute/machines",
}

// DynamicScopeBinder creates one subscription level configuration assignment per
// (dynamic scope, subscription) pair of each provisioned schedule.
type DynamicScopeBinder struct {
	clients Clients
	log     zerolog.Logger
}

// NewDynamicScopeBinder creates a DynamicScopeBinder.
func NewDynamicScopeBinder(clients Clients, log zerolog.Logger) *DynamicScopeBinder {
	return &DynamicScopeBinder{clients: clients, log: log}
}

// ScopeAssignmentName returns the name of the n-th (1-based) scope assignment of a schedule.
func ScopeAssignmentName(schedule string, n int) string {
	return aumlib.TruncateName(fmt.Sprintf(scopeAssignmentNameFmt, schedule, n))
}

// Bind attempts every binding independently. A failed binding is recorded and logged,
// its siblings are still attempted. Schedules without a resolved configuration id or
// without dynamic scopes are skipped.
func (b *DynamicScopeBinder) Bind(ctx context.Context, plan *aumlib.Plan) []Result {
	var results []Result

	for _, s := range plan.Schedules {
		configID, ok := s.ResolvedConfigID()
		if !ok {
			results = append(results, skipped(PhaseScopes, s.Name, "maintenance configuration not provisioned"))
			continue
		}

		if len(s.DynamicScopes) == 0 {
			results = append(results, skipped(PhaseScopes, s.Name, "no dynamic scopes, static assignment"))
			continue
		}

		n := 0

		for _, ds := range s.DynamicScopes {
			for _, sub := range ds.Subscriptions() {
				n++
				name := ScopeAssignmentName(s.Name, n)
				item := sub + "/" + name

				res := b.bind(ctx, sub, name, item, configID, plan.Target.Location, ds)
				if res.Failed() {
					b.log.Warn().Err(res.Err).Str("item", item).Msg("scope assignment failed")
				}

				results = append(results, res)
			}
		}
	}

	return results
}

func (b *DynamicScopeBinder) bind(
	ctx context.Context,
	subscriptionID, name, item, configID, location string,
	ds *aumlib.DynamicScope,
) Result {
	client, err := b.clients.ScopeAssignments(subscriptionID)
	if err != nil {
		return failed(PhaseScopes, item, err)
	}

	existing, err := client.Get(ctx, name, nil)
	if err == nil {
		b.log.Debug().Str("item", item).Msg("scope assignment exists")
		return succeeded(PhaseScopes, item, to.ValOrZero(existing.ID), OutcomeExisting)
	}

	if !isNotFound(err) {
		return failed(PhaseScopes, item, err)
	}

	created, err := client.CreateOrUpdate(ctx, name, newScopeAssignment(configID, location, ds), nil)
	if err != nil {
		return failed(PhaseScopes, item, err)
	}

	b.log.Info().Str("item", item).Msg("created scope assignment")

	return succeeded(PhaseScopes, item, to.ValOrZero(created.ID), OutcomeCreated)
}

// newScopeAssignment translates the dynamic scope filters into the remote filter representation.
func newScopeAssignment(configID, location string, ds *aumlib.DynamicScope) armmaintenance.ConfigurationAssignment {
	filter := &armmaintenance.ConfigurationAssignmentFilterProperties{
		ResourceTypes:  to.SliceOfPtrs(scopeResourceTypes...),
		ResourceGroups: to.SliceOfPtrs(ds.ResourceGroups...),
		Locations:      to.SliceOfPtrs(ds.Locations...),
		OSTypes:        to.StringSliceOf(ds.OsTypes),
	}

	if len(ds.Tags) > 0 {
		tags := make(map[string][]*string, len(ds.Tags))
		for k, v := range ds.Tags {
			tags[k] = to.SliceOfPtrs(v...)
			if tags[k] == nil {
				tags[k] = []*string{}
			}
		}

		filter.TagSettings = &armmaintenance.TagSettingsProperties{
			Tags:           tags,
			FilterOperator: to.Ptr(tagOperator(ds.TagOperator)),
		}
	}

	return armmaintenance.ConfigurationAssignment{
		Location: to.Ptr(location),
		Properties: &armmaintenance.ConfigurationAssignmentProperties{
			MaintenanceConfigurationID: to.Ptr(configID),
			Filter:                     filter,
		},
	}
}

func tagOperator(op aumlib.TagOperator) armmaintenance.TagOperators {
	if op == aumlib.TagOperatorAll {
		return armmaintenance.TagOperatorsAll
	}

	return armmaintenance.TagOperatorsAny
}
