// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package deployment

import (
	"context"
	"fmt"
	"time"

	"github.com/Azure/aumlib"
	"github.com/Azure/aumlib/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/policyinsights/armpolicyinsights"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armpolicy"
	"github.com/rs/zerolog"
)

const remediationTimestampFmt = "20060102150405"

// RemediationTrigger starts one remediation task per policy assignment at management group scope.
// Remediation fails until the reported identities hold the required role, so failures are warnings.
type RemediationTrigger struct {
	clients Clients
	clock   Clock
	log     zerolog.Logger
}

// NewRemediationTrigger creates a RemediationTrigger.
func NewRemediationTrigger(clients Clients, clock Clock, log zerolog.Logger) *RemediationTrigger {
	return &RemediationTrigger{clients: clients, clock: clock, log: log}
}

// RemediationName returns the remediation task name for an assignment at time t.
func RemediationName(assignmentName string, t time.Time) string {
	return aumlib.TruncateName(fmt.Sprintf("%s-%s", assignmentName, t.Format(remediationTimestampFmt)))
}

// Trigger starts the remediation tasks. Nil assignments are skipped.
func (r *RemediationTrigger) Trigger(ctx context.Context, plan *aumlib.Plan, assignments []*armpolicy.Assignment) []Result {
	client, err := r.clients.Remediations()
	if err != nil {
		r.log.Warn().Err(err).Msg("could not create remediation client")
		return []Result{failed(PhaseRemediation, plan.Target.ManagementGroupResourceID(), err)}
	}

	now := r.clock.Now().UTC()
	results := make([]Result, 0, len(assignments))

	for _, a := range assignments {
		if a == nil || a.Name == nil || a.ID == nil {
			continue
		}

		name := RemediationName(*a.Name, now)

		resp, err := client.CreateOrUpdateAtManagementGroup(ctx, plan.Target.ManagementGroupID, name, armpolicyinsights.Remediation{
			Properties: &armpolicyinsights.RemediationProperties{
				PolicyAssignmentID:    a.ID,
				ResourceDiscoveryMode: to.Ptr(armpolicyinsights.ResourceDiscoveryModeExistingNonCompliant),
			},
		}, nil)
		if err != nil {
			res := failed(PhaseRemediation, name, err)
			r.log.Warn().Err(res.Err).Str("item", name).Msg("remediation could not be started, check the role assignments of the reported identities")
			results = append(results, res)

			continue
		}

		r.log.Info().Str("item", name).Msg("remediation started")
		results = append(results, succeeded(PhaseRemediation, name, to.ValOrZero(resp.ID), OutcomeInitiated))
	}

	return results
}
