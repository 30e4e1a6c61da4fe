// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package deployment

import (
	"context"
	"errors"
	"fmt"

	"github.com/Azure/aumlib"
	"github.com/rs/zerolog"
)

// Pipeline runs the phases against a plan.
type Pipeline struct {
	clients Clients
	clock   Clock
	log     zerolog.Logger
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithLogger sets the logger. The default discards all output.
func WithLogger(log zerolog.Logger) PipelineOption {
	return func(p *Pipeline) {
		p.log = log
	}
}

// WithClock sets the clock used for polling and remediation timestamps.
func WithClock(c Clock) PipelineOption {
	return func(p *Pipeline) {
		p.clock = c
	}
}

// NewPipeline creates a Pipeline using the supplied clients.
func NewPipeline(clients Clients, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		clients: clients,
		clock:   RealClock(),
		log:     zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Run executes the phases in order. The plan is copied first, so resolved configuration ids are
// recorded on Summary.Plan and never on the caller's plan.
//
// The returned error is fatal: a *aumlib.PreconditionError, a *aumlib.DefinitionResolutionError or
// a failure that stopped a phase. The summary is returned in all cases and holds the results of
// the phases that ran. Item failures are only recorded in the summary, see Summary.Err.
func (p *Pipeline) Run(ctx context.Context, plan *aumlib.Plan) (*Summary, error) {
	if plan == nil {
		return nil, errors.New("deployment.Pipeline.Run: plan is nil")
	}

	snapshot, err := plan.Clone()
	if err != nil {
		return nil, fmt.Errorf("deployment.Pipeline.Run: could not copy plan: %w", err)
	}

	sum := &Summary{Plan: snapshot}

	if snapshot.Providers.Enabled {
		p.phase(PhaseProviders, func() error {
			reg := NewProviderRegistrar(p.clients, RetryPolicy{
				Interval: snapshot.Providers.Interval,
				Timeout:  snapshot.Providers.Timeout,
				Clock:    p.clock,
			}, p.log)
			sum.add(reg.Register(ctx, snapshot.Target, snapshot.Providers.Namespaces)...)

			return nil
		})
	} else {
		sum.add(skipped(PhaseProviders, snapshot.Target.ManagementGroupResourceID(), "disabled by configuration"))
	}

	err = p.phase(PhaseMaintenance, func() error {
		results, err := NewMaintenanceConfigProvisioner(p.clients, p.log).Provision(ctx, snapshot)
		sum.add(results...)

		return err
	})
	if err != nil {
		return sum, err
	}

	p.phase(PhaseScopes, func() error {
		sum.add(NewDynamicScopeBinder(p.clients, p.log).Bind(ctx, snapshot)...)
		return nil
	})

	err = p.phase(PhasePolicies, func() error {
		assignments, results, err := NewPolicyAssigner(p.clients, p.log).Assign(ctx, snapshot)
		sum.Assignments = assignments
		sum.add(results...)

		return err
	})
	if err != nil {
		return sum, err
	}

	p.phase(PhaseIdentities, func() error {
		sum.Identities = NewIdentityReporter(p.clients, p.log).Report(ctx, snapshot, sum.Assignments)
		p.log.Info().Int("count", len(sum.Identities)).Msg("managed identities require a role assignment")

		return nil
	})

	if snapshot.Remediate {
		p.phase(PhaseRemediation, func() error {
			sum.add(NewRemediationTrigger(p.clients, p.clock, p.log).Trigger(ctx, snapshot, sum.Assignments)...)
			return nil
		})
	} else {
		sum.add(skipped(PhaseRemediation, snapshot.Target.ManagementGroupResourceID(), "disabled by configuration"))
	}

	return sum, nil
}

// phase runs fn between the start and end progress lines.
func (p *Pipeline) phase(name Phase, fn func() error) error {
	p.log.Info().Str("phase", string(name)).Msg("starting phase")

	if err := fn(); err != nil {
		p.log.Error().Err(err).Str("phase", string(name)).Msg("phase failed")
		return err
	}

	p.log.Info().Str("phase", string(name)).Msg("finished phase")

	return nil
}
