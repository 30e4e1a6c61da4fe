// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package deployment

import (
	"context"
	"errors"
	"strings"

	"github.com/Azure/aumlib"
	"github.com/Azure/aumlib/to"
	"github.com/rs/zerolog"
)

const providerStateRegistered = "Registered"

// ProviderRegistrar registers resource providers on every subscription beneath a management group.
type ProviderRegistrar struct {
	clients Clients
	policy  RetryPolicy
	log     zerolog.Logger
}

// NewProviderRegistrar creates a ProviderRegistrar polling with the given policy.
func NewProviderRegistrar(clients Clients, policy RetryPolicy, log zerolog.Logger) *ProviderRegistrar {
	return &ProviderRegistrar{clients: clients, policy: policy, log: log}
}

type providerPair struct {
	subscriptionID string
	namespace      string
}

func (p providerPair) String() string {
	return p.subscriptionID + "/" + p.namespace
}

// Register returns one result per (subscription, namespace) pair:
// Registered when it already was, Initiated when registration was requested and confirmed,
// Pending when it was not confirmed before the timeout and Failed otherwise.
// Registration completes asynchronously, so nothing here is fatal.
func (r *ProviderRegistrar) Register(ctx context.Context, target aumlib.Target, namespaces []string) []Result {
	lister, err := r.clients.Subscriptions()
	if err == nil {
		var subs []string

		subs, err = lister.ListSubscriptions(ctx, target.ManagementGroupID)
		if err == nil {
			if len(subs) == 0 {
				r.log.Warn().Str("item", target.ManagementGroupID).Msg(noSubscriptionsDetail)
				return []Result{skipped(PhaseProviders, target.ManagementGroupResourceID(), noSubscriptionsDetail)}
			}

			return r.register(ctx, subs, namespaces)
		}
	}

	r.log.Warn().Err(err).Str("item", target.ManagementGroupID).Msg("could not list subscriptions")

	return []Result{failed(PhaseProviders, target.ManagementGroupResourceID(), err)}
}

const noSubscriptionsDetail = "no subscriptions under management group"

func (r *ProviderRegistrar) register(ctx context.Context, subs, namespaces []string) []Result {
	results := make(map[providerPair]Result)
	order := make([]providerPair, 0, len(subs)*len(namespaces))
	pending := make([]providerPair, 0)

	for _, sub := range subs {
		for _, ns := range namespaces {
			pair := providerPair{subscriptionID: sub, namespace: ns}
			order = append(order, pair)

			res := r.registerPair(ctx, pair)
			if res.Failed() {
				r.log.Warn().Err(res.Err).Str("item", pair.String()).Msg("provider registration failed")
			}

			if res.Outcome == OutcomeInitiated {
				pending = append(pending, pair)
			}

			results[pair] = res
		}
	}

	if len(pending) > 0 {
		pending = r.wait(ctx, pending)
	}

	for _, pair := range pending {
		res := results[pair]
		res.Outcome = OutcomePending
		res.Detail = "registration not confirmed before timeout"
		results[pair] = res

		r.log.Warn().Str("item", pair.String()).Msg("provider registration still in progress")
	}

	out := make([]Result, len(order))
	for i, pair := range order {
		out[i] = results[pair]
	}

	return out
}

func (r *ProviderRegistrar) registerPair(ctx context.Context, pair providerPair) Result {
	client, err := r.clients.Providers(pair.subscriptionID)
	if err != nil {
		return failed(PhaseProviders, pair.String(), err)
	}

	resp, err := client.Get(ctx, pair.namespace, nil)
	if err != nil {
		return failed(PhaseProviders, pair.String(), err)
	}

	if registered(resp.RegistrationState) {
		r.log.Debug().Str("item", pair.String()).Msg("provider already registered")
		return succeeded(PhaseProviders, pair.String(), to.ValOrZero(resp.ID), OutcomeRegistered)
	}

	if _, err := client.Register(ctx, pair.namespace, nil); err != nil {
		return failed(PhaseProviders, pair.String(), err)
	}

	r.log.Info().Str("item", pair.String()).Msg("provider registration initiated")

	return succeeded(PhaseProviders, pair.String(), to.ValOrZero(resp.ID), OutcomeInitiated)
}

// wait polls the pending pairs and returns those still not registered.
// Status read errors leave a pair pending, they are retried on the next poll.
func (r *ProviderRegistrar) wait(ctx context.Context, pending []providerPair) []providerPair {
	err := r.policy.Poll(ctx, func(ctx context.Context) (bool, error) {
		remaining := pending[:0]

		for _, pair := range pending {
			client, err := r.clients.Providers(pair.subscriptionID)
			if err != nil {
				remaining = append(remaining, pair)
				continue
			}

			resp, err := client.Get(ctx, pair.namespace, nil)
			if err != nil || !registered(resp.RegistrationState) {
				remaining = append(remaining, pair)
				continue
			}

			r.log.Debug().Str("item", pair.String()).Msg("provider registration confirmed")
		}

		pending = remaining

		return len(pending) == 0, nil
	})

	switch {
	case err == nil:
	case errors.Is(err, ErrPollTimeout):
		r.log.Warn().Int("pending", len(pending)).Msgf("provider registration not confirmed after %s", r.policy.Timeout)
	default:
		r.log.Warn().Err(err).Int("pending", len(pending)).Msg("provider registration polling stopped")
	}

	return pending
}

func registered(state *string) bool {
	return state != nil && strings.EqualFold(*state, providerStateRegistered)
}
