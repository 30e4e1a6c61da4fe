// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package aumlib

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/uuid"
)

// TagOperator controls how multiple tag predicates of a dynamic scope combine.
type TagOperator string

const (
	TagOperatorAny TagOperator = "Any"
	TagOperatorAll TagOperator = "All"
)

// ParseTagOperator parses s case-insensitively. An empty value yields TagOperatorAny.
func ParseTagOperator(s string) (TagOperator, error) {
	switch {
	case strings.TrimSpace(s) == "", strings.EqualFold(s, string(TagOperatorAny)):
		return TagOperatorAny, nil
	case strings.EqualFold(s, string(TagOperatorAll)):
		return TagOperatorAll, nil
	}

	return "", fmt.Errorf("unknown tag operator `%s`, expected Any or All", s)
}

// ErrNoSubscriptions is returned when a dynamic scope is built without subscriptions.
var ErrNoSubscriptions = errors.New("dynamic scope requires at least one subscription")

// ScopeFilter holds the optional inclusion filters of a dynamic scope. Empty fields are unfiltered.
type ScopeFilter struct {
	ResourceGroups []string
	Locations      []string
	OsTypes        []OsType
	Tags           map[string][]string // tag key to acceptable values
	TagOperator    TagOperator
}

// DynamicScope is a cross-subscription targeting rule attached to a Schedule.
// Build it with NewDynamicScope, the subscription list is never empty.
type DynamicScope struct {
	ScopeFilter
	subscriptions []string
}

// Resource is the subset of a virtual machine's properties that dynamic scope filters evaluate.
type Resource struct {
	SubscriptionID string
	ResourceGroup  string
	Location       string
	OsType         OsType
	Tags           map[string]string
}

// NewDynamicScope creates a dynamic scope for the given subscriptions.
// Subscriptions may be given as GUIDs or as `/subscriptions/{id}` resource ids, duplicates are removed
// and the first-seen order is kept. An empty tag operator defaults to TagOperatorAny.
func NewDynamicScope(subscriptions []string, filter ScopeFilter) (*DynamicScope, error) {
	seen := mapset.NewThreadUnsafeSet[string]()
	subs := make([]string, 0, len(subscriptions))

	for _, s := range subscriptions {
		id, err := normalizeSubscriptionID(s)
		if err != nil {
			return nil, err
		}

		if seen.Add(id) {
			subs = append(subs, id)
		}
	}

	if len(subs) == 0 {
		return nil, ErrNoSubscriptions
	}

	if filter.TagOperator == "" {
		filter.TagOperator = TagOperatorAny
	}

	return &DynamicScope{
		ScopeFilter:   filter,
		subscriptions: subs,
	}, nil
}

// Subscriptions returns a copy of the subscription ids the scope targets.
func (d *DynamicScope) Subscriptions() []string {
	return slices.Clone(d.subscriptions)
}

// Matches reports whether the resource is selected by the scope.
// Resource group, location, OS and tag key comparisons are case-insensitive, tag values are exact.
// Locations compare without spaces, so `West Europe` matches `westeurope`.
func (d *DynamicScope) Matches(r Resource) bool {
	if !slices.ContainsFunc(d.subscriptions, func(s string) bool { return strings.EqualFold(s, r.SubscriptionID) }) {
		return false
	}

	if len(d.ResourceGroups) > 0 && !containsFold(d.ResourceGroups, r.ResourceGroup) {
		return false
	}

	if len(d.Locations) > 0 && !slices.ContainsFunc(d.Locations, func(l string) bool {
		return normalizeLocation(l) == normalizeLocation(r.Location)
	}) {
		return false
	}

	if len(d.OsTypes) > 0 && !slices.ContainsFunc(d.OsTypes, func(o OsType) bool {
		return strings.EqualFold(string(o), string(r.OsType))
	}) {
		return false
	}

	return d.matchesTags(r.Tags)
}

func (d *DynamicScope) matchesTags(tags map[string]string) bool {
	if len(d.Tags) == 0 {
		return true
	}

	matched := 0

	for key, values := range d.Tags {
		if tagPredicate(tags, key, values) {
			if d.TagOperator != TagOperatorAll {
				return true
			}

			matched++
		}
	}

	return d.TagOperator == TagOperatorAll && matched == len(d.Tags)
}

// tagPredicate holds when the resource carries the key with one of the values.
// An empty value list only requires the key to be present.
func tagPredicate(tags map[string]string, key string, values []string) bool {
	for k, v := range tags {
		if !strings.EqualFold(k, key) {
			continue
		}

		return len(values) == 0 || slices.Contains(values, v)
	}

	return false
}

func normalizeSubscriptionID(s string) (string, error) {
	trimmed := strings.TrimSpace(s)
	if parts := strings.Split(strings.Trim(trimmed, "/"), "/"); len(parts) == 2 && strings.EqualFold(parts[0], "subscriptions") {
		trimmed = parts[1]
	}

	id, err := uuid.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("invalid subscription id `%s`: %w", s, err)
	}

	return id.String(), nil
}

func normalizeLocation(l string) string {
	return strings.ToLower(strings.ReplaceAll(l, " ", ""))
}

func containsFold(list []string, s string) bool {
	return slices.ContainsFunc(list, func(v string) bool { return strings.EqualFold(v, s) })
}
