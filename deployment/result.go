// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package deployment

import (
	"strings"

	"github.com/Azure/aumlib"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armpolicy"
	"github.com/hashicorp/go-multierror"
)

// Phase names a pipeline phase.
type Phase string

const (
	PhaseProviders   Phase = "provider registration"
	PhaseMaintenance Phase = "maintenance configuration"
	PhaseScopes      Phase = "scope assignment"
	PhasePolicies    Phase = "policy assignment"
	PhaseIdentities  Phase = "identity report"
	PhaseRemediation Phase = "remediation"
)

// Title returns the phase name with a leading capital, for headings.
func (p Phase) Title() string {
	if p == "" {
		return ""
	}

	return strings.ToUpper(string(p[:1])) + string(p[1:])
}

// Outcome is the status of one unit of work.
type Outcome string

const (
	OutcomeCreated    Outcome = "Created"
	OutcomeExisting   Outcome = "Existing"
	OutcomeSkipped    Outcome = "Skipped"
	OutcomeFailed     Outcome = "Failed"
	OutcomeInitiated  Outcome = "Initiated"
	OutcomePending    Outcome = "Pending"
	OutcomeRegistered Outcome = "Registered"
)

// Result is the outcome of one unit of work, such as one scope assignment.
type Result struct {
	Phase      Phase
	Item       string
	ResourceID string
	Outcome    Outcome
	// Detail explains skipped and pending outcomes.
	Detail string
	// Err is set for failed outcomes.
	Err *aumlib.ItemOperationError
}

func succeeded(phase Phase, item, resourceID string, outcome Outcome) Result {
	return Result{Phase: phase, Item: item, ResourceID: resourceID, Outcome: outcome}
}

func skipped(phase Phase, item, detail string) Result {
	return Result{Phase: phase, Item: item, Outcome: OutcomeSkipped, Detail: detail}
}

func failed(phase Phase, item string, err error) Result {
	return Result{
		Phase:   phase,
		Item:    item,
		Outcome: OutcomeFailed,
		Err:     aumlib.NewItemOperationError(string(phase), item, err),
	}
}

// Failed reports whether the unit of work failed.
func (r Result) Failed() bool {
	return r.Outcome == OutcomeFailed
}

// Reason returns the failure cause or the detail of the result.
func (r Result) Reason() string {
	if r.Err != nil {
		return r.Err.Cause()
	}

	return r.Detail
}

// Summary collects everything a run produced.
type Summary struct {
	// Plan is the run's copy of the input plan, with resolved maintenance configuration ids.
	Plan        *aumlib.Plan
	Results     []Result
	Assignments []*armpolicy.Assignment
	Identities  []Identity
}

func (s *Summary) add(results ...Result) {
	s.Results = append(s.Results, results...)
}

// Phase returns the results of one phase, in the order they were produced.
func (s *Summary) Phase(p Phase) []Result {
	var res []Result

	for _, r := range s.Results {
		if r.Phase == p {
			res = append(res, r)
		}
	}

	return res
}

// Count returns the number of results with the outcome.
func (s *Summary) Count(o Outcome) int {
	n := 0

	for _, r := range s.Results {
		if r.Outcome == o {
			n++
		}
	}

	return n
}

// Err returns the item failures of the run as one error, or nil when there are none.
// Item failures never abort a run, callers decide whether they are worth a non-zero exit.
func (s *Summary) Err() error {
	var errs *multierror.Error

	for _, r := range s.Results {
		if r.Err != nil {
			errs = multierror.Append(errs, r.Err)
		}
	}

	return errs.ErrorOrNil()
}

// ItemErrors returns the item failures of the run.
func (s *Summary) ItemErrors() []*aumlib.ItemOperationError {
	var res []*aumlib.ItemOperationError

	for _, r := range s.Results {
		if r.Err != nil {
			res = append(res, r.Err)
		}
	}

	return res
}
