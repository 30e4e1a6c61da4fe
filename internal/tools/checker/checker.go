// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

// Package checker runs a list of named validation checks and aggregates their failures.
package checker

import (
	"fmt"
	"io"

	"github.com/hashicorp/go-multierror"
)

// Validator is a struct that holds a list of checks to be performed.
type Validator struct {
	checks []ValidatorCheck
	out    io.Writer // progress output, nil suppresses check start/finish messages
}

// ValidatorCheck is a struct that holds the name and function of a check to be performed.
// The function should return an error if the check fails.
// Use closures to capture the input of the check.
type ValidatorCheck struct {
	name string
	f    ValidateFunc
}

// NewValidatorCheck creates a new ValidatorCheck with the given name and function.
func NewValidatorCheck(name string, f ValidateFunc) ValidatorCheck {
	return ValidatorCheck{
		name: name,
		f:    f,
	}
}

// Name returns the name of the check.
func (c ValidatorCheck) Name() string {
	return c.name
}

// ValidateFunc is a function type that returns an error if the validation fails.
type ValidateFunc func() error

// NewValidator creates a new Validator with the given checks, which writes check start/finish
// messages to out.
func NewValidator(out io.Writer, c ...ValidatorCheck) Validator {
	return Validator{
		checks: c,
		out:    out,
	}
}

// NewValidatorQuiet creates a new Validator with the given checks, which suppresses check start/finish messages.
func NewValidatorQuiet(c ...ValidatorCheck) Validator {
	return Validator{
		checks: c,
	}
}

// Validate runs all the checks. Every check runs, even after a failure, and all failures are
// returned as a *multierror.Error.
func (v Validator) Validate() error {
	var errs error

	for _, c := range v.checks {
		if v.out != nil {
			fmt.Fprintf(v.out, "==> Starting check: %s\n", c.Name()) // nolint: errcheck
		}

		if err := c.f(); err != nil {
			errs = multierror.Append(errs, err)
		}

		if v.out != nil {
			fmt.Fprintf(v.out, "==> Finished check: %s\n", c.Name()) // nolint: errcheck
		}
	}

	return errs
}
