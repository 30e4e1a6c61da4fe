// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package checker_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/Azure/aumlib/internal/tools/checker"
	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidator_Validate(t *testing.T) {
	// Test case 1: passing check
	validCheck := checker.NewValidatorCheck("ok", func() error { return nil })
	validator := checker.NewValidatorQuiet(validCheck)
	assert.NoError(t, validator.Validate())

	// Test case 2: failing checks are all reported
	errA := errors.New("a")
	errB := errors.New("b")
	validator = checker.NewValidatorQuiet(
		checker.NewValidatorCheck("a", func() error { return errA }),
		validCheck,
		checker.NewValidatorCheck("b", func() error { return errB }),
	)

	err := validator.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)

	var merr *multierror.Error
	require.ErrorAs(t, err, &merr)
	assert.Len(t, merr.Errors, 2)
}

func TestValidator_Output(t *testing.T) {
	var buf bytes.Buffer

	check := checker.NewValidatorCheck("first", func() error { return nil })
	assert.Equal(t, "first", check.Name())

	validator := checker.NewValidator(&buf, check)
	require.NoError(t, validator.Validate())
	assert.Equal(t, "==> Starting check: first\n==> Finished check: first\n", buf.String())
}
