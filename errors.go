// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package aumlib

import (
	"fmt"
	"strings"
)

var _ error = &ValidationError{}
var _ error = &AuthenticationError{}
var _ error = &PreconditionError{}
var _ error = &DefinitionResolutionError{}
var _ error = &ItemOperationError{}

// ValidationError represents malformed or incomplete configuration input.
// It is raised before any remote call is made.
type ValidationError struct {
	Field        string
	Reason       string
	wrappedError error
}

// NewValidationError creates a new ValidationError for the given field.
func NewValidationError(field, reason string, innerError error) *ValidationError {
	return &ValidationError{
		Field:        field,
		Reason:       reason,
		wrappedError: innerError,
	}
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("ValidationError: `%s`: %s", e.Field, e.Reason)
	if e.wrappedError != nil {
		msg += fmt.Sprintf(". InnerError: %v", e.wrappedError)
	}

	return msg
}

func (e *ValidationError) Unwrap() error {
	return e.wrappedError
}

// AuthenticationError represents a failure to establish an authenticated session.
type AuthenticationError struct {
	TenantID     string
	wrappedError error
}

// NewAuthenticationError creates a new AuthenticationError.
func NewAuthenticationError(tenantID string, innerError error) *AuthenticationError {
	return &AuthenticationError{
		TenantID:     tenantID,
		wrappedError: innerError,
	}
}

// Error implements the error interface.
func (e *AuthenticationError) Error() string {
	tenant := e.TenantID
	if tenant == "" {
		tenant = "<default>"
	}

	return fmt.Sprintf("AuthenticationError: could not authenticate to tenant `%s`. InnerError: %v", tenant, e.wrappedError)
}

func (e *AuthenticationError) Unwrap() error {
	return e.wrappedError
}

// PreconditionError represents a required remote resource that is absent and may not be created.
type PreconditionError struct {
	ResourceID   string
	Reason       string
	wrappedError error
}

// NewPreconditionError creates a new PreconditionError.
func NewPreconditionError(resourceID, reason string, innerError error) *PreconditionError {
	return &PreconditionError{
		ResourceID:   resourceID,
		Reason:       reason,
		wrappedError: innerError,
	}
}

// Error implements the error interface.
func (e *PreconditionError) Error() string {
	msg := fmt.Sprintf("PreconditionError: `%s`: %s", e.ResourceID, e.Reason)
	if e.wrappedError != nil {
		msg += fmt.Sprintf(". InnerError: %v", e.wrappedError)
	}

	return msg
}

func (e *PreconditionError) Unwrap() error {
	return e.wrappedError
}

// DefinitionResolutionError is returned when a policy definition referenced by a binding
// cannot be found in the target cloud environment.
type DefinitionResolutionError struct {
	DefinitionID string
	Purpose      string
	wrappedError error
}

// NewDefinitionResolutionError creates a new DefinitionResolutionError.
func NewDefinitionResolutionError(definitionID, purpose string, innerError error) *DefinitionResolutionError {
	return &DefinitionResolutionError{
		DefinitionID: definitionID,
		Purpose:      purpose,
		wrappedError: innerError,
	}
}

// Error implements the error interface.
func (e *DefinitionResolutionError) Error() string {
	return fmt.Sprintf(
		"DefinitionResolutionError: policy definition `%s` (%s) could not be resolved in the current cloud environment. "+
			"The environment is misconfigured or does not support Azure Update Manager policies. InnerError: %v",
		e.DefinitionID,
		e.Purpose,
		e.wrappedError,
	)
}

func (e *DefinitionResolutionError) Unwrap() error {
	return e.wrappedError
}

// ItemOperationError is a failure scoped to a single unit of work, such as one provider registration,
// one scope assignment or one remediation task. It never aborts sibling items.
type ItemOperationError struct {
	Phase        string
	Item         string
	wrappedError error
}

// NewItemOperationError creates a new ItemOperationError.
func NewItemOperationError(phase, item string, innerError error) *ItemOperationError {
	return &ItemOperationError{
		Phase:        phase,
		Item:         item,
		wrappedError: innerError,
	}
}

// Error implements the error interface.
func (e *ItemOperationError) Error() string {
	return fmt.Sprintf("ItemOperationError: %s `%s`: %v", e.Phase, e.Item, e.wrappedError)
}

func (e *ItemOperationError) Unwrap() error {
	return e.wrappedError
}

// Cause returns a single line description of the wrapped error, suitable for a status column.
func (e *ItemOperationError) Cause() string {
	if e.wrappedError == nil {
		return "unknown"
	}

	return strings.ReplaceAll(e.wrappedError.Error(), "\n", " ")
}
