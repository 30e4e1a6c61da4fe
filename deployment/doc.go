// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

// Package deployment drives Azure Update Manager resources to the state described by an aumlib.Plan.
//
// A Pipeline runs the phases in order: provider registration (optional), maintenance configuration
// provisioning, dynamic scope binding, policy assignment, identity reporting and remediation (optional).
// Each phase consumes identifiers produced by an earlier phase. Execution is sequential and every
// subscription scoped call receives its subscription explicitly through the Clients factory.
package deployment
