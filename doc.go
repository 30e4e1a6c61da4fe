// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

// Package aumlib provides the data structures needed to configure Azure Update Manager
// across a management group hierarchy.
// It contains the canonical model of maintenance schedules and the dynamic scopes that
// bind them to virtual machines across subscription boundaries.
//
// The types in this package are value objects, they are built fresh for each run by the
// config package and consumed by the deployment package, which drives the Azure APIs.
// Nothing is persisted locally between runs.
package aumlib
