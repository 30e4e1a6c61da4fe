// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

// Package config builds a normalized aumlib.Plan from either a structured configuration document
// (YAML or JSON) or values collected interactively.
//
// Normalization is a pure transform. It validates every required field, fills documented defaults
// and reports all problems at once as ValidationErrors, before any remote call is made.
//
// A minimal document:
//
//	managementGroup: contoso
//	subscription: 00000000-0000-0000-0000-000000000000
//	resourceGroup: rg-update-manager
//	location: westeurope
//	schedules:
//	  - name: Patch-Win-Sat
//	    maintenanceScope: InGuestPatch
//	    osType: Windows
//	    classifications: [Critical, Security]
//	    rebootSetting: IfRequired
//	    recurrence: Week Saturday
//	    startDateTime: "2024-01-06 22:00"
//	    duration: "03:00"
//	    dynamicScopes:
//	      - subscriptions: [00000000-0000-0000-0000-000000000000]
//	        tags:
//	          Environment: [Production]
package config
