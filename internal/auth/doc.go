// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

/*
Package auth creates the Azure Entra credential (azcore.TokenCredential) used by the Resource
Manager clients.

Usage

	settings, err := auth.SettingsFromEnv(auth.Settings{TenantID: plan.Target.TenantID})
	if err != nil {
	    // handle error
	}
	cred, err := auth.NewCredential(settings)
	if err != nil {
	    // handle error
	}
	if err := auth.Verify(ctx, cred, settings); err != nil {
	    // *aumlib.AuthenticationError
	}

# Environment variables

  - AZURE_TENANT_ID
  - AZURE_CLIENT_ID
  - AZURE_CLIENT_SECRET
  - AZURE_ENVIRONMENT, one of "public", "usgovernment" or "china"

A client id and secret pair selects client secret authentication. Without one the default
Azure credential chain is used, which covers managed identity, workload identity and the Azure CLI.
*/
package auth
