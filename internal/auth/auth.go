// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/Azure/aumlib"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/cloud"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/caarlos0/env/v9"
)

// environmentToCloud maps environment names to their corresponding cloud configurations.
var environmentToCloud = map[string]cloud.Configuration{
	"public":       cloud.AzurePublic,
	"usgovernment": cloud.AzureGovernment,
	"china":        cloud.AzureChina,
}

// Settings holds the credential inputs. Zero values are filled from the environment by
// SettingsFromEnv, values supplied by the configuration document take precedence.
type Settings struct {
	TenantID     string `env:"AZURE_TENANT_ID"`
	ClientID     string `env:"AZURE_CLIENT_ID"`
	ClientSecret string `env:"AZURE_CLIENT_SECRET"`
	Environment  string `env:"AZURE_ENVIRONMENT" envDefault:"public"`
}

// SettingsFromEnv reads the environment and overlays the non-empty fields of override.
func SettingsFromEnv(override Settings) (Settings, error) {
	s := Settings{}
	if err := env.Parse(&s); err != nil {
		return Settings{}, fmt.Errorf("auth.SettingsFromEnv: parsing environment: %w", err)
	}

	if override.TenantID != "" {
		s.TenantID = override.TenantID
	}

	if override.ClientID != "" || override.ClientSecret != "" {
		s.ClientID = override.ClientID
		s.ClientSecret = override.ClientSecret
	}

	if override.Environment != "" {
		s.Environment = override.Environment
	}

	return s, nil
}

// CloudConfiguration returns the cloud configuration for the environment name.
// An empty name selects the public cloud.
func CloudConfiguration(name string) (cloud.Configuration, error) {
	if name == "" {
		return cloud.AzurePublic, nil
	}

	cfg, ok := environmentToCloud[strings.ToLower(name)]
	if !ok {
		return cloud.Configuration{}, fmt.Errorf("unknown cloud environment `%s`, expected one of public, usgovernment, china", name)
	}

	return cfg, nil
}

// NewCredential creates a token credential. A client id and secret pair selects a service principal,
// otherwise the default Azure credential chain is used.
func NewCredential(s Settings) (azcore.TokenCredential, error) {
	cld, err := CloudConfiguration(s.Environment)
	if err != nil {
		return nil, aumlib.NewValidationError("cloud", err.Error(), nil)
	}

	opts := azcore.ClientOptions{Cloud: cld}

	if s.ClientID != "" && s.ClientSecret != "" {
		if s.TenantID == "" {
			return nil, aumlib.NewValidationError("tenant", "a tenant is required for client secret authentication", nil)
		}

		cred, err := azidentity.NewClientSecretCredential(s.TenantID, s.ClientID, s.ClientSecret,
			&azidentity.ClientSecretCredentialOptions{ClientOptions: opts})
		if err != nil {
			return nil, aumlib.NewAuthenticationError(s.TenantID, err)
		}

		return cred, nil
	}

	cred, err := azidentity.NewDefaultAzureCredential(&azidentity.DefaultAzureCredentialOptions{
		ClientOptions: opts,
		TenantID:      s.TenantID,
	})
	if err != nil {
		return nil, aumlib.NewAuthenticationError(s.TenantID, err)
	}

	return cred, nil
}

// Verify acquires a Resource Manager token so authentication problems surface before any
// remote mutation is attempted.
func Verify(ctx context.Context, cred azcore.TokenCredential, s Settings) error {
	cld, err := CloudConfiguration(s.Environment)
	if err != nil {
		return aumlib.NewValidationError("cloud", err.Error(), nil)
	}

	if _, err := cred.GetToken(ctx, policy.TokenRequestOptions{Scopes: []string{ResourceManagerScope(cld)}}); err != nil {
		return aumlib.NewAuthenticationError(s.TenantID, err)
	}

	return nil
}

// ResourceManagerScope returns the token scope of the Resource Manager endpoint of the cloud.
func ResourceManagerScope(cld cloud.Configuration) string {
	audience := cloud.AzurePublic.Services[cloud.ResourceManager].Audience
	if svc, ok := cld.Services[cloud.ResourceManager]; ok && svc.Audience != "" {
		audience = svc.Audience
	}

	return strings.TrimSuffix(audience, "/") + "/.default"
}

// ClientOptions returns the ARM client options for the cloud environment.
func ClientOptions(s Settings) (*arm.ClientOptions, error) {
	cld, err := CloudConfiguration(s.Environment)
	if err != nil {
		return nil, aumlib.NewValidationError("cloud", err.Error(), nil)
	}

	return &arm.ClientOptions{ClientOptions: azcore.ClientOptions{Cloud: cld}}, nil
}
