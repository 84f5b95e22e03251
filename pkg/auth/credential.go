// Package auth provides control-plane authentication.
//
// The provisioner authenticates with a managed identity only. Service
// principal secrets and password-based credentials are rejected at startup:
// the target environments run this tool from CI agents and containers that
// carry a user-assigned managed identity.
package auth

import (
	"errors"
	"fmt"
	"os"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"go.uber.org/zap"
)

// ForbiddenCredentialEnvVars lists environment variables that indicate
// credential leakage. These must never be present in the environment.
var ForbiddenCredentialEnvVars = []string{
	"AZURE_CLIENT_SECRET",
	"AZURE_CLIENT_CERTIFICATE_PATH",
	"AZURE_CLIENT_CERTIFICATE_PASSWORD",
	"AZURE_USERNAME",
	"AZURE_PASSWORD",
}

// ErrSecretlessViolation indicates secretless authentication is violated.
var ErrSecretlessViolation = errors.New("secretless authentication violation")

// EnforceSecretless checks that no credential secrets are present.
// Called at startup before any SDK usage.
func EnforceSecretless() error {
	for _, envVar := range ForbiddenCredentialEnvVars {
		if os.Getenv(envVar) != "" {
			zap.L().Error("Secretless authentication violation",
				zap.String("security_event", "credential_detected"),
				zap.String("env_var", envVar),
				zap.String("action", "startup_blocked"),
			)
			return fmt.Errorf("%w: %s detected", ErrSecretlessViolation, envVar)
		}
	}
	return nil
}

// GetManagedIdentityCredential returns a ManagedIdentityCredential after
// verifying the secretless constraint. An empty clientID selects the
// system-assigned identity.
func GetManagedIdentityCredential(clientID string) (azcore.TokenCredential, error) {
	if err := EnforceSecretless(); err != nil {
		return nil, err
	}

	opts := &azidentity.ManagedIdentityCredentialOptions{}
	if clientID != "" {
		opts.ID = azidentity.ClientID(clientID)
		zap.L().Info("Using user-assigned managed identity",
			zap.String("client_id", maskClientID(clientID)),
		)
	} else {
		zap.L().Info("Using system-assigned managed identity")
	}

	cred, err := azidentity.NewManagedIdentityCredential(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create managed identity credential: %w", err)
	}
	return cred, nil
}

// maskClientID masks a client ID for logging.
func maskClientID(id string) string {
	if len(id) <= 8 {
		return "****"
	}
	return id[:8] + "..."
}
