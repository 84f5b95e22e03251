package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func clearForbiddenEnv(t *testing.T) {
	t.Helper()
	for _, envVar := range ForbiddenCredentialEnvVars {
		t.Setenv(envVar, "")
	}
}

func TestEnforceSecretlessClean(t *testing.T) {
	clearForbiddenEnv(t)
	assert.NoError(t, EnforceSecretless())
}

func TestEnforceSecretlessDetectsSecrets(t *testing.T) {
	for _, envVar := range ForbiddenCredentialEnvVars {
		t.Run(envVar, func(t *testing.T) {
			clearForbiddenEnv(t)
			t.Setenv(envVar, "leaked-value")

			err := EnforceSecretless()
			assert.ErrorIs(t, err, ErrSecretlessViolation)
			assert.Contains(t, err.Error(), envVar)
		})
	}
}

func TestGetManagedIdentityCredentialRejectsSecrets(t *testing.T) {
	clearForbiddenEnv(t)
	t.Setenv("AZURE_CLIENT_SECRET", "leaked-value")

	_, err := GetManagedIdentityCredential("")
	assert.ErrorIs(t, err, ErrSecretlessViolation)
}

func TestMaskClientID(t *testing.T) {
	tests := []struct {
		id   string
		want string
	}{
		{"", "****"},
		{"short", "****"},
		{"12345678", "****"},
		{"11111111-1111-1111-1111-111111111111", "11111111..."},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, maskClientID(tt.id), "id=%q", tt.id)
	}
}
