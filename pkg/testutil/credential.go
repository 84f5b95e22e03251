package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
)

// Token validity duration.
const TokenValidityHours = 1

// ErrMockAuthFailed is returned when the credential is configured to fail.
var ErrMockAuthFailed = errors.New("mock authentication failed")

// MockCredential provides a fake implementation of azcore.TokenCredential.
// It returns fake tokens without requiring Azure connectivity and tracks
// authentication calls for test assertions. Thread-safe.
type MockCredential struct {
	mu sync.Mutex

	tokenCalls   []TokenCall
	tokenCounter int
	shouldFail   bool
}

// TokenCall records a single GetToken invocation.
type TokenCall struct {
	Scopes    []string
	Timestamp time.Time
}

// NewMockCredential creates a new mock credential.
func NewMockCredential() *MockCredential {
	return &MockCredential{tokenCalls: make([]TokenCall, 0)}
}

// TokenCallCount returns the number of GetToken calls.
func (m *MockCredential) TokenCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tokenCalls)
}

// SetFailure configures the credential to fail on the next GetToken call.
func (m *MockCredential) SetFailure(shouldFail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shouldFail = shouldFail
}

// GetToken implements azcore.TokenCredential.
func (m *MockCredential) GetToken(ctx context.Context, options policy.TokenRequestOptions) (azcore.AccessToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.tokenCalls = append(m.tokenCalls, TokenCall{
		Scopes:    options.Scopes,
		Timestamp: time.Now(),
	})

	select {
	case <-ctx.Done():
		return azcore.AccessToken{}, ctx.Err()
	default:
	}

	if m.shouldFail {
		return azcore.AccessToken{}, ErrMockAuthFailed
	}

	m.tokenCounter++
	return azcore.AccessToken{
		Token:     fmt.Sprintf("mock-token-%d", m.tokenCounter),
		ExpiresOn: time.Now().Add(TokenValidityHours * time.Hour),
	}, nil
}

// Verify interface compliance.
var _ azcore.TokenCredential = (*MockCredential)(nil)
