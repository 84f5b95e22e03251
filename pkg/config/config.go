// Package config provides provisioner configuration with validation.
//
// All inputs are validated at the boundary (fail-fast) so a misconfigured
// run never reaches the control plane.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// SubmitMode defines whether composed requests are actually submitted.
type SubmitMode string

const (
	// ModeObserve composes and prints the plan without submitting.
	ModeObserve SubmitMode = "observe"
	// ModeApply submits the composed requests to the control plane.
	ModeApply SubmitMode = "apply"
)

// Configuration constants with documented bounds.
const (
	DefaultSubmitTimeout       = 1800 * time.Second
	MinSubmitTimeout           = 60 * time.Second
	MaxSubmitTimeout           = 7200 * time.Second
	DefaultMaxAttempts         = 3
	MaxMaxAttempts             = 10
	DefaultBackoffSeconds      = 5
	MaxSpecFileSizeBytes       = 1024 * 1024 // 1MB
	MaxResourceGroupNameLength = 90
)

// Input validation patterns.
var (
	// ValidSubscriptionIDPattern matches valid Azure subscription IDs.
	ValidSubscriptionIDPattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)
	// ValidLocationPattern matches valid Azure locations.
	ValidLocationPattern = regexp.MustCompile(`^[a-z]{2,}[a-z0-9]*$`)
)

// Configuration errors.
var (
	ErrMissingSubscriptionID = errors.New("AZURE_SUBSCRIPTION_ID is required")
	ErrInvalidSubscriptionID = errors.New("AZURE_SUBSCRIPTION_ID must be a valid GUID")
	ErrMissingResourceGroup  = errors.New("RESOURCE_GROUP_NAME is required")
	ErrResourceGroupTooLong  = errors.New("RESOURCE_GROUP_NAME exceeds maximum length")
	ErrMissingLocation       = errors.New("AZURE_LOCATION is required")
	ErrInvalidLocation       = errors.New("AZURE_LOCATION must be a valid Azure region")
	ErrInvalidMode           = errors.New("SUBMIT_MODE must be observe or apply")
	ErrInvalidSubmitTimeout  = errors.New("SUBMIT_TIMEOUT_SECONDS out of valid range")
	ErrInvalidMaxAttempts    = errors.New("MAX_SUBMIT_ATTEMPTS out of valid range")
)

// wrapErrWithValue wraps an error with an invalid value for context.
func wrapErrWithValue(err error, value string) error {
	return fmt.Errorf("%w: %s", err, value)
}

// Config holds provisioner configuration loaded from environment variables.
type Config struct {
	// SubscriptionID is the Azure subscription ID.
	SubscriptionID string
	// ResourceGroupName is the resource group the server is created in.
	ResourceGroupName string
	// Location is the Azure region, used when the spec does not set one.
	Location string

	// ManagedIdentityClientID selects a user-assigned managed identity.
	// Empty means system-assigned.
	ManagedIdentityClientID string

	// Mode is the submission mode.
	Mode SubmitMode

	// SubmitTimeout bounds the whole submission run.
	SubmitTimeout time.Duration
	// MaxSubmitAttempts bounds retries per request.
	MaxSubmitAttempts int
	// RetryBackoffBase is the base delay between retries.
	RetryBackoffBase time.Duration

	// DeferProviderValidation skips local cross-field consistency checks and
	// lets the control plane reject inconsistent combinations.
	DeferProviderValidation bool
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		SubscriptionID:          os.Getenv("AZURE_SUBSCRIPTION_ID"),
		ResourceGroupName:       os.Getenv("RESOURCE_GROUP_NAME"),
		Location:                os.Getenv("AZURE_LOCATION"),
		ManagedIdentityClientID: os.Getenv("AZURE_CLIENT_ID"),
		DeferProviderValidation: getEnvBool("DEFER_PROVIDER_VALIDATION", false),
	}

	mode, err := parseMode(getEnvOrDefault("SUBMIT_MODE", string(ModeApply)))
	if err != nil {
		return nil, err
	}
	cfg.Mode = mode

	cfg.SubmitTimeout = getEnvDuration("SUBMIT_TIMEOUT_SECONDS", DefaultSubmitTimeout)
	cfg.MaxSubmitAttempts = getEnvInt("MAX_SUBMIT_ATTEMPTS", DefaultMaxAttempts)
	cfg.RetryBackoffBase = getEnvDuration("RETRY_BACKOFF_SECONDS", DefaultBackoffSeconds*time.Second)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	var errs []error

	if c.SubscriptionID == "" {
		errs = append(errs, ErrMissingSubscriptionID)
	} else if !ValidSubscriptionIDPattern.MatchString(strings.ToLower(c.SubscriptionID)) {
		errs = append(errs, wrapErrWithValue(ErrInvalidSubscriptionID, c.SubscriptionID))
	}

	if c.ResourceGroupName == "" {
		errs = append(errs, ErrMissingResourceGroup)
	} else if len(c.ResourceGroupName) > MaxResourceGroupNameLength {
		errs = append(errs, fmt.Errorf("%w: %d chars", ErrResourceGroupTooLong, len(c.ResourceGroupName)))
	}

	if c.Location == "" {
		errs = append(errs, ErrMissingLocation)
	} else if !ValidLocationPattern.MatchString(strings.ToLower(c.Location)) {
		errs = append(errs, wrapErrWithValue(ErrInvalidLocation, c.Location))
	}

	if c.SubmitTimeout < MinSubmitTimeout || c.SubmitTimeout > MaxSubmitTimeout {
		errs = append(errs, fmt.Errorf("%w: must be between %v and %v",
			ErrInvalidSubmitTimeout, MinSubmitTimeout, MaxSubmitTimeout))
	}

	if c.MaxSubmitAttempts < 1 || c.MaxSubmitAttempts > MaxMaxAttempts {
		errs = append(errs, fmt.Errorf("%w: must be between 1 and %d",
			ErrInvalidMaxAttempts, MaxMaxAttempts))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// parseMode parses a submit mode string.
func parseMode(s string) (SubmitMode, error) {
	switch strings.ToLower(s) {
	case string(ModeObserve):
		return ModeObserve, nil
	case string(ModeApply):
		return ModeApply, nil
	default:
		return "", wrapErrWithValue(ErrInvalidMode, s)
	}
}

// getEnvOrDefault returns the environment variable value or a default.
func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

// getEnvBool parses a boolean environment variable.
func getEnvBool(key string, defaultValue bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultValue
	}
	return b
}

// getEnvInt parses an integer environment variable.
func getEnvInt(key string, defaultValue int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue
	}
	return i
}

// getEnvDuration parses a duration from seconds environment variable.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	seconds, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue
	}
	return time.Duration(seconds) * time.Second
}
