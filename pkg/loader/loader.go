// Package loader provides server spec loading with validation.
//
// File operations enforce size limits at the boundary so an oversized file
// never reaches the YAML parser.
package loader

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/flavioaiello/mysql-provisioner/pkg/spec"
)

// MaxSpecFileSizeBytes is the maximum size of a spec file (1MB).
const MaxSpecFileSizeBytes = 1 * 1024 * 1024

// Errors.
var (
	ErrSpecNotFound      = errors.New("spec file not found")
	ErrSpecTooLarge      = errors.New("spec file exceeds maximum size")
	ErrInvalidYAML       = errors.New("invalid YAML syntax")
	ErrInvalidSpecFormat = errors.New("spec must be a YAML mapping")
)

// LoadServerSpec loads a server spec from a YAML file and applies defaults.
//
// Both bare specs and Kubernetes-style wrappers (apiVersion/kind/spec) are
// accepted; for the latter the spec section is unwrapped.
func LoadServerSpec(path string) (*spec.ServerSpec, error) {
	data, err := readLimited(path)
	if err != nil {
		return nil, err
	}

	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidYAML, path, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSpecFormat, path)
	}

	specData := data
	if _, hasAPIVersion := raw["apiVersion"]; hasAPIVersion {
		if section, ok := raw["spec"].(map[string]interface{}); ok {
			specData, err = yaml.Marshal(section)
			if err != nil {
				return nil, fmt.Errorf("failed to marshal spec section: %w", err)
			}
		}
	}

	var s spec.ServerSpec
	if err := yaml.Unmarshal(specData, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal server spec: %w", err)
	}

	spec.ApplyDefaults(&s)
	return &s, nil
}

// readLimited reads a file after checking its size against the limit.
func readLimited(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrSpecNotFound, path)
		}
		return nil, fmt.Errorf("failed to stat spec file: %w", err)
	}

	if info.Size() > MaxSpecFileSizeBytes {
		return nil, fmt.Errorf("%w: %s (%d bytes, max %d)",
			ErrSpecTooLarge, path, info.Size(), MaxSpecFileSizeBytes)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open spec file: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, MaxSpecFileSizeBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read spec file: %w", err)
	}
	return data, nil
}
