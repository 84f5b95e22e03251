// Package resolve computes the conditional values derived from a server spec.
//
// These are the only values the declarative surface does not state verbatim:
// TLS enforcement, storage autogrow, the source server reference, the restore
// timestamp, and the diagnostic-settings activation predicate. Each rule is a
// pure function over the spec so it can be tested in isolation.
package resolve

import (
	"errors"
	"fmt"
	"time"

	"github.com/flavioaiello/mysql-provisioner/pkg/spec"
)

// ErrInvalidRestoreTimestamp indicates a restore point that is not RFC 3339.
var ErrInvalidRestoreTimestamp = errors.New("restorePointInTime is not a valid RFC 3339 timestamp")

// Resolved holds every derived value. Nil pointers mean the field is omitted
// from the composed request, not sent as an empty value.
type Resolved struct {
	SSLEnforcement     spec.Toggle
	StorageAutogrow    *spec.Toggle
	SourceServerID     *string
	RestorePointInTime *time.Time
	DiagnosticsEnabled bool
}

// Resolve derives all conditional values from the spec.
// The only failure mode is an unparseable restore timestamp.
func Resolve(s *spec.ServerSpec) (*Resolved, error) {
	restorePoint, err := RestorePointInTime(s.CreateMode, s.RestorePointInTime)
	if err != nil {
		return nil, err
	}

	return &Resolved{
		SSLEnforcement:     SSLEnforcement(s.MinimalTLSVersion),
		StorageAutogrow:    StorageAutogrow(s.CreateMode, s.StorageAutogrow),
		SourceServerID:     SourceServerID(s.CreateMode, s.SourceServerResourceID),
		RestorePointInTime: restorePoint,
		DiagnosticsEnabled: DiagnosticsEnabled(s.DiagnosticSettings),
	}, nil
}

// SSLEnforcement is Disabled iff TLS enforcement is disabled entirely.
func SSLEnforcement(tls spec.TLSVersion) spec.Toggle {
	if tls == spec.TLSEnforcementDisabled {
		return spec.ToggleDisabled
	}
	return spec.ToggleEnabled
}

// StorageAutogrow maps the requested flag to a toggle, except for replicas,
// which inherit storage behavior from their source and must omit the field.
func StorageAutogrow(mode spec.CreateMode, enabled bool) *spec.Toggle {
	if mode == spec.CreateModeReplica {
		return nil
	}
	toggle := spec.ToggleDisabled
	if enabled {
		toggle = spec.ToggleEnabled
	}
	return &toggle
}

// SourceServerID passes the supplied reference through for every non-Default
// create mode and drops it otherwise, regardless of what was supplied.
func SourceServerID(mode spec.CreateMode, sourceID string) *string {
	if mode == spec.CreateModeDefault || sourceID == "" {
		return nil
	}
	return &sourceID
}

// RestorePointInTime is meaningful only for point-in-time restores.
func RestorePointInTime(mode spec.CreateMode, timestamp string) (*time.Time, error) {
	if mode != spec.CreateModePointInTimeRestore || timestamp == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, timestamp)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRestoreTimestamp, timestamp)
	}
	return &t, nil
}

// DiagnosticsEnabled reports whether the diagnostic-settings resource exists
// at all. It does iff at least one receiver destination is configured; an
// empty receivers block must not produce a resource with null fields.
func DiagnosticsEnabled(ds *spec.DiagnosticSettings) bool {
	if ds == nil {
		return false
	}
	r := ds.Receivers
	return r.WorkspaceID != "" ||
		r.EventHubAuthorizationRuleID != "" ||
		r.StorageAccountID != "" ||
		r.MarketplacePartnerID != ""
}
