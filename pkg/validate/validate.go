// Package validate performs local validation of server specs before any
// request is issued.
//
// The control plane enforces most of these rules too; checking them locally
// lets a run fail fast instead of surfacing a rejection mid-sequence. Strict
// cross-field checks (e.g. a GeoRestore without a source reference) can be
// deferred to the control plane via the checker's deferProvider switch.
package validate

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/flavioaiello/mysql-provisioner/pkg/spec"
)

// Errors.
var (
	ErrValidation            = errors.New("spec validation failed")
	ErrInvalidCreateMode     = errors.New("createMode must be Default, GeoRestore, PointInTimeRestore, or Replica")
	ErrInvalidTLSVersion     = errors.New("minimalTlsVersion must be TLS1_0, TLS1_1, TLS1_2, or TLSEnforcementDisabled")
	ErrInvalidToggle         = errors.New("value must be Enabled or Disabled")
	ErrInvalidEngineVersion  = errors.New("version must be 5.6, 5.7, or 8.0.21")
	ErrMissingSourceServer   = errors.New("sourceServerResourceId is required for this createMode")
	ErrMissingRestorePoint   = errors.New("restorePointInTime is required for PointInTimeRestore")
	ErrInvalidRestorePoint   = errors.New("restorePointInTime must be an RFC 3339 timestamp")
	ErrDuplicateFirewallRule = errors.New("firewall rule names must be unique")
	ErrInvalidPrincipalType  = errors.New("principalType must be User, Group, ServicePrincipal, Device, or ForeignGroup")
)

// Issue is a single validation finding.
type Issue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Result is the outcome of validating one spec.
type Result struct {
	Valid  bool    `json:"valid"`
	Issues []Issue `json:"issues,omitempty"`
}

// Err returns nil for a valid result and a joined error otherwise.
func (r *Result) Err() error {
	if r.Valid {
		return nil
	}
	parts := make([]string, 0, len(r.Issues))
	for _, issue := range r.Issues {
		parts = append(parts, issue.Field+": "+issue.Message)
	}
	return fmt.Errorf("%w: %s", ErrValidation, strings.Join(parts, "; "))
}

// Checker validates server specs.
type Checker struct {
	validate *validator.Validate
	logger   *zap.Logger

	// deferProvider skips cross-field consistency checks the control plane
	// would also reject, letting it be the source of truth for those.
	deferProvider bool
}

// NewChecker creates a spec checker. When deferProvider is true, cross-field
// consistency is left to the control plane to reject.
func NewChecker(deferProvider bool, logger *zap.Logger) *Checker {
	return &Checker{
		validate:      validator.New(validator.WithRequiredStructEnabled()),
		logger:        logger,
		deferProvider: deferProvider,
	}
}

// CheckServerSpec validates a spec after defaults have been applied.
func (c *Checker) CheckServerSpec(s *spec.ServerSpec) *Result {
	result := &Result{Valid: true}

	c.checkStructTags(s, result)
	c.checkEnums(s, result)
	c.checkFirewallRules(s, result)
	c.checkRoleAssignments(s, result)

	if !c.deferProvider {
		c.checkCreateModeConsistency(s, result)
	}

	if !result.Valid && c.logger != nil {
		c.logger.Warn("Spec validation failed",
			zap.String("server", s.Name),
			zap.Int("issues", len(result.Issues)),
		)
	}

	return result
}

func (c *Checker) checkStructTags(s *spec.ServerSpec, result *Result) {
	err := c.validate.Struct(s)
	if err == nil {
		return
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		addIssue(result, "", err.Error())
		return
	}
	for _, fe := range fieldErrs {
		addIssue(result, fe.Namespace(), fmt.Sprintf("failed %q constraint", fe.Tag()))
	}
}

func (c *Checker) checkEnums(s *spec.ServerSpec, result *Result) {
	if !s.CreateMode.Valid() {
		addIssue(result, "createMode", ErrInvalidCreateMode.Error())
	}
	if !s.MinimalTLSVersion.Valid() {
		addIssue(result, "minimalTlsVersion", ErrInvalidTLSVersion.Error())
	}
	if !s.PublicNetworkAccess.Valid() {
		addIssue(result, "publicNetworkAccess", ErrInvalidToggle.Error())
	}
	if !s.GeoRedundantBackup.Valid() {
		addIssue(result, "geoRedundantBackup", ErrInvalidToggle.Error())
	}
	if !s.InfrastructureEncryption.Valid() {
		addIssue(result, "infrastructureEncryption", ErrInvalidToggle.Error())
	}
	if !s.Version.Valid() {
		addIssue(result, "version", ErrInvalidEngineVersion.Error())
	}
}

func (c *Checker) checkFirewallRules(s *spec.ServerSpec, result *Result) {
	seen := make(map[string]bool, len(s.FirewallRules))
	for _, rule := range s.FirewallRules {
		if seen[rule.Name] {
			addIssue(result, "firewallRules", fmt.Sprintf("%s: %q", ErrDuplicateFirewallRule.Error(), rule.Name))
		}
		seen[rule.Name] = true
	}
}

func (c *Checker) checkRoleAssignments(s *spec.ServerSpec, result *Result) {
	for i, ra := range s.RoleAssignments {
		if ra.PrincipalType == "" {
			continue
		}
		switch ra.PrincipalType {
		case "User", "Group", "ServicePrincipal", "Device", "ForeignGroup":
		default:
			addIssue(result, fmt.Sprintf("roleAssignments[%d].principalType", i), ErrInvalidPrincipalType.Error())
		}
	}
}

// checkCreateModeConsistency enforces the cross-field rules the source
// templates leave to the control plane.
func (c *Checker) checkCreateModeConsistency(s *spec.ServerSpec, result *Result) {
	if s.CreateMode.RequiresSource() && s.SourceServerResourceID == "" {
		addIssue(result, "sourceServerResourceId", ErrMissingSourceServer.Error())
	}

	if s.CreateMode == spec.CreateModePointInTimeRestore {
		if s.RestorePointInTime == "" {
			addIssue(result, "restorePointInTime", ErrMissingRestorePoint.Error())
		} else if _, err := time.Parse(time.RFC3339, s.RestorePointInTime); err != nil {
			addIssue(result, "restorePointInTime", ErrInvalidRestorePoint.Error())
		}
	}
}

func addIssue(result *Result, field, message string) {
	result.Valid = false
	result.Issues = append(result.Issues, Issue{Field: field, Message: message})
}
