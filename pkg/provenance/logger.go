// Package provenance provides an audit trail for provisioning runs.
//
// Records who submitted what, when, and from which git commit, enabling
// traceability of infrastructure changes.
package provenance

import (
	"encoding/json"
	"os"
	"time"

	"go.uber.org/zap"
)

// Action represents the type of operation performed.
type Action string

const (
	ValidateAction Action = "validate"
	ComposeAction  Action = "compose"
	SubmitAction   Action = "submit"
)

// OutcomeSummary summarizes the per-entry results of a submission run.
type OutcomeSummary struct {
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// IsClean returns true if nothing failed or was skipped.
func (s OutcomeSummary) IsClean() bool {
	return s.Failed == 0 && s.Skipped == 0
}

// Record captures the provenance of one provisioning operation.
type Record struct {
	Timestamp time.Time       `json:"timestamp"`
	Action    Action          `json:"action"`
	Scope     string          `json:"scope"` // subscription/resource group
	SpecPath  string          `json:"spec_path"`
	Server    string          `json:"server"`
	GitSHA    string          `json:"git_sha,omitempty"`
	GitBranch string          `json:"git_branch,omitempty"`
	Operator  string          `json:"operator"` // user@host
	Outcomes  *OutcomeSummary `json:"outcomes,omitempty"`
}

// ToJSON serializes the record to JSON.
func (r Record) ToJSON() (string, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Logger provides structured provenance logging.
type Logger struct {
	log *zap.Logger
}

// NewLogger creates a provenance logger.
func NewLogger(log *zap.Logger) *Logger {
	return &Logger{log: log}
}

// CreateRecord creates a new provenance record with environment context.
func (l *Logger) CreateRecord(scope, specPath, server string, action Action) Record {
	hostname, _ := os.Hostname() //nolint:errcheck // Empty hostname fallback is handled below
	user := os.Getenv("USER")
	if user == "" {
		user = os.Getenv("USERNAME")
	}

	operator := user
	if hostname != "" {
		operator = user + "@" + hostname
	}

	return Record{
		Timestamp: time.Now().UTC(),
		Action:    action,
		Scope:     scope,
		SpecPath:  specPath,
		Server:    server,
		GitSHA:    os.Getenv("GIT_COMMIT_SHA"),
		GitBranch: os.Getenv("GIT_BRANCH"),
		Operator:  operator,
		Outcomes:  &OutcomeSummary{},
	}
}

// LogProvenance logs a provenance record as structured fields.
func (l *Logger) LogProvenance(record Record) {
	fields := []zap.Field{
		zap.String("action", string(record.Action)),
		zap.String("scope", record.Scope),
		zap.String("spec_path", record.SpecPath),
		zap.String("server", record.Server),
		zap.String("operator", record.Operator),
	}
	if record.GitSHA != "" {
		fields = append(fields, zap.String("git_sha", record.GitSHA))
	}
	if record.Outcomes != nil {
		fields = append(fields,
			zap.Int("succeeded", record.Outcomes.Succeeded),
			zap.Int("failed", record.Outcomes.Failed),
			zap.Int("skipped", record.Outcomes.Skipped),
		)
	}
	l.log.Info("provenance", fields...)
}
