package submit

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/flavioaiello/mysql-provisioner/pkg/compose"
	"github.com/flavioaiello/mysql-provisioner/pkg/plan"
)

// Submission defaults.
const (
	DefaultMaxAttempts = 3
	DefaultBackoffBase = 5 * time.Second
)

// Status of a single submitted entry.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

// Outcome records the result of one child-resource request.
type Outcome struct {
	Family   plan.Family `json:"family"`
	Name     string      `json:"name"`
	Status   Status      `json:"status"`
	Attempts int         `json:"attempts,omitempty"`
	Error    string      `json:"error,omitempty"`
}

// Report is the full per-entry result of a submission run.
type Report struct {
	Server   ServerResult `json:"server"`
	Outcomes []Outcome    `json:"outcomes"`
}

// Failed returns the outcomes that failed.
func (r *Report) Failed() []Outcome {
	return r.filter(StatusFailed)
}

// Skipped returns the outcomes that were skipped.
func (r *Report) Skipped() []Outcome {
	return r.filter(StatusSkipped)
}

// FamilySucceeded reports whether every entry of the family succeeded.
func (r *Report) FamilySucceeded(f plan.Family) bool {
	for _, o := range r.Outcomes {
		if o.Family == f && o.Status != StatusSucceeded {
			return false
		}
	}
	return true
}

func (r *Report) filter(status Status) []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Status == status {
			out = append(out, o)
		}
	}
	return out
}

// Options tunes retry behavior.
type Options struct {
	MaxAttempts int
	BackoffBase time.Duration
}

// Submitter executes a staged plan against a control plane.
type Submitter struct {
	cp     ControlPlane
	logger *zap.Logger
	opts   Options
}

// NewSubmitter creates a submitter. Zero option fields get defaults.
func NewSubmitter(cp ControlPlane, logger *zap.Logger, opts Options) *Submitter {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = DefaultBackoffBase
	}
	return &Submitter{cp: cp, logger: logger, opts: opts}
}

// Run submits the composition stage by stage.
//
// A failed server creation aborts the run and marks every child entry as
// skipped. Child failures do not stop independent families, but a family is
// skipped when one of its dependency families did not fully succeed.
func (s *Submitter) Run(ctx context.Context, comp *compose.Composition, p *plan.Plan) (*Report, error) {
	report := &Report{}

	for _, stage := range p.Stages {
		if containsFamily(stage, plan.FamilyServer) {
			if err := s.runServer(ctx, comp, report); err != nil {
				s.skipRemaining(comp, p, report)
				return report, err
			}
			continue
		}
		s.runStage(ctx, stage, comp, report)
	}

	return report, nil
}

func (s *Submitter) runServer(ctx context.Context, comp *compose.Composition, report *Report) error {
	s.logger.Info("Creating server", zap.String("server", comp.Server.Name))

	attempts, err := s.attempt(ctx, func(ctx context.Context) error {
		result, createErr := s.cp.CreateServer(ctx, comp.Server.Name, comp.Server.Body)
		if createErr != nil {
			return createErr
		}
		report.Server = result
		return nil
	})

	outcome := Outcome{
		Family:   plan.FamilyServer,
		Name:     comp.Server.Name,
		Status:   StatusSucceeded,
		Attempts: attempts,
	}
	if err != nil {
		outcome.Status = StatusFailed
		outcome.Error = err.Error()
		report.Outcomes = append(report.Outcomes, outcome)
		return wrapErr(ErrServerCreateFailed, err)
	}
	report.Outcomes = append(report.Outcomes, outcome)

	s.logger.Info("Server created",
		zap.String("server", comp.Server.Name),
		zap.String("id", report.Server.ID),
		zap.String("fqdn", report.Server.FQDN),
	)
	return nil
}

// runStage submits every family of the stage concurrently. Entries within
// sequential families still go one at a time.
func (s *Submitter) runStage(ctx context.Context, stage []plan.Family, comp *compose.Composition, report *Report) {
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)

	for _, family := range stage {
		if !s.dependenciesMet(family, report) {
			mu.Lock()
			report.Outcomes = append(report.Outcomes, s.skipFamily(family, comp)...)
			mu.Unlock()
			continue
		}

		wg.Add(1)
		go func(f plan.Family) {
			defer wg.Done()
			outcomes := s.runFamily(ctx, f, comp)
			mu.Lock()
			report.Outcomes = append(report.Outcomes, outcomes...)
			mu.Unlock()
		}(family)
	}

	wg.Wait()
}

// dependenciesMet checks the recorded outcomes of every dependency family.
// A family with a failed dependency is skipped rather than rejected by the
// provider mid-sequence.
func (s *Submitter) dependenciesMet(f plan.Family, report *Report) bool {
	for _, dep := range plan.DependenciesOf(f) {
		if dep == plan.FamilyServer {
			continue // server success is guaranteed once stages run
		}
		if !report.FamilySucceeded(dep) {
			return false
		}
	}
	return true
}

func (s *Submitter) runFamily(ctx context.Context, f plan.Family, comp *compose.Composition) []Outcome {
	switch f {
	case plan.FamilyFirewallRules:
		return s.runFirewallRules(ctx, comp)
	case plan.FamilyVirtualNetworkRules:
		return s.runVirtualNetworkRules(ctx, comp)
	case plan.FamilyDatabases:
		return s.runDatabases(ctx, comp)
	case plan.FamilyConfigurations:
		return s.runConfigurations(ctx, comp)
	case plan.FamilyRoleAssignments:
		return s.runRoleAssignments(ctx, comp)
	case plan.FamilyPrivateEndpoints:
		return s.runPrivateEndpoints(ctx, comp)
	case plan.FamilyDiagnostics:
		return s.runDiagnostics(ctx, comp)
	}
	return nil
}

// entry is one named request within a family.
type entry struct {
	name string
	op   func(context.Context) error
}

// submitAll submits a family's entries, one at a time for sequential
// families and fanned out otherwise.
func (s *Submitter) submitAll(ctx context.Context, f plan.Family, entries []entry) []Outcome {
	outcomes := make([]Outcome, len(entries))

	if plan.Sequential(f) {
		for i, e := range entries {
			outcomes[i] = s.submitOne(ctx, f, e.name, e.op)
		}
		return outcomes
	}

	var wg sync.WaitGroup
	for i, e := range entries {
		wg.Add(1)
		go func(i int, e entry) {
			defer wg.Done()
			outcomes[i] = s.submitOne(ctx, f, e.name, e.op)
		}(i, e)
	}
	wg.Wait()
	return outcomes
}

func (s *Submitter) runFirewallRules(ctx context.Context, comp *compose.Composition) []Outcome {
	entries := make([]entry, 0, len(comp.FirewallRules))
	for _, req := range comp.FirewallRules {
		req := req
		entries = append(entries, entry{req.Name, func(ctx context.Context) error {
			return s.cp.CreateFirewallRule(ctx, comp.Server.Name, req.Name, req.Body)
		}})
	}
	return s.submitAll(ctx, plan.FamilyFirewallRules, entries)
}

func (s *Submitter) runVirtualNetworkRules(ctx context.Context, comp *compose.Composition) []Outcome {
	entries := make([]entry, 0, len(comp.VirtualNetworkRules))
	for _, req := range comp.VirtualNetworkRules {
		req := req
		entries = append(entries, entry{req.Name, func(ctx context.Context) error {
			return s.cp.CreateVirtualNetworkRule(ctx, comp.Server.Name, req.Name, req.Body)
		}})
	}
	return s.submitAll(ctx, plan.FamilyVirtualNetworkRules, entries)
}

func (s *Submitter) runDatabases(ctx context.Context, comp *compose.Composition) []Outcome {
	entries := make([]entry, 0, len(comp.Databases))
	for _, req := range comp.Databases {
		req := req
		entries = append(entries, entry{req.Name, func(ctx context.Context) error {
			return s.cp.CreateDatabase(ctx, comp.Server.Name, req.Name, req.Body)
		}})
	}
	return s.submitAll(ctx, plan.FamilyDatabases, entries)
}

func (s *Submitter) runConfigurations(ctx context.Context, comp *compose.Composition) []Outcome {
	entries := make([]entry, 0, len(comp.Configurations))
	for _, req := range comp.Configurations {
		req := req
		entries = append(entries, entry{req.Name, func(ctx context.Context) error {
			return s.cp.CreateConfiguration(ctx, comp.Server.Name, req.Name, req.Body)
		}})
	}
	return s.submitAll(ctx, plan.FamilyConfigurations, entries)
}

func (s *Submitter) runRoleAssignments(ctx context.Context, comp *compose.Composition) []Outcome {
	entries := make([]entry, 0, len(comp.RoleAssignments))
	for _, req := range comp.RoleAssignments {
		req := req
		entries = append(entries, entry{req.Name, func(ctx context.Context) error {
			return s.cp.CreateRoleAssignment(ctx, req.Scope, req.Name, req.Body)
		}})
	}
	return s.submitAll(ctx, plan.FamilyRoleAssignments, entries)
}

func (s *Submitter) runPrivateEndpoints(ctx context.Context, comp *compose.Composition) []Outcome {
	var outcomes []Outcome
	for _, req := range comp.PrivateEndpoints {
		req := req
		outcome := s.submitOne(ctx, plan.FamilyPrivateEndpoints, req.Name, func(ctx context.Context) error {
			return s.cp.CreatePrivateEndpoint(ctx, req.Name, req.Body)
		})
		outcomes = append(outcomes, outcome)

		if req.DNSZoneGroup == nil {
			continue
		}
		zoneName := req.Name + "/default"
		if outcome.Status != StatusSucceeded {
			outcomes = append(outcomes, Outcome{
				Family: plan.FamilyPrivateEndpoints,
				Name:   zoneName,
				Status: StatusSkipped,
				Error:  ErrDependencyNotMet.Error(),
			})
			continue
		}
		outcomes = append(outcomes, s.submitOne(ctx, plan.FamilyPrivateEndpoints, zoneName, func(ctx context.Context) error {
			return s.cp.CreatePrivateDNSZoneGroup(ctx, req.Name, "default", *req.DNSZoneGroup)
		}))
	}
	return outcomes
}

func (s *Submitter) runDiagnostics(ctx context.Context, comp *compose.Composition) []Outcome {
	req := comp.Diagnostics
	if req == nil {
		return nil
	}
	return []Outcome{s.submitOne(ctx, plan.FamilyDiagnostics, req.Name, func(ctx context.Context) error {
		return s.cp.CreateDiagnosticSetting(ctx, req.ResourceURI, req.Name, req.Body)
	})}
}

// submitOne executes a single request with retry and records its outcome.
func (s *Submitter) submitOne(ctx context.Context, f plan.Family, name string, op func(context.Context) error) Outcome {
	attempts, err := s.attempt(ctx, op)

	outcome := Outcome{Family: f, Name: name, Status: StatusSucceeded, Attempts: attempts}
	if err != nil {
		outcome.Status = StatusFailed
		outcome.Error = err.Error()
		s.logger.Error("Child resource creation failed",
			zap.String("family", string(f)),
			zap.String("name", name),
			zap.Int("attempts", attempts),
			zap.Error(err),
		)
		return outcome
	}

	s.logger.Info("Child resource created",
		zap.String("family", string(f)),
		zap.String("name", name),
	)
	return outcome
}

// attempt runs op with classification and bounded exponential backoff.
// Rejections are returned immediately; only transient failures retry.
func (s *Submitter) attempt(ctx context.Context, op func(context.Context) error) (int, error) {
	var err error
	for attempt := 1; attempt <= s.opts.MaxAttempts; attempt++ {
		err = Classify(op(ctx))
		if err == nil {
			return attempt, nil
		}
		if !Retryable(err) || attempt == s.opts.MaxAttempts {
			return attempt, err
		}

		backoff := s.opts.BackoffBase * time.Duration(1<<(attempt-1))
		select {
		case <-ctx.Done():
			return attempt, ctx.Err()
		case <-time.After(backoff):
		}
	}
	return s.opts.MaxAttempts, err
}

// skipRemaining marks every child entry as skipped after an aborted run.
func (s *Submitter) skipRemaining(comp *compose.Composition, p *plan.Plan, report *Report) {
	for _, stage := range p.Stages {
		for _, family := range stage {
			if family == plan.FamilyServer {
				continue
			}
			report.Outcomes = append(report.Outcomes, s.skipFamily(family, comp)...)
		}
	}
}

func (s *Submitter) skipFamily(f plan.Family, comp *compose.Composition) []Outcome {
	skip := func(name string) Outcome {
		return Outcome{Family: f, Name: name, Status: StatusSkipped, Error: ErrDependencyNotMet.Error()}
	}

	var outcomes []Outcome
	switch f {
	case plan.FamilyFirewallRules:
		for _, req := range comp.FirewallRules {
			outcomes = append(outcomes, skip(req.Name))
		}
	case plan.FamilyVirtualNetworkRules:
		for _, req := range comp.VirtualNetworkRules {
			outcomes = append(outcomes, skip(req.Name))
		}
	case plan.FamilyDatabases:
		for _, req := range comp.Databases {
			outcomes = append(outcomes, skip(req.Name))
		}
	case plan.FamilyConfigurations:
		for _, req := range comp.Configurations {
			outcomes = append(outcomes, skip(req.Name))
		}
	case plan.FamilyRoleAssignments:
		for _, req := range comp.RoleAssignments {
			outcomes = append(outcomes, skip(req.Name))
		}
	case plan.FamilyPrivateEndpoints:
		for _, req := range comp.PrivateEndpoints {
			outcomes = append(outcomes, skip(req.Name))
		}
	case plan.FamilyDiagnostics:
		if comp.Diagnostics != nil {
			outcomes = append(outcomes, skip(comp.Diagnostics.Name))
		}
	}
	return outcomes
}

func containsFamily(stage []plan.Family, f plan.Family) bool {
	for _, family := range stage {
		if family == f {
			return true
		}
	}
	return false
}
