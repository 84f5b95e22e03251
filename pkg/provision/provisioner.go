// Package provision orchestrates a provisioning run end to end.
//
// The pipeline is load, validate, resolve, compose, plan, submit. Local
// validation fails fast before any request is issued; submission produces a
// per-entry report since there is no transactional rollback.
package provision

import (
	"context"
	"errors"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armresources"
	"go.uber.org/zap"

	"github.com/flavioaiello/mysql-provisioner/pkg/compose"
	"github.com/flavioaiello/mysql-provisioner/pkg/config"
	"github.com/flavioaiello/mysql-provisioner/pkg/loader"
	"github.com/flavioaiello/mysql-provisioner/pkg/plan"
	"github.com/flavioaiello/mysql-provisioner/pkg/provenance"
	"github.com/flavioaiello/mysql-provisioner/pkg/resolve"
	"github.com/flavioaiello/mysql-provisioner/pkg/spec"
	"github.com/flavioaiello/mysql-provisioner/pkg/submit"
	"github.com/flavioaiello/mysql-provisioner/pkg/validate"
)

// Errors.
var (
	ErrResourceGroupNotFound = errors.New("resource group does not exist")
	ErrSpecInvalid           = errors.New("spec failed local validation")
)

// GroupChecker verifies the target resource group exists before any request
// is composed.
type GroupChecker interface {
	Exists(ctx context.Context, name string) (bool, error)
}

// azureGroupChecker implements GroupChecker against ARM.
type azureGroupChecker struct {
	client *armresources.ResourceGroupsClient
}

func (g *azureGroupChecker) Exists(ctx context.Context, name string) (bool, error) {
	resp, err := g.client.CheckExistence(ctx, name, nil)
	if err != nil {
		return false, err
	}
	return resp.Success, nil
}

// Result is the outcome of a provisioning run.
type Result struct {
	// ServerID and FQDN identify the created server.
	ServerID string `json:"serverId,omitempty"`
	FQDN     string `json:"fqdn,omitempty"`
	// Observed is true when the run composed without submitting.
	Observed bool `json:"observed,omitempty"`
	// Plan is the staged submission order.
	Plan *plan.Plan `json:"plan"`
	// Report holds the per-entry outcomes of an applied run.
	Report *submit.Report `json:"report,omitempty"`
}

// Provisioner runs the full pipeline for one server spec.
type Provisioner struct {
	cfg        *config.Config
	logger     *zap.Logger
	checker    *validate.Checker
	composer   *compose.Composer
	groups     GroupChecker
	cp         submit.ControlPlane
	provenance *provenance.Logger
}

// New creates a Provisioner backed by the ARM control plane.
func New(cfg *config.Config, credential azcore.TokenCredential, logger *zap.Logger) (*Provisioner, error) {
	groupsClient, err := armresources.NewResourceGroupsClient(cfg.SubscriptionID, credential, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource groups client: %w", err)
	}

	cp, err := submit.NewAzureControlPlane(cfg.SubscriptionID, cfg.ResourceGroupName, credential)
	if err != nil {
		return nil, fmt.Errorf("failed to create control plane clients: %w", err)
	}

	return NewWithControlPlane(cfg, logger, cp, &azureGroupChecker{client: groupsClient}), nil
}

// NewWithControlPlane creates a Provisioner with injected collaborators.
// Used by tests with the recording fakes from pkg/testutil.
func NewWithControlPlane(cfg *config.Config, logger *zap.Logger, cp submit.ControlPlane, groups GroupChecker) *Provisioner {
	return &Provisioner{
		cfg:        cfg,
		logger:     logger,
		checker:    validate.NewChecker(cfg.DeferProviderValidation, logger),
		composer:   compose.New(cfg.SubscriptionID, cfg.ResourceGroupName, cfg.Location),
		groups:     groups,
		cp:         cp,
		provenance: provenance.NewLogger(logger),
	}
}

// Provision loads the spec at specPath and runs the pipeline.
func (p *Provisioner) Provision(ctx context.Context, specPath string) (*Result, error) {
	s, err := loader.LoadServerSpec(specPath)
	if err != nil {
		return nil, err
	}
	return p.ProvisionSpec(ctx, specPath, s)
}

// ProvisionSpec runs the pipeline for an already loaded spec.
func (p *Provisioner) ProvisionSpec(ctx context.Context, specPath string, s *spec.ServerSpec) (*Result, error) {
	comp, submissionPlan, err := p.prepare(s)
	if err != nil {
		return nil, err
	}

	if p.cfg.Mode == config.ModeObserve {
		p.logger.Info("Observe mode, skipping submission",
			zap.String("server", s.Name),
			zap.Int("stages", len(submissionPlan.Stages)),
		)
		return &Result{Observed: true, Plan: submissionPlan}, nil
	}

	exists, err := p.groups.Exists(ctx, p.cfg.ResourceGroupName)
	if err != nil {
		return nil, fmt.Errorf("resource group check failed: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrResourceGroupNotFound, p.cfg.ResourceGroupName)
	}

	record := p.provenance.CreateRecord(
		p.cfg.SubscriptionID+"/"+p.cfg.ResourceGroupName,
		specPath,
		s.Name,
		provenance.SubmitAction,
	)

	submitCtx, cancel := context.WithTimeout(ctx, p.cfg.SubmitTimeout)
	defer cancel()

	submitter := submit.NewSubmitter(p.cp, p.logger, submit.Options{
		MaxAttempts: p.cfg.MaxSubmitAttempts,
		BackoffBase: p.cfg.RetryBackoffBase,
	})
	report, runErr := submitter.Run(submitCtx, comp, submissionPlan)

	record.Outcomes = summarize(report)
	p.provenance.LogProvenance(record)

	result := &Result{
		ServerID: report.Server.ID,
		FQDN:     report.Server.FQDN,
		Plan:     submissionPlan,
		Report:   report,
	}
	if runErr != nil {
		return result, runErr
	}
	if failed := report.Failed(); len(failed) > 0 {
		return result, fmt.Errorf("%d child resource(s) failed, see report", len(failed))
	}
	return result, nil
}

// Compose validates and composes without touching the control plane.
func (p *Provisioner) Compose(specPath string) (*compose.Composition, *plan.Plan, error) {
	s, err := loader.LoadServerSpec(specPath)
	if err != nil {
		return nil, nil, err
	}
	return p.prepare(s)
}

// Validate loads and validates a spec, returning the findings.
func (p *Provisioner) Validate(specPath string) (*validate.Result, error) {
	s, err := loader.LoadServerSpec(specPath)
	if err != nil {
		return nil, err
	}
	return p.checker.CheckServerSpec(s), nil
}

// prepare runs the local half of the pipeline: validate, resolve, compose,
// plan. Nothing here issues a request.
func (p *Provisioner) prepare(s *spec.ServerSpec) (*compose.Composition, *plan.Plan, error) {
	if result := p.checker.CheckServerSpec(s); !result.Valid {
		return nil, nil, fmt.Errorf("%w: %v", ErrSpecInvalid, result.Err())
	}

	resolved, err := resolve.Resolve(s)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrSpecInvalid, err)
	}

	comp, err := p.composer.Compose(s, resolved)
	if err != nil {
		return nil, nil, err
	}

	submissionPlan, err := plan.Build(comp)
	if err != nil {
		return nil, nil, err
	}
	return comp, submissionPlan, nil
}

func summarize(report *submit.Report) *provenance.OutcomeSummary {
	summary := &provenance.OutcomeSummary{}
	for _, o := range report.Outcomes {
		switch o.Status {
		case submit.StatusSucceeded:
			summary.Succeeded++
		case submit.StatusFailed:
			summary.Failed++
		case submit.StatusSkipped:
			summary.Skipped++
		}
	}
	return summary
}
