package provision

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/flavioaiello/mysql-provisioner/pkg/config"
	"github.com/flavioaiello/mysql-provisioner/pkg/loader"
	"github.com/flavioaiello/mysql-provisioner/pkg/plan"
	"github.com/flavioaiello/mysql-provisioner/pkg/submit"
	"github.com/flavioaiello/mysql-provisioner/pkg/testutil"
	"github.com/flavioaiello/mysql-provisioner/pkg/validate"
)

const testSpecYAML = `
name: test-server
administratorLogin: mysqladmin
administratorLoginPassword: hunter2hunter2
skuName: GP_Gen5_2
storageSizeGB: 32
firewallRules:
  - name: office
    startIpAddress: 10.0.0.1
    endIpAddress: 10.0.0.10
serverConfigurations:
  - name: slow_query_log
    value: "ON"
databases:
  - name: app
`

const invalidSpecYAML = `
name: test-server
administratorLogin: mysqladmin
administratorLoginPassword: hunter2hunter2
skuName: GP_Gen5_2
storageSizeGB: 32
createMode: GeoRestore
`

func testConfig(mode config.SubmitMode) *config.Config {
	return &config.Config{
		SubscriptionID:    "00000000-0000-0000-0000-000000000001",
		ResourceGroupName: "rg-mysql",
		Location:          "westeurope",
		Mode:              mode,
		SubmitTimeout:     60 * time.Second,
		MaxSubmitAttempts: 2,
		RetryBackoffBase:  time.Millisecond,
	}
}

func writeSpec(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "server.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func newTestProvisioner(cfg *config.Config, cp submit.ControlPlane, groups GroupChecker) *Provisioner {
	return NewWithControlPlane(cfg, zap.NewNop(), cp, groups)
}

func TestProvisionHappyPath(t *testing.T) {
	cp := testutil.NewRecordingControlPlane()
	p := newTestProvisioner(testConfig(config.ModeApply), cp, testutil.StaticGroupChecker{Present: true})

	result, err := p.Provision(context.Background(), writeSpec(t, testSpecYAML))
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.NotEmpty(t, result.ServerID)
	assert.NotEmpty(t, result.FQDN)
	assert.False(t, result.Observed)
	require.NotNil(t, result.Report)
	assert.Empty(t, result.Report.Failed())

	assert.Len(t, cp.CallsOfKind("server"), 1)
	assert.Len(t, cp.CallsOfKind("firewallRule"), 1)
	assert.Len(t, cp.CallsOfKind("database"), 1)
	assert.Len(t, cp.CallsOfKind("configuration"), 1)
}

func TestProvisionObserveModeSubmitsNothing(t *testing.T) {
	cp := testutil.NewRecordingControlPlane()
	p := newTestProvisioner(testConfig(config.ModeObserve), cp, testutil.StaticGroupChecker{Present: true})

	result, err := p.Provision(context.Background(), writeSpec(t, testSpecYAML))
	require.NoError(t, err)

	assert.True(t, result.Observed)
	require.NotNil(t, result.Plan)
	assert.NotEmpty(t, result.Plan.Stages)
	assert.Empty(t, cp.Calls())
}

func TestProvisionResourceGroupMissing(t *testing.T) {
	cp := testutil.NewRecordingControlPlane()
	p := newTestProvisioner(testConfig(config.ModeApply), cp, testutil.StaticGroupChecker{Present: false})

	_, err := p.Provision(context.Background(), writeSpec(t, testSpecYAML))
	assert.ErrorIs(t, err, ErrResourceGroupNotFound)
	assert.Empty(t, cp.Calls())
}

func TestProvisionInvalidSpecFailsBeforeAnyCall(t *testing.T) {
	cp := testutil.NewRecordingControlPlane()
	p := newTestProvisioner(testConfig(config.ModeApply), cp, testutil.StaticGroupChecker{Present: true})

	_, err := p.Provision(context.Background(), writeSpec(t, invalidSpecYAML))
	assert.ErrorIs(t, err, ErrSpecInvalid)
	assert.Empty(t, cp.Calls())
}

func TestProvisionDeferredValidationReachesControlPlane(t *testing.T) {
	cfg := testConfig(config.ModeApply)
	cfg.DeferProviderValidation = true
	cp := testutil.NewRecordingControlPlane()
	p := newTestProvisioner(cfg, cp, testutil.StaticGroupChecker{Present: true})

	// The same inconsistent spec is now left for the provider to reject.
	_, err := p.Provision(context.Background(), writeSpec(t, invalidSpecYAML))
	require.NoError(t, err)
	assert.Len(t, cp.CallsOfKind("server"), 1)
}

func TestProvisionSpecNotFound(t *testing.T) {
	p := newTestProvisioner(testConfig(config.ModeApply), testutil.NewRecordingControlPlane(), testutil.StaticGroupChecker{Present: true})

	_, err := p.Provision(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, loader.ErrSpecNotFound)
}

func TestProvisionServerFailureReturnsReport(t *testing.T) {
	cp := testutil.NewRecordingControlPlane()
	cp.FailOn("server", "test-server", &azcore.ResponseError{StatusCode: http.StatusBadRequest})
	p := newTestProvisioner(testConfig(config.ModeApply), cp, testutil.StaticGroupChecker{Present: true})

	result, err := p.Provision(context.Background(), writeSpec(t, testSpecYAML))

	require.ErrorIs(t, err, submit.ErrServerCreateFailed)
	require.NotNil(t, result)
	require.NotNil(t, result.Report)
	assert.NotEmpty(t, result.Report.Skipped())
}

func TestProvisionChildFailureReturnsError(t *testing.T) {
	cp := testutil.NewRecordingControlPlane()
	cp.FailOn("database", "app", &azcore.ResponseError{StatusCode: http.StatusConflict})
	p := newTestProvisioner(testConfig(config.ModeApply), cp, testutil.StaticGroupChecker{Present: true})

	result, err := p.Provision(context.Background(), writeSpec(t, testSpecYAML))

	require.Error(t, err)
	require.NotNil(t, result)
	assert.Len(t, result.Report.Failed(), 1)
}

func TestCompose(t *testing.T) {
	p := newTestProvisioner(testConfig(config.ModeApply), nil, nil)

	comp, submissionPlan, err := p.Compose(writeSpec(t, testSpecYAML))
	require.NoError(t, err)

	assert.Equal(t, "test-server", comp.Server.Name)
	assert.Len(t, comp.FirewallRules, 1)
	assert.True(t, submissionPlan.Contains(plan.FamilyConfigurations))
	assert.Greater(t, submissionPlan.StageOf(plan.FamilyConfigurations), submissionPlan.StageOf(plan.FamilyFirewallRules))
}

func TestValidate(t *testing.T) {
	p := newTestProvisioner(testConfig(config.ModeApply), nil, nil)

	result, err := p.Validate(writeSpec(t, testSpecYAML))
	require.NoError(t, err)
	assert.True(t, result.Valid)

	result, err = p.Validate(writeSpec(t, invalidSpecYAML))
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.ErrorIs(t, result.Err(), validate.ErrValidation)
}
