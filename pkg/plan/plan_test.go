package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flavioaiello/mysql-provisioner/pkg/compose"
)

func fullComposition() *compose.Composition {
	return &compose.Composition{
		FirewallRules:       []compose.FirewallRuleRequest{{Name: "office"}},
		VirtualNetworkRules: []compose.VirtualNetworkRuleRequest{{Name: "app-subnet"}},
		Databases:           []compose.DatabaseRequest{{Name: "app"}},
		Configurations:      []compose.ConfigurationRequest{{Name: "slow_query_log"}},
		RoleAssignments:     []compose.RoleAssignmentRequest{{Name: "ra"}},
		PrivateEndpoints:    []compose.PrivateEndpointRequest{{Name: "srv-pe1"}},
		Diagnostics:         &compose.DiagnosticsRequest{Name: "diagnosticSettings"},
	}
}

func TestBuildFullComposition(t *testing.T) {
	p, err := Build(fullComposition())
	require.NoError(t, err)

	assert.Equal(t, 0, p.StageOf(FamilyServer))
	assert.Equal(t, 1, p.StageOf(FamilyFirewallRules))
	assert.Equal(t, 1, p.StageOf(FamilyVirtualNetworkRules))
	assert.Equal(t, 1, p.StageOf(FamilyDatabases))
	assert.Equal(t, 1, p.StageOf(FamilyRoleAssignments))
	assert.Equal(t, 1, p.StageOf(FamilyPrivateEndpoints))
	assert.Equal(t, 1, p.StageOf(FamilyDiagnostics))
	assert.Equal(t, 2, p.StageOf(FamilyConfigurations))
}

func TestBuildConfigurationsAfterFirewallRules(t *testing.T) {
	p, err := Build(fullComposition())
	require.NoError(t, err)

	assert.Greater(t, p.StageOf(FamilyConfigurations), p.StageOf(FamilyFirewallRules))
}

func TestBuildConfigurationsWithoutFirewallRules(t *testing.T) {
	comp := fullComposition()
	comp.FirewallRules = nil

	p, err := Build(comp)
	require.NoError(t, err)

	assert.False(t, p.Contains(FamilyFirewallRules))
	assert.Equal(t, 1, p.StageOf(FamilyConfigurations))
}

func TestBuildEmptyFamiliesOmitted(t *testing.T) {
	p, err := Build(&compose.Composition{})
	require.NoError(t, err)

	require.Len(t, p.Stages, 1)
	assert.Equal(t, []Family{FamilyServer}, p.Stages[0])
	assert.False(t, p.Contains(FamilyDatabases))
	assert.False(t, p.Contains(FamilyDiagnostics))
	assert.Equal(t, -1, p.StageOf(FamilyDatabases))
}

func TestBuildDiagnosticsOnlyWhenPresent(t *testing.T) {
	comp := &compose.Composition{Diagnostics: &compose.DiagnosticsRequest{Name: "diagnosticSettings"}}

	p, err := Build(comp)
	require.NoError(t, err)

	assert.True(t, p.Contains(FamilyDiagnostics))
	assert.Equal(t, 1, p.StageOf(FamilyDiagnostics))
}

func TestSequential(t *testing.T) {
	assert.True(t, Sequential(FamilyFirewallRules))
	assert.True(t, Sequential(FamilyDatabases))
	assert.True(t, Sequential(FamilyConfigurations))

	assert.False(t, Sequential(FamilyServer))
	assert.False(t, Sequential(FamilyVirtualNetworkRules))
	assert.False(t, Sequential(FamilyRoleAssignments))
	assert.False(t, Sequential(FamilyPrivateEndpoints))
	assert.False(t, Sequential(FamilyDiagnostics))
}

func TestDependenciesOf(t *testing.T) {
	assert.Nil(t, DependenciesOf(FamilyServer))
	assert.Equal(t, []Family{FamilyServer, FamilyFirewallRules}, DependenciesOf(FamilyConfigurations))
	assert.Equal(t, []Family{FamilyServer}, DependenciesOf(FamilyDatabases))
	assert.Equal(t, []Family{FamilyServer}, DependenciesOf(FamilyDiagnostics))
}
