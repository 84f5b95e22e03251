package plan

import (
	"github.com/flavioaiello/mysql-provisioner/pkg/compose"
)

// sequentialFamilies are submitted one request at a time. The provider
// throttles concurrent creations for these child types; the others fan out.
var sequentialFamilies = map[Family]bool{
	FamilyFirewallRules:  true,
	FamilyDatabases:      true,
	FamilyConfigurations: true,
}

// Sequential reports whether requests within the family must be submitted
// one at a time.
func Sequential(f Family) bool {
	return sequentialFamilies[f]
}

// Plan is the staged submission order for one composition. Families within a
// stage are independent of one another; a stage starts only after every
// family in the previous stage completed.
type Plan struct {
	Stages [][]Family
}

// Build computes the plan for a composition. Only families with at least one
// request appear. The server is always stage zero; server configurations are
// staged strictly after firewall rules.
func Build(comp *compose.Composition) (*Plan, error) {
	g := NewGraph()
	g.Add(FamilyServer)

	if len(comp.FirewallRules) > 0 {
		g.Add(FamilyFirewallRules, FamilyServer)
	}
	if len(comp.VirtualNetworkRules) > 0 {
		g.Add(FamilyVirtualNetworkRules, FamilyServer)
	}
	if len(comp.Databases) > 0 {
		g.Add(FamilyDatabases, FamilyServer)
	}
	if len(comp.RoleAssignments) > 0 {
		g.Add(FamilyRoleAssignments, FamilyServer)
	}
	if len(comp.PrivateEndpoints) > 0 {
		g.Add(FamilyPrivateEndpoints, FamilyServer)
	}
	if comp.Diagnostics != nil {
		g.Add(FamilyDiagnostics, FamilyServer)
	}
	if len(comp.Configurations) > 0 {
		// Configurations may depend on network access being in place.
		if len(comp.FirewallRules) > 0 {
			g.Add(FamilyConfigurations, FamilyServer, FamilyFirewallRules)
		} else {
			g.Add(FamilyConfigurations, FamilyServer)
		}
	}

	stages, err := g.ParallelGroups()
	if err != nil {
		return nil, err
	}
	return &Plan{Stages: stages}, nil
}

// DependenciesOf returns the families f depends on. Every child family
// depends on the server; configurations additionally wait for firewall rules.
func DependenciesOf(f Family) []Family {
	switch f {
	case FamilyServer:
		return nil
	case FamilyConfigurations:
		return []Family{FamilyServer, FamilyFirewallRules}
	default:
		return []Family{FamilyServer}
	}
}

// Contains reports whether the plan includes the family.
func (p *Plan) Contains(f Family) bool {
	for _, stage := range p.Stages {
		for _, family := range stage {
			if family == f {
				return true
			}
		}
	}
	return false
}

// StageOf returns the stage index of a family, or -1 if absent.
func (p *Plan) StageOf(f Family) int {
	for i, stage := range p.Stages {
		for _, family := range stage {
			if family == f {
				return i
			}
		}
	}
	return -1
}
