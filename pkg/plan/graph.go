// Package plan orders composed requests into submission stages.
//
// The ordering constraint between child-resource families is modeled as a
// dependency graph rather than implicit code order: families in the same
// stage are independent and may be submitted in parallel, and a family is
// never staged before all of its dependencies.
package plan

import (
	"errors"
	"fmt"
	"sort"
)

// Family identifies one child-resource family.
type Family string

const (
	FamilyServer              Family = "server"
	FamilyFirewallRules       Family = "firewallRules"
	FamilyVirtualNetworkRules Family = "virtualNetworkRules"
	FamilyDatabases           Family = "databases"
	FamilyConfigurations      Family = "serverConfigurations"
	FamilyRoleAssignments     Family = "roleAssignments"
	FamilyPrivateEndpoints    Family = "privateEndpoints"
	FamilyDiagnostics         Family = "diagnosticSettings"
)

// Errors.
var (
	ErrCyclicDependency  = errors.New("cyclic family dependency")
	ErrUnknownDependency = errors.New("unknown family dependency")
)

// Graph is a dependency graph over resource families.
type Graph struct {
	families map[Family]bool
	edges    map[Family][]Family // family -> families it depends on
	reverse  map[Family][]Family
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		families: make(map[Family]bool),
		edges:    make(map[Family][]Family),
		reverse:  make(map[Family][]Family),
	}
}

// Add registers a family with its dependencies.
func (g *Graph) Add(family Family, dependsOn ...Family) {
	g.families[family] = true
	g.edges[family] = append(g.edges[family], dependsOn...)
	for _, dep := range dependsOn {
		g.reverse[dep] = append(g.reverse[dep], family)
	}
}

// Validate checks for unknown dependencies and cycles.
func (g *Graph) Validate() error {
	for family, deps := range g.edges {
		for _, dep := range deps {
			if !g.families[dep] {
				return fmt.Errorf("%w: %s depends on %s", ErrUnknownDependency, family, dep)
			}
		}
	}
	return g.detectCycles()
}

func (g *Graph) detectCycles() error {
	visited := make(map[Family]bool)
	inStack := make(map[Family]bool)

	for family := range g.families {
		if path := g.dfsDetectCycle(family, visited, inStack); path != nil {
			return fmt.Errorf("%w: %v", ErrCyclicDependency, path)
		}
	}
	return nil
}

func (g *Graph) dfsDetectCycle(family Family, visited, inStack map[Family]bool) []Family {
	if visited[family] {
		return nil
	}
	visited[family] = true
	inStack[family] = true

	for _, dep := range g.edges[family] {
		if inStack[dep] {
			return []Family{family, dep}
		}
		if path := g.dfsDetectCycle(dep, visited, inStack); path != nil {
			return append([]Family{family}, path...)
		}
	}

	inStack[family] = false
	return nil
}

// ParallelGroups returns families grouped into stages: each stage contains
// only families whose dependencies are satisfied by earlier stages.
func (g *Graph) ParallelGroups() ([][]Family, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}

	inDegree := make(map[Family]int, len(g.families))
	remaining := make(map[Family]bool, len(g.families))
	for family := range g.families {
		inDegree[family] = len(g.edges[family])
		remaining[family] = true
	}

	var groups [][]Family
	for len(remaining) > 0 {
		var group []Family
		for family := range remaining {
			if inDegree[family] == 0 {
				group = append(group, family)
			}
		}
		if len(group) == 0 {
			// Unreachable after Validate, kept as a loop guard.
			break
		}
		sort.Slice(group, func(i, j int) bool { return group[i] < group[j] })

		for _, family := range group {
			delete(remaining, family)
			for _, dependent := range g.reverse[family] {
				if remaining[dependent] {
					inDegree[dependent]--
				}
			}
		}
		groups = append(groups, group)
	}

	return groups, nil
}
