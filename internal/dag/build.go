package dag

import (
	"context"
	"fmt"

	"github.com/vk/provision/internal/config"
	"github.com/vk/provision/internal/ctxlog"
	"github.com/vk/provision/internal/registry"
)

// Build constructs a complete, validated dependency graph from a config model.
// A graph that fails validation (unknown dependency targets, cycles) is
// rejected here, before anything executes.
func Build(ctx context.Context, model *config.Model, r *registry.Registry) (*Graph, error) {
	logger := ctxlog.FromContext(ctx)
	graph := &Graph{Nodes: make(map[string]*Node)}

	// First pass: create all nodes.
	createNodes(ctx, model.Plan, graph)
	logger.Debug("Build: node creation complete.", "node_count", len(graph.Nodes))

	// Every step must name a runner with a loaded manifest.
	for _, node := range graph.Nodes {
		if _, ok := r.DefinitionRegistry[node.StepConfig.RunnerType]; !ok {
			return nil, fmt.Errorf("step '%s' uses unknown runner type '%s'", node.ID, node.StepConfig.RunnerType)
		}
	}

	// Second pass: link dependencies.
	if err := linkNodes(ctx, graph, r); err != nil {
		return nil, err
	}
	logger.Debug("Build: node linking complete.")

	// Third pass: initialize counters.
	for _, node := range graph.Nodes {
		node.setInitialCounters()
	}

	if err := graph.detectCycles(); err != nil {
		return nil, err
	}
	logger.Debug("Build: cycle detection passed.")

	return graph, nil
}

// createNodes performs the first pass of graph creation. Duplicate step
// addresses were already rejected by the loader.
func createNodes(ctx context.Context, plan *config.Plan, graph *Graph) {
	logger := ctxlog.FromContext(ctx)
	for _, s := range plan.Steps {
		id := s.Address()
		graph.Nodes[id] = &Node{
			ID:         id,
			Name:       s.Name,
			StepConfig: s,
			Deps:       make(map[string]*Node),
			Dependents: make(map[string]*Node),
		}
		logger.Debug("Created graph node.", "id", id)
	}
}

// linkNodes performs the second pass, establishing dependency links from both
// explicit depends_on entries and implicit expression references.
func linkNodes(ctx context.Context, graph *Graph, r *registry.Registry) error {
	for _, node := range graph.Nodes {
		if err := linkExplicitDeps(ctx, node, graph); err != nil {
			return err
		}
		for _, expr := range node.StepConfig.Arguments {
			if err := linkImplicitDeps(ctx, node, expr, graph, r); err != nil {
				return err
			}
		}
	}
	return nil
}

// CycleError reports a circular dependency. Nothing executes when the graph
// contains one.
type CycleError struct {
	NodeID string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle detected involving '%s'", e.NodeID)
}

// detectCycles checks for circular dependencies in the graph using DFS.
func (g *Graph) detectCycles() error {
	visiting := make(map[string]bool)
	visited := make(map[string]bool)

	var visit func(node *Node) error
	visit = func(node *Node) error {
		visiting[node.ID] = true
		for _, dep := range node.Deps {
			if visiting[dep.ID] {
				return &CycleError{NodeID: dep.ID}
			}
			if !visited[dep.ID] {
				if err := visit(dep); err != nil {
					return err
				}
			}
		}
		delete(visiting, node.ID)
		visited[node.ID] = true
		return nil
	}

	for _, node := range g.Nodes {
		if !visited[node.ID] {
			if err := visit(node); err != nil {
				return err
			}
		}
	}
	return nil
}
