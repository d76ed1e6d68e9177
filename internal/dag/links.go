package dag

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/provision/internal/ctxlog"
	"github.com/vk/provision/internal/registry"
)

// linkExplicitDeps resolves dependencies declared in a step's depends_on list.
// Entries are addressed as "<runner_type>.<name>".
func linkExplicitDeps(ctx context.Context, node *Node, graph *Graph) error {
	logger := ctxlog.FromContext(ctx)
	for _, depAddr := range node.StepConfig.DependsOn {
		depID := "step." + depAddr
		depNode, found := graph.Nodes[depID]
		if !found {
			return fmt.Errorf("step '%s' depends on non-existent step '%s'", node.ID, depAddr)
		}
		if depNode == node {
			return fmt.Errorf("step '%s' cannot depend on itself", node.ID)
		}

		if _, exists := node.Deps[depNode.ID]; !exists {
			logger.Debug("Linking explicit dependency.", "from", node.ID, "to", depNode.ID)
			node.Deps[depNode.ID] = depNode
			depNode.Dependents[node.ID] = node
		}
	}
	return nil
}

// linkImplicitDeps parses an argument expression for variable traversals of
// the form step.<type>.<name>... and creates dependency links for each.
func linkImplicitDeps(ctx context.Context, node *Node, expr hcl.Expression, graph *Graph, r *registry.Registry) error {
	logger := ctxlog.FromContext(ctx)
	for _, traversal := range expr.Variables() {
		if len(traversal) < 3 || traversal.RootName() != "step" {
			continue
		}
		typeAttr, typeOk := traversal[1].(hcl.TraverseAttr)
		nameAttr, nameOk := traversal[2].(hcl.TraverseAttr)
		if !typeOk || !nameOk {
			continue
		}
		depID := fmt.Sprintf("step.%s.%s", typeAttr.Name, nameAttr.Name)
		depNode, ok := graph.Nodes[depID]
		if !ok {
			return fmt.Errorf("step '%s' references non-existent step '%s'", node.ID, depID)
		}
		if depNode == node {
			return fmt.Errorf("step '%s' cannot reference its own output", node.ID)
		}

		// References to a named output are validated against the manifest.
		if len(traversal) > 3 {
			if outputAttr, isOutput := traversal[3].(hcl.TraverseAttr); isOutput && outputAttr.Name == "output" {
				if err := validateOutputReference(traversal, depNode, r); err != nil {
					return err
				}
			}
		}

		if _, exists := node.Deps[depID]; !exists {
			logger.Debug("Linking implicit dependency.", "from", node.ID, "to", depID)
			node.Deps[depID] = depNode
			depNode.Dependents[node.ID] = node
		}
	}
	return nil
}

// validateOutputReference checks that a reference to another step's output
// names an output the runner's manifest actually declares.
func validateOutputReference(traversal hcl.Traversal, depNode *Node, r *registry.Registry) error {
	if len(traversal) < 5 {
		return nil // Bare `...output` reference, nothing more to validate.
	}
	outputNameAttr, ok := traversal[4].(hcl.TraverseAttr)
	if !ok {
		return nil
	}
	outputName := outputNameAttr.Name

	runnerDef, ok := r.DefinitionRegistry[depNode.StepConfig.RunnerType]
	if !ok {
		return fmt.Errorf("internal error: no definition for runner type %q", depNode.StepConfig.RunnerType)
	}
	if _, ok := runnerDef.Outputs[outputName]; ok {
		return nil
	}
	return fmt.Errorf("reference to undeclared output %q on step %q", outputName, depNode.ID)
}
