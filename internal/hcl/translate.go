package hcl

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/vk/provision/internal/config"
	"github.com/vk/provision/internal/schema"
)

// translateStep converts the HCL-specific step schema into the agnostic model.
func translateStep(s *schema.Step, filePath string) *config.Step {
	return &config.Step{
		RunnerType: s.RunnerType,
		Name:       s.Name,
		Arguments:  extractBodyAttributes(s.Arguments),
		DependsOn:  s.DependsOn,
		Idempotent: s.Idempotent,
		Timeout:    s.Timeout,
		SourceFile: filePath,
	}
}

// translateRunnerDefinition converts the HCL-specific runner schema into the
// agnostic model. An input with a valid (non-null) default is optional.
func translateRunnerDefinition(s *schema.RunnerDefinition) *config.RunnerDefinition {
	r := &config.RunnerDefinition{
		Type:        s.Type,
		Description: s.Description,
		Inputs:      make(map[string]*config.InputDefinition),
		Outputs:     make(map[string]*config.OutputDefinition),
	}
	if s.Lifecycle != nil {
		r.Lifecycle = &config.Lifecycle{OnRun: s.Lifecycle.OnRun}
	}
	for _, in := range s.Inputs {
		def := &config.InputDefinition{
			Name:        in.Name,
			Description: in.Description,
		}
		if in.Default != nil && !in.Default.IsNull() {
			def.Default = in.Default
			def.Optional = true
		}
		r.Inputs[in.Name] = def
	}
	for _, out := range s.Outputs {
		r.Outputs[out.Name] = &config.OutputDefinition{
			Name:        out.Name,
			Description: out.Description,
		}
	}
	return r
}

// extractBodyAttributes flattens an arguments block into a map of named raw
// expressions, which is what the graph linker and converter operate on.
func extractBodyAttributes(args *schema.StepArgs) map[string]hcl.Expression {
	if args == nil || args.Body == nil {
		return nil
	}
	attrs, _ := args.Body.JustAttributes()
	if len(attrs) == 0 {
		return nil
	}
	exprMap := make(map[string]hcl.Expression, len(attrs))
	for name, attr := range attrs {
		exprMap[name] = attr.Expr
	}
	return exprMap
}
