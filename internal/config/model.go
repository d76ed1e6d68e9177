package config

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
)

// Model is the unified, format-agnostic representation of the entire
// application configuration: all runner definitions and the provisioning plan.
type Model struct {
	Runners map[string]*RunnerDefinition
	Plan    *Plan
}

// Plan represents the user's provisioning plan: the full set of steps
// aggregated from every plan file.
type Plan struct {
	Steps []*Step
}

// Step is the format-agnostic representation of a `step` block. Argument
// values stay as raw hcl.Expression so that evaluation can be deferred until
// execution, when outputs of completed steps are available in scope.
type Step struct {
	RunnerType string
	Name       string
	Arguments  map[string]hcl.Expression
	DependsOn  []string

	// Idempotent marks the step as safe to skip on re-runs once the journal
	// records it as succeeded.
	Idempotent bool

	// Timeout is an optional duration string bounding the step's execution.
	Timeout string

	// SourceFile is the plan file the step was defined in, for diagnostics.
	SourceFile string
}

// Address returns the unique plan-wide identifier for the step.
func (s *Step) Address() string {
	return fmt.Sprintf("step.%s.%s", s.RunnerType, s.Name)
}

// --- Module manifest models ---

// RunnerDefinition is the format-agnostic representation of a runner's manifest.
type RunnerDefinition struct {
	Type        string
	Description string
	Lifecycle   *Lifecycle
	Inputs      map[string]*InputDefinition
	Outputs     map[string]*OutputDefinition
}

// Lifecycle maps a runner's events to Go handler names.
type Lifecycle struct {
	OnRun string
}

// InputDefinition defines a single input argument for a runner.
type InputDefinition struct {
	Name        string
	Description string
	Default     *cty.Value
	Optional    bool
}

// OutputDefinition defines a single output value from a runner.
type OutputDefinition struct {
	Name        string
	Description string
}
