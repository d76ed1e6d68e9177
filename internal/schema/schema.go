// Package schema defines the HCL decoding structures for plan files and
// runner manifests. These structs mirror the on-disk block layout; the
// internal/hcl loader translates them into the format-agnostic config model.
package schema

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
)

// --- Plan structures ---

// StepArgs represents the content of the 'arguments' block within a step.
type StepArgs struct {
	Body hcl.Body `hcl:",remain"`
}

// Step represents a `step` block from a user's plan file. It is a single
// provisioning action: one configured invocation of a runner.
type Step struct {
	RunnerType string    `hcl:"runner_type,label"`
	Name       string    `hcl:"step_name,label"`
	Arguments  *StepArgs `hcl:"arguments,block"`
	DependsOn  []string  `hcl:"depends_on,optional"`
	Idempotent bool      `hcl:"idempotent,optional"`
	Timeout    string    `hcl:"timeout,optional"`
}

// PlanConfig represents the top-level structure of a plan file, containing
// all defined steps.
type PlanConfig struct {
	Steps []*Step  `hcl:"step,block"`
	Body  hcl.Body `hcl:",remain"`
}

// --- Module manifest schemas ---

// Lifecycle defines the mapping from a runner's lifecycle event to a
// registered Go handler function.
type Lifecycle struct {
	OnRun string `hcl:"on_run"`
}

// InputDefinition defines a single input argument for a runner.
type InputDefinition struct {
	Name        string         `hcl:"name,label"`
	Type        hcl.Expression `hcl:"type"`
	Description string         `hcl:"description,optional"`
	Default     *cty.Value     `hcl:"default,optional"`
}

// OutputDefinition defines a single output value produced by a runner.
type OutputDefinition struct {
	Name        string         `hcl:"name,label"`
	Type        hcl.Expression `hcl:"type"`
	Description string         `hcl:"description,optional"`
}

// RunnerDefinition represents the HCL manifest for a runnable `runner` type.
type RunnerDefinition struct {
	Type        string              `hcl:"type,label"`
	Description string              `hcl:"description,optional"`
	Lifecycle   *Lifecycle          `hcl:"lifecycle,block"`
	Inputs      []*InputDefinition  `hcl:"input,block"`
	Outputs     []*OutputDefinition `hcl:"output,block"`
}

// DefinitionConfig represents the top-level structure of a module manifest file.
type DefinitionConfig struct {
	Runner *RunnerDefinition `hcl:"runner,block"`
	Body   hcl.Body          `hcl:",remain"`
}
