package hcl

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/provision/internal/config"
	"github.com/vk/provision/internal/ctxlog"
	"github.com/vk/provision/internal/fsutil"
	"github.com/vk/provision/internal/schema"
)

// Loader reads HCL plan files and runner manifests from disk and translates
// them into the format-agnostic config model.
type Loader struct {
	parser *hclparse.Parser
}

// NewLoader creates a new HCL loader with a fresh parser.
func NewLoader() *Loader {
	return &Loader{parser: hclparse.NewParser()}
}

// Load implements config.Loader. It discovers all .hcl files under the plan
// and modules paths, parses them, and returns the unified model plus the
// converter needed to decode argument expressions at execution time.
func (l *Loader) Load(ctx context.Context, planPath, modulesPath string) (*config.Model, config.Converter, error) {
	logger := ctxlog.FromContext(ctx)

	model := &config.Model{
		Runners: make(map[string]*config.RunnerDefinition),
		Plan:    &config.Plan{},
	}

	if modulesPath != "" {
		if err := l.loadManifests(ctx, modulesPath, model); err != nil {
			return nil, nil, err
		}
	}
	logger.Debug("Runner manifests loaded.", "count", len(model.Runners))

	if err := l.loadPlan(ctx, planPath, model); err != nil {
		return nil, nil, err
	}
	logger.Debug("Plan loaded.", "steps", len(model.Plan.Steps))

	return model, NewConverter(), nil
}

// loadManifests parses every runner manifest found under modulesPath.
func (l *Loader) loadManifests(ctx context.Context, modulesPath string, model *config.Model) error {
	logger := ctxlog.FromContext(ctx)

	files, err := fsutil.FindFilesByExtension(modulesPath, ".hcl")
	if err != nil {
		return fmt.Errorf("failed to find module manifests in %s: %w", modulesPath, err)
	}
	if len(files) == 0 {
		logger.Warn("No .hcl module manifests found in path.", "path", modulesPath)
		return nil
	}

	for _, file := range files {
		hclFile, diags := l.parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return fmt.Errorf("failed to parse manifest %s: %w", file, diags)
		}

		var def schema.DefinitionConfig
		if diags := gohcl.DecodeBody(hclFile.Body, nil, &def); diags.HasErrors() {
			return fmt.Errorf("failed to decode manifest %s: %w", file, diags)
		}
		if def.Runner == nil {
			continue
		}
		if _, exists := model.Runners[def.Runner.Type]; exists {
			return fmt.Errorf("duplicate runner manifest for type %q in %s", def.Runner.Type, file)
		}
		model.Runners[def.Runner.Type] = translateRunnerDefinition(def.Runner)
		logger.Debug("Loaded runner manifest.", "type", def.Runner.Type, "file", file)
	}
	return nil
}

// loadPlan parses every plan file found under planPath and aggregates the
// steps into a single plan. Duplicate step addresses are rejected here, before
// any graph construction.
func (l *Loader) loadPlan(ctx context.Context, planPath string, model *config.Model) error {
	logger := ctxlog.FromContext(ctx)

	files, err := fsutil.FindFilesByExtension(planPath, ".hcl")
	if err != nil {
		return fmt.Errorf("failed to find plan files in %s: %w", planPath, err)
	}
	if len(files) == 0 {
		logger.Warn("No .hcl plan files found in path, plan is empty.", "path", planPath)
		return nil
	}

	seen := make(map[string]string)
	for _, file := range files {
		hclFile, diags := l.parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return fmt.Errorf("failed to parse plan file %s: %w", file, diags)
		}

		var plan schema.PlanConfig
		if diags := gohcl.DecodeBody(hclFile.Body, nil, &plan); diags.HasErrors() {
			return fmt.Errorf("failed to decode plan file %s: %w", file, diags)
		}

		for _, s := range plan.Steps {
			step := translateStep(s, file)
			addr := step.Address()
			if prev, exists := seen[addr]; exists {
				return fmt.Errorf("duplicate step %q: defined in %s and %s", addr, prev, file)
			}
			seen[addr] = file
			model.Plan.Steps = append(model.Plan.Steps, step)
		}
	}
	return nil
}
