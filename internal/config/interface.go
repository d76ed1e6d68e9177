package config

import (
	"context"

	"github.com/hashicorp/hcl/v2"
)

// Loader is the interface for a format-specific configuration loader. The
// concrete HCL implementation lives in internal/hcl; tests may substitute
// their own.
type Loader interface {
	// Load reads the plan and module manifests from the given paths,
	// translates them into the format-agnostic model, and returns a matching
	// Converter for decoding argument expressions during execution.
	Load(ctx context.Context, planPath, modulesPath string) (*Model, Converter, error)
}

// Converter decodes raw argument expressions into a runner's typed input
// struct, applying manifest defaults and required-argument checks.
type Converter interface {
	DecodeArgs(
		ctx context.Context,
		inputStruct any,
		args map[string]hcl.Expression,
		defs map[string]*InputDefinition,
		evalCtx *hcl.EvalContext,
	) error
}
