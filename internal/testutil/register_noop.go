package testutil

import (
	"context"

	"github.com/vk/provision/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// NoOpModule registers a single "NoOp" runner that takes no inputs and does
// nothing. It's useful for tests that should fail before execution begins but
// still need valid plans that pass registry validation.
type NoOpModule struct{}

// NoOpManifest is the manifest HCL matching the NoOp runner.
const NoOpManifest = `
runner "noop" {
  lifecycle {
    on_run = "NoOp"
  }
}
`

// Register registers the "NoOp" handler.
func (m *NoOpModule) Register(r *registry.Registry) {
	r.RegisterRunner("NoOp", &registry.RegisteredRunner{
		Fn: func(ctx context.Context, input any) (cty.Value, error) {
			return cty.NilVal, nil
		},
	})
}
