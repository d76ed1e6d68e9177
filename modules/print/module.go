package print

import (
	"context"
	"fmt"
	"reflect"

	"github.com/vk/provision/internal/ctxlog"
	"github.com/vk/provision/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the print runner.
type Input struct {
	Message string `hcl:"message"`
}

// OnRunPrint is the handler for the 'print' runner's on_run lifecycle event.
func OnRunPrint(ctx context.Context, input *Input) (cty.Value, error) {
	ctxlog.FromContext(ctx).Debug("Printing message.")
	fmt.Println("      " + input.Message)
	return cty.NilVal, nil
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterRunner("OnRunPrint", &registry.RegisteredRunner{
		NewInput:  func() any { return new(Input) },
		InputType: reflect.TypeOf(Input{}),
		Fn:        OnRunPrint,
	})
}
