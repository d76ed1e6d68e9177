package registry

import (
	"fmt"
	"log/slog"
	"reflect"

	"github.com/vk/provision/internal/config"
)

// Module is the interface that all core runner modules must implement to be
// registered with an application instance.
type Module interface {
	Register(r *Registry)
}

// RegisteredRunner holds the compiled Go parts of a runner's on_run handler.
type RegisteredRunner struct {
	// NewInput returns a pointer to a fresh input struct for the handler, or
	// nil if the runner takes no arguments.
	NewInput func() any
	// InputType is the concrete input struct type, used for manifest parity
	// validation. Nil when the runner takes no arguments.
	InputType reflect.Type
	// Fn is the handler function with signature
	// func(context.Context, *Input) (cty.Value, error).
	Fn any
}

// Registry holds all registered Go handlers and the runner definitions loaded
// from manifests, for a single application instance.
type Registry struct {
	HandlerRegistry    map[string]*RegisteredRunner
	DefinitionRegistry map[string]*config.RunnerDefinition
}

// New creates and initializes a new Registry instance.
func New() *Registry {
	return &Registry{
		HandlerRegistry:    make(map[string]*RegisteredRunner),
		DefinitionRegistry: make(map[string]*config.RunnerDefinition),
	}
}

// RegisterRunner registers a Go function for a runner's on_run event.
// Registering the same handler name twice is a programmer error.
func (r *Registry) RegisterRunner(name string, handler *RegisteredRunner) {
	if _, exists := r.HandlerRegistry[name]; exists {
		panic(fmt.Sprintf("runner handler with name '%s' already registered", name))
	}
	slog.Debug("Registering runner handler.", "name", name)
	r.HandlerRegistry[name] = handler
}

// PopulateDefinitionsFromModel copies the loaded runner definitions from the
// config model into the registry for easy access during execution.
func (r *Registry) PopulateDefinitionsFromModel(model *config.Model) {
	for key, val := range model.Runners {
		r.DefinitionRegistry[key] = val
	}
}
