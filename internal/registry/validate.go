package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/vk/provision/internal/ctxlog"
)

// ValidateRegistry performs a strict parity check between runner manifests and
// the registered Go handlers: every manifest must name a registered handler,
// and the handler's input struct fields must match the manifest's declared
// inputs one-to-one.
func (r *Registry) ValidateRegistry(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	var errs []string

	for runnerType, def := range r.DefinitionRegistry {
		if def.Lifecycle == nil || def.Lifecycle.OnRun == "" {
			errs = append(errs, fmt.Sprintf("runner '%s': manifest declares no on_run handler", runnerType))
			continue
		}
		handler, ok := r.HandlerRegistry[def.Lifecycle.OnRun]
		if !ok {
			errs = append(errs, fmt.Sprintf("runner '%s': handler '%s' is not registered", runnerType, def.Lifecycle.OnRun))
			continue
		}

		if handler.InputType == nil {
			if len(def.Inputs) > 0 {
				errs = append(errs, fmt.Sprintf("runner '%s': manifest declares inputs, but Go handler has no input struct", runnerType))
			}
			continue
		}

		goInputs := make(map[string]struct{})
		for i := 0; i < handler.InputType.NumField(); i++ {
			field := handler.InputType.Field(i)
			if !field.IsExported() {
				continue
			}
			tagName := strings.Split(field.Tag.Get("hcl"), ",")[0]
			if tagName != "" && tagName != "-" {
				goInputs[tagName] = struct{}{}
			}
		}

		for name := range goInputs {
			if _, ok := def.Inputs[name]; !ok {
				errs = append(errs, fmt.Sprintf("runner '%s': Go struct has field for input '%s' which is not declared in manifest", runnerType, name))
			}
		}
		for name := range def.Inputs {
			if _, ok := goInputs[name]; !ok {
				errs = append(errs, fmt.Sprintf("runner '%s': manifest declares input '%s' which is not found in Go struct", runnerType, name))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("registry validation failed:\n- %s", strings.Join(errs, "\n- "))
	}

	logger.Debug("Registry parity check passed.", "runners", len(r.DefinitionRegistry))
	return nil
}
