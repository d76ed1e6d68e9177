package dag

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/provision/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
)

// executeStepNode handles the execution of a single step node: decode the
// arguments against the outputs of completed dependencies, call the runner's
// Go handler, and publish its output.
func (e *Executor) executeStepNode(ctx context.Context, node *Node) error {
	logger := ctxlog.FromContext(ctx).With("step", node.ID)
	logger.Info("▶️ Starting step")

	runnerDef, ok := e.registry.DefinitionRegistry[node.StepConfig.RunnerType]
	if !ok {
		return fmt.Errorf("unknown runner type '%s'", node.StepConfig.RunnerType)
	}
	handlerName := runnerDef.Lifecycle.OnRun
	registeredHandler, ok := e.registry.HandlerRegistry[handlerName]
	if !ok {
		return fmt.Errorf("handler '%s' not registered", handlerName)
	}

	if node.StepConfig.Timeout != "" {
		timeout, err := time.ParseDuration(node.StepConfig.Timeout)
		if err != nil {
			return fmt.Errorf("invalid timeout %q for step %s: %w", node.StepConfig.Timeout, node.ID, err)
		}
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	logger.Debug("Decoding step arguments.")
	evalCtx := e.buildEvalContext(node)
	var inputStruct any
	if registeredHandler.NewInput != nil {
		inputStruct = registeredHandler.NewInput()
	}
	if inputStruct != nil {
		err := e.converter.DecodeArgs(ctx, inputStruct, node.StepConfig.Arguments, runnerDef.Inputs, evalCtx)
		if err != nil {
			return fmt.Errorf("failed to decode arguments for step %s: %w", node.ID, err)
		}
	}

	logger.Debug("Calling step run handler.", "handler", handlerName)
	handlerFunc := reflect.ValueOf(registeredHandler.Fn)
	callArgs := []reflect.Value{reflect.ValueOf(ctx)}
	if inputStruct == nil {
		callArgs = append(callArgs, reflect.Zero(handlerFunc.Type().In(1)))
	} else {
		callArgs = append(callArgs, reflect.ValueOf(inputStruct))
	}

	results := handlerFunc.Call(callArgs)
	outputVal, errResult := results[0].Interface(), results[1].Interface()
	if errResult != nil {
		return errResult.(error)
	}

	ctyOutput, ok := outputVal.(cty.Value)
	if !ok {
		return fmt.Errorf("handler for step %s returned non-cty.Value type: %T", node.ID, outputVal)
	}
	node.Output = ctyOutput

	logger.Info("✅ Finished step")
	return nil
}

// buildEvalContext exposes the outputs of the node's direct dependencies as
// HCL variables of the form step.<type>.<name>.output. Only direct
// dependencies are in scope: the implicit linker guarantees that every
// referenced step is one, and limiting the scope this way means every value
// read here was published before this node was unlocked.
func (e *Executor) buildEvalContext(node *Node) *hcl.EvalContext {
	stepsByType := make(map[string]map[string]cty.Value)
	for _, dep := range node.Deps {
		out := dep.Output
		if out.IsNull() {
			out = cty.EmptyObjectVal
		}
		byName := stepsByType[dep.StepConfig.RunnerType]
		if byName == nil {
			byName = make(map[string]cty.Value)
			stepsByType[dep.StepConfig.RunnerType] = byName
		}
		byName[dep.StepConfig.Name] = cty.ObjectVal(map[string]cty.Value{
			"output": out,
		})
	}

	variables := make(map[string]cty.Value)
	if len(stepsByType) > 0 {
		typeVals := make(map[string]cty.Value, len(stepsByType))
		for runnerType, byName := range stepsByType {
			typeVals[runnerType] = cty.ObjectVal(byName)
		}
		variables["step"] = cty.ObjectVal(typeVals)
	}

	return &hcl.EvalContext{Variables: variables}
}
