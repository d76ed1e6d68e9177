package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"reflect"
	"sort"
	"strings"

	"github.com/vk/provision/internal/ctxlog"
	"github.com/vk/provision/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the 'arguments' HCL block.
type Input struct {
	Command string            `hcl:"command"`
	Shell   string            `hcl:"shell,optional"`
	WorkDir string            `hcl:"work_dir,optional"`
	Env     map[string]string `hcl:"env,optional"`
	Creates string            `hcl:"creates,optional"`
}

// OnRunShell is the handler for the 'shell' runner's on_run lifecycle event.
// When 'creates' names a path that already exists, the command is skipped and
// the step reports changed = false.
func OnRunShell(ctx context.Context, input *Input) (cty.Value, error) {
	logger := ctxlog.FromContext(ctx)

	if input.Creates != "" {
		if _, err := os.Stat(input.Creates); err == nil {
			logger.Info("Skipping command, target already exists.", "creates", input.Creates)
			return cty.ObjectVal(map[string]cty.Value{
				"stdout":    cty.StringVal(""),
				"exit_code": cty.NumberIntVal(0),
				"changed":   cty.False,
			}), nil
		}
	}

	shellPath := input.Shell
	if shellPath == "" {
		shellPath = "/bin/sh"
	}

	cmd := exec.CommandContext(ctx, shellPath, "-c", input.Command)
	cmd.Dir = input.WorkDir
	if len(input.Env) > 0 {
		env := os.Environ()
		keys := make([]string, 0, len(input.Env))
		for k := range input.Env {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			env = append(env, k+"="+input.Env[k])
		}
		cmd.Env = env
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logger.Info("Running command.", "shell", shellPath)
	logger.Debug("Command detail.", "command", input.Command, "work_dir", input.WorkDir)

	if err := cmd.Run(); err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		if ctx.Err() != nil {
			return cty.NilVal, fmt.Errorf("command interrupted: %w", ctx.Err())
		}
		return cty.NilVal, fmt.Errorf("command failed with exit code %d: %w (stderr: %s)",
			exitCode, err, strings.TrimSpace(stderr.String()))
	}

	if stdout.Len() > 0 || stderr.Len() > 0 {
		logger.Debug("Command output.",
			"stdout", strings.TrimSpace(stdout.String()),
			"stderr", strings.TrimSpace(stderr.String()))
	}

	return cty.ObjectVal(map[string]cty.Value{
		"stdout":    cty.StringVal(strings.TrimRight(stdout.String(), "\n")),
		"exit_code": cty.NumberIntVal(0),
		"changed":   cty.True,
	}), nil
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterRunner("OnRunShell", &registry.RegisteredRunner{
		NewInput:  func() any { return new(Input) },
		InputType: reflect.TypeOf(Input{}),
		Fn:        OnRunShell,
	})
}
