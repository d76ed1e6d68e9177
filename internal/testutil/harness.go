package testutil

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/provision/internal/app"
	"github.com/vk/provision/internal/hcl"
	"github.com/vk/provision/internal/registry"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// HarnessResult holds the outcomes of an in-process provisioning run.
type HarnessResult struct {
	LogOutput string
	Err       error
	App       *app.App
	StateDir  string
}

// Options tweaks a harness run. The zero value is a fresh run with an
// isolated state directory.
type Options struct {
	// Ctx is the run context; context.Background() when nil.
	Ctx context.Context
	// StateDir overrides the journal location, letting tests run the same
	// plan twice against shared state.
	StateDir string
	// Force re-executes steps that already succeeded.
	Force bool
}

// RunProvisionTest provides a standardized harness for running integration
// tests: it writes the given files into a temporary directory, builds an app
// with the provided modules, and performs a full run.
func RunProvisionTest(t *testing.T, files map[string]string, modules ...registry.Module) *HarnessResult {
	t.Helper()
	return RunProvisionTestWithOptions(t, files, Options{}, modules...)
}

// RunProvisionTestWithOptions is RunProvisionTest with explicit Options.
//
// File paths in the files map are relative to the test's temporary root;
// "plan/" holds plan files and "modules/" holds runner manifests.
func RunProvisionTestWithOptions(t *testing.T, files map[string]string, opts Options, modules ...registry.Module) *HarnessResult {
	t.Helper()

	tmpDir := t.TempDir()
	planDir := filepath.Join(tmpDir, "plan")
	modulesDir := filepath.Join(tmpDir, "modules")
	require.NoError(t, os.Mkdir(planDir, 0o755))
	require.NoError(t, os.Mkdir(modulesDir, 0o755))

	for name, content := range files {
		filePath := filepath.Join(tmpDir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(filePath), 0o755))
		require.NoError(t, os.WriteFile(filePath, []byte(content), 0o644))
	}

	stateDir := opts.StateDir
	if stateDir == "" {
		stateDir = filepath.Join(tmpDir, "state")
	}
	ctx := opts.Ctx
	if ctx == nil {
		ctx = context.Background()
	}

	appConfig := &app.Config{
		PlanPath:    planDir,
		ModulesPath: modulesDir,
		StateDir:    stateDir,
		LogLevel:    "debug",
		LogFormat:   "text",
		WorkerCount: 4,
		Force:       opts.Force,
	}

	logBuffer := &SafeBuffer{}

	var testApp *app.App
	var panicErr any
	func() {
		defer func() {
			if r := recover(); r != nil {
				panicErr = r
			}
		}()
		testApp = app.NewApp(logBuffer, appConfig, hcl.NewLoader(), modules...)
	}()

	if panicErr != nil {
		return &HarnessResult{
			LogOutput: logBuffer.String(),
			Err:       fmt.Errorf("application startup panicked | %v", panicErr),
			StateDir:  stateDir,
		}
	}

	runErr := testApp.Run(ctx, appConfig)

	return &HarnessResult{
		LogOutput: logBuffer.String(),
		Err:       runErr,
		App:       testApp,
		StateDir:  stateDir,
	}
}
