package hcl

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func TestLoader_ParsesManifestAndPlan(t *testing.T) {
	root := writeFiles(t, map[string]string{
		"modules/greet/manifest.hcl": `
			runner "greet" {
				description = "Says hello."

				lifecycle {
					on_run = "OnRunGreet"
				}

				input "name" {
					type = string
				}

				input "greeting" {
					type    = string
					default = "hello"
				}

				output "message" {
					type = string
				}
			}
		`,
		"plan/main.hcl": `
			step "greet" "world" {
				idempotent = true
				timeout    = "30s"
				depends_on = ["greet.first"]

				arguments {
					name = "world"
				}
			}

			step "greet" "first" {
				arguments {
					name = "first"
				}
			}
		`,
	})

	model, converter, err := NewLoader().Load(context.Background(),
		filepath.Join(root, "plan"), filepath.Join(root, "modules"))
	require.NoError(t, err)
	require.NotNil(t, converter)

	def, ok := model.Runners["greet"]
	require.True(t, ok)
	assert.Equal(t, "OnRunGreet", def.Lifecycle.OnRun)
	require.Contains(t, def.Inputs, "name")
	require.Contains(t, def.Inputs, "greeting")
	assert.False(t, def.Inputs["name"].Optional)
	assert.True(t, def.Inputs["greeting"].Optional)
	require.NotNil(t, def.Inputs["greeting"].Default)
	assert.Equal(t, "hello", def.Inputs["greeting"].Default.AsString())
	assert.Contains(t, def.Outputs, "message")

	require.Len(t, model.Plan.Steps, 2)
	var world, first bool
	for _, step := range model.Plan.Steps {
		switch step.Address() {
		case "step.greet.world":
			world = true
			assert.True(t, step.Idempotent)
			assert.Equal(t, "30s", step.Timeout)
			assert.Equal(t, []string{"greet.first"}, step.DependsOn)
			assert.Contains(t, step.Arguments, "name")
		case "step.greet.first":
			first = true
			assert.False(t, step.Idempotent)
		}
	}
	assert.True(t, world && first)
}

func TestLoader_RejectsDuplicateStepAddress(t *testing.T) {
	root := writeFiles(t, map[string]string{
		"plan/a.hcl": `step "x" "same" {}`,
		"plan/b.hcl": `step "x" "same" {}`,
	})

	_, _, err := NewLoader().Load(context.Background(), filepath.Join(root, "plan"), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `duplicate step "step.x.same"`)
}

func TestLoader_RejectsDuplicateRunnerManifest(t *testing.T) {
	root := writeFiles(t, map[string]string{
		"modules/a/manifest.hcl": `
			runner "x" {
				lifecycle { on_run = "A" }
			}
		`,
		"modules/b/manifest.hcl": `
			runner "x" {
				lifecycle { on_run = "B" }
			}
		`,
		"plan/main.hcl": `step "x" "only" {}`,
	})

	_, _, err := NewLoader().Load(context.Background(),
		filepath.Join(root, "plan"), filepath.Join(root, "modules"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate runner manifest")
}

func TestLoader_RejectsMalformedPlanFile(t *testing.T) {
	root := writeFiles(t, map[string]string{
		"plan/main.hcl": `step "x" {`,
	})

	_, _, err := NewLoader().Load(context.Background(), filepath.Join(root, "plan"), "")
	require.Error(t, err)
}

func TestLoader_EmptyPlanDirectoryIsEmptyPlan(t *testing.T) {
	root := t.TempDir()

	model, _, err := NewLoader().Load(context.Background(), root, "")
	require.NoError(t, err)
	assert.Empty(t, model.Plan.Steps)
}
