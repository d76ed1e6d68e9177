package integration_tests

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/provision/internal/dag"
	"github.com/vk/provision/internal/registry"
	"github.com/vk/provision/internal/testutil"
	"github.com/zclconf/go-cty/cty"
)

// countingModule counts how many step executions actually happened.
type countingModule struct {
	executions atomic.Int32
}

const counterManifest = `
runner "counter" {
  lifecycle {
    on_run = "OnRunCounter"
  }
}
`

func (m *countingModule) Register(r *registry.Registry) {
	r.RegisterRunner("OnRunCounter", &registry.RegisteredRunner{
		Fn: func(ctx context.Context, input any) (cty.Value, error) {
			m.executions.Add(1)
			return cty.NilVal, nil
		},
	})
}

func TestErrorHandling_CyclicPlan_RejectedBeforeAnyExecution(t *testing.T) {
	mod := &countingModule{}

	files := map[string]string{
		"modules/counter/manifest.hcl": counterManifest,
		"plan/main.hcl": `
			step "counter" "a" {
				depends_on = ["counter.b"]
			}

			step "counter" "b" {
				depends_on = ["counter.a"]
			}
		`,
	}

	result := testutil.RunProvisionTest(t, files, mod)

	require.Error(t, result.Err)
	var cycleErr *dag.CycleError
	assert.True(t, errors.As(result.Err, &cycleErr),
		"expected a CycleError, got: %v", result.Err)

	assert.Equal(t, int32(0), mod.executions.Load(),
		"no step may execute when the plan contains a cycle")
}

func TestErrorHandling_SelfDependency_Rejected(t *testing.T) {
	mod := &countingModule{}

	files := map[string]string{
		"modules/counter/manifest.hcl": counterManifest,
		"plan/main.hcl": `
			step "counter" "a" {
				depends_on = ["counter.a"]
			}
		`,
	}

	result := testutil.RunProvisionTest(t, files, mod)

	require.Error(t, result.Err)
	assert.Equal(t, int32(0), mod.executions.Load())
}
