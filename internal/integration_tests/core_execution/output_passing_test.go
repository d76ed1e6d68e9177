package integration_tests

import (
	"context"
	"reflect"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/provision/internal/registry"
	"github.com/vk/provision/internal/testutil"
	"github.com/zclconf/go-cty/cty"
)

// mockPipelineModule registers a producer runner that returns a value and a
// consumer runner that captures what it received.
type mockPipelineModule struct {
	mu       sync.Mutex
	received string
}

type consumerInput struct {
	Message string `hcl:"message"`
}

func (m *mockPipelineModule) Register(r *registry.Registry) {
	r.RegisterRunner("OnRunProducer", &registry.RegisteredRunner{
		Fn: func(ctx context.Context, input any) (cty.Value, error) {
			return cty.ObjectVal(map[string]cty.Value{
				"value": cty.StringVal("hello from producer"),
			}), nil
		},
	})
	r.RegisterRunner("OnRunConsumer", &registry.RegisteredRunner{
		NewInput:  func() any { return new(consumerInput) },
		InputType: reflect.TypeOf(consumerInput{}),
		Fn: func(ctx context.Context, input *consumerInput) (cty.Value, error) {
			m.mu.Lock()
			m.received = input.Message
			m.mu.Unlock()
			return cty.NilVal, nil
		},
	})
}

const producerManifest = `
runner "producer" {
  lifecycle {
    on_run = "OnRunProducer"
  }

  output "value" {
    type = string
  }
}
`

const consumerManifest = `
runner "consumer" {
  lifecycle {
    on_run = "OnRunConsumer"
  }

  input "message" {
    type = string
  }
}
`

// Referencing another step's output creates an implicit dependency: the
// consumer must run after the producer and see its published value.
func TestCoreExecution_OutputFlowsToImplicitDependent(t *testing.T) {
	mod := &mockPipelineModule{}

	files := map[string]string{
		"modules/producer/manifest.hcl": producerManifest,
		"modules/consumer/manifest.hcl": consumerManifest,
		"plan/main.hcl": `
			step "producer" "origin" {}

			step "consumer" "sink" {
				arguments {
					message = step.producer.origin.output.value
				}
			}
		`,
	}

	result := testutil.RunProvisionTest(t, files, mod)
	require.NoError(t, result.Err)

	mod.mu.Lock()
	defer mod.mu.Unlock()
	assert.Equal(t, "hello from producer", mod.received)

	testutil.AssertStepRan(t, result, "producer", "origin")
	testutil.AssertStepRan(t, result, "consumer", "sink")
}

// Referencing an output the producer's manifest does not declare is a load
// error, caught before anything runs.
func TestCoreExecution_UndeclaredOutputReference_Rejected(t *testing.T) {
	mod := &mockPipelineModule{}

	files := map[string]string{
		"modules/producer/manifest.hcl": producerManifest,
		"modules/consumer/manifest.hcl": consumerManifest,
		"plan/main.hcl": `
			step "producer" "origin" {}

			step "consumer" "sink" {
				arguments {
					message = step.producer.origin.output.no_such_output
				}
			}
		`,
	}

	result := testutil.RunProvisionTest(t, files, mod)
	require.Error(t, result.Err)
	assert.NotContains(t, result.LogOutput, "hello from producer")
}
