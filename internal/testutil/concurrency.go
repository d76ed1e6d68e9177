package testutil

import (
	"context"
	"reflect"
	"sync"
	"time"

	"github.com/vk/provision/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// MockSleeperModule is a shared, self-contained module for concurrency tests.
// It records the execution window of each step that uses it.
type MockSleeperModule struct {
	ExecutionTimes map[string]*ExecutionRecord
	mu             sync.Mutex
	sleepDuration  time.Duration
}

// SleeperManifest is the manifest HCL matching the sleeper runner.
const SleeperManifest = `
runner "sleeper" {
  lifecycle {
    on_run = "OnRunSleeper"
  }

  input "id" {
    type = string
  }
}
`

// NewMockSleeperModule creates a new sleeper module for testing.
func NewMockSleeperModule(sleep time.Duration) *MockSleeperModule {
	return &MockSleeperModule{
		ExecutionTimes: make(map[string]*ExecutionRecord),
		sleepDuration:  sleep,
	}
}

// Record returns the execution record for the given id, or nil if the step
// never ran.
func (m *MockSleeperModule) Record(id string) *ExecutionRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ExecutionTimes[id]
}

// Register registers the "sleeper" runner's Go handler.
func (m *MockSleeperModule) Register(r *registry.Registry) {
	type sleeperInput struct {
		ID string `hcl:"id"`
	}

	r.RegisterRunner("OnRunSleeper", &registry.RegisteredRunner{
		NewInput:  func() any { return new(sleeperInput) },
		InputType: reflect.TypeOf(sleeperInput{}),
		Fn: func(ctx context.Context, input *sleeperInput) (cty.Value, error) {
			startTime := time.Now()
			select {
			case <-time.After(m.sleepDuration):
			case <-ctx.Done():
				return cty.NilVal, ctx.Err()
			}
			endTime := time.Now()

			m.mu.Lock()
			m.ExecutionTimes[input.ID] = &ExecutionRecord{Start: startTime, End: endTime}
			m.mu.Unlock()

			return cty.NilVal, nil
		},
	})
}
