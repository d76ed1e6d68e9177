package integration_tests

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/provision/internal/app"
	"github.com/vk/provision/internal/journal"
	"github.com/vk/provision/internal/testutil"
)

func TestState_StatusReportsLatestPerStep(t *testing.T) {
	stateDir := filepath.Join(t.TempDir(), "state")
	files := map[string]string{
		"modules/counter/manifest.hcl": counterManifest,
		"plan/main.hcl":                idempotentPlan,
	}

	result := testutil.RunProvisionTestWithOptions(t, files, testutil.Options{StateDir: stateDir}, &countingModule{})
	require.NoError(t, result.Err)

	var out bytes.Buffer
	require.NoError(t, app.Status(&out, stateDir))
	assert.Contains(t, out.String(), "step.counter.a")
	assert.Contains(t, out.String(), "step.counter.b")
	assert.Contains(t, out.String(), "succeeded")
}

func TestState_StatusRendersTimestampsInUTC(t *testing.T) {
	stateDir := filepath.Join(t.TempDir(), "state")

	j, err := journal.Open(stateDir)
	require.NoError(t, err)
	require.NoError(t, j.Append(journal.Record{
		RunID:     "r1",
		Step:      "step.counter.a",
		Status:    journal.StatusSucceeded,
		Timestamp: time.Date(2026, 1, 2, 3, 4, 5, 0, time.FixedZone("UTC-5", -5*3600)),
	}))
	require.NoError(t, j.Close())

	var out bytes.Buffer
	require.NoError(t, app.Status(&out, stateDir))
	assert.Contains(t, out.String(), "2026-01-02T08:04:05Z")
}

func TestState_StatusWithNoHistory(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, app.Status(&out, filepath.Join(t.TempDir(), "state")))
	assert.Contains(t, out.String(), "No provisioning state recorded.")
}

func TestState_ResetClearsReplayEligibility(t *testing.T) {
	stateDir := filepath.Join(t.TempDir(), "state")
	mod := &countingModule{}
	files := map[string]string{
		"modules/counter/manifest.hcl": counterManifest,
		"plan/main.hcl":                idempotentPlan,
	}

	result := testutil.RunProvisionTestWithOptions(t, files, testutil.Options{StateDir: stateDir}, mod)
	require.NoError(t, result.Err)
	require.Equal(t, int32(2), mod.executions.Load())

	var out bytes.Buffer
	require.NoError(t, app.Reset(&out, stateDir))
	assert.Contains(t, out.String(), "Provisioning state cleared.")

	result = testutil.RunProvisionTestWithOptions(t, files, testutil.Options{StateDir: stateDir}, mod)
	require.NoError(t, result.Err)
	assert.Equal(t, int32(4), mod.executions.Load(),
		"after a reset every step must execute again")
}
