package integration_tests

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/provision/internal/testutil"
)

func TestErrorHandling_StepTimeout_FailsRun(t *testing.T) {
	sleeper := testutil.NewMockSleeperModule(5 * time.Second)

	files := map[string]string{
		"modules/sleeper/manifest.hcl": testutil.SleeperManifest,
		"plan/main.hcl": `
			step "sleeper" "slow" {
				timeout = "50ms"
				arguments {
					id = "slow"
				}
			}
		`,
	}

	start := time.Now()
	result := testutil.RunProvisionTest(t, files, sleeper)
	elapsed := time.Since(start)

	require.Error(t, result.Err)
	assert.True(t, errors.Is(result.Err, context.DeadlineExceeded),
		"expected a deadline error, got: %v", result.Err)
	assert.Less(t, elapsed, 3*time.Second,
		"the run should end when the step times out, not when the handler returns")
}
