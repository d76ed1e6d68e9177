package integration_tests

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/provision/internal/testutil"
)

// A step that depends on two others must only start after both have finished.
func TestConcurrency_FanIn_WaitsForAllDependencies(t *testing.T) {
	sleeper := testutil.NewMockSleeperModule(150 * time.Millisecond)

	files := map[string]string{
		"modules/sleeper/manifest.hcl": testutil.SleeperManifest,
		"plan/main.hcl": `
			step "sleeper" "a" {
				arguments {
					id = "a"
				}
			}

			step "sleeper" "b" {
				arguments {
					id = "b"
				}
			}

			step "sleeper" "join" {
				depends_on = ["sleeper.a", "sleeper.b"]
				arguments {
					id = "join"
				}
			}
		`,
	}

	result := testutil.RunProvisionTest(t, files, sleeper)
	require.NoError(t, result.Err)

	a := sleeper.Record("a")
	b := sleeper.Record("b")
	join := sleeper.Record("join")
	require.NotNil(t, a)
	require.NotNil(t, b)
	require.NotNil(t, join)

	assert.False(t, join.Start.Before(a.End), "join started before dependency 'a' finished")
	assert.False(t, join.Start.Before(b.End), "join started before dependency 'b' finished")
}
