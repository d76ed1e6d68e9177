package integration_tests

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/provision/internal/testutil"
)

func TestErrorHandling_DuplicateStepAddress_RejectedAtLoad(t *testing.T) {
	files := map[string]string{
		"modules/noop/manifest.hcl": testutil.NoOpManifest,
		"plan/main.hcl": `
			step "noop" "same" {}
			step "noop" "same" {}
		`,
	}

	result := testutil.RunProvisionTest(t, files, &testutil.NoOpModule{})

	require.Error(t, result.Err)
	assert.Contains(t, result.Err.Error(), "duplicate step")
}

func TestErrorHandling_UnknownDependency_Rejected(t *testing.T) {
	files := map[string]string{
		"modules/noop/manifest.hcl": testutil.NoOpManifest,
		"plan/main.hcl": `
			step "noop" "a" {
				depends_on = ["noop.ghost"]
			}
		`,
	}

	result := testutil.RunProvisionTest(t, files, &testutil.NoOpModule{})

	require.Error(t, result.Err)
	assert.Contains(t, result.Err.Error(), "non-existent step")
}

func TestErrorHandling_UnknownRunnerType_Rejected(t *testing.T) {
	files := map[string]string{
		"modules/noop/manifest.hcl": testutil.NoOpManifest,
		"plan/main.hcl": `
			step "ghostrunner" "a" {}
		`,
	}

	result := testutil.RunProvisionTest(t, files, &testutil.NoOpModule{})

	require.Error(t, result.Err)
	assert.Contains(t, result.Err.Error(), "unknown runner type")
}

func TestErrorHandling_MissingRequiredArgument_FailsStep(t *testing.T) {
	mod := &mockFailSpyModule{}

	files := map[string]string{
		"modules/spy/manifest.hcl": spyManifest,
		"plan/main.hcl": `
			step "spy" "incomplete" {}
		`,
	}

	result := testutil.RunProvisionTest(t, files, mod)

	require.Error(t, result.Err)
	assert.Contains(t, result.Err.Error(), "missing required argument")
}
