package journal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJournal_AppendAndReplay(t *testing.T) {
	stateDir := t.TempDir()

	j, err := Open(stateDir)
	require.NoError(t, err)

	require.NoError(t, j.Append(Record{RunID: "r1", Step: "step.shell.a", Status: StatusRunning}))
	require.NoError(t, j.Append(Record{RunID: "r1", Step: "step.shell.a", Status: StatusSucceeded}))
	require.NoError(t, j.Append(Record{RunID: "r1", Step: "step.shell.b", Status: StatusFailed, Detail: "exit status 1"}))
	require.NoError(t, j.Close())

	records, err := Replay(stateDir)
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, "step.shell.a", records[0].Step)
	assert.Equal(t, StatusRunning, records[0].Status)
	assert.False(t, records[0].Timestamp.IsZero(), "Append should fill in a timestamp")
	assert.Equal(t, "exit status 1", records[2].Detail)
}

func TestJournal_ReplayMissingFileIsEmptyHistory(t *testing.T) {
	records, err := Replay(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestJournal_LatestWinsPerStep(t *testing.T) {
	now := time.Now().UTC()
	records := []Record{
		{RunID: "r1", Step: "step.shell.a", Status: StatusRunning, Timestamp: now},
		{RunID: "r1", Step: "step.shell.a", Status: StatusFailed, Timestamp: now},
		{RunID: "r2", Step: "step.shell.a", Status: StatusSucceeded, Timestamp: now},
		{RunID: "r2", Step: "step.shell.b", Status: StatusRunning, Timestamp: now},
	}

	latest := Latest(records)
	require.Len(t, latest, 2)
	assert.Equal(t, StatusSucceeded, latest["step.shell.a"].Status)
	assert.Equal(t, "r2", latest["step.shell.a"].RunID)
	assert.Equal(t, StatusRunning, latest["step.shell.b"].Status)
}

func TestJournal_CorruptLineIsFatal(t *testing.T) {
	stateDir := t.TempDir()

	j, err := Open(stateDir)
	require.NoError(t, err)
	require.NoError(t, j.Append(Record{RunID: "r1", Step: "step.shell.a", Status: StatusSucceeded}))
	require.NoError(t, j.Close())

	// Tack a half-written line onto the end, as a crash mid-append would.
	f, err := os.OpenFile(filepath.Join(stateDir, FileName), os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(`{"run_id": "r1", "step": "step.shell.b", "st`)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, err = Replay(stateDir)
	require.Error(t, err)

	var corrupt *CorruptError
	require.ErrorAs(t, err, &corrupt)
	assert.Equal(t, 2, corrupt.Line)
}

func TestJournal_OversizedDetailStaysReplayable(t *testing.T) {
	stateDir := t.TempDir()

	// A failed shell step's detail carries captured stderr, which can be huge.
	hugeDetail := strings.Repeat("x", 100*1024)

	j, err := Open(stateDir)
	require.NoError(t, err)
	require.NoError(t, j.Append(Record{RunID: "r1", Step: "step.shell.a", Status: StatusFailed, Detail: hugeDetail}))
	require.NoError(t, j.Close())

	records, err := Replay(stateDir)
	require.NoError(t, err, "Append must never write a record Replay cannot read")
	require.Len(t, records, 1)

	assert.Less(t, len(records[0].Detail), len(hugeDetail))
	assert.Contains(t, records[0].Detail, "truncated")
}

func TestJournal_ResetClearsHistory(t *testing.T) {
	stateDir := t.TempDir()

	j, err := Open(stateDir)
	require.NoError(t, err)
	require.NoError(t, j.Append(Record{RunID: "r1", Step: "step.shell.a", Status: StatusSucceeded}))
	require.NoError(t, j.Close())

	require.NoError(t, Reset(stateDir))

	records, err := Replay(stateDir)
	require.NoError(t, err)
	assert.Empty(t, records)

	// Resetting twice must not fail.
	require.NoError(t, Reset(stateDir))
}
