package app

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/vk/provision/internal/journal"
)

// Status renders the latest known per-step state from the journal. It needs
// no loaded plan, only the state directory.
func Status(outW io.Writer, stateDir string) error {
	records, err := journal.Replay(stateDir)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(outW, "No provisioning state recorded.")
		return nil
	}

	latest := journal.Latest(records)
	steps := make([]string, 0, len(latest))
	for step := range latest {
		steps = append(steps, step)
	}
	sort.Strings(steps)

	fmt.Fprintf(outW, "%-48s %-10s %-20s %s\n", "STEP", "STATUS", "TIMESTAMP", "DETAIL")
	for _, step := range steps {
		rec := latest[step]
		fmt.Fprintf(outW, "%-48s %-10s %-20s %s\n", rec.Step, rec.Status, rec.Timestamp.UTC().Format(time.RFC3339), rec.Detail)
	}
	return nil
}

// Reset clears all recorded provisioning state.
func Reset(outW io.Writer, stateDir string) error {
	if err := journal.Reset(stateDir); err != nil {
		return err
	}
	fmt.Fprintln(outW, "Provisioning state cleared.")
	return nil
}
