// Package journal implements the persistent state tracker: an append-only log
// of per-step status transitions. Replaying the log yields the latest known
// status for every step, which is what makes re-runs resumable.
package journal

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileName is the journal file created under the state directory.
const FileName = "journal.jsonl"

// maxDetailLen bounds the Detail field of an appended record. Failure details
// embed handler error text (which for shell steps includes captured stderr),
// and an oversized record must never make the journal unreplayable.
const maxDetailLen = 8 * 1024

// maxLineLen is the replay scanner's line limit, well above anything Append
// can produce.
const maxLineLen = 1024 * 1024

// Status is the recorded execution state of a step.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

// Record is a single journal entry: one status transition for one step.
type Record struct {
	RunID     string    `json:"run_id"`
	Step      string    `json:"step"`
	Status    Status    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Detail    string    `json:"detail,omitempty"`
}

// CorruptError reports a journal line that could not be decoded. The state is
// unusable until the journal is reset.
type CorruptError struct {
	Path string
	Line int
	Err  error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("state journal %s is corrupt at line %d: %v (run 'provision reset' to clear)", e.Path, e.Line, e.Err)
}

func (e *CorruptError) Unwrap() error {
	return e.Err
}

// Journal is an open, append-only state log. All writes go through a single
// writer lock; each record is flushed and synced before Append returns.
type Journal struct {
	mu   sync.Mutex
	path string
	file *os.File
}

// Open creates the state directory if needed and opens the journal for
// appending.
func Open(stateDir string) (*Journal, error) {
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create state directory %s: %w", stateDir, err)
	}
	path := filepath.Join(stateDir, FileName)
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open state journal %s: %w", path, err)
	}
	return &Journal{path: path, file: file}, nil
}

// Append writes a single record to the journal. A zero timestamp is filled in
// with the current time.
func (j *Journal) Append(rec Record) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	if len(rec.Detail) > maxDetailLen {
		rec.Detail = rec.Detail[:maxDetailLen] + "... (truncated)"
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal journal record: %w", err)
	}
	data = append(data, '\n')
	if _, err := j.file.Write(data); err != nil {
		return fmt.Errorf("failed to append to state journal: %w", err)
	}
	return j.file.Sync()
}

// Close closes the underlying file.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.file.Close()
}

// Replay reads the full journal from the state directory in order. A missing
// journal is an empty history, not an error. A line that fails to decode is
// fatal and reported as a *CorruptError.
func Replay(stateDir string) ([]Record, error) {
	path := filepath.Join(stateDir, FileName)
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open state journal %s: %w", path, err)
	}
	defer file.Close()

	var records []Record
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineLen)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, &CorruptError{Path: path, Line: line, Err: err}
		}
		if rec.Step == "" || rec.Status == "" {
			return nil, &CorruptError{Path: path, Line: line, Err: fmt.Errorf("record is missing step or status")}
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read state journal %s: %w", path, err)
	}
	return records, nil
}

// Latest folds a replayed history into the most recent record per step.
func Latest(records []Record) map[string]Record {
	latest := make(map[string]Record, len(records))
	for _, rec := range records {
		latest[rec.Step] = rec
	}
	return latest
}

// Reset removes the journal file, clearing all recorded state. Resetting a
// state directory that has no journal is a no-op.
func Reset(stateDir string) error {
	path := filepath.Join(stateDir, FileName)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to reset state journal %s: %w", path, err)
	}
	return nil
}
