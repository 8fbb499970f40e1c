// Package progress is the durable job checkpoint: an append-only record
// stream plus a summary header, both plain JSON on disk so a checkpoint
// can be listed and resumed without the engine.
package progress

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"protocol-extractor/pkg/domain"
)

// ErrStoreUnavailable wraps checkpoint-store write failures. It is the
// only error in the system that must abort the job: continuing without
// durable progress risks silent re-processing.
var ErrStoreUnavailable = errors.New("checkpoint store unavailable")

// Record is one line of the append-only stream.
type Record struct {
	ProtocolID     int64          `json:"protocol_id"`
	ProtocolNumber string         `json:"protocol_number,omitempty"`
	Outcome        domain.Outcome `json:"outcome"`
	Error          string         `json:"error,omitempty"`
	Timestamp      time.Time      `json:"timestamp"`
}

// Header is the summary kept alongside the stream.
type Header struct {
	JobID          string            `json:"job_id"`
	Period         int               `json:"period"`
	Scope          map[string]string `json:"scope,omitempty"`
	TotalExpected  int               `json:"total_expected"`
	CompletedCount int               `json:"completed_count"`
	FailedCount    int               `json:"failed_count"`
	Status         string            `json:"status"`
	StartedAt      time.Time         `json:"started_at"`
	LastUpdate     time.Time         `json:"last_update"`
}

// Tracker owns one job's checkpoint files. It is safe for concurrent
// use; the engine records outcomes from parallel protocol workers.
type Tracker struct {
	mu         sync.Mutex
	headerPath string
	recordPath string
	header     Header
	completed  map[int64]bool
	failed     map[int64]bool
	logger     *zap.Logger
}

// New starts a fresh checkpoint in dir. Scope records the job
// parameters for later inspection.
func New(dir string, period int, scope map[string]string, logger *zap.Logger) (*Tracker, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	id := uuid.NewString()
	t := &Tracker{
		headerPath: filepath.Join(dir, fmt.Sprintf("job_%s.json", id)),
		recordPath: filepath.Join(dir, fmt.Sprintf("job_%s.records.jsonl", id)),
		header: Header{
			JobID:     id,
			Period:    period,
			Scope:     scope,
			Status:    "running",
			StartedAt: time.Now().UTC(),
		},
		completed: make(map[int64]bool),
		failed:    make(map[int64]bool),
		logger:    logger,
	}
	if err := t.writeHeader(); err != nil {
		return nil, err
	}
	return t, nil
}

// Load opens an existing checkpoint from its header path and replays
// the record stream to rebuild the completed/failed sets.
func Load(headerPath string, logger *zap.Logger) (*Tracker, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	b, err := os.ReadFile(headerPath)
	if err != nil {
		return nil, fmt.Errorf("read checkpoint header: %w", err)
	}
	var h Header
	if err := json.Unmarshal(b, &h); err != nil {
		return nil, fmt.Errorf("parse checkpoint header: %w", err)
	}

	t := &Tracker{
		headerPath: headerPath,
		recordPath: recordPathFor(headerPath),
		header:     h,
		completed:  make(map[int64]bool),
		failed:     make(map[int64]bool),
		logger:     logger,
	}
	records, err := readRecords(t.recordPath)
	if err != nil {
		return nil, err
	}
	for _, r := range records {
		switch r.Outcome {
		case domain.OutcomeCompleted:
			t.completed[r.ProtocolID] = true
			delete(t.failed, r.ProtocolID)
		case domain.OutcomeFailed:
			if !t.completed[r.ProtocolID] {
				t.failed[r.ProtocolID] = true
			}
		}
	}
	return t, nil
}

func recordPathFor(headerPath string) string {
	return strings.TrimSuffix(headerPath, ".json") + ".records.jsonl"
}

// HeaderPath returns the checkpoint's header file location, the handle
// a later --resume passes back in.
func (t *Tracker) HeaderPath() string { return t.headerPath }

// JobID returns the job identifier.
func (t *Tracker) JobID() string { return t.header.JobID }

// InitTotal sets the expected protocol count once the listing is known.
func (t *Tracker) InitTotal(n int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.header.TotalExpected = n
	return t.writeHeader()
}

// Record durably appends one protocol outcome and updates the summary
// counters. Any write failure is ErrStoreUnavailable and fatal to the
// job by contract.
func (t *Tracker) Record(protocolID int64, number string, outcome domain.Outcome, errMsg string) error {
	rec := Record{
		ProtocolID:     protocolID,
		ProtocolNumber: number,
		Outcome:        outcome,
		Error:          errMsg,
		Timestamp:      time.Now().UTC(),
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.appendRecord(rec); err != nil {
		return err
	}

	switch outcome {
	case domain.OutcomeCompleted:
		if !t.completed[protocolID] {
			t.completed[protocolID] = true
			t.header.CompletedCount++
		}
		delete(t.failed, protocolID)
	case domain.OutcomeFailed:
		if !t.completed[protocolID] && !t.failed[protocolID] {
			t.failed[protocolID] = true
			t.header.FailedCount++
		}
	}
	return t.writeHeader()
}

// Complete marks the job finished.
func (t *Tracker) Complete() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.header.Status = "completed"
	return t.writeHeader()
}

// IsCompleted reports whether a protocol is already checkpointed as
// completed; re-running from a checkpoint never re-emits such a
// protocol.
func (t *Tracker) IsCompleted(protocolID int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.completed[protocolID]
}

func (t *Tracker) appendRecord(rec Record) error {
	f, err := os.OpenFile(t.recordPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	defer f.Close()

	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if _, err := f.Write(append(b, '\n')); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (t *Tracker) writeHeader() error {
	t.header.LastUpdate = time.Now().UTC()
	b, err := json.MarshalIndent(t.header, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	tmp := t.headerPath + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if err := os.Rename(tmp, t.headerPath); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func readRecords(path string) ([]Record, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open checkpoint records: %w", err)
	}
	defer f.Close()

	var out []Record
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var r Record
		if err := json.Unmarshal([]byte(line), &r); err != nil {
			// A torn final line from an interrupted run is tolerated;
			// its protocol simply stays incomplete.
			continue
		}
		out = append(out, r)
	}
	return out, sc.Err()
}
