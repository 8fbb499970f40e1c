package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"protocol-extractor/pkg/domain"
)

// FileSink writes one JSON-lines file per protocol into a directory.
// Rewriting a protocol's file wholesale keeps saves idempotent.
type FileSink struct {
	dir string
	mu  sync.Mutex
}

// NewFileSink creates the output directory if needed.
func NewFileSink(dir string) (*FileSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create sink dir: %w", err)
	}
	return &FileSink{dir: dir}, nil
}

// SaveSpeeches writes the protocol's speeches as JSONL, replacing any
// previous file for the same protocol atomically.
func (s *FileSink) SaveSpeeches(_ context.Context, p *domain.Protocol, speeches []*domain.ExtractedSpeech) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	final := filepath.Join(s.dir, fmt.Sprintf("speeches_%d_%d.jsonl", p.Period, p.Session))
	tmp := final + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create speech file: %w", err)
	}
	enc := json.NewEncoder(f)
	for _, sp := range speeches {
		if err := enc.Encode(sp); err != nil {
			f.Close()
			os.Remove(tmp)
			return fmt.Errorf("encode speech %d: %w", sp.ID, err)
		}
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close speech file: %w", err)
	}
	return os.Rename(tmp, final)
}

// Close is a no-op; files are flushed per save.
func (s *FileSink) Close(context.Context) error { return nil }
