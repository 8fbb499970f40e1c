// Package cache is the content-addressed local store for fetched
// structured documents. One file artifact is written per
// (protocol, variant) key; a small sqlite index maps keys to artifact
// locations, content digests and validation timestamps.
package cache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// FetchFunc is the external transport collaborator: it produces the raw
// bytes for a key or fails. The cache never retries it.
type FetchFunc func(ctx context.Context) ([]byte, error)

// ValidateFunc is the cheap structural revalidation applied to cached
// bytes before they are served. A non-nil error evicts the entry.
type ValidateFunc func(b []byte) error

// Store is the document cache. It is safe for concurrent use: access is
// serialized per (protocol, variant) key, so one key's in-flight fetch
// never blocks another protocol's lookup.
type Store struct {
	dir      string
	db       *sql.DB
	validate ValidateFunc
	logger   *zap.Logger

	mu   sync.Mutex // guards keys only
	keys map[string]*sync.Mutex
}

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	protocol_id  INTEGER NOT NULL,
	variant      TEXT    NOT NULL,
	path         TEXT    NOT NULL,
	sha256       TEXT    NOT NULL,
	root_name    TEXT    NOT NULL,
	validated_at TIMESTAMP NOT NULL,
	PRIMARY KEY (protocol_id, variant)
);`

// Open opens (creating if needed) a cache rooted at dir. The validate
// function may be nil, in which case entries are served digest-checked
// but without a structural probe.
func Open(dir string, validate ValidateFunc, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	db, err := sql.Open("sqlite", filepath.Join(dir, "index.db"))
	if err != nil {
		return nil, fmt.Errorf("open cache index: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init cache index: %w", err)
	}
	return &Store{
		dir:      dir,
		db:       db,
		validate: validate,
		logger:   logger,
		keys:     make(map[string]*sync.Mutex),
	}, nil
}

// keyLock returns the mutex serializing one (protocol, variant) key.
func (s *Store) keyLock(protocolID int64, variant string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := fmt.Sprintf("%d/%s", protocolID, variant)
	l, ok := s.keys[k]
	if !ok {
		l = &sync.Mutex{}
		s.keys[k] = l
	}
	return l
}

// Close closes the index handle.
func (s *Store) Close() error { return s.db.Close() }

// GetOrFetch returns the cached bytes for (protocolID, variant) when the
// entry revalidates, otherwise invokes fetch, stores the result, and
// returns it. Fetch errors pass through untouched so callers keep the
// transient/permanent distinction.
func (s *Store) GetOrFetch(ctx context.Context, protocolID int64, variant string, fetch FetchFunc) ([]byte, error) {
	l := s.keyLock(protocolID, variant)
	l.Lock()
	defer l.Unlock()

	if b, ok := s.lookup(ctx, protocolID, variant); ok {
		return b, nil
	}

	b, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.put(ctx, protocolID, variant, b); err != nil {
		// A failed write must not lose the fetched bytes.
		s.logger.Warn("cache write failed",
			zap.Int64("protocol_id", protocolID),
			zap.String("variant", variant),
			zap.Error(err))
	}
	return b, nil
}

// Put stores bytes for a key, replacing any previous entry. Used when
// the pipeline produces a repaired copy that must shadow the raw fetch.
func (s *Store) Put(ctx context.Context, protocolID int64, variant string, b []byte) error {
	l := s.keyLock(protocolID, variant)
	l.Lock()
	defer l.Unlock()
	return s.put(ctx, protocolID, variant, b)
}

// Invalidate removes a key. Invalidation is always explicit; entries
// never expire on time alone.
func (s *Store) Invalidate(ctx context.Context, protocolID int64, variant string) error {
	l := s.keyLock(protocolID, variant)
	l.Lock()
	defer l.Unlock()
	return s.evict(ctx, protocolID, variant)
}

func (s *Store) lookup(ctx context.Context, protocolID int64, variant string) ([]byte, bool) {
	var path, digest string
	err := s.db.QueryRowContext(ctx,
		`SELECT path, sha256 FROM documents WHERE protocol_id = ? AND variant = ?`,
		protocolID, variant).Scan(&path, &digest)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false
	}
	if err != nil {
		s.logger.Warn("cache index read failed", zap.Error(err))
		return nil, false
	}

	b, err := os.ReadFile(path)
	if err != nil || digestOf(b) != digest {
		_ = s.evict(ctx, protocolID, variant)
		return nil, false
	}
	if s.validate != nil {
		if err := s.validate(b); err != nil {
			s.logger.Info("evicting entry that failed revalidation",
				zap.Int64("protocol_id", protocolID),
				zap.String("variant", variant),
				zap.Error(err))
			_ = s.evict(ctx, protocolID, variant)
			return nil, false
		}
	}
	return b, true
}

func (s *Store) put(ctx context.Context, protocolID int64, variant string, b []byte) error {
	path := s.artifactPath(protocolID, variant)
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (protocol_id, variant, path, sha256, root_name, validated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (protocol_id, variant)
		DO UPDATE SET path = excluded.path, sha256 = excluded.sha256,
		              root_name = excluded.root_name, validated_at = excluded.validated_at`,
		protocolID, variant, path, digestOf(b), rootNameOf(b), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("index artifact: %w", err)
	}
	return nil
}

func (s *Store) evict(ctx context.Context, protocolID int64, variant string) error {
	var path string
	err := s.db.QueryRowContext(ctx,
		`SELECT path FROM documents WHERE protocol_id = ? AND variant = ?`,
		protocolID, variant).Scan(&path)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE protocol_id = ? AND variant = ?`,
		protocolID, variant); err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *Store) artifactPath(protocolID int64, variant string) string {
	return filepath.Join(s.dir, fmt.Sprintf("%d_%s.dat", protocolID, variant))
}

func digestOf(b []byte) string {
	h := sha256.Sum256(b)
	return hex.EncodeToString(h[:])
}

// rootNameOf extracts a minimal structural signature for the index; it
// is informational for humans inspecting the cache, the served bytes are
// always re-probed through the validate function.
func rootNameOf(b []byte) string {
	for i := 0; i < len(b); i++ {
		if b[i] != '<' {
			continue
		}
		if i+1 < len(b) && (b[i+1] == '?' || b[i+1] == '!') {
			continue
		}
		j := i + 1
		for j < len(b) && b[j] != ' ' && b[j] != '>' && b[j] != '\n' && b[j] != '/' {
			j++
		}
		return string(b[i+1 : j])
	}
	return ""
}
