package progress

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Summary describes one checkpoint for listing, loadable without the
// engine: it is a pure read of the header and record files.
type Summary struct {
	Header
	Path string `json:"path"`
}

// List returns the checkpoints under dir, newest first.
func List(dir string) ([]Summary, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read checkpoint dir: %w", err)
	}

	var out []Summary
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, "job_") ||
			!strings.HasSuffix(name, ".json") || strings.HasSuffix(name, ".records.jsonl") {
			continue
		}
		path := filepath.Join(dir, name)
		b, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var h Header
		if err := json.Unmarshal(b, &h); err != nil {
			continue
		}
		out = append(out, Summary{Header: h, Path: path})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastUpdate.After(out[j].LastUpdate)
	})
	return out, nil
}
