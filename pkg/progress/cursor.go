package progress

import (
	"fmt"

	"protocol-extractor/pkg/domain"
)

// Options selects where in an ordered protocol list a job starts. The
// three addressing modes (explicit document number, numeric offset,
// exact index) all resolve to the same cursor representation.
type Options struct {
	Offset     int    // skip the first N protocols
	Index      int    // start at an exact index, -1 disables
	ResumeFrom string // start at a document number, e.g. "20/12"
}

// Cursor is the resumption point over an ordered protocol list: a start
// position plus the set of protocols already completed. Resolving a
// cursor is a pure read; calling it any number of times yields the same
// remaining-work set.
type Cursor struct {
	Start     int
	completed map[int64]bool
}

// Resolve maps Options onto a cursor for the given ordered list.
func (t *Tracker) Resolve(list []*domain.Protocol, opts Options) (Cursor, error) {
	start := 0
	switch {
	case opts.Index >= 0:
		start = opts.Index
	case opts.Offset > 0:
		start = opts.Offset
	case opts.ResumeFrom != "":
		found := false
		for i, p := range list {
			if p.Number == opts.ResumeFrom {
				start = i
				found = true
				break
			}
		}
		if !found {
			return Cursor{}, fmt.Errorf("protocol %q not in listing", opts.ResumeFrom)
		}
	}
	if start > len(list) {
		return Cursor{}, fmt.Errorf("start position %d beyond listing of %d", start, len(list))
	}

	t.mu.Lock()
	completed := make(map[int64]bool, len(t.completed))
	for id := range t.completed {
		completed[id] = true
	}
	t.mu.Unlock()
	return Cursor{Start: start, completed: completed}, nil
}

// Remaining returns the protocols still to process: everything at or
// after the start position that is not checkpointed completed.
// Protocols recorded as failed or incomplete are included again.
func (c Cursor) Remaining(list []*domain.Protocol) []*domain.Protocol {
	var out []*domain.Protocol
	for i := c.Start; i < len(list); i++ {
		if c.completed[list[i].ID] {
			continue
		}
		out = append(out, list[i])
	}
	return out
}
