package testutil

import (
	"fmt"
	"sync"
)

// SequenceRunIDs generates run IDs "<prefix>-0001", "<prefix>-0002", ...
//
// Store tests use it in place of UUIDv7 so golden output stays stable.
type SequenceRunIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequenceRunIDs creates a generator. An empty prefix becomes "run".
func NewSequenceRunIDs(prefix string) *SequenceRunIDs {
	if prefix == "" {
		prefix = "run"
	}
	return &SequenceRunIDs{prefix: prefix}
}

// NewRunID returns the next ID in sequence.
func (g *SequenceRunIDs) NewRunID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}
