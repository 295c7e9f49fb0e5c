package harness

import (
	"fmt"
	"sync"
	"time"
)

// ReportBuilder collects outcomes for one run.
//
// Record may be called from several goroutines; the finished report lists
// entries in the order the names were given to Begin, whatever the order of
// completion.
type ReportBuilder struct {
	mu       sync.Mutex
	names    []string
	index    map[string]int
	slots    []*Entry
	finished bool

	aborted       bool
	abortedDuring string
	abortReason   string
}

// Begin starts a report for the planned cases, given in registration order.
func Begin(names ...string) *ReportBuilder {
	b := &ReportBuilder{
		names: append([]string(nil), names...),
		index: make(map[string]int, len(names)),
		slots: make([]*Entry, len(names)),
	}
	for i, name := range names {
		b.index[name] = i
	}
	return b
}

// Record stores the outcome for name. A ProcessAborted outcome also marks
// the run as aborted during that case.
func (b *ReportBuilder) Record(name string, outcome Outcome, d time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.finished {
		return ErrFinished
	}
	i, ok := b.index[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCase, name)
	}
	if b.slots[i] != nil {
		return fmt.Errorf("%w: %q", ErrAlreadyRecorded, name)
	}
	b.slots[i] = &Entry{Name: name, Outcome: outcome, Duration: d}

	if outcome.Kind == ProcessAborted && !b.aborted {
		b.aborted = true
		b.abortedDuring = name
		b.abortReason = outcome.Message
	}
	return nil
}

// Abort marks the run as aborted during name without recording an outcome
// for it. The first abort wins.
func (b *ReportBuilder) Abort(name, reason string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.aborted || b.finished {
		return
	}
	b.aborted = true
	b.abortedDuring = name
	b.abortReason = reason
}

// Truncate marks the run as ended early without attributing it to a case.
// The first reason wins.
func (b *ReportBuilder) Truncate(reason string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.aborted || b.finished {
		return
	}
	b.aborted = true
	b.abortReason = reason
}

// Recorded reports whether name already has an outcome.
func (b *ReportBuilder) Recorded(name string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	i, ok := b.index[name]
	return ok && b.slots[i] != nil
}

// Finish freezes the builder and returns the report. Counts are computed
// here in a single pass. Calling Finish again returns an equal report.
func (b *ReportBuilder) Finish() *Report {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.finished = true

	r := &Report{
		Entries:       make([]Entry, 0, len(b.slots)),
		Planned:       len(b.names),
		Aborted:       b.aborted,
		AbortedDuring: b.abortedDuring,
		AbortReason:   b.abortReason,
	}
	for _, slot := range b.slots {
		if slot == nil {
			continue
		}
		r.Entries = append(r.Entries, *slot)
		switch slot.Outcome.Kind {
		case Passed:
			r.Passed++
		case Failed:
			r.Failed++
		case AbnormallyTerminated:
			r.AbnormallyTerminated++
		}
	}
	return r
}
