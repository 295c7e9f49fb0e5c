package harness

import (
	"fmt"
	"time"
)

// OutcomeKind tags an Outcome.
type OutcomeKind int

const (
	// Passed: the procedure behaved as registered.
	Passed OutcomeKind = iota
	// Failed: a check failed, a time bound elapsed, or an expected abnormal
	// termination did not happen.
	Failed
	// AbnormallyTerminated: an unexpected panic (or runtime.Goexit).
	AbnormallyTerminated
	// ProcessAborted: a fatal abort. It ends the run.
	ProcessAborted
)

// Messages synthesized by the engine.
const (
	MsgMissingAbnormalTermination = "expected abnormal termination but procedure completed normally"
	MsgNoMessage                  = "<no message>"
	MsgGoexit                     = "procedure exited via runtime.Goexit"
)

var outcomeNames = [...]string{
	Passed:               "passed",
	Failed:               "failed",
	AbnormallyTerminated: "panicked",
	ProcessAborted:       "aborted",
}

func (k OutcomeKind) String() string {
	if k >= 0 && int(k) < len(outcomeNames) {
		return outcomeNames[k]
	}
	return fmt.Sprintf("outcome(%d)", int(k))
}

// ParseOutcomeKind is the inverse of OutcomeKind.String.
func ParseOutcomeKind(s string) (OutcomeKind, error) {
	for i, name := range outcomeNames {
		if name == s {
			return OutcomeKind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown outcome kind %q", s)
}

// MarshalText encodes the kind by name for JSON and YAML.
func (k OutcomeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *OutcomeKind) UnmarshalText(b []byte) error {
	parsed, err := ParseOutcomeKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Outcome is the classified result of running one test case.
type Outcome struct {
	Kind    OutcomeKind `json:"kind" yaml:"kind"`
	Message string      `json:"message,omitempty" yaml:"message,omitempty"`
}

// Pass returns a Passed outcome.
func Pass() Outcome { return Outcome{Kind: Passed} }

// Fail returns a Failed outcome.
func Fail(msg string) Outcome { return Outcome{Kind: Failed, Message: msg} }

// Terminated returns an AbnormallyTerminated outcome. An empty message is
// replaced with MsgNoMessage.
func Terminated(msg string) Outcome {
	if msg == "" {
		msg = MsgNoMessage
	}
	return Outcome{Kind: AbnormallyTerminated, Message: msg}
}

// Aborted returns a ProcessAborted outcome.
func Aborted(msg string) Outcome { return Outcome{Kind: ProcessAborted, Message: msg} }

func (o Outcome) String() string {
	if o.Message == "" {
		return o.Kind.String()
	}
	return fmt.Sprintf("%s: %s", o.Kind, o.Message)
}

// Entry is one line of a Report.
type Entry struct {
	Name     string        `json:"name" yaml:"name"`
	Outcome  Outcome       `json:"outcome" yaml:"outcome"`
	Duration time.Duration `json:"duration_ns" yaml:"duration"`
}

// Report is the ordered result of one run.
type Report struct {
	// Entries are in registration order. Cases that never ran are absent.
	Entries []Entry `json:"entries" yaml:"entries"`

	Passed               int `json:"passed" yaml:"passed"`
	Failed               int `json:"failed" yaml:"failed"`
	AbnormallyTerminated int `json:"panicked" yaml:"panicked"`

	// Planned is the number of cases handed to the run.
	Planned int `json:"planned" yaml:"planned"`

	// Aborted is set when the run ended early, by a fatal abort or a cancellation.
	Aborted       bool   `json:"aborted" yaml:"aborted"`
	AbortedDuring string `json:"aborted_during,omitempty" yaml:"aborted_during,omitempty"`
	AbortReason   string `json:"abort_reason,omitempty" yaml:"abort_reason,omitempty"`
}

// Total returns the number of recorded entries.
func (r *Report) Total() int { return len(r.Entries) }

// NotRun returns how many planned cases have no entry.
func (r *Report) NotRun() int {
	if n := r.Planned - len(r.Entries); n > 0 {
		return n
	}
	return 0
}

// OK reports whether every entry passed and the run was not truncated.
func (r *Report) OK() bool {
	if r.Aborted {
		return false
	}
	for _, e := range r.Entries {
		if e.Outcome.Kind != Passed {
			return false
		}
	}
	return true
}

// Lookup returns the entry for name.
func (r *Report) Lookup(name string) (Entry, bool) {
	for _, e := range r.Entries {
		if e.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}

// Names returns entry names in report order.
func (r *Report) Names() []string {
	names := make([]string, len(r.Entries))
	for i, e := range r.Entries {
		names[i] = e.Name
	}
	return names
}
