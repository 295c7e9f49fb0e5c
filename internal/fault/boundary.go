package fault

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"
)

// Kind classifies how a procedure terminated.
type Kind int

const (
	// Returned means the procedure ran to completion.
	Returned Kind = iota
	// Panicked means the procedure raised a panic that the boundary recovered.
	Panicked
	// Exited means the procedure called runtime.Goexit.
	Exited
	// Aborted means the procedure requested a fatal abort that was contained by a Latch.
	// With the default aborter the process is gone before this can be observed.
	Aborted
	// TimedOut means the configured time bound elapsed first. The procedure's
	// goroutine is abandoned.
	TimedOut
	// Interrupted means the context was cancelled while the procedure was running.
	Interrupted
)

var kindNames = map[Kind]string{
	Returned:    "returned",
	Panicked:    "panicked",
	Exited:      "exited",
	Aborted:     "aborted",
	TimedOut:    "timed_out",
	Interrupted: "interrupted",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Termination describes one observed execution.
type Termination struct {
	Kind Kind

	// Value is the recovered panic value (Panicked only).
	Value any

	// Message is the panic or abort message; empty when none was carried.
	Message string

	// Stack is the panicking goroutine's stack (Panicked only).
	Stack []byte

	Duration time.Duration
}

// Option configures Run.
type Option func(*config)

type config struct {
	timeout time.Duration
	now     func() time.Time
}

// WithTimeout bounds the execution. Zero means no bound.
func WithTimeout(d time.Duration) Option {
	return func(c *config) { c.timeout = d }
}

// WithClock overrides the time source used for Duration.
func WithClock(now func() time.Time) Option {
	return func(c *config) { c.now = now }
}

// Run executes fn inside an isolated fault boundary.
//
// fn runs on its own goroutine. A panic is recovered there and never reaches
// the caller; runtime.Goexit unwinds only that goroutine. Fatal runtime errors
// and aborts under the default aborter end the process and cannot be observed here.
// Under a Latch, an abort fired from a goroutine that fn started is reported as
// Aborted if it happened before fn returned; one fired later is not seen.
func Run(ctx context.Context, fn func(), opts ...Option) Termination {
	cfg := config{now: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}

	// Buffered so an abandoned goroutine can still deliver and exit.
	done := make(chan Termination, 1)
	start := cfg.now()

	_, firedBefore := abortFired()

	go func() {
		returned := false
		defer func() {
			if returned {
				// A goroutine spawned by fn may have aborted; only that goroutine unwound.
				if msg, aborted := abortFired(); aborted && !firedBefore {
					done <- Termination{Kind: Aborted, Message: msg}
					return
				}
				done <- Termination{Kind: Returned}
				return
			}
			if r := recover(); r != nil {
				done <- Termination{
					Kind:    Panicked,
					Value:   r,
					Message: PanicMessage(r),
					Stack:   debug.Stack(),
				}
				return
			}
			// Neither returned nor panicked: the goroutine is unwinding via Goexit.
			if msg, aborted := abortFired(); aborted {
				done <- Termination{Kind: Aborted, Message: msg}
				return
			}
			done <- Termination{Kind: Exited}
		}()
		fn()
		returned = true
	}()

	var timeout <-chan time.Time
	if cfg.timeout > 0 {
		timer := time.NewTimer(cfg.timeout)
		defer timer.Stop()
		timeout = timer.C
	}

	var term Termination
	select {
	case term = <-done:
	case <-timeout:
		term = Termination{Kind: TimedOut, Message: fmt.Sprintf("timed out after %s", cfg.timeout)}
	case <-ctx.Done():
		term = Termination{Kind: Interrupted, Message: ctx.Err().Error()}
	}
	term.Duration = cfg.now().Sub(start)
	return term
}

// PanicMessage renders a recovered panic value as text.
// It returns "" for values that carry no message.
func PanicMessage(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case error:
		return x.Error()
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprintf("%v", x)
	}
}
