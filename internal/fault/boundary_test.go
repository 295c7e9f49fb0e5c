package fault

import (
	"bytes"
	"context"
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_Returned(t *testing.T) {
	ran := false
	term := Run(context.Background(), func() { ran = true })

	assert.True(t, ran)
	assert.Equal(t, Returned, term.Kind)
	assert.Empty(t, term.Message)
}

func TestRun_PanicWithString(t *testing.T) {
	term := Run(context.Background(), func() { panic("boom") })

	assert.Equal(t, Panicked, term.Kind)
	assert.Equal(t, "boom", term.Message)
	assert.Equal(t, "boom", term.Value)
	assert.NotEmpty(t, term.Stack)
}

func TestRun_PanicWithError(t *testing.T) {
	sentinel := errors.New("invariant violated")
	term := Run(context.Background(), func() { panic(sentinel) })

	assert.Equal(t, Panicked, term.Kind)
	assert.Equal(t, "invariant violated", term.Message)
	assert.Same(t, sentinel, term.Value)
}

func TestRun_RuntimeError(t *testing.T) {
	term := Run(context.Background(), func() {
		var m map[string]int
		m["x"] = 1
	})

	assert.Equal(t, Panicked, term.Kind)
	assert.Contains(t, term.Message, "assignment to entry in nil map")
}

func TestRun_PanicNil(t *testing.T) {
	term := Run(context.Background(), func() { panic(nil) })

	assert.Equal(t, Panicked, term.Kind)
	var pn *runtime.PanicNilError
	assert.ErrorAs(t, term.Value.(error), &pn)
}

func TestRun_PanicWithoutMessage(t *testing.T) {
	term := Run(context.Background(), func() { panic("") })

	assert.Equal(t, Panicked, term.Kind)
	assert.Empty(t, term.Message)
}

func TestRun_Goexit(t *testing.T) {
	term := Run(context.Background(), func() { runtime.Goexit() })
	assert.Equal(t, Exited, term.Kind)
}

func TestRun_PanicDoesNotEscape(t *testing.T) {
	// A panicking procedure must leave the caller able to run the next one.
	first := Run(context.Background(), func() { panic("first") })
	second := Run(context.Background(), func() {})

	assert.Equal(t, Panicked, first.Kind)
	assert.Equal(t, Returned, second.Kind)
}

func TestRun_Timeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	term := Run(context.Background(), func() { <-release }, WithTimeout(20*time.Millisecond))

	assert.Equal(t, TimedOut, term.Kind)
	assert.Equal(t, "timed out after 20ms", term.Message)
}

func TestRun_NoTimeoutByDefault(t *testing.T) {
	term := Run(context.Background(), func() { time.Sleep(10 * time.Millisecond) })
	assert.Equal(t, Returned, term.Kind)
}

func TestRun_Interrupted(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	term := Run(ctx, func() { <-release })
	assert.Equal(t, Interrupted, term.Kind)
	assert.Equal(t, context.Canceled.Error(), term.Message)
}

func TestRun_DurationUsesClock(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	calls := 0
	clock := func() time.Time {
		calls++
		return base.Add(time.Duration(calls) * time.Second)
	}

	term := Run(context.Background(), func() {}, WithClock(clock))
	assert.Equal(t, time.Second, term.Duration)
}

func TestRun_AbortContainedByLatch(t *testing.T) {
	latch := &Latch{}
	restore := SetAborter(latch)
	defer restore()

	reachedAfterAbort := false
	term := Run(context.Background(), func() {
		defer func() {
			// Abort is not a panic; recover must see nothing.
			assert.Nil(t, recover())
		}()
		Abort("fire the missiles")
		reachedAfterAbort = true
	})

	assert.Equal(t, Aborted, term.Kind)
	assert.Equal(t, "fire the missiles", term.Message)
	assert.False(t, reachedAfterAbort)

	msg, fired := latch.Fired()
	assert.True(t, fired)
	assert.Equal(t, "fire the missiles", msg)
}

func TestRun_AbortFromSpawnedGoroutine(t *testing.T) {
	latch := &Latch{}
	restore := SetAborter(latch)
	defer restore()

	term := Run(context.Background(), func() {
		done := make(chan struct{})
		go func() {
			defer close(done)
			Abort("from child")
		}()
		<-done
	})

	assert.Equal(t, Aborted, term.Kind)
	assert.Equal(t, "from child", term.Message)
}

func TestRun_StaleLatchDoesNotTaintReturn(t *testing.T) {
	latch := &Latch{}
	latch.Abort("earlier")
	restore := SetAborter(latch)
	defer restore()

	term := Run(context.Background(), func() {})
	assert.Equal(t, Returned, term.Kind)
}

func TestRun_GoexitWithUnfiredLatchIsNotAbort(t *testing.T) {
	latch := &Latch{}
	restore := SetAborter(latch)
	defer restore()

	term := Run(context.Background(), func() { runtime.Goexit() })
	assert.Equal(t, Exited, term.Kind)
}

func TestLatch_FirstMessageWinsAndReset(t *testing.T) {
	l := &Latch{}
	l.Abort("first")
	l.Abort("second")

	msg, fired := l.Fired()
	assert.True(t, fired)
	assert.Equal(t, "first", msg)

	l.Reset()
	_, fired = l.Fired()
	assert.False(t, fired)
}

func TestSetAborter_Restores(t *testing.T) {
	before := CurrentAborter()
	restore := SetAborter(&Latch{})
	_, isLatch := CurrentAborter().(*Latch)
	assert.True(t, isLatch)

	restore()
	assert.Equal(t, before, CurrentAborter())
}

func TestExitAborter(t *testing.T) {
	var stderr bytes.Buffer
	code := -1
	a := ExitAborter{Stderr: &stderr, Exit: func(c int) { code = c }}

	a.Abort("out of missiles")
	assert.Equal(t, AbortExitCode, code)
	assert.Equal(t, "fatal: abort: out of missiles\n", stderr.String())

	stderr.Reset()
	ExitAborter{Stderr: &stderr, Code: 3, Exit: func(c int) { code = c }}.Abort("")
	assert.Equal(t, 3, code)
	assert.Equal(t, "fatal: abort\n", stderr.String())
}

func TestPanicMessage(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"nil", nil, ""},
		{"string", "s", "s"},
		{"error", errors.New("e"), "e"},
		{"stringer", time.Second, "1s"},
		{"int", 42, "42"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, PanicMessage(tt.value))
		})
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "panicked", Panicked.String())
	assert.Equal(t, "kind(99)", Kind(99).String())
}
