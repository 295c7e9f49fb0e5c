package harness

import (
	"errors"
	"fmt"
)

var (
	// ErrProcessAborted marks a fatal abort observed during a run.
	ErrProcessAborted = errors.New("process aborted")

	// ErrInterrupted marks a run stopped by context cancellation.
	ErrInterrupted = errors.New("run interrupted")

	// ErrUnknownCase is returned when recording a name that was not planned.
	ErrUnknownCase = errors.New("unknown test case")

	// ErrAlreadyRecorded is returned when a case is recorded twice.
	ErrAlreadyRecorded = errors.New("test case already recorded")

	// ErrFinished is returned when recording into a finished report.
	ErrFinished = errors.New("report already finished")
)

// RunError is an error that stops a run.
type RunError struct {
	Code RunErrorCode

	// Case is the test case executing when the error occurred.
	Case string

	Message string

	// Err is ErrProcessAborted or ErrInterrupted.
	Err error
}

// RunErrorCode categorizes run errors.
type RunErrorCode string

const (
	// ErrCodeProcessAborted: a procedure requested a fatal abort.
	ErrCodeProcessAborted RunErrorCode = "PROCESS_ABORTED"

	// ErrCodeInterrupted: the context was cancelled mid-case.
	ErrCodeInterrupted RunErrorCode = "INTERRUPTED"
)

// Error implements the error interface.
func (e *RunError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s (case=%s)", e.Code, e.Message, e.Case)
	}
	return fmt.Sprintf("%s (case=%s)", e.Code, e.Case)
}

func (e *RunError) Unwrap() error {
	return e.Err
}

// IsAbortError reports whether err is a fatal abort.
func IsAbortError(err error) bool {
	return errors.Is(err, ErrProcessAborted)
}

// IsInterruptError reports whether err is a cancellation.
func IsInterruptError(err error) bool {
	return errors.Is(err, ErrInterrupted)
}

func newAbortError(name, msg string) *RunError {
	return &RunError{Code: ErrCodeProcessAborted, Case: name, Message: msg, Err: ErrProcessAborted}
}

func newInterruptError(name, msg string) *RunError {
	return &RunError{Code: ErrCodeInterrupted, Case: name, Message: msg, Err: ErrInterrupted}
}
