// Package check provides runtime assertions for procedures under test.
//
// A failed check panics with a *Failure. The harness fault boundary recovers
// it and classifies the case; a check that holds is a no-op. Checks never
// return a value.
//
//	func addsUp() {
//	    check.Equal(1+1, 2)
//	    check.True(strings.HasPrefix(s, "x"), "prefix of %q", s)
//	    check.Equalf(got, want, "round %d", i)
//	}
package check

import (
	"errors"
	"fmt"

	"github.com/stretchr/testify/assert"
)

// DefaultTrueMessage is attached when True fails without a caller message.
const DefaultTrueMessage = "assertion failed: condition is false"

// Failure is the signal raised by a failed check.
type Failure struct {
	Message string
}

func (f *Failure) Error() string {
	return f.Message
}

// IsFailure reports whether v, a recovered panic value, is a check failure.
func IsFailure(v any) bool {
	err, ok := v.(error)
	if !ok {
		return false
	}
	var f *Failure
	return errors.As(err, &f)
}

// True panics with a Failure when cond is false.
func True(cond bool, msgAndArgs ...any) {
	if cond {
		return
	}
	raise(messageOr(DefaultTrueMessage, msgAndArgs...))
}

// False panics with a Failure when cond is true.
func False(cond bool, msgAndArgs ...any) {
	if !cond {
		return
	}
	raise(messageOr("assertion failed: condition is true", msgAndArgs...))
}

// Equal panics with a Failure unless actual and expected are equal.
// Equality follows testify's ObjectsAreEqual ([]byte compared by content,
// everything else by reflect.DeepEqual).
func Equal(actual, expected any, msgAndArgs ...any) {
	if assert.ObjectsAreEqual(expected, actual) {
		return
	}
	raise(prefix(mismatch(actual, expected), formatMessage(msgAndArgs...)))
}

// Equalf is Equal with a caller-supplied message template.
func Equalf(actual, expected any, template string, args ...any) {
	if assert.ObjectsAreEqual(expected, actual) {
		return
	}
	raise(prefix(mismatch(actual, expected), fmt.Sprintf(template, args...)))
}

// NotEqual panics with a Failure when actual and expected are equal.
func NotEqual(actual, expected any, msgAndArgs ...any) {
	if !assert.ObjectsAreEqual(expected, actual) {
		return
	}
	raise(prefix(fmt.Sprintf("expected values to differ, both are %s", formatValue(actual)), formatMessage(msgAndArgs...)))
}

// Fail panics with a Failure unconditionally.
func Fail(msgAndArgs ...any) {
	raise(messageOr("assertion failed", msgAndArgs...))
}

func raise(msg string) {
	panic(&Failure{Message: msg})
}

func mismatch(actual, expected any) string {
	return fmt.Sprintf("expected %s, got %s", formatValue(expected), formatValue(actual))
}

// formatValue quotes strings so "1" and 1 are distinguishable in messages.
func formatValue(v any) string {
	switch x := v.(type) {
	case string:
		return fmt.Sprintf("%q", x)
	case nil:
		return "<nil>"
	default:
		return fmt.Sprintf("%v", x)
	}
}

func prefix(msg, userMsg string) string {
	if userMsg == "" {
		return msg
	}
	return userMsg + ": " + msg
}

func messageOr(fallback string, msgAndArgs ...any) string {
	if msg := formatMessage(msgAndArgs...); msg != "" {
		return msg
	}
	return fallback
}

// formatMessage follows the testify convention: a single value is printed as is,
// a leading string with more values is a format template.
func formatMessage(msgAndArgs ...any) string {
	switch len(msgAndArgs) {
	case 0:
		return ""
	case 1:
		if s, ok := msgAndArgs[0].(string); ok {
			return s
		}
		return fmt.Sprintf("%+v", msgAndArgs[0])
	default:
		if template, ok := msgAndArgs[0].(string); ok {
			return fmt.Sprintf(template, msgAndArgs[1:]...)
		}
		return fmt.Sprint(msgAndArgs...)
	}
}
