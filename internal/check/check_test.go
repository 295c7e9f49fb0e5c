package check

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// capture runs fn and returns the Failure it raised, or nil.
func capture(t *testing.T, fn func()) (failure *Failure) {
	t.Helper()
	defer func() {
		if r := recover(); r != nil {
			f, ok := r.(*Failure)
			require.True(t, ok, "expected *Failure, got %T", r)
			failure = f
		}
	}()
	fn()
	return nil
}

func TestTrue(t *testing.T) {
	assert.Nil(t, capture(t, func() { True(true) }))

	f := capture(t, func() { True(false) })
	require.NotNil(t, f)
	assert.Equal(t, DefaultTrueMessage, f.Message)

	f = capture(t, func() { True(false, "using these macros we can format messages") })
	require.NotNil(t, f)
	assert.Equal(t, "using these macros we can format messages", f.Message)

	f = capture(t, func() { True(false, "value was %d", 7) })
	require.NotNil(t, f)
	assert.Equal(t, "value was 7", f.Message)
}

func TestFalse(t *testing.T) {
	assert.Nil(t, capture(t, func() { False(false) }))
	f := capture(t, func() { False(true) })
	require.NotNil(t, f)
	assert.Contains(t, f.Message, "condition is true")
}

func TestEqual_ReflexiveNeverRaises(t *testing.T) {
	values := []any{
		0, 3, -1, "", "x", true, false, 3.5, nil,
		[]int{1, 2}, []byte("bytes"), map[string]int{"a": 1},
		struct{ A, B int }{1, 2}, &struct{ N string }{"p"},
	}
	for _, v := range values {
		t.Run(fmt.Sprintf("%T", v), func(t *testing.T) {
			assert.Nil(t, capture(t, func() { Equal(v, v) }))
			assert.Nil(t, capture(t, func() { Equal(v, v, "with message") }))
			assert.Nil(t, capture(t, func() { Equalf(v, v, "round %d", 1) }))
		})
	}
}

func TestEqual_MessageContainsBothValues(t *testing.T) {
	f := capture(t, func() { Equal(3, 4) })
	require.NotNil(t, f)
	assert.Equal(t, "expected 4, got 3", f.Message)
	assert.Contains(t, f.Message, "3")
	assert.Contains(t, f.Message, "4")
}

func TestEqual_PrefixesCallerMessage(t *testing.T) {
	f := capture(t, func() { Equal(true, false, "Rust functions have a fixed number of arguments") })
	require.NotNil(t, f)
	assert.Equal(t, "Rust functions have a fixed number of arguments: expected false, got true", f.Message)
}

func TestEqual_QuotesStrings(t *testing.T) {
	f := capture(t, func() { Equal("1", 1) })
	require.NotNil(t, f)
	assert.Equal(t, `expected 1, got "1"`, f.Message)
}

func TestEqual_ByteSlicesByContent(t *testing.T) {
	assert.Nil(t, capture(t, func() { Equal([]byte("ab"), []byte("ab")) }))
	assert.NotNil(t, capture(t, func() { Equal([]byte("ab"), []byte("ba")) }))
}

func TestEqualf_SubstitutesTemplate(t *testing.T) {
	f := capture(t, func() { Equalf(true, false, "Rust Macros can have a variable number, %vly", true) })
	require.NotNil(t, f)
	assert.Equal(t, "Rust Macros can have a variable number, truely: expected false, got true", f.Message)
}

func TestNotEqual(t *testing.T) {
	assert.Nil(t, capture(t, func() { NotEqual(1, 2) }))
	f := capture(t, func() { NotEqual("a", "a", "ids") })
	require.NotNil(t, f)
	assert.Equal(t, `ids: expected values to differ, both are "a"`, f.Message)
}

func TestFail(t *testing.T) {
	f := capture(t, func() { Fail() })
	require.NotNil(t, f)
	assert.Equal(t, "assertion failed", f.Message)

	f = capture(t, func() { Fail("boom %s", "now") })
	require.NotNil(t, f)
	assert.Equal(t, "boom now", f.Message)
}

func TestIsFailure(t *testing.T) {
	assert.True(t, IsFailure(&Failure{Message: "x"}))
	assert.True(t, IsFailure(fmt.Errorf("wrapped: %w", &Failure{Message: "x"})))
	assert.False(t, IsFailure("plain string"))
	assert.False(t, IsFailure(fmt.Errorf("other")))
	assert.False(t, IsFailure(nil))
}

func TestFailure_Error(t *testing.T) {
	var err error = &Failure{Message: "x≠y"}
	assert.Equal(t, "x≠y", err.Error())
}
