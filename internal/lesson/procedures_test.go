package lesson

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBooleans(t *testing.T) {
	assert.True(t, UsesIf(true))
	assert.False(t, UsesIf(false))
	assert.False(t, Not(true))
	assert.True(t, Not(false))
	assert.True(t, ItRuns(ReturnsTrue, true))
	assert.False(t, ItRuns(ReturnsTrue, false))
	assert.False(t, ItRuns(ReturnsFalse, true))
}

func TestRunIt(t *testing.T) {
	calls := 0
	RunIt(func() { calls++ }, false)
	RunIt(func() { calls++ }, true)
	assert.Equal(t, 1, calls)
}

func TestCallTwiceDelay(t *testing.T) {
	var order []string
	CallTwiceDelay(
		func() { order = append(order, "call") },
		ParkFunc(func() { order = append(order, "park") }),
	)
	assert.Equal(t, []string{"call", "park", "call"}, order)
}

func TestEntryPoint_FiresTheMissiles(t *testing.T) {
	before := MissilesFired()
	Main()
	assert.Equal(t, before+1, MissilesFired())
}

func TestUnit(t *testing.T) {
	assert.Equal(t, Unit{}, TakesUnit(NoopToo()))
	assert.Equal(t, AlsoNoop(), UsesTakesUnit())
}
