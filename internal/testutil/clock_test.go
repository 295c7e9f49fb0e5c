package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestStepClock_FirstReadingIsStart(t *testing.T) {
	clock := NewStepClock(epoch, time.Second)
	assert.Equal(t, epoch, clock.Now())
}

func TestStepClock_AdvancesByStep(t *testing.T) {
	clock := NewStepClock(epoch, 5*time.Millisecond)

	a := clock.Now()
	b := clock.Now()
	c := clock.Now()

	assert.Equal(t, 5*time.Millisecond, b.Sub(a))
	assert.Equal(t, 5*time.Millisecond, c.Sub(b))
	assert.Equal(t, int64(3), clock.Calls())
}

func TestStepClock_Reset(t *testing.T) {
	clock := NewStepClock(epoch, time.Second)
	clock.Now()
	clock.Now()

	clock.Reset()

	assert.Equal(t, epoch, clock.Now())
}

func TestStepClock_ConcurrentReadingsAreDistinct(t *testing.T) {
	clock := NewStepClock(epoch, time.Nanosecond)

	const n = 100
	seen := make(chan time.Time, n)
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seen <- clock.Now()
		}()
	}
	wg.Wait()
	close(seen)

	unique := make(map[time.Time]bool)
	for ts := range seen {
		unique[ts] = true
	}
	assert.Len(t, unique, n)
}
