package lesson

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/roach88/procharness/internal/fault"
	"github.com/roach88/procharness/internal/lesson/mymodule"
	"github.com/roach88/procharness/internal/lesson/this/is/long"
	nloop "github.com/roach88/procharness/internal/lesson/this/is/long"
)

// Noop takes no arguments and returns nothing.
func Noop() {}

// CallsNoop calls Noop.
func CallsNoop() { Noop() }

// Unit is the empty type: it has exactly one value, Unit{}.
type Unit = struct{}

func NoopImplicit() {}
func NoopToo() Unit { return Unit{} }
func AlsoNoop() Unit { return struct{}{} }
func TakesUnit(u Unit) Unit { return u }

// UsesTakesUnit passes the result of a call straight through.
func UsesTakesUnit() Unit { return TakesUnit(NoopToo()) }

// TakesProcedure calls p.
func TakesProcedure(p func()) { p() }

func UsesTakesProcedure() { TakesProcedure(Noop) }

// SequenceNoops runs two statements one after the other.
func SequenceNoops() {
	Noop()
	TakesProcedure(Noop)
}

func UsesModule() { mymodule.Noop() }

// UsesImportAlias calls the same function through its package name and
// through an import alias.
func UsesImportAlias() {
	long.NestedNoop()
	nloop.NestedNoop()
}

// Parker suspends the calling goroutine for a while.
type Parker interface {
	Park()
}

// ParkFunc adapts a function to Parker.
type ParkFunc func()

func (f ParkFunc) Park() { f() }

// Yield parks by yielding the processor once.
var Yield Parker = ParkFunc(runtime.Gosched)

// CallTwiceDelay calls f, parks, and calls f again. All the caller learns is
// that both calls finished, in order.
func CallTwiceDelay(f func(), p Parker) {
	f()
	p.Park()
	f()
}

var missilesFired atomic.Int64

// FireTheMissiles has an effect on the world and returns nothing.
func FireTheMissiles() { missilesFired.Add(1) }

// MissilesFired reports how many times FireTheMissiles ran.
func MissilesFired() int64 { return missilesFired.Load() }

func UseCallTwiceDelayProcedure(p Parker) { CallTwiceDelay(FireTheMissiles, p) }

// Matrix is state a procedure can change without it appearing in its signature.
var Matrix = struct {
	sync.Mutex
	Cells [3][3]int
}{}

// IncrementAllValuesInMatrixBy1 changes Matrix in place.
func IncrementAllValuesInMatrixBy1() {
	Matrix.Lock()
	defer Matrix.Unlock()
	for i := range Matrix.Cells {
		for j := range Matrix.Cells[i] {
			Matrix.Cells[i][j]++
		}
	}
}

func UseCallTwiceDelayMath(p Parker) { CallTwiceDelay(IncrementAllValuesInMatrixBy1, p) }

// Loops never returns.
func Loops() {
	for {
	}
}

// Aborts ends the process without returning or unwinding.
func Aborts() { fault.Abort("") }

func ReturnsTrue() bool { return true }
func ReturnsFalse() bool { return false }

func UsesIf(b bool) bool {
	if b {
		return true
	}
	return false
}

func Not(b bool) bool {
	if b {
		return false
	}
	return true
}

// RunIt calls r only when answer is true.
func RunIt(r func(), answer bool) {
	if answer {
		r()
	}
}

// ItRuns is a guard clause: it returns early with r's result when answer is true.
func ItRuns(r func() bool, answer bool) bool {
	if answer {
		return r()
	}
	return false
}

// Main is the program entry point of the lesson.
func Main() { FireTheMissiles() }
