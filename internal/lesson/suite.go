package lesson

import (
	"github.com/roach88/procharness/internal/check"
	"github.com/roach88/procharness/internal/registry"
)

type lessonCase struct {
	name string
	proc registry.Procedure
	opts []registry.Option
}

// countingParker counts Park calls instead of suspending.
type countingParker struct{ n int }

func (p *countingParker) Park() { p.n++ }

func cases() []lessonCase {
	return []lessonCase{
		{name: "noop", proc: Noop},
		{name: "calls_noop", proc: CallsNoop},
		{name: "unit_alias", proc: func() {
			NoopImplicit()
			check.Equal(NoopToo(), AlsoNoop(), "every Unit value is the same value")
		}},
		{name: "takes_unit", proc: func() {
			check.Equal(TakesUnit(Unit{}), Unit{})
			check.Equal(UsesTakesUnit(), Unit{})
		}},
		{name: "takes_procedure", proc: func() {
			calls := 0
			TakesProcedure(func() { calls++ })
			UsesTakesProcedure()
			check.Equal(calls, 1)
		}},
		{name: "sequence_noops", proc: SequenceNoops},
		{name: "uses_module", proc: UsesModule},
		{name: "uses_import_alias", proc: UsesImportAlias},
		{name: "call_twice_delay", proc: func() {
			var order []string
			p := ParkFunc(func() { order = append(order, "park") })
			CallTwiceDelay(func() { order = append(order, "call") }, p)
			check.Equal(order, []string{"call", "park", "call"})
		}},
		{name: "fire_the_missiles_twice", proc: func() {
			parker := &countingParker{}
			before := MissilesFired()
			UseCallTwiceDelayProcedure(parker)
			check.Equal(MissilesFired()-before, int64(2), "missiles fired")
			check.Equal(parker.n, 1, "parks")
		}},
		{name: "increment_matrix_twice", proc: func() {
			Matrix.Lock()
			before := Matrix.Cells[1][1]
			Matrix.Unlock()

			UseCallTwiceDelayMath(Yield)

			Matrix.Lock()
			after := Matrix.Cells[1][1]
			Matrix.Unlock()
			check.Equal(after-before, 2)
		}},
		{name: "uses_if", proc: func() {
			check.True(UsesIf(ReturnsTrue()))
			check.False(UsesIf(ReturnsFalse()))
		}},
		{name: "not", proc: func() {
			check.Equal(Not(true), false)
			check.Equal(Not(false), true)
		}},
		{name: "run_it", proc: func() {
			ran := false
			RunIt(func() { ran = true }, false)
			check.False(ran, "RunIt ran with answer=false")
			RunIt(func() { ran = true }, true)
			check.True(ran, "RunIt did not run with answer=true")
		}},
		{name: "it_runs", proc: func() {
			check.True(ItRuns(ReturnsTrue, true))
			check.False(ItRuns(ReturnsTrue, false))
		}},
		{name: "a_test_function", proc: func() {}},
		{name: "a_test_only_function", proc: func() {}},
		{name: "an_actual_test", proc: anActualTest},
		{name: "will_panic", proc: func() { panic("on purpose") }, opts: []registry.Option{registry.ExpectPanic()}},
		{name: "loops", proc: Loops, opts: []registry.Option{registry.Tags(registry.TagNonterminating)}},
		{name: "aborts", proc: Aborts, opts: []registry.Option{registry.Tags(registry.TagFatal)}},
	}
}

// anActualTest passes its first checks and fails on the first mismatch.
func anActualTest() {
	if false {
		panic("unreachable")
	}
	check.True(true)
	check.True(true, "using these checks we can format messages to describe what went wrong")
	check.Equal(true, true)
	check.Equal(true, true, "Go functions have a fixed number of arguments")
	check.Equal(true, false)
	check.Equalf(true, false, "variadic functions take a variable number of arguments, %vly", true)
}

// Register adds the lesson suite to r in a fixed order.
func Register(r *registry.Registry) error {
	for _, c := range cases() {
		if _, err := r.Register(c.name, c.proc, c.opts...); err != nil {
			return err
		}
	}
	return nil
}

// Names returns the lesson case names in registration order.
func Names() []string {
	cs := cases()
	names := make([]string, len(cs))
	for i, c := range cs {
		names[i] = c.name
	}
	return names
}
