// Package registry holds the named zero-argument procedures a run executes.
//
// Registration is explicit: suites call Register (or MustRegister) for each
// procedure. There is no reflection-based discovery. A Selector installed with
// WithSelector decides before storage whether a case is part of the run at all;
// excluded cases never reach the engine or the report.
//
// Usage:
//
//	reg := registry.New(registry.WithSelector(profile))
//	reg.MustRegister("noop", noop)
//	reg.MustRegister("divides_by_zero", divide, registry.ExpectPanic())
//	reg.Seal()
//
//	for tc := range reg.All() {
//	    fmt.Println(tc.Index, tc.Name)
//	}
package registry
