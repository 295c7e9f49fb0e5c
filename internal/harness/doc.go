// Package harness executes registered procedures and aggregates their outcomes.
//
// # Outcomes
//
// Every executed case yields exactly one Outcome:
//
//   - Passed: returned normally, or terminated abnormally when that was expected
//   - Failed: a check failed, the case exceeded its time bound, or an expected
//     abnormal termination did not occur
//   - AbnormallyTerminated: an unexpected panic or runtime.Goexit
//   - ProcessAborted: a fatal abort; the run stops and later cases are absent
//
// # Components
//
// Engine runs one case in a fault boundary and classifies the termination.
// ReportBuilder collects (name, outcome) pairs and restores registration order.
// Driver ties them together, sequentially or with bounded parallelism.
//
// # Usage
//
//	reg := registry.New()
//	reg.MustRegister("adds", func() { check.Equal(1+1, 2) })
//	reg.Seal()
//
//	d := &harness.Driver{Engine: harness.NewEngine()}
//	r := d.Run(ctx, reg.Snapshot())
//	if !r.OK() {
//	    os.Exit(1)
//	}
//
// A fatal abort under the default aborter ends the process before the driver
// can observe it. Supervised runs (package supervisor) execute the driver in a
// child process and rebuild a truncated report from the parent side.
package harness
