// Package fault runs procedures inside an isolated fault boundary and
// classifies how they terminated.
//
// Three termination modes are distinguished:
//
//   - normal return
//   - controlled abnormal termination: a panic (including check failures) or
//     runtime.Goexit, recovered or absorbed by the boundary goroutine
//   - fatal abort: Abort, unrecovered panics on other goroutines, and Go
//     runtime fatal errors. These end the process; only a supervising parent
//     observing the exit status can report them (see package supervisor).
//
// For in-process tests of abort handling a Latch can be installed with
// SetAborter. Abort then records the message and unwinds the procedure
// goroutine, and Run reports Aborted.
package fault
