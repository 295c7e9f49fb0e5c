// Package supervisor runs test cases in a child process so that a fatal
// abort ends only the child.
//
// The parent (Supervisor) starts the worker with a pipe on FrameFD and reads
// the wire frames the worker (Serve) writes as cases start and finish. When
// the worker dies before sending done, the parent still has everything up to
// the last frame: finished cases keep their outcomes, the case in flight is
// recorded as ProcessAborted with the exit status, and cases never started
// are left out of the report.
package supervisor
