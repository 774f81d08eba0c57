package forkjoin

import "github.com/petermattis/goid"

// goroutineID identifies the calling goroutine, used to bind a worker
// index to "whichever goroutine is running worker N's loop" without
// threading a parameter through every job body. This is the same trick
// go-deadlock itself relies on (via the same goid package, already a
// transitive dependency through it) to attribute lock waits to the
// correct goroutine in its cycle reports; CurrentJob and the
// self-submission locality optimization in enqueue reuse it here for the
// same reason go-deadlock does: Go has no public goroutine-local
// storage, and a job body never migrates goroutines mid-execution (job
// bodies run to completion on the worker that popped them), so a
// goroutine-id-keyed map is a safe, process-wide substitute.
func goroutineID() int64 {
	return goid.Get()
}
