package forkjoin

import "sync/atomic"

// Callable is a user-supplied job body. It takes no arguments and returns
// nothing; any data it needs must be captured by the closure itself. A nil
// Callable designates a no-op job, used to synthesize successors and
// playback-completion jobs whose only purpose is to be a join point.
type Callable func()

// noPool marks a Job that does not belong to any user-addressable pool.
// The ad hoc completion job PlayBackPool hands to the scheduler never
// becomes part of a recorded tree, so it is built directly on the heap
// instead of through a Pool's segmented arena (see newDetachedJob).
const noPool = ^uint32(0)

// Job is the unit of scheduling: a callable plus fork/join bookkeeping.
//
// Every Job the scheduler hands out lives in a Pool's segmented arena
// (see arena.go), with two exceptions: the ad hoc completion job that
// PlayBackPool schedules after the last replayed job finishes, and any
// successor attached to such a job through OnFinishedAddJob. Those jobs
// never appear in any recorded child list, so giving them an arena slot
// would needlessly grow a pool's bump index during playback, which
// property 5 in spec.md §8 forbids.
type Job struct {
	callable Callable

	parent *Job

	// unfinishedChildren == 1 + (children currently running or queued)
	// while the job's own body is in flight. Reaching 0 marks completion.
	unfinishedChildren atomic.Int32

	// successor is enqueued exactly once this job (body plus all of its
	// children) has completed.
	successor *Job

	// firstChild/lastChild/nextSibling record the spawn tree in
	// submission order, for replay. During ordinary (non-replayed)
	// execution they are pure recording state.
	firstChild  *Job
	lastChild   *Job
	nextSibling *Job

	owningPool uint32

	// available is true once the slot has completed and may be handed
	// out again by the next allocate() to run after a resetPool.
	available atomic.Bool
}

// resetForAllocation wipes the fields that must not leak across
// allocations and fixes owningPool/parent for the new occupant of a slot.
// Used by Pool.allocate and by newDetachedJob.
func resetForAllocation(j *Job, fn Callable, parent *Job, poolIdx uint32) {
	j.callable = fn
	j.parent = parent
	j.unfinishedChildren.Store(0)
	j.successor = nil
	j.firstChild = nil
	j.lastChild = nil
	j.nextSibling = nil
	j.owningPool = poolIdx
	j.available.Store(false)
}

// newDetachedJob builds a Job that is not backed by any pool's arena slot.
// Only the playback glue path (PlayBackPool's completion job and the
// successors of such jobs) uses this; see the Job doc comment above.
func newDetachedJob(fn Callable, poolIdx uint32) *Job {
	j := &Job{}
	resetForAllocation(j, fn, nil, poolIdx)
	return j
}

// linkAsChild appends child to parent's intrusive sibling chain and
// accounts for it in parent.unfinishedChildren. It must complete before
// child is pushed to any worker queue.
//
// Only the goroutine currently running parent's body ever calls this for
// a given parent — children are only ever submitted against the "current
// job" of the calling worker — so the sibling-chain pointers need no
// lock. unfinishedChildren is still an atomic because childFinished can
// decrement it concurrently, from any worker, at any time.
func linkAsChild(parent, child *Job) {
	parent.unfinishedChildren.Add(1)
	if parent.firstChild == nil {
		parent.firstChild = child
	} else {
		parent.lastChild.nextSibling = child
	}
	parent.lastChild = child
}
