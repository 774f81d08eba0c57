package forkjoin

import (
	"sync/atomic"

	"github.com/sasha-s/go-deadlock"
)

// segmentSize is the number of Job slots per arena segment. Chosen to
// match spec.md's default; it never needs to be configurable because
// growth just appends another segment.
const segmentSize = 4096

// segment is one fixed-size chunk of a Pool's arena. Segments are
// allocated on the heap individually and referenced by pointer from
// pool.segments, so growing pool.segments (an ordinary slice) never
// moves a Job already handed out — only the slice of *segment pointers
// is reallocated, never the segments themselves.
type segment [segmentSize]Job

// pool is a single numbered arena: a monotonically bump-allocated,
// segment-backed vector of Jobs plus the bookkeeping PlayBackPool needs
// to replay a recorded tree.
//
// Addresses handed out by allocate are stable for the pool's lifetime;
// resetPool only rewinds the bump index, it never frees or moves a
// segment, so a *Job returned before a reset remains valid (if stale)
// after one.
type pool struct {
	mu       deadlock.Mutex
	segments []*segment

	bumpIndex atomic.Uint64

	// Playback state, touched only while a PlayBackPool run is in
	// flight against this pool; see replay.go.
	inPlayback        atomic.Bool
	playbackRemaining atomic.Int64
	onPlaybackFinished *Job
}

// allocate reserves the next slot in the pool, links it as a child of
// parent (if non-nil), and returns it ready to enqueue.
//
// Slot reuse after resetPool relies on a documented discipline rather
// than a spin-wait on a "this slot is free" flag: resetPool must only be
// called once the pool's prior generation of jobs has fully completed
// (outstandingJobs drained via Scheduler.Wait), at which point every slot
// the rewound bump index will revisit is already marked available. This
// is simpler than spec.md's fallback "block until available" design and
// costs nothing as long as callers honor the discipline; Scheduler.Wait
// followed by Scheduler.ResetPool is the documented way to do that.
func (p *pool) allocate(fn Callable, parent *Job, poolIdx uint32) *Job {
	idx := p.bumpIndex.Add(1) - 1
	j := p.slotAt(idx)
	resetForAllocation(j, fn, parent, poolIdx)
	if parent != nil {
		linkAsChild(parent, j)
	}
	return j
}

// slotAt returns the Job at the given arena index, growing the segment
// list if this is the first time the index has been reached.
func (p *pool) slotAt(idx uint64) *Job {
	segIdx := idx / segmentSize
	slot := idx % segmentSize
	p.mu.Lock()
	for uint64(len(p.segments)) <= segIdx {
		p.segments = append(p.segments, &segment{})
	}
	seg := p.segments[segIdx]
	p.mu.Unlock()
	return &seg[slot]
}

// jobAt returns the Job previously allocated at idx, for replay's tree
// walk. It does not grow the arena; idx must already have been
// allocated.
func (p *pool) jobAt(idx uint64) *Job {
	p.mu.Lock()
	seg := p.segments[idx/segmentSize]
	p.mu.Unlock()
	return &seg[idx%segmentSize]
}

// size reports how many slots have ever been allocated in this pool
// (the size of the recorded tree, for replay).
func (p *pool) size() uint64 {
	return p.bumpIndex.Load()
}

// arena is the scheduler's numbered list of pools, grown on demand.
type arena struct {
	mu    deadlock.Mutex
	pools []*pool
}

// ensure returns the pool at idx, creating it (and any pools below it
// that don't exist yet) on first use.
func (a *arena) ensure(idx uint32) *pool {
	a.mu.Lock()
	defer a.mu.Unlock()
	for uint32(len(a.pools)) <= idx {
		a.pools = append(a.pools, &pool{})
	}
	return a.pools[idx]
}

// at returns the pool at idx, or nil if it has never been touched.
func (a *arena) at(idx uint32) *pool {
	if idx == noPool {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if idx >= uint32(len(a.pools)) {
		return nil
	}
	return a.pools[idx]
}
