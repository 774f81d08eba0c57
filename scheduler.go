package forkjoin

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/vhlavac/forkjoin/logs"
)

// Scheduler is a fork/join job system: a fixed pool of worker goroutines
// executing Jobs drawn from numbered Pools, each job able to spawn
// children, attach a successor, and wait for its own subtree to finish.
//
// A Scheduler is the explicit handle this package uses instead of the
// process-wide singleton its C++ ancestor exposed (VGJS's
// JobSystem::instance()); callers construct one with New and pass it
// down to whatever needs to submit work, rather than reaching for global
// state.
type Scheduler struct {
	ctx    context.Context
	cancel context.CancelFunc
	group  *errgroup.Group

	arena arena

	queues      []*workStealingQueue
	workerCount int
	rng         *rand.Rand
	rngMu       sync.Mutex

	goroutineMu       sync.RWMutex
	goroutineToWorker map[int64]int
	currentJob        []atomic.Pointer[Job]

	outstandingJobs atomic.Int64
	waitMu          sync.Mutex
	waitCond        *sync.Cond

	limiter *rate.Limiter
	metrics *metricsCollector
}

// New constructs a Scheduler, spawns workerCount worker goroutines
// (defaulting to runtime.GOMAXPROCS(0) if workerCount <= 0), and
// allocates pools 0..initialPools-1 up front so submitJob(_, 0) works
// immediately without a prior ResetPool.
//
// ctx governs the scheduler's lifetime: cancelling it (directly, or via
// Terminate) stops every worker at its next loop checkpoint. Jobs still
// outstanding at that point are abandoned, per spec's cancellation
// model — there is no rollback or failure propagation for them.
func New(ctx context.Context, workerCount, initialPools int, opts ...Option) *Scheduler {
	cfg := newDefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if workerCount <= 0 {
		workerCount = defaultWorkerCount()
	}
	if logs.Log == nil {
		logs.Initialize(cfg.logLevel)
	}

	childCtx, cancel := context.WithCancel(ctx)
	group, groupCtx := errgroup.WithContext(childCtx)

	s := &Scheduler{
		ctx:               groupCtx,
		cancel:            cancel,
		group:             group,
		queues:            make([]*workStealingQueue, workerCount),
		workerCount:       workerCount,
		rng:               rand.New(rand.NewSource(1)),
		goroutineToWorker: make(map[int64]int, workerCount),
		currentJob:        make([]atomic.Pointer[Job], workerCount),
		limiter:           cfg.limiter,
	}
	s.waitCond = sync.NewCond(&s.waitMu)
	s.metrics = newMetricsCollector(cfg.registerer, func() float64 {
		return float64(s.outstandingJobs.Load())
	})
	for i := range s.queues {
		s.queues[i] = newWorkStealingQueue()
	}
	for i := 0; i < initialPools; i++ {
		s.arena.ensure(uint32(i))
	}

	for i := 0; i < workerCount; i++ {
		idx := i
		group.Go(func() error { return s.workerLoop(idx) })
	}

	logs.Info(context.Background(), "scheduler constructed",
		"workers", workerCount, "initialPools", initialPools)
	return s
}

// WorkerCount returns the fixed number of worker goroutines this
// Scheduler was constructed with. There is no dynamic resizing.
func (s *Scheduler) WorkerCount() int {
	return s.workerCount
}

// CurrentJob returns the job currently executing on the calling
// goroutine, or (nil, false) if the caller is not a worker goroutine
// (e.g. the driver itself, between submissions).
func (s *Scheduler) CurrentJob() (*Job, bool) {
	idx, ok := s.callingWorker()
	if !ok {
		return nil, false
	}
	j := s.currentJob[idx].Load()
	if j == nil {
		return nil, false
	}
	return j, true
}

// SubmitJob allocates a new, parentless job in pool poolIdx and enqueues
// it. Safe to call from the driver or from within an executing job.
func (s *Scheduler) SubmitJob(poolIdx uint32, fn Callable) *Job {
	s.admit()
	p := s.arena.ensure(poolIdx)
	j := p.allocate(fn, nil, poolIdx)
	s.enqueue(j)
	return j
}

// SubmitChild allocates a new job as a child of the currently executing
// job and enqueues it, returning ErrCrossPoolParent if poolIdx does not
// match the current job's own pool. If there is no current job (the
// driver is calling, not a job body), SubmitChild behaves exactly like
// SubmitJob. If the current job's pool is mid-playback, the call is
// suppressed: it returns (nil, nil) without allocating, since the
// recorded tree already accounts for this submission.
func (s *Scheduler) SubmitChild(poolIdx uint32, fn Callable) (*Job, error) {
	cur, ok := s.CurrentJob()
	if !ok {
		return s.SubmitJob(poolIdx, fn), nil
	}
	if cur.owningPool != poolIdx {
		return nil, ErrCrossPoolParent
	}
	p := s.arena.ensure(poolIdx)
	if p.inPlayback.Load() {
		return nil, nil
	}
	s.admit()
	j := p.allocate(fn, cur, poolIdx)
	s.enqueue(j)
	return j, nil
}

// OnFinishedAddJob attaches fn as the current job's successor: it runs
// exactly once the current job (and its whole subtree) has completed.
// The successor is linked as a child of the current job's *parent*, not
// of the current job itself — it semantically replaces the current job
// in its parent's child set — so a root-level job's successor has no
// parent and decrements nothing on completion beyond the global
// outstanding count. A no-op if there is no current job, or if the
// current job's pool is mid-playback (successors are already baked into
// a recorded tree through slot order).
func (s *Scheduler) OnFinishedAddJob(fn Callable) {
	cur, ok := s.CurrentJob()
	if !ok {
		return
	}
	// A job with no owning pool (an ad hoc completion job handed out by
	// PlayBackPool itself, see newDetachedJob) never participates in a
	// recorded tree, so its successor is detached too: allocating it from
	// an arena pool keyed by noPool would try to grow the pool list to
	// that sentinel index.
	if cur.owningPool == noPool {
		cur.successor = newDetachedJob(fn, noPool)
		return
	}
	p := s.arena.ensure(cur.owningPool)
	if p.inPlayback.Load() {
		return
	}
	successor := p.allocate(fn, cur.parent, cur.owningPool)
	cur.successor = successor
}

// ResetPool zeroes poolIdx's bump index, growing the pool list if
// necessary. Must only be called once every job previously allocated in
// that pool has completed (e.g. after Wait returns) — see pool.allocate's
// doc comment for why that discipline is what makes slot reuse safe
// without a spin-wait.
func (s *Scheduler) ResetPool(poolIdx uint32) {
	p := s.arena.ensure(poolIdx)
	p.bumpIndex.Store(0)
	logs.Debug(context.Background(), "pool reset", "pool", poolIdx)
}

// Wait blocks until every submitted job, and everything it transitively
// spawned, has completed (outstandingJobs reaches zero). It is safe to
// call concurrently with ongoing submissions from other goroutines.
func (s *Scheduler) Wait() {
	s.waitMu.Lock()
	for s.outstandingJobs.Load() != 0 {
		s.waitCond.Wait()
	}
	s.waitMu.Unlock()
}

// Terminate requests cooperative shutdown: every worker goroutine exits
// at its next loop checkpoint. Jobs still outstanding at that point are
// abandoned. Safe to call from any goroutine, including from within a
// running job body. Does not block; call WaitForTermination to block
// until workers have actually exited.
func (s *Scheduler) Terminate() {
	s.cancel()
}

// WaitForTermination blocks until every worker goroutine has exited
// (after Terminate, or the Scheduler's parent context being cancelled).
func (s *Scheduler) WaitForTermination() error {
	return s.group.Wait()
}

// Metrics returns a point-in-time snapshot of the scheduler's counters.
func (s *Scheduler) Metrics() Metrics {
	return s.metrics.snapshot(s.outstandingJobs.Load())
}

// admit blocks on the submission rate limiter, if one was configured via
// WithSubmissionRateLimiter. It is an admission throttle only — never a
// fairness or priority mechanism.
func (s *Scheduler) admit() {
	if s.limiter == nil {
		return
	}
	_ = s.limiter.Wait(s.ctx)
}

// enqueue increments outstandingJobs before pushing, so Wait can never
// observe a gap where a job exists but isn't yet counted. It prefers the
// calling worker's own queue (self-submission locality: a job spawning
// its own children keeps them close, improving cache behavior) and falls
// back to a pseudo-random peer for driver-originated submissions, which
// have no natural home queue.
func (s *Scheduler) enqueue(j *Job) {
	s.outstandingJobs.Add(1)
	s.metrics.submitted()
	if idx, ok := s.callingWorker(); ok {
		s.queues[idx].push(j)
		return
	}
	s.queues[s.randomWorker()].push(j)
}

func (s *Scheduler) randomWorker() int {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return s.rng.Intn(s.workerCount)
}

// executeJob runs the execution protocol from spec §4.5 step 2 onward:
// it resets the job's self-held child count, invokes its callable (if
// any — a nil callable is a valid no-op job, used for successors and
// playback-completion jobs), re-enqueues any already-recorded children
// if this pool is mid-playback, and finally runs the completion protocol
// if that was the last outstanding child.
func (s *Scheduler) executeJob(j *Job) {
	j.unfinishedChildren.Store(1)
	s.metrics.executed()

	// Snapshot whether j's own pool was mid-playback *before* running the
	// callable, not after: the callable may itself call PlayBackPool on
	// the same pool (e.g. a driver job chaining one replay into the
	// next), which would otherwise make the post-callable read see a
	// playback round j was never part of, double-counting
	// playbackRemaining against the wrong round.
	p := s.arena.at(j.owningPool)
	wasInPlayback := p != nil && p.inPlayback.Load()

	if j.callable != nil {
		j.callable()
	}

	if wasInPlayback {
		for child := j.firstChild; child != nil; child = child.nextSibling {
			j.unfinishedChildren.Add(1)
			s.enqueue(child)
		}
		if p.playbackRemaining.Add(-1) == 0 {
			p.inPlayback.Store(false)
			done := p.onPlaybackFinished
			p.onPlaybackFinished = nil
			if done != nil {
				s.enqueue(done)
			}
		}
	}

	if j.unfinishedChildren.Add(-1) == 0 {
		s.onComplete(j)
	}
}

// onComplete runs spec §4.1's "on complete" steps: notify the parent (if
// any), enqueue the successor (if any), wake Wait if this was the last
// outstanding job, and mark the slot available for reuse after a future
// ResetPool.
func (s *Scheduler) onComplete(j *Job) {
	if j.parent != nil {
		s.childFinished(j.parent)
	}
	if j.successor != nil {
		s.enqueue(j.successor)
	}
	if s.outstandingJobs.Add(-1) == 0 {
		s.waitMu.Lock()
		s.waitCond.Broadcast()
		s.waitMu.Unlock()
	}
	j.available.Store(true)
	s.metrics.completed()
}

// childFinished decrements parent's unfinishedChildren and runs its
// completion protocol if that was the last outstanding child.
func (s *Scheduler) childFinished(parent *Job) {
	if parent.unfinishedChildren.Add(-1) == 0 {
		s.onComplete(parent)
	}
}
