package forkjoin

import (
	"context"
	"math/rand"
	"time"

	"github.com/vhlavac/forkjoin/logs"
)

// stealAttempts is how many random peers an idle worker probes before
// backing off, mirroring the teacher's bounded redistribution attempts
// in AddWorker/RedistributeTasks rather than scanning every peer.
const stealAttempts = 5

// idleBackoff is how long a worker sleeps after a failed local pop and
// stealAttempts failed steals, before trying again.
const idleBackoff = 200 * time.Microsecond

// workerLoop is the body run by each of the scheduler's workerCount
// goroutines, supervised by errgroup (see New). It registers
// itself for CurrentJob lookups, then pops its own queue, falls back to
// stealing from random peers, and backs off briefly when there is
// nothing to do anywhere. It returns when the scheduler's context is
// cancelled (Terminate, or cancellation of the context passed to New).
func (s *Scheduler) workerLoop(idx int) error {
	s.bindWorker(idx)
	rng := rand.New(rand.NewSource(time.Now().UnixNano() ^ int64(idx)))
	logs.Debug(s.ctx, "worker started", "worker", idx)

	for {
		select {
		case <-s.ctx.Done():
			logs.Debug(context.Background(), "worker stopping", "worker", idx)
			return nil
		default:
		}

		job := s.queues[idx].pop()
		stolen := false
		for attempt := 0; job == nil && attempt < stealAttempts; attempt++ {
			victim := idx
			if s.workerCount > 1 {
				for victim == idx {
					victim = rng.Intn(s.workerCount)
				}
			} else {
				break
			}
			job = s.queues[victim].steal()
			stolen = job != nil
		}

		if job == nil {
			time.Sleep(idleBackoff)
			continue
		}

		if stolen {
			s.metrics.stolen()
		}

		s.currentJob[idx].Store(job)
		s.executeJob(job)
		s.currentJob[idx].Store(nil)
	}
}

// bindWorker records which goroutine is running worker idx, so
// CurrentJob and self-submission locality can recognize it later. Called
// once, from the worker's own goroutine, before its loop starts.
func (s *Scheduler) bindWorker(idx int) {
	gid := goroutineID()
	s.goroutineMu.Lock()
	s.goroutineToWorker[gid] = idx
	s.goroutineMu.Unlock()
}

// callingWorker returns the worker index bound to the calling goroutine,
// or false if the caller is not a worker goroutine (e.g. the driver).
func (s *Scheduler) callingWorker() (int, bool) {
	gid := goroutineID()
	s.goroutineMu.RLock()
	idx, ok := s.goroutineToWorker[gid]
	s.goroutineMu.RUnlock()
	return idx, ok
}
