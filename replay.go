package forkjoin

// PlayBackPool replays the spawn tree previously recorded in poolIdx
// (by submitting jobs into it after a ResetPool and letting them run to
// completion), invoking onFinished exactly once the whole tree has
// re-executed.
//
// If the pool is empty (nothing has ever been allocated in it since the
// last ResetPool), onFinished is scheduled directly and playback state
// is never entered — inPlayback never becomes true and playbackRemaining
// never becomes positive, matching spec.md's empty-pool scenario.
//
// Otherwise, the pool's slot 0 (the root of the recorded tree) is
// re-enqueued. Recorded jobs still carry their original callable and
// intrusive child links — completion never clears them, only ResetPool's
// bump-index rewind followed by the next allocate() does — so re-running
// slot 0 replays the same callable, and executeJob's playback branch
// walks firstChild/nextSibling to re-enqueue the already-recorded
// children instead of letting the callable re-invoke user-level spawn
// logic. While inPlayback is set, SubmitChild and OnFinishedAddJob into
// this pool are suppressed, since the recorded tree already accounts for
// every submission that happened the first time around.
//
// onFinished itself is never written into the recorded tree: it is built
// with newDetachedJob instead of going through the pool's arena, so
// replaying the same pool a second time sees an unchanged bumpIndex and
// executes the identical set of jobs (spec.md's repeatability property).
func (s *Scheduler) PlayBackPool(poolIdx uint32, onFinished Callable) {
	p := s.arena.ensure(poolIdx)
	s.metrics.replayed()

	n := p.size()
	if n == 0 {
		s.enqueue(newDetachedJob(onFinished, noPool))
		return
	}

	// done is tagged noPool, not poolIdx: if a chained onFinished calls
	// PlayBackPool again for the same pool (spec.md's replay-then-replay
	// scenario), that nested call can set p.inPlayback back to true
	// before this executeJob call finishes running done's own
	// post-callable bookkeeping. Keying done's pool membership off noPool
	// means executeJob's playback branch never looks at p on done's
	// account, so the two rounds' playbackRemaining counters can never
	// cross-contaminate.
	done := newDetachedJob(onFinished, noPool)
	p.onPlaybackFinished = done
	p.playbackRemaining.Store(int64(n))
	p.inPlayback.Store(true)

	root := p.jobAt(0)
	s.enqueue(root)
}
