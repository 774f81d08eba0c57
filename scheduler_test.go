package forkjoin

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

// submitBinaryTree submits the root with SubmitJob and schedules every
// lower level as children (via SubmitChild against whatever job is
// current) of a binary spawn tree of the given depth, counting every body
// invocation. depth counts the levels of children below the root,
// matching S2's "depth 3" framing (1 + 2 + 4 + 8 = 15 bodies).
func submitBinaryTree(s *Scheduler, poolIdx uint32, depth int, ran *atomic.Int64) {
	var body func(d int)
	body = func(d int) {
		ran.Add(1)
		if d <= 0 {
			return
		}
		for i := 0; i < 2; i++ {
			dd := d
			if _, err := s.SubmitChild(poolIdx, func() { body(dd - 1) }); err != nil {
				panic(err)
			}
		}
	}
	s.SubmitJob(poolIdx, func() { body(depth) })
}

// S2 — binary spawn tree of depth 3.
func TestSpawnTreeDepth3(t *testing.T) {
	s := newTestScheduler(t, 4, 1)

	var ran atomic.Int64
	submitBinaryTree(s, 0, 3, &ran)
	waitWithTimeout(t, s, 2*time.Second)

	if got := ran.Load(); got != 15 {
		t.Fatalf("bodies ran = %d, want 15", got)
	}
}

// S3 — successor chain: a root spawns two children and registers a
// successor via OnFinishedAddJob. The successor must run exactly once,
// strictly after both children complete, and must be reported as a child
// of the root's parent (here: nil, since the root has no parent).
func TestSuccessorChain(t *testing.T) {
	s := newTestScheduler(t, 4, 1)

	var childrenDone atomic.Int64
	var successorRan atomic.Int64
	var successorSawChildrenDone atomic.Bool
	var successorJob *Job

	done := make(chan struct{})
	s.SubmitJob(0, func() {
		root, _ := s.CurrentJob()
		for i := 0; i < 2; i++ {
			_, err := s.SubmitChild(0, func() {
				childrenDone.Add(1)
			})
			if err != nil {
				t.Errorf("SubmitChild: %v", err)
			}
		}
		s.OnFinishedAddJob(func() {
			successorSawChildrenDone.Store(childrenDone.Load() == 2)
			successorRan.Add(1)
			close(done)
		})
		successorJob = root.successor
	})

	waitWithTimeout(t, s, 2*time.Second)
	<-done

	if got := successorRan.Load(); got != 1 {
		t.Fatalf("successor ran %d times, want 1", got)
	}
	if !successorSawChildrenDone.Load() {
		t.Fatal("successor ran before both children completed")
	}
	if successorJob == nil {
		t.Fatal("root.successor was never set")
	}
	if successorJob.parent != nil {
		t.Fatal("root-level successor must have a nil parent (inherits the grandparent, which is nil here)")
	}
}

// Open question decision: OnFinishedAddJob's successor is linked to the
// current job's *parent*, not to the current job — so a successor
// registered by a non-root job is reported at its parent's level, not as
// a grandchild.
func TestSuccessorInheritsGrandparent(t *testing.T) {
	s := newTestScheduler(t, 4, 1)

	var grandparentJob *Job
	var middleJob *Job
	var successorJob *Job
	done := make(chan struct{})

	s.SubmitJob(0, func() {
		grandparentJob, _ = s.CurrentJob()
		_, err := s.SubmitChild(0, func() {
			middleJob, _ = s.CurrentJob()
			s.OnFinishedAddJob(func() {
				close(done)
			})
			successorJob = middleJob.successor
		})
		if err != nil {
			t.Errorf("SubmitChild: %v", err)
		}
	})

	waitWithTimeout(t, s, 2*time.Second)
	<-done

	if successorJob == nil {
		t.Fatal("successor was never attached")
	}
	if successorJob.parent != grandparentJob {
		t.Fatal("successor must be linked under the middle job's parent, not the middle job itself")
	}
}

// Open question decision: mixed-pool parents are forbidden outright.
func TestSubmitChildCrossPoolRejected(t *testing.T) {
	s := newTestScheduler(t, 2, 2)

	errs := make(chan error, 1)
	s.SubmitJob(0, func() {
		_, err := s.SubmitChild(1, func() {})
		errs <- err
	})

	waitWithTimeout(t, s, time.Second)

	select {
	case err := <-errs:
		if err != ErrCrossPoolParent {
			t.Fatalf("err = %v, want ErrCrossPoolParent", err)
		}
	default:
		t.Fatal("callable never ran")
	}
}

// SubmitChild with no current job behaves exactly like SubmitJob.
func TestSubmitChildWithNoCurrentJobActsLikeSubmitJob(t *testing.T) {
	s := newTestScheduler(t, 2, 1)

	var ran atomic.Bool
	j, err := s.SubmitChild(0, func() { ran.Store(true) })
	if err != nil {
		t.Fatalf("SubmitChild: %v", err)
	}
	if j.parent != nil {
		t.Fatal("driver-originated SubmitChild must produce a parentless job")
	}

	waitWithTimeout(t, s, time.Second)
	if !ran.Load() {
		t.Fatal("job never ran")
	}
}

// OnFinishedAddJob outside any job body is a no-op.
func TestOnFinishedAddJobNoCurrentJobIsNoop(t *testing.T) {
	s := newTestScheduler(t, 2, 1)
	s.OnFinishedAddJob(func() { t.Fatal("should never run") })
	waitWithTimeout(t, s, time.Second)
}

// CurrentJob outside a worker yields nothing.
func TestCurrentJobOutsideWorker(t *testing.T) {
	s := newTestScheduler(t, 2, 1)
	if _, ok := s.CurrentJob(); ok {
		t.Fatal("CurrentJob should report false from the driver goroutine")
	}
}

func TestWorkerCountFixed(t *testing.T) {
	s := newTestScheduler(t, 3, 1)
	if got := s.WorkerCount(); got != 3 {
		t.Fatalf("WorkerCount = %d, want 3", got)
	}
}

func TestNewDefaultsWorkerCount(t *testing.T) {
	s := New(context.Background(), 0, 1)
	defer func() {
		s.Terminate()
		_ = s.WaitForTermination()
	}()
	if s.WorkerCount() < 1 {
		t.Fatalf("WorkerCount = %d, want >= 1", s.WorkerCount())
	}
}
