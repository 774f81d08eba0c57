// Package forkjoin implements a fork/join job scheduler: a fixed pool of
// worker goroutines executing Jobs drawn from numbered Pools. A job may
// spawn children (fork), attach a successor that runs once it and its
// whole subtree finish (join), and a pool's spawn tree can be recorded
// once and replayed any number of times without re-running the
// submission logic that built it.
//
// There is no dynamic resizing of the worker pool, no priority or
// fairness between jobs, and no propagation of job failures as errors —
// a job body is expected to handle its own errors. See Scheduler for the
// entry points.
package forkjoin
