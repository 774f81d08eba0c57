package forkjoin

import "errors"

// ErrCrossPoolParent is returned by (*Scheduler).SubmitChild when the
// calling job's owning pool differs from the pool index the child is
// being submitted into. Mixed-pool parents are forbidden outright rather
// than given undefined replay semantics; see DESIGN.md's Open Question
// decisions.
var ErrCrossPoolParent = errors.New("forkjoin: child must be submitted into its parent's owning pool")
