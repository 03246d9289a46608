package engine

import (
	"context"
	"sync"

	"github.com/hupe1980/streamflow/core"
)

// Result is the resolve-once outcome cell of a plan. It starts unresolved and
// transitions exactly once to either success (outcome, nil error) or failure
// (outcome, *core.PlanError). All later resolution attempts are no-ops.
//
// Callers can consume it three ways: poll (Resolved/Outcome/Err), block
// (Done/Wait), or subscribe a callback that fires on resolution (immediately
// if already resolved).
type Result struct {
	mu          sync.Mutex
	resolved    bool
	outcome     core.PlanOutcome
	err         error
	done        chan struct{}
	subscribers []func(outcome core.PlanOutcome, err error)
}

func newResult() *Result {
	return &Result{done: make(chan struct{})}
}

// resolve transitions the cell to its terminal state. It returns false if the
// cell was already resolved. Subscribers run synchronously on the resolving
// goroutine, in subscription order, before the done channel is closed, so
// anyone unblocked by Done/Wait observes their effects. A subscriber must
// therefore never block on the cell it is subscribed to.
func (r *Result) resolve(outcome core.PlanOutcome, err error) bool {
	r.mu.Lock()
	if r.resolved {
		r.mu.Unlock()
		return false
	}
	r.resolved = true
	r.outcome = outcome
	r.err = err
	subscribers := r.subscribers
	r.subscribers = nil
	r.mu.Unlock()

	for _, fn := range subscribers {
		fn(outcome, err)
	}
	close(r.done)
	return true
}

// Resolved reports whether the cell reached its terminal state.
func (r *Result) Resolved() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resolved
}

// Outcome returns the terminal outcome and whether the cell is resolved. The
// outcome is populated for both success and failure; inspect Err to
// distinguish them.
func (r *Result) Outcome() (core.PlanOutcome, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.outcome, r.resolved
}

// Err returns the plan-level failure, or nil while unresolved or on success.
func (r *Result) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Done returns a channel closed once the cell has resolved and every
// subscriber registered before resolution has run.
func (r *Result) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the plan resolves or ctx is cancelled. On resolution it
// returns the outcome and the plan-level error (nil on success); on
// cancellation it returns the ctx error. The plan layer defines no timeout of
// its own, so callers waiting on a plan whose sessions may never report
// should bound ctx themselves.
func (r *Result) Wait(ctx context.Context) (core.PlanOutcome, error) {
	select {
	case <-r.done:
		r.mu.Lock()
		defer r.mu.Unlock()
		return r.outcome, r.err
	case <-ctx.Done():
		return core.PlanOutcome{}, ctx.Err()
	}
}

// Subscribe registers fn to run once on resolution. If the cell is already
// resolved, fn runs synchronously before Subscribe returns. Subscriptions
// must be lightweight; they may run on a reporting session's goroutine.
func (r *Result) Subscribe(fn func(outcome core.PlanOutcome, err error)) {
	r.mu.Lock()
	if !r.resolved {
		r.subscribers = append(r.subscribers, fn)
		r.mu.Unlock()
		return
	}
	outcome, err := r.outcome, r.err
	r.mu.Unlock()

	fn(outcome, err)
}
