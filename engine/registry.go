package engine

import (
	"fmt"
	"sync"

	"github.com/hupe1980/streamflow/core"
)

// Registry maps plan identifiers to their Engine instances, separately for
// the initiating and the receiving role. It is an explicitly owned,
// lifetime-scoped mapping: whoever creates plans injects one rather than
// relying on ambient global state.
//
// The registry itself never evicts; removal is triggered by the owner once a
// plan fully resolves.
type Registry struct {
	mu        sync.Mutex
	initiated map[core.PlanID]*Engine
	receiving map[core.PlanID]*Engine
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		initiated: make(map[core.PlanID]*Engine),
		receiving: make(map[core.PlanID]*Engine),
	}
}

// Register records an initiator-role engine. At most one engine may exist per
// plan identifier per role; a duplicate registration is a caller bug and
// returns an error.
func (r *Registry) Register(e *Engine) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.initiated[e.planID]; ok {
		return fmt.Errorf("plan %s already registered", e.planID)
	}
	r.initiated[e.planID] = e
	return nil
}

// GetOrCreateReceiving returns the receiver-role engine for planID, invoking
// factory to build it if absent. Exactly one factory invocation wins under
// concurrent first contact for the same unseen plan: the check and the insert
// happen under a single lock, so racing inbound sessions collapse onto one
// engine and one coordinator. The boolean reports whether factory ran.
func (r *Registry) GetOrCreateReceiving(planID core.PlanID, factory func() *Engine) (*Engine, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.receiving[planID]; ok {
		return e, false
	}
	e := factory()
	r.receiving[planID] = e
	return e, true
}

// GetInitiated returns the initiator-role engine for planID.
func (r *Registry) GetInitiated(planID core.PlanID) (*Engine, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.initiated[planID]
	return e, ok
}

// GetReceiving returns the receiver-role engine for planID.
func (r *Registry) GetReceiving(planID core.PlanID) (*Engine, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.receiving[planID]
	return e, ok
}

// Get returns the engine for planID in either role, preferring the initiator.
func (r *Registry) Get(planID core.PlanID) (*Engine, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.initiated[planID]; ok {
		return e, true
	}
	e, ok := r.receiving[planID]
	return e, ok
}

// All returns every registered engine across both roles. Engines registered
// under both roles for the same plan appear once.
func (r *Registry) All() []*Engine {
	r.mu.Lock()
	defer r.mu.Unlock()

	engines := make([]*Engine, 0, len(r.initiated)+len(r.receiving))
	for _, e := range r.initiated {
		engines = append(engines, e)
	}
	for id, e := range r.receiving {
		if _, ok := r.initiated[id]; !ok {
			engines = append(engines, e)
		}
	}
	return engines
}

// Remove drops planID from both roles.
func (r *Registry) Remove(planID core.PlanID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.initiated, planID)
	delete(r.receiving, planID)
}
