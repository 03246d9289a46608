// Package streamflow provides a high-level façade over the completion engine
// and its collaborators (registry, coordinator, sessions, logging, history)
// enabling construction of bulk data-streaming plans. Most applications
// interact with this package by:
//  1. Creating a StreamFlow via New() (optionally with a logger and journal)
//  2. Building initiator-side plans with NewPlan()...Execute()
//  3. Registering inbound plans with Receive() on the passive side
//
// The façade delegates orchestration to engine.Engine while keeping setup
// concise: it owns the plan registry, removes resolved plans from it, and
// records resolved outcomes to the optional history journal.
package streamflow

import (
	"context"
	"time"

	"github.com/hupe1980/streamflow/coordinator"
	"github.com/hupe1980/streamflow/core"
	"github.com/hupe1980/streamflow/engine"
	"github.com/hupe1980/streamflow/history"
	"github.com/hupe1980/streamflow/logging"
)

// Options configures the StreamFlow instance.
type Options struct {
	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger

	// Journal optionally records resolved plan outcomes. Nil disables
	// history recording.
	Journal *history.Journal

	// JournalTimeout bounds each journal write.
	JournalTimeout time.Duration
}

// WithLogger sets the logger shared by every plan.
func WithLogger(logger logging.Logger) func(o *Options) {
	return func(o *Options) { o.Logger = logger }
}

// WithJournal enables history recording of resolved plan outcomes.
func WithJournal(journal *history.Journal) func(o *Options) {
	return func(o *Options) { o.Journal = journal }
}

// StreamFlow is the high-level façade aggregating the plan registry and the
// ambient services shared by every plan of one process context.
type StreamFlow struct {
	opts     Options
	registry *engine.Registry
}

// New creates a new StreamFlow instance with optional overrides.
func New(optFns ...func(o *Options)) *StreamFlow {
	opts := Options{
		Logger:         logging.NoOpLogger{},
		JournalTimeout: 5 * time.Second,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	return &StreamFlow{opts: opts, registry: engine.NewRegistry()}
}

// Registry returns the plan registry owned by this instance.
func (f *StreamFlow) Registry() *engine.Registry { return f.registry }

// Plan returns the engine for planID in either role.
func (f *StreamFlow) Plan(planID core.PlanID) (*engine.Engine, bool) {
	return f.registry.Get(planID)
}

// Receive registers (or returns) the receiver-role engine for an inbound
// plan. Called on first contact from a peer opening sessionIndex of planID;
// idempotent under concurrent first contacts.
func (f *StreamFlow) Receive(sessionIndex int, planID core.PlanID, description string, fromPeer string) *engine.Engine {
	e, created := engine.RegisterReceiving(f.registry, sessionIndex, planID, description, fromPeer, engine.WithLogger(f.opts.Logger))
	if created {
		f.watch(e)
	}
	return e
}

// NewPlan starts building an initiator-side plan with a fresh identifier.
func (f *StreamFlow) NewPlan(description string) *PlanBuilder {
	return &PlanBuilder{
		flow:        f,
		planID:      core.NewPlanID(),
		description: description,
	}
}

// watch removes the plan from the registry once resolved and records the
// outcome to the journal if one is configured.
func (f *StreamFlow) watch(e *engine.Engine) {
	journal := f.opts.Journal
	timeout := f.opts.JournalTimeout
	logger := f.opts.Logger

	e.Result().Subscribe(func(outcome core.PlanOutcome, err error) {
		f.registry.Remove(outcome.PlanID)

		if journal == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if jerr := journal.RecordOutcome(ctx, outcome, err); jerr != nil {
			logger.Error("Failed to record plan outcome plan_id=%s: %v", outcome.PlanID, jerr)
		}
	})
}

// PlanBuilder stages the sessions and listeners of one initiator-side plan.
// Build methods return the builder for chaining; Execute starts the plan.
type PlanBuilder struct {
	flow           *StreamFlow
	planID         core.PlanID
	description    string
	sessions       []core.Session
	listeners      []core.Listener
	preserveLevels bool
}

// PlanID returns the identifier the plan will execute under.
func (b *PlanBuilder) PlanID() core.PlanID { return b.planID }

// AddSession stages a session for the plan.
func (b *PlanBuilder) AddSession(s core.Session) *PlanBuilder {
	b.sessions = append(b.sessions, s)
	return b
}

// AddListener attaches a listener; attachment order is notification order.
func (b *PlanBuilder) AddListener(l core.Listener) *PlanBuilder {
	b.listeners = append(b.listeners, l)
	return b
}

// PreserveLevels sets the preserve-levels directive forwarded to the
// transfer layer.
func (b *PlanBuilder) PreserveLevels(preserve bool) *PlanBuilder {
	b.preserveLevels = preserve
	return b
}

// Execute creates the coordinator and engine, registers the plan, attaches
// the staged listeners, initializes every session and starts connection
// establishment. It returns immediately; await the returned engine's Result
// for the outcome. A plan with no sessions resolves immediately to success.
func (b *PlanBuilder) Execute(ctx context.Context) (*engine.Engine, error) {
	coord := coordinator.New(coordinator.WithLogger(b.flow.opts.Logger))
	for _, s := range b.sessions {
		if err := coord.AddSession(s); err != nil {
			return nil, err
		}
	}

	e, err := engine.InitializeAndStart(ctx, b.flow.registry, b.planID, b.description, b.listeners, coord,
		engine.WithLogger(b.flow.opts.Logger),
		engine.WithPreserveLevels(b.preserveLevels),
	)
	if err != nil {
		return nil, err
	}

	b.flow.watch(e)
	return e, nil
}
