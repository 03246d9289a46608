package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/streamflow/coordinator"
	"github.com/hupe1980/streamflow/core"
	"github.com/hupe1980/streamflow/logging"
)

// Options configures an Engine instance.
type Options struct {
	// Logger provides structured logging. Defaults to NoOpLogger if nil.
	Logger logging.Logger

	// PreserveLevels is a directive forwarded from the initiating side
	// telling the transfer layer to keep storage-tier level metadata for
	// transferred files. It has no effect on completion semantics.
	PreserveLevels bool
}

// WithLogger sets the logger.
func WithLogger(logger logging.Logger) func(o *Options) {
	return func(o *Options) { o.Logger = logger }
}

// WithPreserveLevels sets the preserve-levels directive.
func WithPreserveLevels(preserve bool) func(o *Options) {
	return func(o *Options) { o.PreserveLevels = preserve }
}

// Engine is the completion core of one stream plan.
//
// It groups all sessions involved in the plan (via the coordinator), fans
// events out to listeners in attachment order, and resolves the plan's result
// exactly once when every session has completed. If any session ended with an
// error the result carries a *core.PlanError wrapping the full outcome.
//
// Sessions report into the engine through the core.Reporter entry points.
// A single mutex serializes summary mutation, listener dispatch and the
// done-check, so events from one session keep their reported order and two
// sessions completing concurrently cannot interleave resolution.
type Engine struct {
	planID         core.PlanID
	description    string
	coord          *coordinator.Coordinator
	logger         logging.Logger
	preserveLevels bool

	mu        sync.Mutex
	listeners []core.Listener
	result    *Result
}

var _ core.Reporter = (*Engine)(nil)

func newEngine(planID core.PlanID, description string, coord *coordinator.Coordinator, optFns ...func(o *Options)) *Engine {
	opts := Options{Logger: logging.NoOpLogger{}}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	return &Engine{
		planID:         planID,
		description:    description,
		coord:          coord,
		logger:         opts.Logger,
		preserveLevels: opts.PreserveLevels,
		result:         newResult(),
	}
}

// Create allocates the engine for a plan and registers it under the initiator
// role. If the coordinator is neither receiving nor holds any active session
// (a degenerate empty plan), the engine resolves immediately to a successful
// outcome with an empty summary set.
func Create(reg *Registry, planID core.PlanID, description string, coord *coordinator.Coordinator, optFns ...func(o *Options)) (*Engine, error) {
	e := newEngine(planID, description, coord, optFns...)

	if err := reg.Register(e); err != nil {
		return nil, err
	}

	// Nothing to listen to: resolve right away.
	if !coord.IsReceiving() && !coord.HasActiveSessions() {
		e.mu.Lock()
		e.maybeCompleteLocked()
		e.mu.Unlock()
	}

	return e, nil
}

// InitializeAndStart creates the engine (see Create), attaches the given
// listeners in order, hands every session a back-reference to the engine, and
// asks the coordinator to establish all connections. Connection establishment
// is fire-and-forget: the call does not block on it, and a session that fails
// to connect surfaces later as that session completing with failure.
func InitializeAndStart(ctx context.Context, reg *Registry, planID core.PlanID, description string, listeners []core.Listener, coord *coordinator.Coordinator, optFns ...func(o *Options)) (*Engine, error) {
	e, err := Create(reg, planID, description, coord, optFns...)
	if err != nil {
		return nil, err
	}

	for _, listener := range listeners {
		e.AddEventListener(listener)
	}

	e.logger.Info("[Stream #%s] Executing streaming plan for %s", planID, description)

	for _, session := range coord.AllSessions() {
		if err := session.Init(e); err != nil {
			return nil, fmt.Errorf("init session %s#%d: %w", session.Peer(), session.Index(), err)
		}
	}
	coord.ConnectAllSessions(ctx)

	return e, nil
}

// RegisterReceiving looks up the receiver-role engine for planID, creating
// and registering one bound to a fresh receiving coordinator on first inbound
// contact. Racing first contacts for the same unseen plan collapse onto one
// engine. The returned engine may predate this call; the boolean reports
// whether this call created it.
func RegisterReceiving(reg *Registry, sessionIndex int, planID core.PlanID, description string, fromPeer string, optFns ...func(o *Options)) (*Engine, bool) {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	e, created := reg.GetOrCreateReceiving(planID, func() *Engine {
		coord := coordinator.New(coordinator.WithReceiving(), coordinator.WithLogger(opts.Logger))
		return newEngine(planID, description, coord, optFns...)
	})
	if created {
		e.logger.Info("[Stream #%s ID#%d] Creating new streaming plan for %s", planID, sessionIndex, description)
	}
	e.logger.Info("[Stream #%s ID#%d] Received streaming plan for %s from %s", planID, sessionIndex, description, fromPeer)

	return e, created
}

// PlanID returns the plan identifier.
func (e *Engine) PlanID() core.PlanID { return e.planID }

// Description returns the human-readable plan label.
func (e *Engine) Description() string { return e.description }

// PreserveLevels returns the preserve-levels directive for the transfer layer.
func (e *Engine) PreserveLevels() bool { return e.preserveLevels }

// Coordinator returns the coordinator owning this plan's sessions.
func (e *Engine) Coordinator() *coordinator.Coordinator { return e.coord }

// Result returns the plan's resolve-once result cell.
func (e *Engine) Result() *Result { return e.result }

// AddEventListener appends a listener to the ordered set. Attachment never
// fails and may happen at any time; a listener attached after full resolution
// immediately receives the terminal plan_resolved event (once) but no replay
// of earlier events.
func (e *Engine) AddEventListener(listener core.Listener) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.listeners = append(e.listeners, listener)

	if outcome, ok := e.result.Outcome(); ok {
		listener.HandleStreamEvent(core.NewPlanResolvedEvent(outcome, e.result.Err()))
	}
}

// CurrentState returns a snapshot of the plan's aggregated state. Before
// resolution it reflects in-flight summaries.
func (e *Engine) CurrentState() core.PlanOutcome {
	return core.PlanOutcome{
		PlanID:      e.planID,
		Description: e.description,
		Sessions:    e.coord.AllSummaries(),
	}
}

// HandleSessionPrepared records the session's negotiated transfer plan and
// fires a session_prepared event.
func (e *Engine) HandleSessionPrepared(summary core.SessionSummary) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.logger.Info("[Stream #%s ID#%d] Prepare completed. Receiving %d files (%d bytes), sending %d files (%d bytes)",
		e.planID, summary.SessionIndex,
		summary.FilesToReceive, summary.BytesToReceive,
		summary.FilesToSend, summary.BytesToSend)

	e.coord.AddSessionSummary(summary)
	e.fireLocked(core.NewSessionPreparedEvent(e.planID, summary))
}

// HandleProgress folds a progress increment into the aggregated state and
// fires a progress event. Increments are forwarded as reported, without
// deduplication or reordering.
func (e *Engine) HandleProgress(progress core.ProgressInfo) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.coord.UpdateProgress(progress)
	e.fireLocked(core.NewProgressEvent(e.planID, progress))
}

// HandleSessionComplete records the session's final summary, fires a
// session_complete event, and resolves the plan if no session remains active.
// Listeners receive the event regardless of the session's success or failure
// and must inspect the summary to distinguish.
func (e *Engine) HandleSessionComplete(session core.Session) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.logger.Info("[Stream #%s] Session with %s is complete", e.planID, session.Peer())

	summary := session.Summary()
	e.fireLocked(core.NewSessionCompleteEvent(e.planID, summary))
	e.coord.AddSessionSummary(summary)
	e.maybeCompleteLocked()
}

// fireLocked dispatches ev to every listener in attachment order. Caller must
// hold e.mu; the snapshot decouples dispatch from concurrent attachment.
func (e *Engine) fireLocked(ev core.Event) {
	listeners := make([]core.Listener, len(e.listeners))
	copy(listeners, e.listeners)

	for _, listener := range listeners {
		listener.HandleStreamEvent(ev)
	}
}

// maybeCompleteLocked resolves the plan if no session remains active. Caller
// must hold e.mu. Resolution is idempotent: the result cell ignores repeated
// attempts even though the lock already prevents racing completions.
func (e *Engine) maybeCompleteLocked() {
	if e.coord.HasActiveSessions() {
		return
	}

	outcome := core.PlanOutcome{
		PlanID:      e.planID,
		Description: e.description,
		Sessions:    e.coord.AllSummaries(),
	}

	var planErr error
	if outcome.HasFailedSession() {
		e.logger.Warn("[Stream #%s] Stream failed", e.planID)
		planErr = &core.PlanError{Outcome: outcome}
	} else {
		e.logger.Info("[Stream #%s] All sessions completed", e.planID)
	}

	if e.result.resolve(outcome, planErr) {
		e.fireLocked(core.NewPlanResolvedEvent(outcome, planErr))
	}
}
