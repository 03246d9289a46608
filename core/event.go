package core

import "time"

// EventKind enumerates the event categories delivered to plan listeners.
type EventKind int

const (
	// EventSessionPrepared signals that a session finished negotiating its
	// transfer plan; the attached summary carries the file/byte totals.
	EventSessionPrepared EventKind = iota
	// EventProgress carries a per-file progress increment.
	EventProgress
	// EventSessionComplete signals that a session reached a terminal state.
	// Listeners must inspect the attached summary to distinguish success
	// from failure.
	EventSessionComplete
	// EventPlanResolved is the terminal event for the plan as a whole,
	// emitted exactly once after every session completed.
	EventPlanResolved
)

// String returns the string representation of the event kind.
func (k EventKind) String() string {
	switch k {
	case EventSessionPrepared:
		return "session_prepared"
	case EventProgress:
		return "progress"
	case EventSessionComplete:
		return "session_complete"
	case EventPlanResolved:
		return "plan_resolved"
	default:
		return "unknown"
	}
}

// Event is an immutable record delivered to every listener of a plan. Events
// from the same session are delivered in the order the session reported them;
// interleaving across sessions is unconstrained. Only the payload fields
// matching Kind are populated.
type Event struct {
	Kind      EventKind
	PlanID    PlanID
	Summary   *SessionSummary // session_prepared, session_complete
	Progress  *ProgressInfo   // progress
	Outcome   *PlanOutcome    // plan_resolved
	Err       error           // plan_resolved, nil on success
	Timestamp time.Time
}

// NewSessionPreparedEvent creates a session_prepared event.
func NewSessionPreparedEvent(planID PlanID, summary SessionSummary) Event {
	return Event{Kind: EventSessionPrepared, PlanID: planID, Summary: &summary, Timestamp: time.Now().UTC()}
}

// NewProgressEvent creates a progress event.
func NewProgressEvent(planID PlanID, progress ProgressInfo) Event {
	return Event{Kind: EventProgress, PlanID: planID, Progress: &progress, Timestamp: time.Now().UTC()}
}

// NewSessionCompleteEvent creates a session_complete event carrying the
// session's final summary.
func NewSessionCompleteEvent(planID PlanID, summary SessionSummary) Event {
	return Event{Kind: EventSessionComplete, PlanID: planID, Summary: &summary, Timestamp: time.Now().UTC()}
}

// NewPlanResolvedEvent creates the terminal plan_resolved event. err is nil
// when the plan succeeded.
func NewPlanResolvedEvent(outcome PlanOutcome, err error) Event {
	return Event{Kind: EventPlanResolved, PlanID: outcome.PlanID, Outcome: &outcome, Err: err, Timestamp: time.Now().UTC()}
}

// Listener observes the ordered event stream of one plan. Implementations
// must be lightweight: dispatch happens under the engine's critical section
// and a slow listener delays every reporting session of that plan.
type Listener interface {
	HandleStreamEvent(ev Event)
}

// ListenerFunc adapts a plain function to the Listener interface.
type ListenerFunc func(ev Event)

// HandleStreamEvent calls the wrapped function.
func (f ListenerFunc) HandleStreamEvent(ev Event) { f(ev) }
