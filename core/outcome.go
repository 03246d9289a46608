package core

import "fmt"

// PlanOutcome is the aggregated result of one stream plan: the identifier and
// description it was created with plus the set of session summaries known at
// snapshot time. Before resolution it reflects in-flight progress; the final
// outcome is taken when no session remains active.
type PlanOutcome struct {
	PlanID      PlanID           `json:"plan_id"`
	Description string           `json:"description"`
	Sessions    []SessionSummary `json:"sessions"`
}

// HasFailedSession reports whether any session in the snapshot failed. A
// single failed session fails the whole plan.
func (o PlanOutcome) HasFailedSession() bool {
	for _, s := range o.Sessions {
		if s.Failed() {
			return true
		}
	}
	return false
}

// FailedSessions returns the summaries of all failed sessions for diagnosis.
func (o PlanOutcome) FailedSessions() []SessionSummary {
	var failed []SessionSummary
	for _, s := range o.Sessions {
		if s.Failed() {
			failed = append(failed, s)
		}
	}
	return failed
}

// PlanError is the single plan-level failure surfaced when resolution finds
// at least one failed session. It carries the full outcome so callers can
// identify which peers failed.
type PlanError struct {
	Outcome PlanOutcome
}

// Error implements the error interface.
func (e *PlanError) Error() string {
	return fmt.Sprintf("stream plan %s (%s) failed: %d of %d sessions failed",
		e.Outcome.PlanID, e.Outcome.Description, len(e.Outcome.FailedSessions()), len(e.Outcome.Sessions))
}
