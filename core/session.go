package core

import "context"

// Reporter is the engine-side surface a session reports occurrences into.
// For a single session the contract is prepared → progress (zero or more) →
// complete, in that order; the reporter serializes dispatch internally so
// concurrent sessions may call it without coordination.
type Reporter interface {
	// HandleSessionPrepared records the negotiated transfer plan for the
	// session and notifies listeners.
	HandleSessionPrepared(summary SessionSummary)

	// HandleProgress forwards a progress increment to the plan's
	// aggregated state and notifies listeners.
	HandleProgress(progress ProgressInfo)

	// HandleSessionComplete records the session's final summary, notifies
	// listeners, and resolves the plan if no session remains active.
	HandleSessionComplete(session Session)
}

// Session is the per-peer unit of work within a plan. A session belongs to
// exactly one coordinator and is never re-parented. Session-level errors are
// absorbed into the summary, never returned through the reporting calls.
type Session interface {
	// Peer returns the network address of the remote node.
	Peer() string

	// Index returns the session index within the plan, disambiguating
	// multiple sessions against the same peer.
	Index() int

	// Init binds the session to the reporter it will deliver occurrences
	// to. One-shot: called exactly once, before any connection attempt.
	Init(r Reporter) error

	// Connect establishes the session's connection and drives the
	// transfer. A failure to connect must surface as the session
	// completing with a failed summary, not only as the returned error.
	Connect(ctx context.Context) error

	// Summary returns the session's current summary snapshot.
	Summary() SessionSummary
}
