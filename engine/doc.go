// Package engine implements the plan-level completion core of streamflow.
//
// One Engine exists per stream plan. It owns the plan's coordinator
// reference, the ordered listener set and the resolve-once result cell, and
// it is the shared synchronization point every concurrently running session
// reports into. The Engine aggregates session summaries into the
// coordinator's state and, once no session remains active, resolves the
// plan's outcome exactly once and notifies listeners.
//
// # Key Components
//
// Engine:
//   - The three reporting entry points sessions call (prepared, progress,
//     complete), each dispatching events to listeners under a single
//     per-engine critical section
//   - Outcome resolution: a plan fails if any session failed, succeeds
//     otherwise; there is no partial-success outcome
//
// Registry:
//   - Process-context lookup from plan identifier to Engine, separated by
//     role (initiator vs receiver), with atomic get-or-create for the
//     receiving role so racing first contacts collapse onto one Engine
//
// Result:
//   - A tagged resolve-once cell (unresolved | success | failure) exposed
//     for polling, channel wait and callback subscription
//
// # Concurrency Model
//
// Event dispatch and the done-check/resolution execute under one mutex per
// Engine, so per-session event ordering is preserved and two sessions
// completing concurrently cannot both resolve the plan. Listener work must
// be lightweight: it runs inside that critical section and a slow listener
// delays every reporting session of the plan.
//
// A session that never reports completion leaves the plan unresolved
// indefinitely; timeouts belong to the session/connection layer, not here.
package engine
