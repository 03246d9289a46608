// Package core provides the foundational domain types and interfaces used by
// streamflow. It defines the core abstractions for:
//
//   - Plan identifiers (the shared 128-bit handle naming one bulk transfer)
//   - Sessions (the per-peer unit of work inside a plan)
//   - SessionSummary / ProgressInfo (point-in-time transfer bookkeeping)
//   - Events (immutable records fanned out to plan listeners)
//   - PlanOutcome / PlanError (the aggregated terminal result of a plan)
//
// The package intentionally keeps implementation concerns (connection
// handling, coordination, engine orchestration) out of scope, exposing small
// interfaces so higher layers can depend on contracts rather than concrete
// types.
package core
