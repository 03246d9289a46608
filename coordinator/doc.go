// Package coordinator owns the set of sessions belonging to one stream plan
// and aggregates their summaries. The completion engine consults it to decide
// whether a plan is done; sessions themselves never touch it directly.
//
// A coordinator is created per plan, either by the initiating side (holding
// every outbound session) or lazily on the receiving side (holding none, but
// flagged as receiving so the plan does not resolve before inbound sessions
// report). Sessions are added before the plan starts and are never
// re-parented to another coordinator.
package coordinator
