// Package session houses the baseline implementation of core.Session: the
// per-peer unit of work inside a stream plan. A session walks the lifecycle
// created → connecting → preparing → streaming → complete/failed, delegating
// the byte-level work to a pluggable Transport and reporting prepared,
// progress and complete occurrences into its bound engine.
//
// The connection handshake, wire protocol and range selection live behind the
// Transport interface; swapping transports (real network, in-process pipes
// for tests) requires no change to the orchestration layers above.
package session
