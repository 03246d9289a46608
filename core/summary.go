package core

import "fmt"

// Direction distinguishes the two transfer directions of a session relative
// to the local node.
type Direction int

const (
	// DirectionOut marks bytes flowing from the local node to the peer.
	DirectionOut Direction = iota
	// DirectionIn marks bytes flowing from the peer to the local node.
	DirectionIn
)

// String returns the string representation of the direction.
func (d Direction) String() string {
	switch d {
	case DirectionOut:
		return "out"
	case DirectionIn:
		return "in"
	default:
		return "unknown"
	}
}

// SessionState is the terminal status recorded in a SessionSummary.
type SessionState int

const (
	// StatePending indicates the session has not reached a terminal state.
	StatePending SessionState = iota
	// StateSuccess indicates the session completed all transfers.
	StateSuccess
	// StateFailure indicates the session terminated without completing.
	StateFailure
)

// String returns the string representation of the session state.
func (s SessionState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateSuccess:
		return "success"
	case StateFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// SessionKey identifies one session inside a plan. A plan may run more than
// one session against the same peer, disambiguated by the session index.
type SessionKey struct {
	Peer  string
	Index int
}

// String returns "peer#index" for log correlation.
func (k SessionKey) String() string {
	return fmt.Sprintf("%s#%d", k.Peer, k.Index)
}

// SessionSummary is a snapshot of one session's transfer bookkeeping: the
// negotiated file/byte totals for both directions, the running transferred
// counters, and the terminal status once the session completes. Summaries are
// value types; the coordinator retains the latest one per session and the
// final set is surfaced through PlanOutcome.
type SessionSummary struct {
	Peer           string       `json:"peer"`
	SessionIndex   int          `json:"session_index"`
	FilesToSend    int          `json:"files_to_send"`
	BytesToSend    int64        `json:"bytes_to_send"`
	FilesToReceive int          `json:"files_to_receive"`
	BytesToReceive int64        `json:"bytes_to_receive"`
	BytesSent      int64        `json:"bytes_sent"`
	BytesReceived  int64        `json:"bytes_received"`
	State          SessionState `json:"state"`
	FailureReason  string       `json:"failure_reason,omitempty"`
}

// Key returns the (peer, index) identity of the summarized session.
func (s SessionSummary) Key() SessionKey {
	return SessionKey{Peer: s.Peer, Index: s.SessionIndex}
}

// Failed reports whether the session terminated with a failure.
func (s SessionSummary) Failed() bool {
	return s.State == StateFailure
}

// ProgressInfo is a monotonically non-decreasing progress increment for one
// file of one session in one direction. Increments are forwarded as reported;
// the engine neither deduplicates nor reorders them.
type ProgressInfo struct {
	Peer         string    `json:"peer"`
	SessionIndex int       `json:"session_index"`
	FileName     string    `json:"file_name"`
	Direction    Direction `json:"direction"`
	CurrentBytes int64     `json:"current_bytes"`
	TotalBytes   int64     `json:"total_bytes"`
}

// Key returns the (peer, index) identity of the reporting session.
func (p ProgressInfo) Key() SessionKey {
	return SessionKey{Peer: p.Peer, Index: p.SessionIndex}
}

// IsComplete reports whether the file transfer reached its total size.
func (p ProgressInfo) IsComplete() bool {
	return p.TotalBytes > 0 && p.CurrentBytes >= p.TotalBytes
}
