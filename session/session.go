package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hupe1980/streamflow/core"
	"github.com/hupe1980/streamflow/logging"
)

// State is the connection lifecycle state of a session. It is distinct from
// core.SessionState, which is the terminal status recorded in summaries.
type State int

const (
	// StateCreated is the initial state before any connection attempt.
	StateCreated State = iota
	// StateConnecting covers connection establishment and handshake.
	StateConnecting
	// StatePreparing covers transfer plan negotiation.
	StatePreparing
	// StateStreaming covers the actual byte transfer.
	StateStreaming
	// StateComplete is the terminal success state.
	StateComplete
	// StateFailed is the terminal failure state.
	StateFailed
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateConnecting:
		return "connecting"
	case StatePreparing:
		return "preparing"
	case StateStreaming:
		return "streaming"
	case StateComplete:
		return "complete"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// TransferPlan is the negotiated outcome of the preparation phase: how many
// files and bytes will flow in each direction.
type TransferPlan struct {
	FilesToSend    int
	BytesToSend    int64
	FilesToReceive int
	BytesToReceive int64
}

// Transport drives the byte-level work of one session. Implementations own
// the socket, the handshake and the wire protocol; the session owns lifecycle
// bookkeeping and reporting.
type Transport interface {
	// Open establishes the connection and negotiates the transfer plan.
	Open(ctx context.Context) (TransferPlan, error)

	// Transfer moves the bytes, calling report with monotonically
	// non-decreasing per-file byte counts as they move. Transfer returns
	// once every file completed or a transfer error occurred.
	Transfer(ctx context.Context, report func(fileName string, direction core.Direction, currentBytes, totalBytes int64)) error

	// Close releases the connection. Called exactly once after Transfer
	// (or after a failed Open).
	Close() error
}

// Options configures a Session.
type Options struct {
	// Inbound marks the session as initiated by the remote peer.
	Inbound bool

	// Logger provides structured logging. Defaults to NoOpLogger if nil.
	Logger logging.Logger
}

// WithInbound marks the session as remotely initiated.
func WithInbound() func(o *Options) {
	return func(o *Options) { o.Inbound = true }
}

// WithLogger sets the logger.
func WithLogger(logger logging.Logger) func(o *Options) {
	return func(o *Options) { o.Logger = logger }
}

// Session is the baseline core.Session implementation. It belongs to exactly
// one coordinator, reports into exactly one reporter, and delegates transfer
// work to its Transport. Session-level errors are absorbed into the summary
// and surface through the plan outcome, never through the reporting calls.
type Session struct {
	peer      string
	index     int
	inbound   bool
	transport Transport
	logger    logging.Logger

	mu       sync.Mutex
	state    State
	reporter core.Reporter
	summary  core.SessionSummary
	progress map[progressKey]int64
}

type progressKey struct {
	name      string
	direction core.Direction
}

var _ core.Session = (*Session)(nil)

// New constructs a session for the given peer and session index, delegating
// transfer work to transport.
func New(peer string, index int, transport Transport, optFns ...func(o *Options)) *Session {
	opts := Options{Logger: logging.NoOpLogger{}}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	return &Session{
		peer:      peer,
		index:     index,
		inbound:   opts.Inbound,
		transport: transport,
		logger:    opts.Logger,
		state:     StateCreated,
		summary: core.SessionSummary{
			Peer:         peer,
			SessionIndex: index,
			State:        core.StatePending,
		},
		progress: make(map[progressKey]int64),
	}
}

// Peer returns the remote node's network address.
func (s *Session) Peer() string { return s.peer }

// Index returns the session index within the plan.
func (s *Session) Index() int { return s.index }

// Inbound reports whether the remote peer initiated this session.
func (s *Session) Inbound() bool { return s.inbound }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Init binds the session to its reporter. One-shot: a second call is an error.
func (s *Session) Init(r core.Reporter) error {
	if r == nil {
		return errors.New("nil reporter")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.reporter != nil {
		return fmt.Errorf("session %s#%d already initialized", s.peer, s.index)
	}
	s.reporter = r
	return nil
}

// Summary returns a snapshot of the session's current summary.
func (s *Session) Summary() core.SessionSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summary
}

// Connect establishes the connection, negotiates the transfer plan and drives
// the transfer to completion. Any failure is recorded in the summary and
// reported as a failed completion before the error is returned, so callers
// treating Connect as fire-and-forget still observe the failure through the
// plan outcome.
func (s *Session) Connect(ctx context.Context) error {
	if err := s.transition(StateCreated, StateConnecting); err != nil {
		return err
	}

	s.logger.Debug("Session %s#%d connecting", s.peer, s.index)

	plan, err := s.transport.Open(ctx)
	if err != nil {
		s.fail(fmt.Errorf("open transport: %w", err))
		_ = s.transport.Close()
		return fmt.Errorf("open transport: %w", err)
	}

	s.markPrepared(plan)

	err = s.transport.Transfer(ctx, s.reportProgress)
	if closeErr := s.transport.Close(); closeErr != nil && err == nil {
		err = fmt.Errorf("close transport: %w", closeErr)
	}
	if err != nil {
		s.fail(err)
		return err
	}

	s.complete()
	return nil
}

// Fail records an externally observed failure (e.g. the remote peer tearing
// down the plan) and reports the session complete. No-op once terminal.
func (s *Session) Fail(reason error) {
	s.fail(reason)
}

func (s *Session) transition(from, to State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != from {
		return fmt.Errorf("session %s#%d is %s, expected %s", s.peer, s.index, s.state, from)
	}
	if s.reporter == nil {
		return fmt.Errorf("session %s#%d not initialized", s.peer, s.index)
	}
	s.state = to
	return nil
}

// markPrepared records the negotiated totals and reports session-prepared.
// The reporter is invoked after releasing the session lock: the engine reads
// the session's summary under its own critical section.
func (s *Session) markPrepared(plan TransferPlan) {
	s.mu.Lock()
	s.state = StateStreaming
	s.summary.FilesToSend = plan.FilesToSend
	s.summary.BytesToSend = plan.BytesToSend
	s.summary.FilesToReceive = plan.FilesToReceive
	s.summary.BytesToReceive = plan.BytesToReceive
	summary := s.summary
	reporter := s.reporter
	s.mu.Unlock()

	reporter.HandleSessionPrepared(summary)
}

func (s *Session) reportProgress(fileName string, direction core.Direction, currentBytes, totalBytes int64) {
	s.mu.Lock()
	key := progressKey{name: fileName, direction: direction}
	if currentBytes > s.progress[key] {
		s.progress[key] = currentBytes
	}
	var sent, received int64
	for k, b := range s.progress {
		if k.direction == core.DirectionOut {
			sent += b
		} else {
			received += b
		}
	}
	s.summary.BytesSent = sent
	s.summary.BytesReceived = received
	reporter := s.reporter
	s.mu.Unlock()

	reporter.HandleProgress(core.ProgressInfo{
		Peer:         s.peer,
		SessionIndex: s.index,
		FileName:     fileName,
		Direction:    direction,
		CurrentBytes: currentBytes,
		TotalBytes:   totalBytes,
	})
}

func (s *Session) complete() {
	s.mu.Lock()
	if s.state == StateComplete || s.state == StateFailed {
		s.mu.Unlock()
		return
	}
	s.state = StateComplete
	s.summary.State = core.StateSuccess
	reporter := s.reporter
	s.mu.Unlock()

	reporter.HandleSessionComplete(s)
}

func (s *Session) fail(reason error) {
	s.mu.Lock()
	if s.state == StateComplete || s.state == StateFailed {
		s.mu.Unlock()
		return
	}
	s.state = StateFailed
	s.summary.State = core.StateFailure
	if reason != nil {
		s.summary.FailureReason = reason.Error()
	}
	reporter := s.reporter
	s.mu.Unlock()

	s.logger.Warn("Session %s#%d failed: %v", s.peer, s.index, reason)

	if reporter != nil {
		reporter.HandleSessionComplete(s)
	}
}
