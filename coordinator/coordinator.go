package coordinator

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/hupe1980/streamflow/core"
	"github.com/hupe1980/streamflow/logging"
)

// fileKey identifies one file transfer of a session for progress accounting.
type fileKey struct {
	name      string
	direction core.Direction
}

// sessionEntry bundles the latest summary with per-file progress so byte
// counters can be recomputed as increments arrive.
type sessionEntry struct {
	summary  core.SessionSummary
	progress map[fileKey]int64
}

// Options configures a Coordinator.
type Options struct {
	// Receiving marks this coordinator as the passive side of a plan that
	// is expecting unsolicited inbound sessions. A receiving coordinator
	// keeps the plan unresolved even while it owns no sessions yet.
	Receiving bool

	// Logger provides structured logging. Defaults to NoOpLogger if nil.
	Logger logging.Logger
}

// Coordinator tracks the sessions and latest session summaries of one plan.
// All exported methods are safe for concurrent use; the completion engine
// additionally serializes summary mutation and done-checks under its own
// critical section so a resolution decision never sees a stale active count.
type Coordinator struct {
	mu        sync.RWMutex
	receiving bool
	sessions  map[core.SessionKey]core.Session
	entries   map[core.SessionKey]*sessionEntry
	active    map[core.SessionKey]struct{}
	logger    logging.Logger
}

// New constructs an empty Coordinator.
func New(optFns ...func(o *Options)) *Coordinator {
	opts := Options{Logger: logging.NoOpLogger{}}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	return &Coordinator{
		receiving: opts.Receiving,
		sessions:  make(map[core.SessionKey]core.Session),
		entries:   make(map[core.SessionKey]*sessionEntry),
		active:    make(map[core.SessionKey]struct{}),
		logger:    opts.Logger,
	}
}

// WithReceiving marks the coordinator as the receiving side of the plan.
func WithReceiving() func(o *Options) {
	return func(o *Options) { o.Receiving = true }
}

// WithLogger sets the logger.
func WithLogger(logger logging.Logger) func(o *Options) {
	return func(o *Options) { o.Logger = logger }
}

// AddSession registers a session with the coordinator. It returns an error if
// a session with the same (peer, index) identity is already owned.
func (c *Coordinator) AddSession(s core.Session) error {
	key := core.SessionKey{Peer: s.Peer(), Index: s.Index()}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.sessions[key]; ok {
		return fmt.Errorf("session %s already registered", key)
	}
	c.sessions[key] = s
	c.active[key] = struct{}{}
	return nil
}

// IsReceiving reports whether this coordinator is the passive side expecting
// unsolicited inbound sessions.
func (c *Coordinator) IsReceiving() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.receiving
}

// HasActiveSessions reports whether any owned session has not yet recorded a
// terminal summary.
func (c *Coordinator) HasActiveSessions() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.active) > 0
}

// AllSessions returns the owned sessions ordered by (peer, index).
func (c *Coordinator) AllSessions() []core.Session {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]core.SessionKey, 0, len(c.sessions))
	for k := range c.sessions {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Peer != keys[j].Peer {
			return keys[i].Peer < keys[j].Peer
		}
		return keys[i].Index < keys[j].Index
	})

	sessions := make([]core.Session, 0, len(keys))
	for _, k := range keys {
		sessions = append(sessions, c.sessions[k])
	}
	return sessions
}

// ConnectAllSessions starts connection establishment for every owned session.
// Each session is driven on its own goroutine; the call returns immediately.
// Connect errors are logged here and surface as that session completing with
// a failed summary.
func (c *Coordinator) ConnectAllSessions(ctx context.Context) {
	for _, s := range c.AllSessions() {
		go func(s core.Session) {
			if err := s.Connect(ctx); err != nil {
				c.logger.Warn("Session connect failed peer=%s index=%d: %v", s.Peer(), s.Index(), err)
			}
		}(s)
	}
}

// AddSessionSummary records (or replaces) the latest summary for a session.
// A terminal summary retires the session from the active set.
func (c *Coordinator) AddSessionSummary(summary core.SessionSummary) {
	key := summary.Key()

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		entry = &sessionEntry{progress: make(map[fileKey]int64)}
		c.entries[key] = entry
	}
	entry.summary = summary
	if summary.State != core.StatePending {
		delete(c.active, key)
	}
}

// UpdateProgress folds a per-file progress increment into the session's
// summary counters. Byte counts per (file, direction) are non-decreasing;
// regressions are ignored rather than subtracted.
func (c *Coordinator) UpdateProgress(p core.ProgressInfo) {
	key := p.Key()

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		entry = &sessionEntry{
			summary:  core.SessionSummary{Peer: p.Peer, SessionIndex: p.SessionIndex},
			progress: make(map[fileKey]int64),
		}
		c.entries[key] = entry
	}

	fk := fileKey{name: p.FileName, direction: p.Direction}
	if p.CurrentBytes < entry.progress[fk] {
		return
	}
	entry.progress[fk] = p.CurrentBytes

	var sent, received int64
	for k, bytes := range entry.progress {
		if k.direction == core.DirectionOut {
			sent += bytes
		} else {
			received += bytes
		}
	}
	entry.summary.BytesSent = sent
	entry.summary.BytesReceived = received
}

// AllSummaries returns a copy of the latest summaries ordered by (peer, index).
func (c *Coordinator) AllSummaries() []core.SessionSummary {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]core.SessionKey, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Peer != keys[j].Peer {
			return keys[i].Peer < keys[j].Peer
		}
		return keys[i].Index < keys[j].Index
	})

	summaries := make([]core.SessionSummary, 0, len(keys))
	for _, k := range keys {
		summaries = append(summaries, c.entries[k].summary)
	}
	return summaries
}
