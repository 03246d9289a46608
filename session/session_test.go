package session

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/streamflow/core"
)

// fakeTransport scripts the transfer of a fixed set of files.
type fakeTransport struct {
	plan        TransferPlan
	openErr     error
	transferErr error
	chunks      []chunk

	mu     sync.Mutex
	closed bool
}

type chunk struct {
	file      string
	direction core.Direction
	current   int64
	total     int64
}

func (f *fakeTransport) Open(context.Context) (TransferPlan, error) {
	if f.openErr != nil {
		return TransferPlan{}, f.openErr
	}
	return f.plan, nil
}

func (f *fakeTransport) Transfer(_ context.Context, report func(string, core.Direction, int64, int64)) error {
	for _, c := range f.chunks {
		report(c.file, c.direction, c.current, c.total)
	}
	return f.transferErr
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// recordingReporter captures reported occurrences in order.
type recordingReporter struct {
	mu        sync.Mutex
	prepared  []core.SessionSummary
	progress  []core.ProgressInfo
	completed []core.SessionSummary
}

func (r *recordingReporter) HandleSessionPrepared(summary core.SessionSummary) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prepared = append(r.prepared, summary)
}

func (r *recordingReporter) HandleProgress(p core.ProgressInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress = append(r.progress, p)
}

func (r *recordingReporter) HandleSessionComplete(s core.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed = append(r.completed, s.Summary())
}

func TestSession_InitOnce(t *testing.T) {
	s := New("a:7000", 0, &fakeTransport{})

	assert.Error(t, s.Init(nil))
	require.NoError(t, s.Init(&recordingReporter{}))
	assert.Error(t, s.Init(&recordingReporter{}))
}

func TestSession_ConnectRequiresInit(t *testing.T) {
	s := New("a:7000", 0, &fakeTransport{})
	assert.Error(t, s.Connect(context.Background()))
}

func TestSession_SuccessfulTransfer(t *testing.T) {
	transport := &fakeTransport{
		plan: TransferPlan{FilesToSend: 2, BytesToSend: 300, FilesToReceive: 1, BytesToReceive: 50},
		chunks: []chunk{
			{file: "f1", direction: core.DirectionOut, current: 100, total: 200},
			{file: "f1", direction: core.DirectionOut, current: 200, total: 200},
			{file: "f2", direction: core.DirectionOut, current: 100, total: 100},
			{file: "g1", direction: core.DirectionIn, current: 50, total: 50},
		},
	}
	reporter := &recordingReporter{}
	s := New("a:7000", 0, transport)
	require.NoError(t, s.Init(reporter))

	require.NoError(t, s.Connect(context.Background()))
	assert.Equal(t, StateComplete, s.State())
	assert.True(t, transport.closed)

	require.Len(t, reporter.prepared, 1)
	assert.Equal(t, 2, reporter.prepared[0].FilesToSend)
	assert.Equal(t, int64(300), reporter.prepared[0].BytesToSend)
	assert.Equal(t, int64(50), reporter.prepared[0].BytesToReceive)

	assert.Len(t, reporter.progress, 4)

	require.Len(t, reporter.completed, 1)
	final := reporter.completed[0]
	assert.Equal(t, core.StateSuccess, final.State)
	assert.Equal(t, int64(300), final.BytesSent)
	assert.Equal(t, int64(50), final.BytesReceived)
}

func TestSession_OpenFailure(t *testing.T) {
	transport := &fakeTransport{openErr: errors.New("connection refused")}
	reporter := &recordingReporter{}
	s := New("a:7000", 0, transport)
	require.NoError(t, s.Init(reporter))

	err := s.Connect(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateFailed, s.State())
	assert.True(t, transport.closed)

	// The failure surfaces as a failed completion, not only as an error.
	assert.Empty(t, reporter.prepared)
	require.Len(t, reporter.completed, 1)
	assert.Equal(t, core.StateFailure, reporter.completed[0].State)
	assert.Contains(t, reporter.completed[0].FailureReason, "connection refused")
}

func TestSession_TransferFailure(t *testing.T) {
	transport := &fakeTransport{
		plan:        TransferPlan{FilesToSend: 1, BytesToSend: 100},
		chunks:      []chunk{{file: "f1", direction: core.DirectionOut, current: 40, total: 100}},
		transferErr: errors.New("stream reset"),
	}
	reporter := &recordingReporter{}
	s := New("b:7000", 1, transport)
	require.NoError(t, s.Init(reporter))

	err := s.Connect(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateFailed, s.State())

	require.Len(t, reporter.prepared, 1)
	require.Len(t, reporter.completed, 1)
	final := reporter.completed[0]
	assert.Equal(t, core.StateFailure, final.State)
	assert.Equal(t, int64(40), final.BytesSent)
	assert.Contains(t, final.FailureReason, "stream reset")
}

func TestSession_ConnectTwice(t *testing.T) {
	transport := &fakeTransport{plan: TransferPlan{}}
	s := New("a:7000", 0, transport)
	require.NoError(t, s.Init(&recordingReporter{}))

	require.NoError(t, s.Connect(context.Background()))
	assert.Error(t, s.Connect(context.Background()))
}

func TestSession_ExternalFail(t *testing.T) {
	reporter := &recordingReporter{}
	s := New("a:7000", 0, &fakeTransport{})
	require.NoError(t, s.Init(reporter))

	s.Fail(errors.New("peer torn down"))
	assert.Equal(t, StateFailed, s.State())
	require.Len(t, reporter.completed, 1)

	// Terminal states are sticky.
	s.Fail(errors.New("again"))
	assert.Len(t, reporter.completed, 1)
}

func TestSession_Accessors(t *testing.T) {
	s := New("a:7000", 3, &fakeTransport{}, WithInbound())
	assert.Equal(t, "a:7000", s.Peer())
	assert.Equal(t, 3, s.Index())
	assert.True(t, s.Inbound())
	assert.Equal(t, StateCreated, s.State())
	assert.Equal(t, core.StatePending, s.Summary().State)
}
