package streamflow

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/streamflow/core"
	"github.com/hupe1980/streamflow/history"
	"github.com/hupe1980/streamflow/session"
)

// scriptedTransport moves a fixed payload, failing on demand.
type scriptedTransport struct {
	files int
	bytes int64
	fail  error
}

func (s *scriptedTransport) Open(context.Context) (session.TransferPlan, error) {
	return session.TransferPlan{FilesToSend: s.files, BytesToSend: s.bytes}, nil
}

func (s *scriptedTransport) Transfer(_ context.Context, report func(string, core.Direction, int64, int64)) error {
	if s.fail != nil {
		return s.fail
	}
	report("data", core.DirectionOut, s.bytes/2, s.bytes)
	report("data", core.DirectionOut, s.bytes, s.bytes)
	return nil
}

func (s *scriptedTransport) Close() error { return nil }

func TestStreamFlow_ExecutePlan(t *testing.T) {
	flow := New()

	builder := flow.NewPlan("rebalance").
		AddSession(session.New("a:7000", 0, &scriptedTransport{files: 1, bytes: 1000})).
		AddSession(session.New("b:7000", 0, &scriptedTransport{files: 2, bytes: 500}))

	e, err := builder.Execute(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	outcome, err := e.Result().Wait(ctx)
	require.NoError(t, err)

	require.Len(t, outcome.Sessions, 2)
	for _, s := range outcome.Sessions {
		assert.Equal(t, core.StateSuccess, s.State)
	}
	assert.Equal(t, builder.PlanID(), outcome.PlanID)

	// Resolved plans are removed from the registry.
	_, ok := flow.Plan(builder.PlanID())
	assert.False(t, ok)
}

func TestStreamFlow_ExecutePlanWithFailure(t *testing.T) {
	flow := New()

	builder := flow.NewPlan("decommission").
		AddSession(session.New("a:7000", 0, &scriptedTransport{files: 1, bytes: 100})).
		AddSession(session.New("b:7000", 0, &scriptedTransport{files: 1, bytes: 100, fail: errors.New("stream reset")}))

	e, err := builder.Execute(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	outcome, err := e.Result().Wait(ctx)
	require.Error(t, err)

	var planErr *core.PlanError
	require.ErrorAs(t, err, &planErr)
	assert.Len(t, outcome.Sessions, 2)
	require.Len(t, outcome.FailedSessions(), 1)
	assert.Equal(t, "b:7000", outcome.FailedSessions()[0].Peer)
}

func TestStreamFlow_EmptyPlanResolvesImmediately(t *testing.T) {
	flow := New()

	e, err := flow.NewPlan("noop").Execute(context.Background())
	require.NoError(t, err)

	outcome, resolved := e.Result().Outcome()
	require.True(t, resolved)
	assert.Empty(t, outcome.Sessions)
	assert.NoError(t, e.Result().Err())
}

func TestStreamFlow_Receive(t *testing.T) {
	flow := New()
	planID := core.NewPlanID()

	e1 := flow.Receive(0, planID, "inbound", "a:7000")
	e2 := flow.Receive(1, planID, "inbound", "b:7000")

	assert.Same(t, e1, e2)
	assert.True(t, e1.Coordinator().IsReceiving())

	got, ok := flow.Plan(planID)
	require.True(t, ok)
	assert.Same(t, e1, got)
}

func TestStreamFlow_JournalRecordsOutcome(t *testing.T) {
	ctx := context.Background()
	journal, err := history.Open(ctx, filepath.Join(t.TempDir(), "streams.db"))
	require.NoError(t, err)
	defer journal.Close()

	flow := New(WithJournal(journal))

	builder := flow.NewPlan("bootstrap").
		AddSession(session.New("a:7000", 0, &scriptedTransport{files: 1, bytes: 200}))

	e, err := builder.Execute(ctx)
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err = e.Result().Wait(waitCtx)
	require.NoError(t, err)

	rec, err := journal.GetOutcome(ctx, builder.PlanID())
	require.NoError(t, err)
	assert.True(t, rec.Success)
	assert.Equal(t, "bootstrap", rec.Outcome.Description)
	require.Len(t, rec.Outcome.Sessions, 1)
	assert.Equal(t, int64(200), rec.Outcome.Sessions[0].BytesSent)
}
