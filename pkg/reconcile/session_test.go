package reconcile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/squareup/reconcile/pkg/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candidates(fields ...string) []Candidate {
	var cs []Candidate
	for i, f := range fields {
		cs = append(cs, Candidate{
			Field:     f,
			Persisted: table.NewDatum("old"),
			Proposed:  table.NewDatum(i),
		})
	}
	return cs
}

func TestSessionNoCandidates(t *testing.T) {
	op := &scriptedOperator{}
	applier := &recordingApplier{}
	s := NewSession("S1", nil, applier, logrus.New())
	assert.Equal(t, StateIdle, s.State())

	outcome, err := s.Run(context.Background(), op)
	assert.NoError(t, err)
	assert.Equal(t, StateDone, s.State())
	assert.Equal(t, Outcome{}, outcome)
	assert.Zero(t, op.rowCalls)
	assert.Zero(t, op.fieldCalls)
	assert.Empty(t, applier.calls)
}

func TestSessionApplyAll(t *testing.T) {
	op := &scriptedOperator{
		rows:   []RowDecision{ReviewRow},
		fields: []interface{}{Apply, Skip, Apply},
	}
	applier := &recordingApplier{}
	s := NewSession("S1", candidates("name", "voltage", "height"), applier, logrus.New())

	outcome, err := s.Run(context.Background(), op)
	assert.NoError(t, err)
	assert.Equal(t, StateDone, s.State())
	assert.Equal(t, []string{"name", "height"}, applier.fields())
	assert.Equal(t, "S1", applier.calls[1].entityID)
	assert.Equal(t, table.NewDatum(2), applier.calls[1].value)
	assert.Equal(t, Outcome{Applied: 2, Skipped: 1, RowsAffected: 2}, outcome)
	assert.Equal(t, []string{"S1.name", "S1.voltage", "S1.height"}, op.asked)
}

func TestSessionAbandonRow(t *testing.T) {
	// Abandon at the third of five candidates.
	op := &scriptedOperator{
		rows:   []RowDecision{ReviewRow},
		fields: []interface{}{Apply, Apply, AbandonRow, Apply, Apply},
	}
	applier := &recordingApplier{}
	s := NewSession("S1", candidates("a", "b", "c", "d", "e"), applier, logrus.New())

	outcome, err := s.Run(context.Background(), op)
	assert.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, applier.fields())
	assert.Equal(t, 3, op.fieldCalls)
	assert.Equal(t, Outcome{Applied: 2, Abandoned: 3, RowsAffected: 2}, outcome)
	_, ok := s.Current()
	assert.False(t, ok)
}

func TestSessionSkipRow(t *testing.T) {
	op := &scriptedOperator{rows: []RowDecision{SkipRow}}
	applier := &recordingApplier{}
	s := NewSession("S1", candidates("a", "b"), applier, logrus.New())

	outcome, err := s.Run(context.Background(), op)
	assert.NoError(t, err)
	assert.Equal(t, StateDone, s.State())
	assert.Zero(t, op.fieldCalls)
	assert.Empty(t, applier.calls)
	assert.Equal(t, Outcome{RowSkipped: true, Skipped: 2}, outcome)
}

func TestSessionUpdateFailureContinues(t *testing.T) {
	op := &scriptedOperator{
		rows:   []RowDecision{ReviewRow},
		fields: []interface{}{Apply, Apply},
	}
	applier := &recordingApplier{fail: map[string]error{"a": ErrUpdate}}
	s := NewSession("S1", candidates("a", "b"), applier, logrus.New())

	outcome, err := s.Run(context.Background(), op)
	assert.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, applier.fields())
	assert.Equal(t, Outcome{Applied: 1, Failed: 1, RowsAffected: 1}, outcome)
}

func TestSessionReprompts(t *testing.T) {
	op := &scriptedOperator{
		rows:   []RowDecision{ReviewRow},
		fields: []interface{}{ErrOperatorInput, ErrOperatorInput, Apply},
	}
	applier := &recordingApplier{}
	s := NewSession("S1", candidates("a"), applier, logrus.New())

	outcome, err := s.Run(context.Background(), op)
	assert.NoError(t, err)
	assert.Equal(t, 3, op.fieldCalls)
	assert.Equal(t, []string{"S1.a", "S1.a", "S1.a"}, op.asked)
	assert.Equal(t, 1, outcome.Applied)
}

func TestSessionInputClosed(t *testing.T) {
	op := &scriptedOperator{
		rows:   []RowDecision{ReviewRow},
		fields: []interface{}{Apply},
	}
	applier := &recordingApplier{}
	s := NewSession("S1", candidates("a", "b"), applier, logrus.New())

	outcome, err := s.Run(context.Background(), op)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, StatePerFieldLoop, s.State())
	assert.Equal(t, 1, outcome.Applied)
}

func TestSessionCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	op := &scriptedOperator{rows: []RowDecision{ReviewRow}}
	s := NewSession("S1", candidates("a"), &recordingApplier{}, logrus.New())
	_, err := s.Run(ctx, op)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, op.rowCalls)
}

// cancellingApplier cancels the run while the update is in flight.
type cancellingApplier struct {
	cancel context.CancelFunc
	calls  int
}

func (a *cancellingApplier) Apply(ctx context.Context, entityID, field string, value table.Datum) (int64, error) {
	a.calls++
	a.cancel()
	return 0, fmt.Errorf("%w: %w", ErrUpdate, ctx.Err())
}

func TestSessionApplyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	applier := &recordingApplier{}
	logger, hook := test.NewNullLogger()
	s := NewSession("S1", candidates("a", "b"), applier, logger)
	require.NoError(t, s.Start())
	require.NoError(t, s.DecideRow(ReviewRow))

	cancel()
	assert.ErrorIs(t, s.DecideField(ctx, Apply), context.Canceled)
	assert.Empty(t, applier.calls)
	assert.Equal(t, Outcome{}, s.Outcome())
	c, ok := s.Current()
	assert.True(t, ok)
	assert.Equal(t, "a", c.Field)
	assert.Empty(t, hook.Entries)
}

func TestSessionCancelledDuringApply(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	applier := &cancellingApplier{cancel: cancel}
	op := &scriptedOperator{
		rows:   []RowDecision{ReviewRow},
		fields: []interface{}{Apply, Apply},
	}
	logger, hook := test.NewNullLogger()
	s := NewSession("S1", candidates("a", "b"), applier, logger)

	outcome, err := s.Run(ctx, op)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, applier.calls)
	assert.Zero(t, outcome.Failed)
	assert.Equal(t, Outcome{}, outcome)
	assert.Equal(t, StatePerFieldLoop, s.State())
	assert.Empty(t, hook.Entries)
}

func TestSessionTransitions(t *testing.T) {
	ctx := context.Background()
	s := NewSession("S1", candidates("a", "b"), &recordingApplier{}, logrus.New())

	assert.ErrorIs(t, s.DecideRow(ReviewRow), ErrInvalidTransition)
	assert.ErrorIs(t, s.DecideField(ctx, Apply), ErrInvalidTransition)

	require.NoError(t, s.Start())
	assert.Equal(t, StateAwaitingRowDecision, s.State())
	assert.ErrorIs(t, s.Start(), ErrInvalidTransition)
	assert.ErrorIs(t, s.DecideField(ctx, Apply), ErrInvalidTransition)
	assert.ErrorIs(t, s.DecideRow(RowDecision(42)), ErrOperatorInput)

	require.NoError(t, s.DecideRow(ReviewRow))
	assert.Equal(t, StatePerFieldLoop, s.State())
	c, ok := s.Current()
	assert.True(t, ok)
	assert.Equal(t, "a", c.Field)
	assert.ErrorIs(t, s.DecideRow(ReviewRow), ErrInvalidTransition)
	assert.ErrorIs(t, s.DecideField(ctx, Decision(42)), ErrOperatorInput)

	require.NoError(t, s.DecideField(ctx, Skip))
	c, _ = s.Current()
	assert.Equal(t, "b", c.Field)
	require.NoError(t, s.DecideField(ctx, Apply))
	assert.Equal(t, StateDone, s.State())
	assert.ErrorIs(t, s.DecideField(ctx, Apply), ErrInvalidTransition)
	assert.True(t, errors.Is(s.transition(StateIdle), ErrInvalidTransition))
}

func TestStateStrings(t *testing.T) {
	assert.Equal(t, "awaitingRowDecision", StateAwaitingRowDecision.String())
	assert.Equal(t, "done", StateDone.String())
	assert.Equal(t, "unknown", State(99).String())
	assert.Equal(t, "skip", SkipRow.String())
	assert.Equal(t, "abandonRow", AbandonRow.String())
	assert.True(t, canTransition(StateIdle, StateDone))
	assert.False(t, canTransition(StateDone, StateIdle))
	assert.False(t, canTransition(StateIdle, StatePerFieldLoop))
}
