package reconcile

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/squareup/reconcile/pkg/metrics"
	"github.com/squareup/reconcile/pkg/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sensorsRows() [][]interface{} {
	return [][]interface{}{
		{"S1", "North tower", int64(220), 80.5, "", nil},
		{"S2", "South", int64(230), int64(70), nil, nil},
		{nil, "orphan", nil, nil, nil, nil},
	}
}

func TestReconcilerRun(t *testing.T) {
	db, tbl := newSensorsTable(t)
	ds := newSensorsSheet(t, sensorsRows()...)
	reporter := &recordingReporter{}
	sink := &recordingSink{}
	differ := NewDiffer(tbl, tbl.Columns, ds, reporter, logrus.New())
	op := &scriptedOperator{
		rows:   []RowDecision{ReviewRow},
		fields: []interface{}{Apply},
	}

	config := NewReconcilerDefaultConfig()
	config.Reporter = reporter
	config.MetricsSink = sink
	r, err := NewReconciler(ds, differ, NewExecutor(db, tbl, logrus.New()), op, config)
	require.NoError(t, err)

	stats, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Entities)
	assert.Equal(t, 1, stats.EntitiesWithChanges)
	assert.Equal(t, 1, stats.Candidates)
	assert.Equal(t, 1, stats.Applied)
	assert.Equal(t, int64(1), stats.RowsAffected)
	assert.Equal(t, 1, stats.SkippedRows)
	assert.Zero(t, stats.UpdateFailures)
	assert.Equal(t, 1, op.rowCalls) // S2 had nothing to review

	assert.Equal(t, []banner{{0, "S1"}, {1, "S2"}}, reporter.banners)
	require.Len(t, reporter.differences, 1)
	assert.Equal(t, "voltage", reporter.differences[0].Field)
	require.Len(t, reporter.summaries, 1)
	assert.Equal(t, 1, reporter.summaries[0].Applied)

	got, err := tbl.ReadField(context.Background(), "voltage", "S1")
	require.NoError(t, err)
	assert.True(t, Equal(got, table.NewDatum(220)))

	assert.Equal(t, float64(2), sink.values[metrics.EntitiesVisitedMetricName])
	assert.Equal(t, float64(1), sink.values[metrics.UpdatesAppliedMetricName])
}

func TestReconcilerStartRow(t *testing.T) {
	db, tbl := newSensorsTable(t)
	ds := newSensorsSheet(t, sensorsRows()...)
	reporter := &recordingReporter{}
	op := &scriptedOperator{}

	config := NewReconcilerDefaultConfig()
	config.StartRow = 1
	config.Reporter = reporter
	r, err := NewReconciler(ds, NewDiffer(tbl, tbl.Columns, ds, nil, logrus.New()), NewExecutor(db, tbl, logrus.New()), op, config)
	require.NoError(t, err)

	stats, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Entities)
	assert.Equal(t, []banner{{1, "S2"}}, reporter.banners)
	assert.Zero(t, op.rowCalls)
}

func TestReconcilerInputClosed(t *testing.T) {
	_, tbl := newSensorsTable(t)
	ds := newSensorsSheet(t, sensorsRows()...)
	applier := &recordingApplier{}
	op := &scriptedOperator{}

	r, err := NewReconciler(ds, NewDiffer(tbl, tbl.Columns, ds, nil, logrus.New()), applier, op, nil)
	require.NoError(t, err)
	stats, err := r.Run(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 1, stats.Entities)
	assert.Equal(t, 1, stats.Candidates)
	assert.Empty(t, applier.calls)
}

func TestReconcilerCancelled(t *testing.T) {
	_, tbl := newSensorsTable(t)
	ds := newSensorsSheet(t, sensorsRows()...)
	sink := &recordingSink{}
	config := NewReconcilerDefaultConfig()
	config.MetricsSink = sink

	r, err := NewReconciler(ds, NewDiffer(tbl, tbl.Columns, ds, nil, logrus.New()), &recordingApplier{}, &scriptedOperator{}, config)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	stats, err := r.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, stats.Entities)
	assert.Contains(t, sink.values, metrics.RunDurationMetricName)
}

func TestNewReconcilerValidation(t *testing.T) {
	_, tbl := newSensorsTable(t)
	ds := newSensorsSheet(t, sensorsRows()...)
	differ := NewDiffer(tbl, tbl.Columns, ds, nil, logrus.New())

	_, err := NewReconciler(ds, differ, nil, &scriptedOperator{}, nil)
	assert.Error(t, err)

	config := NewReconcilerDefaultConfig()
	config.KeyColumn = "id"
	_, err = NewReconciler(ds, differ, &recordingApplier{}, &scriptedOperator{}, config)
	assert.Error(t, err)

	config = NewReconcilerDefaultConfig()
	config.StartRow = 4
	_, err = NewReconciler(ds, differ, &recordingApplier{}, &scriptedOperator{}, config)
	assert.Error(t, err)
}

func TestStatsAdd(t *testing.T) {
	var s Stats
	s.Add(Outcome{Applied: 2, Skipped: 1, RowsAffected: 2})
	s.Add(Outcome{Abandoned: 3, Failed: 1})
	assert.Equal(t, Stats{Applied: 2, Skipped: 1, Abandoned: 3, UpdateFailures: 1, RowsAffected: 2}, s)
}
