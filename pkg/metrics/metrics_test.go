package metrics

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoopSink(t *testing.T) {
	assert.NoError(t, NoopSink.Send(context.Background(), &Metrics{Values: []MetricValue{{Name: "x", Value: 1, Type: COUNTER}}}))
}

func TestLogSink(t *testing.T) {
	logger, hook := test.NewNullLogger()
	sink := NewLogSink(logger)
	err := sink.Send(context.Background(), &Metrics{Values: []MetricValue{
		{Name: UpdatesAppliedMetricName, Value: 3, Type: COUNTER},
		{Name: RunDurationMetricName, Value: 1.5, Type: GAUGE},
		{Name: "bogus", Value: 1, Type: UNKNOWN},
	}})
	assert.NoError(t, err)
	require.Len(t, hook.Entries, 3)
	assert.Equal(t, "metric: name: updates_applied, type: counter, value: 3.000000", hook.Entries[0].Message)
	assert.Equal(t, "metric: name: run_duration_seconds, type: gauge, value: 1.500000", hook.Entries[1].Message)
	assert.Equal(t, logrus.ErrorLevel, hook.Entries[2].Level)
}

type failingSink struct{}

func (failingSink) Send(context.Context, *Metrics) error {
	return errors.New("sink down")
}

func TestMultiSink(t *testing.T) {
	logger, hook := test.NewNullLogger()
	sink := NewMultiSink(failingSink{}, NewLogSink(logger))
	err := sink.Send(context.Background(), &Metrics{Values: []MetricValue{{Name: "x", Value: 1, Type: GAUGE}}})
	assert.EqualError(t, err, "sink down")
	assert.Len(t, hook.Entries, 1) // later sinks still receive the metrics
}

func TestTextfileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reconcile.prom")
	sink := NewTextfileSink(path, map[string]string{"table": "sensors"})
	err := sink.Send(context.Background(), &Metrics{Values: []MetricValue{
		{Name: UpdatesAppliedMetricName, Value: 2, Type: COUNTER},
		{Name: RunDurationMetricName, Value: 0.5, Type: GAUGE},
	}})
	require.NoError(t, err)
	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(contents), `reconcile_updates_applied_total{table="sensors"} 2`)
	assert.Contains(t, string(contents), `reconcile_run_duration_seconds{table="sensors"} 0.5`)
	assert.Contains(t, string(contents), "# TYPE reconcile_updates_applied_total counter")

	err = sink.Send(context.Background(), &Metrics{Values: []MetricValue{{Name: "neg", Value: -1, Type: COUNTER}}})
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sink.Send(ctx, &Metrics{}), context.Canceled)
}
