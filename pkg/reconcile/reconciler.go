package reconcile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/siddontang/loggers"
	"github.com/sirupsen/logrus"
	"github.com/squareup/reconcile/pkg/metrics"
	"github.com/squareup/reconcile/pkg/table"
)

// Stats aggregates the outcomes of a run.
type Stats struct {
	Entities            int
	EntitiesWithChanges int
	Candidates          int
	Applied             int
	Skipped             int
	Abandoned           int
	UpdateFailures      int
	FetchFailures       int
	RowsAffected        int64
	SkippedRows         int // rows without an entity id
	Duration            time.Duration
}

// Add folds the outcome of one session into the stats.
func (s *Stats) Add(o Outcome) {
	s.Applied += o.Applied
	s.Skipped += o.Skipped
	s.Abandoned += o.Abandoned
	s.UpdateFailures += o.Failed
	s.RowsAffected += o.RowsAffected
}

func (s *Stats) metrics() *metrics.Metrics {
	return &metrics.Metrics{
		Values: []metrics.MetricValue{
			{Name: metrics.EntitiesVisitedMetricName, Value: float64(s.Entities), Type: metrics.COUNTER},
			{Name: metrics.EntitiesChangedMetricName, Value: float64(s.EntitiesWithChanges), Type: metrics.COUNTER},
			{Name: metrics.CandidatesMetricName, Value: float64(s.Candidates), Type: metrics.COUNTER},
			{Name: metrics.UpdatesAppliedMetricName, Value: float64(s.Applied), Type: metrics.COUNTER},
			{Name: metrics.UpdatesFailedMetricName, Value: float64(s.UpdateFailures), Type: metrics.COUNTER},
			{Name: metrics.CandidatesSkippedMetricName, Value: float64(s.Skipped), Type: metrics.COUNTER},
			{Name: metrics.CandidatesAbandonedMetricName, Value: float64(s.Abandoned), Type: metrics.COUNTER},
			{Name: metrics.FieldFetchErrorsMetricName, Value: float64(s.FetchFailures), Type: metrics.COUNTER},
			{Name: metrics.RowsAffectedMetricName, Value: float64(s.RowsAffected), Type: metrics.COUNTER},
			{Name: metrics.RunDurationMetricName, Value: s.Duration.Seconds(), Type: metrics.GAUGE},
		},
	}
}

type ReconcilerConfig struct {
	KeyColumn   string
	StartRow    int
	Reporter    Reporter
	Logger      loggers.Advanced
	MetricsSink metrics.Sink
}

// NewReconcilerDefaultConfig returns a config with a logrus logger,
// no reporting and no metrics.
func NewReconcilerDefaultConfig() *ReconcilerConfig {
	return &ReconcilerConfig{
		KeyColumn:   "sensor_id",
		Reporter:    nopReporter{},
		Logger:      logrus.New(),
		MetricsSink: metrics.NoopSink,
	}
}

// Reconciler walks the dataset from StartRow to the end, one entity at a time.
type Reconciler struct {
	dataset  Dataset
	differ   *Differ
	applier  Applier
	operator Operator
	config   *ReconcilerConfig
	stats    Stats
}

func NewReconciler(dataset Dataset, differ *Differ, applier Applier, operator Operator, config *ReconcilerConfig) (*Reconciler, error) {
	if dataset == nil || differ == nil || applier == nil || operator == nil {
		return nil, errors.New("dataset, differ, applier and operator are required")
	}
	if config == nil {
		config = NewReconcilerDefaultConfig()
	}
	if config.Reporter == nil {
		config.Reporter = nopReporter{}
	}
	if config.Logger == nil {
		config.Logger = logrus.New()
	}
	if config.MetricsSink == nil {
		config.MetricsSink = metrics.NoopSink
	}
	if !hasColumn(dataset.Columns(), config.KeyColumn) {
		return nil, fmt.Errorf("key column %q is not in the spreadsheet", config.KeyColumn)
	}
	if config.StartRow < 0 || config.StartRow > dataset.Len() {
		return nil, fmt.Errorf("start row %d is out of range, the spreadsheet has %d rows", config.StartRow, dataset.Len())
	}
	return &Reconciler{
		dataset:  dataset,
		differ:   differ,
		applier:  applier,
		operator: operator,
		config:   config,
	}, nil
}

func hasColumn(cols []string, col string) bool {
	for _, c := range cols {
		if c == col {
			return true
		}
	}
	return false
}

// EntityID returns the entity id of a dataset row, and false when
// the key cell is empty.
func (r *Reconciler) EntityID(row int) (string, bool) {
	raw, _ := r.dataset.Value(row, r.config.KeyColumn)
	key := table.NewDatum(raw)
	if key.IsNull() {
		return "", false
	}
	return key.String(), true
}

// Run reconciles every row from StartRow. Per-entity failures are logged
// and the run moves on. Closed operator input ends the run without error;
// a cancelled context ends it with the context's error. Either way the
// stats gathered so far are returned, summarized and sent to the sink.
func (r *Reconciler) Run(ctx context.Context) (*Stats, error) {
	startTime := time.Now()
	logger := r.config.Logger
	logger.Infof("starting reconciliation at row %d of %d, comparing columns %v",
		r.config.StartRow+1, r.dataset.Len(), r.differ.Columns())

	err := r.run(ctx)
	if errors.Is(err, io.EOF) {
		logger.Warnf("operator input closed, stopping")
		err = nil
	}
	r.stats.FetchFailures = r.differ.FetchErrors()
	r.stats.Duration = time.Since(startTime)
	r.config.Reporter.Summary(r.stats)
	logger.Infof("reconciliation finished: entities=%d with-changes=%d candidates=%d applied=%d skipped=%d abandoned=%d update-failures=%d fetch-failures=%d rows-affected=%d duration=%s",
		r.stats.Entities, r.stats.EntitiesWithChanges, r.stats.Candidates, r.stats.Applied,
		r.stats.Skipped, r.stats.Abandoned, r.stats.UpdateFailures, r.stats.FetchFailures,
		r.stats.RowsAffected, r.stats.Duration)
	r.sendMetrics()
	stats := r.stats
	return &stats, err
}

func (r *Reconciler) run(ctx context.Context) error {
	for row := r.config.StartRow; row < r.dataset.Len(); row++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		entityID, ok := r.EntityID(row)
		if !ok {
			r.stats.SkippedRows++
			r.config.Logger.Warnf("row %d has no value for %s, skipping", row+1, r.config.KeyColumn)
			continue
		}
		r.stats.Entities++
		r.config.Reporter.Banner(row, entityID)
		candidates, err := r.differ.Diff(ctx, row, entityID)
		if err != nil {
			return err
		}
		if len(candidates) > 0 {
			r.stats.EntitiesWithChanges++
			r.stats.Candidates += len(candidates)
		}
		session := NewSession(entityID, candidates, r.applier, r.config.Logger)
		outcome, err := session.Run(ctx, r.operator)
		r.stats.Add(outcome)
		if err != nil {
			return err
		}
	}
	return nil
}

// sendMetrics uses its own context so metrics are sent
// even when the run was cancelled.
func (r *Reconciler) sendMetrics() {
	ctx, cancel := context.WithTimeout(context.Background(), metrics.SinkTimeout)
	defer cancel()
	if err := r.config.MetricsSink.Send(ctx, r.stats.metrics()); err != nil {
		r.config.Logger.Errorf("error sending metrics: %v", err)
	}
}
