package merge

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/siddontang/loggers"
	"github.com/sirupsen/logrus"
	"github.com/squareup/reconcile/pkg/check"
	"github.com/squareup/reconcile/pkg/console"
	"github.com/squareup/reconcile/pkg/dbconn"
	"github.com/squareup/reconcile/pkg/metrics"
	"github.com/squareup/reconcile/pkg/reconcile"
	"github.com/squareup/reconcile/pkg/sheet"
	"github.com/squareup/reconcile/pkg/snapshot"
	"github.com/squareup/reconcile/pkg/table"
)

type Runner struct {
	merge   *Merge
	dsn     string
	db      *sqlx.DB
	table   *table.TableInfo
	dataset *sheet.Dataset
	console *console.Console
	stats   *reconcile.Stats

	// Track some key statistics.
	startTime    time.Time
	snapshotPath string
	snapshotRows int

	// Attached logger
	logger loggers.Advanced

	// MetricsSink
	metricsSink metrics.Sink
}

func NewRunner(m *Merge) (*Runner, error) {
	dsn, err := m.normalizeOptions()
	if err != nil {
		return nil, err
	}
	runID := uuid.New().String()
	log := logrus.New()
	if m.Debug {
		log.SetLevel(logrus.DebugLevel)
	}
	logger := log.WithField("run", runID)
	sinks := []metrics.Sink{metrics.NewLogSink(logger)}
	if m.MetricsTextfile != "" {
		sinks = append(sinks, metrics.NewTextfileSink(m.MetricsTextfile, map[string]string{"table": m.Table}))
	}
	return &Runner{
		merge:       m,
		dsn:         dsn,
		console:     console.New(os.Stdin, os.Stdout),
		logger:      logger,
		metricsSink: metrics.NewMultiSink(sinks...),
	}, nil
}

func (r *Runner) SetMetricsSink(sink metrics.Sink) {
	r.metricsSink = sink
}

func (r *Runner) SetLogger(logger loggers.Advanced) {
	r.logger = logger
}

// SetConsole replaces the terminal the operator answers on.
func (r *Runner) SetConsole(in io.Reader, out io.Writer) {
	r.console = console.New(in, out)
}

// Stats returns the outcome of the last Run, or nil.
func (r *Runner) Stats() *reconcile.Stats {
	return r.stats
}

// SnapshotPath returns where the snapshot was written.
func (r *Runner) SnapshotPath() string {
	return r.snapshotPath
}

func (r *Runner) Run(ctx context.Context) error {
	r.startTime = time.Now()
	r.logger.Infof("Starting reconciliation: driver=%s table=%s key-column=%s file=%s",
		r.merge.Driver, r.merge.Table, r.merge.KeyColumn, r.merge.File,
	)
	if err := r.setup(ctx); err != nil {
		return err
	}
	startRow, err := r.startRow(ctx)
	if err != nil {
		return err
	}
	differ := reconcile.NewDiffer(r.table, r.table.Columns, r.dataset, r.console, r.logger)
	r.console.Intro(r.dataset.Source, r.table.TableName, differ.Columns())

	config := reconcile.NewReconcilerDefaultConfig()
	config.KeyColumn = r.merge.KeyColumn
	config.StartRow = startRow
	config.Reporter = r.console
	config.Logger = r.logger
	config.MetricsSink = r.metricsSink
	reconciler, err := reconcile.NewReconciler(r.dataset, differ, reconcile.NewExecutor(r.db, r.table, r.logger), r.console, config)
	if err != nil {
		return err
	}
	r.stats, err = reconciler.Run(ctx)
	if err != nil {
		return err
	}
	r.logger.Infof("reconciliation complete: time-taken=%s snapshot=%s", time.Since(r.startTime), r.snapshotPath)
	return nil
}

// setup connects, discovers the schema, loads the spreadsheet, runs
// the pre-run checks and writes the snapshot. Any failure here aborts
// the run before the table is modified.
func (r *Runner) setup(ctx context.Context) error {
	// Create a database connection
	// It will be closed in r.Close()
	var err error
	r.db, err = dbconn.New(ctx, r.merge.Driver, r.dsn, dbconn.NewDBConfig())
	if err != nil {
		return fmt.Errorf("%w: %v", reconcile.ErrConnect, err)
	}

	// Get Table Info
	r.table = table.NewTableInfo(r.db, r.merge.Table, r.merge.KeyColumn)
	if err := r.table.SetInfo(ctx); err != nil {
		return fmt.Errorf("%w: %s: %v", reconcile.ErrSchema, r.merge.Table, err)
	}
	r.logger.Debugf("table %s has columns %v", r.table.TableName, r.table.Columns)

	r.dataset, err = sheet.Load(r.merge.File, r.merge.Sheet, r.merge.KeyColumn)
	if err != nil {
		return fmt.Errorf("could not read spreadsheet %s: %w", r.merge.File, err)
	}
	r.logger.Infof("read spreadsheet %s: %d rows, %d columns", r.dataset.Source, r.dataset.Len(), len(r.dataset.Columns()))

	if err := r.runChecks(ctx, check.ScopePreRun); err != nil {
		return fmt.Errorf("%w: %v", reconcile.ErrSchema, err)
	}

	r.snapshotPath = r.merge.Snapshot
	if r.snapshotPath == "" {
		r.snapshotPath = snapshot.DefaultPath(r.merge.Table)
	}
	r.snapshotRows, err = snapshot.WriteCSV(ctx, r.db, r.table, r.snapshotPath)
	if err != nil {
		return fmt.Errorf("could not write snapshot %s: %w", r.snapshotPath, err)
	}
	r.logger.Infof("table snapshot saved to %s: %d rows", r.snapshotPath, r.snapshotRows)
	return nil
}

func (r *Runner) startRow(ctx context.Context) (int, error) {
	if r.merge.Start >= 0 {
		return r.merge.Start, nil
	}
	return r.console.PromptStartRow(ctx, r.dataset.Len())
}

func (r *Runner) runChecks(ctx context.Context, scope check.ScopeFlag) error {
	return check.RunChecks(ctx, check.Resources{
		DB:         r.db,
		Table:      r.table,
		Dataset:    r.dataset,
		KeyColumn:  r.merge.KeyColumn,
		SkipChecks: r.merge.SkipChecks,
	}, r.logger, scope)
}

// Close releases the connection. It is safe to call when Run
// failed before connecting.
func (r *Runner) Close() error {
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}
