package reconcile

import (
	"context"
	"fmt"

	"github.com/siddontang/loggers"
	"github.com/squareup/reconcile/pkg/table"
	"github.com/squareup/reconcile/pkg/utils"
)

// Candidate is one field of one entity where the table and the
// spreadsheet disagree. Proposed is the spreadsheet value.
type Candidate struct {
	Field     string
	Persisted table.Datum
	Proposed  table.Datum
}

func (c Candidate) String() string {
	return fmt.Sprintf("%s: %s -> %s", c.Field, c.Persisted, c.Proposed)
}

type Differ struct {
	reader      FieldReader
	dataset     Dataset
	columns     []string // schema columns that exist in the dataset, schema order
	reporter    Reporter
	logger      loggers.Advanced
	fetchErrors int
}

// NewDiffer creates a differ for the columns of schema that also exist in
// the dataset. Columns are compared in schema order.
func NewDiffer(reader FieldReader, schema []string, dataset Dataset, reporter Reporter, logger loggers.Advanced) *Differ {
	if reporter == nil {
		reporter = nopReporter{}
	}
	if missing := utils.MissingColumns(schema, dataset.Columns()); len(missing) > 0 {
		logger.Debugf("columns not present in the spreadsheet will not be compared: %v", missing)
	}
	return &Differ{
		reader:   reader,
		dataset:  dataset,
		columns:  utils.IntersectColumns(schema, dataset.Columns()),
		reporter: reporter,
		logger:   logger,
	}
}

// Columns returns the columns that are compared.
func (d *Differ) Columns() []string {
	return d.columns
}

// FetchErrors returns the number of fields that could not be read so far.
func (d *Differ) FetchErrors() int {
	return d.fetchErrors
}

// Diff compares every column of one entity, reading the persisted side one
// field at a time. A field that can not be read is logged and produces no
// candidate. The only error returned is the context's.
func (d *Differ) Diff(ctx context.Context, row int, entityID string) ([]Candidate, error) {
	var candidates []Candidate
	for _, col := range d.columns {
		if err := ctx.Err(); err != nil {
			return candidates, err
		}
		persisted, err := d.reader.ReadField(ctx, col, entityID)
		if err != nil {
			if ctx.Err() != nil {
				return candidates, ctx.Err()
			}
			d.fetchErrors++
			d.logger.Errorf("%v: entity=%s column=%s: %v", ErrFieldFetch, entityID, col, err)
			continue
		}
		raw, _ := d.dataset.Value(row, col)
		external := table.NewDatum(raw)
		if Equal(persisted, external) {
			continue
		}
		c := Candidate{
			Field:     col,
			Persisted: persisted,
			Proposed:  external,
		}
		d.reporter.Difference(c)
		candidates = append(candidates, c)
	}
	d.reporter.EndDiff(entityID, len(candidates))
	return candidates, nil
}
