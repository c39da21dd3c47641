// Package reconcile compares the rows of a table against an authoritative
// spreadsheet, one entity at a time, and lets an operator merge the
// differences back into the table field by field.
package reconcile

import (
	"context"

	"github.com/squareup/reconcile/pkg/table"
)

// Dataset is the loaded spreadsheet, indexable by row and column name.
type Dataset interface {
	Len() int
	Columns() []string
	Value(row int, column string) (interface{}, bool)
}

// FieldReader reads a single persisted value for an entity.
// A missing entity reads as Null.
type FieldReader interface {
	ReadField(ctx context.Context, column, entityID string) (table.Datum, error)
}

// Applier writes one accepted value to the store and returns the
// number of rows affected.
type Applier interface {
	Apply(ctx context.Context, entityID, field string, value table.Datum) (int64, error)
}

// Operator makes the decisions. Implementations must not return raw text:
// decisions are enumerated so a session can be driven headlessly.
type Operator interface {
	DecideRow(ctx context.Context, entityID string, candidates []Candidate) (RowDecision, error)
	DecideField(ctx context.Context, entityID string, candidate Candidate) (Decision, error)
}

// Reporter receives the operator-facing output of a run.
type Reporter interface {
	// Banner is printed before an entity is diffed. row is 0-based.
	Banner(row int, entityID string)
	// Difference is called for every emitted change candidate.
	Difference(c Candidate)
	// EndDiff is called once the entity's fields have all been compared.
	EndDiff(entityID string, count int)
	// Summary is printed at the end of a run.
	Summary(stats Stats)
}

type nopReporter struct{}

func (nopReporter) Banner(int, string)   {}
func (nopReporter) Difference(Candidate) {}
func (nopReporter) EndDiff(string, int)  {}
func (nopReporter) Summary(Stats)        {}

var _ Reporter = nopReporter{}
