package reconcile

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/siddontang/loggers"
	"github.com/squareup/reconcile/pkg/dbconn"
	"github.com/squareup/reconcile/pkg/table"
)

// UpdateForm is the shape of the statement used to write a value.
type UpdateForm int

const (
	FormNull UpdateForm = iota
	FormNumeric
	FormString
)

func (f UpdateForm) String() string {
	switch f {
	case FormNull:
		return "null"
	case FormNumeric:
		return "numeric"
	case FormString:
		return "string"
	}
	return "unknown"
}

// ClassifyUpdate picks the statement form for a value.
func ClassifyUpdate(value table.Datum) UpdateForm {
	switch value.Kind {
	case table.KindNull:
		return FormNull
	case table.KindNumeric:
		return FormNumeric
	}
	return FormString
}

// Executor writes accepted values back to the table.
// Every update is its own transaction.
type Executor struct {
	db     *sqlx.DB
	table  *table.TableInfo
	logger loggers.Advanced
}

var _ Applier = &Executor{}

func NewExecutor(db *sqlx.DB, tbl *table.TableInfo, logger loggers.Advanced) *Executor {
	return &Executor{
		db:     db,
		table:  tbl,
		logger: logger,
	}
}

// Statement builds the update for one field of one entity.
// The entity id is always the last argument.
func (e *Executor) Statement(entityID, field string, value table.Datum) (string, []interface{}, UpdateForm) {
	form := ClassifyUpdate(value)
	var query string
	var args []interface{}
	switch form { //nolint:exhaustive
	case FormNull:
		query = fmt.Sprintf("UPDATE %s SET %s = NULL WHERE %s = ?",
			e.table.QuotedName,
			e.table.QuoteColumn(field),
			e.table.QuoteColumn(e.table.KeyColumn),
		)
		args = []interface{}{entityID}
	default:
		query = fmt.Sprintf("UPDATE %s SET %s = ? WHERE %s = ?",
			e.table.QuotedName,
			e.table.QuoteColumn(field),
			e.table.QuoteColumn(e.table.KeyColumn),
		)
		if form == FormNumeric {
			args = []interface{}{value.Val, entityID}
		} else {
			args = []interface{}{value.String(), entityID}
		}
	}
	return e.db.Rebind(query), args, form
}

// Apply writes value into field for the entity and commits.
func (e *Executor) Apply(ctx context.Context, entityID, field string, value table.Datum) (int64, error) {
	if !e.table.HasColumn(field) {
		return 0, fmt.Errorf("%w: %s: %v", ErrUpdate, field, table.ErrUnknownColumn)
	}
	query, args, form := e.Statement(entityID, field, value)
	e.logger.Debugf("applying %s update: %s", form, query)
	affected, err := dbconn.Exec(ctx, e.db, query, args...)
	if err != nil {
		return 0, fmt.Errorf("%w: entity=%s column=%s: %w", ErrUpdate, entityID, field, err)
	}
	if affected == 0 {
		e.logger.Warnf("update of entity=%s column=%s affected no rows, the entity may no longer exist", entityID, field)
	}
	return affected, nil
}
