// Package table contains some common utilities for working with tables
// such as column discovery and single field reads.
package table

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/squareup/reconcile/pkg/dbconn"
)

var (
	ErrTableNotOpen  = errors.New("please call SetInfo() first")
	ErrUnknownColumn = errors.New("column does not exist in table")
	ErrNoColumns     = errors.New("table has no columns")
)

type TableInfo struct {
	db         *sqlx.DB
	Driver     string
	TableName  string
	QuotedName string
	KeyColumn  string
	Columns    []string // in ordinal position
}

func NewTableInfo(db *sqlx.DB, tableName, keyColumn string) *TableInfo {
	driver := db.DriverName()
	return &TableInfo{
		db:         db,
		Driver:     driver,
		TableName:  tableName,
		QuotedName: dbconn.QuoteTableName(driver, tableName),
		KeyColumn:  keyColumn,
	}
}

// SetInfo discovers the columns of the table.
func (t *TableInfo) SetInfo(ctx context.Context) error {
	return t.setColumns(ctx)
}

// setColumns runs an empty-result query against the table and reads the
// column names from the result set. This works the same for every driver
// and preserves the table's column order.
func (t *TableInfo) setColumns(ctx context.Context) error {
	rows, err := t.db.QueryContext(ctx, "SELECT * FROM "+t.QuotedName+" LIMIT 0") //nolint: execinquery
	if err != nil {
		return err
	}
	defer rows.Close()
	cols, err := rows.Columns()
	if err != nil {
		return err
	}
	if len(cols) == 0 {
		return ErrNoColumns
	}
	t.Columns = cols
	return rows.Err()
}

// HasColumn returns true if col is one of the discovered columns.
func (t *TableInfo) HasColumn(col string) bool {
	for _, c := range t.Columns {
		if c == col {
			return true
		}
	}
	return false
}

// QuoteColumn quotes a column name for this table's driver.
func (t *TableInfo) QuoteColumn(col string) string {
	return dbconn.QuoteIdentifier(t.Driver, col)
}

// ReadField reads one column for one entity, keyed by KeyColumn.
// A missing row reads as Null.
func (t *TableInfo) ReadField(ctx context.Context, col, entityID string) (Datum, error) {
	if len(t.Columns) == 0 {
		return NewNullDatum(), ErrTableNotOpen
	}
	if !t.HasColumn(col) {
		return NewNullDatum(), fmt.Errorf("%w: %s", ErrUnknownColumn, col)
	}
	query := t.db.Rebind(fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?",
		t.QuoteColumn(col),
		t.QuotedName,
		t.QuoteColumn(t.KeyColumn),
	))
	var val interface{}
	err := t.db.QueryRowxContext(ctx, query, entityID).Scan(&val)
	if errors.Is(err, sql.ErrNoRows) {
		return NewNullDatum(), nil
	}
	if err != nil {
		return NewNullDatum(), err
	}
	return NewDatum(val), nil
}
