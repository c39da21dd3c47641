package check

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/siddontang/loggers"
	"github.com/squareup/reconcile/pkg/utils"
)

func init() {
	registerCheck("keycolumn", keyColumnCheck, ScopePreRun)
	registerCheck("intersect", intersectCheck, ScopePreRun)
	registerCheck("duplicatekeys", duplicateKeysCheck, ScopePreRun)
	registerCheck("keyselect", keySelectCheck, ScopePreRun)
}

// The key column identifies the entity on both sides.
func keyColumnCheck(ctx context.Context, r Resources, logger loggers.Advanced) error {
	if r.KeyColumn == "" {
		return errors.New("key column is not set")
	}
	if !r.Table.HasColumn(r.KeyColumn) {
		return fmt.Errorf("key column %q does not exist in table %s", r.KeyColumn, r.Table.TableName)
	}
	for _, col := range r.Dataset.Columns() {
		if col == r.KeyColumn {
			return nil
		}
	}
	return fmt.Errorf("key column %q does not exist in the spreadsheet", r.KeyColumn)
}

// There must be something to compare besides the key itself.
func intersectCheck(ctx context.Context, r Resources, logger loggers.Advanced) error {
	common := utils.IntersectColumns(r.Table.Columns, r.Dataset.Columns())
	for _, col := range common {
		if col != r.KeyColumn {
			return nil
		}
	}
	return fmt.Errorf("the spreadsheet and table %s have no columns in common", r.Table.TableName)
}

// A key that appears on several rows is reconciled once per row.
// That is allowed, but worth knowing about.
func duplicateKeysCheck(ctx context.Context, r Resources, logger loggers.Advanced) error {
	seen := make(map[string]int)
	for row := 0; row < r.Dataset.Len(); row++ {
		v, ok := r.Dataset.Value(row, r.KeyColumn)
		if !ok || v == nil {
			continue
		}
		key := fmt.Sprint(v)
		if first, ok := seen[key]; ok {
			logger.Warnf("key %s appears on rows %d and %d of the spreadsheet", key, first+1, row+1)
			continue
		}
		seen[key] = row
	}
	return nil
}

// Every read and update filters on the key column, so it must be
// selectable by this connection.
func keySelectCheck(ctx context.Context, r Resources, logger loggers.Advanced) error {
	query := fmt.Sprintf("SELECT %s FROM %s LIMIT 1", r.Table.QuoteColumn(r.KeyColumn), r.Table.QuotedName)
	var key interface{}
	err := r.DB.QueryRowxContext(ctx, query).Scan(&key)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("could not select key column %q from table %s: %w", r.KeyColumn, r.Table.TableName, err)
	}
	return nil
}
