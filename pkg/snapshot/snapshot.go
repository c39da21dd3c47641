// Package snapshot dumps the full contents of a table to a delimited file.
// It runs before any update so that the operator has a copy of the
// table as it was.
package snapshot

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/squareup/reconcile/pkg/table"
	"github.com/squareup/reconcile/pkg/utils"
)

// DefaultPath is the snapshot file name used when none is configured.
func DefaultPath(tableName string) string {
	return tableName + "_resp.csv"
}

// WriteCSV writes every row of tbl to path, with a header of column names.
// Null is written as an empty field. It returns the number of data rows.
// The file is written to a temporary name and renamed when complete,
// so a partial snapshot never replaces a good one.
func WriteCSV(ctx context.Context, db *sqlx.DB, tbl *table.TableInfo, path string) (int, error) {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return 0, err
	}
	n, err := Write(ctx, db, tbl, f)
	if err != nil {
		utils.ErrInErr(f.Close())
		utils.ErrInErr(os.Remove(tmp))
		return 0, err
	}
	if err := f.Close(); err != nil {
		utils.ErrInErr(os.Remove(tmp))
		return 0, err
	}
	if err := os.Rename(tmp, path); err != nil {
		return 0, err
	}
	return n, nil
}

// Write is WriteCSV to an arbitrary writer.
func Write(ctx context.Context, db *sqlx.DB, tbl *table.TableInfo, w io.Writer) (int, error) {
	rows, err := db.QueryContext(ctx, "SELECT * FROM "+tbl.QuotedName) //nolint: execinquery
	if err != nil {
		return 0, err
	}
	defer rows.Close()
	cols, err := rows.Columns()
	if err != nil {
		return 0, err
	}
	out := csv.NewWriter(w)
	if err := out.Write(cols); err != nil {
		return 0, err
	}
	vals := make([]interface{}, len(cols))
	ptrs := make([]interface{}, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	record := make([]string, len(cols))
	count := 0
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return 0, err
		}
		for i, v := range vals {
			d := table.NewDatum(v)
			if d.IsNull() {
				record[i] = ""
				continue
			}
			record[i] = d.String()
		}
		if err := out.Write(record); err != nil {
			return 0, err
		}
		count++
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}
	out.Flush()
	if err := out.Error(); err != nil {
		return 0, fmt.Errorf("could not write snapshot: %w", err)
	}
	return count, nil
}
