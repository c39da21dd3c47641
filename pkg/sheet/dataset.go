// Package sheet loads the external dataset (the spreadsheet maintained by
// domain experts) into an in-memory table indexed by row and column name.
package sheet

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var (
	ErrNoHeader          = errors.New("spreadsheet has no header row")
	ErrDuplicateColumn   = errors.New("spreadsheet has a duplicate column")
	ErrUnsupportedFormat = errors.New("unsupported spreadsheet format")
)

// naValues are the cell texts treated as "no data", in addition to the empty cell.
var naValues = map[string]struct{}{
	"#N/A": {}, "#N/A N/A": {}, "#NA": {}, "-NaN": {}, "-nan": {}, "<NA>": {},
	"N/A": {}, "NA": {}, "NULL": {}, "NaN": {}, "n/a": {}, "nan": {}, "null": {},
}

func isNA(s string) bool {
	if s == "" {
		return true
	}
	_, ok := naValues[s]
	return ok
}

// Dataset is a loaded spreadsheet. Cell values are nil (no data), int64,
// float64, bool or string.
type Dataset struct {
	Source  string
	columns []string
	index   map[string]int
	rows    [][]interface{}
}

// New builds a dataset from a header and rows of already typed cells.
// Rows shorter than the header are padded with nil.
func New(source string, columns []string, rows [][]interface{}) (*Dataset, error) {
	if len(columns) == 0 {
		return nil, ErrNoHeader
	}
	d := &Dataset{
		Source:  source,
		columns: columns,
		index:   make(map[string]int, len(columns)),
	}
	for i, col := range columns {
		if col == "" {
			continue // unnamed columns can never match a table column
		}
		if _, ok := d.index[col]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateColumn, col)
		}
		d.index[col] = i
	}
	for _, row := range rows {
		if len(row) < len(columns) {
			padded := make([]interface{}, len(columns))
			copy(padded, row)
			row = padded
		}
		d.rows = append(d.rows, row[:len(columns)])
	}
	return d, nil
}

// Len returns the number of data rows (the header is not counted).
func (d *Dataset) Len() int {
	return len(d.rows)
}

// Columns returns the header in spreadsheet order.
func (d *Dataset) Columns() []string {
	return d.columns
}

// HasColumn returns true if the header contains col.
func (d *Dataset) HasColumn(col string) bool {
	_, ok := d.index[col]
	return ok
}

// Value returns the cell at (row, col). The second return is false when
// the row or the column does not exist.
func (d *Dataset) Value(row int, col string) (interface{}, bool) {
	i, ok := d.index[col]
	if !ok || row < 0 || row >= len(d.rows) {
		return nil, false
	}
	return d.rows[row][i], true
}

// Load reads a spreadsheet from path. The format is chosen by extension.
// sheetName is only used by workbook formats; empty means the first sheet.
// Cells of textColumns are never typed: they keep the text as written,
// so identifiers like "007" survive.
func Load(path, sheetName string, textColumns ...string) (*Dataset, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return LoadXLSX(path, sheetName, textColumns...)
	case ".csv":
		return LoadCSV(path, textColumns...)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
}

func headerFrom(cells []string) []string {
	header := make([]string, len(cells))
	for i, c := range cells {
		header[i] = strings.TrimSpace(c)
	}
	return header
}

// textIndexes returns the positions in header of the named columns.
func textIndexes(header, textColumns []string) map[int]bool {
	idx := make(map[int]bool)
	for i, col := range header {
		for _, text := range textColumns {
			if col == text {
				idx[i] = true
			}
		}
	}
	return idx
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
