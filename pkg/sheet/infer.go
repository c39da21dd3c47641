package sheet

import (
	"strconv"
)

// parseNumber parses s as an int64 if it is integral text,
// otherwise as a float64.
func parseNumber(s string) (interface{}, bool) {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f, true
	}
	return nil, false
}

// inferColumns types untyped records column by column. A column where
// every non-NA cell is a number becomes numeric; otherwise its cells
// stay strings. Columns in text are never numeric. NA cells always become nil.
func inferColumns(width int, records [][]string, text map[int]bool) [][]interface{} {
	numericCol := make([]bool, width)
	for col := 0; col < width; col++ {
		if text[col] {
			continue
		}
		numericCol[col] = true
		seen := false
		for _, rec := range records {
			if col >= len(rec) || isNA(rec[col]) {
				continue
			}
			seen = true
			if _, ok := parseNumber(rec[col]); !ok {
				numericCol[col] = false
				break
			}
		}
		if !seen {
			numericCol[col] = false
		}
	}
	rows := make([][]interface{}, 0, len(records))
	for _, rec := range records {
		row := make([]interface{}, width)
		for col := 0; col < width && col < len(rec); col++ {
			cell := rec[col]
			switch {
			case isNA(cell):
				row[col] = nil
			case numericCol[col]:
				row[col], _ = parseNumber(cell)
			default:
				row[col] = cell
			}
		}
		rows = append(rows, row)
	}
	return rows
}
