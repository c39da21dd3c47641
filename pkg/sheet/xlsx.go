package sheet

import (
	"fmt"
	"strings"
	"time"

	"github.com/squareup/reconcile/pkg/utils"
	"github.com/xuri/excelize/v2"
)

// builtinDateFormats are the built-in number format ids that display dates
// or times, including the East Asian locale variants.
var builtinDateFormats = map[int]bool{
	14: true, 15: true, 16: true, 17: true, 18: true, 19: true, 20: true, 21: true, 22: true,
	27: true, 28: true, 29: true, 30: true, 31: true, 32: true, 33: true, 34: true, 35: true, 36: true,
	45: true, 46: true, 47: true,
	50: true, 51: true, 52: true, 53: true, 54: true, 55: true, 56: true, 57: true, 58: true,
}

// LoadXLSX reads one worksheet of a workbook. The first row is the header.
// Cells keep the type stored in the workbook: numbers become int64 or
// float64, numbers formatted as dates time.Time, booleans bool, and
// everything else string. Cells of textColumns keep their raw text.
func LoadXLSX(path, sheetName string, textColumns ...string) (*Dataset, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		utils.ErrInErr(f.Close())
	}()
	if sheetName == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook %s has no sheets", path)
		}
		sheetName = sheets[0]
	}
	records, err := f.GetRows(sheetName, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNoHeader
	}
	date1904 := false
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		date1904 = *props.Date1904
	}
	header := headerFrom(records[0])
	text := textIndexes(header, textColumns)
	var rows [][]interface{}
	for i, rec := range records[1:] {
		if isBlank(rec) {
			continue
		}
		row := make([]interface{}, len(header))
		for col := 0; col < len(header) && col < len(rec); col++ {
			raw := rec[col]
			if isNA(raw) {
				continue
			}
			if text[col] {
				row[col] = raw
				continue
			}
			// +2: one for the header row, one because cell names are 1-based.
			axis, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return nil, err
			}
			cellType, err := f.GetCellType(sheetName, axis)
			if err != nil {
				return nil, err
			}
			v := typedCell(cellType, raw)
			if serial, ok := serialNumber(v); ok {
				isDate, err := isDateCell(f, sheetName, axis)
				if err != nil {
					return nil, err
				}
				if isDate {
					t, err := excelize.ExcelDateToTime(serial, date1904)
					if err != nil {
						return nil, fmt.Errorf("cell %s: %w", axis, err)
					}
					v = t.Round(time.Second)
				}
			}
			row[col] = v
		}
		rows = append(rows, row)
	}
	return New(path, header, rows)
}

func typedCell(tp excelize.CellType, raw string) interface{} {
	if isNA(raw) {
		return nil
	}
	switch tp {
	case excelize.CellTypeUnset, excelize.CellTypeNumber:
		if v, ok := parseNumber(raw); ok {
			return v
		}
	case excelize.CellTypeBool:
		return raw == "1" || raw == "TRUE" || raw == "true"
	default:
	}
	return raw
}

func serialNumber(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// isDateCell reports whether the cell's number format displays a date or time.
func isDateCell(f *excelize.File, sheetName, axis string) (bool, error) {
	styleID, err := f.GetCellStyle(sheetName, axis)
	if err != nil || styleID == 0 {
		return false, err
	}
	style, err := f.GetStyle(styleID)
	if err != nil {
		return false, err
	}
	if style.CustomNumFmt != nil {
		return isDateFormat(*style.CustomNumFmt), nil
	}
	return builtinDateFormats[style.NumFmt], nil
}

// isDateFormat reports whether a custom number format code contains date or
// time tokens outside of quoted literals, escapes and [bracketed] sections.
func isDateFormat(code string) bool {
	var b strings.Builder
	inQuote, inBracket := false, false
	for i := 0; i < len(code); i++ {
		c := code[i]
		switch {
		case inQuote:
			inQuote = c != '"'
		case inBracket:
			inBracket = c != ']'
		case c == '"':
			inQuote = true
		case c == '[':
			inBracket = true
		case c == '\\' || c == '_' || c == '*':
			i++ // the next character is a literal or padding
		default:
			b.WriteByte(c)
		}
	}
	plain := strings.ToLower(b.String())
	if plain == "general" {
		return false
	}
	return strings.ContainsAny(plain, "ydmhs")
}
