package reconcile

import (
	"strings"

	"github.com/squareup/reconcile/pkg/table"
)

// Equal decides whether a persisted value and a spreadsheet value are the same.
//
// Null only equals Null. In particular Null does not equal the empty string:
// an empty cell against an empty string in the table is reported, so that
// real discrepancies are never masked.
//
// Otherwise values are equal if they are exactly equal (numbers by value,
// strings byte for byte), or if their canonical string forms are equal after
// trimming surrounding whitespace. There is no numeric tolerance and the
// comparison is case-sensitive.
func Equal(persisted, external table.Datum) bool {
	if persisted.IsNull() || external.IsNull() {
		return persisted.IsNull() && external.IsNull()
	}
	if persisted.Kind == external.Kind {
		switch persisted.Kind { //nolint:exhaustive
		case table.KindNumeric:
			if numericEqual(persisted, external) {
				return true
			}
		case table.KindString:
			if persisted.Val == external.Val {
				return true
			}
		}
	}
	return strings.TrimSpace(persisted.String()) == strings.TrimSpace(external.String())
}

func numericEqual(a, b table.Datum) bool {
	ai, aInt := a.Val.(int64)
	bi, bInt := b.Val.(int64)
	if aInt && bInt {
		return ai == bi
	}
	return a.Float64() == b.Float64()
}
