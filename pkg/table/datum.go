package table

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// Kind is the closed set of value kinds a Datum can hold.
type Kind int

const (
	KindNull Kind = iota
	KindNumeric
	KindString
)

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04:05"
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindNumeric:
		return "numeric"
	case KindString:
		return "string"
	}
	return "unknown"
}

// Datum is a normalized scalar read from either the table or the spreadsheet.
// Numeric values are always int64 or float64, strings are always string,
// and every flavor of "no data" collapses into KindNull.
type Datum struct {
	Val  interface{}
	Kind Kind
}

// NewNullDatum returns the Null datum.
func NewNullDatum() Datum {
	return Datum{Kind: KindNull}
}

// NewDatum normalizes a value as returned by a database driver
// or a spreadsheet loader. The kind is decided once, here.
func NewDatum(val interface{}) Datum {
	switch v := val.(type) {
	case nil:
		return NewNullDatum()
	case Datum:
		return v
	case string:
		return Datum{Val: v, Kind: KindString}
	case []byte:
		return Datum{Val: string(v), Kind: KindString}
	case int:
		return numeric(int64(v))
	case int8:
		return numeric(int64(v))
	case int16:
		return numeric(int64(v))
	case int32:
		return numeric(int64(v))
	case int64:
		return numeric(v)
	case uint:
		return fromUint64(uint64(v))
	case uint8:
		return numeric(int64(v))
	case uint16:
		return numeric(int64(v))
	case uint32:
		return numeric(int64(v))
	case uint64:
		return fromUint64(v)
	case float32:
		return fromFloat64(float64(v))
	case float64:
		return fromFloat64(v)
	case bool:
		return Datum{Val: strconv.FormatBool(v), Kind: KindString}
	case time.Time:
		if v.IsZero() {
			return NewNullDatum() // not-a-time
		}
		return Datum{Val: formatTime(v), Kind: KindString}
	}
	return Datum{Val: fmt.Sprint(val), Kind: KindString}
}

func numeric(v int64) Datum {
	return Datum{Val: v, Kind: KindNumeric}
}

func fromUint64(v uint64) Datum {
	if v > math.MaxInt64 {
		return Datum{Val: float64(v), Kind: KindNumeric}
	}
	return numeric(int64(v))
}

func fromFloat64(v float64) Datum {
	if math.IsNaN(v) {
		return NewNullDatum()
	}
	return Datum{Val: v, Kind: KindNumeric}
}

func formatTime(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format(dateLayout)
	}
	return t.Format(dateTimeLayout)
}

func (d Datum) IsNull() bool {
	return d.Kind == KindNull
}

func (d Datum) IsNumeric() bool {
	return d.Kind == KindNumeric
}

// Float64 returns the numeric value as a float64.
// It is only meaningful for KindNumeric.
func (d Datum) Float64() float64 {
	switch v := d.Val.(type) {
	case int64:
		return float64(v)
	case float64:
		return v
	}
	return math.NaN()
}

// String returns the canonical string form of the datum.
// Null renders as NULL, which is for display only.
func (d Datum) String() string {
	switch d.Kind {
	case KindNull:
		return "NULL"
	case KindNumeric:
		switch v := d.Val.(type) {
		case int64:
			return strconv.FormatInt(v, 10)
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	if s, ok := d.Val.(string); ok {
		return s
	}
	return fmt.Sprint(d.Val)
}
