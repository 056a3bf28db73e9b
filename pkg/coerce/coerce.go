// Package coerce converts heterogeneous raw values into the semantic type a
// column declares. Coercion never fails: values that cannot be converted
// degrade to 0, 0.0 or the epoch.
package coerce

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/sambeau/tabula/pkg/column"
)

// To coerces v to type t using the formatting rules of col. A nil col uses
// the zero rules. Nil values and unknown types pass through unchanged.
func To(t column.Type, v any, col *column.Column) any {
	if v == nil {
		return nil
	}
	if col == nil {
		col = &column.Column{}
	}

	switch t {
	case column.String:
		return toString(v)
	case column.Integer:
		return toInteger(v)
	case column.Float:
		f := toFloat(v)
		if col.FloatPrecision != nil {
			f = Round(f, *col.FloatPrecision)
		}
		return f
	case column.Date:
		return toDate(v, col)
	}
	return v
}

func toString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case time.Time:
		return x.Format(time.RFC3339Nano)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	case uint64:
		return strconv.FormatUint(x, 10)
	case uint:
		return strconv.FormatUint(uint64(x), 10)
	case fmt.Stringer:
		return x.String()
	}
	if i, ok := asInt64(v); ok {
		return strconv.FormatInt(i, 10)
	}
	switch v.(type) {
	case map[string]any, []any:
		if b, err := json.Marshal(v); err == nil {
			return string(b)
		}
	}
	return fmt.Sprint(v)
}

func toInteger(v any) any {
	switch x := v.(type) {
	case float64:
		return x
	case float32:
		return float64(x)
	case time.Time:
		return x.UnixMilli()
	case string:
		return ParseLeadingInt(x)
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return int64(0)
	}
	if i, ok := asInt64(v); ok {
		return i
	}
	return int64(0)
}

func toFloat(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case float32:
		return float64(x)
	case time.Time:
		return float64(x.UnixMilli())
	case string:
		return ParseLeadingFloat(x)
	case uint64:
		return float64(x)
	case uint:
		return float64(x)
	case json.Number:
		if f, err := x.Float64(); err == nil {
			return f
		}
		return 0
	}
	if i, ok := asInt64(v); ok {
		return float64(i)
	}
	return 0
}

func toDate(v any, col *column.Column) time.Time {
	loc := col.Loc()
	switch x := v.(type) {
	case time.Time:
		return x.In(loc)
	case string:
		t, err := ParseDate(col.DateParse, x, loc)
		if err != nil {
			return Epoch(loc)
		}
		return t
	case float64:
		return FromMillis(x, loc)
	case float32:
		return FromMillis(float64(x), loc)
	case json.Number:
		if f, err := x.Float64(); err == nil {
			return FromMillis(f, loc)
		}
		return Epoch(loc)
	}
	if i, ok := asInt64(v); ok {
		return time.UnixMilli(i).In(loc)
	}
	return Epoch(loc)
}

// asInt64 widens any Go integer kind. Unsigned values past math.MaxInt64
// saturate.
func asInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int:
		return int64(x), true
	case int8:
		return int64(x), true
	case int16:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case uint:
		return saturate(uint64(x)), true
	case uint8:
		return int64(x), true
	case uint16:
		return int64(x), true
	case uint32:
		return int64(x), true
	case uint64:
		return saturate(x), true
	}
	return 0, false
}

func saturate(u uint64) int64 {
	if u > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(u)
}

// IsNumber reports whether v is a Go numeric value or a json.Number.
func IsNumber(v any) bool {
	switch v.(type) {
	case float64, float32, json.Number:
		return true
	}
	_, ok := asInt64(v)
	return ok
}

// AsFloat returns v as float64 when it is numeric.
func AsFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case uint64:
		return float64(x), true
	case uint:
		return float64(x), true
	}
	if i, ok := asInt64(v); ok {
		return float64(i), true
	}
	return 0, false
}

// Round rounds f to digits fractional digits, half away from zero.
func Round(f float64, digits int) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return f
	}
	if digits < 0 {
		digits = 0
	}
	p := math.Pow(10, float64(digits))
	r := math.Round(f*p) / p
	if math.IsInf(r, 0) || math.IsNaN(r) {
		return f
	}
	return r
}

// Epoch is the zero instant used for unparseable dates.
func Epoch(loc *time.Location) time.Time {
	return time.UnixMilli(0).In(loc)
}

// FromMillis converts a possibly fractional epoch-millisecond count.
func FromMillis(ms float64, loc *time.Location) time.Time {
	if math.IsNaN(ms) || math.IsInf(ms, 0) {
		return Epoch(loc)
	}
	return time.Unix(0, int64(math.Round(ms*1e6))).In(loc)
}
