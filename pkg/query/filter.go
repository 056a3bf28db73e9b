package query

import (
	"fmt"
	"strings"
	"time"

	"github.com/sambeau/tabula/pkg/coerce"
	"github.com/sambeau/tabula/pkg/column"
	"github.com/sambeau/tabula/pkg/table"
)

// Comparison is a filter operator.
type Comparison int

const (
	Equal Comparison = iota
	LT
	LTE
	GT
	GTE
	NOT
)

var comparisonNames = [...]string{"EQUAL", "LT", "LTE", "GT", "GTE", "NOT"}

func (c Comparison) String() string {
	if c >= 0 && int(c) < len(comparisonNames) {
		return comparisonNames[c]
	}
	return fmt.Sprintf("Comparison(%d)", int(c))
}

// ParseComparison accepts operator names (EQUAL, LT, ...) and symbols
// (=, <, <=, >, >=, !=).
func ParseComparison(s string) (Comparison, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "EQUAL", "EQ", "=", "==":
		return Equal, nil
	case "LT", "<":
		return LT, nil
	case "LTE", "<=":
		return LTE, nil
	case "GT", ">":
		return GT, nil
	case "GTE", ">=":
		return GTE, nil
	case "NOT", "NE", "!=":
		return NOT, nil
	}
	return 0, fmt.Errorf("unknown comparison %q", s)
}

// Filter is a predicate over a single column.
type Filter struct {
	Key        string
	Comparison Comparison
	Value      any
	Options    []any
}

// Eq, Not, Lt, Lte, Gt and Gte build single-column filters.
func Eq(key string, v any) Filter  { return Filter{Key: key, Comparison: Equal, Value: v} }
func Not(key string, v any) Filter { return Filter{Key: key, Comparison: NOT, Value: v} }
func Lt(key string, v any) Filter  { return Filter{Key: key, Comparison: LT, Value: v} }
func Lte(key string, v any) Filter { return Filter{Key: key, Comparison: LTE, Value: v} }
func Gt(key string, v any) Filter  { return Filter{Key: key, Comparison: GT, Value: v} }
func Gte(key string, v any) Filter { return Filter{Key: key, Comparison: GTE, Value: v} }

// Where keeps the rows that pass every filter. A filter whose value is of a
// different kind than the row's field (or whose field is absent) does not
// apply to that row.
func Where(rows []*table.Row, filters ...Filter) []*table.Row {
	out := make([]*table.Row, 0, len(rows))
	for _, row := range rows {
		if matchesAll(row, filters) {
			out = append(out, row)
		}
	}
	return out
}

func matchesAll(row *table.Row, filters []Filter) bool {
	for _, f := range filters {
		pass, applies := f.Match(row)
		if applies && !pass {
			return false
		}
	}
	return true
}

// ParseFilter reads a filter written key:op:value. The value is coerced to
// the type of the column named key in cfg; dates are parsed loosely.
func ParseFilter(s string, cfg *table.Config) (Filter, error) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) != 3 || parts[0] == "" {
		return Filter{}, fmt.Errorf("invalid filter %q (want key:op:value)", s)
	}
	cmp, err := ParseComparison(parts[1])
	if err != nil {
		return Filter{}, err
	}

	var v any = parts[2]
	if col := cfg.Column(parts[0]); col != nil && col.Type != "" {
		c := *col
		if c.Type == column.Date {
			c.DateParse = column.DateAuto
		}
		v = coerce.To(c.Type, parts[2], &c)
	}
	return Filter{Key: parts[0], Comparison: cmp, Value: v}, nil
}

// Match evaluates f against row. applies is false when the types differ.
func (f Filter) Match(row *table.Row) (pass, applies bool) {
	if row == nil {
		return false, false
	}
	v, ok := row.Get(f.Key)
	if !ok {
		return false, false
	}
	c, ok := compare(v, f.Value)
	if !ok {
		return false, false
	}
	switch f.Comparison {
	case Equal:
		return c == 0, true
	case NOT:
		return c != 0, true
	case LT:
		return c < 0, true
	case LTE:
		return c <= 0, true
	case GT:
		return c > 0, true
	case GTE:
		return c >= 0, true
	}
	return true, true
}

type kind int

const (
	kindNone kind = iota
	kindNumber
	kindString
	kindTime
	kindBool
)

func kindOf(v any) kind {
	switch v.(type) {
	case nil:
		return kindNone
	case string:
		return kindString
	case time.Time:
		return kindTime
	case bool:
		return kindBool
	}
	if coerce.IsNumber(v) {
		return kindNumber
	}
	return kindNone
}

// compare orders a and b by their natural ordering. ok is false when they
// are of different kinds or of no comparable kind.
func compare(a, b any) (int, bool) {
	ka, kb := kindOf(a), kindOf(b)
	if ka == kindNone || ka != kb {
		return 0, false
	}
	switch ka {
	case kindNumber:
		x, _ := coerce.AsFloat(a)
		y, _ := coerce.AsFloat(b)
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		}
		return 0, true
	case kindString:
		return strings.Compare(a.(string), b.(string)), true
	case kindTime:
		return a.(time.Time).Compare(b.(time.Time)), true
	case kindBool:
		x, y := a.(bool), b.(bool)
		switch {
		case x == y:
			return 0, true
		case !x:
			return -1, true
		}
		return 1, true
	}
	return 0, false
}
