// Package extract derives comparison and display values from raw column
// values: a fragment selected out of rich markup, or a sortable timestamp
// pulled out of a richer value. Both extractors are total.
package extract

import (
	"strings"
	"time"

	"github.com/sambeau/tabula/pkg/coerce"
	"github.com/sambeau/tabula/pkg/column"
)

// Markup coerces the text selected by col.ExtractHTML out of v. Without a
// selector v is returned unchanged. A selector miss falls back to the text of
// the whole fragment; a rendering failure falls back to coercing v itself.
func Markup(v any, col *column.Column, r Renderer) (out any) {
	if col == nil || col.ExtractHTML == "" {
		return v
	}
	typ := typeOf(col)
	if v == nil {
		return nil
	}
	if r == nil {
		r = HTMLRenderer{}
	}

	defer func() {
		if recover() != nil {
			out = coerce.To(typ, v, col)
		}
	}()

	var markup string
	if s, ok := v.(string); ok {
		markup = strings.TrimSpace(s)
	} else {
		markup = coerce.To(column.String, v, col).(string)
	}

	frag, err := r.Render(markup)
	if err != nil || frag == nil {
		return coerce.To(typ, v, col)
	}
	if text, ok := frag.Select(col.ExtractHTML); ok {
		return coerce.To(typ, text, col)
	}
	return coerce.To(typ, frag.Text(), col)
}

// Date applies col.ExtractDate to v. Without an extractor, or when the
// extractor panics, v is returned unchanged.
func Date(v any, col *column.Column) (out any) {
	if col == nil || col.ExtractDate == nil {
		return v
	}
	defer func() {
		if recover() != nil {
			out = v
		}
	}()
	return col.ExtractDate(v)
}

// Key returns the value rows are compared by. Date extraction takes
// precedence over markup extraction.
func Key(v any, col *column.Column, r Renderer) any {
	if col == nil {
		return v
	}
	if col.ExtractDate != nil {
		return Date(v, col)
	}
	if col.ExtractHTML != "" {
		return Markup(v, col, r)
	}
	return v
}

// DateParser builds an ExtractDate function that parses values as dates in
// the given format and returns epoch milliseconds.
func DateParser(format column.DateFormat, loc *time.Location) func(any) int64 {
	col := &column.Column{DateParse: format, Location: loc}
	return func(v any) int64 {
		t, ok := coerce.To(column.Date, v, col).(time.Time)
		if !ok {
			return 0
		}
		return t.UnixMilli()
	}
}

func typeOf(col *column.Column) column.Type {
	if col.Type == "" {
		return column.String
	}
	return col.Type
}
