// Package table projects raw rows through a column configuration into typed
// display rows.
package table

import (
	"github.com/sambeau/tabula/pkg/coerce"
	"github.com/sambeau/tabula/pkg/column"
)

// Config is the configuration of one table view.
type Config struct {
	Paginate          bool
	MaxResultsPerPage int
	Columns           *column.Columns
	Searchable        []string // column keys, or the single key "all"
	ColumnOrder       []string
	NoDataNote        string
	ShowCheckboxes    bool
	Locale            string // BCP 47 tag for display formatting
}

// Column returns the column whose output key is key.
func (c *Config) Column(key string) *column.Column {
	if c == nil {
		return nil
	}
	return c.Columns.ByOutputKey(key)
}

// Project applies cfg to rows. Elements that are already processed *Row
// values are returned as-is; everything else is treated as a raw row and
// projected once. Defaults for Type and DateFormatFunc are written back onto
// the configuration's columns.
func Project(rows []any, cfg *Config) []*Row {
	out := make([]*Row, 0, len(rows))
	for _, raw := range rows {
		if r, ok := raw.(*Row); ok && r.processed {
			out = append(out, r)
			continue
		}
		out = append(out, projectRow(raw, cfg))
	}
	return out
}

func projectRow(raw any, cfg *Config) *Row {
	row := NewRow()
	if cfg != nil {
		for _, key := range cfg.Columns.Keys() {
			col := cfg.Columns.Get(key)
			v := col.Raw(raw)

			if col.Type == "" {
				col.Type = column.String
			}
			if col.DateFormatFunc == nil {
				col.DateFormatFunc = column.DefaultDateFormatter(cfg.Locale)
			}

			// Markup columns keep the raw value; extraction happens at query
			// and render time.
			if col.ExtractHTML != "" {
				row.Set(cfg.Columns.OutputKey(key), v)
			} else {
				row.Set(cfg.Columns.OutputKey(key), coerce.To(col.Type, v, col))
			}
		}
	}
	row.processed = true
	row.original = raw
	return row
}

// Invalidate returns the raw rows behind rows so they can be projected
// again.
func Invalidate(rows []*Row) []any {
	out := make([]any, len(rows))
	for i, r := range rows {
		out[i] = r.original
	}
	return out
}

// Inputs widens a typed slice of raw rows for Project.
func Inputs[T any](rows []T) []any {
	out := make([]any, len(rows))
	for i, r := range rows {
		out[i] = r
	}
	return out
}

// Rows widens projected rows back into Project's input form.
func Rows(rows []*Row) []any {
	return Inputs(rows)
}

// OutputKeys returns the display column order: ColumnOrder when set,
// otherwise the configuration's insertion order.
func OutputKeys(cfg *Config) []string {
	if cfg == nil {
		return nil
	}
	src := cfg.ColumnOrder
	if len(src) == 0 {
		src = cfg.Columns.Keys()
	}
	out := make([]string, 0, len(src))
	for _, k := range src {
		out = append(out, cfg.Columns.OutputKey(k))
	}
	return out
}
