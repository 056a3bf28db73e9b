package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/goodsign/monday"

	"github.com/sambeau/tabula/pkg/column"
	"github.com/sambeau/tabula/pkg/extract"
	"github.com/sambeau/tabula/pkg/table"
)

// ColumnSpec is one configured table column
type ColumnSpec struct {
	Key            string `yaml:"key"`             // Column identifier
	Name           string `yaml:"name"`            // Output key override
	Type           string `yaml:"type"`            // string, integer, float or date
	Field          string `yaml:"field"`           // Dotted path into the row (default: key)
	Value          any    `yaml:"value"`           // Static value, exclusive with field
	DateParse      string `yaml:"date_parse"`      // iso, http, rfc2822, sql, epoch_millis, epoch_seconds, auto
	DateFormat     string `yaml:"date_format"`     // Go layout for display; default is the locale's medium format
	FloatPrecision *int   `yaml:"float_precision"` // Fractional digits floats round to
	ExtractHTML    string `yaml:"extract_html"`    // CSS selector for markup extraction
	ExtractDate    string `yaml:"extract_date"`    // "parse" or a date_parse format for sortable timestamps
	SkipInCSV      bool   `yaml:"skip_in_csv"`
	Editable       bool   `yaml:"editable"`
	HTML           bool   `yaml:"html"`
	Options        []any  `yaml:"options"`
}

// Column builds the column a spec describes. Dates are parsed in loc and
// displayed in locale.
func (s ColumnSpec) Column(loc *time.Location, locale string) (column.Column, error) {
	if s.Field != "" && s.Value != nil {
		return column.Column{}, column.ErrValueAndFunc
	}
	typ, err := column.ParseType(s.Type)
	if err != nil {
		return column.Column{}, err
	}

	col := column.Column{
		Type:           typ,
		FloatPrecision: s.FloatPrecision,
		ExtractHTML:    s.ExtractHTML,
		SkipInCSV:      s.SkipInCSV,
		Name:           s.Name,
		Location:       loc,
		Editable:       s.Editable,
		HTML:           s.HTML,
		Options:        s.Options,
	}

	if s.DateParse != "" {
		if col.DateParse, err = column.ParseDateFormat(s.DateParse); err != nil {
			return column.Column{}, err
		}
	}

	if s.DateFormat != "" {
		layout, ml := s.DateFormat, column.MondayLocale(locale)
		col.DateFormatFunc = func(t time.Time) string {
			return monday.Format(t, layout, ml)
		}
	}

	switch strings.ToLower(s.ExtractDate) {
	case "":
	case "parse":
		col.ExtractDate = extract.DateParser(column.DateAuto, loc)
	default:
		f, err := column.ParseDateFormat(s.ExtractDate)
		if err != nil {
			return column.Column{}, fmt.Errorf("extract_date: %w", err)
		}
		col.ExtractDate = extract.DateParser(f, loc)
	}

	if s.Value != nil {
		col.Value = s.Value
	} else {
		field := s.Field
		if field == "" {
			field = s.Key
		}
		col.Func = table.Field(field)
	}
	return col, nil
}

// Location returns the configured time zone, UTC if unset.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Timezone)
}

// TableConfig builds the table configuration. Without configured columns
// the result has none, and columns are derived from the data.
func (c *Config) TableConfig() (*table.Config, error) {
	loc, err := c.Location()
	if err != nil {
		return nil, fmt.Errorf("timezone: %w", err)
	}

	tc := &table.Config{
		Paginate:          c.Table.Paginate,
		MaxResultsPerPage: c.Table.MaxResultsPerPage,
		Searchable:        []string(c.Table.Searchable),
		ColumnOrder:       c.Table.ColumnOrder,
		NoDataNote:        c.Table.NoDataNote,
		ShowCheckboxes:    c.Table.ShowCheckboxes,
		Locale:            c.Locale,
	}
	if len(c.Table.Columns) == 0 {
		return tc, nil
	}

	cols := column.NewColumns()
	for _, spec := range c.Table.Columns {
		col, err := spec.Column(loc, c.Locale)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", spec.Key, err)
		}
		cols.Set(spec.Key, col)
	}
	tc.Columns = cols
	return tc, nil
}
