// Package column describes how raw row values become typed output columns.
package column

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Type is the declared semantic type of a column.
type Type string

const (
	String  Type = "string"
	Integer Type = "integer"
	Float   Type = "float"
	Date    Type = "date"
)

// ParseType maps a config string onto a Type. An empty string is String.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "string":
		return String, nil
	case "integer", "int":
		return Integer, nil
	case "float", "number":
		return Float, nil
	case "date", "datetime":
		return Date, nil
	}
	return "", fmt.Errorf("unknown column type %q (must be string, integer, float or date)", s)
}

// DateFormat names the layout used to parse date strings.
type DateFormat int

const (
	DateUnset DateFormat = iota // parsed as DateHTTP
	DateISO
	DateHTTP
	DateRFC2822
	DateSQL
	DateEpochMillis
	DateEpochSeconds
	DateAuto
)

var dateFormatNames = map[DateFormat]string{
	DateUnset:        "",
	DateISO:          "iso",
	DateHTTP:         "http",
	DateRFC2822:      "rfc2822",
	DateSQL:          "sql",
	DateEpochMillis:  "epoch_millis",
	DateEpochSeconds: "epoch_seconds",
	DateAuto:         "auto",
}

func (f DateFormat) String() string {
	if name, ok := dateFormatNames[f]; ok {
		return name
	}
	return fmt.Sprintf("DateFormat(%d)", int(f))
}

// ParseDateFormat maps a config string onto a DateFormat.
func ParseDateFormat(s string) (DateFormat, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for f, name := range dateFormatNames {
		if name == s {
			return f, nil
		}
	}
	return DateUnset, fmt.Errorf("unknown date format %q", s)
}

// ErrValueAndFunc is returned when a column sets both a static value and an extractor.
var ErrValueAndFunc = errors.New("column sets both value and func")

// Column is one entry of a table configuration.
type Column struct {
	Type           Type
	DateParse      DateFormat
	DateFormatFunc func(time.Time) string
	FloatPrecision *int

	// ExtractHTML is a selector; empty disables markup extraction.
	ExtractHTML string
	// ExtractDate returns epoch millis; nil disables date extraction.
	ExtractDate func(v any) int64

	SkipInCSV bool
	Name      string // output key override

	// Value and Func are mutually exclusive.
	Value any
	Func  func(row any) any

	// Location is the zone for parsed and epoch dates (default UTC).
	Location *time.Location

	// Display hints for the rendering layer. Not interpreted here.
	Editable bool
	HTML     bool
	Options  []any
}

// Validate reports configuration errors for a single column.
func (c *Column) Validate() error {
	if c.Value != nil && c.Func != nil {
		return ErrValueAndFunc
	}
	return nil
}

// Raw derives the raw value of this column for a row.
func (c *Column) Raw(row any) any {
	if c.Value != nil {
		return c.Value
	}
	if c.Func != nil {
		return c.Func(row)
	}
	return nil
}

// Loc returns the column's location, defaulting to UTC.
func (c *Column) Loc() *time.Location {
	if c == nil || c.Location == nil {
		return time.UTC
	}
	return c.Location
}

// Precision is a helper for setting FloatPrecision inline.
func Precision(digits int) *int {
	return &digits
}
