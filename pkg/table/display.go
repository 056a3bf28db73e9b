package table

import (
	"fmt"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/sambeau/tabula/pkg/coerce"
	"github.com/sambeau/tabula/pkg/column"
	"github.com/sambeau/tabula/pkg/extract"
)

// NewPrinter returns a printer for locale, falling back to American English
// for malformed tags.
func NewPrinter(locale string) *message.Printer {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.AmericanEnglish
	}
	return message.NewPrinter(tag)
}

// Display renders a projected value as cell text. Markup columns are
// rendered with r, or the HTML renderer when r is nil.
func Display(v any, col *column.Column, p *message.Printer, r extract.Renderer) string {
	if v == nil {
		return ""
	}
	if col != nil && col.ExtractHTML != "" {
		v = extract.Markup(v, col, r)
	}
	if p == nil {
		p = NewPrinter("")
	}

	switch x := v.(type) {
	case string:
		return x
	case time.Time:
		if col != nil && col.DateFormatFunc != nil {
			return col.DateFormatFunc(x)
		}
		return x.Format(time.RFC3339)
	case float64, float32:
		f, _ := coerce.AsFloat(x)
		if col != nil && col.FloatPrecision != nil {
			digits := *col.FloatPrecision
			return p.Sprintf("%v", number.Decimal(f, number.MinFractionDigits(digits), number.MaxFractionDigits(digits)))
		}
		return p.Sprintf("%v", number.Decimal(f))
	}
	if coerce.IsNumber(v) {
		f, _ := coerce.AsFloat(v)
		return p.Sprintf("%v", number.Decimal(f))
	}
	return fmt.Sprint(v)
}

// DisplayRows renders rows as cell text, columns in display order.
func DisplayRows(rows []*Row, cfg *Config, r extract.Renderer) (headers []string, cells [][]string) {
	headers = OutputKeys(cfg)
	locale := ""
	if cfg != nil {
		locale = cfg.Locale
	}
	p := NewPrinter(locale)

	cells = make([][]string, len(rows))
	for i, row := range rows {
		cells[i] = make([]string, len(headers))
		for j, h := range headers {
			cells[i][j] = Display(row.Value(h), cfg.Column(h), p, r)
		}
	}
	return headers, cells
}
