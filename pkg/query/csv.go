package query

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/sambeau/tabula/pkg/coerce"
	"github.com/sambeau/tabula/pkg/column"
	"github.com/sambeau/tabula/pkg/extract"
	"github.com/sambeau/tabula/pkg/table"
)

// Exporter encodes and saves an exported table.
type Exporter interface {
	Export(records [][]string, headers []string, title string) error
}

// isoMillis matches the ISO-8601 form dates take in exports.
const isoMillis = "2006-01-02T15:04:05.000Z"

// CSV builds the header row and one record per row. Falsy values and
// columns marked SkipInCSV export as empty strings.
func (e *Engine) CSV(rows []*table.Row) (headers []string, records [][]string) {
	headers = table.OutputKeys(e.cfg)
	records = make([][]string, 0, len(rows))
	for _, row := range rows {
		rec := make([]string, len(headers))
		for i, h := range headers {
			var v any
			if row != nil {
				v = row.Value(h)
			}
			rec[i] = e.cell(v, e.cfg.Column(h))
		}
		records = append(records, rec)
	}
	return headers, records
}

func (e *Engine) cell(v any, col *column.Column) string {
	if falsy(v) || (col != nil && col.SkipInCSV) {
		return ""
	}
	if col != nil && col.ExtractDate != nil {
		if ms, ok := extract.Date(v, col).(int64); ok {
			return time.UnixMilli(ms).UTC().Format(isoMillis)
		}
	} else if col != nil && col.ExtractHTML != "" {
		v = extract.Markup(v, col, e.renderer)
		if v == nil {
			return ""
		}
	}
	if t, ok := v.(time.Time); ok {
		return t.Format(time.RFC3339)
	}
	return coerce.To(column.String, v, col).(string)
}

// falsy matches the values a display treats as empty.
func falsy(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	case bool:
		return !x
	}
	if f, ok := coerce.AsFloat(v); ok {
		return f == 0 || math.IsNaN(f)
	}
	return false
}

// Export builds the CSV for rows and hands it to x.
func (e *Engine) Export(rows []*table.Row, title string, x Exporter) error {
	headers, records := e.CSV(rows)
	if err := x.Export(records, headers, title); err != nil {
		return fmt.Errorf("exporting %q: %w", title, err)
	}
	return nil
}

// CSVWriter writes CSV to W, gzip-compressed when Gzip is set.
type CSVWriter struct {
	W    io.Writer
	Gzip bool
}

func (cw CSVWriter) Export(records [][]string, headers []string, _ string) error {
	w := cw.W
	var gz *gzip.Writer
	if cw.Gzip {
		gz = gzip.NewWriter(w)
		w = gz
	}

	enc := csv.NewWriter(w)
	if err := enc.Write(headers); err != nil {
		return err
	}
	if err := enc.WriteAll(records); err != nil {
		return err
	}

	if gz != nil {
		return gz.Close()
	}
	return nil
}

// FileExporter saves each export as <Dir>/<title>.csv (or .csv.gz).
type FileExporter struct {
	Dir  string
	Gzip bool
}

// Path returns the file an export with title is written to.
func (fe FileExporter) Path(title string) string {
	name := sanitizeTitle(title) + ".csv"
	if fe.Gzip {
		name += ".gz"
	}
	return filepath.Join(fe.Dir, name)
}

func (fe FileExporter) Export(records [][]string, headers []string, title string) error {
	f, err := os.Create(fe.Path(title))
	if err != nil {
		return err
	}
	if err := (CSVWriter{W: f, Gzip: fe.Gzip}).Export(records, headers, title); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func sanitizeTitle(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return "export"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, title)
}
