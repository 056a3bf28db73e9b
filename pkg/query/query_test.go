package query

import (
	"bytes"
	"encoding/csv"
	"io"
	"math"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/klauspost/compress/gzip"

	"github.com/sambeau/tabula/pkg/column"
	"github.com/sambeau/tabula/pkg/extract"
	"github.com/sambeau/tabula/pkg/table"
)

// rowsOf builds processed rows holding a single key "a". The column type is
// one coercion does not know, so values keep their Go types.
func rowsOf(vals ...any) []*table.Row {
	cfg := &table.Config{Columns: column.NewColumns().Set("a", column.Column{Type: "raw", Func: table.Field("a")})}
	raw := make([]any, len(vals))
	for i, v := range vals {
		raw[i] = map[string]any{"a": v}
	}
	return table.Project(raw, cfg)
}

func values(rows []*table.Row, key string) []any {
	out := make([]any, len(rows))
	for i, r := range rows {
		out[i] = r.Value(key)
	}
	return out
}

func TestWhere(t *testing.T) {
	rows := rowsOf(1, 2, 3)
	got := values(Where(rows, Gte("a", 2)), "a")
	if diff := cmp.Diff([]any{2, 3}, got); diff != "" {
		t.Errorf("GTE mismatch (-want +got):\n%s", diff)
	}

	tests := []struct {
		name   string
		filter Filter
		want   []any
	}{
		{"equal", Eq("a", 2), []any{2}},
		{"equal across int kinds", Eq("a", int64(2)), []any{2}},
		{"not", Not("a", 2), []any{1, 3}},
		{"lt", Lt("a", 2), []any{1}},
		{"lte", Lte("a", 2.0), []any{1, 2}},
		{"gt", Gt("a", 1), []any{2, 3}},
		{"type mismatch is skipped", Gt("a", "1"), []any{1, 2, 3}},
		{"absent key is skipped", Eq("b", 1), []any{1, 2, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := values(Where(rows, tt.filter), "a")
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// Every filter must pass, not only the first one evaluated.
func TestWhereRequiresAllFilters(t *testing.T) {
	rows := rowsOf(1, 2, 3, 4)
	got := values(Where(rows, Gte("a", 2), Lt("a", 4)), "a")
	if diff := cmp.Diff([]any{2, 3}, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	// A skipped predicate does not stop later ones from applying.
	got = values(Where(rows, Eq("a", "x"), Not("a", 3)), "a")
	if diff := cmp.Diff([]any{1, 2, 4}, got); diff != "" {
		t.Errorf("mismatch after skipped filter (-want +got):\n%s", diff)
	}
}

func TestWhereStringsAndDates(t *testing.T) {
	jan := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	feb := jan.AddDate(0, 1, 0)
	rows := rowsOf("b", "a", jan, feb, true)

	got := values(Where(rows, Gt("a", "a")), "a")
	if diff := cmp.Diff([]any{"b", jan, feb, true}, got); diff != "" {
		t.Errorf("string filter mismatch (-want +got):\n%s", diff)
	}
	got = values(Where(rows, Lt("a", feb)), "a")
	if diff := cmp.Diff([]any{"b", "a", jan, true}, got); diff != "" {
		t.Errorf("date filter mismatch (-want +got):\n%s", diff)
	}
}

func TestParseComparison(t *testing.T) {
	for in, want := range map[string]Comparison{"EQUAL": Equal, ">=": GTE, "lt": LT, "!=": NOT, "<=": LTE, "gt": GT} {
		got, err := ParseComparison(in)
		if err != nil || got != want {
			t.Errorf("ParseComparison(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseComparison("~"); err == nil {
		t.Error("expected error for unknown comparison")
	}
}

func TestParseFilter(t *testing.T) {
	cfg := &table.Config{Columns: column.NewColumns().
		Set("n", column.Column{Type: column.Integer}).
		Set("d", column.Column{Type: column.Date, DateParse: column.DateEpochMillis})}

	tests := []struct {
		in   string
		want Filter
	}{
		{"n:>:42x", Filter{Key: "n", Comparison: GT, Value: int64(42)}},
		{"d:GTE:2020-01-02", Filter{Key: "d", Comparison: GTE, Value: time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC)}},
		{"other:=:a:b", Filter{Key: "other", Comparison: Equal, Value: "a:b"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFilter(tt.in, cfg)
			if err != nil {
				t.Fatalf("ParseFilter failed: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("filter mismatch (-want +got):\n%s", diff)
			}
		})
	}

	for _, bad := range []string{"n:>", "n:~:1", ":=:1"} {
		if _, err := ParseFilter(bad, cfg); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestSort(t *testing.T) {
	e := New(nil)

	rows := rowsOf(3, 1, 2)
	got := values(e.Sort(rows, "a", Asc), "a")
	if diff := cmp.Diff([]any{1, 2, 3}, got); diff != "" {
		t.Errorf("asc mismatch (-want +got):\n%s", diff)
	}
	got = values(e.Sort(rows, "a", Desc), "a")
	if diff := cmp.Diff([]any{3, 2, 1}, got); diff != "" {
		t.Errorf("desc mismatch (-want +got):\n%s", diff)
	}
}

func TestSortDefaultIsIdentity(t *testing.T) {
	rows := rowsOf(3, 1, 2)
	before := append([]*table.Row(nil), rows...)
	out := New(nil).Sort(rows, "a", Default)
	if len(out) != len(rows) || &out[0] != &rows[0] {
		t.Fatal("default order should return the input slice itself")
	}
	for i := range before {
		if out[i] != before[i] {
			t.Errorf("row %d moved", i)
		}
	}
}

func TestSortNilKeysCompareEqual(t *testing.T) {
	rows := rowsOf(nil, nil, nil)
	first := rows[0]
	New(nil).Sort(rows, "a", Asc)
	if rows[0] != first {
		t.Error("rows with nil keys should keep their order")
	}
}

func TestSortUsesExtraction(t *testing.T) {
	cols := column.NewColumns().
		Set("html", column.Column{ExtractHTML: "b", Type: column.Integer, Func: table.Field("html")}).
		Set("both", column.Column{
			ExtractHTML: "b",
			ExtractDate: func(v any) int64 { return int64(len(v.(string))) },
			Func:        table.Field("both"),
		})
	cfg := &table.Config{Columns: cols}
	rows := table.Project([]any{
		map[string]any{"html": "<b>10</b>", "both": "<b>1</b>xx"},
		map[string]any{"html": "<b>9</b>", "both": "<b>2</b>"},
	}, cfg)
	e := New(cfg)

	got := values(e.Sort(rows, "html", Asc), "html")
	if diff := cmp.Diff([]any{"<b>9</b>", "<b>10</b>"}, got); diff != "" {
		t.Errorf("markup sort should be numeric (-want +got):\n%s", diff)
	}

	// Date extraction (string length here) wins over markup extraction.
	got = values(e.Sort(rows, "both", Asc), "both")
	if diff := cmp.Diff([]any{"<b>2</b>", "<b>1</b>xx"}, got); diff != "" {
		t.Errorf("date extraction should take precedence (-want +got):\n%s", diff)
	}
}

func TestPaginate(t *testing.T) {
	vals := make([]any, 25)
	for i := range vals {
		vals[i] = i + 1
	}
	rows := rowsOf(vals...)
	cfg := &table.Config{Paginate: true, MaxResultsPerPage: 10}

	p := Paginate(rows, 3, len(rows), cfg)
	if p.TotalPages != 3 {
		t.Errorf("total pages = %d, want 3", p.TotalPages)
	}
	if diff := cmp.Diff([]any{21, 22, 23, 24, 25}, values(p.Rows, "a")); diff != "" {
		t.Errorf("page 3 mismatch (-want +got):\n%s", diff)
	}

	p = Paginate(rows, 4, len(rows), cfg)
	if p.Rows == nil || len(p.Rows) != 0 {
		t.Errorf("page 4 = %v, want empty slice", p.Rows)
	}
	if p := Paginate(rows, 0, len(rows), cfg); len(p.Rows) != 0 {
		t.Errorf("page 0 returned %d rows", len(p.Rows))
	}
	for _, page := range []int{math.MaxInt, math.MaxInt/10 + 2, math.MinInt} {
		p := Paginate(rows, page, len(rows), cfg)
		if p.Rows == nil || len(p.Rows) != 0 || p.TotalPages != 3 {
			t.Errorf("page %d = %d rows / %d pages, want empty / 3", page, len(p.Rows), p.TotalPages)
		}
	}
	if p := Paginate(nil, 1, 0, cfg); len(p.Rows) != 0 || p.TotalPages != 0 {
		t.Errorf("empty input = %d rows / %d pages", len(p.Rows), p.TotalPages)
	}
	wide := &table.Config{Paginate: true, MaxResultsPerPage: math.MaxInt}
	if p := Paginate(rows, 1, len(rows), wide); len(p.Rows) != 25 || p.TotalPages != 1 {
		t.Errorf("huge page size = %d rows / %d pages, want 25 / 1", len(p.Rows), p.TotalPages)
	}

	p = Paginate(rows, 2, len(rows), &table.Config{Paginate: false, MaxResultsPerPage: 10})
	if p.TotalPages != 1 || len(p.Rows) != 25 {
		t.Errorf("disabled pagination = %d rows / %d pages, want 25 / 1", len(p.Rows), p.TotalPages)
	}
}

func TestIndexSearch(t *testing.T) {
	cols := column.NewColumns().
		Set("name", column.Column{Func: table.Field("name")}).
		Set("city", column.Column{Func: table.Field("city")})
	cfg := &table.Config{Columns: cols}
	rows := table.Project([]any{
		map[string]any{"name": "alice", "city": "paris"},
		map[string]any{"name": "bob", "city": "berlin"},
		map[string]any{"name": "carol", "city": "boston"},
	}, cfg)

	ix := NewIndex(rows, []string{AllKeys})
	if diff := cmp.Diff([]string{"name", "city"}, ix.Keys()); diff != "" {
		t.Errorf("all keys mismatch:\n%s", diff)
	}

	if got, ok := ix.Search(""); ok || got != nil {
		t.Errorf("empty term: got %v, %v; want nil, false", got, ok)
	}

	got, ok := ix.Search("bos")
	if !ok || len(got) != 1 || got[0].Value("name") != "carol" {
		t.Errorf("search bos = %v, %v", values(got, "name"), ok)
	}

	got, ok = ix.Search("zzz")
	if !ok || got == nil || len(got) != 0 {
		t.Errorf("no match should be an empty result, got %v, %v", got, ok)
	}

	if keys := NewIndex(nil, []string{AllKeys}).Keys(); len(keys) != 0 {
		t.Errorf("all keys over empty rows = %v", keys)
	}
}

func TestSearchableKeys(t *testing.T) {
	cols := column.NewColumns().
		Set("when", column.Column{Type: column.Date}).
		Set("what", column.Column{})
	cfg := &table.Config{Columns: cols}
	if diff := cmp.Diff([]string{"what"}, SearchableKeys([]string{"when", "what"}, cfg)); diff != "" {
		t.Errorf("mismatch:\n%s", diff)
	}
	if diff := cmp.Diff([]string{AllKeys}, SearchableKeys([]string{AllKeys}, cfg)); diff != "" {
		t.Errorf("all mismatch:\n%s", diff)
	}
}

func csvConfig() *table.Config {
	cols := column.NewColumns().
		Set("id", column.Column{Type: column.Integer, Func: table.Field("id")}).
		Set("secret", column.Column{SkipInCSV: true, Func: table.Field("secret")}).
		Set("when", column.Column{
			ExtractDate: func(v any) int64 { return 1577836800000 },
			Func:        table.Field("when"),
		}).
		Set("link", column.Column{ExtractHTML: "a", Func: table.Field("link")}).
		Set("note", column.Column{Func: table.Field("note")})
	return &table.Config{Columns: cols}
}

func TestCSV(t *testing.T) {
	cfg := csvConfig()
	rows := table.Project([]any{
		map[string]any{"id": 1, "secret": "s", "when": "x", "link": `<a href="/">Home</a>`, "note": "hi, there"},
		map[string]any{"id": 0, "secret": "s", "when": "", "link": "", "note": ""},
	}, cfg)

	headers, records := New(cfg).CSV(rows)
	if diff := cmp.Diff([]string{"id", "secret", "when", "link", "note"}, headers); diff != "" {
		t.Errorf("headers mismatch:\n%s", diff)
	}
	want := [][]string{
		{"1", "", "2020-01-01T00:00:00.000Z", "Home", "hi, there"},
		{"", "", "", "", ""},
	}
	if diff := cmp.Diff(want, records); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
}

type captureExporter struct {
	records [][]string
	headers []string
	title   string
}

func (c *captureExporter) Export(records [][]string, headers []string, title string) error {
	c.records, c.headers, c.title = records, headers, title
	return nil
}

func TestExportDelegates(t *testing.T) {
	cfg := csvConfig()
	rows := table.Project([]any{map[string]any{"id": 5}}, cfg)
	var c captureExporter
	if err := New(cfg).Export(rows, "report", &c); err != nil {
		t.Fatal(err)
	}
	if c.title != "report" || len(c.records) != 1 || c.records[0][0] != "5" {
		t.Errorf("unexpected export: %+v", c)
	}
}

func TestCSVWriterGzip(t *testing.T) {
	var buf bytes.Buffer
	err := CSVWriter{W: &buf, Gzip: true}.Export([][]string{{"1", "a,b"}}, []string{"id", "text"}, "t")
	if err != nil {
		t.Fatal(err)
	}
	zr, err := gzip.NewReader(&buf)
	if err != nil {
		t.Fatal(err)
	}
	raw, err := io.ReadAll(zr)
	if err != nil {
		t.Fatal(err)
	}
	got, err := csv.NewReader(strings.NewReader(string(raw))).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([][]string{{"id", "text"}, {"1", "a,b"}}, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestFileExporter(t *testing.T) {
	dir := t.TempDir()
	fe := FileExporter{Dir: dir}
	if err := fe.Export([][]string{{"x"}}, []string{"h"}, "a/b report"); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(fe.Path("a/b report"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "h\nx\n" {
		t.Errorf("file contents = %q", data)
	}
	if !strings.HasSuffix(fe.Path("a/b report"), "a_b report.csv") {
		t.Errorf("path = %s", fe.Path("a/b report"))
	}
}

func TestRun(t *testing.T) {
	vals := make([]any, 30)
	for i := range vals {
		vals[i] = 30 - i
	}
	rows := rowsOf(vals...)
	first := rows[0]
	e := New(&table.Config{Paginate: true, MaxResultsPerPage: 10})

	res := e.Run(rows, Request{Filters: []Filter{Gt("a", 5)}, SortKey: "a", Order: Asc, Page: 2})
	if res.Total != 25 || res.TotalPages != 3 {
		t.Errorf("total = %d pages = %d, want 25 / 3", res.Total, res.TotalPages)
	}
	if diff := cmp.Diff([]any{16, 17, 18, 19, 20, 21, 22, 23, 24, 25}, values(res.Rows, "a")); diff != "" {
		t.Errorf("page mismatch (-want +got):\n%s", diff)
	}
	if res.Searched {
		t.Error("no search term should not report a search")
	}
	if rows[0] != first {
		t.Error("Run reordered the caller's rows")
	}
}

// shoutRenderer treats markup as plain text and selects it upper-cased.
type shoutRenderer struct{}

func (shoutRenderer) Render(markup string) (extract.Fragment, error) { return shoutFragment(markup), nil }

type shoutFragment string

func (f shoutFragment) Select(string) (string, bool) { return strings.ToUpper(string(f)), true }
func (f shoutFragment) Text() string                 { return string(f) }

func TestDisplayUsesRenderer(t *testing.T) {
	cfg := &table.Config{Columns: column.NewColumns().
		Set("m", column.Column{ExtractHTML: "b", Func: table.Field("m")})}
	rows := table.Project([]any{map[string]any{"m": "<b>hi</b>"}}, cfg)

	headers, cells := New(cfg, WithRenderer(shoutRenderer{})).Display(rows)
	if diff := cmp.Diff([]string{"m"}, headers); diff != "" {
		t.Errorf("headers mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([][]string{{"<B>HI</B>"}}, cells); diff != "" {
		t.Errorf("cells mismatch (-want +got):\n%s", diff)
	}

	_, cells = New(cfg).Display(rows)
	if diff := cmp.Diff([][]string{{"hi"}}, cells); diff != "" {
		t.Errorf("default renderer cells mismatch (-want +got):\n%s", diff)
	}
}
