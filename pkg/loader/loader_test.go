package loader

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	full := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}
	if err := os.WriteFile(full, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	return full
}

func localLoader(root string) *Loader {
	return New(WithFetcher(&FileFetcher{Root: root, Endpoint: DefaultFileEndpoint}))
}

func TestLoadJSONFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "data/items.json", `{"x":[{"y":1}]}`)

	got, err := localLoader(dir).Load(context.Background(), &Editor{Name: "items", SourceType: SourceJSON, JSONSource: "data/items.json"}, Draft{})
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	want := map[string]any{"x": []any{map[string]any{"y": 1.0}}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("document (-want +got):\n%s", diff)
	}
}

func TestLoadDraft(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "data/items.json", `"live"`)
	writeFile(t, dir, "drafts/items/sam/first/record.json", `"draft"`)
	ed := &Editor{Name: "items", SourceType: SourceJSON, JSONSource: "data/items.json"}
	l := localLoader(dir)

	tests := []struct {
		draft Draft
		want  string
	}{
		{Draft{Name: "first", User: "sam"}, "draft"},
		{Draft{Name: LiveDraft, User: "sam"}, "live"},
		{Draft{Name: "first"}, "live"},
	}
	for _, tt := range tests {
		got, err := l.Load(context.Background(), ed, tt.draft)
		if err != nil {
			t.Fatalf("Load(%+v) failed: %v", tt.draft, err)
		}
		if got != tt.want {
			t.Errorf("Load(%+v) = %v, want %s", tt.draft, got, tt.want)
		}
	}
}

func TestLoadTextAndMarkdown(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "notes.txt", "plain text")
	writeFile(t, dir, "page.md", "# Title\n\n| a | b |\n|---|---|\n| 1 | 2 |\n\n<span>raw</span>\n")
	l := localLoader(dir)

	got, err := l.Load(context.Background(), &Editor{SourceType: SourceText, TextSource: "notes.txt"}, Draft{})
	if err != nil || got != "plain text" {
		t.Errorf("text = %v, %v", got, err)
	}

	got, err = l.Load(context.Background(), &Editor{SourceType: SourceMD, MDSource: "page.md"}, Draft{})
	if err != nil {
		t.Fatalf("Load(md) failed: %v", err)
	}
	html := got.(string)
	for _, want := range []string{"<h1>Title</h1>", "<table>", "<span>raw</span>"} {
		if !strings.Contains(html, want) {
			t.Errorf("markdown output missing %q:\n%s", want, html)
		}
	}
}

func TestLoadFileErrors(t *testing.T) {
	dir := t.TempDir()
	l := localLoader(dir)

	_, err := l.Load(context.Background(), &Editor{Name: "gone", SourceType: SourceJSON, JSONSource: "missing.json"}, Draft{})
	if err == nil || !strings.Contains(err.Error(), "404") {
		t.Errorf("missing file err = %v", err)
	}
	_, err = l.Load(context.Background(), &Editor{SourceType: SourceJSON, JSONSource: "../etc/passwd"}, Draft{})
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Errorf("traversal err = %v", err)
	}
	_, err = l.Load(context.Background(), &Editor{SourceType: "csv"}, Draft{})
	if !errors.Is(err, ErrUnknownSource) {
		t.Errorf("unknown source err = %v", err)
	}
}

type captured struct {
	method      string
	query       string
	contentType string
	body        string
}

func apiServer(t *testing.T, got chan<- captured) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got <- captured{
			method:      r.Method,
			query:       r.URL.RawQuery,
			contentType: r.Header.Get("Content-Type"),
			body:        string(body),
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":1}]`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestLoadAPI(t *testing.T) {
	params := map[string]any{"b": "2 3", "a": 1}
	tests := []struct {
		name string
		ed   Editor
		want captured
	}{
		{
			name: "json body",
			ed:   Editor{APIMethod: "post", APIEncoding: EncodingJSON, APISourceParams: params},
			want: captured{method: "POST", contentType: "application/json", body: `{"a":1,"b":"2 3"}`},
		},
		{
			name: "url encoded",
			ed:   Editor{APIMethod: "GET", APIEncoding: EncodingURL, APISourceParams: params},
			want: captured{method: "GET", query: "a=1&b=2+3", contentType: "application/x-www-form-urlencoded"},
		},
		{
			name: "xml body",
			ed:   Editor{APIMethod: "PUT", APIEncoding: EncodingXML, APISourceParams: params},
			want: captured{method: "PUT", contentType: "application/xml", body: "<a>1</a><b>2 3</b>"},
		},
		{
			name: "no params",
			ed:   Editor{APIMethod: "POST", APIEncoding: EncodingPlain},
			want: captured{method: "POST", contentType: "text/plain"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reqs := make(chan captured, 1)
			srv := apiServer(t, reqs)
			ed := tt.ed
			ed.SourceType = SourceAPI
			ed.APISource = srv.URL + "/items"

			l := New(WithFetcher(&HTTPFetcher{Client: srv.Client()}))
			data, err := l.Load(context.Background(), &ed, Draft{})
			if err != nil {
				t.Fatalf("Load() failed: %v", err)
			}
			if diff := cmp.Diff([]any{map[string]any{"id": 1.0}}, data); diff != "" {
				t.Errorf("data (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.want, <-reqs, cmp.AllowUnexported(captured{})); diff != "" {
				t.Errorf("request (-want +got):\n%s", diff)
			}
		})
	}
}

func TestHTTPFetcherBaseURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var fr FileRequest
		json.NewDecoder(r.Body).Decode(&fr)
		if r.URL.Path != DefaultFileEndpoint || fr.FilePath != "a.json" {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	f := &HTTPFetcher{Client: srv.Client(), BaseURL: srv.URL}
	got, err := New(WithFetcher(f)).Load(context.Background(), &Editor{SourceType: SourceJSON, JSONSource: "a.json"}, Draft{})
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if diff := cmp.Diff(map[string]any{"ok": true}, got); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestLoadSQL(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "items.db")
	db, err := OpenDB("sqlite3", dsn)
	if err != nil {
		t.Fatalf("OpenDB() failed: %v", err)
	}
	_, err = db.Exec(`CREATE TABLE items (id INTEGER, name TEXT)`)
	if err == nil {
		_, err = db.Exec(`INSERT INTO items VALUES (1, 'one'), (2, 'two')`)
	}
	db.Close()
	if err != nil {
		t.Fatalf("Failed to seed database: %v", err)
	}

	ed := &Editor{SourceType: SourceSQL, SQL: SQLSource{Driver: "sqlite", DSN: dsn, Query: "SELECT id, name FROM items ORDER BY id"}}
	got, err := New().Load(context.Background(), ed, Draft{})
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	want := []any{
		map[string]any{"id": int64(1), "name": "one"},
		map[string]any{"id": int64(2), "name": "two"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("rows (-want +got):\n%s", diff)
	}

	if _, err := OpenDB("oracle", ""); err == nil {
		t.Error("expected error for unsupported driver")
	}
}

func TestSingleLoad(t *testing.T) {
	started := make(chan struct{})
	block := FetchFunc(func(ctx context.Context, url string, req Request) (*http.Response, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	})
	l := New(WithFetcher(block))
	ed := &Editor{Name: "slow", SourceType: SourceJSON, JSONSource: "a.json"}

	errc := make(chan error, 1)
	go func() {
		_, err := l.Load(context.Background(), ed, Draft{})
		errc <- err
	}()
	<-started

	if !l.Pending() {
		t.Error("Pending() = false during a load")
	}
	if _, err := l.Load(context.Background(), ed, Draft{}); !errors.Is(err, ErrLoadInProgress) {
		t.Errorf("second load err = %v, want ErrLoadInProgress", err)
	}

	l.Cancel()
	select {
	case err := <-errc:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("cancelled load err = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("load did not stop after Cancel")
	}
	if l.Pending() {
		t.Error("Pending() = true after the load ended")
	}
}

func TestEditorFilePath(t *testing.T) {
	ed := &Editor{Name: "e", SourceType: SourceMD, MDSource: "page.md", JSONSource: "x.json"}
	if got := ed.FilePath("drafts", Draft{}); got != "page.md" {
		t.Errorf("FilePath = %q", got)
	}
	if got := ed.FilePath("drafts", Draft{Name: "d", User: "u"}); got != "drafts/e/u/d/record.json" {
		t.Errorf("draft FilePath = %q", got)
	}
}

func TestEditorValidate(t *testing.T) {
	valid := []Editor{
		{SourceType: SourceJSON, JSONSource: "a.json"},
		{SourceType: SourceAPI, APISource: "http://x"},
		{SourceType: SourceSQL, SQL: SQLSource{Driver: "sqlite", Query: "SELECT 1"}},
	}
	for _, ed := range valid {
		if err := ed.Validate(); err != nil {
			t.Errorf("Validate(%+v) = %v", ed, err)
		}
	}
	invalid := []Editor{
		{SourceType: SourceHTML},
		{SourceType: SourceAPI},
		{SourceType: SourceSQL, SQL: SQLSource{Driver: "sqlite"}},
		{SourceType: "ftp"},
	}
	for _, ed := range invalid {
		if err := ed.Validate(); err == nil {
			t.Errorf("Validate(%+v) = nil, want error", ed)
		}
	}
}

func TestEncodings(t *testing.T) {
	if got := URLEncode(map[string]any{"b": "2 3", "a": 1}); got != "a=1&b=2+3" {
		t.Errorf("URLEncode = %q", got)
	}
	got := ToXML(map[string]any{"a": 1, "b": []any{map[string]any{"c": "x"}, map[string]any{"c": "y<"}}})
	if got != "<a>1</a><b><c>x</c></b><b><c>y&lt;</c></b>" {
		t.Errorf("ToXML = %q", got)
	}
	if EncodingForm.ContentType() != "multipart/form-data" || Encoding("").ContentType() != "application/json" {
		t.Error("unexpected content types")
	}
}

func TestSafeJoin(t *testing.T) {
	root := filepath.FromSlash("/data")
	ok := map[string]string{
		"a.json":     "/data/a.json",
		"/a/b.json":  "/data/a/b.json",
		"a/../b.txt": "/data/b.txt",
	}
	for in, want := range ok {
		got, err := SafeJoin(root, in)
		if err != nil || got != filepath.FromSlash(want) {
			t.Errorf("SafeJoin(%q) = %q, %v", in, got, err)
		}
	}
	for _, in := range []string{"", "..", "../x", "a/../../x", "/"} {
		if _, err := SafeJoin(root, in); !errors.Is(err, ErrOutsideRoot) {
			t.Errorf("SafeJoin(%q) err = %v", in, err)
		}
	}
}

func TestWatcher(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, dir, "doc.json", `{}`)
	writeFile(t, dir, "other.json", `{}`)

	changed := make(chan string, 4)
	w, err := NewWatcher([]string{file}, 10*time.Millisecond, nil, func(p string) {
		select {
		case changed <- p:
		default:
		}
	})
	if err != nil {
		t.Fatalf("NewWatcher() failed: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()
	defer func() {
		cancel()
		<-done
	}()

	writeFile(t, dir, "other.json", `{"a":1}`)
	writeFile(t, dir, "doc.json", `{"b":2}`)

	select {
	case p := <-changed:
		if filepath.Base(p) != "doc.json" {
			t.Errorf("changed %s, want doc.json", p)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}
}
