// Package loader fetches the documents editors work on: JSON, text, HTML and
// Markdown files through a file endpoint, JSON APIs, and SQL queries.
package loader

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
	"go.uber.org/zap"
)

var (
	// ErrLoadInProgress is returned when a load starts while another is
	// pending.
	ErrLoadInProgress = errors.New("a load is already in progress")
	// ErrUnknownSource is returned for an unsupported editor source type.
	ErrUnknownSource = errors.New("unknown source type")
)

// Defaults for a Loader.
const (
	DefaultFileEndpoint = "/api/getFile"
	DefaultDraftDir     = "drafts"
)

// Loader loads editor documents, one at a time.
type Loader struct {
	fetch        Fetcher
	fileEndpoint string
	draftDir     string
	md           goldmark.Markdown
	db           DBOpener
	log          *zap.Logger

	mu      sync.Mutex
	pending context.CancelFunc
}

// Option configures a Loader.
type Option func(*Loader)

// WithFetcher sets how the loader talks HTTP.
func WithFetcher(f Fetcher) Option {
	return func(l *Loader) { l.fetch = f }
}

// WithFileEndpoint sets the URL file sources are requested from.
func WithFileEndpoint(url string) Option {
	return func(l *Loader) { l.fileEndpoint = url }
}

// WithDraftDir sets the directory drafts are stored under.
func WithDraftDir(dir string) Option {
	return func(l *Loader) { l.draftDir = dir }
}

// WithDBOpener sets how SQL sources open their database.
func WithDBOpener(open DBOpener) Option {
	return func(l *Loader) { l.db = open }
}

// WithLogger sets the loader's logger.
func WithLogger(log *zap.Logger) Option {
	return func(l *Loader) { l.log = log }
}

// New returns a loader. Without WithFetcher it uses the network with a 30
// second timeout.
func New(opts ...Option) *Loader {
	l := &Loader{
		fileEndpoint: DefaultFileEndpoint,
		draftDir:     DefaultDraftDir,
		db:           OpenDB,
		log:          zap.NewNop(),
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(html.WithUnsafe()),
		),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.fetch == nil {
		l.fetch = NewHTTPFetcher("", 30*time.Second)
	}
	return l
}

// Load fetches the document of ed. JSON, API and SQL sources produce decoded
// JSON values; text and HTML sources produce a string; Markdown sources
// produce the rendered HTML string. Only one load may be pending at a time.
func (l *Loader) Load(ctx context.Context, ed *Editor, d Draft) (any, error) {
	ctx, err := l.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer l.end()

	start := time.Now()
	data, err := l.load(ctx, ed, d)
	if err != nil {
		l.log.Warn("load failed",
			zap.String("editor", ed.Name),
			zap.String("source", string(ed.SourceType)),
			zap.Error(err))
		return nil, fmt.Errorf("loading editor %q: %w", ed.Name, err)
	}
	l.log.Debug("loaded",
		zap.String("editor", ed.Name),
		zap.String("source", string(ed.SourceType)),
		zap.Duration("took", time.Since(start)))
	return data, nil
}

// Cancel aborts the pending load, if any.
func (l *Loader) Cancel() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.pending != nil {
		l.pending()
	}
}

// Pending reports whether a load is in progress.
func (l *Loader) Pending() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pending != nil
}

func (l *Loader) begin(ctx context.Context) (context.Context, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.pending != nil {
		return nil, ErrLoadInProgress
	}
	ctx, cancel := context.WithCancel(ctx)
	l.pending = cancel
	return ctx, nil
}

func (l *Loader) end() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.pending != nil {
		l.pending()
		l.pending = nil
	}
}

func (l *Loader) load(ctx context.Context, ed *Editor, d Draft) (any, error) {
	switch ed.SourceType {
	case SourceJSON:
		body, err := l.file(ctx, ed.FilePath(l.draftDir, d))
		if err != nil {
			return nil, err
		}
		return decodeJSON(body)
	case SourceText, SourceHTML:
		body, err := l.file(ctx, ed.FilePath(l.draftDir, d))
		if err != nil {
			return nil, err
		}
		return string(body), nil
	case SourceMD:
		body, err := l.file(ctx, ed.FilePath(l.draftDir, d))
		if err != nil {
			return nil, err
		}
		return l.Markdown(body)
	case SourceAPI:
		return l.api(ctx, ed)
	case SourceSQL:
		return l.query(ctx, ed.SQL)
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownSource, ed.SourceType)
}

// Markdown renders Markdown source as HTML.
func (l *Loader) Markdown(src []byte) (string, error) {
	var buf bytes.Buffer
	if err := l.md.Convert(src, &buf); err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return buf.String(), nil
}

func (l *Loader) file(ctx context.Context, path string) ([]byte, error) {
	body, err := json.Marshal(FileRequest{FilePath: path})
	if err != nil {
		return nil, err
	}
	resp, err := l.fetch.Fetch(ctx, l.fileEndpoint, Request{
		Method: http.MethodPost,
		Header: http.Header{"Content-Type": {"application/json"}},
		Body:   body,
	})
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", path, err)
	}
	return readBody(resp, path)
}

func (l *Loader) api(ctx context.Context, ed *Editor) (any, error) {
	enc := ed.APIEncoding
	target := ed.APISource
	req := Request{
		Method: strings.ToUpper(ed.APIMethod),
		Header: http.Header{"Content-Type": {enc.ContentType()}},
	}

	switch {
	case enc == EncodingURL:
		if len(ed.APISourceParams) > 0 {
			sep := "?"
			if strings.Contains(target, "?") {
				sep = "&"
			}
			target += sep + URLEncode(ed.APISourceParams)
		}
	case len(ed.APISourceParams) == 0:
	case enc == EncodingXML:
		req.Body = []byte(ToXML(ed.APISourceParams))
	default:
		body, err := json.Marshal(ed.APISourceParams)
		if err != nil {
			return nil, fmt.Errorf("encoding params: %w", err)
		}
		req.Body = body
	}

	resp, err := l.fetch.Fetch(ctx, target, req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", target, err)
	}
	body, err := readBody(resp, target)
	if err != nil {
		return nil, err
	}
	return decodeJSON(body)
}

func readBody(resp *http.Response, what string) ([]byte, error) {
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", what, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetching %s: %s", what, resp.Status)
	}
	return body, nil
}

func decodeJSON(body []byte) (any, error) {
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, fmt.Errorf("decoding json: %w", err)
	}
	return v, nil
}
