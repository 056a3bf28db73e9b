package loader

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Request is what a loader asks a Fetcher to send.
type Request struct {
	Method string
	Header http.Header
	Body   []byte
}

// Fetcher performs the loader's HTTP exchanges.
type Fetcher interface {
	Fetch(ctx context.Context, url string, req Request) (*http.Response, error)
}

// FetchFunc adapts a function to Fetcher.
type FetchFunc func(ctx context.Context, url string, req Request) (*http.Response, error)

func (f FetchFunc) Fetch(ctx context.Context, url string, req Request) (*http.Response, error) {
	return f(ctx, url, req)
}

// HTTPFetcher sends requests over the network. Relative URLs are resolved
// against BaseURL.
type HTTPFetcher struct {
	Client  *http.Client
	BaseURL string
}

// NewHTTPFetcher returns a fetcher with a client timeout.
func NewHTTPFetcher(baseURL string, timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{
		Client:  &http.Client{Timeout: timeout},
		BaseURL: strings.TrimRight(baseURL, "/"),
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string, req Request) (*http.Response, error) {
	if strings.HasPrefix(url, "/") && f.BaseURL != "" {
		url = f.BaseURL + url
	}
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	hr, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			hr.Header.Add(k, v)
		}
	}

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	return client.Do(hr)
}

// ErrOutsideRoot is returned for file paths that escape their root.
var ErrOutsideRoot = errors.New("path outside data root")

// SafeJoin resolves rel inside root. Absolute paths are taken relative to
// root; paths that climb out of it are rejected.
func SafeJoin(root, rel string) (string, error) {
	clean := filepath.Clean(strings.TrimLeft(filepath.FromSlash(rel), string(filepath.Separator)))
	if clean == "." || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrOutsideRoot, rel)
	}
	return filepath.Join(root, clean), nil
}

// FileRequest is the body of a file endpoint request.
type FileRequest struct {
	FilePath string `json:"filepath"`
}

// FileFetcher answers file endpoint requests from a local directory and
// sends everything else to Next.
type FileFetcher struct {
	Root     string
	Endpoint string
	Next     Fetcher
}

func (f *FileFetcher) Fetch(ctx context.Context, url string, req Request) (*http.Response, error) {
	if url != f.Endpoint {
		if f.Next == nil {
			return nil, fmt.Errorf("no fetcher for %s", url)
		}
		return f.Next.Fetch(ctx, url, req)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var fr FileRequest
	if err := json.Unmarshal(req.Body, &fr); err != nil {
		return nil, fmt.Errorf("decoding file request: %w", err)
	}
	full, err := SafeJoin(f.Root, fr.FilePath)
	if err != nil {
		return localResponse(http.StatusForbidden, "text/plain", []byte(err.Error())), nil
	}
	data, err := os.ReadFile(full)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return localResponse(http.StatusNotFound, "text/plain", []byte("not found")), nil
	case err != nil:
		return nil, err
	}
	return localResponse(http.StatusOK, ContentTypeOf(full), data), nil
}

// ContentTypeOf guesses a file's content type from its extension.
func ContentTypeOf(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".json":
		return "application/json"
	case ".md", ".markdown":
		return "text/markdown; charset=utf-8"
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func localResponse(code int, contentType string, body []byte) *http.Response {
	return &http.Response{
		Status:        fmt.Sprintf("%d %s", code, http.StatusText(code)),
		StatusCode:    code,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        http.Header{"Content-Type": {contentType}},
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
	}
}
