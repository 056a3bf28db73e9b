package server

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/sambeau/tabula/config"
	"github.com/sambeau/tabula/pkg/loader"
	"github.com/sambeau/tabula/pkg/logging"
)

// Server represents a tabula HTTP server instance.
type Server struct {
	config     *config.Config
	configPath string
	stdout     io.Writer
	log        *zap.Logger
	mux        *http.ServeMux
	server     *http.Server
	files      *loader.FileFetcher
	docs       *documents
	watcher    *loader.Watcher
}

// New creates a new tabula server with the given configuration.
func New(cfg *config.Config, configPath string, log *zap.Logger, stdout io.Writer) (*Server, error) {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		config:     cfg,
		configPath: configPath,
		stdout:     stdout,
		log:        log,
		mux:        http.NewServeMux(),
	}

	// Without a base URL the file endpoint is served here, and the loader
	// answers it from the data root without a network round trip.
	next := loader.NewHTTPFetcher(cfg.Data.BaseURL, cfg.Data.FetchTimeout)
	var fetch loader.Fetcher = next
	if cfg.Data.BaseURL == "" {
		s.files = &loader.FileFetcher{Root: cfg.Data.Root, Endpoint: cfg.Data.FileEndpoint, Next: next}
		fetch = s.files
	}
	l := loader.New(
		loader.WithFetcher(fetch),
		loader.WithFileEndpoint(cfg.Data.FileEndpoint),
		loader.WithDraftDir(cfg.Data.DraftDir),
		loader.WithLogger(log.Named("loader")),
	)
	s.docs = newDocuments(l, log)

	if err := s.setupRoutes(); err != nil {
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

// setupRoutes configures the HTTP mux.
func (s *Server) setupRoutes() error {
	if s.files != nil {
		s.mux.HandleFunc("POST "+s.config.Data.FileEndpoint, s.handleGetFile)
	}
	s.mux.HandleFunc("GET /api/editors", s.handleEditors)
	s.mux.HandleFunc("GET /api/view", s.handleView)
	s.mux.HandleFunc("GET /api/export", s.handleExport)
	s.mux.HandleFunc("POST /api/write", s.handleWrite)
	return nil
}

// Handler returns the mux wrapped in the configured middleware.
func (s *Server) Handler() http.Handler {
	var handler http.Handler = s.mux
	handler = withCompression(handler, s.config.Compression)
	handler = newCORS(handler, s.config.CORS)
	return newRequestLogger(handler, logging.Requests(s.log, s.config.Logging))
}

// Run starts the server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	addr := s.listenAddr()

	if s.config.Data.Watch {
		if err := s.startWatcher(ctx); err != nil {
			s.log.Error("failed to start watcher", zap.Error(err))
		} else if s.watcher != nil {
			defer s.watcher.Close()
		}
	}

	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(s.stdout, "Starting tabula on http://%s\n", addr)
		errCh <- s.server.ListenAndServe()
	}()

	// Wait for context cancellation or server error
	select {
	case <-ctx.Done():
		fmt.Fprintf(s.stdout, "\nShutting down gracefully...\n")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err != http.ErrServerClosed {
			return err
		}
		return nil
	}
}

// startWatcher drops cached documents when their live files change.
func (s *Server) startWatcher(ctx context.Context) error {
	if s.files == nil {
		return fmt.Errorf("data.watch needs local files")
	}
	var paths []string
	owners := make(map[string]string)
	for _, ed := range s.config.Editors {
		rel := ed.FilePath("", loader.Draft{})
		if rel == "" {
			continue
		}
		full, err := loader.SafeJoin(s.config.Data.Root, rel)
		if err != nil {
			return err
		}
		if abs, err := filepath.Abs(full); err == nil {
			full = abs
		}
		paths = append(paths, full)
		owners[full] = ed.Name
	}
	if len(paths) == 0 {
		return nil
	}

	w, err := loader.NewWatcher(paths, 100*time.Millisecond, s.log.Named("watch"), func(path string) {
		if name, ok := owners[path]; ok {
			s.docs.Invalidate(name)
			s.log.Debug("document invalidated", zap.String("editor", name))
		}
	})
	if err != nil {
		return err
	}
	s.watcher = w
	go w.Run(ctx)
	return nil
}

// listenAddr returns the address to listen on based on configuration.
func (s *Server) listenAddr() string {
	host := s.config.Server.Host
	port := s.config.Server.Port
	if s.config.Server.Dev && host == "" {
		host = "localhost"
	}
	return fmt.Sprintf("%s:%d", host, port)
}
