package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sambeau/tabula/config"
	"github.com/sambeau/tabula/pkg/loader"
	"github.com/sambeau/tabula/pkg/query"
	"github.com/sambeau/tabula/pkg/scope"
	"github.com/sambeau/tabula/pkg/session"
	tbl "github.com/sambeau/tabula/pkg/table"
)

// cliView is the view tag of hashes built on the command line.
const cliView = "cli"

// newLoader reads files straight from the data root unless documents come
// from a remote base URL.
func newLoader(cfg *config.Config, log *zap.Logger) *loader.Loader {
	var fetch loader.Fetcher = loader.NewHTTPFetcher(cfg.Data.BaseURL, cfg.Data.FetchTimeout)
	if cfg.Data.BaseURL == "" {
		fetch = &loader.FileFetcher{Root: cfg.Data.Root, Endpoint: cfg.Data.FileEndpoint, Next: fetch}
	}
	return loader.New(
		loader.WithFetcher(fetch),
		loader.WithFileEndpoint(cfg.Data.FileEndpoint),
		loader.WithDraftDir(cfg.Data.DraftDir),
		loader.WithLogger(log.Named("loader")),
	)
}

// editorID resolves an editor given by index or name.
func editorID(cfg *config.Config, arg string) (int, error) {
	if i, err := strconv.Atoi(arg); err == nil && i >= 0 && i < len(cfg.Editors) {
		return i, nil
	}
	names := make([]string, len(cfg.Editors))
	for i, ed := range cfg.Editors {
		if ed.Name == arg {
			return i, nil
		}
		names[i] = ed.Name
	}
	return 0, fmt.Errorf("%w: %q (have %s)", session.ErrNoEditor, arg, strings.Join(names, ", "))
}

// scopeFlags select a document and a position inside it.
type scopeFlags struct {
	draft string
	user  string
}

func (f *scopeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.draft, "draft", "", "Load the named draft instead of the live document")
	cmd.Flags().StringVar(&f.user, "user", "", "Owner of the draft")
}

// open loads the editor named by args[0] and scopes into the slash
// separated path in args[1], if given.
func (f *scopeFlags) open(ctx context.Context, cfg *config.Config, log *zap.Logger, args []string) (*session.Session, *scope.MemoryLocation, error) {
	id, err := editorID(cfg, args[0])
	if err != nil {
		return nil, nil, err
	}
	h := scope.Hash{View: cliView, EditorID: id, Path: scope.Path{}}
	if len(args) > 1 {
		h.Path = scope.ParsePath(strings.Split(args[1], "/")...)
	}

	loc := scope.NewMemoryLocation(h.String())
	sess := session.New(loc, newLoader(cfg, log), session.WithLogger(log.Named("session")))
	err = sess.Initialize(ctx, cfg.Editors, loader.Draft{Name: f.draft, User: f.user})
	return sess, loc, err
}

// queryFlags are the search, filter, sort and page options.
type queryFlags struct {
	search  string
	filters []string
	sort    string
	order   string
	page    int
}

func (f *queryFlags) register(cmd *cobra.Command, paged bool) {
	cmd.Flags().StringVarP(&f.search, "search", "s", "", "Fuzzy search term")
	cmd.Flags().StringArrayVarP(&f.filters, "filter", "f", nil, "Filter as key:op:value (repeatable)")
	cmd.Flags().StringVar(&f.sort, "sort", "", "Column to sort by")
	cmd.Flags().StringVar(&f.order, "order", "", "Sort order: asc or desc (default asc with --sort)")
	if paged {
		cmd.Flags().IntVarP(&f.page, "page", "p", 1, "Page to show")
	}
}

func (f *queryFlags) request(cfg *tbl.Config) (query.Request, error) {
	req := query.Request{Search: f.search, SortKey: f.sort, Page: f.page}
	order, err := query.ParseOrder(f.order)
	if err != nil {
		return req, err
	}
	req.Order = order
	if req.SortKey != "" && order == query.Default {
		req.Order = query.Asc
	}
	for _, s := range f.filters {
		filter, err := query.ParseFilter(s, cfg)
		if err != nil {
			return req, err
		}
		req.Filters = append(req.Filters, filter)
	}
	return req, nil
}

// renderTable writes rows as a bordered text table.
func renderTable(w io.Writer, headers []string, cells [][]string) {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(cells...)
	fmt.Fprintln(w, t.String())
}
