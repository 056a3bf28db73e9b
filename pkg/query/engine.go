// Package query searches, filters, sorts, paginates and exports projected
// rows.
package query

import (
	"slices"

	"go.uber.org/zap"

	"github.com/sambeau/tabula/pkg/extract"
	"github.com/sambeau/tabula/pkg/table"
)

// Engine runs queries against rows projected with one table configuration.
type Engine struct {
	cfg      *table.Config
	renderer extract.Renderer
	log      *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithRenderer sets the markup renderer used by markup extraction.
func WithRenderer(r extract.Renderer) Option {
	return func(e *Engine) { e.renderer = r }
}

// WithLogger sets the engine's logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// New returns an Engine for cfg.
func New(cfg *table.Config, opts ...Option) *Engine {
	e := &Engine{
		cfg:      cfg,
		renderer: extract.HTMLRenderer{},
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if cfg == nil {
		e.cfg = &table.Config{}
	}
	return e
}

// Config returns the engine's table configuration.
func (e *Engine) Config() *table.Config { return e.cfg }

// Display renders rows as cell text with the engine's renderer.
func (e *Engine) Display(rows []*table.Row) (headers []string, cells [][]string) {
	return table.DisplayRows(rows, e.cfg, e.renderer)
}

// Request describes one pass over a row set, in the order the display
// applies it.
type Request struct {
	Search     string
	SearchKeys []string // defaults to the configuration's Searchable keys
	Filters    []Filter
	SortKey    string
	Order      Order
	Page       int
}

// Result is the outcome of Run.
type Result struct {
	Rows       []*table.Row
	Total      int // matching rows before pagination
	TotalPages int
	Searched   bool // false when no search filtering was applied
}

// Run searches, filters, sorts and paginates rows. rows is never reordered.
func (e *Engine) Run(rows []*table.Row, req Request) Result {
	var res Result
	set := rows

	if req.Search != "" {
		keys := req.SearchKeys
		if len(keys) == 0 {
			keys = e.cfg.Searchable
		}
		if found, ok := NewIndex(rows, keys).Search(req.Search); ok {
			set = found
			res.Searched = true
		}
	}

	set = Where(set, req.Filters...)

	if req.SortKey != "" && req.Order != Default {
		set = e.Sort(slices.Clone(set), req.SortKey, req.Order)
	}

	res.Total = len(set)
	page := Paginate(set, req.Page, res.Total, e.cfg)
	res.Rows = page.Rows
	res.TotalPages = page.TotalPages

	e.log.Debug("query run",
		zap.String("search", req.Search),
		zap.Int("filters", len(req.Filters)),
		zap.String("sort", req.SortKey),
		zap.Int("page", req.Page),
		zap.Int("in", len(rows)),
		zap.Int("matched", res.Total),
		zap.Int("out", len(res.Rows)))
	return res
}
