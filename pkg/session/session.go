// Package session is the data interface behind one table display: it reads
// the scope from a location, loads the selected editor's document and keeps
// the navigator and location in step as the user drills in and edits.
package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/sambeau/tabula/pkg/column"
	"github.com/sambeau/tabula/pkg/loader"
	"github.com/sambeau/tabula/pkg/scope"
	"github.com/sambeau/tabula/pkg/table"
)

var (
	// ErrNotInitialized is returned by operations that need a loaded
	// document.
	ErrNotInitialized = errors.New("session not initialized")
	// ErrNoEditor is returned when the location names an editor that does
	// not exist.
	ErrNoEditor = errors.New("no such editor")
)

// Source loads the document of an editor. *loader.Loader is a Source.
type Source interface {
	Load(ctx context.Context, ed *loader.Editor, d loader.Draft) (any, error)
}

// Session owns the document of one editor and the position inside it.
type Session struct {
	loc    scope.Location
	source Source
	log    *zap.Logger

	view        string
	editorID    int
	editor      *loader.Editor
	nav         *scope.Navigator
	initialized bool
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session's logger.
func WithLogger(log *zap.Logger) Option {
	return func(s *Session) { s.log = log }
}

// New returns an uninitialized session reading and writing its scope
// through loc, loading documents from src.
func New(loc scope.Location, src Source, opts ...Option) *Session {
	s := &Session{loc: loc, source: src, log: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	s.Null()
	return s
}

// Initialize selects the editor named by the location, loads its document
// and scopes into the location's path. A load failure resets the session.
// A path that does not resolve leaves the session initialized at the root
// and returns an error wrapping scope.ErrScopeNotFound.
func (s *Session) Initialize(ctx context.Context, editors []loader.Editor, d loader.Draft) error {
	h := scope.ParseHash(s.loc.Hash())
	s.view, s.editorID = h.View, h.EditorID

	if h.EditorID < 0 || h.EditorID >= len(editors) {
		s.Null()
		return fmt.Errorf("%w: %d", ErrNoEditor, h.EditorID)
	}
	ed := editors[h.EditorID]

	start := time.Now()
	data, err := s.source.Load(ctx, &ed, d)
	if err != nil {
		s.Null()
		return err
	}

	s.editor = &ed
	s.nav = scope.NewNavigator(scope.NewDocument(data), scope.NewEditorTree(ed.Obj))
	s.initialized = true
	s.log.Info("session initialized",
		zap.String("editor", ed.Name),
		zap.Int("editor_id", h.EditorID),
		zap.Duration("took", time.Since(start)))

	if err := s.nav.Reset(h.Path); err != nil {
		s.writeHash()
		return fmt.Errorf("scoping to %s: %w", h.Path, err)
	}
	return nil
}

// HashChange re-reads the location and replays its path. When the path does
// not resolve the session stays put and the location is rewritten to match.
func (s *Session) HashChange() error {
	if !s.initialized {
		return ErrNotInitialized
	}
	h := scope.ParseHash(s.loc.Hash())
	if err := s.nav.Reset(h.Path); err != nil {
		s.writeHash()
		return err
	}
	s.view = h.View
	return nil
}

// HandleFieldClick drills into the clicked cell: the row at index (when
// set), then field (when non-empty). The location is updated on success.
func (s *Session) HandleFieldClick(index *int, field string) error {
	if !s.initialized {
		return ErrNotInitialized
	}
	p := s.nav.Path()
	if index != nil {
		p = p.Child(scope.Index(*index))
	}
	if field != "" {
		p = p.Child(scope.Key(field))
	}
	if err := s.nav.Reset(p); err != nil {
		return err
	}
	s.writeHash()
	return nil
}

// Ascend moves to the parent scope and updates the location.
func (s *Session) Ascend() error {
	if !s.initialized {
		return ErrNotInitialized
	}
	if err := s.nav.Ascend(); err != nil {
		return err
	}
	s.writeHash()
	return nil
}

// UpdateSubLevel replaces the value at the current scope.
func (s *Session) UpdateSubLevel(v any) error {
	if !s.initialized {
		return ErrNotInitialized
	}
	return s.nav.Write(v)
}

// WriteAndDescend stores v under seg at the current scope and descends into
// it.
func (s *Session) WriteAndDescend(seg scope.Segment, v any) error {
	if !s.initialized {
		return ErrNotInitialized
	}
	if err := s.nav.WriteAndDescend(seg, v); err != nil {
		return err
	}
	s.writeHash()
	return nil
}

// Null resets the session: empty document, no editor, not initialized.
func (s *Session) Null() {
	s.editor = nil
	s.nav = scope.NewNavigator(scope.NewDocument([]any{}), nil)
	s.initialized = false
}

func (s *Session) writeHash() {
	s.loc.SetHash(s.Hash().String())
}

// Hash returns the serialized current position.
func (s *Session) Hash() scope.Hash {
	return s.nav.Hash(s.view, s.editorID)
}

// Initialized reports whether a document is loaded.
func (s *Session) Initialized() bool { return s.initialized }

// Editor returns the selected editor, or nil.
func (s *Session) Editor() *loader.Editor { return s.editor }

// EditorID returns the index of the selected editor.
func (s *Session) EditorID() int { return s.editorID }

// Navigator returns the navigator over the loaded document.
func (s *Session) Navigator() *scope.Navigator { return s.nav }

// Rows returns the current scope as raw table rows: an array gives one row
// per element, an object gives a single row, and anything else a single
// row holding it under scope.ValuesKey. Array elements that are not objects
// or arrays are wrapped the same way.
func (s *Session) Rows() []any {
	switch src := s.nav.Source().(type) {
	case []any:
		rows := make([]any, len(src))
		for i, el := range src {
			switch el.(type) {
			case map[string]any, []any:
				rows[i] = el
			default:
				rows[i] = map[string]any{scope.ValuesKey: el}
			}
		}
		return rows
	case map[string]any:
		return []any{src}
	case nil:
		return []any{}
	default:
		return []any{map[string]any{scope.ValuesKey: src}}
	}
}

// TableConfig returns a table configuration for the current scope. When base
// has columns it is used as is; otherwise one column per metadata field is
// derived, typed from the first row.
func (s *Session) TableConfig(base *table.Config) *table.Config {
	if base != nil && base.Columns.Len() > 0 {
		return base
	}
	cfg := &table.Config{}
	if base != nil {
		c := *base
		cfg = &c
	}

	rows := s.Rows()
	var first any
	if len(rows) > 0 {
		first = rows[0]
	}
	keys := s.nav.Metadata().Keys()
	if s.nav.Mode() == scope.ModeObj {
		if m, ok := s.nav.Source().(map[string]any); ok {
			keys = sortedKeys(m)
		}
	}

	cols := column.NewColumns()
	for _, k := range keys {
		get := table.Field(k)
		cols.Set(k, column.Column{Type: inferType(get(first)), Func: get})
	}
	cfg.Columns = cols
	return cfg
}

// Project applies the table configuration for the current scope.
func (s *Session) Project(base *table.Config) ([]*table.Row, *table.Config) {
	cfg := s.TableConfig(base)
	return table.Project(s.Rows(), cfg), cfg
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func inferType(v any) column.Type {
	switch v.(type) {
	case float64, int, int64:
		return column.Float
	case time.Time:
		return column.Date
	}
	return column.String
}
