package server

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/sambeau/tabula/pkg/loader"
)

type docKey struct {
	editor string
	draft  loader.Draft
}

// documents caches loaded editor documents and holds the edits made to
// them. Edits are never written back to the source.
type documents struct {
	loader *loader.Loader
	log    *zap.Logger

	// mu also serializes loads, since a loader runs one at a time
	mu   sync.Mutex
	docs map[docKey]any
}

func newDocuments(l *loader.Loader, log *zap.Logger) *documents {
	return &documents{loader: l, log: log, docs: make(map[docKey]any)}
}

// Load returns the cached document of ed, loading it on first use.
func (d *documents) Load(ctx context.Context, ed *loader.Editor, dr loader.Draft) (any, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	k := docKey{ed.Name, dr}
	if v, ok := d.docs[k]; ok {
		return v, nil
	}
	v, err := d.loader.Load(ctx, ed, dr)
	if err != nil {
		return nil, err
	}
	d.docs[k] = v
	d.log.Debug("document cached", zap.String("editor", ed.Name), zap.String("draft", dr.Name))
	return v, nil
}

// Store replaces the cached document of ed.
func (d *documents) Store(ed *loader.Editor, dr loader.Draft, v any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.docs[docKey{ed.Name, dr}] = v
}

// Invalidate drops every cached document of the named editor, edits
// included.
func (d *documents) Invalidate(editor string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for k := range d.docs {
		if k.editor == editor {
			delete(d.docs, k)
		}
	}
}
