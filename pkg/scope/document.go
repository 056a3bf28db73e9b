package scope

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
)

var (
	// ErrScopeNotFound is returned when a path names a key or index that
	// does not exist.
	ErrScopeNotFound = errors.New("scope not found")
	// ErrNotContainer is returned when a path descends through a value that
	// is neither an object nor an array.
	ErrNotContainer = errors.New("scope is not an object or array")
)

// Document is the owned JSON value a navigator scopes into. Objects are
// map[string]any and arrays are []any, as encoding/json decodes them.
//
// Set never mutates a container in place: every object and array on the
// written path is copied and the document's root is replaced. Values handed
// out by Get before a Set are unaffected by it.
type Document struct {
	root any
}

// NewDocument takes ownership of v.
func NewDocument(v any) *Document {
	return &Document{root: v}
}

// ParseDocument decodes a JSON document.
func ParseDocument(data []byte) (*Document, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("parsing document: %w", err)
	}
	return NewDocument(v), nil
}

// Root returns the whole document.
func (d *Document) Root() any { return d.root }

func (d *Document) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.root)
}

// Get returns the value at p.
func (d *Document) Get(p Path) (any, error) {
	cur := d.root
	for i, seg := range p {
		next, err := child(cur, seg)
		if err != nil {
			return nil, &PathError{Path: p[:i+1], Err: err}
		}
		cur = next
	}
	return cur, nil
}

// Set writes v at p. The final segment may name a new object key, or the
// index one past the end of an array to append. Every earlier segment must
// exist.
func (d *Document) Set(p Path, v any) error {
	root, err := setAt(d.root, p, 0, v)
	if err != nil {
		return err
	}
	d.root = root
	return nil
}

// normalize rewrites seg into the form node's kind addresses: an index on an
// object becomes its decimal key, a numeric key on an array becomes an index.
func normalize(node any, seg Segment) Segment {
	switch node.(type) {
	case map[string]any:
		if seg.IsIndex {
			return Key(seg.mapKey())
		}
	case []any:
		if i, ok := seg.arrayIndex(); ok && !seg.IsIndex {
			return Index(i)
		}
	}
	return seg
}

func child(node any, seg Segment) (any, error) {
	switch x := node.(type) {
	case map[string]any:
		v, ok := x[seg.mapKey()]
		if !ok {
			return nil, ErrScopeNotFound
		}
		return v, nil
	case []any:
		i, ok := seg.arrayIndex()
		if !ok || i < 0 || i >= len(x) {
			return nil, ErrScopeNotFound
		}
		return x[i], nil
	}
	return nil, ErrNotContainer
}

func setAt(node any, p Path, depth int, v any) (any, error) {
	if depth == len(p) {
		return v, nil
	}
	seg := p[depth]
	last := depth == len(p)-1
	fail := func(err error) (any, error) {
		return nil, &PathError{Path: p[:depth+1], Err: err}
	}

	switch x := node.(type) {
	case map[string]any:
		key := seg.mapKey()
		cur, ok := x[key]
		if !ok && !last {
			return fail(ErrScopeNotFound)
		}
		next, err := setAt(cur, p, depth+1, v)
		if err != nil {
			return nil, err
		}
		out := maps.Clone(x)
		out[key] = next
		return out, nil

	case []any:
		i, ok := seg.arrayIndex()
		switch {
		case !ok || i < 0 || i > len(x):
			return fail(ErrScopeNotFound)
		case i == len(x) && !last:
			return fail(ErrScopeNotFound)
		}
		var cur any
		if i < len(x) {
			cur = x[i]
		}
		next, err := setAt(cur, p, depth+1, v)
		if err != nil {
			return nil, err
		}
		out := slices.Clone(x)
		if i == len(x) {
			out = append(out, next)
		} else {
			out[i] = next
		}
		return out, nil
	}
	return fail(ErrNotContainer)
}
