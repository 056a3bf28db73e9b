package scope

// view is everything derived from a path by replaying it from the root.
type view struct {
	path     Path
	source   any
	node     *EditorNode
	metadata Metadata
}

// Navigator tracks a position inside a document. Every path change replays
// the whole path from the root, so the current view always reflects the
// latest writes. A failed change leaves the previous position in place.
type Navigator struct {
	doc  *Document
	tree *EditorTree
	cur  view
}

// NewNavigator returns a navigator positioned at the root of doc. A nil tree
// starts empty.
func NewNavigator(doc *Document, tree *EditorTree) *Navigator {
	if doc == nil {
		doc = NewDocument(nil)
	}
	if tree == nil {
		tree = NewEditorTree(nil)
	}
	n := &Navigator{doc: doc, tree: tree}
	// The root always resolves.
	n.cur, _ = n.replay(Path{})
	return n
}

// Descend moves one segment deeper.
func (n *Navigator) Descend(seg Segment) error {
	return n.move(n.cur.path.Child(seg))
}

// Ascend moves to the parent scope. At the root it does nothing.
func (n *Navigator) Ascend() error {
	return n.move(n.cur.path.Parent())
}

// Reset replaces the whole path, typically with one parsed from a hash.
func (n *Navigator) Reset(p Path) error {
	return n.move(append(Path{}, p...))
}

// Refresh replays the current path, picking up changes to the editor tree.
func (n *Navigator) Refresh() error {
	return n.move(n.cur.path)
}

// WriteAndDescend stores v under seg at the current scope, then descends
// into it.
func (n *Navigator) WriteAndDescend(seg Segment, v any) error {
	p := n.cur.path.Child(seg)
	if err := n.doc.Set(p, v); err != nil {
		return err
	}
	return n.move(p)
}

// Write replaces the value at the current scope.
func (n *Navigator) Write(v any) error {
	if err := n.doc.Set(n.cur.path, v); err != nil {
		return err
	}
	return n.move(n.cur.path)
}

func (n *Navigator) move(p Path) error {
	v, err := n.replay(p)
	if err != nil {
		return err
	}
	n.cur = v
	return nil
}

func (n *Navigator) replay(p Path) (view, error) {
	source := n.doc.Root()
	ids := make([]string, 1, len(p)+1)
	ids[0] = RootID
	resolved := make(Path, len(p))
	for i, seg := range p {
		seg = normalize(source, seg)
		next, err := child(source, seg)
		if err != nil {
			return view{}, &PathError{Path: p[:i+1], Err: err}
		}
		source = next
		resolved[i] = seg
		ids = append(ids, ChildID(ids[i], seg))
	}

	// Visited scopes join the tree only once the whole path resolved.
	var node *EditorNode
	for _, id := range ids {
		node = n.tree.Node(id)
	}
	node.Mode = DetermineMode(source)
	return view{
		path:     resolved,
		source:   source,
		node:     node,
		metadata: BuildMetadata(source, node, n.tree),
	}, nil
}

// Source returns the value at the current scope.
func (n *Navigator) Source() any { return n.cur.source }

// Editor returns the editor settings of the current scope.
func (n *Navigator) Editor() *EditorNode { return n.cur.node }

// ScopeID returns the display id of the current scope.
func (n *Navigator) ScopeID() string { return n.cur.node.ScopeID }

// Mode returns the shape of the value at the current scope.
func (n *Navigator) Mode() Mode { return n.cur.node.Mode }

// Metadata returns the field configuration of the current scope.
func (n *Navigator) Metadata() Metadata { return n.cur.metadata }

// Path returns a copy of the current path.
func (n *Navigator) Path() Path { return append(Path{}, n.cur.path...) }

// Document returns the navigated document.
func (n *Navigator) Document() *Document { return n.doc }

// Tree returns the editor tree.
func (n *Navigator) Tree() *EditorTree { return n.tree }

// Hash serializes the current position under a view tag and editor id.
func (n *Navigator) Hash(tag string, editorID int) Hash {
	return Hash{View: tag, EditorID: editorID, Path: n.Path()}
}

// PathError records the path at which a navigation failed.
type PathError struct {
	Path Path
	Err  error
}

func (e *PathError) Error() string { return e.Path.String() + ": " + e.Err.Error() }

func (e *PathError) Unwrap() error { return e.Err }
