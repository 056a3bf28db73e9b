package scope

import (
	"sort"
	"strconv"
)

// RootID is the scope id of the document root.
const RootID = "root"

// Mode describes the shape of the value at a scope.
type Mode string

const (
	ModeArr     Mode = "arr"     // array of primitives
	ModeArrObjs Mode = "arrObjs" // array of objects
	ModeObj     Mode = "obj"     // anything that is not an array
)

// Control keys of an editor definition. They configure the node they appear
// in and are never treated as fields.
const (
	keyClickable = "clickable"
	keyAddDelete = "addDelete"
	keyEditAs    = "editas"
	keyEditable  = "editable"
	keyShowAs    = "showas"
	keyRearrange = "rearrange"
	keyMode      = "mode"
	keyAlias     = "alias"
)

var reserved = map[string]bool{
	keyClickable: true,
	keyAddDelete: true,
	keyEditAs:    true,
	keyEditable:  true,
	keyShowAs:    true,
	keyRearrange: true,
	keyMode:      true,
}

// IsReserved reports whether key is an editor control key rather than a
// field name.
func IsReserved(key string) bool { return reserved[key] }

// EditorNode holds the editor settings for one scope.
type EditorNode struct {
	ScopeID   string `json:"scopeId"`
	Mode      Mode   `json:"mode,omitempty"`
	Rearrange bool   `json:"rearrange,omitempty"`
	AddDelete bool   `json:"addDelete,omitempty"`
	Clickable bool   `json:"clickable,omitempty"`
	Alias     string `json:"alias,omitempty"`
	Editable  bool   `json:"editable,omitempty"`
	EditAs    string `json:"editas,omitempty"`
	ShowAs    string `json:"showas,omitempty"`
}

// EditorTree maps scope ids to editor settings. Nodes are created on first
// access, so the tree only holds the scopes that were configured or visited.
type EditorTree struct {
	nodes map[string]*EditorNode
}

// NewEditorTree flattens a nested editor definition. Control keys set the
// settings of the node they appear in; every other key whose value is an
// object defines a child scope ("index-<n>" keys define array elements).
func NewEditorTree(def map[string]any) *EditorTree {
	t := &EditorTree{nodes: make(map[string]*EditorNode)}
	if def != nil {
		t.load(RootID, def)
	}
	return t
}

func (t *EditorTree) load(id string, def map[string]any) {
	n := t.Node(id)
	for k, v := range def {
		switch k {
		case keyClickable:
			n.Clickable = truthy(v)
		case keyAddDelete:
			n.AddDelete = truthy(v)
		case keyEditable:
			n.Editable = truthy(v)
		case keyRearrange:
			n.Rearrange = truthy(v)
		case keyEditAs:
			n.EditAs, _ = v.(string)
		case keyShowAs:
			n.ShowAs, _ = v.(string)
		case keyAlias:
			n.Alias, _ = v.(string)
		case keyMode:
			if s, ok := v.(string); ok {
				n.Mode = Mode(s)
			}
		default:
			if sub, ok := v.(map[string]any); ok {
				t.load(ChildID(id, ParseSegment(k)), sub)
			}
		}
	}
}

// ChildID returns the scope id reached by applying seg to the scope id.
func ChildID(id string, seg Segment) string {
	if seg.IsIndex {
		return id + "[" + strconv.Itoa(seg.Index) + "]"
	}
	return id + "." + seg.Key
}

// ID returns the scope id of p: "root", "root.x", "root.x[1]".
func ID(p Path) string {
	id := RootID
	for _, seg := range p {
		id = ChildID(id, seg)
	}
	return id
}

// Node returns the node for id, creating an empty one if needed.
func (t *EditorTree) Node(id string) *EditorNode {
	if t.nodes == nil {
		t.nodes = make(map[string]*EditorNode)
	}
	n, ok := t.nodes[id]
	if !ok {
		n = &EditorNode{ScopeID: id}
		t.nodes[id] = n
	}
	return n
}

// Lookup returns the node for id without creating it.
func (t *EditorTree) Lookup(id string) (*EditorNode, bool) {
	n, ok := t.nodes[id]
	return n, ok
}

// IDs returns every scope id in the tree, sorted.
func (t *EditorTree) IDs() []string {
	ids := make([]string, 0, len(t.nodes))
	for id := range t.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of nodes.
func (t *EditorTree) Len() int { return len(t.nodes) }

func truthy(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case string:
		return x != "" && x != "false"
	case float64:
		return x != 0
	case int:
		return x != 0
	}
	return v != nil
}
