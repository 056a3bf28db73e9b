package scope

import (
	"encoding/json"
	"sort"
	"strconv"
)

// ValuesKey is the single field of a scope that is not an array of objects.
const ValuesKey = "Values"

// Editable describes how a field is edited.
type Editable struct {
	Type string `json:"type"`
}

// Field is the display configuration of one field at the current scope.
type Field struct {
	Key           string
	Rearrangeable bool
	Clickable     string // "drill" or empty
	Alias         string
	Editable      *Editable // nil when the field is read-only
}

// MarshalJSON writes clickable and editable as false when they are unset,
// the form the table display reads.
func (f Field) MarshalJSON() ([]byte, error) {
	out := struct {
		Rearrangeable bool   `json:"rearrangeable"`
		Clickable     any    `json:"clickable"`
		Alias         string `json:"alias"`
		Editable      any    `json:"editable"`
	}{
		Rearrangeable: f.Rearrangeable,
		Clickable:     false,
		Alias:         f.Alias,
		Editable:      false,
	}
	if f.Clickable != "" {
		out.Clickable = f.Clickable
	}
	if f.Editable != nil {
		out.Editable = f.Editable
	}
	return json.Marshal(out)
}

// Metadata is the ordered field configuration of a scope.
type Metadata []Field

// Keys returns the field keys in order.
func (m Metadata) Keys() []string {
	keys := make([]string, len(m))
	for i, f := range m {
		keys[i] = f.Key
	}
	return keys
}

// Get returns the field named key.
func (m Metadata) Get(key string) (Field, bool) {
	for _, f := range m {
		if f.Key == key {
			return f, true
		}
	}
	return Field{}, false
}

// MarshalJSON writes the metadata as an object keyed by field, in order.
func (m Metadata) MarshalJSON() ([]byte, error) {
	buf := []byte{'{'}
	for i, f := range m {
		if i > 0 {
			buf = append(buf, ',')
		}
		k, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(f)
		if err != nil {
			return nil, err
		}
		buf = append(buf, k...)
		buf = append(buf, ':')
		buf = append(buf, v...)
	}
	return append(buf, '}'), nil
}

// DetermineMode classifies v. An array whose first element is a non-empty
// object or array holds objects; any other array holds primitives.
func DetermineMode(v any) Mode {
	arr, ok := v.([]any)
	if !ok {
		return ModeObj
	}
	if len(arr) > 0 && len(fieldKeys(arr[0])) > 0 {
		return ModeArrObjs
	}
	return ModeArr
}

// fieldKeys returns the own keys of v: sorted property names for an object,
// indices for an array, nothing for a primitive.
func fieldKeys(v any) []string {
	switch x := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return keys
	case []any:
		keys := make([]string, len(x))
		for i := range x {
			keys[i] = strconv.Itoa(i)
		}
		return keys
	}
	return nil
}

// BuildMetadata derives the field configuration for source at node. Field
// settings come from the child scope named by each field key.
func BuildMetadata(source any, node *EditorNode, tree *EditorTree) Metadata {
	keys := []string{ValuesKey}
	if node.Mode == ModeArrObjs {
		if arr, ok := source.([]any); ok && len(arr) > 0 {
			keys = fieldKeys(arr[0])
		}
	}

	md := make(Metadata, 0, len(keys))
	for _, key := range keys {
		if IsReserved(key) {
			continue
		}
		settings := tree.Node(ChildID(node.ScopeID, Key(key)))
		f := Field{
			Key:           key,
			Rearrangeable: node.Rearrange,
			Alias:         settings.Alias,
		}
		if settings.Clickable {
			f.Clickable = "drill"
		}
		if settings.Editable {
			typ := settings.EditAs
			if typ == "" {
				typ = "text"
			}
			f.Editable = &Editable{Type: typ}
		}
		md = append(md, f)
	}
	return md
}
