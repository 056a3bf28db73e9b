package column

import "fmt"

// Columns is an insertion-ordered set of columns keyed by column identifier.
type Columns struct {
	keys  []string
	byKey map[string]*Column
}

// NewColumns returns an empty column set.
func NewColumns() *Columns {
	return &Columns{byKey: make(map[string]*Column)}
}

// Set adds or replaces a column. A replaced column keeps its position.
func (cs *Columns) Set(key string, c Column) *Columns {
	if cs.byKey == nil {
		cs.byKey = make(map[string]*Column)
	}
	if _, ok := cs.byKey[key]; !ok {
		cs.keys = append(cs.keys, key)
	}
	col := c
	cs.byKey[key] = &col
	return cs
}

// Get returns the column for key, or nil.
func (cs *Columns) Get(key string) *Column {
	if cs == nil {
		return nil
	}
	return cs.byKey[key]
}

// Keys returns column identifiers in insertion order.
func (cs *Columns) Keys() []string {
	if cs == nil {
		return nil
	}
	out := make([]string, len(cs.keys))
	copy(out, cs.keys)
	return out
}

// Len returns the number of columns.
func (cs *Columns) Len() int {
	if cs == nil {
		return 0
	}
	return len(cs.keys)
}

// OutputKey returns the key a column is stored under in a projected row.
func (cs *Columns) OutputKey(key string) string {
	if c := cs.Get(key); c != nil && c.Name != "" {
		return c.Name
	}
	return key
}

// ByOutputKey finds the column whose output key is name.
func (cs *Columns) ByOutputKey(name string) *Column {
	if cs == nil {
		return nil
	}
	if c, ok := cs.byKey[name]; ok && (c.Name == "" || c.Name == name) {
		return c
	}
	for _, k := range cs.keys {
		if cs.byKey[k].Name == name {
			return cs.byKey[k]
		}
	}
	return nil
}

// Validate checks every column and reports the first failure with its key.
func (cs *Columns) Validate() error {
	for _, k := range cs.Keys() {
		if err := cs.byKey[k].Validate(); err != nil {
			return fmt.Errorf("column %q: %w", k, err)
		}
	}
	return nil
}
