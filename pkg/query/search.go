package query

import (
	"sort"
	"time"

	"github.com/sahilm/fuzzy"

	"github.com/sambeau/tabula/pkg/coerce"
	"github.com/sambeau/tabula/pkg/column"
	"github.com/sambeau/tabula/pkg/table"
)

// AllKeys as the only search key expands to every key of the first row.
const AllKeys = "all"

// Index is a fuzzy search index over a row set.
type Index struct {
	rows []*table.Row
	keys []string
}

// NewIndex builds an index over rows searching the given keys.
func NewIndex(rows []*table.Row, keys []string) *Index {
	if len(keys) == 1 && keys[0] == AllKeys {
		keys = nil
		if len(rows) > 0 && rows[0] != nil {
			keys = rows[0].Keys()
		}
	}
	return &Index{rows: rows, keys: keys}
}

// Keys returns the keys the index searches.
func (ix *Index) Keys() []string { return ix.keys }

// Search returns the rows matching term, best match first. ok is false when
// term is empty: no search filtering applies and the caller should keep its
// unfiltered rows. An empty result with ok true means nothing matched.
func (ix *Index) Search(term string) (rows []*table.Row, ok bool) {
	if term == "" {
		return nil, false
	}

	best := make(map[int]int)
	for _, key := range ix.keys {
		for _, m := range fuzzy.FindFrom(term, fieldSource{rows: ix.rows, key: key}) {
			if s, seen := best[m.Index]; !seen || m.Score > s {
				best[m.Index] = m.Score
			}
		}
	}

	hits := make([]int, 0, len(best))
	for i := range best {
		hits = append(hits, i)
	}
	sort.Slice(hits, func(a, b int) bool {
		if best[hits[a]] != best[hits[b]] {
			return best[hits[a]] > best[hits[b]]
		}
		return hits[a] < hits[b]
	})

	rows = make([]*table.Row, len(hits))
	for i, idx := range hits {
		rows[i] = ix.rows[idx]
	}
	return rows, true
}

// fieldSource exposes one column of a row set to the fuzzy matcher.
type fieldSource struct {
	rows []*table.Row
	key  string
}

func (s fieldSource) Len() int { return len(s.rows) }

func (s fieldSource) String(i int) string {
	if s.rows[i] == nil {
		return ""
	}
	return searchText(s.rows[i].Value(s.key))
}

func searchText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case time.Time:
		return x.Format(time.RFC3339)
	}
	return coerce.To(column.String, v, nil).(string)
}

// SearchableKeys drops date columns from keys. The "all" key is returned
// unchanged.
func SearchableKeys(keys []string, cfg *table.Config) []string {
	if len(keys) == 1 && keys[0] == AllKeys {
		return keys
	}
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if col := cfg.Column(k); col != nil && col.Type == column.Date {
			continue
		}
		out = append(out, k)
	}
	return out
}
