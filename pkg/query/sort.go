package query

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sambeau/tabula/pkg/extract"
	"github.com/sambeau/tabula/pkg/table"
)

// Order is a sort direction.
type Order int

const (
	Default Order = iota // leave rows as they are
	Asc
	Desc
)

func (o Order) String() string {
	switch o {
	case Asc:
		return "asc"
	case Desc:
		return "desc"
	case Default:
		return "default"
	}
	return fmt.Sprintf("Order(%d)", int(o))
}

// ParseOrder maps "asc", "desc" and "" onto an Order.
func ParseOrder(s string) (Order, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "default", "none":
		return Default, nil
	case "asc", "ascending":
		return Asc, nil
	case "desc", "descending":
		return Desc, nil
	}
	return Default, fmt.Errorf("unknown sort order %q", s)
}

// Sort orders rows by key in place and returns them. Default returns rows
// untouched. Extracted keys that are nil or of different kinds compare
// equal, so those rows keep their relative order.
func (e *Engine) Sort(rows []*table.Row, key string, order Order) []*table.Row {
	if order == Default {
		return rows
	}
	col := e.cfg.Column(key)

	type item struct {
		row *table.Row
		key any
	}
	items := make([]item, len(rows))
	for i, r := range rows {
		var v any
		if r != nil {
			v = r.Value(key)
		}
		items[i] = item{row: r, key: extract.Key(v, col, e.renderer)}
	}

	dir := 1
	if order == Desc {
		dir = -1
	}
	sort.SliceStable(items, func(a, b int) bool {
		c, ok := compare(items[a].key, items[b].key)
		return ok && c*dir < 0
	})

	for i := range items {
		rows[i] = items[i].row
	}
	return rows
}
