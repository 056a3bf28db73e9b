package table

import (
	"strconv"
	"strings"
)

// Field returns a row extractor that follows a dotted path through nested
// objects and arrays, e.g. "author.name" or "tags.0". Missing steps yield nil.
func Field(path string) func(row any) any {
	var steps []string
	if path != "" {
		steps = strings.Split(path, ".")
	}
	return func(row any) any {
		cur := row
		for _, step := range steps {
			switch node := cur.(type) {
			case map[string]any:
				cur = node[step]
			case *Row:
				cur = node.Value(step)
			case []any:
				i, err := strconv.Atoi(step)
				if err != nil || i < 0 || i >= len(node) {
					return nil
				}
				cur = node[i]
			default:
				return nil
			}
		}
		return cur
	}
}
