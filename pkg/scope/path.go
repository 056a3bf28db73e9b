// Package scope navigates a nested JSON document by path, keeping the editor
// settings and field metadata for the current position in step with it.
package scope

import (
	"net/url"
	"strconv"
	"strings"
)

// indexPrefix marks a path segment as an array index.
const indexPrefix = "index-"

// Segment is one step of a Path: an object key or an array index.
type Segment struct {
	Key     string
	Index   int
	IsIndex bool
}

// Key returns a segment that descends into an object property.
func Key(k string) Segment { return Segment{Key: k} }

// Index returns a segment that descends into an array element.
func Index(i int) Segment { return Segment{Index: i, IsIndex: true} }

// ParseSegment decodes "index-<n>" as an array index and anything else as an
// object key.
func ParseSegment(s string) Segment {
	if rest, ok := strings.CutPrefix(s, indexPrefix); ok {
		if i, err := strconv.Atoi(rest); err == nil && i >= 0 {
			return Index(i)
		}
	}
	return Key(s)
}

func (s Segment) String() string {
	if s.IsIndex {
		return indexPrefix + strconv.Itoa(s.Index)
	}
	return s.Key
}

// escaped is the hash form of s. A key that would read back as an index has
// its leading "i" percent-encoded.
func (s Segment) escaped() string {
	if s.IsIndex {
		return s.String()
	}
	e := url.PathEscape(s.Key)
	if ParseSegment(s.Key).IsIndex {
		e = "%69" + e[1:]
	}
	return e
}

// unescapeSegment decodes one hash segment. Only the literal "index-<n>"
// form is an index; escaped text is always a key.
func unescapeSegment(raw string) Segment {
	if seg := ParseSegment(raw); seg.IsIndex {
		return seg
	}
	if dec, err := url.PathUnescape(raw); err == nil {
		raw = dec
	}
	return Key(raw)
}

// mapKey is the property a segment names when applied to an object.
func (s Segment) mapKey() string {
	if s.IsIndex {
		return strconv.Itoa(s.Index)
	}
	return s.Key
}

// arrayIndex is the element a segment names when applied to an array.
func (s Segment) arrayIndex() (int, bool) {
	if s.IsIndex {
		return s.Index, true
	}
	i, err := strconv.Atoi(s.Key)
	return i, err == nil
}

// Path is the ordered list of segments from the document root.
type Path []Segment

// ParsePath decodes raw segments, dropping empty ones.
func ParsePath(segs ...string) Path {
	p := make(Path, 0, len(segs))
	for _, s := range segs {
		if s == "" {
			continue
		}
		p = append(p, ParseSegment(s))
	}
	return p
}

// Strings returns the encoded form of each segment.
func (p Path) Strings() []string {
	out := make([]string, len(p))
	for i, s := range p {
		out[i] = s.String()
	}
	return out
}

func (p Path) String() string {
	return strings.Join(p.Strings(), "/")
}

// Child returns a copy of p with seg appended.
func (p Path) Child(seg Segment) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, seg)
}

// Parent returns p without its last segment. The root is its own parent.
func (p Path) Parent() Path {
	if len(p) == 0 {
		return Path{}
	}
	out := make(Path, len(p)-1)
	copy(out, p)
	return out
}

// Equal reports whether p and q name the same position.
func (p Path) Equal(q Path) bool {
	if len(p) != len(q) {
		return false
	}
	for i := range p {
		if p[i] != q[i] {
			return false
		}
	}
	return true
}

// Hash is the serialized form of a scope: view tag, editor id and path.
type Hash struct {
	View     string
	EditorID int
	Path     Path
}

// String serializes h as <view>/<editorId>/<seg1>/.../<segN>/ with each
// segment path-escaped. Keys spelled like an index are written "%69ndex-<n>".
func (h Hash) String() string {
	var b strings.Builder
	b.WriteString(h.View)
	b.WriteByte('/')
	b.WriteString(strconv.Itoa(h.EditorID))
	b.WriteByte('/')
	for _, s := range h.Path {
		b.WriteString(s.escaped())
		b.WriteByte('/')
	}
	return b.String()
}

// ParseHash is the inverse of Hash.String. A leading "#" is ignored, empty
// segments are dropped and a missing or non-numeric editor id is 0.
func ParseHash(s string) Hash {
	s = strings.TrimPrefix(s, "#")
	parts := strings.Split(s, "/")

	h := Hash{View: parts[0], Path: Path{}}
	if len(parts) > 1 {
		h.EditorID, _ = strconv.Atoi(parts[1])
	}
	if len(parts) > 2 {
		for _, raw := range parts[2:] {
			if raw == "" {
				continue
			}
			h.Path = append(h.Path, unescapeSegment(raw))
		}
	}
	return h
}

// AggregatedLink returns the link for the first i segments of p, the form
// breadcrumbs use: "seg1/seg2/". i is clamped to the path length.
func AggregatedLink(p Path, i int) string {
	i = max(0, min(i, len(p)))
	var b strings.Builder
	for _, s := range p[:i] {
		b.WriteString(s.escaped())
		b.WriteByte('/')
	}
	if i == 0 {
		return "/"
	}
	return b.String()
}
