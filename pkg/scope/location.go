package scope

// Location persists the serialized scope between navigations, the way a
// browser keeps it in the URL fragment.
type Location interface {
	Hash() string
	SetHash(hash string)
}

// MemoryLocation is a Location held in memory.
type MemoryLocation struct {
	hash string
}

// NewMemoryLocation returns a location starting at hash.
func NewMemoryLocation(hash string) *MemoryLocation {
	return &MemoryLocation{hash: hash}
}

func (l *MemoryLocation) Hash() string { return l.hash }

func (l *MemoryLocation) SetHash(hash string) { l.hash = hash }
