package tagging

// A VictimFinder decides which line of a full set should be evicted.
type VictimFinder interface {
	FindVictim(set Set) (pos int)
}

// LRUVictimFinder evicts the least recently used line.
type LRUVictimFinder struct {
}

// NewLRUVictimFinder returns a newly constructed lru evictor
func NewLRUVictimFinder() *LRUVictimFinder {
	e := new(LRUVictimFinder)
	return e
}

// FindVictim returns the position of the least recently used line in a set.
func (e *LRUVictimFinder) FindVictim(set Set) int {
	// First try evicting an invalid line
	for i, line := range set.Lines {
		if !line.IsValid {
			return i
		}
	}

	return 0
}
