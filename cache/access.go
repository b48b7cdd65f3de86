package cache

// AccessKind tells if an access reads or writes memory.
type AccessKind int

// The kinds of accesses.
const (
	Load AccessKind = iota
	Store
)

func (k AccessKind) String() string {
	switch k {
	case Load:
		return "L"
	case Store:
		return "S"
	default:
		return "?"
	}
}

// An Access is one memory operation of a trace. Size is only carried for
// reporting; the cache always moves whole blocks.
type Access struct {
	Kind    AccessKind
	Address uint64
	Size    uint32
}

// An AccessSource provides the accesses of a run, one at a time. Next returns
// false once the source is exhausted.
type AccessSource interface {
	Next() (Access, bool, error)
}

// SliceSource serves accesses from memory.
type SliceSource struct {
	accesses []Access
	next     int
}

// NewSliceSource creates a source that returns the given accesses in order.
func NewSliceSource(accesses ...Access) *SliceSource {
	return &SliceSource{accesses: accesses}
}

// Next returns the next access.
func (s *SliceSource) Next() (Access, bool, error) {
	if s.next >= len(s.accesses) {
		return Access{}, false, nil
	}

	a := s.accesses[s.next]
	s.next++

	return a, true, nil
}

// Outcome classifies an access.
type Outcome int

// The possible outcomes of an access.
const (
	Hit Outcome = iota
	ColdMiss
	CapacityMiss
)

func (o Outcome) String() string {
	switch o {
	case Hit:
		return "hit"
	case ColdMiss:
		return "miss"
	case CapacityMiss:
		return "miss eviction"
	default:
		return "unknown"
	}
}

// AccessResult describes how the cache handled an access.
type AccessResult struct {
	Access

	SetIndex     uint64
	Tag          uint64
	Outcome      Outcome
	EvictedTag   uint64
	EvictedDirty bool
}

// Evicted tells if a line was removed to serve the access.
func (r AccessResult) Evicted() bool {
	return r.Outcome == CapacityMiss
}
