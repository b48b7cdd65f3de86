package tagging

import "fmt"

// TagArray tracks which blocks are resident in each set of the cache.
type TagArray interface {
	Lookup(setID int, tag uint64) (pos int, found bool)
	IsFull(setID int) bool
	Insert(setID int, tag uint64, dirty bool) (evicted Line, didEvict bool)
	Promote(setID, pos int)
	MarkDirty(setID, pos int) (wasClean bool)
	Line(setID, pos int) Line
	Set(setID int) Set
	NumSets() int
	NumWays() int
	Occupancy() int
	Reset()
}

// NewTagArray creates a tag array with numSets empty sets of numWays lines.
func NewTagArray(
	numSets int,
	numWays int,
	victimFinder VictimFinder,
) TagArray {
	if numWays <= 0 {
		panic("a set must be able to hold at least one line")
	}

	t := &tagArrayImpl{
		numSets:      numSets,
		numWays:      numWays,
		victimFinder: victimFinder,
	}

	t.Reset()

	return t
}

// A Line is one resident block of a set.
type Line struct {
	Tag     uint64
	IsValid bool
	IsDirty bool
}

// A Set holds the lines of one set, ordered from the least recently used to
// the most recently used.
type Set struct {
	Lines []Line
}

func (s *Set) remove(pos int) Line {
	line := s.Lines[pos]
	copy(s.Lines[pos:], s.Lines[pos+1:])
	s.Lines = s.Lines[:len(s.Lines)-1]

	return line
}

type tagArrayImpl struct {
	numSets      int
	numWays      int
	victimFinder VictimFinder
	sets         []Set
	resident     int
}

func (t *tagArrayImpl) NumSets() int {
	return t.numSets
}

func (t *tagArrayImpl) NumWays() int {
	return t.numWays
}

// Occupancy returns the number of resident lines across all sets.
func (t *tagArrayImpl) Occupancy() int {
	return t.resident
}

// Lookup returns the LRU position of the line holding tag in the given set.
func (t *tagArrayImpl) Lookup(setID int, tag uint64) (int, bool) {
	set := t.mustGetSet(setID)
	for i, line := range set.Lines {
		if line.IsValid && line.Tag == tag {
			return i, true
		}
	}

	return -1, false
}

// IsFull tells if the set already holds as many lines as the associativity.
func (t *tagArrayImpl) IsFull(setID int) bool {
	return len(t.mustGetSet(setID).Lines) == t.numWays
}

// Insert places a new valid line at the most recently used end of the set. If
// the set is full, the line picked by the victim finder is removed first and
// returned.
func (t *tagArrayImpl) Insert(
	setID int,
	tag uint64,
	dirty bool,
) (evicted Line, didEvict bool) {
	set := t.mustGetSet(setID)

	if len(set.Lines) == t.numWays {
		pos := t.victimFinder.FindVictim(*set)
		t.mustBeValidPosition(set, setID, pos)

		evicted = set.remove(pos)
		didEvict = true
		t.resident--
	}

	t.mustHaveRoom(set, setID)

	if set.Lines == nil {
		set.Lines = make([]Line, 0, t.numWays)
	}

	set.Lines = append(set.Lines, Line{
		Tag:     tag,
		IsValid: true,
		IsDirty: dirty,
	})
	t.resident++

	return evicted, didEvict
}

// Promote moves the line at pos to the most recently used end. The relative
// order of the other lines does not change.
func (t *tagArrayImpl) Promote(setID, pos int) {
	set := t.mustGetSet(setID)
	t.mustBeValidPosition(set, setID, pos)

	line := set.Lines[pos]
	copy(set.Lines[pos:], set.Lines[pos+1:])
	set.Lines[len(set.Lines)-1] = line
}

// MarkDirty sets the dirty bit of the line at pos and reports whether the line
// was clean before.
func (t *tagArrayImpl) MarkDirty(setID, pos int) bool {
	set := t.mustGetSet(setID)
	t.mustBeValidPosition(set, setID, pos)

	line := &set.Lines[pos]
	if line.IsDirty {
		return false
	}

	line.IsDirty = true

	return true
}

func (t *tagArrayImpl) Line(setID, pos int) Line {
	set := t.mustGetSet(setID)
	t.mustBeValidPosition(set, setID, pos)

	return set.Lines[pos]
}

// Set returns a copy of the set, so that callers cannot alias the lines.
func (t *tagArrayImpl) Set(setID int) Set {
	set := t.mustGetSet(setID)

	return Set{Lines: append([]Line(nil), set.Lines...)}
}

// Reset drops all the lines. Line storage of a set is only allocated when the
// set receives its first line.
func (t *tagArrayImpl) Reset() {
	t.sets = make([]Set, t.numSets)
	t.resident = 0
}

func (t *tagArrayImpl) mustGetSet(setID int) *Set {
	if setID < 0 || setID >= t.numSets {
		panic(fmt.Sprintf("set %d out of range [0, %d)", setID, t.numSets))
	}

	return &t.sets[setID]
}

func (t *tagArrayImpl) mustBeValidPosition(set *Set, setID, pos int) {
	if pos < 0 || pos >= len(set.Lines) {
		panic(fmt.Sprintf("position %d out of range in set %d with %d lines",
			pos, setID, len(set.Lines)))
	}
}

func (t *tagArrayImpl) mustHaveRoom(set *Set, setID int) {
	if len(set.Lines) >= t.numWays {
		panic(fmt.Sprintf("inserting into full set %d", setID))
	}
}
