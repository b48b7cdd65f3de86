// Package cache simulates a single-level, write-back, write-allocate,
// set-associative cache with LRU replacement.
package cache

import (
	"fmt"

	"github.com/sarchlab/csim/cache/internal/tagging"
	"github.com/sarchlab/csim/instrumentation/hooking"
)

// HookPosBeforeAccess marks the start of an access, before the cache state
// changes. The hook item is the Access.
var HookPosBeforeAccess = &hooking.HookPos{Name: "BeforeAccess"}

// HookPosAccess marks the completion of an access. The hook item is the
// AccessResult.
var HookPosAccess = &hooking.HookPos{Name: "Access"}

// Set is a snapshot of the lines of one set, least recently used first.
type Set = tagging.Set

// Line is a snapshot of one resident block.
type Line = tagging.Line

// Simulator drives the tag array with a stream of accesses. A Simulator is
// not safe for concurrent use.
type Simulator struct {
	hooking.HookableBase

	name   string
	config Config
	tags   tagging.TagArray
	stats  statsAggregator
}

// NewSimulator creates an empty cache with the given geometry.
func NewSimulator(name string, config Config) (*Simulator, error) {
	return newSimulator(name, config, tagging.NewLRUVictimFinder())
}

func newSimulator(
	name string,
	config Config,
	victimFinder tagging.VictimFinder,
) (*Simulator, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid cache configuration (%s): %w",
			config, err)
	}

	s := &Simulator{
		name:   name,
		config: config,
		tags: tagging.NewTagArray(
			int(config.NumSets()),
			int(config.Associativity),
			victimFinder,
		),
		stats: statsAggregator{blockSize: config.BlockSize()},
	}

	return s, nil
}

// Name returns the name of the simulator.
func (s *Simulator) Name() string {
	return s.name
}

// Config returns the geometry of the cache.
func (s *Simulator) Config() Config {
	return s.config
}

// Stats returns a snapshot of the counters.
func (s *Simulator) Stats() Statistics {
	return s.stats.snapshot()
}

// Set returns a copy of the lines in a set, least recently used first.
func (s *Simulator) Set(setIndex uint64) Set {
	return s.tags.Set(int(setIndex))
}

// ResidentLines returns the number of valid lines in the cache.
func (s *Simulator) ResidentLines() int {
	return s.tags.Occupancy()
}

// Reset empties the cache and clears the counters.
func (s *Simulator) Reset() {
	s.tags.Reset()
	s.stats.reset()
}

// Access serves one memory access and returns how it was classified.
func (s *Simulator) Access(a Access) AccessResult {
	s.InvokeHook(hooking.HookCtx{
		Domain: s,
		Pos:    HookPosBeforeAccess,
		Item:   a,
	})

	setIndex, tag := s.config.Decompose(a.Address)
	setID := int(setIndex)
	isStore := a.Kind == Store

	result := AccessResult{
		Access:   a,
		SetIndex: setIndex,
		Tag:      tag,
	}

	pos, found := s.tags.Lookup(setID, tag)

	switch {
	case found:
		result.Outcome = Hit
		s.handleHit(setID, pos, isStore)
	case !s.tags.IsFull(setID):
		result.Outcome = ColdMiss
		s.handleColdMiss(setID, tag, isStore)
	default:
		result.Outcome = CapacityMiss
		victim := s.handleCapacityMiss(setID, tag, isStore)
		result.EvictedTag = victim.Tag
		result.EvictedDirty = victim.IsDirty
	}

	s.InvokeHook(hooking.HookCtx{
		Domain: s,
		Pos:    HookPosAccess,
		Item:   result,
	})

	return result
}

func (s *Simulator) handleHit(setID, pos int, isStore bool) {
	s.stats.recordHit()

	if isStore && s.tags.MarkDirty(setID, pos) {
		s.stats.addDirtyBlock()
	}

	s.tags.Promote(setID, pos)
}

func (s *Simulator) handleColdMiss(setID int, tag uint64, isStore bool) {
	s.stats.recordMiss()

	_, didEvict := s.tags.Insert(setID, tag, isStore)
	if didEvict {
		panic(fmt.Sprintf("set %d evicted a line before it was full", setID))
	}

	if isStore {
		s.stats.addDirtyBlock()
	}
}

func (s *Simulator) handleCapacityMiss(
	setID int,
	tag uint64,
	isStore bool,
) Line {
	s.stats.recordMiss()
	s.stats.recordEviction()

	victim, didEvict := s.tags.Insert(setID, tag, isStore)
	if !didEvict {
		panic(fmt.Sprintf("set %d is full but nothing was evicted", setID))
	}

	if victim.IsDirty {
		s.stats.writeBackDirtyBlock()
	}

	if isStore {
		s.stats.addDirtyBlock()
	}

	return victim
}

// Run feeds every access of the source to the cache and returns the final
// counters. An error from the source aborts the whole run.
func (s *Simulator) Run(src AccessSource) (Statistics, error) {
	for {
		a, ok, err := src.Next()
		if err != nil {
			return Statistics{}, fmt.Errorf(
				"run aborted after %d accesses: %w",
				s.stats.snapshot().Accesses(), err)
		}

		if !ok {
			break
		}

		s.Access(a)
	}

	return s.Stats(), nil
}
