package cache

import (
	"fmt"
	"math"
)

// Statistics summarizes what happened during a run.
type Statistics struct {
	Hits           uint64 `json:"hits"`
	Misses         uint64 `json:"misses"`
	Evictions      uint64 `json:"evictions"`
	DirtyBytes     uint64 `json:"dirty_bytes"`
	DirtyEvictions uint64 `json:"dirty_evictions"`
}

// Accesses returns the number of accesses processed.
func (s Statistics) Accesses() uint64 {
	return s.Hits + s.Misses
}

// statsAggregator accumulates the counters. Byte counters move in whole
// blocks.
type statsAggregator struct {
	blockSize uint64
	stats     Statistics
}

func (a *statsAggregator) recordHit() {
	a.stats.Hits++
}

func (a *statsAggregator) recordMiss() {
	a.stats.Misses++
}

func (a *statsAggregator) recordEviction() {
	a.stats.Evictions++
}

func (a *statsAggregator) addDirtyBlock() {
	mustNotOverflow("dirty bytes", a.stats.DirtyBytes, a.blockSize)

	a.stats.DirtyBytes += a.blockSize
}

// writeBackDirtyBlock moves one block from the resident dirty bytes to the
// evicted dirty bytes.
func (a *statsAggregator) writeBackDirtyBlock() {
	if a.stats.DirtyBytes < a.blockSize {
		panic(fmt.Sprintf("dirty bytes underflow: %d resident, evicting %d",
			a.stats.DirtyBytes, a.blockSize))
	}

	mustNotOverflow("dirty evictions", a.stats.DirtyEvictions, a.blockSize)

	a.stats.DirtyBytes -= a.blockSize
	a.stats.DirtyEvictions += a.blockSize
}

func mustNotOverflow(counter string, value, delta uint64) {
	if value > math.MaxUint64-delta {
		panic(fmt.Sprintf("%s overflow: %d + %d", counter, value, delta))
	}
}

func (a *statsAggregator) snapshot() Statistics {
	return a.stats
}

func (a *statsAggregator) reset() {
	a.stats = Statistics{}
}
