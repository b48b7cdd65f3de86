package cache

import (
	"errors"
	"fmt"
)

const addressWidth = 64

// MaxSetIndexBits bounds the number of sets, as the set array is allocated
// before the first access.
const MaxSetIndexBits = 24

var (
	// ErrZeroAssociativity is returned for caches whose sets cannot hold a
	// line.
	ErrZeroAssociativity = errors.New("associativity must be at least 1")

	// ErrGeometryTooWide is returned when the index and offset bits do not
	// fit in an address.
	ErrGeometryTooWide = errors.New("index and offset bits exceed the address width")

	// ErrTooManySets is returned when the set array would be too large to
	// allocate.
	ErrTooManySets = errors.New("too many set index bits")
)

// Config describes the geometry of a cache. A Config is a value and is never
// modified by the simulator.
type Config struct {
	SetIndexBits    uint32
	Associativity   uint32
	BlockOffsetBits uint32
}

// Validate reports the first problem that makes the geometry unusable.
func (c Config) Validate() error {
	if c.Associativity == 0 {
		return ErrZeroAssociativity
	}

	if c.BlockOffsetBits >= addressWidth ||
		uint64(c.SetIndexBits)+uint64(c.BlockOffsetBits) > addressWidth {
		return fmt.Errorf("%w: s=%d, b=%d",
			ErrGeometryTooWide, c.SetIndexBits, c.BlockOffsetBits)
	}

	if c.SetIndexBits > MaxSetIndexBits {
		return fmt.Errorf("%w: s=%d, at most %d is supported",
			ErrTooManySets, c.SetIndexBits, MaxSetIndexBits)
	}

	return nil
}

// NumSets returns the number of sets, 2^s.
func (c Config) NumSets() uint64 {
	return 1 << c.SetIndexBits
}

// BlockSize returns the number of bytes in a block, 2^b.
func (c Config) BlockSize() uint64 {
	return 1 << c.BlockOffsetBits
}

// TotalSize returns the maximum number of bytes can be stored in the cache.
func (c Config) TotalSize() uint64 {
	return c.NumSets() * uint64(c.Associativity) * c.BlockSize()
}

// Decompose splits an address into the set it maps to and its tag. The block
// offset is dropped. High address bits beyond the tag are lost in the shift,
// as they would be in hardware.
func (c Config) Decompose(addr uint64) (setIndex, tag uint64) {
	blockAddr := addr >> c.BlockOffsetBits
	setIndex = blockAddr & (c.NumSets() - 1)
	tag = blockAddr >> c.SetIndexBits

	return setIndex, tag
}

// String formats the geometry the way the command line takes it.
func (c Config) String() string {
	return fmt.Sprintf("s=%d E=%d b=%d",
		c.SetIndexBits, c.Associativity, c.BlockOffsetBits)
}
