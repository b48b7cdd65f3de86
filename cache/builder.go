package cache

import (
	"github.com/sarchlab/csim/instrumentation/hooking"
)

// Builder can build cache simulators.
type Builder struct {
	setIndexBits     uint32
	wayAssociativity uint32
	log2BlockSize    uint32
	hooks            []hooking.Hook
}

// MakeBuilder creates a new builder.
func MakeBuilder() Builder {
	return Builder{
		setIndexBits:     4,
		wayAssociativity: 1,
		log2BlockSize:    4,
	}
}

// WithSetIndexBits sets the number of address bits that select a set.
func (b Builder) WithSetIndexBits(s uint32) Builder {
	b.setIndexBits = s
	return b
}

// WithWayAssociativity sets the number of lines in each set.
func (b Builder) WithWayAssociativity(wayAssociativity uint32) Builder {
	b.wayAssociativity = wayAssociativity
	return b
}

// WithLog2BlockSize sets the number of block offset bits.
func (b Builder) WithLog2BlockSize(log2BlockSize uint32) Builder {
	b.log2BlockSize = log2BlockSize
	return b
}

// WithConfig copies the geometry from a Config.
func (b Builder) WithConfig(config Config) Builder {
	b.setIndexBits = config.SetIndexBits
	b.wayAssociativity = config.Associativity
	b.log2BlockSize = config.BlockOffsetBits

	return b
}

// WithHook registers a hook on the simulator to build.
func (b Builder) WithHook(hook hooking.Hook) Builder {
	b.hooks = append(b.hooks[:len(b.hooks):len(b.hooks)], hook)
	return b
}

// Build builds a simulator. It fails if the geometry is invalid.
func (b Builder) Build(name string) (*Simulator, error) {
	config := Config{
		SetIndexBits:    b.setIndexBits,
		Associativity:   b.wayAssociativity,
		BlockOffsetBits: b.log2BlockSize,
	}

	s, err := NewSimulator(name, config)
	if err != nil {
		return nil, err
	}

	for _, hook := range b.hooks {
		s.AcceptHook(hook)
	}

	return s, nil
}
