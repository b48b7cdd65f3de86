// Package trace reads memory traces and records what a cache does with them.
//
// A trace has one access per line, in the format produced by valgrind's
// lackey tool:
//
//	I 0400d7d4,8
//	 L 7ff0005b8,8
//	 S 7ff0005c8,8
//	 M 0421c7f0,4
//
// Instruction fetches (I) are skipped. A modify (M) is a load followed by a
// store to the same address.
package trace

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sarchlab/csim/cache"
)

var (
	// ErrMalformedLine is returned for lines that do not follow the
	// "<op> <addr>,<size>" format.
	ErrMalformedLine = errors.New("malformed trace line")

	// ErrUnknownOperation is returned for operations other than I, L, S,
	// and M.
	ErrUnknownOperation = errors.New("unknown operation")
)

// A ParseError reports which line of a trace could not be parsed.
type ParseError struct {
	Line int
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("trace line %d %q: %v", e.Line, e.Text, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ParseLine converts one trace line into the accesses it describes. Blank
// lines and instruction fetches produce no access.
func ParseLine(text string) ([]cache.Access, error) {
	line := strings.TrimSpace(text)
	if line == "" {
		return nil, nil
	}

	op := line[0]
	if op == 'I' {
		return nil, nil
	}

	addr, size, err := parseOperand(line[1:])
	if err != nil {
		return nil, err
	}

	switch op {
	case 'L':
		return []cache.Access{
			{Kind: cache.Load, Address: addr, Size: size},
		}, nil
	case 'S':
		return []cache.Access{
			{Kind: cache.Store, Address: addr, Size: size},
		}, nil
	case 'M':
		return []cache.Access{
			{Kind: cache.Load, Address: addr, Size: size},
			{Kind: cache.Store, Address: addr, Size: size},
		}, nil
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownOperation, op)
	}
}

func parseOperand(operand string) (addr uint64, size uint32, err error) {
	addrText, sizeText, found := strings.Cut(operand, ",")
	if !found {
		return 0, 0, fmt.Errorf("%w: missing size", ErrMalformedLine)
	}

	addrText = strings.TrimSpace(addrText)
	addrText = strings.TrimPrefix(strings.TrimPrefix(addrText, "0x"), "0X")

	addr, err = strconv.ParseUint(addrText, 16, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: bad address: %w", ErrMalformedLine, err)
	}

	size64, err := strconv.ParseUint(strings.TrimSpace(sizeText), 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: bad size: %w", ErrMalformedLine, err)
	}

	return addr, uint32(size64), nil
}
