package trace

import (
	"bufio"
	"fmt"
	"io"

	"github.com/sarchlab/csim/cache"
)

// A Reader parses a trace lazily. It serves the accesses of one line at a
// time and cannot be rewound.
type Reader struct {
	scanner *bufio.Scanner
	line    int
	pending []cache.Access
}

// NewReader creates a Reader over r.
func NewReader(r io.Reader) *Reader {
	return &Reader{scanner: bufio.NewScanner(r)}
}

// LineNumber returns the number of lines read so far.
func (r *Reader) LineNumber() int {
	return r.line
}

// Next returns the next access. It returns false at the end of the trace.
func (r *Reader) Next() (cache.Access, bool, error) {
	for len(r.pending) == 0 {
		if !r.scanner.Scan() {
			if err := r.scanner.Err(); err != nil {
				return cache.Access{}, false,
					fmt.Errorf("reading trace after line %d: %w", r.line, err)
			}

			return cache.Access{}, false, nil
		}

		r.line++

		text := r.scanner.Text()

		accesses, err := ParseLine(text)
		if err != nil {
			return cache.Access{}, false,
				&ParseError{Line: r.line, Text: text, Err: err}
		}

		r.pending = accesses
	}

	a := r.pending[0]
	r.pending = r.pending[1:]

	return a, true, nil
}
