package trace

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/sarchlab/csim/cache"
	"github.com/sarchlab/csim/instrumentation/hooking"
)

var csvHeader = []string{
	"Seq", "Kind", "Address", "Size", "SetIndex", "Tag",
	"Outcome", "EvictedTag", "EvictedDirty",
}

// CSVTracer is a hook that writes every access as a CSV row. Rows are
// buffered; call Flush at the end of the run.
type CSVTracer struct {
	writer     *csv.Writer
	seq        uint64
	buffered   int
	bufferSize int
}

// NewCSVTracer creates a CSVTracer and writes the header row.
func NewCSVTracer(w io.Writer) (*CSVTracer, error) {
	t := &CSVTracer{
		writer:     csv.NewWriter(w),
		bufferSize: 1000,
	}

	if err := t.writer.Write(csvHeader); err != nil {
		return nil, err
	}

	return t, nil
}

// Func writes the access.
func (t *CSVTracer) Func(ctx hooking.HookCtx) {
	if ctx.Pos != cache.HookPosAccess {
		return
	}

	res := ctx.Item.(cache.AccessResult)
	t.seq++

	row := []string{
		strconv.FormatUint(t.seq, 10),
		res.Kind.String(),
		hex(res.Address),
		strconv.FormatUint(uint64(res.Size), 10),
		strconv.FormatUint(res.SetIndex, 10),
		hex(res.Tag),
		res.Outcome.String(),
		"",
		"",
	}

	if res.Evicted() {
		row[7] = hex(res.EvictedTag)
		row[8] = strconv.FormatBool(res.EvictedDirty)
	}

	// Write errors are sticky and reported by Flush.
	_ = t.writer.Write(row)

	t.buffered++
	if t.buffered >= t.bufferSize {
		t.writer.Flush()
		t.buffered = 0
	}
}

// Flush writes the buffered rows and reports any write error.
func (t *CSVTracer) Flush() error {
	t.writer.Flush()
	t.buffered = 0

	return t.writer.Error()
}
