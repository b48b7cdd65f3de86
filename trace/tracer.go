package trace

import (
	"fmt"
	"log"

	"github.com/sarchlab/csim/cache"
	"github.com/sarchlab/csim/datarecording"
	"github.com/sarchlab/csim/instrumentation/hooking"
)

// AccessTableName is the table that the database tracer writes to.
const AccessTableName = "csim_accesses"

// accessEntry represents an access in the database. Addresses and tags are
// stored as hex strings, as SQLite integers are signed.
type accessEntry struct {
	Seq          uint64
	Kind         string
	Address      string
	Size         uint32
	SetIndex     uint64
	Tag          string
	Outcome      string
	EvictedTag   string
	EvictedDirty bool
}

// A logTracer is a hook that prints every access, one per line.
type logTracer struct {
	logger *log.Logger
}

// NewLogTracer creates a hook that prints each access followed by its
// outcome, such as "L 10,1 miss eviction".
func NewLogTracer(logger *log.Logger) hooking.Hook {
	return &logTracer{logger: logger}
}

func (t *logTracer) Func(ctx hooking.HookCtx) {
	if ctx.Pos != cache.HookPosAccess {
		return
	}

	res := ctx.Item.(cache.AccessResult)

	t.logger.Printf("%s %x,%d %s\n",
		res.Kind, res.Address, res.Size, res.Outcome)
}

// A dbTracer is a hook that records every access into a database using the
// data recorder.
type dbTracer struct {
	dataRecorder datarecording.DataRecorder
	seq          uint64
}

// NewDBTracer creates a hook that writes every access into the
// csim_accesses table.
func NewDBTracer(dataRecorder datarecording.DataRecorder) hooking.Hook {
	t := &dbTracer{
		dataRecorder: dataRecorder,
	}

	t.dataRecorder.CreateTable(AccessTableName, accessEntry{})

	return t
}

func (t *dbTracer) Func(ctx hooking.HookCtx) {
	if ctx.Pos != cache.HookPosAccess {
		return
	}

	res := ctx.Item.(cache.AccessResult)
	t.seq++

	entry := accessEntry{
		Seq:      t.seq,
		Kind:     res.Kind.String(),
		Address:  hex(res.Address),
		Size:     res.Size,
		SetIndex: res.SetIndex,
		Tag:      hex(res.Tag),
		Outcome:  res.Outcome.String(),
	}

	if res.Evicted() {
		entry.EvictedTag = hex(res.EvictedTag)
		entry.EvictedDirty = res.EvictedDirty
	}

	t.dataRecorder.InsertData(AccessTableName, entry)
}

func hex(v uint64) string {
	return fmt.Sprintf("0x%x", v)
}
