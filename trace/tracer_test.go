package trace

import (
	"bytes"
	"database/sql"
	"log"
	"path/filepath"

	"github.com/sarchlab/csim/cache"
	"github.com/sarchlab/csim/datarecording"
	"github.com/sarchlab/csim/instrumentation/hooking"

	_ "github.com/mattn/go-sqlite3"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func newTracedSimulator(hook hooking.Hook) *cache.Simulator {
	sim, err := cache.MakeBuilder().
		WithSetIndexBits(0).
		WithWayAssociativity(1).
		WithLog2BlockSize(0).
		WithHook(hook).
		Build("Cache")
	Expect(err).NotTo(HaveOccurred())

	return sim
}

var _ = Describe("LogTracer", func() {
	It("should print every access with its outcome", func() {
		buf := new(bytes.Buffer)
		sim := newTracedSimulator(NewLogTracer(log.New(buf, "", 0)))

		sim.Access(cache.Access{Kind: cache.Load, Address: 0x10, Size: 1})
		sim.Access(cache.Access{Kind: cache.Store, Address: 0x10, Size: 4})
		sim.Access(cache.Access{Kind: cache.Load, Address: 0x11, Size: 1})

		Expect(buf.String()).To(Equal(
			"L 10,1 miss\n" +
				"S 10,4 hit\n" +
				"L 11,1 miss eviction\n"))
	})

	It("should ignore other hook positions", func() {
		buf := new(bytes.Buffer)
		tracer := NewLogTracer(log.New(buf, "", 0))

		tracer.Func(hooking.HookCtx{Pos: &hooking.HookPos{Name: "Other"}})

		Expect(buf.Len()).To(BeZero())
	})
})

var _ = Describe("DBTracer", func() {
	var (
		path     string
		recorder datarecording.DataRecorder
		db       *sql.DB
	)

	BeforeEach(func() {
		var err error
		path = filepath.Join(GinkgoT().TempDir(), "trace")

		recorder, err = datarecording.New(path)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if db != nil {
			db.Close()
		}
	})

	It("should record every access", func() {
		sim := newTracedSimulator(NewDBTracer(recorder))

		sim.Access(cache.Access{Kind: cache.Store, Address: 0x10, Size: 1})
		sim.Access(cache.Access{Kind: cache.Load, Address: 0x11, Size: 1})
		Expect(recorder.Close()).To(Succeed())

		var err error
		db, err = sql.Open("sqlite3", path+".sqlite3")
		Expect(err).NotTo(HaveOccurred())

		var (
			count        int
			outcome      string
			evictedTag   string
			evictedDirty bool
		)

		err = db.QueryRow("SELECT COUNT(*) FROM csim_accesses").Scan(&count)
		Expect(err).NotTo(HaveOccurred())
		Expect(count).To(Equal(2))

		err = db.QueryRow(
			"SELECT Outcome, EvictedTag, EvictedDirty FROM csim_accesses "+
				"WHERE Seq = 2").
			Scan(&outcome, &evictedTag, &evictedDirty)
		Expect(err).NotTo(HaveOccurred())
		Expect(outcome).To(Equal("miss eviction"))
		Expect(evictedTag).To(Equal("0x10"))
		Expect(evictedDirty).To(BeTrue())
	})
})
