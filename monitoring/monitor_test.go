package monitoring

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sarchlab/csim/cache"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Monitor", func() {
	var (
		m      *Monitor
		sim    *cache.Simulator
		server *httptest.Server
	)

	get := func(path string) (int, []byte) {
		rsp, err := http.Get(server.URL + path)
		Expect(err).NotTo(HaveOccurred())
		defer rsp.Body.Close()

		body, err := io.ReadAll(rsp.Body)
		Expect(err).NotTo(HaveOccurred())

		return rsp.StatusCode, body
	}

	BeforeEach(func() {
		var err error
		sim, err = cache.NewSimulator("Cache", cache.Config{
			SetIndexBits:    1,
			Associativity:   1,
			BlockOffsetBits: 2,
		})
		Expect(err).NotTo(HaveOccurred())

		m = NewMonitor()
		m.RegisterSimulator(sim)
		server = httptest.NewServer(m.Router())
	})

	AfterEach(func() {
		server.Close()
	})

	It("should report the statistics after each access", func() {
		sim.Access(cache.Access{Kind: cache.Store, Address: 0x0})
		sim.Access(cache.Access{Kind: cache.Load, Address: 0x4})
		sim.Access(cache.Access{Kind: cache.Load, Address: 0x0})

		status, body := get("/api/stats")
		Expect(status).To(Equal(http.StatusOK))

		rsp := statsRsp{}
		Expect(json.Unmarshal(body, &rsp)).To(Succeed())
		Expect(rsp.Name).To(Equal("Cache"))
		Expect(rsp.Config).To(Equal("s=1 E=1 b=2"))
		Expect(rsp.NumSets).To(Equal(uint64(2)))
		Expect(rsp.Stats).To(Equal(sim.Stats()))
		Expect(rsp.ResidentLines).To(Equal(2))
	})

	It("should count accesses in the progress bar", func() {
		sim.Access(cache.Access{Kind: cache.Load, Address: 0x0})
		sim.Access(cache.Access{Kind: cache.Load, Address: 0x0})

		status, body := get("/api/progress")
		Expect(status).To(Equal(http.StatusOK))

		bars := []progressSnapshot{}
		Expect(json.Unmarshal(body, &bars)).To(Succeed())
		Expect(bars).To(HaveLen(1))
		Expect(bars[0].Name).To(Equal("Cache accesses"))
		Expect(bars[0].Finished).To(Equal(uint64(2)))

		fields := []map[string]any{}
		Expect(json.Unmarshal(body, &fields)).To(Succeed())
		Expect(fields[0]).To(HaveKey("finished"))
		Expect(fields[0]).NotTo(HaveKey("in_progress"))
	})

	It("should remove completed progress bars", func() {
		bar := m.CreateProgressBar("extra", 10)
		m.CompleteProgressBar(bar)

		_, body := get("/api/progress")

		bars := []progressSnapshot{}
		Expect(json.Unmarshal(body, &bars)).To(Succeed())
		Expect(bars).To(HaveLen(1))
	})

	It("should count the bytes read through a tracked reader", func() {
		bar := m.CreateProgressBar("trace bytes", 11)

		content, err := io.ReadAll(
			bar.TrackReader(strings.NewReader("L 0,1\nS 4,1")))

		Expect(err).NotTo(HaveOccurred())
		Expect(content).To(HaveLen(11))
		Expect(bar.snapshot().Finished).To(Equal(uint64(11)))
	})

	It("should serialize a set", func() {
		sim.Access(cache.Access{Kind: cache.Store, Address: 0x4})

		status, body := get("/api/sets/1")

		Expect(status).To(Equal(http.StatusOK))
		Expect(body).NotTo(BeEmpty())
	})

	It("should serve sets filled before the monitor was attached", func() {
		other, err := cache.NewSimulator("Other", cache.Config{
			SetIndexBits:    1,
			Associativity:   1,
			BlockOffsetBits: 2,
		})
		Expect(err).NotTo(HaveOccurred())
		other.Access(cache.Access{Kind: cache.Store, Address: 0x1c})

		otherMonitor := NewMonitor()
		otherMonitor.RegisterSimulator(other)
		otherServer := httptest.NewServer(otherMonitor.Router())
		defer otherServer.Close()

		readSet := func(index string) []byte {
			rsp, err := http.Get(otherServer.URL + "/api/sets/" + index)
			Expect(err).NotTo(HaveOccurred())
			defer rsp.Body.Close()
			Expect(rsp.StatusCode).To(Equal(http.StatusOK))

			body, err := io.ReadAll(rsp.Body)
			Expect(err).NotTo(HaveOccurred())

			return body
		}

		Expect(readSet("1")).NotTo(Equal(readSet("0")))
	})

	It("should serve requests while the simulation runs", func() {
		const numAccesses = 2000
		done := make(chan struct{})

		go func() {
			defer GinkgoRecover()
			defer close(done)

			for i := uint64(0); i < numAccesses; i++ {
				sim.Access(cache.Access{Kind: cache.Store, Address: i << 2})
			}
		}()

	poll:
		for {
			select {
			case <-done:
				break poll
			default:
				status, _ := get("/api/sets/0")
				Expect(status).To(Equal(http.StatusOK))

				status, _ = get("/api/stats")
				Expect(status).To(Equal(http.StatusOK))
			}
		}

		_, body := get("/api/stats")
		rsp := statsRsp{}
		Expect(json.Unmarshal(body, &rsp)).To(Succeed())
		Expect(rsp.Stats.Accesses()).To(Equal(uint64(numAccesses)))
	})

	It("should reject sets outside the cache", func() {
		status, _ := get("/api/sets/2")
		Expect(status).To(Equal(http.StatusNotFound))

		status, _ = get("/api/sets/x")
		Expect(status).To(Equal(http.StatusBadRequest))
	})

	It("should export prometheus metrics", func() {
		sim.Access(cache.Access{Kind: cache.Store, Address: 0x0})
		sim.Access(cache.Access{Kind: cache.Load, Address: 0x4})

		status, body := get("/metrics")

		Expect(status).To(Equal(http.StatusOK))
		Expect(string(body)).To(ContainSubstring(
			`csim_cache_accesses_total{cache="Cache",kind="S",outcome="miss"} 1`))
		Expect(string(body)).To(ContainSubstring("csim_cache_dirty_bytes 4"))
	})

	It("should count dirty write-backs", func() {
		sim.Access(cache.Access{Kind: cache.Store, Address: 0x0})
		sim.Access(cache.Access{Kind: cache.Store, Address: 0x8})
		sim.Access(cache.Access{Kind: cache.Load, Address: 0x4})

		Expect(testutil.ToFloat64(m.metrics.Evictions)).To(Equal(1.0))
		Expect(testutil.ToFloat64(m.metrics.DirtyEvictions)).To(Equal(4.0))
		Expect(testutil.ToFloat64(m.metrics.DirtyBytes)).To(Equal(4.0))
		Expect(testutil.ToFloat64(m.metrics.ResidentLines)).To(Equal(2.0))
		Expect(testutil.ToFloat64(
			m.metrics.Accesses.WithLabelValues("Cache", "S", "miss eviction"),
		)).To(Equal(1.0))
	})

	It("should report resource usage", func() {
		status, body := get("/api/resource")

		Expect(status).To(Equal(http.StatusOK))

		rsp := resourceRsp{}
		Expect(json.Unmarshal(body, &rsp)).To(Succeed())
		Expect(rsp.MemorySize).To(BeNumerically(">", 0))
	})

	It("should serve the dashboard", func() {
		status, body := get("/")

		Expect(status).To(Equal(http.StatusOK))
		Expect(string(body)).To(ContainSubstring("<title>csim monitor</title>"))
	})

	It("should fall back to a random port for reserved ports", func() {
		Expect(NewMonitor().WithPortNumber(80).portNumber).To(BeZero())
		Expect(NewMonitor().WithPortNumber(8080).portNumber).To(Equal(8080))
	})
})
