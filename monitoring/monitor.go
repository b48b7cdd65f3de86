// Package monitoring serves the state of a running simulation over HTTP.
package monitoring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"sync"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sarchlab/csim/cache"
	"github.com/sarchlab/csim/instrumentation/hooking"
	"github.com/sarchlab/csim/monitoring/web"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"
)

// Monitor can turn a simulation into a server and allows external monitoring
// of the simulation. Its hook holds simLock while an access changes the
// cache, so handlers read the simulator under the same lock.
type Monitor struct {
	portNumber int
	registry   *prometheus.Registry
	metrics    *Metrics

	lock         sync.Mutex
	progressBars []*ProgressBar
	accessBar    *ProgressBar

	simLock sync.Mutex
	sim     *cache.Simulator
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	registry := prometheus.NewRegistry()

	return &Monitor{
		registry: registry,
		metrics:  NewMetrics(registry),
	}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// RegisterSimulator attaches the monitor to a simulator. The simulator must
// not be reset while the monitor serves requests.
func (m *Monitor) RegisterSimulator(sim *cache.Simulator) {
	m.simLock.Lock()
	m.sim = sim
	m.simLock.Unlock()

	m.accessBar = m.CreateProgressBar(sim.Name()+" accesses", 0)

	sim.AcceptHook(m)
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := NewProgressBar(name, total)

	m.lock.Lock()
	defer m.lock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar to be shown on the webpage.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.lock.Lock()
	defer m.lock.Unlock()

	newBars := make([]*ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	m.progressBars = newBars
}

// Func keeps handlers out of the simulator while an access is in flight and
// updates the metrics when the access completes.
func (m *Monitor) Func(ctx hooking.HookCtx) {
	switch ctx.Pos {
	case cache.HookPosBeforeAccess:
		m.simLock.Lock()
	case cache.HookPosAccess:
		defer m.simLock.Unlock()

		sim := ctx.Domain.(*cache.Simulator)
		res := ctx.Item.(cache.AccessResult)
		m.metrics.observe(sim.Name(), res, sim.Stats(), sim.ResidentLines())

		if m.accessBar != nil {
			m.accessBar.IncrementFinished(1)
		}
	}
}

// Router returns the HTTP routes of the monitor.
func (m *Monitor) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/stats", m.reportStats)
	r.HandleFunc("/api/sets/{index}", m.reportSet)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)
	r.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	r.PathPrefix("/").Handler(http.FileServer(web.GetAssets()))

	return r
}

// StartServer starts the monitor as a web server and returns its URL.
func (m *Monitor) StartServer() (string, error) {
	actualPort := ":0"
	if m.portNumber != 0 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	if err != nil {
		return "", fmt.Errorf("starting monitoring server: %w", err)
	}

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)

	fmt.Fprintf(os.Stderr, "Monitoring simulation with %s\n", url)

	router := m.Router()

	go func() {
		err := http.Serve(listener, router)
		dieOnErr(err)
	}()

	return url, nil
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.lock.Lock()
	bars := make([]progressSnapshot, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		bars = append(bars, b.snapshot())
	}
	m.lock.Unlock()

	writeJSON(w, bars)
}

type statsRsp struct {
	Name          string           `json:"name"`
	Config        string           `json:"config"`
	NumSets       uint64           `json:"num_sets"`
	BlockSize     uint64           `json:"block_size"`
	Stats         cache.Statistics `json:"stats"`
	ResidentLines int              `json:"resident_lines"`
}

func (m *Monitor) reportStats(w http.ResponseWriter, _ *http.Request) {
	rsp := statsRsp{}

	m.simLock.Lock()
	if m.sim != nil {
		config := m.sim.Config()
		rsp = statsRsp{
			Name:          m.sim.Name(),
			Config:        config.String(),
			NumSets:       config.NumSets(),
			BlockSize:     config.BlockSize(),
			Stats:         m.sim.Stats(),
			ResidentLines: m.sim.ResidentLines(),
		}
	}
	m.simLock.Unlock()

	writeJSON(w, rsp)
}

func (m *Monitor) reportSet(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.ParseUint(mux.Vars(r)["index"], 10, 64)
	if err != nil {
		http.Error(w, "invalid set index", http.StatusBadRequest)
		return
	}

	m.simLock.Lock()
	found := m.sim != nil && index < m.sim.Config().NumSets()

	var set cache.Set
	if found {
		set = m.sim.Set(index)
	}
	m.simLock.Unlock()

	if !found {
		http.Error(w, "set not found", http.StatusNotFound)
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(&set)
	serializer.SetMaxDepth(3)
	err = serializer.Serialize(w)

	dieOnErr(err)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	pid := os.Getpid()
	process, err := process.NewProcess(int32(pid))
	dieOnErr(err)

	cpuPercent, err := process.CPUPercent()
	dieOnErr(err)

	memorySize, err := process.MemoryInfo()
	dieOnErr(err)

	rsp := resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
	}

	writeJSON(w, rsp)
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	time.Sleep(time.Second)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	writeJSON(w, prof)
}

func writeJSON(w http.ResponseWriter, v any) {
	bytes, err := json.Marshal(v)
	dieOnErr(err)

	w.Header().Set("Content-Type", "application/json")
	_, err = w.Write(bytes)
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
