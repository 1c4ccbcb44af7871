// Package monitoring turns a running simulation into an HTTP server that can
// be inspected and paused from outside.
package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"

	"github.com/sarchlab/wlansim/sim/id"
	"github.com/sarchlab/wlansim/sim/timing"
	"github.com/sarchlab/wlansim/wireless"
	"github.com/sarchlab/wlansim/wlan"
)

// Monitor can turn a simulation into a server and allows external monitoring
// controlling of the simulation.
type Monitor struct {
	engine     timing.Engine
	network    *wlan.Network
	flowNames  map[wireless.FlowKey]string
	portNumber int
	ids        id.IDGenerator

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar

	server *http.Server
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	return &Monitor{
		flowNames: make(map[wireless.FlowKey]string),
		ids:       id.NewIDGenerator(),
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

// RegisterNetwork registers the network and its engine.
func (m *Monitor) RegisterNetwork(n *wlan.Network) {
	m.network = n
	m.engine = n.Engine()
}

// NameFlow sets the label of a flow.
func (m *Monitor) NameFlow(key wireless.FlowKey, name string) {
	m.flowNames[key] = name
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := &ProgressBar{
		ID:        m.ids.Generate(),
		Name:      name,
		StartTime: time.Now(),
		Total:     total,
	}

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar to be shown on the webpage.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	newBars := make([]*ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	m.progressBars = newBars
}

// Router returns the handler of the monitoring API.
func (m *Monitor) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/pause", m.pauseEngine)
	r.HandleFunc("/api/continue", m.continueEngine)
	r.HandleFunc("/api/now", m.now)
	r.HandleFunc("/api/flows", m.listFlows)
	r.HandleFunc("/api/airtime", m.reportAirtime)
	r.HandleFunc("/api/nodes", m.listNodes)
	r.HandleFunc("/api/node/{id:[0-9]+}", m.listNodeDetails)
	r.HandleFunc("/api/field/{json}", m.listFieldValue)
	r.HandleFunc("/api/hidden", m.listHiddenTerminals)
	r.HandleFunc("/api/buffers", m.listBuffers)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)

	return r
}

// StartServer starts the monitor as a web server and returns its address.
func (m *Monitor) StartServer() string {
	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	dieOnErr(err)

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)
	fmt.Fprintf(os.Stderr, "Monitoring simulation with %s\n", url)

	m.server = &http.Server{
		Handler:           m.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func(server *http.Server) {
		err := server.Serve(listener)
		if errors.Is(err, http.ErrServerClosed) {
			return
		}

		dieOnErr(err)
	}(m.server)

	return url
}

// Stop shuts the server down and releases its port. Stopping a monitor that
// is not serving does nothing.
func (m *Monitor) Stop() error {
	if m.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := m.server.Shutdown(ctx)
	m.server = nil

	return err
}

// OpenInBrowser opens the API root of a started monitor.
func OpenInBrowser(url string) error {
	return browser.OpenURL(url + "/api/nodes")
}

func (m *Monitor) pauseEngine(w http.ResponseWriter, _ *http.Request) {
	m.engine.Pause()
	_, err := w.Write(nil)
	dieOnErr(err)
}

func (m *Monitor) continueEngine(w http.ResponseWriter, _ *http.Request) {
	m.engine.Continue()
	_, err := w.Write(nil)
	dieOnErr(err)
}

func (m *Monitor) now(w http.ResponseWriter, _ *http.Request) {
	now := m.engine.Now()
	fmt.Fprintf(w, "{\"now\":%.10f}", now)
}

type flowRsp struct {
	ID             int               `json:"id"`
	Name           string            `json:"name,omitempty"`
	Src            int               `json:"src"`
	Dst            int               `json:"dst"`
	TxBytes        uint64            `json:"tx_bytes"`
	RxBytes        uint64            `json:"rx_bytes"`
	TxPackets      uint64            `json:"tx_packets"`
	RxPackets      uint64            `json:"rx_packets"`
	Drops          map[string]uint64 `json:"drops"`
	Duration       float64           `json:"duration"`
	ThroughputMbps float64           `json:"throughput_mbps"`
}

func (m *Monitor) listFlows(w http.ResponseWriter, _ *http.Request) {
	flows := m.network.Collector().Flows()

	rsp := make([]flowRsp, 0, len(flows))
	for _, f := range flows {
		drops := make(map[string]uint64, len(f.Drops))
		for reason, n := range f.Drops {
			drops[reason.String()] = n
		}

		rsp = append(rsp, flowRsp{
			ID:             f.FlowID,
			Name:           m.flowNames[f.Key],
			Src:            int(f.Key.Src),
			Dst:            int(f.Key.Dst),
			TxBytes:        f.TxBytes,
			RxBytes:        f.RxBytes,
			TxPackets:      f.TxPackets,
			RxPackets:      f.RxPackets,
			Drops:          drops,
			Duration:       f.DurationSeconds,
			ThroughputMbps: f.ThroughputMbps(),
		})
	}

	writeJSON(w, rsp)
}

type airtimeRsp struct {
	BusyTime    float64            `json:"busy_time"`
	Utilization float64            `json:"utilization"`
	PerNode     map[string]float64 `json:"per_node"`
}

func (m *Monitor) reportAirtime(w http.ResponseWriter, _ *http.Request) {
	a := m.network.Airtime()

	rsp := airtimeRsp{
		BusyTime:    a.BusyTime(),
		Utilization: a.Utilization(m.engine.Now()),
		PerNode:     make(map[string]float64),
	}

	for _, d := range m.network.Devices() {
		rsp.PerNode[d.ID.String()] = a.NodeAirtime(d.ID)
	}

	writeJSON(w, rsp)
}

type nodeRsp struct {
	ID         int     `json:"id"`
	Name       string  `json:"name"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	PhyState   string  `json:"phy_state"`
	MacState   string  `json:"mac_state"`
	QueueLevel int     `json:"queue_level"`
	Cw         int     `json:"cw"`
}

func (m *Monitor) listNodes(w http.ResponseWriter, _ *http.Request) {
	devices := m.network.Devices()

	rsp := make([]nodeRsp, 0, len(devices))
	for _, d := range devices {
		pos := d.Position()
		rsp = append(rsp, nodeRsp{
			ID:         int(d.ID),
			Name:       d.ID.String(),
			X:          pos.X,
			Y:          pos.Y,
			Z:          pos.Z,
			PhyState:   d.Phy.State().String(),
			MacState:   d.Mac.State().String(),
			QueueLevel: d.Mac.Queue().Size(),
			Cw:         d.Mac.ContentionWindow(),
		})
	}

	writeJSON(w, rsp)
}

func (m *Monitor) listNodeDetails(w http.ResponseWriter, r *http.Request) {
	d := m.findDeviceOr404(w, mux.Vars(r)["id"])
	if d == nil {
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(d)
	serializer.SetMaxDepth(1)
	err := serializer.Serialize(w)

	dieOnErr(err)
}

type fieldReq struct {
	Node      string `json:"node,omitempty"`
	FieldName string `json:"field_name,omitempty"`
}

func (m *Monitor) listFieldValue(w http.ResponseWriter, r *http.Request) {
	jsonString := mux.Vars(r)["json"]
	req := fieldReq{}

	err := json.Unmarshal([]byte(jsonString), &req)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error: %s", err)

		return
	}

	d := m.findDeviceOr404(w, req.Node)
	if d == nil {
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(d)
	serializer.SetMaxDepth(1)

	err = serializer.SetEntryPoint(strings.Split(req.FieldName, "."))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error: %s", err)

		return
	}

	err = serializer.Serialize(w)
	dieOnErr(err)
}

type hiddenRsp struct {
	A         int   `json:"a"`
	B         int   `json:"b"`
	Receivers []int `json:"receivers"`
}

func (m *Monitor) listHiddenTerminals(w http.ResponseWriter, _ *http.Request) {
	pairs := m.network.HiddenTerminals()

	rsp := make([]hiddenRsp, 0, len(pairs))
	for _, p := range pairs {
		receivers := make([]int, 0, len(p.Receivers))
		for _, r := range p.Receivers {
			receivers = append(receivers, int(r))
		}

		rsp = append(rsp, hiddenRsp{
			A:         int(p.A),
			B:         int(p.B),
			Receivers: receivers,
		})
	}

	writeJSON(w, rsp)
}

func (m *Monitor) findDeviceOr404(
	w http.ResponseWriter,
	idString string,
) *wlan.Device {
	nodeID, err := strconv.Atoi(idString)
	if err == nil {
		d, err := m.network.Device(wireless.NodeID(nodeID))
		if err == nil {
			return d
		}
	}

	w.WriteHeader(http.StatusNotFound)
	_, err = w.Write([]byte("Node not found"))
	dieOnErr(err)

	return nil
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	writeJSON(w, m.progressBars)
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
	dieOnErr(err)

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
