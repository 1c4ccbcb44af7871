package monitoring

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/wlansim/wireless"
	"github.com/sarchlab/wlansim/wireless/propagation"
	"github.com/sarchlab/wlansim/wlan"
)

var _ = Describe("Monitor", func() {
	var (
		m *Monitor
		n *wlan.Network
	)

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		m.Router().ServeHTTP(rec, req)

		return rec
	}

	BeforeEach(func() {
		loss := propagation.NewMatrixModel()
		loss.SetLoss(0, 1, 50)
		loss.SetLoss(2, 1, 50)

		n = wlan.MakeBuilder().WithLossModel(loss).Build()
		for i := 0; i < 3; i++ {
			nodeID := n.CreateNode()
			Expect(n.PlaceNode(nodeID, wireless.Vector{X: float64(5 * i)})).
				To(Succeed())
		}

		m = NewMonitor()
		m.RegisterNetwork(n)
	})

	It("should release the port when stopped", func() {
		l, err := net.Listen("tcp", ":0")
		Expect(err).NotTo(HaveOccurred())
		port := l.Addr().(*net.TCPAddr).Port
		Expect(l.Close()).To(Succeed())

		url := m.WithPortNumber(port).StartServer()

		rsp, err := http.Get(url + "/api/now")
		Expect(err).NotTo(HaveOccurred())
		Expect(rsp.Body.Close()).To(Succeed())
		Expect(rsp.StatusCode).To(Equal(http.StatusOK))

		Expect(m.Stop()).To(Succeed())
		Expect(m.Stop()).To(Succeed())

		second := NewMonitor().WithPortNumber(port)
		second.RegisterNetwork(n)
		Expect(second.StartServer()).To(Equal(url))
		Expect(second.Stop()).To(Succeed())
	})

	It("should report the time", func() {
		Expect(n.ScheduleTransmit(0, 1, 100, 1, 2, 1)).To(Succeed())
		Expect(n.Run(0.5)).To(Succeed())

		rec := get("/api/now")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(Equal(`{"now":0.5000000000}`))
	})

	It("should pause and continue", func() {
		Expect(get("/api/pause").Code).To(Equal(http.StatusOK))
		Expect(get("/api/continue").Code).To(Equal(http.StatusOK))

		Expect(n.Run(1)).To(Succeed())
	})

	It("should list the flows", func() {
		m.NameFlow(wireless.FlowKey{Src: 0, Dst: 1}, "left")
		Expect(n.ScheduleTransmit(0, 1, 1000, 1, 1.045, 0.01)).To(Succeed())
		Expect(n.Run(2)).To(Succeed())

		var flows []flowRsp
		rec := get("/api/flows")
		Expect(json.Unmarshal(rec.Body.Bytes(), &flows)).To(Succeed())

		Expect(flows).To(HaveLen(1))
		Expect(flows[0].Name).To(Equal("left"))
		Expect(flows[0].TxBytes).To(Equal(uint64(5000)))
		Expect(flows[0].RxBytes).To(Equal(uint64(5000)))
		Expect(flows[0].Duration).To(BeNumerically("~", 0.045, 1e-12))
	})

	It("should list the nodes", func() {
		var nodes []nodeRsp
		rec := get("/api/nodes")
		Expect(json.Unmarshal(rec.Body.Bytes(), &nodes)).To(Succeed())

		Expect(nodes).To(HaveLen(3))
		Expect(nodes[2].Name).To(Equal("n2"))
		Expect(nodes[2].X).To(Equal(10.0))
		Expect(nodes[2].MacState).To(Equal("IDLE"))
	})

	It("should serialize a node", func() {
		rec := get("/api/node/1")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(json.Valid(rec.Body.Bytes())).To(BeTrue())
	})

	It("should return 404 for unknown nodes", func() {
		Expect(get("/api/node/9").Code).To(Equal(http.StatusNotFound))
	})

	It("should list the hidden terminals", func() {
		var pairs []hiddenRsp
		rec := get("/api/hidden")
		Expect(json.Unmarshal(rec.Body.Bytes(), &pairs)).To(Succeed())

		Expect(pairs).To(Equal([]hiddenRsp{{A: 0, B: 2, Receivers: []int{1}}}))
	})

	It("should report the airtime", func() {
		Expect(n.ScheduleTransmit(0, 1, 1000, 1, 1.5, 1)).To(Succeed())
		Expect(n.Run(2)).To(Succeed())

		var rsp airtimeRsp
		rec := get("/api/airtime")
		Expect(json.Unmarshal(rec.Body.Bytes(), &rsp)).To(Succeed())

		Expect(rsp.BusyTime).To(BeNumerically(">", 0))
		Expect(rsp.PerNode).To(HaveKey("n0"))
	})

	It("should list the queues", func() {
		rec := get("/api/buffers?sort=level&limit=2")

		Expect(rec.Code).To(Equal(http.StatusOK))

		var buffers []map[string]any
		Expect(json.Unmarshal(rec.Body.Bytes(), &buffers)).To(Succeed())
		Expect(buffers).To(HaveLen(2))
		Expect(buffers[0]["cap"]).To(Equal(400.0))
	})

	It("should reject bad queue queries", func() {
		Expect(get("/api/buffers?sort=name").Code).
			To(Equal(http.StatusBadRequest))
		Expect(get("/api/buffers?limit=x").Code).
			To(Equal(http.StatusBadRequest))
	})

	It("should select queues after the offset", func() {
		Expect(m.sortAndSelectBuffers("percent", 0, 1)).To(HaveLen(2))
		Expect(m.sortAndSelectBuffers("percent", 0, 5)).To(BeEmpty())
	})

	It("should track the simulated time", func() {
		bar := m.TrackSimulationTime(2)
		Expect(n.ScheduleTransmit(0, 1, 1000, 1, 1.5, 1)).To(Succeed())

		Expect(n.Run(2)).To(Succeed())

		Expect(bar.Total).To(Equal(uint64(2000)))
		Expect(bar.Finished).To(BeNumerically(">=", 1000))

		var bars []map[string]any
		rec := get("/api/progress")
		Expect(json.Unmarshal(rec.Body.Bytes(), &bars)).To(Succeed())
		Expect(bars).To(HaveLen(1))

		m.CompleteProgressBar(bar)
		Expect(m.progressBars).To(BeEmpty())
	})

	It("should report the resources", func() {
		var rsp resourceRsp
		rec := get("/api/resource")
		Expect(json.Unmarshal(rec.Body.Bytes(), &rsp)).To(Succeed())

		Expect(rsp.MemorySize).To(BeNumerically(">", 0))
	})
})
