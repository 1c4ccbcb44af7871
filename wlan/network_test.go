package wlan

import (
	"bytes"
	"log"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/wlansim/sim/hooking"
	"github.com/sarchlab/wlansim/sim/timing"
	"github.com/sarchlab/wlansim/wireless"
	"github.com/sarchlab/wlansim/wireless/mac"
	"github.com/sarchlab/wlansim/wireless/propagation"
)

type stateRecorder struct {
	states []mac.State
}

func (r *stateRecorder) Func(ctx hooking.HookCtx) {
	if ctx.Pos == mac.HookPosMacState {
		r.states = append(r.states, ctx.Item.(mac.StateChange).To)
	}
}

func losslessNetwork(macConfig mac.Config) *Network {
	loss := propagation.NewMatrixModel()
	loss.DefaultLoss = 0

	return MakeBuilder().
		WithLossModel(loss).
		WithMacConfig(macConfig).
		Build()
}

var _ = Describe("Network", func() {
	var (
		n    *Network
		a, b wireless.NodeID
		key  wireless.FlowKey
	)

	BeforeEach(func() {
		n = losslessNetwork(mac.DefaultConfig())
		a = n.CreateNode()
		b = n.CreateNode()
		key = wireless.FlowKey{Src: a, Dst: b}
	})

	It("should number nodes from zero", func() {
		Expect(a).To(Equal(wireless.NodeID(0)))
		Expect(b).To(Equal(wireless.NodeID(1)))
		Expect(n.Devices()).To(HaveLen(2))
	})

	It("should place nodes", func() {
		Expect(n.PlaceNode(b, wireless.Vector{X: 5})).To(Succeed())

		d, err := n.Device(b)
		Expect(err).NotTo(HaveOccurred())
		Expect(d.Position()).To(Equal(wireless.Vector{X: 5}))
	})

	It("should reject unknown nodes", func() {
		Expect(n.PlaceNode(7, wireless.Vector{})).To(MatchError(ErrUnknownNode))
		Expect(n.ScheduleTransmit(a, 7, 100, 1, 2, 0.1)).
			To(MatchError(ErrUnknownNode))
	})

	It("should reject invalid traffic", func() {
		Expect(n.ScheduleTransmit(a, a, 100, 1, 2, 0.1)).
			To(MatchError(ErrInvalidTraffic))
		Expect(n.ScheduleTransmit(a, b, 0, 1, 2, 0.1)).
			To(MatchError(ErrInvalidTraffic))
		Expect(n.ScheduleTransmit(a, b, 100, 2, 1, 0.1)).
			To(MatchError(ErrInvalidTraffic))
		Expect(n.ScheduleTransmit(a, b, 100, 1, 2, 0)).
			To(MatchError(ErrInvalidTraffic))
	})

	It("should reject traffic that starts in the past", func() {
		Expect(n.Run(1)).To(Succeed())

		err := n.ScheduleTransmit(a, b, 100, 0.5, 2, 0.1)

		Expect(err).To(MatchError(timing.ErrInvalidTime))
	})

	It("should deliver every packet of a lossless link", func() {
		Expect(n.ScheduleTransmit(a, b, 2000, 1, 1.095, 0.01)).To(Succeed())

		Expect(n.Run(2)).To(Succeed())

		s := n.Collector().Lookup(key)
		Expect(s.TxBytes).To(Equal(uint64(20000)))
		Expect(s.RxBytes).To(Equal(uint64(20000)))
		Expect(s.TxPackets).To(Equal(uint64(10)))
		Expect(s.RxPackets).To(Equal(uint64(10)))
		Expect(s.TotalDrops()).To(BeZero())
		Expect(n.Now()).To(Equal(2.0))
		Expect(n.Traffic()[0].Sent()).To(Equal(uint64(10)))
	})

	It("should use the traffic window as the flow duration", func() {
		Expect(n.ScheduleTransmit(a, b, 1000, 1, 3, 0.5)).To(Succeed())
		Expect(n.ScheduleTransmit(a, b, 1000, 2, 4, 0.5)).To(Succeed())

		Expect(n.Collector().Lookup(key).DurationSeconds).To(Equal(3.0))

		n.SetFlowDuration(key, 9)
		Expect(n.Collector().Lookup(key).DurationSeconds).To(Equal(9.0))
	})

	It("should return identical snapshots after a run", func() {
		Expect(n.ScheduleTransmit(a, b, 500, 1, 1.05, 0.01)).To(Succeed())
		Expect(n.Run(2)).To(Succeed())

		Expect(n.Collector().Snapshot()).To(Equal(n.Collector().Snapshot()))
	})

	It("should continue a run", func() {
		Expect(n.ScheduleTransmit(a, b, 500, 1, 3, 1)).To(Succeed())

		Expect(n.Run(1.5)).To(Succeed())
		Expect(n.Collector().Lookup(key).RxPackets).To(Equal(uint64(1)))

		Expect(n.Run(3)).To(Succeed())
		Expect(n.Collector().Lookup(key).RxPackets).To(Equal(uint64(2)))
	})

	It("should count the airtime", func() {
		Expect(n.ScheduleTransmit(a, b, 2000, 1, 1.5, 1)).To(Succeed())
		Expect(n.Run(2)).To(Succeed())

		Expect(n.Airtime().NodeAirtime(a)).To(BeNumerically("~", 324e-6, 1e-9))
		Expect(n.Airtime().NodeAirtime(b)).To(BeNumerically("~", 44e-6, 1e-9))
	})

	It("should lose packets when the path loss is too high", func() {
		loss := propagation.NewMatrixModel()
		loss.SetLoss(0, 1, 200)

		n = MakeBuilder().WithLossModel(loss).Build()
		a = n.CreateNode()
		b = n.CreateNode()

		Expect(n.ScheduleTransmit(a, b, 1000, 1, 1.5, 1)).To(Succeed())
		Expect(n.Run(3)).To(Succeed())

		s := n.Collector().Lookup(key)
		Expect(s.TxBytes).To(Equal(uint64(1000)))
		Expect(s.RxBytes).To(BeZero())
		Expect(s.Drops[wireless.DropCaptureFailure]).
			To(BeNumerically(">=", 1))
		Expect(s.Drops[wireless.DropRetryLimitExceeded]).
			To(Equal(uint64(1)))
	})

	It("should go through WAIT_CTS when RTS/CTS is enabled", func() {
		config := mac.DefaultConfig()
		config.RtsCtsThreshold = 100

		n = losslessNetwork(config)
		a = n.CreateNode()
		b = n.CreateNode()

		r := &stateRecorder{}
		d, _ := n.Device(a)
		d.Mac.AcceptHook(r)

		Expect(n.ScheduleTransmit(a, b, 1000, 1, 1.5, 1)).To(Succeed())
		Expect(n.Run(2)).To(Succeed())

		Expect(r.states).To(Equal([]mac.State{
			mac.StateBackoff, mac.StateWaitCts, mac.StateTransmit,
			mac.StateWaitAck, mac.StateIdle,
		}))
		Expect(n.Collector().Lookup(key).RxBytes).To(Equal(uint64(1000)))
	})

	It("should never wait for CTS below the threshold", func() {
		r := &stateRecorder{}
		d, _ := n.Device(a)
		d.Mac.AcceptHook(r)

		Expect(n.ScheduleTransmit(a, b, 1000, 1, 1.1, 0.01)).To(Succeed())
		Expect(n.Run(2)).To(Succeed())

		Expect(r.states).NotTo(BeEmpty())
		Expect(r.states).NotTo(ContainElement(mac.StateWaitCts))
	})

	It("should answer pings", func() {
		Expect(n.EnableEcho(b)).To(Succeed())
		Expect(n.ScheduleTransmit(a, b, 84, 1, 1.19, 0.1)).To(Succeed())

		Expect(n.Run(2)).To(Succeed())

		reply := n.Collector().Lookup(wireless.FlowKey{Src: b, Dst: a})
		Expect(n.Collector().Lookup(key).RxPackets).To(Equal(uint64(2)))
		Expect(reply.TxPackets).To(Equal(uint64(2)))
		Expect(reply.RxPackets).To(Equal(uint64(2)))
	})

	It("should log when a logger is given", func() {
		buf := new(bytes.Buffer)
		n = MakeBuilder().WithLogger(log.New(buf, "", 0)).Build()
		a = n.CreateNode()
		b = n.CreateNode()
		Expect(n.PlaceNode(b, wireless.Vector{X: 5})).To(Succeed())

		Expect(n.ScheduleTransmit(a, b, 100, 1, 1.5, 1)).To(Succeed())
		Expect(n.Run(2)).To(Succeed())

		Expect(buf.String()).To(ContainSubstring("n0, PhyTxBegin"))
		Expect(buf.String()).To(ContainSubstring("n1, PhyRxEnd"))
		Expect(buf.String()).To(ContainSubstring("MacState"))
	})
})
