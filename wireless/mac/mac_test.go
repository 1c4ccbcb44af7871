package mac

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/wlansim/sim/hooking"
	"github.com/sarchlab/wlansim/sim/timing"
	"github.com/sarchlab/wlansim/wireless"
	"github.com/sarchlab/wlansim/wireless/phy"
	"github.com/sarchlab/wlansim/wireless/propagation"
)

type fixedRandom float64

func (r fixedRandom) RandU01() float64 {
	return float64(r)
}

type testNode struct {
	phy       *phy.Phy
	mac       *Mac
	states    []State
	delivered []*wireless.Frame
	txBegins  []float64
	txKinds   []wireless.FrameKind
	drops     []wireless.DropReason
}

func (n *testNode) Receive(f *wireless.Frame) {
	n.delivered = append(n.delivered, f)
}

func (n *testNode) Func(ctx hooking.HookCtx) {
	switch ctx.Pos {
	case HookPosMacState:
		n.states = append(n.states, ctx.Item.(StateChange).To)
	case HookPosMacTxDrop:
		n.drops = append(n.drops, ctx.Detail.(wireless.DropReason))
	case phy.HookPosPhyTxBegin:
		n.txBegins = append(n.txBegins, ctx.Now)
		n.txKinds = append(n.txKinds, ctx.Item.(*wireless.Frame).Kind)
	}
}

var _ = Describe("Mac", func() {
	var (
		engine  *timing.SerialEngine
		loss    *propagation.MatrixModel
		channel *phy.Channel
		config  Config
		rng     RandomSource
	)

	newNode := func(id wireless.NodeID) *testNode {
		n := &testNode{}
		n.phy = phy.MakeBuilder().
			WithEngine(engine).
			WithChannel(channel).
			Build(id)
		n.mac = MakeBuilder().
			WithEngine(engine).
			WithRadio(n.phy).
			WithConfig(config).
			WithRandomSource(rng).
			WithReceiver(n).
			Build(id)
		n.mac.AcceptHook(n)
		n.phy.AcceptHook(n)

		return n
	}

	BeforeEach(func() {
		engine = timing.NewSerialEngine()
		loss = propagation.NewMatrixModel()
		channel = phy.NewChannel(engine, loss, propagation.ZeroDelay{})
		config = DefaultConfig()
		rng = fixedRandom(0.5)
	})

	It("should deliver a frame without RTS/CTS", func() {
		loss.SetLoss(0, 1, 50)
		a := newNode(0)
		b := newNode(1)

		f := a.mac.Enqueue(1, 1000, wireless.AcLegacy)
		Expect(engine.Run()).To(Succeed())

		Expect(b.delivered).To(HaveLen(1))
		Expect(b.delivered[0].ID).To(Equal(f.ID))
		Expect(a.states).To(Equal([]State{
			StateBackoff, StateTransmit, StateWaitAck, StateIdle,
		}))
		Expect(a.txKinds).To(Equal([]wireless.FrameKind{wireless.FrameData}))
		Expect(b.txKinds).To(Equal([]wireless.FrameKind{wireless.FrameAck}))
		Expect(a.mac.Queue().Size()).To(Equal(0))
		Expect(a.mac.ContentionWindow()).To(Equal(15))
	})

	It("should start after DIFS and the drawn slots", func() {
		loss.SetLoss(0, 1, 50)
		a := newNode(0)
		newNode(1)

		a.mac.Enqueue(1, 1000, wireless.AcLegacy)
		Expect(engine.Run()).To(Succeed())

		Expect(a.txBegins[0]).To(BeNumerically("~", 16e-6+2*9e-6+8*9e-6, 1e-12))
	})

	It("should go through WAIT_CTS when the frame is large", func() {
		config.RtsCtsThreshold = 100
		loss.SetLoss(0, 1, 50)
		a := newNode(0)
		b := newNode(1)

		a.mac.Enqueue(1, 1000, wireless.AcLegacy)
		Expect(engine.Run()).To(Succeed())

		Expect(b.delivered).To(HaveLen(1))
		Expect(a.states).To(Equal([]State{
			StateBackoff, StateWaitCts, StateTransmit, StateWaitAck, StateIdle,
		}))
		Expect(a.txKinds).To(Equal([]wireless.FrameKind{
			wireless.FrameRts, wireless.FrameData,
		}))
		Expect(b.txKinds).To(Equal([]wireless.FrameKind{
			wireless.FrameCts, wireless.FrameAck,
		}))
	})

	It("should never use RTS/CTS below the threshold", func() {
		config.RtsCtsThreshold = 2200
		loss.SetLoss(0, 1, 50)
		a := newNode(0)
		newNode(1)

		for i := 0; i < 5; i++ {
			a.mac.Enqueue(1, 2000, wireless.AcLegacy)
		}
		Expect(engine.Run()).To(Succeed())

		Expect(a.states).NotTo(ContainElement(StateWaitCts))
		Expect(a.txKinds).To(HaveLen(5))
	})

	It("should drop a frame after too many retries", func() {
		config.MaxRetries = 3
		a := newNode(0)
		newNode(1)

		a.mac.Enqueue(1, 1000, wireless.AcLegacy)
		Expect(engine.Run()).To(Succeed())

		Expect(a.txKinds).To(HaveLen(4))
		Expect(a.drops).To(Equal([]wireless.DropReason{
			wireless.DropRetryLimitExceeded,
		}))
		Expect(a.mac.ContentionWindow()).To(Equal(127))
		Expect(a.mac.State()).To(Equal(StateIdle))
	})

	It("should double the contention window up to the maximum", func() {
		config.MaxRetries = 10
		config.CwMax = 63
		a := newNode(0)
		newNode(1)

		windows := make([]int, 0)
		a.mac.AcceptHook(hooking.HookFunc(func(ctx hooking.HookCtx) {
			if ctx.Pos == HookPosMacState &&
				ctx.Item.(StateChange).To == StateBackoff {
				windows = append(windows, a.mac.ContentionWindow())
			}
		}))

		a.mac.Enqueue(1, 100, wireless.AcLegacy)
		Expect(engine.Run()).To(Succeed())

		Expect(windows[:5]).To(Equal([]int{15, 31, 63, 63, 63}))
	})

	It("should start with the minimum contention window", func() {
		a := newNode(0)

		Expect(a.mac.ContentionWindow()).To(Equal(config.CwMin))
		Expect(a.mac.State()).To(Equal(StateIdle))
	})

	It("should start a voice frame from the voice window", func() {
		loss.SetLoss(0, 1, 50)
		a := newNode(0)
		newNode(1)

		a.mac.Enqueue(1, 100, wireless.AcVoice)
		Expect(a.mac.ContentionWindow()).To(Equal(3))
	})

	It("should panic on a seed out of range", func() {
		p := phy.MakeBuilder().WithEngine(engine).WithChannel(channel).Build(0)

		Expect(func() {
			MakeBuilder().WithEngine(engine).WithRadio(p).WithSeed(0).Build(0)
		}).To(Panic())
		Expect(func() {
			MakeBuilder().WithEngine(engine).WithRadio(p).
				WithSeed(MaxSeed + 1).Build(0)
		}).To(Panic())
	})

	It("should drop frames that do not fit in the queue", func() {
		config.QueueCapacity = 1
		loss.SetLoss(0, 1, 50)
		a := newNode(0)
		newNode(1)

		a.mac.Enqueue(1, 100, wireless.AcLegacy)
		a.mac.Enqueue(1, 100, wireless.AcLegacy)
		a.mac.Enqueue(1, 100, wireless.AcLegacy)

		Expect(a.drops).To(Equal([]wireless.DropReason{
			wireless.DropQueueOverflow, wireless.DropQueueOverflow,
		}))
	})

	It("should acknowledge but not deliver duplicates", func() {
		newNode(0)
		b := newNode(1)

		f := &wireless.Frame{
			ID: 7, Src: 0, Dst: 1, Kind: wireless.FrameData,
			PayloadSize: 100, Seq: 3,
		}
		retry := *f
		retry.Retry = true

		b.mac.NotifyRxSuccess(f, -40)
		Expect(engine.Run()).To(Succeed())
		b.mac.NotifyRxSuccess(&retry, -40)
		Expect(engine.Run()).To(Succeed())

		Expect(b.delivered).To(HaveLen(1))
		Expect(b.txKinds).To(Equal([]wireless.FrameKind{
			wireless.FrameAck, wireless.FrameAck,
		}))
	})

	It("should defer for the NAV of overheard frames", func() {
		loss.SetLoss(2, 0, 50)
		c := newNode(2)
		newNode(0)

		c.mac.NotifyRxSuccess(&wireless.Frame{
			Kind: wireless.FrameCts, Src: 1, Dst: 0, Duration: 1e-3,
		}, -40)
		Expect(c.mac.NavEnd()).To(Equal(1e-3))

		c.mac.Enqueue(0, 100, wireless.AcLegacy)
		Expect(engine.Run()).To(Succeed())

		Expect(c.txBegins[0]).To(BeNumerically("~", 1e-3+34e-6+72e-6, 1e-12))
	})

	It("should freeze the backoff while the medium is busy", func() {
		loss.SetLoss(0, 2, 50)
		c := newNode(2)
		a := phy.MakeBuilder().WithEngine(engine).WithChannel(channel).Build(0)
		busy := &wireless.Frame{
			ID: 100, Src: 0, Dst: 5, Kind: wireless.FrameData,
			PayloadSize: 1000,
		}

		c.mac.Enqueue(0, 100, wireless.AcLegacy)
		_, err := engine.Schedule(timing.NewFuncEvent(60e-6,
			func(timing.VTimeInSec) error { return a.Send(busy) }))
		Expect(err).NotTo(HaveOccurred())

		Expect(engine.RunUntil(1e-3)).To(Succeed())

		busyEnd := 60e-6 + a.TxDuration(busy)
		Expect(c.txBegins[0]).To(BeNumerically("~", busyEnd+34e-6+6*9e-6, 1e-12))
	})

	It("should wait shorter for voice than for best effort", func() {
		rng = fixedRandom(0)
		loss.SetLoss(0, 1, 50)
		loss.SetLoss(2, 3, 50)
		vo := newNode(0)
		newNode(1)
		be := newNode(2)
		newNode(3)

		vo.mac.Enqueue(1, 100, wireless.AcVoice)
		be.mac.Enqueue(3, 100, wireless.AcBestEffort)
		Expect(engine.Run()).To(Succeed())

		Expect(vo.txBegins[0]).To(BeNumerically("~", 16e-6+2*9e-6, 1e-12))
		Expect(be.txBegins[0]).To(BeNumerically("~", 16e-6+3*9e-6, 1e-12))
	})

	It("should complete broadcast frames without an ACK", func() {
		loss.SetLoss(0, 1, 50)
		a := newNode(0)
		b := newNode(1)

		a.mac.Enqueue(wireless.Broadcast, 100, wireless.AcLegacy)
		Expect(engine.Run()).To(Succeed())

		Expect(b.delivered).To(HaveLen(1))
		Expect(b.txKinds).To(BeEmpty())
		Expect(a.states).To(Equal([]State{
			StateBackoff, StateTransmit, StateIdle,
		}))
	})
})

var _ = Describe("NewRandomStream", func() {
	draw := func(r RandomSource) []float64 {
		values := make([]float64, 5)
		for i := range values {
			values[i] = r.RandU01()
		}

		return values
	}

	It("should repeat for the same seed and node", func() {
		first := draw(NewRandomStream(DefaultSeed, 3))
		draw(NewRandomStream(DefaultSeed, 1))
		second := draw(NewRandomStream(DefaultSeed, 3))

		Expect(second).To(Equal(first))
	})

	It("should differ between nodes and seeds", func() {
		base := draw(NewRandomStream(DefaultSeed, 0))

		Expect(draw(NewRandomStream(DefaultSeed, 1))).NotTo(Equal(base))
		Expect(draw(NewRandomStream(777, 0))).NotTo(Equal(base))
	})
})
