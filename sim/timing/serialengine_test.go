package timing

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/wlansim/sim/hooking"
)

type labeledEvent struct {
	EventBase
	label string
}

var _ = Describe("SerialEngine", func() {
	var (
		mockCtrl *gomock.Controller
		engine   *SerialEngine
		trace    []string
		recorder HandlerFunc
	)

	schedule := func(t VTimeInSec, label string) *Ticket {
		ticket, err := engine.Schedule(labeledEvent{
			EventBase: MakeEventBase(t, recorder),
			label:     label,
		})
		Expect(err).NotTo(HaveOccurred())

		return ticket
	}

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		engine = NewSerialEngine()
		trace = nil
		recorder = func(e Event) error {
			trace = append(trace, e.(labeledEvent).label)
			return nil
		}
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should run events in time order and FIFO at equal time", func() {
		schedule(2, "c")
		schedule(1, "a")
		schedule(2, "d")
		schedule(1, "b")

		Expect(engine.Run()).To(Succeed())
		Expect(trace).To(Equal([]string{"a", "b", "c", "d"}))
		Expect(engine.Now()).To(Equal(VTimeInSec(2)))
	})

	It("should run same-time events scheduled by handlers last", func() {
		spawner := HandlerFunc(func(e Event) error {
			trace = append(trace, "spawner")
			schedule(e.Time(), "spawned")

			return nil
		})

		_, err := engine.Schedule(NewEventBase(1, spawner))
		Expect(err).NotTo(HaveOccurred())
		schedule(1, "queued")

		Expect(engine.Run()).To(Succeed())
		Expect(trace).To(Equal([]string{"spawner", "queued", "spawned"}))
	})

	It("should reject events in the past", func() {
		schedule(5, "a")
		Expect(engine.Run()).To(Succeed())

		_, err := engine.Schedule(NewEventBase(4, recorder))

		var invalid *InvalidTimeError
		Expect(errors.As(err, &invalid)).To(BeTrue())
		Expect(invalid.EventTime).To(Equal(VTimeInSec(4)))
		Expect(invalid.Now).To(Equal(VTimeInSec(5)))
		Expect(errors.Is(err, ErrInvalidTime)).To(BeTrue())
	})

	It("should abort the run when a handler schedules in the past", func() {
		bad := HandlerFunc(func(e Event) error {
			_, _ = engine.Schedule(NewEventBase(e.Time()-1, recorder))
			return nil
		})

		_, err := engine.Schedule(NewEventBase(3, bad))
		Expect(err).NotTo(HaveOccurred())
		schedule(4, "never")

		err = engine.Run()
		Expect(errors.Is(err, ErrInvalidTime)).To(BeTrue())
		Expect(trace).To(BeEmpty())
	})

	It("should stop at the given time", func() {
		schedule(1, "a")
		schedule(2, "b")
		schedule(3, "c")

		Expect(engine.RunUntil(2.5)).To(Succeed())
		Expect(trace).To(Equal([]string{"a", "b"}))
		Expect(engine.Now()).To(Equal(VTimeInSec(2.5)))
		Expect(engine.Pending()).To(Equal(1))

		Expect(engine.RunUntil(10)).To(Succeed())
		Expect(trace).To(Equal([]string{"a", "b", "c"}))
		Expect(engine.Now()).To(Equal(VTimeInSec(3)))
	})

	It("should not run events at the stop time", func() {
		schedule(2, "a")

		Expect(engine.RunUntil(2)).To(Succeed())
		Expect(trace).To(BeEmpty())
		Expect(engine.Now()).To(Equal(VTimeInSec(2)))
	})

	It("should not move time backwards on an earlier stop time", func() {
		schedule(2.9, "a")
		schedule(5, "b")

		Expect(engine.RunUntil(3)).To(Succeed())
		Expect(engine.RunUntil(1.5)).To(Succeed())
		Expect(engine.Now()).To(Equal(VTimeInSec(3)))

		_, err := engine.Schedule(NewEventBase(2, recorder))
		Expect(errors.Is(err, ErrInvalidTime)).To(BeTrue())

		Expect(engine.Run()).To(Succeed())
		Expect(trace).To(Equal([]string{"a", "b"}))
		Expect(engine.Now()).To(Equal(VTimeInSec(5)))
	})

	It("should never run cancelled events", func() {
		schedule(1, "a")
		ticket := schedule(2, "b")
		schedule(3, "c")

		ticket.Cancel()

		Expect(engine.Run()).To(Succeed())
		Expect(trace).To(Equal([]string{"a", "c"}))
	})

	It("should return handler errors", func() {
		handler := NewMockHandler(mockCtrl)
		evt := NewEventBase(1, handler)
		boom := errors.New("boom")

		handler.EXPECT().Handle(evt).Return(boom)

		_, err := engine.Schedule(evt)
		Expect(err).NotTo(HaveOccurred())

		Expect(engine.Run()).To(MatchError(boom))
	})

	It("should invoke hooks around each event", func() {
		handler := NewMockHandler(mockCtrl)
		evt := NewEventBase(1, handler)
		positions := make([]*hooking.HookPos, 0)

		engine.AcceptHook(hooking.HookFunc(func(ctx hooking.HookCtx) {
			Expect(ctx.Item).To(BeIdenticalTo(evt))
			Expect(ctx.Now).To(Equal(VTimeInSec(1)))
			positions = append(positions, ctx.Pos)
		}))

		handler.EXPECT().Handle(evt).Return(nil)

		_, err := engine.Schedule(evt)
		Expect(err).NotTo(HaveOccurred())
		Expect(engine.Run()).To(Succeed())

		Expect(positions).To(Equal([]*hooking.HookPos{
			HookPosBeforeEvent, HookPosAfterEvent,
		}))
	})
})
