package timing

import (
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"
)

var _ = Describe("EventQueueImpl", func() {
	var (
		mockCtrl *gomock.Controller
		queue    *EventQueueImpl
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		queue = NewEventQueue()
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should pop in order", func() {
		numEvents := 100
		for i := 0; i < numEvents; i++ {
			event := NewMockEvent(mockCtrl)
			event.EXPECT().
				Time().
				Return(VTimeInSec(rand.Float64() / 1e8)).
				AnyTimes()
			queue.Push(event)
		}

		now := VTimeInSec(-1)
		for i := 0; i < numEvents; i++ {
			event := queue.Pop()
			Expect(event.Time() >= now).To(BeTrue())
			now = event.Time()
		}

		Expect(queue.Len()).To(Equal(0))
		Expect(queue.Pop()).To(BeNil())
	})

	It("should pop same-time events in insertion order", func() {
		events := make([]Event, 0)
		for i := 0; i < 20; i++ {
			evt := NewEventBase(1.5, nil)
			events = append(events, evt)
			queue.Push(evt)
		}

		for i := 0; i < 20; i++ {
			Expect(queue.Pop()).To(BeIdenticalTo(events[i]))
		}
	})

	It("should skip cancelled events", func() {
		evt1 := NewEventBase(1, nil)
		evt2 := NewEventBase(2, nil)
		evt3 := NewEventBase(3, nil)

		queue.Push(evt1)
		t2 := queue.Push(evt2)
		queue.Push(evt3)

		Expect(t2.Cancel()).To(BeTrue())
		Expect(t2.Cancelled()).To(BeTrue())
		Expect(queue.Len()).To(Equal(2))

		Expect(queue.Pop()).To(BeIdenticalTo(evt1))
		Expect(queue.Peek()).To(BeIdenticalTo(evt3))
		Expect(queue.Pop()).To(BeIdenticalTo(evt3))
		Expect(queue.Len()).To(Equal(0))
	})

	It("should ignore cancelling twice or after pop", func() {
		evt := NewEventBase(1, nil)
		ticket := queue.Push(evt)

		Expect(queue.Pop()).To(BeIdenticalTo(evt))
		Expect(ticket.Cancel()).To(BeFalse())
		Expect(queue.Len()).To(Equal(0))

		other := queue.Push(NewEventBase(2, nil))
		Expect(other.Cancel()).To(BeTrue())
		Expect(other.Cancel()).To(BeFalse())
		Expect(queue.Len()).To(Equal(0))
		Expect(queue.Peek()).To(BeNil())
	})
})
