package timing

import (
	"container/heap"
	"sync"
)

// EventQueue are a queue of event ordered by the time of events. Events with
// equal time are popped in the order they were pushed.
type EventQueue interface {
	Push(evt Event) *Ticket
	Pop() Event
	Len() int
	Peek() Event
}

// A Ticket identifies a pushed event and can cancel it. A cancelled event
// stays in the heap but is never returned by Pop or Peek.
type Ticket struct {
	queue     *EventQueueImpl
	evt       Event
	cancelled bool
	popped    bool
}

// Event returns the event that the ticket refers to.
func (t *Ticket) Event() Event {
	return t.evt
}

// Cancel marks the event as inert. It returns false if the event has already
// been popped or cancelled.
func (t *Ticket) Cancel() bool {
	if t == nil {
		return false
	}

	t.queue.Lock()
	defer t.queue.Unlock()

	if t.cancelled || t.popped {
		return false
	}

	t.cancelled = true
	t.queue.live--

	return true
}

// Cancelled returns true if the event has been cancelled.
func (t *Ticket) Cancelled() bool {
	t.queue.Lock()
	defer t.queue.Unlock()

	return t.cancelled
}

// EventQueueImpl provides a thread safe event queue
type EventQueueImpl struct {
	sync.Mutex
	events  eventHeap
	nextSeq uint64
	live    int
}

// NewEventQueue creates and returns a newly created EventQueue
func NewEventQueue() *EventQueueImpl {
	q := new(EventQueueImpl)
	q.events = make([]*queuedEvent, 0)
	heap.Init(&q.events)

	return q
}

// Push adds an event to the event queue
func (q *EventQueueImpl) Push(evt Event) *Ticket {
	q.Lock()
	defer q.Unlock()

	t := &Ticket{queue: q, evt: evt}
	heap.Push(&q.events, &queuedEvent{
		time:   evt.Time(),
		seq:    q.nextSeq,
		ticket: t,
	})
	q.nextSeq++
	q.live++

	return t
}

// Pop returns the next earliest event. It returns nil if there is no live
// event.
func (q *EventQueueImpl) Pop() Event {
	q.Lock()
	defer q.Unlock()

	q.dropCancelledHead()

	if q.events.Len() == 0 {
		return nil
	}

	e := heap.Pop(&q.events).(*queuedEvent)
	e.ticket.popped = true
	q.live--

	return e.ticket.evt
}

// Len returns the number of live events in the queue
func (q *EventQueueImpl) Len() int {
	q.Lock()
	defer q.Unlock()

	return q.live
}

// Peek returns the event in front of the queue without removing it from the
// queue. It returns nil if there is no live event.
func (q *EventQueueImpl) Peek() Event {
	q.Lock()
	defer q.Unlock()

	q.dropCancelledHead()

	if q.events.Len() == 0 {
		return nil
	}

	return q.events[0].ticket.evt
}

func (q *EventQueueImpl) dropCancelledHead() {
	for q.events.Len() > 0 && q.events[0].ticket.cancelled {
		heap.Pop(&q.events)
	}
}

type queuedEvent struct {
	time   VTimeInSec
	seq    uint64
	ticket *Ticket
}

type eventHeap []*queuedEvent

// Len returns the length of the event queue
func (h eventHeap) Len() int {
	return len(h)
}

// Less determines the order between two events. Less returns true if the i-th
// event happens before the j-th event.
func (h eventHeap) Less(i, j int) bool {
	if h[i].time != h[j].time {
		return h[i].time < h[j].time
	}

	return h[i].seq < h[j].seq
}

// Swap changes the position of two events in the event queue
func (h eventHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
}

// Push adds an event into the event queue
func (h *eventHeap) Push(x any) {
	*h = append(*h, x.(*queuedEvent))
}

// Pop removes and returns the next event to happen
func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[0 : n-1]

	return e
}
