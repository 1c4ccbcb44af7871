package timing

import (
	"log"
)

// TickEvent is the event that a TickScheduler uses to trigger its Ticker.
type TickEvent struct {
	EventBase

	// Index is the number of ticks that happened before this one.
	Index uint64
}

// MakeTickEvent creates a new TickEvent
func MakeTickEvent(handler Handler, time VTimeInSec, index uint64) TickEvent {
	return TickEvent{
		EventBase: MakeEventBase(time, handler),
		Index:     index,
	}
}

// A Ticker is an object that does something at fixed intervals.
type Ticker interface {
	Tick(now VTimeInSec) error
}

// TickerFunc adapts a function into a Ticker.
type TickerFunc func(now VTimeInSec) error

// Tick calls f(now).
func (f TickerFunc) Tick(now VTimeInSec) error {
	return f(now)
}

// TickScheduler triggers a Ticker at start, start+interval, start+2*interval
// and so on, as long as the tick time is earlier than stop. Tick times are
// computed from the start time so that rounding errors do not accumulate.
type TickScheduler struct {
	ticker   Ticker
	engine   EventScheduler
	start    VTimeInSec
	stop     VTimeInSec
	interval VTimeInSec

	numTicks uint64
	ticket   *Ticket
}

// NewTickScheduler creates a scheduler for periodic tick events.
func NewTickScheduler(
	ticker Ticker,
	engine EventScheduler,
	start, stop, interval VTimeInSec,
) *TickScheduler {
	if interval <= 0 {
		log.Panicf("tick interval must be positive, got %g", interval)
	}

	return &TickScheduler{
		ticker:   ticker,
		engine:   engine,
		start:    start,
		stop:     stop,
		interval: interval,
	}
}

// Start schedules the first tick.
func (t *TickScheduler) Start() error {
	return t.scheduleNext()
}

// Cancel stops the scheduler. The pending tick, if any, never runs.
func (t *TickScheduler) Cancel() {
	t.ticket.Cancel()
	t.ticket = nil
}

// NumTicks returns how many ticks have happened.
func (t *TickScheduler) NumTicks() uint64 {
	return t.numTicks
}

// Handle triggers the ticker and schedules the next tick.
func (t *TickScheduler) Handle(e Event) error {
	t.ticket = nil

	if err := t.ticker.Tick(e.Time()); err != nil {
		return err
	}

	t.numTicks++

	return t.scheduleNext()
}

func (t *TickScheduler) scheduleNext() error {
	next := t.start + float64(t.numTicks)*t.interval
	if next >= t.stop {
		return nil
	}

	ticket, err := t.engine.Schedule(MakeTickEvent(t, next, t.numTicks))
	if err != nil {
		return err
	}

	t.ticket = ticket

	return nil
}

// FuncEvent is an event that runs a function when it is handled.
type FuncEvent struct {
	EventBase
}

// NewFuncEvent creates an event that calls f at time t.
func NewFuncEvent(t VTimeInSec, f func(now VTimeInSec) error) FuncEvent {
	h := HandlerFunc(func(e Event) error {
		return f(e.Time())
	})

	return FuncEvent{EventBase: MakeEventBase(t, h)}
}
