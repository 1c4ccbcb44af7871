package timing

import (
	"fmt"
	"log"
	"math"
	"reflect"
	"sync"

	"github.com/sarchlab/wlansim/sim/hooking"
)

// A SerialEngine is an Engine that always run events one after another.
type SerialEngine struct {
	hooking.HookableBase

	timeLock sync.RWMutex
	time     VTimeInSec
	queue    EventQueue

	isPaused     bool
	isPausedLock sync.Mutex
	pauseLock    sync.Mutex

	singleRunLock sync.Mutex

	errLock sync.Mutex
	err     error
}

// NewSerialEngine creates a SerialEngine
func NewSerialEngine() *SerialEngine {
	e := new(SerialEngine)

	e.queue = NewEventQueue()

	return e
}

// Name returns the name of the engine.
func (e *SerialEngine) Name() string {
	return "SerialEngine"
}

// Schedule register an event to be happen in the future. Scheduling an event
// earlier than the current time returns an *InvalidTimeError. The error is
// also kept by the engine and stops the ongoing run.
func (e *SerialEngine) Schedule(evt Event) (*Ticket, error) {
	now := e.readNow()
	if evt.Time() < now {
		err := &InvalidTimeError{
			EventType: reflect.TypeOf(evt).String(),
			EventTime: evt.Time(),
			Now:       now,
		}
		e.latchErr(err)

		return nil, err
	}

	return e.queue.Push(evt), nil
}

func (e *SerialEngine) latchErr(err error) {
	e.errLock.Lock()
	defer e.errLock.Unlock()

	if e.err == nil {
		e.err = err
	}
}

// Err returns the first scheduling error observed by the engine, if any.
func (e *SerialEngine) Err() error {
	e.errLock.Lock()
	defer e.errLock.Unlock()

	return e.err
}

func (e *SerialEngine) readNow() VTimeInSec {
	e.timeLock.RLock()
	t := e.time
	e.timeLock.RUnlock()

	return t
}

func (e *SerialEngine) writeNow(t VTimeInSec) {
	e.timeLock.Lock()
	e.time = t
	e.timeLock.Unlock()
}

// Run processes all the events scheduled in the SerialEngine
func (e *SerialEngine) Run() error {
	return e.RunUntil(math.Inf(1))
}

// RunUntil processes the events whose time is earlier than until. When it
// returns without error, Now is until, unless the queue ran empty before
// that, in which case Now stays at the time of the last event. Now never
// moves backwards: an until earlier than Now processes nothing.
func (e *SerialEngine) RunUntil(until VTimeInSec) error {
	e.singleRunLock.Lock()
	defer e.singleRunLock.Unlock()

	if err := e.Err(); err != nil {
		return err
	}

	for {
		next := e.queue.Peek()
		if next == nil {
			return nil
		}

		if next.Time() >= until {
			if until > e.readNow() {
				e.writeNow(until)
			}

			return nil
		}

		if err := e.runNext(); err != nil {
			return err
		}
	}
}

func (e *SerialEngine) runNext() error {
	e.pauseLock.Lock()
	defer e.pauseLock.Unlock()

	evt := e.queue.Pop()
	now := e.readNow()

	if evt.Time() < now {
		log.Panicf(
			"cannot run event in the past, evt %s @ %.10f, now %.10f",
			reflect.TypeOf(evt), evt.Time(), now,
		)
	}

	e.writeNow(evt.Time())

	hookCtx := hooking.HookCtx{
		Domain: e,
		Now:    evt.Time(),
		Pos:    HookPosBeforeEvent,
		Item:   evt,
	}
	e.InvokeHook(hookCtx)

	handler := evt.Handler()
	if err := handler.Handle(evt); err != nil {
		return fmt.Errorf("handling %s @ %.10f: %w",
			reflect.TypeOf(evt), evt.Time(), err)
	}

	hookCtx.Pos = HookPosAfterEvent
	e.InvokeHook(hookCtx)

	return e.Err()
}

// Pause prevents the SerialEngine to trigger more events.
func (e *SerialEngine) Pause() {
	e.isPausedLock.Lock()
	defer e.isPausedLock.Unlock()

	if e.isPaused {
		return
	}

	e.pauseLock.Lock()
	e.isPaused = true
}

// Continue allows the SerialEngine to trigger more events.
func (e *SerialEngine) Continue() {
	e.isPausedLock.Lock()
	defer e.isPausedLock.Unlock()

	if !e.isPaused {
		return
	}

	e.pauseLock.Unlock()
	e.isPaused = false
}

// Now returns the current time at which the engine is at.
// Specifically, the run time of the current event.
func (e *SerialEngine) Now() VTimeInSec {
	return e.readNow()
}

// Pending returns the number of live events that are waiting to run.
func (e *SerialEngine) Pending() int {
	return e.queue.Len()
}

var _ Engine = (*SerialEngine)(nil)
