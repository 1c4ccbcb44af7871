package timing

import (
	"github.com/sarchlab/wlansim/sim/hooking"
)

// TimeTeller can be used to get the current time.
type TimeTeller interface {
	Now() VTimeInSec
}

// EventScheduler can be used to schedule future events.
type EventScheduler interface {
	TimeTeller

	// Schedule registers an event. It fails with an *InvalidTimeError if the
	// event time is earlier than Now; the engine keeps that error and the
	// ongoing run stops with it. The returned ticket can cancel the event.
	Schedule(e Event) (*Ticket, error)
}

// An Engine is a unit that keeps the discrete event simulation run.
type Engine interface {
	hooking.Hookable
	EventScheduler

	// Run will process all the events until the queue is empty.
	Run() error

	// RunUntil processes all the events that happen before the given time.
	RunUntil(until VTimeInSec) error

	// Pause will pause the simulation until continue is called.
	Pause()

	// Continue will continue the paused simulation
	Continue()
}
