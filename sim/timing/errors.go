package timing

import (
	"errors"
	"fmt"
)

// ErrInvalidTime is returned when an event is scheduled earlier than the
// current simulation time.
var ErrInvalidTime = errors.New("event scheduled in the past")

// InvalidTimeError describes an attempt to schedule an event in the past. It
// matches ErrInvalidTime with errors.Is.
type InvalidTimeError struct {
	EventType string
	EventTime VTimeInSec
	Now       VTimeInSec
}

func (e *InvalidTimeError) Error() string {
	return fmt.Sprintf("cannot schedule %s @ %.10f, now %.10f",
		e.EventType, e.EventTime, e.Now)
}

// Unwrap returns ErrInvalidTime.
func (e *InvalidTimeError) Unwrap() error {
	return ErrInvalidTime
}
