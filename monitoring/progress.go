package monitoring

import (
	"math"
	"sync"
	"time"

	"github.com/sarchlab/wlansim/sim/hooking"
	"github.com/sarchlab/wlansim/sim/timing"
)

// A ProgressBar is a tracker of the progress
type ProgressBar struct {
	sync.Mutex
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	StartTime  time.Time `json:"start_time"`
	Total      uint64    `json:"total"`
	Finished   uint64    `json:"finished"`
	InProgress uint64    `json:"in_progress"`
}

// IncrementInProgress adds the number of in-progress element.
func (b *ProgressBar) IncrementInProgress(amount uint64) {
	b.Lock()
	defer b.Unlock()

	b.InProgress += amount
}

// IncrementFinished add a certain amount to finished element.
func (b *ProgressBar) IncrementFinished(amount uint64) {
	b.Lock()
	defer b.Unlock()

	b.Finished += amount
}

// MoveInProgressToFinished reduces the number of in progress item by a certain
// amount and increase the finished item by the same amount.
func (b *ProgressBar) MoveInProgressToFinished(amount uint64) {
	b.Lock()
	defer b.Unlock()

	b.InProgress -= amount
	b.Finished += amount
}

// SetFinished overwrites the number of finished elements.
func (b *ProgressBar) SetFinished(amount uint64) {
	b.Lock()
	defer b.Unlock()

	b.Finished = amount
}

// simTimeTracker moves a bar along with the simulation time, in
// milliseconds.
type simTimeTracker struct {
	bar *ProgressBar
}

func (t simTimeTracker) Func(ctx hooking.HookCtx) {
	if ctx.Pos != timing.HookPosAfterEvent {
		return
	}

	t.bar.SetFinished(uint64(math.Floor(ctx.Now * 1000)))
}

// TrackSimulationTime creates a bar that shows how much of the simulated
// time, up to stop, has passed.
func (m *Monitor) TrackSimulationTime(stop float64) *ProgressBar {
	bar := m.CreateProgressBar("Simulated time (ms)",
		uint64(math.Ceil(stop*1000)))

	m.engine.AcceptHook(simTimeTracker{bar: bar})

	return bar
}
