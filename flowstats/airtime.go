package flowstats

import (
	"slices"
	"sync"

	"github.com/sarchlab/wlansim/sim/hooking"
	"github.com/sarchlab/wlansim/wireless"
	"github.com/sarchlab/wlansim/wireless/phy"
)

type interval struct {
	start, end float64
}

// AirtimeTracer measures how long the medium carries at least one
// transmission. Overlapping transmissions are counted once.
type AirtimeTracer struct {
	lock     sync.Mutex
	open     []interval
	busyTime float64
	perNode  map[wireless.NodeID]float64
}

// NewAirtimeTracer creates a tracer. Attach it to the radios.
func NewAirtimeTracer() *AirtimeTracer {
	return &AirtimeTracer{
		perNode: make(map[wireless.NodeID]float64),
	}
}

// Func records the transmissions that start.
func (t *AirtimeTracer) Func(ctx hooking.HookCtx) {
	if ctx.Pos != phy.HookPosPhyTxBegin {
		return
	}

	info := ctx.Detail.(phy.TxInfo)

	t.lock.Lock()
	defer t.lock.Unlock()

	t.perNode[info.Sender] += info.Duration
	t.collapse(ctx.Now)
	t.open = append(t.open, interval{
		start: ctx.Now,
		end:   ctx.Now + info.Duration,
	})
}

// collapse folds the recorded intervals into the busy time once none of them
// reaches beyond now.
func (t *AirtimeTracer) collapse(now float64) {
	for _, i := range t.open {
		if i.end > now {
			return
		}
	}

	t.busyTime += unionLength(t.open)
	t.open = t.open[:0]
}

// BusyTime returns the time, in seconds, that the medium has been used.
func (t *AirtimeTracer) BusyTime() float64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.busyTime + unionLength(t.open)
}

// NodeAirtime returns the total transmission time of a device.
func (t *AirtimeTracer) NodeAirtime(id wireless.NodeID) float64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.perNode[id]
}

// Utilization returns the fraction of the given duration that the medium was
// used.
func (t *AirtimeTracer) Utilization(duration float64) float64 {
	if duration <= 0 {
		return 0
	}

	return t.BusyTime() / duration
}

func unionLength(intervals []interval) float64 {
	if len(intervals) == 0 {
		return 0
	}

	sorted := slices.Clone(intervals)
	slices.SortFunc(sorted, func(a, b interval) int {
		switch {
		case a.start < b.start:
			return -1
		case a.start > b.start:
			return 1
		}

		return 0
	})

	total := 0.0
	cur := sorted[0]

	for _, i := range sorted[1:] {
		if i.start <= cur.end {
			cur.end = max(cur.end, i.end)
			continue
		}

		total += cur.end - cur.start
		cur = i
	}

	return total + cur.end - cur.start
}
