// Package flowstats accumulates per-flow traffic counters.
package flowstats

import (
	"maps"
	"slices"
	"sync"

	"github.com/sarchlab/wlansim/sim/hooking"
	"github.com/sarchlab/wlansim/wireless"
	"github.com/sarchlab/wlansim/wireless/mac"
	"github.com/sarchlab/wlansim/wireless/phy"
)

// FlowStats holds the counters of one flow.
type FlowStats struct {
	FlowID    int
	Key       wireless.FlowKey
	TxBytes   uint64
	RxBytes   uint64
	TxPackets uint64
	RxPackets uint64
	Drops     map[wireless.DropReason]uint64
	DropBytes uint64
	FirstTx   float64
	LastRx    float64

	// DurationSeconds is the active traffic window set by the experiment.
	// It is zero until SetDuration is called.
	DurationSeconds float64
}

// Throughput returns the received bits per second over the flow duration.
func (s FlowStats) Throughput() float64 {
	if s.DurationSeconds <= 0 {
		return 0
	}

	return float64(s.RxBytes) * 8 / s.DurationSeconds
}

// ThroughputMbps returns the throughput in units of 2^20 bits per second.
func (s FlowStats) ThroughputMbps() float64 {
	return s.Throughput() / 1024 / 1024
}

// TotalDrops returns the number of drops of all reasons.
func (s FlowStats) TotalDrops() uint64 {
	total := uint64(0)
	for _, n := range s.Drops {
		total += n
	}

	return total
}

func (s FlowStats) clone() FlowStats {
	c := s
	c.Drops = maps.Clone(s.Drops)

	if c.Drops == nil {
		c.Drops = make(map[wireless.DropReason]uint64)
	}

	return c
}

// PhyDropCounters count the frames lost at the radio of their destination.
type PhyDropCounters struct {
	DataPackets   uint64
	RtsCtsPackets uint64
	Bytes         uint64
}

// Collector accumulates flow statistics. It can be attached as a hook to
// MACs and radios.
type Collector struct {
	lock      sync.Mutex
	flows     map[wireless.FlowKey]*FlowStats
	durations map[wireless.FlowKey]float64
	nextID    int
	phyDrops  PhyDropCounters
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{
		flows:     make(map[wireless.FlowKey]*FlowStats),
		durations: make(map[wireless.FlowKey]float64),
	}
}

func (c *Collector) flow(key wireless.FlowKey) *FlowStats {
	f, ok := c.flows[key]
	if ok {
		return f
	}

	c.nextID++
	f = &FlowStats{
		FlowID: c.nextID,
		Key:    key,
		Drops:  make(map[wireless.DropReason]uint64),
	}
	c.flows[key] = f

	return f
}

// RecordTx counts a packet sent by the source of a flow.
func (c *Collector) RecordTx(key wireless.FlowKey, bytes int, now float64) {
	c.lock.Lock()
	defer c.lock.Unlock()

	f := c.flow(key)
	if f.TxPackets == 0 {
		f.FirstTx = now
	}

	f.TxBytes += uint64(bytes)
	f.TxPackets++
}

// RecordRx counts a packet delivered to the destination of a flow.
func (c *Collector) RecordRx(key wireless.FlowKey, bytes int, now float64) {
	c.lock.Lock()
	defer c.lock.Unlock()

	f := c.flow(key)
	f.RxBytes += uint64(bytes)
	f.RxPackets++
	f.LastRx = now
}

// RecordDrop counts a lost packet of a flow.
func (c *Collector) RecordDrop(
	key wireless.FlowKey,
	reason wireless.DropReason,
	bytes int,
) {
	c.lock.Lock()
	defer c.lock.Unlock()

	f := c.flow(key)
	f.Drops[reason]++
	f.DropBytes += uint64(bytes)
}

// SetDuration sets the active traffic window of a flow, in seconds. It does
// not create the flow.
func (c *Collector) SetDuration(key wireless.FlowKey, seconds float64) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.durations[key] = seconds
}

func (c *Collector) export(f *FlowStats) FlowStats {
	s := f.clone()
	s.DurationSeconds = c.durations[f.Key]

	return s
}

// Snapshot returns a copy of the counters of all observed flows.
func (c *Collector) Snapshot() map[wireless.FlowKey]FlowStats {
	c.lock.Lock()
	defer c.lock.Unlock()

	snapshot := make(map[wireless.FlowKey]FlowStats, len(c.flows))
	for k, f := range c.flows {
		snapshot[k] = c.export(f)
	}

	return snapshot
}

// Flows returns a copy of the counters of all observed flows, ordered by
// flow ID.
func (c *Collector) Flows() []FlowStats {
	c.lock.Lock()
	defer c.lock.Unlock()

	flows := make([]FlowStats, 0, len(c.flows))
	for _, f := range c.flows {
		flows = append(flows, c.export(f))
	}

	slices.SortFunc(flows, func(a, b FlowStats) int {
		return a.FlowID - b.FlowID
	})

	return flows
}

// Lookup returns the counters of a flow. Flows that were never observed
// have zero counters.
func (c *Collector) Lookup(key wireless.FlowKey) FlowStats {
	c.lock.Lock()
	defer c.lock.Unlock()

	if f, ok := c.flows[key]; ok {
		return c.export(f)
	}

	return FlowStats{
		Key:             key,
		Drops:           make(map[wireless.DropReason]uint64),
		DurationSeconds: c.durations[key],
	}
}

// PhyDrops returns the frames lost at the radio of their destination.
func (c *Collector) PhyDrops() PhyDropCounters {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.phyDrops
}

// Func records the MAC and radio events.
func (c *Collector) Func(ctx hooking.HookCtx) {
	switch ctx.Pos {
	case mac.HookPosMacEnqueue:
		f := ctx.Item.(*wireless.Frame)
		c.RecordTx(f.FlowKey(), f.PayloadSize, ctx.Now)
	case mac.HookPosMacRxDeliver:
		f := ctx.Item.(*wireless.Frame)
		c.RecordRx(f.FlowKey(), f.PayloadSize, ctx.Now)
	case mac.HookPosMacTxDrop:
		f := ctx.Item.(*wireless.Frame)
		c.RecordDrop(f.FlowKey(), ctx.Detail.(wireless.DropReason),
			f.PayloadSize)
	case phy.HookPosPhyRxDrop:
		c.recordPhyDrop(ctx.Item.(*wireless.Frame), ctx.Detail.(phy.DropInfo))
	}
}

func (c *Collector) recordPhyDrop(f *wireless.Frame, info phy.DropInfo) {
	if f.Dst != info.Receiver {
		return
	}

	c.lock.Lock()

	c.phyDrops.Bytes += uint64(f.Size())

	switch f.Kind {
	case wireless.FrameData:
		c.phyDrops.DataPackets++
	case wireless.FrameRts, wireless.FrameCts:
		c.phyDrops.RtsCtsPackets++
	}

	c.lock.Unlock()

	if f.Kind == wireless.FrameData {
		c.RecordDrop(f.FlowKey(), info.Reason, f.PayloadSize)
	}
}
