// Package wlan assembles radios, MACs and a channel into a network that can
// be driven by an experiment.
package wlan

import (
	"errors"
	"fmt"
	"slices"

	"github.com/sarchlab/wlansim/flowstats"
	"github.com/sarchlab/wlansim/sim/hooking"
	"github.com/sarchlab/wlansim/sim/id"
	"github.com/sarchlab/wlansim/sim/timing"
	"github.com/sarchlab/wlansim/wireless"
	"github.com/sarchlab/wlansim/wireless/mac"
	"github.com/sarchlab/wlansim/wireless/phy"
)

// ErrUnknownNode is returned when a node ID does not belong to the network.
var ErrUnknownNode = errors.New("unknown node")

// ErrInvalidTraffic is returned when a traffic source cannot be scheduled.
var ErrInvalidTraffic = errors.New("invalid traffic")

// A Device is a node of the network.
type Device struct {
	ID  wireless.NodeID
	Phy *phy.Phy
	Mac *mac.Mac
}

// Position returns where the device is.
func (d *Device) Position() wireless.Vector {
	return d.Phy.Position()
}

// Network owns the engine, the channel and the devices of an experiment.
type Network struct {
	engine    *timing.SerialEngine
	channel   *phy.Channel
	phyConfig phy.Config
	macConfig mac.Config
	seed      uint64
	frameIDs  *id.Counter

	devices   []*Device
	hooks     []hooking.Hook
	collector *flowstats.Collector
	airtime   *flowstats.AirtimeTracer
	traffic   []*Traffic
	windows   map[wireless.FlowKey]window
}

type window struct {
	start, stop float64
}

// NewNetwork creates a network with the default configuration.
func NewNetwork() *Network {
	return MakeBuilder().Build()
}

// Engine returns the engine that drives the network.
func (n *Network) Engine() *timing.SerialEngine {
	return n.engine
}

// Channel returns the medium shared by the devices.
func (n *Network) Channel() *phy.Channel {
	return n.channel
}

// Collector returns the flow statistics of the network.
func (n *Network) Collector() *flowstats.Collector {
	return n.collector
}

// Airtime returns the tracer of medium usage.
func (n *Network) Airtime() *flowstats.AirtimeTracer {
	return n.airtime
}

// Devices returns the devices in creation order.
func (n *Network) Devices() []*Device {
	return slices.Clone(n.devices)
}

// Traffic returns the scheduled traffic sources.
func (n *Network) Traffic() []*Traffic {
	return slices.Clone(n.traffic)
}

// Device returns the device with the given ID.
func (n *Network) Device(nodeID wireless.NodeID) (*Device, error) {
	if nodeID < 0 || int(nodeID) >= len(n.devices) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNode, nodeID)
	}

	return n.devices[nodeID], nil
}

// AcceptHook attaches a hook to the radio and the MAC of every device,
// including devices created later.
func (n *Network) AcceptHook(h hooking.Hook) {
	n.hooks = append(n.hooks, h)

	for _, d := range n.devices {
		d.Phy.AcceptHook(h)
		d.Mac.AcceptHook(h)
	}
}

// CreateNode adds a device at the origin and returns its ID. IDs start at 0.
func (n *Network) CreateNode() wireless.NodeID {
	nodeID := wireless.NodeID(len(n.devices))

	p := phy.MakeBuilder().
		WithEngine(n.engine).
		WithConfig(n.phyConfig).
		WithChannel(n.channel).
		Build(nodeID)

	m := mac.MakeBuilder().
		WithEngine(n.engine).
		WithRadio(p).
		WithConfig(n.macConfig).
		WithFrameIDs(n.frameIDs).
		WithSeed(n.seed).
		Build(nodeID)

	for _, h := range n.hooks {
		p.AcceptHook(h)
		m.AcceptHook(h)
	}

	n.devices = append(n.devices, &Device{ID: nodeID, Phy: p, Mac: m})

	return nodeID
}

// PlaceNode moves a device.
func (n *Network) PlaceNode(nodeID wireless.NodeID, v wireless.Vector) error {
	d, err := n.Device(nodeID)
	if err != nil {
		return err
	}

	d.Phy.SetPosition(v)

	return nil
}

// ScheduleTransmit makes src send size-byte packets to dst every interval
// seconds, from start until before stop.
func (n *Network) ScheduleTransmit(
	src, dst wireless.NodeID,
	size int,
	start, stop, interval float64,
) error {
	return n.ScheduleTransmitWithCategory(
		src, dst, size, start, stop, interval, wireless.AcLegacy)
}

// ScheduleTransmitWithCategory is ScheduleTransmit for frames of an access
// category.
func (n *Network) ScheduleTransmitWithCategory(
	src, dst wireless.NodeID,
	size int,
	start, stop, interval float64,
	ac wireless.AccessCategory,
) error {
	sender, err := n.Device(src)
	if err != nil {
		return fmt.Errorf("source: %w", err)
	}

	if dst != wireless.Broadcast {
		if _, err := n.Device(dst); err != nil {
			return fmt.Errorf("destination: %w", err)
		}
	}

	if err := n.trafficMustBeValid(src, dst, size, start, stop, interval); err != nil {
		return err
	}

	t := &Traffic{
		Src:            src,
		Dst:            dst,
		Size:           size,
		Start:          start,
		Stop:           stop,
		Interval:       interval,
		AccessCategory: ac,
		mac:            sender.Mac,
	}
	t.ticks = timing.NewTickScheduler(t, n.engine, start, stop, interval)

	if err := t.ticks.Start(); err != nil {
		return err
	}

	n.traffic = append(n.traffic, t)
	n.extendWindow(wireless.FlowKey{Src: src, Dst: dst}, start, stop)

	return nil
}

func (n *Network) trafficMustBeValid(
	src, dst wireless.NodeID,
	size int,
	start, stop, interval float64,
) error {
	switch {
	case src == dst:
		return fmt.Errorf("%w: %s sends to itself", ErrInvalidTraffic, src)
	case size <= 0:
		return fmt.Errorf("%w: size %d", ErrInvalidTraffic, size)
	case interval <= 0:
		return fmt.Errorf("%w: interval %g", ErrInvalidTraffic, interval)
	case stop <= start:
		return fmt.Errorf("%w: stop %g is not after start %g",
			ErrInvalidTraffic, stop, start)
	case start < n.engine.Now():
		return &timing.InvalidTimeError{
			EventType: "traffic start",
			EventTime: start,
			Now:       n.engine.Now(),
		}
	}

	return nil
}

// extendWindow sets the duration of a flow to the span of all the traffic
// scheduled on it.
func (n *Network) extendWindow(key wireless.FlowKey, start, stop float64) {
	w, ok := n.windows[key]
	if ok {
		w.start = min(w.start, start)
		w.stop = max(w.stop, stop)
	} else {
		w = window{start: start, stop: stop}
	}

	n.windows[key] = w
	n.collector.SetDuration(key, w.stop-w.start)
}

// SetFlowDuration overrides the duration that throughput is computed over.
func (n *Network) SetFlowDuration(key wireless.FlowKey, seconds float64) {
	n.collector.SetDuration(key, seconds)
}

// Run processes events until the given time. It can be called again with a
// later time to continue the simulation.
func (n *Network) Run(stop float64) error {
	return n.engine.RunUntil(stop)
}

// Now returns the current simulation time.
func (n *Network) Now() float64 {
	return n.engine.Now()
}
