package wlan

import (
	"github.com/sarchlab/wlansim/sim/timing"
	"github.com/sarchlab/wlansim/wireless"
	"github.com/sarchlab/wlansim/wireless/mac"
)

// Traffic is a constant bit rate source. Each tick hands one packet to the
// MAC of the source.
type Traffic struct {
	Src            wireless.NodeID
	Dst            wireless.NodeID
	Size           int
	Start          float64
	Stop           float64
	Interval       float64
	AccessCategory wireless.AccessCategory

	mac   *mac.Mac
	ticks *timing.TickScheduler
}

// Name returns a name for logging.
func (t *Traffic) Name() string {
	return t.Src.String() + ".Traffic"
}

// Key returns the flow the packets belong to.
func (t *Traffic) Key() wireless.FlowKey {
	return wireless.FlowKey{Src: t.Src, Dst: t.Dst}
}

// Sent returns the number of packets generated so far.
func (t *Traffic) Sent() uint64 {
	return t.ticks.NumTicks()
}

// Tick enqueues a packet.
func (t *Traffic) Tick(_ timing.VTimeInSec) error {
	t.mac.Enqueue(t.Dst, t.Size, t.AccessCategory)
	return nil
}

// Cancel stops the source.
func (t *Traffic) Cancel() {
	t.ticks.Cancel()
}

// IntervalForRate returns the interval that makes size-byte packets add up
// to the given rate in bits per second.
func IntervalForRate(size int, bitsPerSecond float64) float64 {
	return float64(size) * 8 / bitsPerSecond
}

// echoResponder answers every delivered data frame with a frame of the same
// size to the sender.
type echoResponder struct {
	mac *mac.Mac
}

func (e echoResponder) Receive(frame *wireless.Frame) {
	if frame.IsBroadcast() {
		return
	}

	e.mac.Enqueue(frame.Src, frame.PayloadSize, frame.AccessCategory)
}

// EnableEcho makes a device answer the packets it receives, the way a host
// answers pings.
func (n *Network) EnableEcho(nodeID wireless.NodeID) error {
	d, err := n.Device(nodeID)
	if err != nil {
		return err
	}

	d.Mac.SetReceiver(echoResponder{mac: d.Mac})

	return nil
}
