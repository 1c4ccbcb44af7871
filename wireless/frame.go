// Package wireless defines the types shared by the radio, the medium access
// control and the statistics packages.
package wireless

import (
	"fmt"
	"math"
)

// NodeID identifies a device in a network.
type NodeID int

// Broadcast is the destination of frames that every device should accept.
const Broadcast NodeID = -1

func (id NodeID) String() string {
	if id == Broadcast {
		return "broadcast"
	}

	return fmt.Sprintf("n%d", int(id))
}

// FrameKind tells what a frame is for.
type FrameKind int

// The frame kinds that the MAC exchanges.
const (
	FrameData FrameKind = iota
	FrameRts
	FrameCts
	FrameAck
)

var frameKindNames = map[FrameKind]string{
	FrameData: "DATA",
	FrameRts:  "RTS",
	FrameCts:  "CTS",
	FrameAck:  "ACK",
}

func (k FrameKind) String() string {
	if name, ok := frameKindNames[k]; ok {
		return name
	}

	return fmt.Sprintf("FrameKind(%d)", int(k))
}

// IsControl returns true for RTS, CTS and ACK frames.
func (k FrameKind) IsControl() bool {
	return k != FrameData
}

// MAC overhead in bytes, header plus FCS, per frame kind.
const (
	DataOverhead = 28
	RtsSize      = 20
	CtsSize      = 14
	AckSize      = 14
)

// A Frame is the unit that the MAC hands to the radio.
type Frame struct {
	ID          uint64
	Src         NodeID
	Dst         NodeID
	Kind        FrameKind
	PayloadSize int
	Seq         uint64
	Retry       bool

	// Duration is the time, in seconds, that the medium stays reserved after
	// the end of this frame. Devices that overhear the frame defer for it.
	Duration float64

	AccessCategory AccessCategory
	CreatedAt      float64
}

// Size returns the number of bytes that go on the air.
func (f *Frame) Size() int {
	switch f.Kind {
	case FrameRts:
		return RtsSize
	case FrameCts:
		return CtsSize
	case FrameAck:
		return AckSize
	default:
		return f.PayloadSize + DataOverhead
	}
}

// IsBroadcast returns true if the frame is not addressed to a single device.
func (f *Frame) IsBroadcast() bool {
	return f.Dst == Broadcast
}

// FlowKey returns the flow the frame belongs to.
func (f *Frame) FlowKey() FlowKey {
	return FlowKey{Src: f.Src, Dst: f.Dst}
}

func (f *Frame) String() string {
	return fmt.Sprintf("%s#%d %s->%s seq=%d size=%d",
		f.Kind, f.ID, f.Src, f.Dst, f.Seq, f.Size())
}

// FlowKey identifies a flow by its end points.
type FlowKey struct {
	Src NodeID
	Dst NodeID
}

func (k FlowKey) String() string {
	return fmt.Sprintf("%s -> %s", k.Src, k.Dst)
}

// DropReason tells why a frame was lost.
type DropReason int

// Drop reasons reported by the radio and the MAC.
const (
	DropCaptureFailure DropReason = iota
	DropCollision
	DropHalfDuplex
	DropRetryLimitExceeded
	DropQueueOverflow
)

var dropReasonNames = map[DropReason]string{
	DropCaptureFailure:     "CaptureFailure",
	DropCollision:          "Collision",
	DropHalfDuplex:         "HalfDuplex",
	DropRetryLimitExceeded: "RetryLimitExceeded",
	DropQueueOverflow:      "QueueOverflow",
}

// DropReasons lists all the drop reasons in a fixed order.
var DropReasons = []DropReason{
	DropCaptureFailure,
	DropCollision,
	DropHalfDuplex,
	DropRetryLimitExceeded,
	DropQueueOverflow,
}

func (r DropReason) String() string {
	if name, ok := dropReasonNames[r]; ok {
		return name
	}

	return fmt.Sprintf("DropReason(%d)", int(r))
}

// IsPhy returns true for the reasons reported by the radio.
func (r DropReason) IsPhy() bool {
	return r <= DropHalfDuplex
}

// Vector is a position in meters.
type Vector struct {
	X, Y, Z float64
}

// DistanceTo returns the euclidean distance between two positions.
func (v Vector) DistanceTo(o Vector) float64 {
	dx := v.X - o.X
	dy := v.Y - o.Y
	dz := v.Z - o.Z

	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// DbmToMw converts a power in dBm to milliwatts.
func DbmToMw(dbm float64) float64 {
	return math.Pow(10, dbm/10)
}

// MwToDbm converts a power in milliwatts to dBm.
func MwToDbm(mw float64) float64 {
	return 10 * math.Log10(mw)
}

// DbToRatio converts a power ratio in dB to a linear ratio.
func DbToRatio(db float64) float64 {
	return math.Pow(10, db/10)
}

// RatioToDb converts a linear power ratio to dB.
func RatioToDb(ratio float64) float64 {
	return 10 * math.Log10(ratio)
}
