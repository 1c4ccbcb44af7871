// Package capture records the frames that go on the air into a file that can
// be inspected after the simulation.
package capture

import (
	"github.com/sarchlab/wlansim/sim/hooking"
	"github.com/sarchlab/wlansim/wireless"
	"github.com/sarchlab/wlansim/wireless/phy"
)

// A Record is one row of a capture. Every field becomes a column.
type Record struct {
	Time      float64
	Direction string
	Node      int
	FrameID   uint64
	Kind      string
	Src       int
	Dst       int
	Size      int
	Seq       uint64
	Retry     bool
	Category  string
	PowerDbm  float64
	Airtime   float64
	Mode      string
}

// Writer stores records.
type Writer interface {
	// Init creates the underlying file.
	Init()

	// Write buffers a record.
	Write(r Record)

	// Flush writes all the buffered records.
	Flush()

	// Close flushes and releases the file.
	Close() error
}

// Directions of a record.
const (
	DirectionTx = "tx"
	DirectionRx = "rx"
)

// A Recorder is a hook that turns radio events into records. Attach it to
// the radios of a network.
type Recorder struct {
	writer   Writer
	observer *wireless.NodeID
}

// NewRecorder creates a recorder that writes every transmission.
func NewRecorder(w Writer) *Recorder {
	return &Recorder{writer: w}
}

// NewObserverRecorder creates a recorder that only writes what one device
// sees: the frames it sends and the frames it receives.
func NewObserverRecorder(w Writer, observer wireless.NodeID) *Recorder {
	return &Recorder{writer: w, observer: &observer}
}

// Func writes a record for transmissions and, in observer mode, receptions.
func (r *Recorder) Func(ctx hooking.HookCtx) {
	switch ctx.Pos {
	case phy.HookPosPhyTxBegin:
		info := ctx.Detail.(phy.TxInfo)
		if r.observer != nil && *r.observer != info.Sender {
			return
		}

		rec := makeRecord(ctx.Now, DirectionTx, info.Sender,
			ctx.Item.(*wireless.Frame))
		rec.PowerDbm = info.PowerDbm
		rec.Airtime = info.Duration
		rec.Mode = info.Mode.Name
		r.writer.Write(rec)
	case phy.HookPosPhyRxEnd:
		info := ctx.Detail.(phy.RxInfo)
		if r.observer == nil || *r.observer != info.Receiver {
			return
		}

		rec := makeRecord(ctx.Now, DirectionRx, info.Receiver,
			ctx.Item.(*wireless.Frame))
		rec.PowerDbm = info.PowerDbm
		r.writer.Write(rec)
	}
}

func makeRecord(
	now float64,
	dir string,
	node wireless.NodeID,
	f *wireless.Frame,
) Record {
	return Record{
		Time:      now,
		Direction: dir,
		Node:      int(node),
		FrameID:   f.ID,
		Kind:      f.Kind.String(),
		Src:       int(f.Src),
		Dst:       int(f.Dst),
		Size:      f.Size(),
		Seq:       f.Seq,
		Retry:     f.Retry,
		Category:  f.AccessCategory.String(),
	}
}
