// Package phy models half-duplex radios that share a medium.
package phy

import (
	"errors"
	"fmt"
	"log"
	"math"

	"github.com/sarchlab/wlansim/sim/hooking"
	"github.com/sarchlab/wlansim/sim/timing"
	"github.com/sarchlab/wlansim/wireless"
	"github.com/sarchlab/wlansim/wireless/propagation"
)

// State is the state of a radio.
type State int

// Radio states.
const (
	StateIdle State = iota
	StateTx
	StateRx
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateTx:
		return "TX"
	case StateRx:
		return "RX"
	}

	return fmt.Sprintf("State(%d)", int(s))
}

// Hook positions of the radio.
var (
	// HookPosPhyTxBegin fires when a frame starts going on the air. Item is
	// the frame and Detail is a TxInfo.
	HookPosPhyTxBegin = &hooking.HookPos{Name: "PhyTxBegin"}

	// HookPosPhyTxEnd fires when the last bit of a frame is sent.
	HookPosPhyTxEnd = &hooking.HookPos{Name: "PhyTxEnd"}

	// HookPosPhyRxEnd fires when a frame is received. Detail is an RxInfo.
	HookPosPhyRxEnd = &hooking.HookPos{Name: "PhyRxEnd"}

	// HookPosPhyRxDrop fires when a frame cannot be received. Detail is a
	// DropInfo.
	HookPosPhyRxDrop = &hooking.HookPos{Name: "PhyRxDrop"}
)

// TxInfo is attached to HookPosPhyTxBegin.
type TxInfo struct {
	Sender   wireless.NodeID
	PowerDbm float64
	Duration float64
	Mode     Mode
}

// RxInfo is attached to HookPosPhyRxEnd.
type RxInfo struct {
	Receiver wireless.NodeID
	PowerDbm float64
	SinrDb   float64
}

// DropInfo is attached to HookPosPhyRxDrop.
type DropInfo struct {
	Reason   wireless.DropReason
	Receiver wireless.NodeID
	PowerDbm float64
}

// A Listener is told about what happens on the radio. The MAC is the
// listener of its radio.
type Listener interface {
	NotifyMediumBusy()
	NotifyMediumIdle()
	NotifyRxSuccess(frame *wireless.Frame, rxPowerDbm float64)
	NotifyTxDone(frame *wireless.Frame)
}

// ErrAlreadyTransmitting is returned when a radio is asked to send while it
// is still sending.
var ErrAlreadyTransmitting = errors.New("radio is already transmitting")

type arrival struct {
	id       uint64
	frame    *wireless.Frame
	powerDbm float64
	powerMw  float64
	dropped  bool
}

type arrivalStartEvent struct {
	timing.EventBase
	arrival *arrival
}

type arrivalEndEvent struct {
	timing.EventBase
	arrival *arrival
}

type txEndEvent struct {
	timing.EventBase
	frame *wireless.Frame
}

// Phy is a half-duplex radio.
type Phy struct {
	hooking.HookableBase

	id       wireless.NodeID
	name     string
	engine   timing.EventScheduler
	config   Config
	position wireless.Vector
	channel  *Channel
	listener Listener

	state       State
	arrivals    []*arrival
	locked      *arrival
	maxInterfMw float64
	busy        bool
}

// Name returns the name of the radio.
func (p *Phy) Name() string {
	return p.name
}

// ID returns the device that the radio belongs to.
func (p *Phy) ID() wireless.NodeID {
	return p.id
}

// Config returns the radio parameters.
func (p *Phy) Config() Config {
	return p.config
}

// State returns the current radio state.
func (p *Phy) State() State {
	return p.state
}

// Position returns where the radio is.
func (p *Phy) Position() wireless.Vector {
	return p.position
}

// SetPosition moves the radio.
func (p *Phy) SetPosition(v wireless.Vector) {
	p.position = v
}

// SetListener binds the radio to the layer above.
func (p *Phy) SetListener(l Listener) {
	p.listener = l
}

// Sifs returns the short inter-frame space.
func (p *Phy) Sifs() float64 {
	return p.config.Sifs
}

// Slot returns the slot time.
func (p *Phy) Slot() float64 {
	return p.config.Slot
}

// IsTransmitting returns true while a frame is going out.
func (p *Phy) IsTransmitting() bool {
	return p.state == StateTx
}

// MediumBusy returns true if the radio is not idle or if the energy on the
// medium is at least the CCA threshold.
func (p *Phy) MediumBusy() bool {
	if p.state != StateIdle {
		return true
	}

	return p.energyMw() >= wireless.DbmToMw(p.config.CcaThresholdDbm)
}

// TxDuration returns the airtime of a frame. Control frames use the control
// mode.
func (p *Phy) TxDuration(frame *wireless.Frame) float64 {
	return p.modeFor(frame).FrameDuration(frame.Size())
}

func (p *Phy) modeFor(frame *wireless.Frame) Mode {
	if frame.Kind.IsControl() {
		return p.config.ControlMode
	}

	return p.config.DataMode
}

func (p *Phy) endpoint() propagation.Endpoint {
	return propagation.Endpoint{ID: p.id, Position: p.position}
}

// Send puts a frame on the air. Sending while receiving aborts the
// reception.
func (p *Phy) Send(frame *wireless.Frame) error {
	if p.channel == nil {
		log.Panicf("%s is not attached to a channel", p.name)
	}

	if p.state == StateTx {
		return ErrAlreadyTransmitting
	}

	now := p.engine.Now()

	if p.state == StateRx {
		locked := p.locked
		p.locked = nil
		p.drop(now, locked, wireless.DropHalfDuplex)
	}

	p.state = StateTx
	mode := p.modeFor(frame)
	duration := mode.FrameDuration(frame.Size())

	p.InvokeHook(hooking.HookCtx{
		Domain: p,
		Now:    now,
		Pos:    HookPosPhyTxBegin,
		Item:   frame,
		Detail: TxInfo{
			Sender:   p.id,
			PowerDbm: p.config.TxPowerDbm,
			Duration: duration,
			Mode:     mode,
		},
	})

	evt := txEndEvent{
		EventBase: timing.MakeEventBase(now+duration, p),
		frame:     frame,
	}
	if _, err := p.engine.Schedule(evt); err != nil {
		return err
	}

	if err := p.channel.transmit(p, frame, duration); err != nil {
		return err
	}

	p.updateBusy()

	return nil
}

// Handle processes the events of the radio.
func (p *Phy) Handle(e timing.Event) error {
	switch e := e.(type) {
	case arrivalStartEvent:
		p.startArrival(e.Time(), e.arrival)
	case arrivalEndEvent:
		p.endArrival(e.Time(), e.arrival)
	case txEndEvent:
		p.endTx(e.Time(), e.frame)
	default:
		log.Panicf("cannot handle event of type %T", e)
	}

	return nil
}

func (p *Phy) startArrival(now float64, a *arrival) {
	p.arrivals = append(p.arrivals, a)

	switch p.state {
	case StateTx:
		p.drop(now, a, wireless.DropHalfDuplex)
	case StateRx:
		reason := wireless.DropCollision
		if a.powerDbm < p.config.RxSensitivityDbm {
			reason = wireless.DropCaptureFailure
		}

		p.drop(now, a, reason)
		p.maxInterfMw = math.Max(p.maxInterfMw,
			p.energyMw()-p.locked.powerMw)
	case StateIdle:
		if a.powerDbm >= p.config.RxSensitivityDbm {
			p.state = StateRx
			p.locked = a
			p.maxInterfMw = p.energyMw() - a.powerMw
		} else {
			p.drop(now, a, wireless.DropCaptureFailure)
		}
	}

	p.updateBusy()
}

func (p *Phy) endArrival(now float64, a *arrival) {
	p.removeArrival(a)

	if p.locked == a {
		p.locked = nil
		p.state = StateIdle
		p.finishReception(now, a)
	}

	p.updateBusy()
}

func (p *Phy) finishReception(now float64, a *arrival) {
	noiseMw := wireless.DbmToMw(p.config.NoiseFloorDbm)
	interfMw := math.Max(p.maxInterfMw, 0)
	sinrDb := wireless.RatioToDb(a.powerMw / (noiseMw + interfMw))
	p.maxInterfMw = 0

	if sinrDb < p.config.CaptureThresholdDb {
		reason := wireless.DropCaptureFailure

		snrDb := wireless.RatioToDb(a.powerMw / noiseMw)
		if snrDb >= p.config.CaptureThresholdDb {
			reason = wireless.DropCollision
		}

		p.drop(now, a, reason)

		return
	}

	p.InvokeHook(hooking.HookCtx{
		Domain: p,
		Now:    now,
		Pos:    HookPosPhyRxEnd,
		Item:   a.frame,
		Detail: RxInfo{
			Receiver: p.id,
			PowerDbm: a.powerDbm,
			SinrDb:   sinrDb,
		},
	})

	if p.listener != nil {
		p.listener.NotifyRxSuccess(a.frame, a.powerDbm)
	}
}

func (p *Phy) endTx(now float64, frame *wireless.Frame) {
	p.state = StateIdle

	p.InvokeHook(hooking.HookCtx{
		Domain: p,
		Now:    now,
		Pos:    HookPosPhyTxEnd,
		Item:   frame,
	})

	if p.listener != nil {
		p.listener.NotifyTxDone(frame)
	}

	p.updateBusy()
}

func (p *Phy) drop(now float64, a *arrival, reason wireless.DropReason) {
	if a.dropped {
		return
	}

	a.dropped = true

	p.InvokeHook(hooking.HookCtx{
		Domain: p,
		Now:    now,
		Pos:    HookPosPhyRxDrop,
		Item:   a.frame,
		Detail: DropInfo{
			Reason:   reason,
			Receiver: p.id,
			PowerDbm: a.powerDbm,
		},
	})
}

func (p *Phy) removeArrival(a *arrival) {
	for i, other := range p.arrivals {
		if other == a {
			p.arrivals = append(p.arrivals[:i], p.arrivals[i+1:]...)
			return
		}
	}
}

func (p *Phy) energyMw() float64 {
	total := 0.0
	for _, a := range p.arrivals {
		total += a.powerMw
	}

	return total
}

func (p *Phy) updateBusy() {
	busy := p.MediumBusy()
	if busy == p.busy {
		return
	}

	p.busy = busy

	if p.listener == nil {
		return
	}

	if busy {
		p.listener.NotifyMediumBusy()
	} else {
		p.listener.NotifyMediumIdle()
	}
}
