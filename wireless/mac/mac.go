// Package mac implements CSMA/CA medium access with optional RTS/CTS,
// virtual carrier sense and EDCA access categories.
package mac

import (
	"fmt"
	"math"

	"github.com/sarchlab/wlansim/sim/hooking"
	"github.com/sarchlab/wlansim/sim/id"
	"github.com/sarchlab/wlansim/sim/queueing"
	"github.com/sarchlab/wlansim/sim/timing"
	"github.com/sarchlab/wlansim/wireless"
	"github.com/sarchlab/wlansim/wireless/phy"
)

// State is the state of the transmit side of a MAC.
type State int

// MAC states.
const (
	StateIdle State = iota
	StateBackoff
	StateWaitCts
	StateWaitAck
	StateTransmit
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateBackoff:
		return "BACKOFF"
	case StateWaitCts:
		return "WAIT_CTS"
	case StateWaitAck:
		return "WAIT_ACK"
	case StateTransmit:
		return "TRANSMIT"
	}

	return fmt.Sprintf("State(%d)", int(s))
}

// Hook positions of the MAC.
var (
	// HookPosMacEnqueue fires for every frame handed down by the upper
	// layer, including frames that do not fit in the queue.
	HookPosMacEnqueue = &hooking.HookPos{Name: "MacEnqueue"}

	// HookPosMacTxDrop fires when the MAC gives up on a frame. Detail is the
	// wireless.DropReason.
	HookPosMacTxDrop = &hooking.HookPos{Name: "MacTxDrop"}

	// HookPosMacTxSuccess fires when a frame is acknowledged, or when a
	// broadcast frame has been sent.
	HookPosMacTxSuccess = &hooking.HookPos{Name: "MacTxSuccess"}

	// HookPosMacRxDeliver fires when a data frame is passed up.
	HookPosMacRxDeliver = &hooking.HookPos{Name: "MacRxDeliver"}

	// HookPosMacState fires on state changes. Item is a StateChange.
	HookPosMacState = &hooking.HookPos{Name: "MacState"}
)

// StateChange is the item of HookPosMacState.
type StateChange struct {
	From State
	To   State
}

// Radio is what the MAC needs from the PHY.
type Radio interface {
	Send(frame *wireless.Frame) error
	TxDuration(frame *wireless.Frame) float64
	MediumBusy() bool
	IsTransmitting() bool
	Sifs() float64
	Slot() float64
}

// RandomSource draws uniform numbers in [0, 1).
type RandomSource interface {
	RandU01() float64
}

// A Receiver accepts the data frames delivered by a MAC.
type Receiver interface {
	Receive(frame *wireless.Frame)
}

type accessEvent struct {
	timing.EventBase
}

type timeoutEvent struct {
	timing.EventBase
}

type sendEvent struct {
	timing.EventBase
	frame *wireless.Frame
	own   bool
}

type navEndEvent struct {
	timing.EventBase
}

// Mac is the medium access control of one device.
type Mac struct {
	hooking.HookableBase

	id       wireless.NodeID
	name     string
	engine   timing.EventScheduler
	radio    Radio
	config   Config
	rng      RandomSource
	frameIDs *id.Counter
	receiver Receiver
	queue    queueing.Buffer

	seq     uint64
	state   State
	current *wireless.Frame
	retries int
	cw      int
	slots   int

	// backedOff is set while cw is above the minimum of a failed frame.
	backedOff bool

	accessTicket  *timing.Ticket
	accessStart   float64
	timeoutTicket *timing.Ticket
	navEnd        float64
	navTicket     *timing.Ticket

	lastSeq map[wireless.NodeID]uint64
}

// Name returns the name of the MAC.
func (m *Mac) Name() string {
	return m.name
}

// ID returns the device that the MAC belongs to.
func (m *Mac) ID() wireless.NodeID {
	return m.id
}

// Config returns the MAC parameters.
func (m *Mac) Config() Config {
	return m.config
}

// State returns the current state.
func (m *Mac) State() State {
	return m.state
}

// ContentionWindow returns the current contention window.
func (m *Mac) ContentionWindow() int {
	return m.cw
}

// Retries returns the retry counter of the frame being sent.
func (m *Mac) Retries() int {
	return m.retries
}

// NavEnd returns the time until which the medium is reserved by others.
func (m *Mac) NavEnd() float64 {
	return m.navEnd
}

// Queue returns the transmit queue.
func (m *Mac) Queue() queueing.Buffer {
	return m.queue
}

// SetReceiver sets where delivered frames go.
func (m *Mac) SetReceiver(r Receiver) {
	m.receiver = r
}

// Enqueue creates a data frame for dst and queues it for transmission. It
// returns the frame even if it was dropped because the queue is full.
func (m *Mac) Enqueue(
	dst wireless.NodeID,
	payloadSize int,
	ac wireless.AccessCategory,
) *wireless.Frame {
	m.seq++
	f := &wireless.Frame{
		ID:             m.frameIDs.Next(),
		Src:            m.id,
		Dst:            dst,
		Kind:           wireless.FrameData,
		PayloadSize:    payloadSize,
		Seq:            m.seq,
		AccessCategory: ac,
		CreatedAt:      m.engine.Now(),
	}

	m.invoke(HookPosMacEnqueue, f, nil)

	if !m.queue.CanPush() {
		m.invoke(HookPosMacTxDrop, f, wireless.DropQueueOverflow)
		return f
	}

	m.queue.Push(f)

	if m.state == StateIdle {
		m.startNext()
	}

	return f
}

// Handle processes the events of the MAC.
func (m *Mac) Handle(e timing.Event) error {
	switch e := e.(type) {
	case accessEvent:
		return m.handleAccess()
	case timeoutEvent:
		m.timeoutTicket = nil
		m.fail()
	case sendEvent:
		return m.handleSend(e)
	case navEndEvent:
		m.navTicket = nil
		m.tryResume()
	default:
		return fmt.Errorf("%s cannot handle event of type %T", m.name, e)
	}

	return nil
}

// NotifyMediumBusy freezes the backoff countdown.
func (m *Mac) NotifyMediumBusy() {
	m.freeze()
}

// NotifyMediumIdle resumes the backoff countdown.
func (m *Mac) NotifyMediumIdle() {
	m.tryResume()
}

// NotifyRxSuccess processes a frame received by the radio.
func (m *Mac) NotifyRxSuccess(frame *wireless.Frame, rxPowerDbm float64) {
	if frame.Dst != m.id && !frame.IsBroadcast() {
		m.updateNav(frame)
		return
	}

	now := m.engine.Now()

	switch frame.Kind {
	case wireless.FrameData:
		m.receiveData(frame)
	case wireless.FrameRts:
		if now < m.navEnd {
			return
		}

		m.respondAfterSifs(m.makeCts(frame))
	case wireless.FrameCts:
		if m.state != StateWaitCts || frame.Src != m.current.Dst {
			return
		}

		m.cancelTimeout()
		m.setState(StateTransmit)
		m.schedule(sendEvent{
			EventBase: timing.MakeEventBase(now+m.radio.Sifs(), m),
			frame:     m.makeData(m.current),
			own:       true,
		})
	case wireless.FrameAck:
		if m.state != StateWaitAck || frame.Src != m.current.Dst {
			return
		}

		m.cancelTimeout()
		m.succeed()
	}
}

// NotifyTxDone starts waiting for the response of a sent frame.
func (m *Mac) NotifyTxDone(frame *wireless.Frame) {
	now := m.engine.Now()

	switch {
	case frame.Kind == wireless.FrameRts && m.state == StateWaitCts:
		m.startTimeout(now + m.responseTimeout(wireless.FrameCts))
	case frame.Kind == wireless.FrameData && m.state == StateTransmit &&
		m.current != nil && frame.ID == m.current.ID:
		if frame.IsBroadcast() {
			m.succeed()
			return
		}

		m.setState(StateWaitAck)
		m.startTimeout(now + m.responseTimeout(wireless.FrameAck))
	}
}

func (m *Mac) startNext() {
	head := m.queue.Peek()
	if head == nil {
		m.current = nil
		m.setState(StateIdle)

		return
	}

	m.current = head.(*wireless.Frame)
	m.retries = 0
	m.slots = -1

	p := m.params()
	if m.backedOff {
		m.cw = max(p.CwMin, min(m.cw, p.CwMax))
	} else {
		m.cw = p.CwMin
	}

	m.enterBackoff()
}

func (m *Mac) params() EdcaParams {
	return m.config.paramsFor(m.current.AccessCategory)
}

func (m *Mac) enterBackoff() {
	m.setState(StateBackoff)

	if m.slots < 0 {
		m.slots = m.drawSlots()
	}

	m.tryResume()
}

func (m *Mac) drawSlots() int {
	n := int(m.rng.RandU01() * float64(m.cw+1))

	return min(n, m.cw)
}

func (m *Mac) mediumBusy() bool {
	return m.radio.MediumBusy() || m.engine.Now() < m.navEnd
}

func (m *Mac) tryResume() {
	if m.state != StateBackoff || m.accessTicket != nil {
		return
	}

	if m.mediumBusy() {
		return
	}

	slot := m.radio.Slot()
	m.accessStart = m.engine.Now() + m.radio.Sifs() +
		float64(m.params().Aifsn)*slot
	m.accessTicket = m.schedule(accessEvent{
		EventBase: timing.MakeEventBase(
			m.accessStart+float64(m.slots)*slot, m),
	})
}

func (m *Mac) freeze() {
	if m.accessTicket == nil {
		return
	}

	m.accessTicket.Cancel()
	m.accessTicket = nil

	elapsed := m.engine.Now() - m.accessStart
	if elapsed <= 0 {
		return
	}

	done := int(math.Floor(elapsed/m.radio.Slot() + 1e-9))
	m.slots -= min(done, m.slots)
}

func (m *Mac) handleAccess() error {
	m.accessTicket = nil

	if m.mediumBusy() || m.radio.IsTransmitting() {
		m.slots = 0
		return nil
	}

	m.slots = -1
	f := m.current

	if !f.IsBroadcast() && f.Size() >= m.config.RtsCtsThreshold {
		m.setState(StateWaitCts)
		return m.radio.Send(m.makeRts(f))
	}

	m.setState(StateTransmit)

	return m.radio.Send(m.makeData(f))
}

func (m *Mac) handleSend(e sendEvent) error {
	if m.radio.IsTransmitting() {
		if e.own {
			m.fail()
		}

		return nil
	}

	return m.radio.Send(e.frame)
}

func (m *Mac) respondAfterSifs(frame *wireless.Frame) {
	m.schedule(sendEvent{
		EventBase: timing.MakeEventBase(m.engine.Now()+m.radio.Sifs(), m),
		frame:     frame,
	})
}

func (m *Mac) receiveData(frame *wireless.Frame) {
	if frame.IsBroadcast() {
		m.deliver(frame)
		return
	}

	m.respondAfterSifs(m.makeAck(frame))

	if frame.Retry && m.lastSeq[frame.Src] == frame.Seq {
		return
	}

	m.lastSeq[frame.Src] = frame.Seq
	m.deliver(frame)
}

func (m *Mac) deliver(frame *wireless.Frame) {
	m.invoke(HookPosMacRxDeliver, frame, nil)

	if m.receiver != nil {
		m.receiver.Receive(frame)
	}
}

func (m *Mac) succeed() {
	m.invoke(HookPosMacTxSuccess, m.current, nil)

	m.cw = m.params().CwMin
	m.backedOff = false
	m.retries = 0
	m.queue.Pop()
	m.startNext()
}

func (m *Mac) fail() {
	m.retries++

	if m.retries > m.config.MaxRetries {
		m.invoke(HookPosMacTxDrop, m.current, wireless.DropRetryLimitExceeded)
		m.queue.Pop()
		m.startNext()

		return
	}

	m.cw = min(2*(m.cw+1)-1, m.params().CwMax)
	m.backedOff = true
	m.slots = -1
	m.enterBackoff()
}

func (m *Mac) startTimeout(at float64) {
	m.timeoutTicket = m.schedule(timeoutEvent{
		EventBase: timing.MakeEventBase(at, m),
	})
}

func (m *Mac) cancelTimeout() {
	m.timeoutTicket.Cancel()
	m.timeoutTicket = nil
}

func (m *Mac) responseTimeout(kind wireless.FrameKind) float64 {
	resp := &wireless.Frame{Kind: kind}

	return m.radio.Sifs() + m.radio.TxDuration(resp) + 2*m.radio.Slot()
}

func (m *Mac) updateNav(frame *wireless.Frame) {
	if frame.Duration <= 0 {
		return
	}

	end := m.engine.Now() + frame.Duration
	if end <= m.navEnd {
		return
	}

	m.navEnd = end
	m.freeze()

	m.navTicket.Cancel()
	m.navTicket = m.schedule(navEndEvent{
		EventBase: timing.MakeEventBase(end, m),
	})
}

func (m *Mac) makeData(f *wireless.Frame) *wireless.Frame {
	data := *f
	data.Retry = m.retries > 0
	data.Duration = 0

	if !f.IsBroadcast() {
		data.Duration = m.radio.Sifs() + m.controlDuration(wireless.FrameAck)
	}

	return &data
}

func (m *Mac) makeRts(f *wireless.Frame) *wireless.Frame {
	sifs := m.radio.Sifs()
	data := m.makeData(f)

	return &wireless.Frame{
		ID:             m.frameIDs.Next(),
		Src:            m.id,
		Dst:            f.Dst,
		Kind:           wireless.FrameRts,
		Seq:            f.Seq,
		AccessCategory: f.AccessCategory,
		CreatedAt:      m.engine.Now(),
		Duration: 3*sifs +
			m.controlDuration(wireless.FrameCts) +
			m.radio.TxDuration(data) +
			m.controlDuration(wireless.FrameAck),
	}
}

func (m *Mac) makeCts(rts *wireless.Frame) *wireless.Frame {
	duration := rts.Duration - m.radio.Sifs() -
		m.controlDuration(wireless.FrameCts)

	return &wireless.Frame{
		ID:        m.frameIDs.Next(),
		Src:       m.id,
		Dst:       rts.Src,
		Kind:      wireless.FrameCts,
		Seq:       rts.Seq,
		CreatedAt: m.engine.Now(),
		Duration:  math.Max(duration, 0),
	}
}

func (m *Mac) makeAck(data *wireless.Frame) *wireless.Frame {
	return &wireless.Frame{
		ID:        m.frameIDs.Next(),
		Src:       m.id,
		Dst:       data.Src,
		Kind:      wireless.FrameAck,
		Seq:       data.Seq,
		CreatedAt: m.engine.Now(),
	}
}

func (m *Mac) controlDuration(kind wireless.FrameKind) float64 {
	return m.radio.TxDuration(&wireless.Frame{Kind: kind})
}

func (m *Mac) setState(s State) {
	if s == m.state {
		return
	}

	change := StateChange{From: m.state, To: s}
	m.state = s

	m.invoke(HookPosMacState, change, nil)
}

func (m *Mac) schedule(evt timing.Event) *timing.Ticket {
	ticket, err := m.engine.Schedule(evt)
	if err != nil {
		// The engine keeps the error and stops the run.
		return nil
	}

	return ticket
}

func (m *Mac) invoke(pos *hooking.HookPos, item, detail any) {
	if m.NumHooks() == 0 {
		return
	}

	m.InvokeHook(hooking.HookCtx{
		Domain: m,
		Now:    m.engine.Now(),
		Pos:    pos,
		Item:   item,
		Detail: detail,
	})
}

var _ phy.Listener = (*Mac)(nil)
