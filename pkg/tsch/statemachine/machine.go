// Package statemachine implements the TSCH state machine (spec.md §4.7):
// a tickless cooperative loop that repeatedly asks the link selector for
// the next active link, sleeps until it is due, and operates it —
// transmitting a beacon or queued data frame, or opening a receive
// window and replying with a time-corrected enhanced ACK.
package statemachine

import (
	"errors"
	"sync"
	"time"

	"github.com/pion/logging"

	"github.com/ieee802154/tschmac/pkg/driver"
	"github.com/ieee802154/tschmac/pkg/frame"
	"github.com/ieee802154/tschmac/pkg/ie"
	"github.com/ieee802154/tschmac/pkg/linkctx"
	"github.com/ieee802154/tschmac/pkg/nettime"
	"github.com/ieee802154/tschmac/pkg/tsch/schedule"
	"github.com/ieee802154/tschmac/pkg/tsch/selector"
	"github.com/ieee802154/tschmac/pkg/txqueue"
)

// ErrCapabilitiesInsufficient is returned by TSCHModeOn when the driver
// lacks the timed TX/RX capability TSCH requires (spec.md §6, §7).
var ErrCapabilitiesInsufficient = errors.New("statemachine: driver lacks timed TX/RX capability required for TSCH")

// State is the coarse TSCH operating state (spec.md §4.7).
type State int

const (
	StateOff State = iota
	StateWaitingForAssociation
	StateOperating
)

func (s State) String() string {
	switch s {
	case StateWaitingForAssociation:
		return "waiting-for-association"
	case StateOperating:
		return "operating"
	default:
		return "off"
	}
}

// Config configures a Machine, following the teacher's "Config struct
// with defaults applied in the constructor" idiom.
type Config struct {
	Context *linkctx.Context
	Driver  driver.Driver
	Queues  *txqueue.Table

	// AssociationPollInterval is how often the loop rechecks whether the
	// interface has associated while waiting to join a PAN. Default: 1s.
	AssociationPollInterval time.Duration

	// OnData, if set, is called with a received data frame's source
	// address and decrypted payload once handle_rx accepts it.
	OnData func(src frame.Address, payload []byte)

	LoggerFactory logging.LoggerFactory
}

// Machine runs the TSCH tickless loop against a linkctx.Context and
// driver.Driver (spec.md §4.7). Create one with New and switch it on and
// off with TSCHModeOn/TSCHModeOff.
type Machine struct {
	ctx    *linkctx.Context
	drv    driver.Driver
	queues *txqueue.Table
	ref    *nettime.Reference
	log    logging.LeveledLogger

	pollInterval time.Duration

	onData func(src frame.Address, payload []byte)

	mu            sync.Mutex
	state         State
	slotStart     uint64
	haveSlotStart bool
	currentLink   *schedule.Link
	currentExpect uint64

	stop chan struct{}
	done chan struct{}
}

// New creates a Machine in the off state. It does not start the loop;
// call TSCHModeOn for that.
func New(cfg Config) *Machine {
	factory := cfg.LoggerFactory
	if factory == nil {
		factory = logging.NewDefaultLoggerFactory()
	}
	poll := cfg.AssociationPollInterval
	if poll <= 0 {
		poll = time.Second
	}
	queues := cfg.Queues
	if queues == nil {
		queues = txqueue.NewTable()
	}
	return &Machine{
		ctx:          cfg.Context,
		drv:          cfg.Driver,
		queues:       queues,
		ref:          cfg.Driver.TimeReference(),
		log:          factory.NewLogger("statemachine"),
		pollInterval: poll,
		onData:       cfg.OnData,
		state:        StateOff,
	}
}

// Queues returns the per-neighbor TX queue table the loop drains TX
// links from; callers enqueue outgoing frames into it directly.
func (m *Machine) Queues() *txqueue.Table { return m.queues }

// State reports the machine's current coarse state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Machine) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

// Stopped returns a channel that closes once the loop goroutine started
// by TSCHModeOn has exited.
func (m *Machine) Stopped() <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.done
}

// TSCHModeOn switches the interface into TSCH mode and starts the
// tickless loop in a new goroutine (spec.md §4.7). It installs a default
// zero-correction Time Correction header IE on drivers that auto-ACK in
// hardware, per spec.md §6.
func (m *Machine) TSCHModeOn() error {
	caps := m.drv.Capabilities()
	if !caps.Has(driver.CapTimedTX) || !caps.Has(driver.CapTimedRX) {
		return ErrCapabilitiesInsufficient
	}
	if caps.Has(driver.CapAutoAck) {
		content := ie.EncodeTimeCorrection(true, 0)
		buf := make([]byte, 2+len(content))
		ie.WriteHeaderIE(buf, ie.ElementTimeCorrection, content)
		if err := m.drv.ConfigureEnhAckIE(buf); err != nil {
			return err
		}
	}

	m.mu.Lock()
	if m.stop != nil {
		m.mu.Unlock()
		return nil
	}
	m.stop = make(chan struct{})
	m.done = make(chan struct{})
	m.haveSlotStart = false
	stop := m.stop
	m.mu.Unlock()

	m.ctx.SetTSCHMode(true)
	go m.run(stop)
	return nil
}

// TSCHModeOff switches the interface out of TSCH mode and stops the
// loop. It does not block for the loop goroutine to exit; use Stopped
// for that.
func (m *Machine) TSCHModeOff() {
	m.ctx.SetTSCHMode(false)
	m.mu.Lock()
	stop := m.stop
	m.stop = nil
	m.mu.Unlock()
	if stop != nil {
		close(stop)
	}
	m.setState(StateOff)
}

func (m *Machine) run(stop chan struct{}) {
	defer close(m.done)
	for {
		select {
		case <-stop:
			return
		default:
		}
		if !m.ctx.TSCHModeEnabled() {
			return
		}
		if !m.ctx.IsAssociated() {
			m.setState(StateWaitingForAssociation)
			select {
			case <-stop:
				return
			case <-time.After(m.pollInterval):
				continue
			}
		}
		m.setState(StateOperating)
		m.stepOnce(stop)
	}
}

// stepOnce runs a single iteration of the tickless loop: select, sleep,
// operate, advance.
func (m *Machine) stepOnce(stop chan struct{}) {
	res, err := selector.GetNextActiveLink(m.ctx, m.queues.Depth)
	if err != nil {
		m.log.Errorf("tsch: %v", err)
		select {
		case <-stop:
		case <-time.After(m.pollInterval):
		}
		return
	}

	m.ctx.Lock()
	m.ctx.TSCH().AdvanceASN(res.OffsetTimeslots)
	m.ctx.Unlock()

	m.mu.Lock()
	if !m.haveSlotStart {
		m.ref.CounterWakeUp()
		m.slotStart = m.ref.GetTime()
		m.haveSlotStart = true
	}
	deadline := m.slotStart + res.OffsetNs
	m.mu.Unlock()

	if !m.sleepUntil(deadline, stop) {
		return
	}

	m.mu.Lock()
	m.slotStart = deadline
	m.mu.Unlock()

	m.operateLink(res.Primary, res.Backup)

	m.ctx.Lock()
	m.ctx.TSCH().AdvanceASN(1)
	timeslotLen := uint64(m.ctx.TSCH().Timeslot.TimeslotLength) * 1000
	m.ctx.Unlock()

	m.mu.Lock()
	m.slotStart += timeslotLen
	m.mu.Unlock()
}

// sleepUntil blocks until the reference clock reaches deadlineNs,
// arming the net-time reference's single hardware compare timer
// (pkg/nettime.Reference.TimerStart) rather than a free-running ticker.
// It returns false if stop closed first.
func (m *Machine) sleepUntil(deadlineNs uint64, stop chan struct{}) bool {
	now := m.ref.GetTime()
	if deadlineNs <= now {
		return true
	}
	done := make(chan struct{})
	tm := m.ref.TimerStart(time.Duration(deadlineNs-now), func() { close(done) })
	select {
	case <-done:
		return true
	case <-stop:
		m.ref.TimerStop(tm)
		return false
	}
}

// operateLink implements spec.md §4.7 operate_link: compute the hopping
// channel, and dispatch to advertising, TX, or RX behavior. A TX link
// with an empty queue falls through to its same-offset backup RX link,
// if one was selected.
func (m *Machine) operateLink(primary schedule.Link, backup *schedule.Link) {
	m.ctx.Lock()
	tsch := m.ctx.TSCH()
	channel, ok := tsch.HoppingChannel(primary.ChannelOffset)
	timeslot := tsch.Timeslot
	role := m.ctx.Role()
	ackWanted := m.ctx.AckRequested()
	m.ctx.Unlock()

	if !ok {
		m.log.Errorf("tsch: %v", frame.ErrNoHoppingSeq)
		return
	}

	m.mu.Lock()
	slotStart := m.slotStart
	m.mu.Unlock()

	if role == linkctx.RolePANCoordinator && primary.Advertising {
		m.transmitBeacon(channel, slotStart, timeslot)
		return
	}

	if primary.TX {
		if pkt, ok := m.queues.Dequeue(primary.Node); ok {
			m.transmitData(primary, pkt, channel, slotStart, timeslot, ackWanted)
			return
		}
		if backup == nil {
			return
		}
		primary = *backup
	}

	if primary.RX {
		m.listen(primary, channel, slotStart, timeslot)
	}
}

func (m *Machine) transmitBeacon(channel uint16, slotStart uint64, timeslot schedule.TimeslotTemplate) {
	if err := m.drv.SetChannel(channel); err != nil {
		m.log.Errorf("tsch: SetChannel: %v", err)
		return
	}
	if res, err := m.drv.CCA(); err == nil && res == driver.CCABusy {
		m.log.Debugf("tsch: CCA busy, aborting advertising slot")
		return
	}

	beacon := frame.CreateEnhBeacon(m.ctx, true)
	pkt := &driver.Packet{
		Payload: beacon,
		Channel: channel,
		TXAtNs:  slotStart + uint64(timeslot.TXOffset)*1000,
	}
	if err := m.drv.Send(pkt); err != nil {
		m.log.Debugf("tsch: beacon Send: %v", err)
	}
}

func (m *Machine) transmitData(link schedule.Link, pkt *txqueue.Packet, channel uint16, slotStart uint64, timeslot schedule.TimeslotTemplate, ackWanted bool) {
	if err := m.drv.SetChannel(channel); err != nil {
		m.log.Errorf("tsch: SetChannel: %v", err)
		return
	}
	if link.Shared {
		if res, err := m.drv.CCA(); err == nil && res == driver.CCABusy {
			m.log.Debugf("tsch: CCA busy on shared link, backing off")
			return
		}
	}

	dst := nodeAddrToFrameAddress(link.Node)
	out, err := frame.EncodeDataFrame(m.ctx, dst, frame.Address{}, pkt.Payload)
	if err != nil {
		m.log.Errorf("tsch: EncodeDataFrame: %v", err)
		return
	}

	txPkt := &driver.Packet{
		Payload: out,
		Channel: channel,
		TXAtNs:  slotStart + uint64(timeslot.TXOffset)*1000,
	}
	if err := m.drv.Send(txPkt); err != nil {
		m.log.Debugf("tsch: data Send: %v", err)
		return
	}

	if !link.EffectiveAckRequest(ackWanted) {
		return
	}
	m.awaitAck(channel, timeslot)
}

func (m *Machine) awaitAck(channel uint16, timeslot schedule.TimeslotTemplate) {
	ackCh := make(chan driver.Packet, 1)
	slot := driver.RXSlot{DurationNs: uint64(timeslot.ACKWait) * 1000, Channel: channel}
	if err := m.drv.ConfigureRXSlot(slot, func(pkt driver.Packet) { ackCh <- pkt }); err != nil {
		m.log.Debugf("tsch: ConfigureRXSlot for ACK: %v", err)
		return
	}
	select {
	case ack := <-ackCh:
		m.log.Tracef("tsch: received %d-byte ACK", len(ack.Payload))
	case <-time.After(time.Duration(timeslot.ACKWait) * time.Microsecond):
		m.log.Debugf("tsch: ACK wait timed out")
	}
}

// listen implements an RX link: arm a timed receive window sized by the
// timeslot template's RXWait, declare the expected arrival time at its
// midpoint (spec.md §4.7), and react to whatever the window delivers.
func (m *Machine) listen(link schedule.Link, channel uint16, slotStart uint64, timeslot schedule.TimeslotTemplate) {
	if err := m.drv.SetChannel(channel); err != nil {
		m.log.Errorf("tsch: SetChannel: %v", err)
		return
	}

	start := slotStart + uint64(timeslot.RXOffset)*1000
	dur := uint64(timeslot.RXWait) * 1000
	expected := start + dur/2

	if err := m.drv.ConfigureExpectedRXTime(expected); err != nil {
		m.log.Debugf("tsch: ConfigureExpectedRXTime: %v", err)
	}

	m.mu.Lock()
	l := link
	m.currentLink = &l
	m.currentExpect = expected
	m.mu.Unlock()

	rxCh := make(chan driver.Packet, 1)
	slot := driver.RXSlot{StartNs: start, DurationNs: dur, Channel: channel}
	if err := m.drv.ConfigureRXSlot(slot, func(pkt driver.Packet) { rxCh <- pkt }); err != nil {
		m.log.Errorf("tsch: ConfigureRXSlot: %v", err)
	} else {
		select {
		case pkt := <-rxCh:
			m.handleIncoming(link, channel, timeslot, pkt)
		case <-time.After(time.Duration(dur)):
		}
	}

	m.mu.Lock()
	m.currentLink = nil
	m.mu.Unlock()
}

// handleIncoming implements spec.md §4.7 handle_rx: check the frame's
// source address against the currently listening link, compute the time
// correction against the link's declared expected arrival time, decrypt
// and parse the frame, syntonize the clock if the link carries
// timekeeping, and reply with an enhanced ACK if the sender requested
// one.
func (m *Machine) handleIncoming(link schedule.Link, channel uint16, timeslot schedule.TimeslotTemplate, pkt driver.Packet) {
	peek, err := frame.ParseMHR(pkt.Payload)
	if err != nil {
		m.log.Debugf("tsch: ParseMHR: %v", err)
		return
	}

	accept, correctionUs := m.handleRX(peek.SrcAddr, pkt.RXAtNs)
	if !accept {
		return
	}

	mpdu, fp, err := frame.DecodeIncoming(m.ctx, pkt.Payload)
	if err != nil {
		m.log.Debugf("tsch: DecodeIncoming: %v", err)
		return
	}
	if m.onData != nil && mpdu.Control.Type == frame.TypeData {
		m.onData(mpdu.SrcAddr, fp.Payload)
	}

	if link.Timekeeping {
		m.ref.Syntonize(pkt.RXAtNs, 0)
	}

	if !mpdu.Control.AckRequested {
		return
	}
	ack, err := frame.CreateEnhAckFrame(mpdu, true, correctionUs)
	if err != nil {
		m.log.Errorf("tsch: CreateEnhAckFrame: %v", err)
		return
	}
	ackPkt := &driver.Packet{
		Payload: ack,
		Channel: channel,
		TXAtNs:  pkt.RXAtNs + uint64(timeslot.RXAckDelay)*1000,
	}
	if err := m.drv.Send(ackPkt); err != nil {
		m.log.Debugf("tsch: ACK Send: %v", err)
	}
}

// handleRX drops the frame if no RX link is currently active or if
// srcAddr does not match that link's node_addr, otherwise computes the
// time-correction value against the link's declared expected arrival
// time at pktTsNs, clamped to the enhanced ACK's [-2048, 2047]
// microsecond range (spec.md §4.7, §7.4.2.7).
func (m *Machine) handleRX(srcAddr frame.Address, pktTsNs uint64) (accept bool, correctionUs int16) {
	m.mu.Lock()
	cur := m.currentLink
	expected := m.currentExpect
	m.mu.Unlock()
	if cur == nil {
		return false, 0
	}
	if nodeAddrToFrameAddress(cur.Node) != srcAddr {
		return false, 0
	}
	return true, roundToNearestUs(int64(expected) - int64(pktTsNs))
}

func roundToNearestUs(diffNs int64) int16 {
	var us int64
	if diffNs >= 0 {
		us = (diffNs + 500) / 1000
	} else {
		us = -((-diffNs + 500) / 1000)
	}
	if us > 2047 {
		us = 2047
	} else if us < -2048 {
		us = -2048
	}
	return int16(us)
}

func nodeAddrToFrameAddress(n schedule.NodeAddr) frame.Address {
	switch n.Mode {
	case schedule.NodeAddrShort:
		return frame.ShortAddress(n.Short)
	case schedule.NodeAddrExtended:
		return frame.ExtendedAddress(n.Extended)
	default:
		return frame.Address{}
	}
}
