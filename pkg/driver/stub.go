package driver

import (
	"encoding/binary"
	"net"
	"sync"
	"time"

	"github.com/pion/logging"
	"github.com/pion/transport/v3/test"

	"github.com/ieee802154/tschmac/pkg/nettime"
)

// Stub is an in-memory radio driver standing in for real silicon
// (spec.md §6's radio driver is explicitly out of scope as hardware, but
// its contract must still be exercisable): two Stubs wired by
// NewStubPair exchange frames over a pion/transport/v3/test.Bridge
// virtual link, the same primitive pkg/transport/pipe.go uses for
// transport-level virtual-network tests. Stub supports every
// Capabilities bit, so the TSCH state machine and security engine can be
// driven end-to-end without hardware. Its timed receive is coarse:
// ConfigureRXSlot ignores RXSlot.StartNs and opens the window at once.
type Stub struct {
	conn net.Conn
	ref  *nettime.Reference
	log  logging.LeveledLogger

	mu       sync.Mutex
	channel  uint16
	page     uint8
	ranges   []ChannelRange
	slot     *armedSlot
	ackIE    []byte
	expected uint64

	closed chan struct{}
}

type armedSlot struct {
	channel uint16
	fn      ReceiveFunc
	timer   *time.Timer
}

var default24GHzRanges = []ChannelRange{{First: 11, Last: 26}}

// NewStubPair returns two Stubs connected by a virtual radio medium: a
// Send on one is delivered to the other's armed RX slot, subject to the
// channel-match rule real radios enforce. ref0/ref1 are the time
// references each Stub reports via TimeReference; either may be nil, in
// which case that Stub gets its own independent software-counter-backed
// Reference.
func NewStubPair(ref0, ref1 *nettime.Reference, factory logging.LoggerFactory) (*Stub, *Stub) {
	if factory == nil {
		factory = logging.NewDefaultLoggerFactory()
	}
	if ref0 == nil {
		ref0 = nettime.New(nettime.Config{LoggerFactory: factory})
	}
	if ref1 == nil {
		ref1 = nettime.New(nettime.Config{LoggerFactory: factory})
	}

	bridge := test.NewBridge()
	a := &Stub{conn: bridge.GetConn0(), ref: ref0, log: factory.NewLogger("driverstub"), channel: 11, ranges: default24GHzRanges, closed: make(chan struct{})}
	b := &Stub{conn: bridge.GetConn1(), ref: ref1, log: factory.NewLogger("driverstub"), channel: 11, ranges: default24GHzRanges, closed: make(chan struct{})}

	go a.readLoop()
	go b.readLoop()
	go pumpBridge(bridge, a.closed, b.closed)

	return a, b
}

// pumpBridge ticks the virtual medium forward, mirroring pkg/transport/
// pipe.go's autoProcess goroutine, until either endpoint closes.
func pumpBridge(bridge *test.Bridge, doneA, doneB <-chan struct{}) {
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-doneA:
			return
		case <-doneB:
			return
		case <-ticker.C:
			bridge.Tick()
		}
	}
}

func encodeStubFrame(channel uint16, payload []byte) []byte {
	buf := make([]byte, 4+len(payload))
	binary.BigEndian.PutUint16(buf[0:2], uint16(2+len(payload)))
	binary.BigEndian.PutUint16(buf[2:4], channel)
	copy(buf[4:], payload)
	return buf
}

// readLoop reads one whole stub frame per Read: the bridge is
// datagram-oriented and drops whatever a short Read leaves behind.
func (s *Stub) readLoop() {
	buf := make([]byte, 4096)
	for {
		n, err := s.conn.Read(buf)
		if err != nil {
			return
		}
		if n < 4 {
			continue
		}
		l := int(binary.BigEndian.Uint16(buf[0:2]))
		if l < 2 || 2+l > n {
			continue
		}
		channel := binary.BigEndian.Uint16(buf[2:4])
		payload := append([]byte(nil), buf[4:2+l]...)
		s.deliver(channel, payload)
	}
}

func (s *Stub) deliver(channel uint16, payload []byte) {
	s.mu.Lock()
	slot := s.slot
	s.mu.Unlock()
	if slot == nil || slot.channel != channel {
		s.log.Tracef("driverstub: dropping frame on channel %d, not listening", channel)
		return
	}
	pkt := Packet{Payload: payload, Channel: channel, RXAtNs: s.ref.GetTime()}
	slot.fn(pkt)
}

// Capabilities reports that Stub supports timed TX/RX and hardware
// auto-ACK, so every state-machine code path can be exercised against it.
func (s *Stub) Capabilities() Capabilities {
	return CapTimedTX | CapTimedRX | CapAutoAck
}

// SetChannel tunes the Stub; ErrNotSupported if ch is outside its
// configured ranges.
func (s *Stub) SetChannel(ch uint16) error {
	if !s.VerifyChannel(ch) {
		return ErrNotSupported
	}
	s.mu.Lock()
	s.channel = ch
	s.mu.Unlock()
	return nil
}

// CCA always reports the channel idle: the virtual medium has no
// contention model.
func (s *Stub) CCA() (CCAResult, error) {
	return CCAIdle, nil
}

// ConfigureRXSlot arms fn to receive any frame matching slot.Channel for
// slot.DurationNs, then automatically disarms.
func (s *Stub) ConfigureRXSlot(slot RXSlot, fn ReceiveFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.slot != nil && s.slot.timer != nil {
		s.slot.timer.Stop()
	}
	armed := &armedSlot{channel: slot.Channel, fn: fn}
	armed.timer = time.AfterFunc(time.Duration(slot.DurationNs), func() {
		s.mu.Lock()
		if s.slot == armed {
			s.slot = nil
		}
		s.mu.Unlock()
	})
	s.slot = armed
	return nil
}

// ConfigureExpectedRXTime records the hinted arrival time for the Stub's
// (simulated) auto-ACK logic.
func (s *Stub) ConfigureExpectedRXTime(ns uint64) error {
	s.mu.Lock()
	s.expected = ns
	s.mu.Unlock()
	return nil
}

// ConfigureEnhAckIE records the header IE bytes the Stub would attach to
// an auto-ACK.
func (s *Stub) ConfigureEnhAckIE(ie []byte) error {
	s.mu.Lock()
	s.ackIE = append([]byte(nil), ie...)
	s.mu.Unlock()
	return nil
}

// Send transmits pkt over the virtual medium, honoring a requested
// TXAtNs by blocking until that reference time, and stamps the actual
// transmission time back into pkt.TXAtNs.
func (s *Stub) Send(pkt *Packet) error {
	s.mu.Lock()
	ch := s.channel
	s.mu.Unlock()
	if pkt.Channel != 0 {
		ch = pkt.Channel
	}

	now := s.ref.GetTime()
	if pkt.TXAtNs > now {
		time.Sleep(time.Duration(pkt.TXAtNs - now))
	} else {
		pkt.TXAtNs = now
	}

	frame := encodeStubFrame(ch, pkt.Payload)
	_, err := s.conn.Write(frame)
	return err
}

// TimeReference returns the net-time reference this Stub's timed
// operations are scheduled against.
func (s *Stub) TimeReference() *nettime.Reference { return s.ref }

// CurrentChannelPage always reports page 0 (2.4 GHz O-QPSK), the only
// page default24GHzRanges describes.
func (s *Stub) CurrentChannelPage() uint8 { return s.page }

// VerifyChannel reports whether ch falls within a configured range.
func (s *Stub) VerifyChannel(ch uint16) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.ranges {
		if ch >= r.First && ch <= r.Last {
			return true
		}
	}
	return false
}

// SupportedChannelRanges returns the Stub's configured channel ranges.
func (s *Stub) SupportedChannelRanges() []ChannelRange {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ChannelRange(nil), s.ranges...)
}

// Close tears down the virtual link. Safe to call once per Stub; the
// other endpoint's reads simply start failing with io.EOF.
func (s *Stub) Close() error {
	select {
	case <-s.closed:
	default:
		close(s.closed)
	}
	return s.conn.Close()
}
