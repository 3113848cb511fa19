// Package driver defines the radio driver trait the TSCH state machine
// operates against (spec.md §6): hardware capability discovery, channel
// and CCA control, timed RX-slot configuration, timed transmission, and
// the counters/time reference backing the state machine's scheduling
// decisions. The real silicon implementation is out of scope; this
// package only names the contract and provides Stub, an in-memory
// implementation for tests and the demo binary.
package driver

import (
	"errors"

	"github.com/ieee802154/tschmac/pkg/nettime"
	"github.com/ieee802154/tschmac/pkg/tsch/schedule"
)

// Capabilities is a bitmask of hardware features GetHWCapabilities
// reports (spec.md §6).
type Capabilities uint8

const (
	// CapTimedTX means Send honors Packet.TXAtNs, transmitting at a
	// precisely scheduled radio-counter timepoint rather than immediately.
	CapTimedTX Capabilities = 1 << 0
	// CapTimedRX means ConfigureRXSlot arms a receive window at a
	// scheduled start time rather than listening immediately.
	CapTimedRX Capabilities = 1 << 1
	// CapAutoAck means the radio replies to a received unicast frame with
	// an enhanced ACK in hardware, using the header IE ConfigureEnhAckIE
	// installed, without MAC-layer intervention.
	CapAutoAck Capabilities = 1 << 2
)

// Has reports whether bit is set.
func (c Capabilities) Has(bit Capabilities) bool { return c&bit != 0 }

// CCAResult is the outcome of a clear-channel assessment.
type CCAResult int

const (
	CCAIdle CCAResult = iota
	CCABusy
)

// ErrNotSupported is returned by an operation the driver's capabilities
// do not cover (spec.md §6, §7 NotSupported kind).
var ErrNotSupported = errors.New("driver: operation not supported by this radio's capabilities")

// RXSlot configures a timed receive window (spec.md §6 RX_SLOT).
type RXSlot struct {
	StartNs    uint64
	DurationNs uint64
	Channel    uint16
}

// Packet is a single over-the-air MAC frame, timestamped on both the
// outgoing and incoming path (spec.md §6).
type Packet struct {
	Payload []byte
	Channel uint16

	// TXAtNs requests a timed transmission at this reference-time
	// nanosecond; 0 means "as soon as possible". Send stamps the actual
	// transmission time back into TXAtNs before returning.
	TXAtNs uint64

	// RXAtNs is the reference-time nanosecond the driver captured this
	// packet's first symbol at, valid only on packets delivered to a
	// ReceiveFunc.
	RXAtNs uint64
}

// ReceiveFunc is invoked for every frame a driver's receive window
// delivers.
type ReceiveFunc func(pkt Packet)

// ChannelRange is an inclusive [First, Last] supported channel range
// (spec.md §6 get_supported_channel_ranges).
type ChannelRange struct {
	First, Last uint16
}

// Driver is the MAC layer's view of the radio (spec.md §6). All methods
// must be safe for concurrent use; the TSCH state machine is the only
// caller, but association/scanning may run concurrently with an
// already-operating state machine on the same interface.
type Driver interface {
	// Capabilities reports which optional behaviors this radio supports.
	Capabilities() Capabilities

	// SetChannel tunes the radio to ch, taking effect before the next
	// Send or ConfigureRXSlot.
	SetChannel(ch uint16) error

	// CCA performs a single clear-channel assessment on the currently
	// tuned channel.
	CCA() (CCAResult, error)

	// ConfigureRXSlot arms a timed receive window. fn is invoked once per
	// frame received within it; the window closes automatically after
	// DurationNs elapses.
	ConfigureRXSlot(slot RXSlot, fn ReceiveFunc) error

	// ConfigureExpectedRXTime hints the driver's auto-ACK logic (if
	// CapAutoAck) at the nanosecond a frame is expected to arrive, so the
	// driver can compute the enhanced ACK's time-correction field itself.
	ConfigureExpectedRXTime(ns uint64) error

	// ConfigureEnhAckIE installs the header IE bytes the driver's
	// auto-ACK logic attaches to outgoing enhanced ACKs.
	ConfigureEnhAckIE(ie []byte) error

	// Send transmits pkt, blocking until it has gone out (or its timed
	// slot has passed, for CapTimedTX drivers). The driver stamps the
	// actual transmission time into pkt.TXAtNs.
	Send(pkt *Packet) error

	// TimeReference returns the net-time reference this driver's timed
	// operations are scheduled against.
	TimeReference() *nettime.Reference

	// CurrentChannelPage reports the channel page currently in use.
	CurrentChannelPage() uint8

	// VerifyChannel reports whether ch is within a supported range.
	VerifyChannel(ch uint16) bool

	// SupportedChannelRanges lists the channel ranges this radio can
	// tune to, on its current channel page.
	SupportedChannelRanges() []ChannelRange
}

// NodeAddr re-exports schedule.NodeAddr so callers configuring a driver
// do not need to import the schedule package solely for addressing.
type NodeAddr = schedule.NodeAddr
