// Package schedule implements the TSCH schedule store (spec.md §4.4): an
// ordered slotframe table and, per slotframe, an ordered link table, with
// O(handle) CRUD.
package schedule

// NodeAddrMode mirrors pkg/frame.AddrMode without importing pkg/frame,
// which itself depends on pkg/linkctx which depends on this package —
// importing frame here would close that cycle.
type NodeAddrMode uint8

const (
	NodeAddrNone     NodeAddrMode = 0
	NodeAddrShort    NodeAddrMode = 2
	NodeAddrExtended NodeAddrMode = 3
)

// NodeAddr is a link's neighbor address, independent of the frame codec's
// own Address type (see NodeAddrMode).
type NodeAddr struct {
	Mode     NodeAddrMode
	Short    uint16
	Extended [8]byte
}

// ShortAddrBroadcast mirrors frame.ShortAddrBroadcast.
const ShortAddrBroadcast uint16 = 0xFFFF

// IsBroadcast reports whether the address is the reserved short-address
// broadcast value.
func (a NodeAddr) IsBroadcast() bool {
	return a.Mode == NodeAddrShort && a.Short == ShortAddrBroadcast
}

// BroadcastAddr is the reserved short-address broadcast value.
func BroadcastAddr() NodeAddr {
	return NodeAddr{Mode: NodeAddrShort, Short: ShortAddrBroadcast}
}

// Key returns a value comparable with ==, suitable as a map key identifying
// this neighbor (e.g. for the per-neighbor TX queue table).
func (a NodeAddr) Key() NodeAddr {
	if a.Mode == NodeAddrShort {
		return NodeAddr{Mode: NodeAddrShort, Short: a.Short}
	}
	return a
}

// Link is a single TSCH link: one slot in a slotframe, identifying a
// (slotframe, timeslot, channel-offset, neighbor, direction) tuple
// (spec.md §3 TSCH link).
type Link struct {
	Handle          uint16
	SlotframeHandle uint8
	Timeslot        uint16
	ChannelOffset   uint16
	Node            NodeAddr

	TX          bool
	RX          bool
	Shared      bool
	Timekeeping bool
	Priority    bool
	Advertising bool
	Advertise   bool
}

// Valid reports whether l satisfies the TSCH link invariant: at least one
// of TX/RX must be set.
func (l Link) Valid() bool {
	return l.TX || l.RX
}

// EffectiveAckRequest reports whether a TX link's outgoing frames should
// request an ACK, given the context's ack-requested preference. A tx link
// whose destination is broadcast always has its ack-request forced off
// (spec.md §3 TSCH link invariant).
func (l Link) EffectiveAckRequest(ctxWantsAck bool) bool {
	if l.Node.IsBroadcast() {
		return false
	}
	return ctxWantsAck
}

// less orders links by (Timeslot, Handle) ascending, the sort order the
// schedule store maintains per slotframe (spec.md §4.4).
func (l Link) less(o Link) bool {
	if l.Timeslot != o.Timeslot {
		return l.Timeslot < o.Timeslot
	}
	return l.Handle < o.Handle
}
