// Package linkctx implements the link-layer context (spec.md §3, §4.8):
// the per-interface shared PAN/address/channel/sequence/frame-counter
// state, protected by a single context lock, plus a separately-locked
// scan sub-state.
package linkctx

// Role is the device's role within the PAN (spec.md §3). Defined locally
// rather than imported from pkg/frame, since pkg/frame depends on this
// package for its codec operations and importing frame here would close
// that cycle.
type Role uint8

const (
	RoleEndDevice      Role = 0
	RoleCoordinator    Role = 1
	RolePANCoordinator Role = 2
)

// Reserved 16-bit short address values (spec.md §3), mirrored from
// pkg/frame for the same reason as Role.
const (
	ShortAddrUnassociated uint16 = 0xFFFF
	ShortAddrNoShort      uint16 = 0xFFFE
	ShortAddrBroadcast    uint16 = 0xFFFF
)

// AddrMode mirrors pkg/frame.AddrMode for coordinator address presence.
type AddrMode uint8

const (
	AddrModeNone     AddrMode = 0
	AddrModeShort    AddrMode = 2
	AddrModeExtended AddrMode = 3
)
