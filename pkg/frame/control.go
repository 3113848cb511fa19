package frame

import "encoding/binary"

// Frame control bit layout (spec.md §3, §6; IEEE 802.15.4-2015 §7.2.2),
// packed little-endian across the two-byte field.
const (
	fcTypeShift    = 0
	fcTypeMask     = 0x7
	fcSecurity     = 1 << 3
	fcPending      = 1 << 4
	fcAckReq       = 1 << 5
	fcPANIDComp    = 1 << 6
	fcReserved     = 1 << 7
	fcSeqSuppr     = 1 << 8
	fcIEPresent    = 1 << 9
	fcDstModeShift = 10
	fcDstModeMask  = 0x3 << fcDstModeShift
	fcVersionShift = 12
	fcVersionMask  = 0x3 << fcVersionShift
	fcSrcModeShift = 14
	fcSrcModeMask  = 0x3 << fcSrcModeShift
)

// ControlSize is the on-wire length of the frame control field in bytes.
const ControlSize = 2

// Control is the version-independent decoded form of the frame control
// field (spec.md §3 Frame-control).
type Control struct {
	Type              Type
	Version           Version
	DstAddrMode       AddrMode
	SrcAddrMode       AddrMode
	HasDstPAN         bool
	HasSrcPAN         bool
	PANIDCompression  bool
	SecurityEnabled   bool
	FramePending      bool
	AckRequested      bool
	HasSequenceNumber bool
	IEPresent         bool
}

// decodeControl parses the raw frame control bits and, together with the
// resolved PAN-id presence rules of §7.2.2.6, produces the version-
// independent decoded form. It does not itself perform the cross-field
// rejections of ParseMHR; callers that need those must call them
// separately.
func decodeControl(raw uint16) Control {
	dstMode := AddrMode((raw & fcDstModeMask) >> fcDstModeShift)
	srcMode := AddrMode((raw & fcSrcModeMask) >> fcSrcModeShift)
	version := Version((raw & fcVersionMask) >> fcVersionShift)
	panIDComp := raw&fcPANIDComp != 0

	hasDstPAN, hasSrcPAN := resolvePANPresence(dstMode, srcMode, panIDComp)

	return Control{
		Type:              Type((raw >> fcTypeShift) & fcTypeMask),
		Version:           version,
		DstAddrMode:       dstMode,
		SrcAddrMode:       srcMode,
		HasDstPAN:         hasDstPAN,
		HasSrcPAN:         hasSrcPAN,
		PANIDCompression:  panIDComp,
		SecurityEnabled:   raw&fcSecurity != 0,
		FramePending:      raw&fcPending != 0,
		AckRequested:      raw&fcAckReq != 0,
		HasSequenceNumber: raw&fcSeqSuppr == 0,
		IEPresent:         raw&fcIEPresent != 0,
	}
}

// resolvePANPresence implements §7.2.2.6: whether the destination and
// source PAN id fields are present, given the two addressing modes and
// the PAN ID Compression bit.
func resolvePANPresence(dstMode, srcMode AddrMode, panIDComp bool) (hasDstPAN, hasSrcPAN bool) {
	bothPresent := dstMode.Present() && srcMode.Present()
	if bothPresent {
		return true, !panIDComp
	}
	return dstMode.Present(), srcMode.Present()
}

// panIDCompValid reports whether panIDComp is a legal value for the given
// addressing modes: it may only be set when both addresses are present.
func panIDCompValid(dstMode, srcMode AddrMode, panIDComp bool) bool {
	bothPresent := dstMode.Present() && srcMode.Present()
	return bothPresent || !panIDComp
}

// computePANIDComp derives the PAN ID Compression bit for an outgoing
// frame from the two addressing modes and PAN ids (§7.2.2.6): set when
// both addresses are present and share the same PAN id.
func computePANIDComp(dstMode, srcMode AddrMode, dstPAN, srcPAN uint16) bool {
	return dstMode.Present() && srcMode.Present() && dstPAN == srcPAN
}

// encode packs c back into the raw 16-bit frame control value.
func (c Control) encode() uint16 {
	var raw uint16
	raw |= uint16(c.Type&fcTypeMask) << fcTypeShift
	if c.SecurityEnabled {
		raw |= fcSecurity
	}
	if c.FramePending {
		raw |= fcPending
	}
	if c.AckRequested {
		raw |= fcAckReq
	}
	if c.PANIDCompression {
		raw |= fcPANIDComp
	}
	if !c.HasSequenceNumber {
		raw |= fcSeqSuppr
	}
	if c.IEPresent {
		raw |= fcIEPresent
	}
	raw |= uint16(c.DstAddrMode&0x3) << fcDstModeShift
	raw |= uint16(c.Version&0x3) << fcVersionShift
	raw |= uint16(c.SrcAddrMode&0x3) << fcSrcModeShift
	return raw
}

// putControl writes c's raw encoding into buf[0:2], little-endian.
func putControl(buf []byte, c Control) {
	binary.LittleEndian.PutUint16(buf, c.encode())
}
