package frame

import (
	"encoding/binary"

	"github.com/ieee802154/tschmac/pkg/ie"
	"github.com/ieee802154/tschmac/pkg/linkctx"
	"github.com/ieee802154/tschmac/pkg/security"
)

// MTU is the maximum PHY payload size, including the trailing FCS
// (spec.md §6).
const MTU = 127

// MPDU is a parsed MAC Protocol Data Unit (spec.md §3 "Parsed frame"): a
// parsed header plus non-owning views into the raw packet buffer for the
// MAC payload. It must not outlive the buffer it was parsed from.
type MPDU struct {
	Control  Control
	Sequence uint8 // valid iff Control.HasSequenceNumber

	DstPAN  uint16
	DstAddr Address
	SrcPAN  uint16
	SrcAddr Address

	Security *AuxSecurityHeader // nil iff !Control.SecurityEnabled

	HeaderIEs        []ie.HeaderIE
	PayloadIEPresent bool

	// MACPayload is everything after the header and header IEs: payload
	// IEs (if PayloadIEPresent) followed by the frame payload, followed
	// by any security authentication tag.
	MACPayload []byte
}

// ParseMHR parses the MAC header of pkt (spec.md §4.1). It rejects MPDUs
// outside [2, 127] bytes, reserved frame types/versions/addressing modes,
// and the cross-field combinations the 2015 standard forbids. A pre-2015
// MAC command frame with frame-pending set has that bit silently cleared
// in pkt (in-place repair), matching parse_fcf_seq's documented behavior.
func ParseMHR(pkt []byte) (MPDU, error) {
	if len(pkt) < 2 {
		return MPDU{}, ErrTooShort
	}
	if len(pkt) > MTU {
		return MPDU{}, ErrTooLong
	}

	raw := binary.LittleEndian.Uint16(pkt[0:2])
	ctrl := decodeControl(raw)

	if !ctrl.Type.IsValid() {
		return MPDU{}, ErrReservedType
	}
	if !ctrl.Version.IsValid() {
		return MPDU{}, ErrReservedVersion
	}
	if !ctrl.DstAddrMode.IsValid() || !ctrl.SrcAddrMode.IsValid() {
		return MPDU{}, ErrInvalidAddrMode
	}

	if ctrl.Type == TypeData && ctrl.Version != Version2015 &&
		!ctrl.DstAddrMode.Present() && !ctrl.SrcAddrMode.Present() {
		return MPDU{}, ErrInvalidDataFrame
	}
	if ctrl.Type == TypeBeacon && ctrl.Version != Version2015 &&
		(ctrl.DstAddrMode.Present() || !ctrl.SrcAddrMode.Present() || ctrl.PANIDCompression) {
		return MPDU{}, ErrInvalidBeacon
	}
	if ctrl.Type == TypeMACCommand && ctrl.Version.Pre2015() && ctrl.FramePending {
		ctrl.FramePending = false
		clearFramePendingBit(pkt)
	}

	if !panIDCompValid(ctrl.DstAddrMode, ctrl.SrcAddrMode, ctrl.PANIDCompression) {
		return MPDU{}, ErrInvalidPANIDComp
	}
	if (!ctrl.HasSequenceNumber || ctrl.IEPresent) && ctrl.Version != Version2015 {
		return MPDU{}, ErrVersionGated
	}

	cursor := ControlSize

	var sequence uint8
	if ctrl.HasSequenceNumber {
		if len(pkt)-cursor < 1 {
			return MPDU{}, ErrTruncated
		}
		sequence = pkt[cursor]
		cursor++
	}

	var dstPAN uint16
	if ctrl.HasDstPAN {
		if len(pkt)-cursor < 2 {
			return MPDU{}, ErrTruncated
		}
		dstPAN = binary.LittleEndian.Uint16(pkt[cursor:])
		cursor += 2
	}
	dstAddr, n, err := readAddress(pkt[cursor:], ctrl.DstAddrMode)
	if err != nil {
		return MPDU{}, err
	}
	cursor += n

	var srcPAN uint16
	if ctrl.HasSrcPAN {
		if len(pkt)-cursor < 2 {
			return MPDU{}, ErrTruncated
		}
		srcPAN = binary.LittleEndian.Uint16(pkt[cursor:])
		cursor += 2
	}
	srcAddr, n, err := readAddress(pkt[cursor:], ctrl.SrcAddrMode)
	if err != nil {
		return MPDU{}, err
	}
	cursor += n

	var aux *AuxSecurityHeader
	if ctrl.SecurityEnabled {
		h, n, err := parseAuxSecurityHeader(pkt[cursor:])
		if err != nil {
			return MPDU{}, err
		}
		aux = &h
		cursor += n
	}

	var headerIEs []ie.HeaderIE
	var payloadIEPresent bool
	if ctrl.IEPresent {
		ies, present, n, err := ie.ParseHeaderIEs(pkt[cursor:])
		if err != nil {
			return MPDU{}, err
		}
		headerIEs = ies
		payloadIEPresent = present
		cursor += n
	}

	return MPDU{
		Control:          ctrl,
		Sequence:         sequence,
		DstPAN:           dstPAN,
		DstAddr:          dstAddr,
		SrcPAN:           srcPAN,
		SrcAddr:          srcAddr,
		Security:         aux,
		HeaderIEs:        headerIEs,
		PayloadIEPresent: payloadIEPresent,
		MACPayload:       pkt[cursor:],
	}, nil
}

// clearFramePendingBit repairs a malformed pre-2015 MAC command frame's
// frame-pending bit directly in the buffer, mirroring parse_fcf_seq's
// in-place repair.
func clearFramePendingBit(pkt []byte) {
	raw := binary.LittleEndian.Uint16(pkt[0:2])
	raw &^= fcPending
	binary.LittleEndian.PutUint16(pkt[0:2], raw)
}

// Filter reports whether an incoming frame should be accepted by the
// interface (spec.md §4.1): its destination PAN and address must be
// broadcast or ours, and its addressing must cohere with our role (e.g.
// an orphan notification only makes sense addressed to a coordinator).
// Filter is idempotent: calling it twice on the same MPDU yields the same
// verdict, since it only reads ctx and m.
func Filter(ctx *linkctx.Context, m MPDU) bool {
	if m.Control.HasDstPAN {
		ourPAN := ctx.PANID()
		if m.DstPAN != ShortAddrBroadcast && m.DstPAN != ourPAN {
			return false
		}
	}

	switch m.DstAddr.Mode {
	case AddrModeShort:
		if !m.DstAddr.IsBroadcast() && m.DstAddr.Short != ctx.ShortAddr() {
			return false
		}
	case AddrModeExtended:
		if m.DstAddr.Extended != ctx.ExtAddr() {
			return false
		}
	}

	if m.Control.Type == TypeMACCommand && !m.DstAddr.Mode.Present() {
		role := ctx.Role()
		if role != linkctx.RoleCoordinator && role != linkctx.RolePANCoordinator {
			return false
		}
	}

	return true
}

// ComputeHeaderSize deterministically computes the MHR length for the
// given parameters: the same addressing-mode rules write_mhr applies, plus
// the auxiliary security header length when encrypted (spec.md §4.1).
func ComputeHeaderSize(params FrameParams, encrypted bool) int {
	size := ControlSize
	if params.HasSequenceNumber {
		size++
	}
	if params.HasDstPAN {
		size += 2
	}
	size += params.DstAddrMode.Size()
	if params.HasSrcPAN {
		size += 2
	}
	size += params.SrcAddrMode.Size()
	if encrypted {
		size += 1 + 4 + params.KeyIDMode.KeyIDFieldLen()
	}
	return size
}

// FrameParams is the addressing/version decision for an outgoing frame,
// as resolved by GetDataFrameParams and consumed by ComputeHeaderSize and
// WriteMHRAndSecurity.
type FrameParams struct {
	Version Version

	DstAddrMode AddrMode
	SrcAddrMode AddrMode
	HasDstPAN   bool
	HasSrcPAN   bool
	PANIDComp   bool

	DstPAN  uint16
	DstAddr Address
	SrcPAN  uint16
	SrcAddr Address

	HasSequenceNumber bool
	AckRequested      bool

	SecurityEnabled bool
	SecurityLevel   security.Level
	KeyIDMode       security.KeyIDMode
}

// GetDataFrameParams resolves the outgoing addressing decision for a data
// frame from the interface's association state (spec.md §4.1): the source
// addressing mode follows from whether a short address is assigned, a
// caller-supplied source address must match the interface's address
// exactly, and an empty destination becomes the broadcast short address.
func GetDataFrameParams(ctx *linkctx.Context, dst Address, src Address) (FrameParams, int, int, error) {
	if !ctx.IsAssociated() {
		return FrameParams{}, 0, 0, ErrNotAssociated
	}

	var srcMode AddrMode
	var srcAddr Address
	short := ctx.ShortAddr()
	if short != linkctx.ShortAddrUnassociated && short != linkctx.ShortAddrNoShort {
		srcMode = AddrModeShort
		srcAddr = ShortAddress(short)
	} else {
		srcMode = AddrModeExtended
		srcAddr = ExtendedAddress(ctx.ExtAddr())
	}

	if src.Mode.Present() {
		if src.Mode != srcAddr.Mode || src != srcAddr {
			return FrameParams{}, 0, 0, ErrAddrMismatch
		}
	}

	if !dst.Mode.Present() {
		dst = BroadcastAddress()
	}

	dstPAN := ctx.PANID()
	srcPAN := dstPAN
	panIDComp := computePANIDComp(dst.Mode, srcMode, dstPAN, srcPAN)
	hasDstPAN, hasSrcPAN := resolvePANPresence(dst.Mode, srcMode, panIDComp)

	ackRequested := !dst.IsBroadcast() && ctx.AckRequested()

	sec := ctx.Security()
	secEnabled := sec.Enabled()

	// Ordinary data frames use the 2006 frame format (§9.2.4 gates the
	// incoming security procedure on version 2015+, so a secured frame
	// must be built in that format; an unsecured one stays pre-2015).
	version := Version2006
	if secEnabled {
		version = Version2015
	}

	params := FrameParams{
		Version:           version,
		DstAddrMode:       dst.Mode,
		SrcAddrMode:       srcMode,
		HasDstPAN:         hasDstPAN,
		HasSrcPAN:         hasSrcPAN,
		PANIDComp:         panIDComp,
		DstPAN:            dstPAN,
		DstAddr:           dst,
		SrcPAN:            srcPAN,
		SrcAddr:           srcAddr,
		HasSequenceNumber: true,
		AckRequested:      ackRequested,
		SecurityEnabled:   secEnabled,
		SecurityLevel:     sec.Level,
		KeyIDMode:         security.ModeImplicit,
	}

	llHdrLen := ComputeHeaderSize(params, secEnabled)
	authTagLen := 0
	if secEnabled {
		authTagLen = sec.Level.AuthTagLen()
	}
	return params, llHdrLen, authTagLen, nil
}

// WriteMHRAndSecurity emits the MHR for frameType/params into buffer,
// including the auxiliary security header (and advancing the outgoing
// frame counter) if params.SecurityEnabled, and returns the
// number of header bytes written (always llHdrLen on success). It panics
// if the bytes written would not equal llHdrLen exactly: that mismatch
// indicates an upstream size-computation bug, not a recoverable input
// error (spec.md §4.1, §7).
func WriteMHRAndSecurity(ctx *linkctx.Context, frameType Type, params FrameParams, buffer []byte, llHdrLen, authTagLen int) (int, error) {
	if len(buffer) < llHdrLen {
		panic("frame: WriteMHRAndSecurity: buffer shorter than computed header length")
	}

	var sequence uint8
	if params.HasSequenceNumber && frameType != TypeAck {
		sequence = ctx.NextSequence()
	}

	ctrl := Control{
		Type:              frameType,
		Version:           params.Version,
		DstAddrMode:       params.DstAddrMode,
		SrcAddrMode:       params.SrcAddrMode,
		HasDstPAN:         params.HasDstPAN,
		HasSrcPAN:         params.HasSrcPAN,
		PANIDCompression:  params.PANIDComp,
		SecurityEnabled:   params.SecurityEnabled,
		AckRequested:      params.AckRequested,
		HasSequenceNumber: params.HasSequenceNumber,
	}

	cursor := 0
	putControl(buffer, ctrl)
	cursor += ControlSize

	if params.HasSequenceNumber {
		buffer[cursor] = sequence
		cursor++
	}

	if params.HasDstPAN {
		binary.LittleEndian.PutUint16(buffer[cursor:], params.DstPAN)
		cursor += 2
	}
	cursor += writeAddress(buffer[cursor:], params.DstAddr)

	if params.HasSrcPAN {
		binary.LittleEndian.PutUint16(buffer[cursor:], params.SrcPAN)
		cursor += 2
	}
	cursor += writeAddress(buffer[cursor:], params.SrcAddr)

	if params.SecurityEnabled {
		fc, err := ctx.Security().NextFrameCounter()
		if err != nil {
			return 0, err
		}
		aux := AuxSecurityHeader{Level: params.SecurityLevel, KeyIDMode: params.KeyIDMode, FrameCounter: fc}
		cursor += writeAuxSecurityHeader(buffer[cursor:], aux)
	}

	if cursor != llHdrLen {
		panic("frame: WriteMHRAndSecurity: header size mismatch with ComputeHeaderSize")
	}
	return cursor, nil
}
