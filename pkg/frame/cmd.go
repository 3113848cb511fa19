package frame

import "github.com/ieee802154/tschmac/pkg/linkctx"

// cmdConstraint captures the per-CFI addressing constraints enforced by
// CreateMACCmdFrame (spec.md §4.1, §7.5.1-§7.5.11): which addressing
// fields a command of that type requires, and whether a broadcast
// destination is permitted.
type cmdConstraint struct {
	requireDst         bool
	requireSrcExtended bool // association handshakes run before a short address exists
	allowBroadcastDst  bool
}

var cmdConstraints = map[CFI]cmdConstraint{
	CFIAssociationRequest:   {requireDst: true, requireSrcExtended: true},
	CFIAssociationResponse:  {requireDst: true},
	CFIDisassociationNotify: {requireDst: true},
	CFIDataRequest:          {requireDst: true},
	CFIPANIDConflictNotify:  {requireDst: true},
	CFIOrphanNotification:   {requireSrcExtended: true, allowBroadcastDst: true},
	CFIBeaconRequest:        {allowBroadcastDst: true},
	CFICoordinatorRealign:   {requireSrcExtended: true, allowBroadcastDst: true},
	CFIGTSRequest:           {requireDst: true},
}

// MACCmdFrame is an in-progress MAC command frame: the MHR has been
// written, and Payload is the region the caller fills with the per-CFI
// command fields before calling Finalize.
type MACCmdFrame struct {
	buf     []byte
	hdrLen  int
	cmdLen  int // not set by any method; Finalize takes the command length as its argument
}

// CFIOffset is the offset of the command-frame-identifier byte.
func (f *MACCmdFrame) CFIOffset() int { return f.hdrLen }

// Payload is the buffer region available for per-CFI command fields,
// starting immediately after the command-frame identifier byte.
func (f *MACCmdFrame) Payload() []byte { return f.buf[f.hdrLen+1:] }

// Finalize truncates the buffer to the header, CFI byte, and cmdLen bytes
// of caller-written command fields, returning the complete packet.
func (f *MACCmdFrame) Finalize(cmdLen int) []byte {
	return f.buf[:f.hdrLen+1+cmdLen]
}

// CreateMACCmdFrame allocates a max-MTU buffer and writes the MHR
// followed by the command-frame identifier byte, enforcing the per-CFI
// addressing constraints (spec.md §4.1). The caller fills Payload() with
// the per-CFI command fields and calls Finalize with their length.
func CreateMACCmdFrame(ctx *linkctx.Context, cfi CFI, dst Address) (*MACCmdFrame, error) {
	c, ok := cmdConstraints[cfi]
	if !ok {
		return nil, ErrBadCommand
	}
	if c.requireDst && !dst.Mode.Present() {
		return nil, ErrBadCommand
	}
	if dst.IsBroadcast() && !c.allowBroadcastDst {
		return nil, ErrBadCommand
	}

	src := Address{}
	if c.requireSrcExtended {
		src = ExtendedAddress(ctx.ExtAddr())
	}

	params, llHdrLen, authTagLen, err := getCommandFrameParams(ctx, dst, src)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, MTU)
	n, err := WriteMHRAndSecurity(ctx, TypeMACCommand, params, buf, llHdrLen, authTagLen)
	if err != nil {
		return nil, err
	}
	buf[n] = byte(cfi)

	return &MACCmdFrame{buf: buf, hdrLen: n}, nil
}

// getCommandFrameParams resolves addressing for a MAC command frame. Once
// associated it defers to GetDataFrameParams. Before association (no
// short address yet, e.g. an association request) it always sources from
// the extended address, leaves an absent destination absent instead of
// substituting broadcast, and never sets AckRequested.
func getCommandFrameParams(ctx *linkctx.Context, dst, src Address) (FrameParams, int, int, error) {
	if ctx.IsAssociated() {
		return GetDataFrameParams(ctx, dst, src)
	}

	srcMode := AddrModeExtended
	srcAddr := ExtendedAddress(ctx.ExtAddr())

	dstPAN := ctx.PANID()
	panIDComp := computePANIDComp(dst.Mode, srcMode, dstPAN, dstPAN)
	hasDstPAN, hasSrcPAN := resolvePANPresence(dst.Mode, srcMode, panIDComp)

	sec := ctx.Security()
	secEnabled := sec.Enabled()

	// See GetDataFrameParams: a secured frame must use the 2015 format.
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
		SrcPAN:            dstPAN,
		SrcAddr:            srcAddr,
		HasSequenceNumber: true,
		SecurityEnabled:   secEnabled,
		SecurityLevel:     sec.Level,
	}
	llHdrLen := ComputeHeaderSize(params, params.SecurityEnabled)
	authTagLen := 0
	if params.SecurityEnabled {
		authTagLen = sec.Level.AuthTagLen()
	}
	return params, llHdrLen, authTagLen, nil
}
