package frame

import (
	"github.com/ieee802154/tschmac/pkg/linkctx"
	"github.com/ieee802154/tschmac/pkg/security"
)

// EncodeDataFrame runs the complete outgoing path for a data frame (spec.md
// §4.1 write_mhr_and_security plus the §4.3 outgoing security procedure):
// it resolves addressing, writes the MHR, and — if the security
// sub-context is enabled — derives the nonce, seals payload with CCM*, and
// appends the authentication tag.
func EncodeDataFrame(ctx *linkctx.Context, dst, src Address, payload []byte) ([]byte, error) {
	params, llHdrLen, authTagLen, err := GetDataFrameParams(ctx, dst, src)
	if err != nil {
		return nil, err
	}
	return encodeSecured(ctx, TypeData, params, llHdrLen, authTagLen, payload)
}

// encodeSecured writes the MHR for frameType/params, then — if security is
// enabled — encrypts/authenticates payload in place and appends the
// result; otherwise it appends payload unmodified.
func encodeSecured(ctx *linkctx.Context, frameType Type, params FrameParams, llHdrLen, authTagLen int, payload []byte) ([]byte, error) {
	// The frame counter WriteMHRAndSecurity is about to stamp into the
	// aux header is read here, before the call advances it, since the
	// same value drives non-TSCH nonce derivation (spec.md §4.3).
	fc := ctx.Security().FrameCounter()

	buf := make([]byte, MTU)
	n, err := WriteMHRAndSecurity(ctx, frameType, params, buf, llHdrLen, authTagLen)
	if err != nil {
		return nil, err
	}

	if !params.SecurityEnabled {
		if n+len(payload) > MTU {
			return nil, ErrTooLong
		}
		copy(buf[n:], payload)
		return buf[:n+len(payload)], nil
	}

	nonce, err := deriveOutgoingNonce(ctx, params, fc)
	if err != nil {
		return nil, err
	}

	key := ctx.Security().Key
	sealed, err := security.EncryptOutgoing(key[:], nonce, buf[:n], payload, params.SecurityLevel)
	if err != nil {
		return nil, err
	}
	if n+len(sealed) > MTU {
		return nil, ErrTooLong
	}
	copy(buf[n:], sealed)
	return buf[:n+len(sealed)], nil
}

// deriveOutgoingNonce picks the TSCH or non-TSCH nonce-construction rule
// (spec.md §4.3) for an outgoing secured frame, keyed on whether the
// interface is currently in TSCH mode.
func deriveOutgoingNonce(ctx *linkctx.Context, params FrameParams, fc uint32) ([]byte, error) {
	if ctx.TSCH().Mode {
		asn := ctx.TSCH().ASN()
		if params.SrcAddrMode == AddrModeExtended {
			ext := params.SrcAddr.Extended
			return security.BuildNonceTSCH(ext[:], 0, 0, asn)
		}
		return security.BuildNonceTSCH(nil, params.SrcPAN, params.SrcAddr.Short, asn)
	}
	if params.SrcAddrMode != AddrModeExtended {
		return nil, security.ErrShortSourceUnsupported
	}
	ext := params.SrcAddr.Extended
	return security.BuildNonceNonTSCH(ext[:], fc, params.SecurityLevel)
}

// DecodeIncoming runs the complete incoming path for a received frame
// (spec.md §4.1 parse_mhr/filter/parse_payload plus the §4.3 incoming
// security procedure): parse the MHR, apply the destination filter,
// decrypt/verify if security is enabled, then parse the payload.
func DecodeIncoming(ctx *linkctx.Context, pkt []byte) (MPDU, FramePayload, error) {
	m, err := ParseMHR(pkt)
	if err != nil {
		return MPDU{}, FramePayload{}, err
	}
	if !Filter(ctx, m) {
		return MPDU{}, FramePayload{}, ErrFiltered
	}

	if m.Control.SecurityEnabled {
		if err := decodeSecured(ctx, &m, pkt); err != nil {
			return MPDU{}, FramePayload{}, err
		}
	}

	fp, err := ParsePayload(m)
	if err != nil {
		return MPDU{}, FramePayload{}, err
	}
	return m, fp, nil
}

// decodeSecured runs the §9.2.4/§9.2.5 incoming security procedure against
// an already-parsed MPDU, replacing m.MACPayload with the recovered
// plaintext (tag stripped) on success.
func decodeSecured(ctx *linkctx.Context, m *MPDU, pkt []byte) error {
	if !m.Control.Version.IsValid() || m.Control.Version != Version2015 {
		return ErrVersionGated
	}
	sec := ctx.Security()
	if sec.Level == security.LevelNone || sec.Level.Reserved() {
		return security.ErrReservedLevel
	}
	if m.Security == nil || m.Security.Level != sec.Level {
		return security.ErrLevelMismatch
	}

	headerLen := len(pkt) - len(m.MACPayload)
	nonce, err := deriveIncomingNonce(ctx, *m, headerLen)
	if err != nil {
		return err
	}

	key := sec.Key
	plain, err := security.DecryptIncoming(key[:], nonce, pkt[:headerLen], m.MACPayload, sec.Level)
	if err != nil {
		return err
	}
	m.MACPayload = plain
	return nil
}

// deriveIncomingNonce mirrors deriveOutgoingNonce for a received frame: the
// TSCH form uses the receiver's local ASN (synchronized to the sender's by
// construction), the non-TSCH form uses the frame counter carried on the
// wire in the frame's own auxiliary security header.
func deriveIncomingNonce(ctx *linkctx.Context, m MPDU, headerLen int) ([]byte, error) {
	_ = headerLen
	if ctx.TSCH().Mode {
		asn := ctx.TSCH().ASN()
		if m.SrcAddr.Mode == AddrModeExtended {
			ext := m.SrcAddr.Extended
			return security.BuildNonceTSCH(ext[:], 0, 0, asn)
		}
		return security.BuildNonceTSCH(nil, m.SrcPAN, m.SrcAddr.Short, asn)
	}
	if m.SrcAddr.Mode != AddrModeExtended {
		return nil, security.ErrShortSourceUnsupported
	}
	ext := m.SrcAddr.Extended
	return security.BuildNonceNonTSCH(ext[:], m.Security.FrameCounter, m.Security.Level)
}
