package frame

import "github.com/ieee802154/tschmac/pkg/ie"

// FramePayload is the result of parse_payload's version-and-type dispatch
// (spec.md §4.1): it separates the payload-IE region (if present) from
// the trailing frame payload and, for a MAC command, decodes the CFI.
type FramePayload struct {
	PayloadIEs []byte // raw bytes, further parsed by pkg/ie.ParsePayloadIEs
	Payload    []byte // frame payload proper, excluding payload IEs

	CFI CFI // valid iff Control.Type == TypeMACCommand
}

// ParsePayload applies parse_payload's dispatch rules: a data frame must
// carry a non-empty payload, an ACK must carry none, and a MAC command's
// CFI and per-CFI addressing constraints are validated (spec.md §4.1,
// §7.5). Pre-2015 beacon superframe fields (GTS descriptors, pending
// address specification) are out of scope (spec.md §1 Non-goals); the
// beacon's payload region is returned unparsed for the caller to inspect
// via pkg/ie directly.
func ParsePayload(m MPDU) (FramePayload, error) {
	payloadIEs, payload, err := splitPayloadIEs(m)
	if err != nil {
		return FramePayload{}, err
	}

	switch m.Control.Type {
	case TypeData:
		if len(payload) == 0 {
			return FramePayload{}, ErrEmptyPayload
		}
		return FramePayload{PayloadIEs: payloadIEs, Payload: payload}, nil

	case TypeAck:
		if len(payload) != 0 {
			return FramePayload{}, ErrNonEmptyAck
		}
		return FramePayload{}, nil

	case TypeMACCommand:
		if len(payload) == 0 {
			return FramePayload{}, ErrBadCommand
		}
		cfi := CFI(payload[0])
		c, ok := cmdConstraints[cfi]
		if !ok {
			return FramePayload{}, ErrBadCommand
		}
		if c.requireDst && !m.DstAddr.Mode.Present() {
			return FramePayload{}, ErrBadCommand
		}
		if m.DstAddr.IsBroadcast() && !c.allowBroadcastDst {
			return FramePayload{}, ErrBadCommand
		}
		return FramePayload{PayloadIEs: payloadIEs, Payload: payload[1:], CFI: cfi}, nil

	case TypeBeacon:
		return FramePayload{PayloadIEs: payloadIEs, Payload: payload}, nil

	default:
		return FramePayload{}, ErrReservedType
	}
}

// splitPayloadIEs separates m.MACPayload into the payload-IE region (if
// PayloadIEPresent) and the trailing frame payload, using
// pkg/ie.ParsePayloadIEs to find the payload-termination boundary.
func splitPayloadIEs(m MPDU) (payloadIEs, payload []byte, err error) {
	if !m.PayloadIEPresent {
		return nil, m.MACPayload, nil
	}
	_, consumed, err := ie.ParsePayloadIEs(m.MACPayload)
	if err != nil {
		return nil, nil, err
	}
	return m.MACPayload[:consumed], m.MACPayload[consumed:], nil
}
