package frame

import (
	"encoding/binary"

	"github.com/ieee802154/tschmac/pkg/security"
)

// Auxiliary security header control-field bit layout (§9.4.2, spec.md §3).
const (
	ascLevelMask     = 0x7
	ascKeyModeShift  = 3
	ascKeyModeMask   = 0x3 << ascKeyModeShift
	ascFCSuppression = 1 << 5
	ascASNInNonce    = 1 << 6
)

// AuxSecurityHeader is the parsed auxiliary security header (§9.4). Only
// implicit key-id mode is modeled; the key identifier field is always
// zero-length.
type AuxSecurityHeader struct {
	Level        security.Level
	KeyIDMode    security.KeyIDMode
	FrameCounter uint32
}

// Size returns the on-wire length of the auxiliary security header: 1
// control byte + 4 frame-counter bytes + the key-id field length.
func (h AuxSecurityHeader) Size() int {
	return 1 + 4 + h.KeyIDMode.KeyIDFieldLen()
}

// parseAuxSecurityHeader parses the auxiliary security header from buf,
// returning the header and number of bytes consumed. Only implicit key-id
// mode is accepted; any other mode fails with ErrKeyIDMode (spec.md §4.1).
func parseAuxSecurityHeader(buf []byte) (AuxSecurityHeader, int, error) {
	if len(buf) < 5 {
		return AuxSecurityHeader{}, 0, ErrTruncated
	}
	control := buf[0]
	mode := security.KeyIDMode((control & ascKeyModeMask) >> ascKeyModeShift)
	if mode != security.ModeImplicit {
		return AuxSecurityHeader{}, 0, ErrKeyIDMode
	}
	h := AuxSecurityHeader{
		Level:        security.Level(control & ascLevelMask),
		KeyIDMode:    mode,
		FrameCounter: binary.LittleEndian.Uint32(buf[1:5]),
	}
	return h, h.Size(), nil
}

// writeAuxSecurityHeader emits h into buf, returning bytes written. buf
// must be at least h.Size() bytes.
func writeAuxSecurityHeader(buf []byte, h AuxSecurityHeader) int {
	control := byte(h.Level) & ascLevelMask
	control |= byte(h.KeyIDMode&0x3) << ascKeyModeShift
	buf[0] = control
	binary.LittleEndian.PutUint32(buf[1:5], h.FrameCounter)
	return h.Size()
}
