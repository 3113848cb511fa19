package ie

import "encoding/binary"

// Payload IE group ids (spec.md §4.2; §7.4.3.1 table 7-17, partial list).
const (
	GroupMLME               = 0x1
	GroupPayloadTermination = 0xf
)

// Payload IE bit layout: bits 0-10 length, bits 11-14 group id, bit 15
// type (always 1 for a payload IE).
const (
	pldLengthMask   = 0x7ff
	pldGroupShift   = 11
	pldGroupMask    = 0xf << pldGroupShift
	pldTypeBit      = 1 << 15
)

// PayloadIE is a single parsed payload information element.
type PayloadIE struct {
	GroupID uint8
	Content []byte // non-owning view into the source buffer
}

// ParsePayloadIEs walks buf parsing payload IEs until a Payload
// Termination IE or the buffer is exhausted (spec.md §4.2). Unsupported
// group ids are skipped by consuming their declared length. consumed is
// the number of bytes of buf occupied by payload IEs, including any
// termination IE; bytes beyond it are the frame payload proper.
func ParsePayloadIEs(buf []byte) (ies []PayloadIE, consumed int, err error) {
	for consumed < len(buf) {
		if len(buf)-consumed < 2 {
			return nil, 0, ErrTruncated
		}
		raw := binary.LittleEndian.Uint16(buf[consumed:])
		length := int(raw & pldLengthMask)
		groupID := uint8((raw & pldGroupMask) >> pldGroupShift)
		consumed += 2

		if groupID == GroupPayloadTermination {
			return ies, consumed, nil
		}
		if len(buf)-consumed < length {
			return nil, 0, ErrTruncated
		}
		ies = append(ies, PayloadIE{GroupID: groupID, Content: buf[consumed : consumed+length]})
		consumed += length
	}
	return ies, consumed, nil
}

// WritePayloadIE emits a single payload IE (2-byte header + content) into
// buf and returns the number of bytes written.
func WritePayloadIE(buf []byte, groupID uint8, content []byte) int {
	length := len(content)
	raw := uint16(length&pldLengthMask) | uint16(groupID&0xf)<<pldGroupShift | pldTypeBit
	binary.LittleEndian.PutUint16(buf, raw)
	copy(buf[2:], content)
	return 2 + length
}

// WritePayloadTermination emits the zero-length Payload Termination IE.
func WritePayloadTermination(buf []byte) int {
	return WritePayloadIE(buf, GroupPayloadTermination, nil)
}
