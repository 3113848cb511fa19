package frame

import "github.com/ieee802154/tschmac/pkg/ie"

// CreateImmAckFrame builds an immediate ACK: frame-control + sequence,
// no addressing (spec.md §4.1, §6). The frame version is always 2006,
// matching ieee802154_create_imm_ack_frame's fixed frame control value.
func CreateImmAckFrame(seq uint8) []byte {
	pkt := make([]byte, 3)
	ctrl := Control{
		Type:              TypeAck,
		Version:           Version2006,
		HasSequenceNumber: true,
	}
	putControl(pkt, ctrl)
	pkt[2] = seq
	return pkt
}

// CreateEnhAckFrame builds an enhanced ACK (2015+) acknowledging mpdu:
// frame-control + sequence + a single Time Correction header IE carrying
// a signed 12-bit microsecond correction (spec.md §4.1, §7.4.2.7). isAck
// selects whether the carried NACK bit is clear (true, a positive
// acknowledgement) or set (false, a negative one). correctionMicros must
// be in [-2048, 2047].
func CreateEnhAckFrame(mpdu MPDU, isAck bool, correctionMicros int16) ([]byte, error) {
	if correctionMicros < -2048 || correctionMicros > 2047 {
		return nil, ErrTimeCorrRange
	}

	content := ie.EncodeTimeCorrection(isAck, correctionMicros)
	buf := make([]byte, MTU)

	ctrl := Control{
		Type:              TypeAck,
		Version:           Version2015,
		HasSequenceNumber: true,
		IEPresent:         true,
	}
	putControl(buf, ctrl)
	cursor := ControlSize
	buf[cursor] = mpdu.Sequence
	cursor++

	cursor += ie.WriteHeaderIE(buf[cursor:], ie.ElementTimeCorrection, content)
	cursor += ie.WriteHeaderTerminator(buf[cursor:], false)

	return buf[:cursor], nil
}
