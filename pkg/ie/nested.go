package ie

import "encoding/binary"

// Nested IE sub-ids (spec.md §4.2; §7.4.4.1 tables 7-18/7-19). Short and
// long nested IEs share a single sub-id number range.
const (
	SubIDChannelHopping      = 0x9  // long nested IE
	SubIDTSCHSynchronization = 0x1a // short nested IE
	SubIDTSCHSlotframeLink   = 0x1b // short nested IE
	SubIDTSCHTimeslot        = 0x1c // short nested IE
)

// Nested IE bit layout. Short: bits 0-7 length, bits 8-14 sub-id, bit 15
// type (0). Long: bits 0-10 length, bits 11-14 sub-id, bit 15 type (1).
const (
	nestTypeBit        = 1 << 15
	nestShortLengthMask = 0xff
	nestShortSubShift   = 8
	nestShortSubMask    = 0x7f << nestShortSubShift
	nestLongLengthMask  = 0x7ff
	nestLongSubShift    = 11
	nestLongSubMask     = 0xf << nestLongSubShift
)

// NestedIE is a single parsed nested IE carried inside an MLME payload IE.
type NestedIE struct {
	SubID   uint8
	Long    bool
	Content []byte // non-owning view into the source buffer
}

// ParseNestedIEs walks buf (the content of an MLME payload IE) parsing
// nested IEs until the buffer is exhausted.
func ParseNestedIEs(buf []byte) ([]NestedIE, error) {
	var ies []NestedIE
	consumed := 0
	for consumed < len(buf) {
		if len(buf)-consumed < 2 {
			return nil, ErrTruncated
		}
		raw := binary.LittleEndian.Uint16(buf[consumed:])
		long := raw&nestTypeBit != 0
		var length int
		var subID uint8
		if long {
			length = int(raw & nestLongLengthMask)
			subID = uint8((raw & nestLongSubMask) >> nestLongSubShift)
		} else {
			length = int(raw & nestShortLengthMask)
			subID = uint8((raw & nestShortSubMask) >> nestShortSubShift)
		}
		consumed += 2

		if len(buf)-consumed < length {
			return nil, ErrTruncated
		}
		ies = append(ies, NestedIE{SubID: subID, Long: long, Content: buf[consumed : consumed+length]})
		consumed += length
	}
	return ies, nil
}

// WriteNestedIE emits a single nested IE (short or long) into buf and
// returns the number of bytes written.
func WriteNestedIE(buf []byte, subID uint8, long bool, content []byte) int {
	length := len(content)
	var raw uint16
	if long {
		raw = uint16(length&nestLongLengthMask) | uint16(subID&0xf)<<nestLongSubShift | nestTypeBit
	} else {
		raw = uint16(length&nestShortLengthMask) | uint16(subID&0x7f)<<nestShortSubShift
	}
	binary.LittleEndian.PutUint16(buf, raw)
	copy(buf[2:], content)
	return 2 + length
}

// TSCHSync is the decoded TSCH Synchronization nested IE (§7.4.4.2): a
// fixed 6-byte payload of a 40-bit ASN and a join metric.
type TSCHSync struct {
	ASN        uint64 // low 40 bits significant
	JoinMetric uint8
}

// EncodeTSCHSync packs s into its fixed 6-byte wire form.
func EncodeTSCHSync(s TSCHSync) []byte {
	buf := make([]byte, 6)
	putASN40(buf[0:5], s.ASN)
	buf[5] = s.JoinMetric
	return buf
}

// DecodeTSCHSync parses a 6-byte TSCH Synchronization IE content field.
func DecodeTSCHSync(content []byte) (TSCHSync, error) {
	if len(content) != 6 {
		return TSCHSync{}, ErrBadLength
	}
	return TSCHSync{ASN: getASN40(content[0:5]), JoinMetric: content[5]}, nil
}

func putASN40(dst []byte, asn uint64) {
	asn &= (uint64(1) << 40) - 1
	for i := 0; i < 5; i++ {
		dst[i] = byte(asn)
		asn >>= 8
	}
}

func getASN40(src []byte) uint64 {
	var v uint64
	for i := 4; i >= 0; i-- {
		v = v<<8 | uint64(src[i])
	}
	return v
}

// LinkInfo is a single 5-byte link-information record inside a TSCH
// Slotframe-and-Link descriptor (§7.4.4.3 figure 7-54).
type LinkInfo struct {
	Timeslot      uint16
	ChannelOffset uint16
	TX            bool
	RX            bool
	Shared        bool
	Timekeeping   bool
	Priority      bool
}

const linkInfoSize = 5

func encodeLinkInfo(l LinkInfo) [linkInfoSize]byte {
	var buf [linkInfoSize]byte
	binary.LittleEndian.PutUint16(buf[0:2], l.Timeslot)
	binary.LittleEndian.PutUint16(buf[2:4], l.ChannelOffset)
	var flags byte
	if l.TX {
		flags |= 1 << 0
	}
	if l.RX {
		flags |= 1 << 1
	}
	if l.Shared {
		flags |= 1 << 2
	}
	if l.Timekeeping {
		flags |= 1 << 3
	}
	if l.Priority {
		flags |= 1 << 4
	}
	buf[4] = flags
	return buf
}

func decodeLinkInfo(buf []byte) LinkInfo {
	flags := buf[4]
	return LinkInfo{
		Timeslot:      binary.LittleEndian.Uint16(buf[0:2]),
		ChannelOffset: binary.LittleEndian.Uint16(buf[2:4]),
		TX:            flags&(1<<0) != 0,
		RX:            flags&(1<<1) != 0,
		Shared:        flags&(1<<2) != 0,
		Timekeeping:   flags&(1<<3) != 0,
		Priority:      flags&(1<<4) != 0,
	}
}

// SlotframeDescriptor is one slotframe's advertisement inside a TSCH
// Slotframe-and-Link IE (§7.4.4.3 figure 7-53).
type SlotframeDescriptor struct {
	Handle uint8
	Size   uint16
	Links  []LinkInfo
}

// EncodeSlotframeAndLink packs a list of slotframe descriptors into the
// TSCH Slotframe-and-Link nested IE content.
func EncodeSlotframeAndLink(descs []SlotframeDescriptor) []byte {
	size := 1
	for _, d := range descs {
		size += 4 + len(d.Links)*linkInfoSize
	}
	buf := make([]byte, size)
	buf[0] = uint8(len(descs))
	off := 1
	for _, d := range descs {
		buf[off] = d.Handle
		binary.LittleEndian.PutUint16(buf[off+1:off+3], d.Size)
		buf[off+3] = uint8(len(d.Links))
		off += 4
		for _, l := range d.Links {
			enc := encodeLinkInfo(l)
			copy(buf[off:off+linkInfoSize], enc[:])
			off += linkInfoSize
		}
	}
	return buf
}

// DecodeSlotframeAndLink parses the TSCH Slotframe-and-Link nested IE
// content into its slotframe descriptors.
func DecodeSlotframeAndLink(content []byte) ([]SlotframeDescriptor, error) {
	if len(content) < 1 {
		return nil, ErrTruncated
	}
	n := int(content[0])
	descs := make([]SlotframeDescriptor, 0, n)
	off := 1
	for i := 0; i < n; i++ {
		if len(content)-off < 4 {
			return nil, ErrTruncated
		}
		handle := content[off]
		size := binary.LittleEndian.Uint16(content[off+1 : off+3])
		numLinks := int(content[off+3])
		off += 4
		if len(content)-off < numLinks*linkInfoSize {
			return nil, ErrTruncated
		}
		links := make([]LinkInfo, numLinks)
		for j := 0; j < numLinks; j++ {
			links[j] = decodeLinkInfo(content[off : off+linkInfoSize])
			off += linkInfoSize
		}
		descs = append(descs, SlotframeDescriptor{Handle: handle, Size: size, Links: links})
	}
	return descs, nil
}

// Timeslot is the decoded TSCH Timeslot nested IE, in either its
// shortened (id only) or full form (§7.4.4.4). All offsets are in
// microseconds.
type Timeslot struct {
	ID             uint8
	Full           bool
	CCAOffset      uint16
	CCA            uint16
	TXOffset       uint16
	RXOffset       uint16
	RXAckDelay     uint16
	TXAckDelay     uint16
	RXWait         uint16
	ACKWait        uint16
	RXTX           uint16
	MaxAck         uint16
	MaxTX          uint32 // 24-bit
	TimeslotLength uint32 // 24-bit
}

// EncodeTimeslot packs t into its shortened or full wire form.
func EncodeTimeslot(t Timeslot) []byte {
	if !t.Full {
		return []byte{t.ID}
	}
	buf := make([]byte, 1+2*10+3+3)
	buf[0] = t.ID
	binary.LittleEndian.PutUint16(buf[1:3], t.CCAOffset)
	binary.LittleEndian.PutUint16(buf[3:5], t.CCA)
	binary.LittleEndian.PutUint16(buf[5:7], t.TXOffset)
	binary.LittleEndian.PutUint16(buf[7:9], t.RXOffset)
	binary.LittleEndian.PutUint16(buf[9:11], t.RXAckDelay)
	binary.LittleEndian.PutUint16(buf[11:13], t.TXAckDelay)
	binary.LittleEndian.PutUint16(buf[13:15], t.RXWait)
	binary.LittleEndian.PutUint16(buf[15:17], t.ACKWait)
	binary.LittleEndian.PutUint16(buf[17:19], t.RXTX)
	binary.LittleEndian.PutUint16(buf[19:21], t.MaxAck)
	put24(buf[21:24], t.MaxTX)
	put24(buf[24:27], t.TimeslotLength)
	return buf
}

// DecodeTimeslot parses either the 1-byte shortened or 27-byte full
// Timeslot IE content.
func DecodeTimeslot(content []byte) (Timeslot, error) {
	if len(content) == 1 {
		return Timeslot{ID: content[0]}, nil
	}
	if len(content) != 27 {
		return Timeslot{}, ErrBadLength
	}
	return Timeslot{
		ID:             content[0],
		Full:           true,
		CCAOffset:      binary.LittleEndian.Uint16(content[1:3]),
		CCA:            binary.LittleEndian.Uint16(content[3:5]),
		TXOffset:       binary.LittleEndian.Uint16(content[5:7]),
		RXOffset:       binary.LittleEndian.Uint16(content[7:9]),
		RXAckDelay:     binary.LittleEndian.Uint16(content[9:11]),
		TXAckDelay:     binary.LittleEndian.Uint16(content[11:13]),
		RXWait:         binary.LittleEndian.Uint16(content[13:15]),
		ACKWait:        binary.LittleEndian.Uint16(content[15:17]),
		RXTX:           binary.LittleEndian.Uint16(content[17:19]),
		MaxAck:         binary.LittleEndian.Uint16(content[19:21]),
		MaxTX:          get24(content[21:24]),
		TimeslotLength: get24(content[24:27]),
	}, nil
}

func put24(dst []byte, v uint32) {
	dst[0] = byte(v)
	dst[1] = byte(v >> 8)
	dst[2] = byte(v >> 16)
}

func get24(src []byte) uint32 {
	return uint32(src[0]) | uint32(src[1])<<8 | uint32(src[2])<<16
}

// ChannelHopping is the decoded Channel Hopping nested IE, in either its
// shortened (id only) or full form (§7.4.4.31).
type ChannelHopping struct {
	ID         uint8
	Full       bool
	Page       uint8
	NumChannels uint16
	PHYBitmap  uint32
	Sequence   []uint16
	CurrentHop uint16
}

// EncodeChannelHopping packs c into its shortened or full wire form. For
// the full form the declared IE length (spec.md §4.2) must exactly equal
// the fixed fields plus 2*len(Sequence) + 2 for the trailing current hop;
// this function always emits a self-consistent encoding.
func EncodeChannelHopping(c ChannelHopping) []byte {
	if !c.Full {
		return []byte{c.ID}
	}
	n := len(c.Sequence)
	buf := make([]byte, 1+1+2+4+2+2*n+2)
	buf[0] = c.ID
	buf[1] = c.Page
	binary.LittleEndian.PutUint16(buf[2:4], c.NumChannels)
	binary.LittleEndian.PutUint32(buf[4:8], c.PHYBitmap)
	binary.LittleEndian.PutUint16(buf[8:10], uint16(n))
	off := 10
	for _, ch := range c.Sequence {
		binary.LittleEndian.PutUint16(buf[off:off+2], ch)
		off += 2
	}
	binary.LittleEndian.PutUint16(buf[off:off+2], c.CurrentHop)
	return buf
}

// DecodeChannelHopping parses the shortened or full Channel Hopping IE
// content. For the full form, the sequence-length field must exactly
// account for the remaining content (spec.md §4.2); a mismatch is a bad
// format error.
func DecodeChannelHopping(content []byte) (ChannelHopping, error) {
	if len(content) == 1 {
		return ChannelHopping{ID: content[0]}, nil
	}
	if len(content) < 10 {
		return ChannelHopping{}, ErrTruncated
	}
	seqLen := binary.LittleEndian.Uint16(content[8:10])
	want := 10 + int(seqLen)*2 + 2
	if len(content) != want {
		return ChannelHopping{}, ErrBadLength
	}
	seq := make([]uint16, seqLen)
	off := 10
	for i := range seq {
		seq[i] = binary.LittleEndian.Uint16(content[off : off+2])
		off += 2
	}
	return ChannelHopping{
		ID:          content[0],
		Full:        true,
		Page:        content[1],
		NumChannels: binary.LittleEndian.Uint16(content[2:4]),
		PHYBitmap:   binary.LittleEndian.Uint32(content[4:8]),
		Sequence:    seq,
		CurrentHop:  binary.LittleEndian.Uint16(content[off : off+2]),
	}, nil
}
