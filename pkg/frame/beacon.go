package frame

import (
	"github.com/ieee802154/tschmac/pkg/ie"
	"github.com/ieee802154/tschmac/pkg/linkctx"
	"github.com/ieee802154/tschmac/pkg/tsch/schedule"
)

// CreateEnhBeacon assembles an enhanced beacon (spec.md §4.1): a TSCH
// Synchronization IE, a full or shortened TSCH Timeslot IE, a TSCH
// Slotframe-and-Link IE enumerating every advertised slotframe, and a
// full or shortened Channel Hopping IE, all nested inside a single MLME
// payload IE. It requires the context lock while reading the schedule
// and timing tables.
func CreateEnhBeacon(ctx *linkctx.Context, full bool) []byte {
	// These accessors take the context lock themselves, so they are read
	// before the lock below is held.
	seq := ctx.NextSequence()
	srcPAN := ctx.PANID()
	short := ctx.ShortAddr()

	ctx.Lock()
	defer ctx.Unlock()

	tsch := ctx.TSCH()

	var nested []byte
	nested = appendNested(nested, ie.SubIDTSCHSynchronization, false,
		ie.EncodeTSCHSync(ie.TSCHSync{ASN: tsch.ASN(), JoinMetric: tsch.JoinMetric}))

	nested = appendNested(nested, ie.SubIDTSCHTimeslot, false, ie.EncodeTimeslot(timeslotIE(tsch.Timeslot, full)))

	nested = appendNested(nested, ie.SubIDTSCHSlotframeLink, false,
		ie.EncodeSlotframeAndLink(advertisedSlotframes(tsch.Schedule)))

	nested = appendNested(nested, ie.SubIDChannelHopping, true,
		ie.EncodeChannelHopping(channelHoppingIE(tsch.Hopping, full)))

	buf := make([]byte, MTU)
	ctrl := Control{
		Type:              TypeBeacon,
		Version:           Version2015,
		SrcAddrMode:       AddrModeShort,
		HasSrcPAN:         true,
		HasSequenceNumber: true,
		IEPresent:         true,
	}
	putControl(buf, ctrl)
	cursor := ControlSize
	buf[cursor] = seq
	cursor++

	buf[cursor] = byte(srcPAN)
	buf[cursor+1] = byte(srcPAN >> 8)
	cursor += 2
	cursor += writeAddress(buf[cursor:], ShortAddress(short))

	cursor += ie.WriteHeaderTerminator(buf[cursor:], true)

	cursor += ie.WritePayloadIE(buf[cursor:], ie.GroupMLME, nested)
	cursor += ie.WritePayloadTermination(buf[cursor:])

	return buf[:cursor]
}

func appendNested(dst []byte, subID uint8, long bool, content []byte) []byte {
	hdr := make([]byte, 2+len(content))
	ie.WriteNestedIE(hdr, subID, long, content)
	return append(dst, hdr...)
}

// timeslotIE converts the schedule store's timing template into the IE
// codec's wire-shaped Timeslot type.
func timeslotIE(t schedule.TimeslotTemplate, full bool) ie.Timeslot {
	if !full {
		return ie.Timeslot{}
	}
	return ie.Timeslot{
		Full:           true,
		CCAOffset:      uint16(t.CCAOffset),
		CCA:            uint16(t.CCA),
		TXOffset:       uint16(t.TXOffset),
		RXOffset:       uint16(t.RXOffset),
		RXAckDelay:     uint16(t.RXAckDelay),
		TXAckDelay:     uint16(t.TXAckDelay),
		RXWait:         uint16(t.RXWait),
		ACKWait:        uint16(t.ACKWait),
		RXTX:           uint16(t.RXTX),
		MaxAck:         uint16(t.MaxAck),
		MaxTX:          t.MaxTX,
		TimeslotLength: t.TimeslotLength,
	}
}

// advertisedSlotframes collects the link-information descriptors for
// every slotframe whose Advertise flag is set (spec.md §4.1
// create_enh_beacon).
func advertisedSlotframes(store *schedule.Store) []ie.SlotframeDescriptor {
	var descs []ie.SlotframeDescriptor
	for _, sf := range store.Slotframes() {
		if !sf.Advertise {
			continue
		}
		links := sf.Links()
		ieLinks := make([]ie.LinkInfo, len(links))
		for i, l := range links {
			ieLinks[i] = ie.LinkInfo{
				Timeslot:      l.Timeslot,
				ChannelOffset: l.ChannelOffset,
				TX:            l.TX,
				RX:            l.RX,
				Shared:        l.Shared,
				Timekeeping:   l.Timekeeping,
				Priority:      l.Priority,
			}
		}
		descs = append(descs, ie.SlotframeDescriptor{Handle: sf.Handle, Size: sf.Size, Links: ieLinks})
	}
	return descs
}

// channelHoppingIE converts the hopping sequence into the IE codec's
// wire-shaped ChannelHopping type. current is always reported as 0
// (spec.md leaves the "current hop" index to the TSCH state machine's own
// ASN-indexed lookup; the beacon IE exists for neighbors joining the PAN).
func channelHoppingIE(hopping []uint16, full bool) ie.ChannelHopping {
	if !full {
		return ie.ChannelHopping{}
	}
	return ie.ChannelHopping{
		Full:        true,
		NumChannels: uint16(len(hopping)),
		Sequence:    hopping,
	}
}
