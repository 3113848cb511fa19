package linkctx

import "github.com/ieee802154/tschmac/pkg/tsch/schedule"

// TSCHContext is the per-interface TSCH sub-context (spec.md §3): the ASN,
// the schedule store, the timeslot timing template, and the channel
// hopping sequence.
type TSCHContext struct {
	Mode bool // tsch_mode on/off; the operating state is tracked by pkg/tsch/statemachine

	asn uint64 // 40-bit, wraps modulo 2^40

	Schedule *schedule.Store
	Timeslot schedule.TimeslotTemplate
	Hopping  []uint16

	JoinMetric uint8
}

const asn40Mask = (uint64(1) << 40) - 1

// NewTSCHContext creates an empty TSCH sub-context with a fresh schedule
// store and the 2.4 GHz default timeslot template.
func NewTSCHContext() *TSCHContext {
	return &TSCHContext{
		Schedule: schedule.NewStore(),
		Timeslot: schedule.DefaultTimeslot24GHz,
	}
}

// ASN returns the current Absolute Slot Number.
func (t *TSCHContext) ASN() uint64 {
	return t.asn
}

// SetASN sets the ASN, masked to its 40-bit range.
func (t *TSCHContext) SetASN(asn uint64) {
	t.asn = asn & asn40Mask
}

// AdvanceASN advances the ASN by the given number of timeslots, modulo
// 2^40 (spec.md §4.5).
func (t *TSCHContext) AdvanceASN(timeslots uint64) uint64 {
	t.asn = (t.asn + timeslots) & asn40Mask
	return t.asn
}

// HoppingChannel returns the channel for offset within the hopping
// sequence at the current ASN, per spec.md §4.7 step 1: hopping[(ASN +
// channelOffset) mod len(hopping)]. ok is false if the hopping sequence
// is empty.
func (t *TSCHContext) HoppingChannel(channelOffset uint16) (channel uint16, ok bool) {
	if len(t.Hopping) == 0 {
		return 0, false
	}
	idx := (t.asn + uint64(channelOffset)) % uint64(len(t.Hopping))
	return t.Hopping[idx], true
}
