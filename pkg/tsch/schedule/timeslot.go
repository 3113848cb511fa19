package schedule

// TimeslotTemplate holds the microsecond offsets that define a TSCH
// timeslot's internal timing (spec.md §3 Timeslot template). Defaults
// depend on band (sub-GHz vs 2.4 GHz); DefaultTimeslot24GHz below follows
// the commonly used 2.4 GHz 802.15.4 TSCH defaults (IEEE 802.15.4-2015
// Annex C).
type TimeslotTemplate struct {
	CCAOffset      uint32
	CCA            uint32
	TXOffset       uint32
	RXOffset       uint32
	RXAckDelay     uint32
	TXAckDelay     uint32
	RXWait         uint32
	ACKWait        uint32
	RXTX           uint32
	MaxAck         uint32
	MaxTX          uint32
	TimeslotLength uint32
}

// DefaultTimeslot24GHz are the default 2.4 GHz timeslot timings (µs).
var DefaultTimeslot24GHz = TimeslotTemplate{
	CCAOffset:      1800,
	CCA:            128,
	TXOffset:       2120,
	RXOffset:       1020,
	RXAckDelay:     800,
	TXAckDelay:     1000,
	RXWait:         2200,
	ACKWait:        400,
	RXTX:           192,
	MaxAck:         2400,
	MaxTX:          4256,
	TimeslotLength: 10000,
}
