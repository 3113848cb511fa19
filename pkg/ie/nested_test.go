package ie

import "testing"

func TestNestedIE_ShortRoundTrip(t *testing.T) {
	buf := make([]byte, 16)
	n := WriteNestedIE(buf, SubIDTSCHSynchronization, false, []byte{1, 2, 3})
	ies, err := ParseNestedIEs(buf[:n])
	if err != nil {
		t.Fatalf("ParseNestedIEs() error = %v", err)
	}
	if len(ies) != 1 || ies[0].SubID != SubIDTSCHSynchronization || ies[0].Long {
		t.Fatalf("ies = %+v, want one short TSCH-sync nested IE", ies)
	}
}

func TestNestedIE_LongRoundTrip(t *testing.T) {
	buf := make([]byte, 16)
	n := WriteNestedIE(buf, SubIDChannelHopping, true, []byte{1, 2, 3, 4})
	ies, err := ParseNestedIEs(buf[:n])
	if err != nil {
		t.Fatalf("ParseNestedIEs() error = %v", err)
	}
	if len(ies) != 1 || ies[0].SubID != SubIDChannelHopping || !ies[0].Long {
		t.Fatalf("ies = %+v, want one long channel-hopping nested IE", ies)
	}
}

func TestTSCHSync_RoundTrip(t *testing.T) {
	s := TSCHSync{ASN: 0x000000ABCD, JoinMetric: 7}
	content := EncodeTSCHSync(s)
	if len(content) != 6 {
		t.Fatalf("EncodeTSCHSync() len = %d, want 6", len(content))
	}
	got, err := DecodeTSCHSync(content)
	if err != nil {
		t.Fatalf("DecodeTSCHSync() error = %v", err)
	}
	if got != s {
		t.Errorf("DecodeTSCHSync() = %+v, want %+v", got, s)
	}
}

func TestSlotframeAndLink_RoundTrip(t *testing.T) {
	descs := []SlotframeDescriptor{
		{
			Handle: 0,
			Size:   13,
			Links: []LinkInfo{
				{Timeslot: 0, ChannelOffset: 0, TX: true},
				{Timeslot: 1, ChannelOffset: 0, RX: true, Timekeeping: true},
			},
		},
	}
	content := EncodeSlotframeAndLink(descs)
	got, err := DecodeSlotframeAndLink(content)
	if err != nil {
		t.Fatalf("DecodeSlotframeAndLink() error = %v", err)
	}
	if len(got) != 1 || got[0].Handle != 0 || got[0].Size != 13 || len(got[0].Links) != 2 {
		t.Fatalf("got = %+v", got)
	}
	if !got[0].Links[1].RX || !got[0].Links[1].Timekeeping {
		t.Errorf("Links[1] = %+v, want RX+Timekeeping", got[0].Links[1])
	}
}

func TestTimeslot_ShortAndFullRoundTrip(t *testing.T) {
	short := Timeslot{ID: 0}
	got, err := DecodeTimeslot(EncodeTimeslot(short))
	if err != nil || got.Full {
		t.Fatalf("shortened round trip: got=%+v err=%v", got, err)
	}

	full := Timeslot{
		ID: 0, Full: true,
		CCAOffset: 1800, CCA: 128, TXOffset: 2120, RXOffset: 1020,
		RXAckDelay: 800, TXAckDelay: 1000, RXWait: 2200, ACKWait: 400,
		RXTX: 192, MaxAck: 2400, MaxTX: 4256, TimeslotLength: 10000,
	}
	got, err = DecodeTimeslot(EncodeTimeslot(full))
	if err != nil {
		t.Fatalf("DecodeTimeslot() error = %v", err)
	}
	if got != full {
		t.Errorf("full round trip = %+v, want %+v", got, full)
	}
}

func TestChannelHopping_ShortAndFullRoundTrip(t *testing.T) {
	short := ChannelHopping{ID: 3}
	got, err := DecodeChannelHopping(EncodeChannelHopping(short))
	if err != nil || got.Full {
		t.Fatalf("shortened round trip: got=%+v err=%v", got, err)
	}

	full := ChannelHopping{
		Full: true, Page: 0, NumChannels: 4, PHYBitmap: 0x7FFF800,
		Sequence: []uint16{20, 25, 26, 15}, CurrentHop: 20,
	}
	content := EncodeChannelHopping(full)
	got, err = DecodeChannelHopping(content)
	if err != nil {
		t.Fatalf("DecodeChannelHopping() error = %v", err)
	}
	if got.NumChannels != full.NumChannels || len(got.Sequence) != len(full.Sequence) || got.CurrentHop != full.CurrentHop {
		t.Errorf("got = %+v, want %+v", got, full)
	}
}

func TestChannelHopping_LengthMismatch(t *testing.T) {
	full := ChannelHopping{Full: true, Sequence: []uint16{1, 2, 3}}
	content := EncodeChannelHopping(full)
	// truncate the trailing current-hop word to break the declared length.
	if _, err := DecodeChannelHopping(content[:len(content)-1]); err == nil {
		t.Error("DecodeChannelHopping() error = nil, want length mismatch rejection")
	}
}
