package ie

import "testing"

func TestHeaderIE_RoundTrip(t *testing.T) {
	buf := make([]byte, 64)
	n := WriteHeaderIE(buf, ElementCSL, []byte{0x01, 0x02})
	n += WriteHeaderTerminator(buf[n:], true)

	ies, present, consumed, err := ParseHeaderIEs(buf[:n])
	if err != nil {
		t.Fatalf("ParseHeaderIEs() error = %v", err)
	}
	if consumed != n {
		t.Errorf("consumed = %d, want %d", consumed, n)
	}
	if !present {
		t.Error("payloadIEPresent = false, want true")
	}
	if len(ies) != 1 || ies[0].ElementID != ElementCSL {
		t.Fatalf("ies = %+v, want one CSL element", ies)
	}
}

func TestHeaderIE_HT2StopsWithoutPayloadIEs(t *testing.T) {
	buf := make([]byte, 8)
	n := WriteHeaderTerminator(buf, false)
	_, present, consumed, err := ParseHeaderIEs(buf[:n])
	if err != nil {
		t.Fatalf("ParseHeaderIEs() error = %v", err)
	}
	if present {
		t.Error("payloadIEPresent = true after HT2, want false")
	}
	if consumed != n {
		t.Errorf("consumed = %d, want %d", consumed, n)
	}
}

func TestHeaderIE_TimeCorrectionElementID(t *testing.T) {
	buf := make([]byte, 8)
	content := EncodeTimeCorrection(true, 1)
	n := WriteHeaderIE(buf, ElementTimeCorrection, content)
	ies, _, _, err := ParseHeaderIEs(buf[:n])
	if err != nil {
		t.Fatalf("ParseHeaderIEs() error = %v", err)
	}
	if ies[0].ElementID != ElementTimeCorrection {
		t.Errorf("ElementID = %#x, want %#x", ies[0].ElementID, ElementTimeCorrection)
	}
}

func TestTimeCorrection_RoundTrip(t *testing.T) {
	tests := []struct {
		ack   bool
		micro int16
	}{
		{true, 1},
		{true, 0},
		{true, 2047},
		{true, -2048},
		{false, -1},
	}
	for _, tt := range tests {
		content := EncodeTimeCorrection(tt.ack, tt.micro)
		tc, err := DecodeTimeCorrection(content)
		if err != nil {
			t.Fatalf("DecodeTimeCorrection() error = %v", err)
		}
		if tc.CorrectionMicros != tt.micro {
			t.Errorf("CorrectionMicros = %d, want %d", tc.CorrectionMicros, tt.micro)
		}
		if tc.NACK != !tt.ack {
			t.Errorf("NACK = %v, want %v", tc.NACK, !tt.ack)
		}
	}
}

func TestTimeCorrection_ScenarioSix(t *testing.T) {
	// spec.md §8 scenario 6: +1us correction, NACK clear, field = 0x001.
	content := EncodeTimeCorrection(true, 1)
	if content[0] != 0x01 || content[1] != 0x00 {
		t.Errorf("content = % x, want 01 00 (NACK clear, value 0x001)", content)
	}
}

func TestHeaderIE_Truncated(t *testing.T) {
	if _, _, _, err := ParseHeaderIEs([]byte{0x01}); err != ErrTruncated {
		t.Errorf("ParseHeaderIEs() error = %v, want ErrTruncated", err)
	}
}
