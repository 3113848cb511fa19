package frame

import (
	"testing"

	"github.com/ieee802154/tschmac/pkg/ie"
)

func TestCreateEnhAckFrame_ScenarioSix(t *testing.T) {
	acked := MPDU{Sequence: 0x77}
	pkt, err := CreateEnhAckFrame(acked, true, 1)
	if err != nil {
		t.Fatalf("CreateEnhAckFrame() error = %v", err)
	}

	m, err := ParseMHR(pkt)
	if err != nil {
		t.Fatalf("ParseMHR() error = %v", err)
	}
	if m.Control.Type != TypeAck || m.Control.Version != Version2015 {
		t.Fatalf("Type=%v Version=%v, want Ack/2015", m.Control.Type, m.Control.Version)
	}
	if m.Sequence != acked.Sequence {
		t.Errorf("Sequence = %#x, want %#x", m.Sequence, acked.Sequence)
	}
	if len(m.HeaderIEs) != 1 || m.HeaderIEs[0].ElementID != ie.ElementTimeCorrection {
		t.Fatalf("HeaderIEs = %+v, want one Time Correction IE", m.HeaderIEs)
	}

	tc, err := ie.DecodeTimeCorrection(m.HeaderIEs[0].Content)
	if err != nil {
		t.Fatalf("DecodeTimeCorrection() error = %v", err)
	}
	if tc.NACK || tc.CorrectionMicros != 1 {
		t.Errorf("TimeCorrection = %+v, want NACK=false CorrectionMicros=1", tc)
	}
}

func TestCreateEnhAckFrame_RejectsOutOfRange(t *testing.T) {
	if _, err := CreateEnhAckFrame(MPDU{}, true, 2048); err != ErrTimeCorrRange {
		t.Errorf("error = %v, want ErrTimeCorrRange", err)
	}
	if _, err := CreateEnhAckFrame(MPDU{}, true, -2049); err != ErrTimeCorrRange {
		t.Errorf("error = %v, want ErrTimeCorrRange", err)
	}
}
