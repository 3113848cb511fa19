package frame

import (
	"bytes"
	"testing"

	"github.com/ieee802154/tschmac/pkg/linkctx"
)

func TestImmAck_RoundTrip(t *testing.T) {
	pkt := CreateImmAckFrame(0x2A)
	if len(pkt) != 3 {
		t.Fatalf("CreateImmAckFrame() len = %d, want 3", len(pkt))
	}

	m, err := ParseMHR(pkt)
	if err != nil {
		t.Fatalf("ParseMHR() error = %v", err)
	}
	if m.Control.Type != TypeAck {
		t.Errorf("Type = %v, want TypeAck", m.Control.Type)
	}
	if m.Control.Version != Version2006 {
		t.Errorf("Version = %v, want Version2006", m.Control.Version)
	}
	if !m.Control.HasSequenceNumber || m.Sequence != 0x2A {
		t.Errorf("Sequence = %#x, has=%v, want 0x2A, true", m.Sequence, m.Control.HasSequenceNumber)
	}
	if m.DstAddr.Mode.Present() || m.SrcAddr.Mode.Present() {
		t.Error("immediate ACK must carry no addressing")
	}
}

func TestWriteMHRAndSecurity_UnicastDataRoundTrip(t *testing.T) {
	ctx := linkctx.NewContext(linkctx.Config{})
	ctx.SetPANID(0xABCD)
	ctx.SetShortAddr(0x1234)
	ctx.SetAck()

	dst := ShortAddress(0xBEEF)
	params, llHdrLen, authTagLen, err := GetDataFrameParams(ctx, dst, Address{})
	if err != nil {
		t.Fatalf("GetDataFrameParams() error = %v", err)
	}
	if authTagLen != 0 {
		t.Fatalf("authTagLen = %d, want 0 (no security configured)", authTagLen)
	}
	if got := ComputeHeaderSize(params, false); got != llHdrLen {
		t.Fatalf("ComputeHeaderSize() = %d, want %d (GetDataFrameParams-computed)", got, llHdrLen)
	}

	buf := make([]byte, MTU)
	n, err := WriteMHRAndSecurity(ctx, TypeData, params, buf, llHdrLen, authTagLen)
	if err != nil {
		t.Fatalf("WriteMHRAndSecurity() error = %v", err)
	}
	if n != llHdrLen {
		t.Fatalf("WriteMHRAndSecurity() wrote %d bytes, want %d", n, llHdrLen)
	}

	payload := []byte("hello")
	pkt := append(buf[:n:n], payload...)

	m, err := ParseMHR(pkt)
	if err != nil {
		t.Fatalf("ParseMHR() error = %v", err)
	}
	if m.Control.Type != TypeData {
		t.Errorf("Type = %v, want TypeData", m.Control.Type)
	}
	if m.Control.Version != Version2006 {
		t.Errorf("Version = %v, want Version2006 (unsecured data frame)", m.Control.Version)
	}
	if !m.Control.AckRequested {
		t.Error("AckRequested = false, want true (unicast destination, ctx wants ack)")
	}
	if !m.Control.HasDstPAN || m.Control.HasSrcPAN {
		t.Errorf("HasDstPAN=%v HasSrcPAN=%v, want true, false (compressed)", m.Control.HasDstPAN, m.Control.HasSrcPAN)
	}
	if m.DstAddr.Short != 0xBEEF {
		t.Errorf("DstAddr.Short = %#x, want 0xBEEF", m.DstAddr.Short)
	}
	if m.SrcAddr.Short != 0x1234 {
		t.Errorf("SrcAddr.Short = %#x, want 0x1234", m.SrcAddr.Short)
	}
	if !m.Control.PANIDCompression {
		t.Error("PANIDCompression = false, want true (same PAN on both sides)")
	}
	if !bytes.Equal(m.MACPayload, payload) {
		t.Errorf("MACPayload = %q, want %q", m.MACPayload, payload)
	}
}

func TestWriteMHRAndSecurity_BroadcastForcesAckOff(t *testing.T) {
	ctx := linkctx.NewContext(linkctx.Config{})
	ctx.SetPANID(0xABCD)
	ctx.SetShortAddr(0x1234)
	ctx.SetAck()

	params, llHdrLen, authTagLen, err := GetDataFrameParams(ctx, Address{}, Address{})
	if err != nil {
		t.Fatalf("GetDataFrameParams() error = %v", err)
	}
	if params.AckRequested {
		t.Fatal("GetDataFrameParams() set AckRequested for a broadcast destination")
	}

	buf := make([]byte, MTU)
	n, err := WriteMHRAndSecurity(ctx, TypeData, params, buf, llHdrLen, authTagLen)
	if err != nil {
		t.Fatalf("WriteMHRAndSecurity() error = %v", err)
	}

	m, err := ParseMHR(buf[:n])
	if err != nil {
		t.Fatalf("ParseMHR() error = %v", err)
	}
	if m.Control.AckRequested {
		t.Error("AckRequested = true for a broadcast destination, want false")
	}
	if !m.DstAddr.IsBroadcast() {
		t.Error("DstAddr is not broadcast")
	}
}

func TestParseMHR_RejectsReservedFields(t *testing.T) {
	tests := []struct {
		name string
		raw  uint16
	}{
		{"reserved type", 0x4}, // type bits = 4 (reserved)
		{"reserved version", uint16(versionResvd) << fcVersionShift},
		{"reserved addr mode", uint16(addrModeReserved) << fcDstModeShift},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pkt := []byte{byte(tt.raw), byte(tt.raw >> 8)}
			if _, err := ParseMHR(pkt); err == nil {
				t.Error("ParseMHR() error = nil, want rejection")
			}
		})
	}
}

func TestParseMHR_TooShortTooLong(t *testing.T) {
	if _, err := ParseMHR([]byte{0x00}); err != ErrTooShort {
		t.Errorf("ParseMHR(1 byte) error = %v, want ErrTooShort", err)
	}
	if _, err := ParseMHR(make([]byte, MTU+1)); err != ErrTooLong {
		t.Errorf("ParseMHR(128 bytes) error = %v, want ErrTooLong", err)
	}
}

func TestFilter_Idempotent(t *testing.T) {
	ctx := linkctx.NewContext(linkctx.Config{})
	ctx.SetPANID(0xABCD)
	ctx.SetShortAddr(0x1234)

	m := MPDU{
		Control: Control{HasDstPAN: true},
		DstPAN:  0xABCD,
		DstAddr: ShortAddress(0x1234),
	}
	first := Filter(ctx, m)
	second := Filter(ctx, m)
	if first != second {
		t.Errorf("Filter() not idempotent: %v then %v", first, second)
	}
	if !first {
		t.Error("Filter() = false for a frame addressed to us on our PAN")
	}
}

func TestFilter_DropsOtherPAN(t *testing.T) {
	ctx := linkctx.NewContext(linkctx.Config{})
	ctx.SetPANID(0xABCD)
	ctx.SetShortAddr(0x1234)

	m := MPDU{Control: Control{HasDstPAN: true}, DstPAN: 0x0001, DstAddr: ShortAddress(0x1234)}
	if Filter(ctx, m) {
		t.Error("Filter() = true for a frame on a foreign PAN, want false")
	}
}

func TestGetDataFrameParams_NotAssociated(t *testing.T) {
	ctx := linkctx.NewContext(linkctx.Config{})
	if _, _, _, err := GetDataFrameParams(ctx, Address{}, Address{}); err != ErrNotAssociated {
		t.Errorf("GetDataFrameParams() error = %v, want ErrNotAssociated", err)
	}
}
