package frame

import (
	"testing"

	"github.com/ieee802154/tschmac/pkg/linkctx"
)

func TestCreateMACCmdFrame_DataRequestRoundTrip(t *testing.T) {
	ctx := linkctx.NewContext(linkctx.Config{})
	ctx.SetPANID(0xABCD)
	ctx.SetShortAddr(0x1234)

	dst := ShortAddress(0x0001)
	f, err := CreateMACCmdFrame(ctx, CFIDataRequest, dst)
	if err != nil {
		t.Fatalf("CreateMACCmdFrame() error = %v", err)
	}
	pkt := f.Finalize(0)

	m, err := ParseMHR(pkt)
	if err != nil {
		t.Fatalf("ParseMHR() error = %v", err)
	}
	if m.Control.Type != TypeMACCommand {
		t.Fatalf("Type = %v, want TypeMACCommand", m.Control.Type)
	}
	if m.Control.Version != Version2006 {
		t.Errorf("Version = %v, want Version2006 (unsecured command frame)", m.Control.Version)
	}
	fp, err := ParsePayload(m)
	if err != nil {
		t.Fatalf("ParsePayload() error = %v", err)
	}
	if fp.CFI != CFIDataRequest {
		t.Errorf("CFI = %#x, want %#x", fp.CFI, CFIDataRequest)
	}
}

func TestCreateMACCmdFrame_RejectsMissingRequiredDst(t *testing.T) {
	ctx := linkctx.NewContext(linkctx.Config{})
	ctx.SetPANID(0xABCD)
	ctx.SetShortAddr(0x1234)

	if _, err := CreateMACCmdFrame(ctx, CFIDataRequest, Address{}); err != ErrBadCommand {
		t.Errorf("error = %v, want ErrBadCommand", err)
	}
}

func TestCreateMACCmdFrame_BeaconRequestAllowsBroadcast(t *testing.T) {
	ctx := linkctx.NewContext(linkctx.Config{})
	ctx.SetPANID(0xFFFF)

	f, err := CreateMACCmdFrame(ctx, CFIBeaconRequest, BroadcastAddress())
	if err != nil {
		t.Fatalf("CreateMACCmdFrame() error = %v", err)
	}
	pkt := f.Finalize(0)
	m, err := ParseMHR(pkt)
	if err != nil {
		t.Fatalf("ParseMHR() error = %v", err)
	}
	if m.Control.Version != Version2006 {
		t.Errorf("Version = %v, want Version2006 (unassociated, unsecured command frame)", m.Control.Version)
	}
}
