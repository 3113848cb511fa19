package frame

import (
	"bytes"
	"testing"

	"github.com/ieee802154/tschmac/pkg/linkctx"
	"github.com/ieee802154/tschmac/pkg/security"
)

func TestEncodeDecodeDataFrame_SecurityRoundTrip(t *testing.T) {
	var extSrc [8]byte
	for i := range extSrc {
		extSrc[i] = byte(i)
	}

	ctx := linkctx.NewContext(linkctx.Config{})
	ctx.SetPANID(0xABCD)
	ctx.SetExtAddr(extSrc)
	ctx.SetSecuritySettings(security.LevelENCMIC32, [16]byte{})

	payload := []byte("hi")
	pkt, err := EncodeDataFrame(ctx, Address{}, Address{}, payload)
	if err != nil {
		t.Fatalf("EncodeDataFrame() error = %v", err)
	}

	rx := linkctx.NewContext(linkctx.Config{})
	rx.SetPANID(0xABCD)
	rx.SetShortAddr(0x0001)
	rx.SetSecuritySettings(security.LevelENCMIC32, [16]byte{})

	m, fp, err := DecodeIncoming(rx, pkt)
	if err != nil {
		t.Fatalf("DecodeIncoming() error = %v", err)
	}
	if !m.Control.SecurityEnabled {
		t.Error("SecurityEnabled = false, want true")
	}
	if !bytes.Equal(fp.Payload, payload) {
		t.Errorf("decrypted payload = %q, want %q", fp.Payload, payload)
	}
	if got := ctx.Security().FrameCounter(); got != 1 {
		t.Errorf("sender frame counter = %d, want 1 after one emission", got)
	}
}

func TestDecodeIncoming_BitFlipFailsAuth(t *testing.T) {
	var extSrc [8]byte
	for i := range extSrc {
		extSrc[i] = byte(i)
	}

	ctx := linkctx.NewContext(linkctx.Config{})
	ctx.SetPANID(0xABCD)
	ctx.SetExtAddr(extSrc)
	ctx.SetSecuritySettings(security.LevelENCMIC32, [16]byte{})

	pkt, err := EncodeDataFrame(ctx, Address{}, Address{}, []byte("hi"))
	if err != nil {
		t.Fatalf("EncodeDataFrame() error = %v", err)
	}
	pkt[len(pkt)-1] ^= 0x01 // flip a bit in the authentication tag

	rx := linkctx.NewContext(linkctx.Config{})
	rx.SetPANID(0xABCD)
	rx.SetShortAddr(0x0001)
	rx.SetSecuritySettings(security.LevelENCMIC32, [16]byte{})

	if _, _, err := DecodeIncoming(rx, pkt); err == nil {
		t.Fatal("DecodeIncoming() error = nil, want authentication failure")
	}
}

func TestDecodeIncoming_FiltersOtherPAN(t *testing.T) {
	ctx := linkctx.NewContext(linkctx.Config{})
	ctx.SetPANID(0xABCD)
	ctx.SetShortAddr(0x1111)
	ctx.SetExtAddr([8]byte{1, 2, 3, 4, 5, 6, 7, 8})

	pkt, err := EncodeDataFrame(ctx, ShortAddress(0x2222), Address{}, []byte("hi"))
	if err != nil {
		t.Fatalf("EncodeDataFrame() error = %v", err)
	}

	other := linkctx.NewContext(linkctx.Config{})
	other.SetPANID(0x0001)
	other.SetShortAddr(0x2222)

	if _, _, err := DecodeIncoming(other, pkt); err != ErrFiltered {
		t.Errorf("DecodeIncoming() error = %v, want ErrFiltered", err)
	}
}
