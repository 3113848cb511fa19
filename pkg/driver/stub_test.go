package driver

import (
	"testing"
	"time"

	"github.com/ieee802154/tschmac/pkg/nettime"
)

func TestStub_SendDeliversOnMatchingChannel(t *testing.T) {
	a, b := NewStubPair(nil, nil, nil)
	defer a.Close()
	defer b.Close()

	if err := a.SetChannel(20); err != nil {
		t.Fatalf("SetChannel() error = %v", err)
	}
	if err := b.SetChannel(20); err != nil {
		t.Fatalf("SetChannel() error = %v", err)
	}

	got := make(chan Packet, 1)
	if err := b.ConfigureRXSlot(RXSlot{DurationNs: uint64(200 * time.Millisecond), Channel: 20}, func(pkt Packet) {
		got <- pkt
	}); err != nil {
		t.Fatalf("ConfigureRXSlot() error = %v", err)
	}

	if err := a.Send(&Packet{Payload: []byte("hello"), Channel: 20}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	select {
	case pkt := <-got:
		if string(pkt.Payload) != "hello" {
			t.Errorf("payload = %q, want %q", pkt.Payload, "hello")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for delivery")
	}
}

func TestStub_DropsFrameOnChannelMismatch(t *testing.T) {
	a, b := NewStubPair(nil, nil, nil)
	defer a.Close()
	defer b.Close()

	got := make(chan Packet, 1)
	if err := b.ConfigureRXSlot(RXSlot{DurationNs: uint64(100 * time.Millisecond), Channel: 15}, func(pkt Packet) {
		got <- pkt
	}); err != nil {
		t.Fatalf("ConfigureRXSlot() error = %v", err)
	}

	if err := a.Send(&Packet{Payload: []byte("hello"), Channel: 20}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	select {
	case <-got:
		t.Fatal("frame delivered despite channel mismatch")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestStub_VerifyChannel(t *testing.T) {
	a, _ := NewStubPair(nil, nil, nil)
	defer a.Close()

	if !a.VerifyChannel(11) {
		t.Error("VerifyChannel(11) = false, want true")
	}
	if a.VerifyChannel(5) {
		t.Error("VerifyChannel(5) = true, want false")
	}
	if err := a.SetChannel(5); err != ErrNotSupported {
		t.Errorf("SetChannel(5) error = %v, want ErrNotSupported", err)
	}
}

func TestStub_SendStampsTXTime(t *testing.T) {
	ref := nettime.New(nettime.Config{})
	a, b := NewStubPair(ref, nil, nil)
	defer a.Close()
	defer b.Close()

	pkt := &Packet{Payload: []byte("x"), Channel: 11}
	if err := a.Send(pkt); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if pkt.TXAtNs != 0 {
		t.Errorf("TXAtNs = %d, want 0 at a fresh reference's time zero", pkt.TXAtNs)
	}
}
