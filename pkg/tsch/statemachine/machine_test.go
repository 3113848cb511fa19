package statemachine

import (
	"testing"
	"time"

	"github.com/ieee802154/tschmac/pkg/driver"
	"github.com/ieee802154/tschmac/pkg/frame"
	"github.com/ieee802154/tschmac/pkg/linkctx"
	"github.com/ieee802154/tschmac/pkg/tsch/schedule"
	"github.com/ieee802154/tschmac/pkg/txqueue"
)

func newAssociatedContext(t *testing.T, role linkctx.Role, short uint16) *linkctx.Context {
	t.Helper()
	ctx := linkctx.NewContext(linkctx.Config{Role: role})
	ctx.SetPANID(0xABCD)
	ctx.SetShortAddr(short)
	ctx.SetAck()
	return ctx
}

// buildSlotframe installs a single 2-timeslot slotframe with one link at
// the given timeslot, TX or RX, addressed to node. The timeslot template
// is widened well past the Stub driver's real-time RX/TX plumbing
// latency, so the test does not depend on racing millisecond-scale
// virtual-medium delivery against the default 802.15.4 timeslot budget.
func buildSlotframe(ctx *linkctx.Context, timeslot uint16, tx, rx bool, node schedule.NodeAddr) {
	ctx.SetTSCHSlotframe(0, 2, false)
	ctx.SetTSCHLink(schedule.Link{Handle: 0, SlotframeHandle: 0, Timeslot: timeslot, TX: tx, RX: rx, Node: node})
	ctx.SetHoppingSequence([]uint16{11})

	ctx.Lock()
	ctx.TSCH().Timeslot = schedule.TimeslotTemplate{
		TXOffset:       0,
		RXOffset:       0,
		RXAckDelay:     0,
		RXWait:         200_000,
		ACKWait:        200_000,
		TimeslotLength: 500_000,
	}
	ctx.Unlock()
}

func TestMachine_DeliversDataFrameEndToEnd(t *testing.T) {
	stubA, stubB := driver.NewStubPair(nil, nil, nil)
	defer stubA.Close()
	defer stubB.Close()

	nodeB := schedule.NodeAddr{Mode: schedule.NodeAddrShort, Short: 0x0002}
	nodeA := schedule.NodeAddr{Mode: schedule.NodeAddrShort, Short: 0x0001}

	ctxA := newAssociatedContext(t, linkctx.RolePANCoordinator, 0x0001)
	buildSlotframe(ctxA, 0, true, false, nodeB)

	ctxB := newAssociatedContext(t, linkctx.RoleEndDevice, 0x0002)
	buildSlotframe(ctxB, 0, false, true, nodeA)

	received := make(chan string, 1)
	machineA := New(Config{Context: ctxA, Driver: stubA})
	machineB := New(Config{Context: ctxB, Driver: stubB, OnData: func(src frame.Address, payload []byte) {
		received <- string(payload)
	}})

	machineA.Queues().Enqueue(nodeB, &txqueue.Packet{Dst: nodeB, Payload: []byte("hello tsch")})

	if err := machineA.TSCHModeOn(); err != nil {
		t.Fatalf("machineA.TSCHModeOn() error = %v", err)
	}
	if err := machineB.TSCHModeOn(); err != nil {
		t.Fatalf("machineB.TSCHModeOn() error = %v", err)
	}
	defer machineA.TSCHModeOff()
	defer machineB.TSCHModeOff()

	select {
	case got := <-received:
		if got != "hello tsch" {
			t.Errorf("received payload = %q, want %q", got, "hello tsch")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for data frame delivery")
	}
}

func TestMachine_DropsDataFrameFromUnexpectedSource(t *testing.T) {
	stubA, stubB := driver.NewStubPair(nil, nil, nil)
	defer stubA.Close()
	defer stubB.Close()

	nodeB := schedule.NodeAddr{Mode: schedule.NodeAddrShort, Short: 0x0002}
	nodeWrong := schedule.NodeAddr{Mode: schedule.NodeAddrShort, Short: 0x0099}

	ctxA := newAssociatedContext(t, linkctx.RolePANCoordinator, 0x0001)
	buildSlotframe(ctxA, 0, true, false, nodeB)

	ctxB := newAssociatedContext(t, linkctx.RoleEndDevice, 0x0002)
	// B's RX link names a neighbor other than A, so A's frame must be
	// dropped even though it otherwise addresses B correctly.
	buildSlotframe(ctxB, 0, false, true, nodeWrong)

	received := make(chan string, 1)
	machineA := New(Config{Context: ctxA, Driver: stubA})
	machineB := New(Config{Context: ctxB, Driver: stubB, OnData: func(src frame.Address, payload []byte) {
		received <- string(payload)
	}})

	machineA.Queues().Enqueue(nodeB, &txqueue.Packet{Dst: nodeB, Payload: []byte("should be dropped")})

	if err := machineA.TSCHModeOn(); err != nil {
		t.Fatalf("machineA.TSCHModeOn() error = %v", err)
	}
	if err := machineB.TSCHModeOn(); err != nil {
		t.Fatalf("machineB.TSCHModeOn() error = %v", err)
	}
	defer machineA.TSCHModeOff()
	defer machineB.TSCHModeOff()

	select {
	case got := <-received:
		t.Fatalf("OnData fired with %q, want the frame dropped for a source-address mismatch", got)
	case <-time.After(500 * time.Millisecond):
	}
}

func TestMachine_TSCHModeOnRejectsInsufficientCapabilities(t *testing.T) {
	stub, other := driver.NewStubPair(nil, nil, nil)
	defer stub.Close()
	defer other.Close()

	ctx := newAssociatedContext(t, linkctx.RoleEndDevice, 0x0002)
	m := New(Config{Context: ctx, Driver: limitedDriver{Stub: stub}})
	if err := m.TSCHModeOn(); err != ErrCapabilitiesInsufficient {
		t.Errorf("TSCHModeOn() error = %v, want ErrCapabilitiesInsufficient", err)
	}
}

// limitedDriver wraps a real Stub but reports no capabilities, to
// exercise TSCHModeOn's capability check without hand-rolling a fake
// driver.Driver.
type limitedDriver struct{ *driver.Stub }

func (limitedDriver) Capabilities() driver.Capabilities { return 0 }

func TestMachine_WaitsForAssociationBeforeOperating(t *testing.T) {
	stubA, stubB := driver.NewStubPair(nil, nil, nil)
	defer stubA.Close()
	defer stubB.Close()

	ctx := linkctx.NewContext(linkctx.Config{})
	ctx.SetTSCHSlotframe(0, 2, false)
	ctx.SetHoppingSequence([]uint16{11})

	m := New(Config{Context: ctx, Driver: stubA, AssociationPollInterval: 20 * time.Millisecond})
	if err := m.TSCHModeOn(); err != nil {
		t.Fatalf("TSCHModeOn() error = %v", err)
	}
	defer m.TSCHModeOff()

	time.Sleep(60 * time.Millisecond)
	if got := m.State(); got != StateWaitingForAssociation {
		t.Errorf("State() = %v, want %v", got, StateWaitingForAssociation)
	}
}
