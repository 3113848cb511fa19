// tschnode is a demonstration binary for the TSCH MAC layer. It runs two
// virtual nodes in one process, a PAN coordinator and an end device,
// joined by a driver.Stub pair (spec.md §6), and periodically sends a
// data frame from the coordinator to the device over a one-link
// slotframe until interrupted.
//
// Usage:
//
//	tschnode [options]
//
// Options:
//
//	-panid     PAN identifier (default: 0xABCD)
//	-interval  Time between demo data frames (default: 2s)
//	-log-level Log level: trace, debug, info, warn, error (default: info)
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pion/logging"

	"github.com/ieee802154/tschmac/pkg/driver"
	"github.com/ieee802154/tschmac/pkg/frame"
	"github.com/ieee802154/tschmac/pkg/linkctx"
	"github.com/ieee802154/tschmac/pkg/tsch/schedule"
	"github.com/ieee802154/tschmac/pkg/tsch/statemachine"
	"github.com/ieee802154/tschmac/pkg/txqueue"
)

// options holds the demo's standard CLI flags, following the same
// flag.Func-based pattern the Matter device examples use for
// bounds-checked numeric flags.
type options struct {
	panID    uint16
	interval time.Duration
	logLevel string
}

func defaultOptions() options {
	return options{
		panID:    0xABCD,
		interval: 2 * time.Second,
		logLevel: "info",
	}
}

func parseFlags() options {
	o := defaultOptions()
	defaults := defaultOptions()

	flag.Func("panid", fmt.Sprintf("PAN identifier (default: 0x%04X)", defaults.panID), func(s string) error {
		var v uint16
		if _, err := fmt.Sscanf(s, "0x%x", &v); err != nil {
			if _, err := fmt.Sscanf(s, "%d", &v); err != nil {
				return err
			}
		}
		o.panID = v
		return nil
	})
	flag.DurationVar(&o.interval, "interval", defaults.interval, "time between demo data frames")
	flag.StringVar(&o.logLevel, "log-level", defaults.logLevel, "log level: trace, debug, info, warn, error")

	flag.Parse()
	return o
}

func parseLogLevel(s string) (logging.LogLevel, bool) {
	switch s {
	case "disabled":
		return logging.LogLevelDisabled, true
	case "error":
		return logging.LogLevelError, true
	case "warn":
		return logging.LogLevelWarn, true
	case "info":
		return logging.LogLevelInfo, true
	case "debug":
		return logging.LogLevelDebug, true
	case "trace":
		return logging.LogLevelTrace, true
	default:
		return 0, false
	}
}

func main() {
	opts := parseFlags()

	factory := logging.NewDefaultLoggerFactory()
	if lvl, ok := parseLogLevel(opts.logLevel); ok {
		factory.DefaultLogLevel = lvl
	} else {
		log.Printf("unrecognized -log-level %q, using default", opts.logLevel)
	}
	nodeLog := factory.NewLogger("tschnode")

	coordShort := uint16(0x0001)
	deviceShort := uint16(0x0002)
	coordAddr := schedule.NodeAddr{Mode: schedule.NodeAddrShort, Short: coordShort}
	deviceAddr := schedule.NodeAddr{Mode: schedule.NodeAddrShort, Short: deviceShort}

	coordDrv, deviceDrv := driver.NewStubPair(nil, nil, factory)
	defer coordDrv.Close()
	defer deviceDrv.Close()

	coordCtx := linkctx.NewContext(linkctx.Config{Role: linkctx.RolePANCoordinator})
	coordCtx.SetPANID(opts.panID)
	coordCtx.SetShortAddr(coordShort)
	coordCtx.SetAck()

	deviceCtx := linkctx.NewContext(linkctx.Config{Role: linkctx.RoleEndDevice})
	deviceCtx.SetPANID(opts.panID)
	deviceCtx.SetShortAddr(deviceShort)
	deviceCtx.SetAck()
	deviceCtx.SetCoordinatorShort(coordShort)

	// One slotframe, two timeslots: timeslot 0 is the coordinator's TX
	// link to the device and the device's matching RX link. The Stub
	// driver arms its receive window immediately rather than at a
	// scheduled start time (see pkg/driver's DESIGN.md entry), so the
	// demo widens DefaultTimeslot24GHz's RX/ACK windows well past the
	// stub's real-time plumbing latency instead of running at an actual
	// radio's microsecond budget.
	demoTimeslot := schedule.DefaultTimeslot24GHz
	demoTimeslot.RXWait = 50_000
	demoTimeslot.ACKWait = 50_000
	demoTimeslot.TimeslotLength = 200_000

	for _, ctx := range []*linkctx.Context{coordCtx, deviceCtx} {
		ctx.SetTSCHSlotframe(0, 2, false)
		ctx.SetHoppingSequence([]uint16{11, 15, 20, 25})
		ctx.Lock()
		ctx.TSCH().Timeslot = demoTimeslot
		ctx.Unlock()
	}
	coordCtx.SetTSCHLink(schedule.Link{Handle: 0, SlotframeHandle: 0, Timeslot: 0, TX: true, Node: deviceAddr})
	deviceCtx.SetTSCHLink(schedule.Link{Handle: 0, SlotframeHandle: 0, Timeslot: 0, RX: true, Node: coordAddr})

	coordMachine := statemachine.New(statemachine.Config{
		Context:       coordCtx,
		Driver:        coordDrv,
		LoggerFactory: factory,
	})
	deviceMachine := statemachine.New(statemachine.Config{
		Context: deviceCtx,
		Driver:  deviceDrv,
		OnData: func(src frame.Address, payload []byte) {
			nodeLog.Infof("device received %d bytes from %+v: %q", len(payload), src, payload)
		},
		LoggerFactory: factory,
	})

	if err := coordMachine.TSCHModeOn(); err != nil {
		log.Fatalf("coordinator TSCHModeOn: %v", err)
	}
	if err := deviceMachine.TSCHModeOn(); err != nil {
		log.Fatalf("device TSCHModeOn: %v", err)
	}
	defer coordMachine.TSCHModeOff()
	defer deviceMachine.TSCHModeOff()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	nodeLog.Infof("tschnode running: PAN 0x%04X, coordinator 0x%04X -> device 0x%04X every %s", opts.panID, coordShort, deviceShort, opts.interval)

	ticker := time.NewTicker(opts.interval)
	defer ticker.Stop()

	seq := 0
	for {
		select {
		case <-ticker.C:
			seq++
			payload := []byte(fmt.Sprintf("hello #%d", seq))
			coordMachine.Queues().Enqueue(deviceAddr, &txqueue.Packet{Dst: deviceAddr, Payload: payload})
			nodeLog.Infof("coordinator enqueued %q", payload)
		case <-ctx.Done():
			nodeLog.Info("shutting down")
			os.Exit(0)
		}
	}
}
