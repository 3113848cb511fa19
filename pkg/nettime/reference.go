package nettime

import (
	"sync"

	"github.com/pion/logging"
)

// Rounding selects how GetTimepointFromTime maps a nanosecond deadline onto
// the discrete tick grid of the radio counter.
type Rounding int

const (
	RoundNearest Rounding = iota
	RoundNext
	RoundPrevious
)

// Config configures a Reference. SleepCounter and RadioCounter default to
// software counters at 32768Hz and 4MHz, matching a typical low-power
// sleep oscillator paired with a radio-derived high-resolution counter.
type Config struct {
	SleepCounter Counter
	RadioCounter Counter
	LoggerFactory logging.LoggerFactory
}

// Reference is the network time reference (spec.md §4.6): a monotonic,
// syntonized uptime clock bridging a low-power sleep counter, which keeps
// running while the radio is off, and a high-resolution radio counter that
// is only valid while the radio is powered.
//
// It is the single time base the TSCH state machine schedules link
// operations against; everything else (timeout queue, ASN derivation)
// is expressed in terms of the nanoseconds GetTime reports.
type Reference struct {
	mu sync.Mutex

	sleep Counter
	radio Counter

	awake bool

	// epochNs/epochSleepTicks/epochRadioTicks anchor the ns timeline at
	// the tick count of whichever counter was authoritative as of the
	// last CounterWakeUp/CounterMaySleep transition.
	epochNs         uint64
	epochSleepTicks uint64
	epochRadioTicks uint64

	log logging.LeveledLogger
}

// New returns a Reference built from cfg, defaulting both counters to
// software counters when unset.
func New(cfg Config) *Reference {
	sleep := cfg.SleepCounter
	if sleep == nil {
		sleep = NewSoftwareCounter(32768)
	}
	radio := cfg.RadioCounter
	if radio == nil {
		radio = NewSoftwareCounter(4_000_000)
	}
	factory := cfg.LoggerFactory
	if factory == nil {
		factory = logging.NewDefaultLoggerFactory()
	}
	return &Reference{
		sleep: sleep,
		radio: radio,
		log:   factory.NewLogger("nettime"),
	}
}

func ticksToNs(ticks, freq uint64) uint64 {
	if freq == 0 {
		return 0
	}
	return ticks * 1_000_000_000 / freq
}

func nsToTicks(ns, freq uint64, r Rounding) uint64 {
	num := ns * freq
	switch r {
	case RoundNext:
		return (num + 999_999_999) / 1_000_000_000
	case RoundPrevious:
		return num / 1_000_000_000
	default: // RoundNearest
		return (num + 500_000_000) / 1_000_000_000
	}
}

// GetTime returns the current reference time in nanoseconds. It is
// monotonic across CounterWakeUp/CounterMaySleep transitions.
func (r *Reference) GetTime() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.timeLocked()
}

func (r *Reference) timeLocked() uint64 {
	if r.awake {
		elapsed := r.radio.Ticks() - r.epochRadioTicks
		return r.epochNs + ticksToNs(elapsed, r.radio.Freq())
	}
	elapsed := r.sleep.Ticks() - r.epochSleepTicks
	return r.epochNs + ticksToNs(elapsed, r.sleep.Freq())
}

// GetTimepointFromTime converts an absolute time in nanoseconds into a
// radio-counter timepoint, the unit link schedules and ASN boundaries are
// expressed in while the radio is active.
func (r *Reference) GetTimepointFromTime(ns uint64, rounding Rounding) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	var deltaNs uint64
	if ns > r.epochNs {
		deltaNs = ns - r.epochNs
	}
	return r.epochRadioTicks + nsToTicks(deltaNs, r.radio.Freq(), rounding)
}

// GetTimeFromTimepoint converts a radio-counter timepoint back to
// nanoseconds.
func (r *Reference) GetTimeFromTimepoint(tp uint64) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	var elapsed uint64
	if tp > r.epochRadioTicks {
		elapsed = tp - r.epochRadioTicks
	}
	return r.epochNs + ticksToNs(elapsed, r.radio.Freq())
}

// CounterWakeUp switches the reference onto the radio counter, anchoring
// the ns timeline to the current sleep-counter reading first so GetTime
// never jumps. Drivers call this when they power the radio up for a link.
func (r *Reference) CounterWakeUp() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.awake {
		return
	}
	r.epochNs = r.timeLocked()
	r.epochSleepTicks = r.sleep.Ticks()
	r.epochRadioTicks = r.radio.Ticks()
	r.awake = true
}

// CounterMaySleep switches the reference back onto the sleep counter,
// anchoring the ns timeline to the current radio-counter reading. Drivers
// call this once the radio is powered down between links.
func (r *Reference) CounterMaySleep() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.awake {
		return
	}
	r.epochNs = r.timeLocked()
	r.epochSleepTicks = r.sleep.Ticks()
	r.epochRadioTicks = r.radio.Ticks()
	r.awake = false
}

// Syntonize reconciles a measured (time, timepoint) pair obtained from an
// external reference, such as a received beacon's time-correction IE,
// against the local clock. The software reference has no oscillator trim
// to apply the correction to, so this is intentionally a no-op; it exists
// so callers (the TSCH sync link handler) have a stable hook to call.
func (r *Reference) Syntonize(measuredNs, measuredTimepoint uint64) {
	r.log.Tracef("syntonize: measuredNs=%d measuredTimepoint=%d (no-op)", measuredNs, measuredTimepoint)
}
