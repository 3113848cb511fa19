package nettime

import "testing"

func TestReference_GetTime_SleepCounter(t *testing.T) {
	sleep := NewSoftwareCounter(32768)
	radio := NewSoftwareCounter(4_000_000)
	r := New(Config{SleepCounter: sleep, RadioCounter: radio})

	sleep.Advance(32768) // one second of sleep ticks
	got := r.GetTime()
	want := uint64(1_000_000_000)
	if diff := int64(got) - int64(want); diff < -1000 || diff > 1000 {
		t.Errorf("GetTime() = %d, want ~%d", got, want)
	}
}

func TestReference_WakeSleepContinuity(t *testing.T) {
	sleep := NewSoftwareCounter(32768)
	radio := NewSoftwareCounter(4_000_000)
	r := New(Config{SleepCounter: sleep, RadioCounter: radio})

	sleep.Advance(32768)
	before := r.GetTime()

	r.CounterWakeUp()
	after := r.GetTime()
	if after < before {
		t.Errorf("GetTime() went backwards across wake: before=%d after=%d", before, after)
	}

	radio.Advance(4_000_000) // one more second, on the radio counter now
	later := r.GetTime()
	if later < after+900_000_000 {
		t.Errorf("GetTime() = %d, want roughly one second after %d", later, after)
	}

	r.CounterMaySleep()
	afterSleep := r.GetTime()
	if afterSleep < later {
		t.Errorf("GetTime() went backwards across sleep: later=%d afterSleep=%d", later, afterSleep)
	}
}

func TestReference_TimepointRoundTrip(t *testing.T) {
	sleep := NewSoftwareCounter(32768)
	radio := NewSoftwareCounter(4_000_000)
	r := New(Config{SleepCounter: sleep, RadioCounter: radio})
	r.CounterWakeUp()

	tp := r.GetTimepointFromTime(r.GetTime()+500_000_000, RoundNearest)
	ns := r.GetTimeFromTimepoint(tp)
	if diff := int64(ns) - int64(r.GetTime()+500_000_000); diff < -1_000_000 || diff > 1_000_000 {
		t.Errorf("round trip drift too large: ns=%d", diff)
	}
}

func TestReference_RoundingModes(t *testing.T) {
	radio := NewSoftwareCounter(3) // 3 ticks/sec, forces fractional results
	r := New(Config{SleepCounter: NewSoftwareCounter(1), RadioCounter: radio})
	r.CounterWakeUp()

	next := nsToTicks(1, 3, RoundNext)
	prev := nsToTicks(1, 3, RoundPrevious)
	if next <= prev {
		t.Errorf("RoundNext (%d) should exceed RoundPrevious (%d) for a fractional tick count", next, prev)
	}
}
