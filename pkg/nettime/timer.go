package nettime

import "time"

// Timer is a handle returned by TimerStart; pass it to TimerStop to cancel.
type Timer struct {
	t *time.Timer
}

// TimerStart stands in for the single hardware compare timer a radio
// counter peripheral exposes, firing fn once after d elapses. The software
// Reference does not enforce that limit: each call arms a new, independent
// timer and leaves any earlier one running. Callers needing more than one
// pending deadline multiplex through the timeout queue (AddTimeout)
// instead of calling TimerStart repeatedly.
//
// Standard library timers stand in for the hardware compare channel: no
// example in the retrieval pack wraps a platform timer peripheral, and a
// software reference has nothing else to arm.
func (r *Reference) TimerStart(d time.Duration, fn func()) *Timer {
	return &Timer{t: time.AfterFunc(d, fn)}
}

// TimerStop cancels a timer armed with TimerStart. Stopping an already
// fired or already stopped timer is a no-op.
func (r *Reference) TimerStop(tm *Timer) {
	if tm == nil || tm.t == nil {
		return
	}
	tm.t.Stop()
}
