// Package nettime implements the network time reference (spec.md §4.6): a
// monotonic, syntonized uptime bridging a low-power sleep counter and a
// high-resolution radio counter, plus the generic timeout queue the TSCH
// state machine schedules against.
package nettime

import "errors"

var (
	// ErrForeverRejected is returned by AddTimeout when given the
	// "never fires" sentinel delta (spec.md §4.6: "rejects K_FOREVER").
	ErrForeverRejected = errors.New("nettime: add_timeout rejects a forever delta")
)
