package schedule

import "errors"

var (
	// ErrNoSlotframe is returned when a link names a slotframe handle the
	// store does not contain.
	ErrNoSlotframe = errors.New("schedule: link references unknown slotframe handle")
)
