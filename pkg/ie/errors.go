// Package ie implements parsing and emission of IEEE 802.15.4 Information
// Elements: Header IEs, Payload IEs, and the nested IEs carried inside the
// MLME payload IE (TSCH synchronization, slotframe-and-link, timeslot, and
// channel hopping).
package ie

import "errors"

var (
	ErrTruncated    = errors.New("ie: buffer truncated before declared length")
	ErrBadLength    = errors.New("ie: declared length does not match content")
	ErrNegativeTail = errors.New("ie: parsing consumed more than the available buffer")
)
