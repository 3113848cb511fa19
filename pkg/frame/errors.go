package frame

import "errors"

// Parse/emit errors, grouped per spec.md §7's Invalid/NotSupported/
// NotAssociated kinds. Every parser returns one of these; the caller drops
// the packet.
var (
	ErrTooShort         = errors.New("frame: MPDU shorter than 2 bytes")
	ErrTooLong          = errors.New("frame: MPDU longer than the 127-byte MTU")
	ErrTruncated        = errors.New("frame: buffer truncated before expected field")
	ErrReservedType     = errors.New("frame: reserved frame type")
	ErrReservedVersion  = errors.New("frame: reserved frame version")
	ErrInvalidAddrMode  = errors.New("frame: reserved addressing mode")
	ErrInvalidDataFrame = errors.New("frame: pre-2015 data frame with no addressing")
	ErrInvalidBeacon    = errors.New("frame: malformed beacon addressing")
	ErrInvalidPANIDComp = errors.New("frame: PAN ID compression set without both addresses")
	ErrVersionGated     = errors.New("frame: sequence-suppression/IE-present require 2015+")
	ErrKeyIDMode        = errors.New("frame: only implicit key-id mode is supported")
	ErrNotAssociated    = errors.New("frame: interface has no address to source frames from")
	ErrAddrMismatch     = errors.New("frame: supplied source address does not match interface")
	ErrEmptyPayload     = errors.New("frame: data frame requires a non-empty payload")
	ErrNonEmptyAck      = errors.New("frame: ACK frame must carry no payload")
	ErrBadCommand       = errors.New("frame: malformed MAC command payload")
	ErrTimeCorrRange    = errors.New("frame: time correction out of [-2048, 2047] microsecond range")
	ErrNoHoppingSeq     = errors.New("frame: no hopping sequence configured")
	ErrFiltered         = errors.New("frame: dropped by destination filter")
)
