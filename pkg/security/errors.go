package security

import "errors"

// Security engine errors. Kinds follow spec §7: Invalid, NotSupported,
// Security, and exhaustion map onto the sentinel values below.
var (
	// ErrReservedLevel is returned for security level 0 (none) or 4 (reserved)
	// when a level is required to drive encryption/authentication.
	ErrReservedLevel = errors.New("security: reserved or no-security level")

	// ErrKeyIDModeUnsupported is returned for any key-id mode other than implicit.
	ErrKeyIDModeUnsupported = errors.New("security: only implicit key-id mode is supported")

	// ErrShortSourceUnsupported is returned when a non-TSCH frame nonce is
	// requested with a short source address (§4.3, only extended is accepted).
	ErrShortSourceUnsupported = errors.New("security: non-TSCH nonce requires an extended source address")

	// ErrCounterExhausted is returned when the frame counter has reached
	// 0xFFFFFFFF and cannot be used again without rekeying.
	ErrCounterExhausted = errors.New("security: frame counter exhausted")

	// ErrLevelMismatch is returned when an incoming frame's aux header
	// security level does not match the interface's configured level.
	ErrLevelMismatch = errors.New("security: aux header level does not match interface level")

	// ErrAuthFailed is returned when AEAD verification fails on decrypt.
	ErrAuthFailed = errors.New("security: authentication failed")

	// ErrFrameTooShort is returned when a frame is too short to contain the
	// claimed authentication tag.
	ErrFrameTooShort = errors.New("security: frame shorter than authentication tag")

	// ErrInvalidKeySize is returned when a key is not exactly 16 bytes.
	ErrInvalidKeySize = errors.New("security: key must be 16 bytes")

	// ErrInvalidNonceSize is returned when a nonce is not exactly 13 bytes.
	ErrInvalidNonceSize = errors.New("security: nonce must be 13 bytes")

	// ErrPlaintextTooLong is returned when a plaintext exceeds the CCM* length field.
	ErrPlaintextTooLong = errors.New("security: plaintext too long for CCM* length field")
)
