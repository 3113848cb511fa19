package security

// EncryptOutgoing runs the §9.2.2 outgoing security procedure's AEAD step:
// CCM* over associated data `aad` (the ll_hdr_len header bytes) and
// plaintext `payload`, for the given level/key/nonce. Returns payload with
// the authentication tag appended (ciphertext||tag for encrypting levels,
// plaintext||tag for MIC-only levels).
//
// Callers are responsible for: rejecting level None/reserved, deriving the
// nonce (BuildNonceNonTSCH/BuildNonceTSCH), flipping the security-enabled
// bit and writing the auxiliary security header, and incrementing the
// frame counter — those are frame-codec (component A) and context (H)
// responsibilities that this package does not reach into.
func EncryptOutgoing(key, nonce, aad, payload []byte, level Level) ([]byte, error) {
	if level == LevelNone || level.Reserved() {
		return nil, ErrReservedLevel
	}
	ccm, err := New(key)
	if err != nil {
		return nil, err
	}
	return ccm.Seal(nonce, payload, aad, level.AuthTagLen(), !level.Encrypted())
}

// DecryptIncoming runs the §9.2.4/§9.2.5 incoming security procedure's AEAD
// step: verifies and (for encrypting levels) decrypts `payload` (which
// includes the trailing authentication tag) against associated data `aad`.
// Returns the recovered plaintext on success, ErrAuthFailed on tag
// mismatch.
func DecryptIncoming(key, nonce, aad, payload []byte, level Level) ([]byte, error) {
	if level == LevelNone || level.Reserved() {
		return nil, ErrReservedLevel
	}
	ccm, err := New(key)
	if err != nil {
		return nil, err
	}
	return ccm.Open(nonce, payload, aad, level.AuthTagLen(), !level.Encrypted())
}
