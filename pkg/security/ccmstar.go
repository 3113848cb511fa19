// CCM* implementation for the 802.15.4 security engine.
// This implements AES-CCM* as defined in IEEE 802.15.4-2020 Annex B, which
// generalizes NIST 800-38C / RFC 3610 CCM with an authentication-only mode
// (no encryption, tag-only) used by security levels 1-3.
package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/subtle"
	"encoding/binary"
)

const (
	// KeySize is the AES-128 key size in bytes.
	KeySize = 16

	// NonceSize is the CCM* nonce length mandated by 802.15.4 (13 bytes).
	NonceSize = 13

	aesBlockSize = 16
	lenFieldSize = 2 // L = 15 - NonceSize = 2, per 802.15.4's fixed 13-byte nonce
)

// CCMStar is an AES-128-CCM* instance bound to a single key. It supports
// both the authenticating-and-encrypting levels (ENC-MIC-*) and the
// authentication-only levels (MIC-*), selected per call via authOnly.
type CCMStar struct {
	block cipher.Block
}

// New creates a CCM* instance for the given 16-byte key.
func New(key []byte) (*CCMStar, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKeySize
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return &CCMStar{block: block}, nil
}

// Seal authenticates aad and plaintext, optionally encrypting plaintext,
// and returns ciphertext (or plaintext, if authOnly) with the tagSize-byte
// tag appended. tagSize must be 4, 8, or 16 (per the security level table);
// tagSize == 0 is a caller bug (level 0/4 never reach the engine).
func (c *CCMStar) Seal(nonce, plaintext, aad []byte, tagSize int, authOnly bool) ([]byte, error) {
	if len(nonce) != NonceSize {
		return nil, ErrInvalidNonceSize
	}
	maxLen := (1 << (8 * lenFieldSize)) - 1
	if len(plaintext) > maxLen {
		return nil, ErrPlaintextTooLong
	}

	// CCM* authenticates over (aad || plaintext) always; when authOnly,
	// the "plaintext" for CBC-MAC purposes is folded into the AAD region
	// instead, per 802.15.4 Annex B's "the encryption key is not applied to
	// the data" auth-only transformation, yielding a tag computed over the
	// whole frame with no keystream applied to the payload.
	macAAD, macPlain := aad, plaintext
	if authOnly {
		macAAD, macPlain = append(append([]byte{}, aad...), plaintext...), nil
	}
	tag := c.computeTag(nonce, macPlain, macAAD, tagSize)

	out := make([]byte, len(plaintext)+tagSize)
	s0 := c.generateS0(nonce)
	for i := 0; i < tagSize; i++ {
		out[len(plaintext)+i] = tag[i] ^ s0[i]
	}

	if authOnly {
		copy(out[:len(plaintext)], plaintext)
	} else {
		c.ctrCrypt(nonce, out[:len(plaintext)], plaintext)
	}
	return out, nil
}

// Open verifies and (unless authOnly) decrypts ciphertext against aad,
// returning the plaintext. Returns ErrAuthFailed on tag mismatch.
func (c *CCMStar) Open(nonce, ciphertext, aad []byte, tagSize int, authOnly bool) ([]byte, error) {
	if len(nonce) != NonceSize {
		return nil, ErrInvalidNonceSize
	}
	if len(ciphertext) < tagSize {
		return nil, ErrFrameTooShort
	}

	encData := ciphertext[:len(ciphertext)-tagSize]
	encTag := ciphertext[len(ciphertext)-tagSize:]

	s0 := c.generateS0(nonce)
	recvTag := make([]byte, tagSize)
	for i := 0; i < tagSize; i++ {
		recvTag[i] = encTag[i] ^ s0[i]
	}

	plaintext := make([]byte, len(encData))
	if authOnly {
		copy(plaintext, encData)
	} else {
		c.ctrCrypt(nonce, plaintext, encData)
	}

	macAAD, macPlain := aad, plaintext
	if authOnly {
		macAAD, macPlain = append(append([]byte{}, aad...), plaintext...), nil
	}
	expected := c.computeTag(nonce, macPlain, macAAD, tagSize)
	if subtle.ConstantTimeCompare(recvTag, expected) != 1 {
		return nil, ErrAuthFailed
	}
	return plaintext, nil
}

// computeTag computes the CBC-MAC authentication tag over aad || plaintext.
// Follows RFC 3610 §2.2 / NIST 800-38C §6.1.
func (c *CCMStar) computeTag(nonce, plaintext, aad []byte, tagSize int) []byte {
	var b0 [aesBlockSize]byte
	flags := byte(0)
	if len(aad) > 0 {
		flags |= 1 << 6
	}
	flags |= byte((tagSize-2)/2) << 3
	flags |= byte(lenFieldSize - 1)

	b0[0] = flags
	copy(b0[1:1+NonceSize], nonce)
	putLength(b0[1+NonceSize:], len(plaintext))

	mac := make([]byte, aesBlockSize)
	c.block.Encrypt(mac, b0[:])

	if len(aad) > 0 {
		var aadBlock [aesBlockSize]byte
		aadLen := len(aad)
		var headerLen int
		switch {
		case aadLen < (1<<16)-(1<<8):
			binary.BigEndian.PutUint16(aadBlock[0:2], uint16(aadLen))
			headerLen = 2
		case aadLen < (1 << 32):
			aadBlock[0], aadBlock[1] = 0xFF, 0xFE
			binary.BigEndian.PutUint32(aadBlock[2:6], uint32(aadLen))
			headerLen = 6
		default:
			aadBlock[0], aadBlock[1] = 0xFF, 0xFF
			binary.BigEndian.PutUint64(aadBlock[2:10], uint64(aadLen))
			headerLen = 10
		}

		firstBlockAAD := aesBlockSize - headerLen
		if firstBlockAAD > len(aad) {
			firstBlockAAD = len(aad)
		}
		copy(aadBlock[headerLen:], aad[:firstBlockAAD])
		xorBlock(mac, aadBlock[:])
		c.block.Encrypt(mac, mac)

		remaining := aad[firstBlockAAD:]
		for len(remaining) > 0 {
			var block [aesBlockSize]byte
			n := copy(block[:], remaining)
			remaining = remaining[n:]
			xorBlock(mac, block[:])
			c.block.Encrypt(mac, mac)
		}
	}

	remaining := plaintext
	for len(remaining) > 0 {
		var block [aesBlockSize]byte
		n := copy(block[:], remaining)
		remaining = remaining[n:]
		xorBlock(mac, block[:])
		c.block.Encrypt(mac, mac)
	}

	return mac[:tagSize]
}

// generateS0 generates S_0 = E(K, A_0), the keystream block used to mask
// the authentication tag.
func (c *CCMStar) generateS0(nonce []byte) []byte {
	var a0 [aesBlockSize]byte
	a0[0] = byte(lenFieldSize - 1)
	copy(a0[1:1+NonceSize], nonce)

	s0 := make([]byte, aesBlockSize)
	c.block.Encrypt(s0, a0[:])
	return s0
}

// ctrCrypt encrypts/decrypts src into dst using CTR mode with counter
// blocks A_1, A_2, ... per NIST 800-38C Appendix A.3.
func (c *CCMStar) ctrCrypt(nonce []byte, dst, src []byte) {
	var ctr [aesBlockSize]byte
	ctr[0] = byte(lenFieldSize - 1)
	copy(ctr[1:1+NonceSize], nonce)
	ctr[aesBlockSize-1] = 1

	var keystream [aesBlockSize]byte
	for i := 0; i < len(src); i += aesBlockSize {
		c.block.Encrypt(keystream[:], ctr[:])
		end := i + aesBlockSize
		if end > len(src) {
			end = len(src)
		}
		for j := i; j < end; j++ {
			dst[j] = src[j] ^ keystream[j-i]
		}
		incrementCounter(ctr[aesBlockSize-lenFieldSize:])
	}
}

func putLength(dst []byte, length int) {
	for i := lenFieldSize - 1; i >= 0; i-- {
		dst[i] = byte(length)
		length >>= 8
	}
}

func incrementCounter(ctr []byte) {
	for i := len(ctr) - 1; i >= 0; i-- {
		ctr[i]++
		if ctr[i] != 0 {
			break
		}
	}
}

func xorBlock(dst, src []byte) {
	for i := range dst {
		dst[i] ^= src[i]
	}
}
