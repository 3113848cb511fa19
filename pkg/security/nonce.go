package security

import "encoding/binary"

// ieeeCID is the 3-byte IEEE Company ID used as a prefix when a TSCH nonce
// is built from a short source address (spec.md §4.3, §9.3.3.2).
var ieeeCID = [3]byte{0xBA, 0x55, 0xEC}

// BuildNonceNonTSCH builds the 13-byte nonce for the non-TSCH outgoing/
// incoming procedure (§9.3.3.1). Only an extended source address is
// accepted; extSrc must be 8 bytes, little-endian, matching the on-wire
// representation of the context's extended address.
//
//	nonce = extSrc[0..8] || frameCounter (BE32) || level
func BuildNonceNonTSCH(extSrc []byte, frameCounter uint32, level Level) ([]byte, error) {
	if len(extSrc) != 8 {
		return nil, ErrShortSourceUnsupported
	}
	nonce := make([]byte, NonceSize)
	copy(nonce[0:8], extSrc)
	binary.BigEndian.PutUint32(nonce[8:12], frameCounter)
	nonce[12] = byte(level)
	return nonce, nil
}

// BuildNonceTSCH builds the 13-byte nonce for the TSCH outgoing/incoming
// procedure (§9.3.3.2). Exactly one of extSrc or (panID, shortSrc) is used,
// selected by extSrc being non-nil. The trailer is the 40-bit ASN in
// big-endian and does not include the level byte.
//
//	extended source: nonce = extSrc[0..8] || asn40(BE)
//	short source:    nonce = CID(3) || 0x00 || panID(BE16) || shortSrc(BE16) || asn40(BE)
func BuildNonceTSCH(extSrc []byte, panID, shortSrc uint16, asn uint64) ([]byte, error) {
	nonce := make([]byte, NonceSize)

	if extSrc != nil {
		if len(extSrc) != 8 {
			return nil, ErrShortSourceUnsupported
		}
		copy(nonce[0:8], extSrc)
	} else {
		copy(nonce[0:3], ieeeCID[:])
		nonce[3] = 0x00
		binary.BigEndian.PutUint16(nonce[4:6], panID)
		binary.BigEndian.PutUint16(nonce[6:8], shortSrc)
	}

	putASN40(nonce[8:13], asn)
	return nonce, nil
}

// putASN40 writes the low 40 bits of asn into dst (5 bytes), big-endian.
func putASN40(dst []byte, asn uint64) {
	asn &= (uint64(1) << 40) - 1
	for i := 4; i >= 0; i-- {
		dst[i] = byte(asn)
		asn >>= 8
	}
}
