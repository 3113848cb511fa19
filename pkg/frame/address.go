package frame

import "encoding/binary"

// Address is a single addressing-field value, on-wire little-endian. Mode
// selects which of Short/Extended is meaningful.
type Address struct {
	Mode     AddrMode
	Short    uint16   // host byte order
	Extended [8]byte  // on-wire little-endian
}

// IsBroadcast reports whether the address is the reserved short-address
// broadcast value.
func (a Address) IsBroadcast() bool {
	return a.Mode == AddrModeShort && a.Short == ShortAddrBroadcast
}

// ShortAddress is a convenience constructor.
func ShortAddress(short uint16) Address {
	return Address{Mode: AddrModeShort, Short: short}
}

// ExtendedAddress is a convenience constructor. ext must be 8 bytes,
// little-endian, matching the on-wire representation.
func ExtendedAddress(ext [8]byte) Address {
	return Address{Mode: AddrModeExtended, Extended: ext}
}

// BroadcastAddress is the reserved short-address broadcast value.
func BroadcastAddress() Address {
	return ShortAddress(ShortAddrBroadcast)
}

// readAddress reads an address field of the given mode from buf, returning
// the number of bytes consumed.
func readAddress(buf []byte, mode AddrMode) (Address, int, error) {
	switch mode {
	case AddrModeNone:
		return Address{Mode: AddrModeNone}, 0, nil
	case AddrModeShort:
		if len(buf) < 2 {
			return Address{}, 0, ErrTruncated
		}
		return Address{Mode: AddrModeShort, Short: binary.LittleEndian.Uint16(buf)}, 2, nil
	case AddrModeExtended:
		if len(buf) < 8 {
			return Address{}, 0, ErrTruncated
		}
		var ext [8]byte
		copy(ext[:], buf[:8])
		return Address{Mode: AddrModeExtended, Extended: ext}, 8, nil
	default:
		return Address{}, 0, ErrInvalidAddrMode
	}
}

// writeAddress writes addr's on-wire form into buf, returning the number
// of bytes written. buf must be at least addr.Mode.Size() bytes.
func writeAddress(buf []byte, addr Address) int {
	switch addr.Mode {
	case AddrModeShort:
		binary.LittleEndian.PutUint16(buf, addr.Short)
		return 2
	case AddrModeExtended:
		copy(buf[:8], addr.Extended[:])
		return 8
	default:
		return 0
	}
}
