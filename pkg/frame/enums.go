// Package frame implements bit-exact parsing and emission of IEEE
// 802.15.4 MAC Protocol Data Units (MPDU): frame-control decoding,
// addressing compression, the auxiliary security header, and the
// envelope around Information Elements and the MAC payload.
package frame

// Type is the 3-bit MAC frame type field (spec.md §3, Frame-control).
type Type uint8

const (
	TypeBeacon     Type = 0
	TypeData       Type = 1
	TypeAck        Type = 2
	TypeMACCommand Type = 3
	// 4-7 are reserved/out of scope (multipurpose, fragment, extended
	// frame types introduced after 2015 are not modeled — spec.md §1
	// Non-goals).
)

// IsValid reports whether t is one of the four supported frame types.
func (t Type) IsValid() bool {
	return t <= TypeMACCommand
}

// Version is the 2-bit frame version field.
type Version uint8

const (
	Version2003  Version = 0
	Version2006  Version = 1
	Version2015  Version = 2
	versionResvd Version = 3
)

// IsValid reports whether v is a defined, non-reserved version.
func (v Version) IsValid() bool {
	return v <= Version2015
}

// Pre2015 reports whether v predates the 2015 revision's addressing and IE
// extensions.
func (v Version) Pre2015() bool {
	return v == Version2003 || v == Version2006
}

// AddrMode is the 2-bit addressing mode field, used independently for the
// destination and source address subfields.
type AddrMode uint8

const (
	AddrModeNone     AddrMode = 0
	addrModeReserved AddrMode = 1
	AddrModeShort    AddrMode = 2
	AddrModeExtended AddrMode = 3
)

// IsValid reports whether m is a defined, non-reserved addressing mode.
func (m AddrMode) IsValid() bool {
	return m == AddrModeNone || m == AddrModeShort || m == AddrModeExtended
}

// Size returns the on-wire address field length in bytes for the mode.
func (m AddrMode) Size() int {
	switch m {
	case AddrModeShort:
		return 2
	case AddrModeExtended:
		return 8
	default:
		return 0
	}
}

// Present reports whether the mode carries an address at all.
func (m AddrMode) Present() bool {
	return m != AddrModeNone
}

// Role is the device's role within the PAN (spec.md §3).
type Role uint8

const (
	RoleEndDevice    Role = 0
	RoleCoordinator  Role = 1
	RolePANCoordinator Role = 2
)

// Reserved 16-bit short address values (spec.md §3).
const (
	ShortAddrUnassociated uint16 = 0xFFFF
	ShortAddrNoShort      uint16 = 0xFFFE
	ShortAddrBroadcast    uint16 = 0xFFFF
)

// CFI is the Command Frame Identifier, the first byte of a MAC command
// payload (spec.md §4.1, §7.5 of the standard).
type CFI uint8

const (
	CFIAssociationRequest    CFI = 0x01
	CFIAssociationResponse   CFI = 0x02
	CFIDisassociationNotify  CFI = 0x03
	CFIDataRequest           CFI = 0x04
	CFIPANIDConflictNotify   CFI = 0x05
	CFIOrphanNotification    CFI = 0x06
	CFIBeaconRequest         CFI = 0x07
	CFICoordinatorRealign    CFI = 0x08
	CFIGTSRequest            CFI = 0x09
)
