package linkctx

import (
	"sync"

	"github.com/ieee802154/tschmac/pkg/security"
	"github.com/ieee802154/tschmac/pkg/tsch/schedule"
)

// Config configures a new Context, following the teacher's "Config
// struct with defaults applied in the constructor" idiom
// (session.ManagerConfig, transport.ManagerConfig).
type Config struct {
	// Role is the device's initial role. Default: RoleEndDevice.
	Role Role

	// Channel is the initial radio channel. Default: 11 (2.4 GHz
	// channel 11, the lowest 802.15.4 channel).
	Channel uint16

	// TXPower is the initial transmit power in dBm.
	TXPower int8
}

// Context is the per-interface link-layer context (spec.md §3): shared
// PAN/address/channel/sequence/frame-counter state protected by a single
// lock, plus separately-locked scan state.
type Context struct {
	mu sync.Mutex

	panID     uint16
	shortAddr uint16
	extAddr   [8]byte
	channel   uint16
	txPower   int8
	role      Role
	ackReq    bool
	seq       uint8
	lastAckSeq uint8

	coordShortMode AddrMode
	coordShort     uint16
	coordExtMode   AddrMode
	coordExt       [8]byte

	security *SecurityContext
	tsch     *TSCHContext

	scanMu    sync.Mutex
	scanning  bool
}

// NewContext creates a Context with the given configuration and an
// unassociated address state.
func NewContext(cfg Config) *Context {
	if cfg.Channel == 0 {
		cfg.Channel = 11
	}
	return &Context{
		shortAddr: ShortAddrUnassociated,
		channel:   cfg.Channel,
		txPower:   cfg.TXPower,
		role:      cfg.Role,
		security:  NewSecurityContext(),
		tsch:      NewTSCHContext(),
	}
}

// Lock acquires the context lock. Callers that need a multi-field
// snapshot (e.g. create_enh_beacon reading the schedule and timing
// tables, spec.md §4.1) hold it across the whole read.
func (c *Context) Lock() { c.mu.Lock() }

// Unlock releases the context lock.
func (c *Context) Unlock() { c.mu.Unlock() }

// PANID returns the current PAN id.
func (c *Context) PANID() uint16 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.panID
}

// ShortAddr returns the current short address (ShortAddrUnassociated or
// ShortAddrNoShort if not set).
func (c *Context) ShortAddr() uint16 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.shortAddr
}

// ExtAddr returns the current extended address, little-endian.
func (c *Context) ExtAddr() [8]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.extAddr
}

// IsAssociated reports whether the interface has a usable source address
// (spec.md §4.1 get_data_frame_params "not associated" rejection).
func (c *Context) IsAssociated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.shortAddr != ShortAddrUnassociated || c.extAddr != [8]byte{}
}

// Role returns the device's current role.
func (c *Context) Role() Role {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.role
}

// Channel returns the current radio channel.
func (c *Context) Channel() uint16 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.channel
}

// TXPower returns the current transmit power in dBm.
func (c *Context) TXPower() int8 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.txPower
}

// AckRequested reports whether outgoing unicast frames should request an
// ACK by default.
func (c *Context) AckRequested() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ackReq
}

// NextSequence increments and returns the outgoing sequence counter
// (spec.md §3: incremented exactly once per non-ACK frame emission).
func (c *Context) NextSequence() uint8 {
	c.mu.Lock()
	defer c.mu.Unlock()
	seq := c.seq
	c.seq++
	return seq
}

// LastAckSeq returns the sequence number of the last immediate ACK sent.
func (c *Context) LastAckSeq() uint8 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastAckSeq
}

// SetLastAckSeq records the sequence number of an immediate ACK just
// sent.
func (c *Context) SetLastAckSeq(seq uint8) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastAckSeq = seq
}

// CoordinatorShort returns the coordinator's short address, if set.
func (c *Context) CoordinatorShort() (uint16, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.coordShort, c.coordShortMode == AddrModeShort
}

// CoordinatorExtended returns the coordinator's extended address, if set.
func (c *Context) CoordinatorExtended() ([8]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.coordExt, c.coordExtMode == AddrModeExtended
}

// Security returns the security sub-context.
func (c *Context) Security() *SecurityContext {
	return c.security
}

// TSCH returns the TSCH sub-context.
func (c *Context) TSCH() *TSCHContext {
	return c.tsch
}

// --- §4.8 attribute setters; every setter acquires the context lock. ---

// SetAck sets the default ack-requested flag.
func (c *Context) SetAck() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ackReq = true
}

// UnsetAck clears the default ack-requested flag.
func (c *Context) UnsetAck() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ackReq = false
}

// SetChannel sets the radio channel attribute.
func (c *Context) SetChannel(channel uint16) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.channel = channel
}

// SetPANID sets the PAN id. If role is PAN-coordinator and id is the
// broadcast value, the setter still applies it; enforcement of the
// PAN-coordinator invariant (spec.md §3) is the configuration
// collaborator's responsibility, not the context's.
func (c *Context) SetPANID(id uint16) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.panID = id
}

// SetShortAddr sets the short address.
func (c *Context) SetShortAddr(addr uint16) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shortAddr = addr
}

// SetExtAddr sets the extended address, little-endian.
func (c *Context) SetExtAddr(addr [8]byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.extAddr = addr
}

// SetTXPower sets the transmit power in dBm.
func (c *Context) SetTXPower(power int8) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.txPower = power
}

// SetDeviceRole sets the device's role within the PAN.
func (c *Context) SetDeviceRole(role Role) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.role = role
}

// SetCoordinatorShort records the coordinator's short address.
func (c *Context) SetCoordinatorShort(addr uint16) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.coordShort = addr
	c.coordShortMode = AddrModeShort
}

// SetCoordinatorExtended records the coordinator's extended address.
func (c *Context) SetCoordinatorExtended(addr [8]byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.coordExt = addr
	c.coordExtMode = AddrModeExtended
}

// SetSecuritySettings configures the security sub-context's level and key.
func (c *Context) SetSecuritySettings(level security.Level, key [16]byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.security.Level = level
	c.security.Key = key
}

// SetTSCHSlotframe inserts or replaces a TSCH slotframe.
func (c *Context) SetTSCHSlotframe(handle uint8, size uint16, advertise bool) *schedule.Slotframe {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tsch.Schedule.AddSlotframe(handle, size, advertise)
}

// SetTSCHLink inserts or replaces a TSCH link.
func (c *Context) SetTSCHLink(l schedule.Link) (*schedule.Link, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tsch.Schedule.AddLink(l)
}

// SetHoppingSequence replaces the channel hopping sequence.
func (c *Context) SetHoppingSequence(seq []uint16) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tsch.Hopping = append([]uint16(nil), seq...)
}

// --- scan lock: separate from the context lock (spec.md §4.8, §5). ---

// BeginScan acquires the scan lock and marks scanning active. It returns
// false if a scan is already in progress.
func (c *Context) BeginScan() bool {
	c.scanMu.Lock()
	defer c.scanMu.Unlock()
	if c.scanning {
		return false
	}
	c.scanning = true
	return true
}

// EndScan clears the scanning flag.
func (c *Context) EndScan() {
	c.scanMu.Lock()
	defer c.scanMu.Unlock()
	c.scanning = false
}

// Scanning reports whether a scan is currently in progress.
func (c *Context) Scanning() bool {
	c.scanMu.Lock()
	defer c.scanMu.Unlock()
	return c.scanning
}

// SetTSCHMode flips the tsch_mode flag under the scan lock: mode
// transitions and scanning are mutually exclusive activities on the same
// interface (spec.md §4.7, §5).
func (c *Context) SetTSCHMode(on bool) {
	c.scanMu.Lock()
	defer c.scanMu.Unlock()
	c.tsch.Mode = on
}

// TSCHModeEnabled reports the tsch_mode flag under the scan lock.
func (c *Context) TSCHModeEnabled() bool {
	c.scanMu.Lock()
	defer c.scanMu.Unlock()
	return c.tsch.Mode
}
