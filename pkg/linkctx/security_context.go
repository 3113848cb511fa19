package linkctx

import "github.com/ieee802154/tschmac/pkg/security"

// SecurityContext is the per-interface security sub-context (spec.md §3):
// security level, implicit key-id mode, a 16-byte key, and a
// monotonically increasing outgoing frame counter.
type SecurityContext struct {
	Level security.Level
	Key   [16]byte

	counter *security.FrameCounter
}

// NewSecurityContext creates a disabled (LevelNone) security sub-context.
func NewSecurityContext() *SecurityContext {
	return &SecurityContext{counter: security.NewFrameCounter(0)}
}

// ImplicitKeyIDMode is the only key-id mode the context uses (spec.md
// Non-goals); there is no setter, so there is nothing to configure.
const ImplicitKeyIDMode = security.ModeImplicit

// Enabled reports whether the security level requires any processing at
// all (level != LevelNone).
func (s *SecurityContext) Enabled() bool {
	return s.Level != security.LevelNone
}

// NextFrameCounter returns and advances the outgoing frame counter.
func (s *SecurityContext) NextFrameCounter() (uint32, error) {
	return s.counter.Next()
}

// FrameCounter returns the current outgoing frame counter value without
// advancing it.
func (s *SecurityContext) FrameCounter() uint32 {
	return s.counter.Current()
}

// RestoreFrameCounter replaces the frame counter, e.g. when restoring a
// persisted security context.
func (s *SecurityContext) RestoreFrameCounter(value uint32) {
	s.counter = security.NewFrameCounter(value)
}
