package schedule

import "sort"

// Slotframe is a cyclic sequence of timeslots; multiple slotframes may run
// in parallel (spec.md §3 TSCH slotframe).
type Slotframe struct {
	Handle    uint8
	Size      uint16 // timeslots; prime preferred to avoid link shadowing
	Advertise bool
	links     []Link // kept sorted by (Timeslot, Handle)
}

// Links returns a snapshot of the slotframe's links, in (Timeslot, Handle)
// order.
func (sf *Slotframe) Links() []Link {
	out := make([]Link, len(sf.links))
	copy(out, sf.links)
	return out
}

func (sf *Slotframe) insertLink(l Link) {
	i := sort.Search(len(sf.links), func(i int) bool { return !sf.links[i].less(l) })
	sf.links = append(sf.links, Link{})
	copy(sf.links[i+1:], sf.links[i:])
	sf.links[i] = l
}

func (sf *Slotframe) removeLink(handle uint16) (Link, bool) {
	for i, l := range sf.links {
		if l.Handle == handle {
			removed := l
			sf.links = append(sf.links[:i], sf.links[i+1:]...)
			return removed, true
		}
	}
	return Link{}, false
}

func (sf *Slotframe) findLink(handle uint16) (Link, bool) {
	for _, l := range sf.links {
		if l.Handle == handle {
			return l, true
		}
	}
	return Link{}, false
}

// Store exposes CRUD over slotframes (keyed by handle) and links (keyed
// by handle, globally unique across slotframes) per spec.md §4.4. It is
// not safe for concurrent use on its own; pkg/linkctx serializes access
// under the context lock.
type Store struct {
	slotframes []*Slotframe // kept sorted by Handle
	linkIndex  map[uint16]uint8 // link handle -> owning slotframe handle
}

// NewStore creates an empty schedule store.
func NewStore() *Store {
	return &Store{linkIndex: make(map[uint16]uint8)}
}

func (s *Store) findSlotframeIndex(handle uint8) int {
	return sort.Search(len(s.slotframes), func(i int) bool {
		return s.slotframes[i].Handle >= handle
	})
}

// Slotframe returns the slotframe with the given handle, or nil.
func (s *Store) Slotframe(handle uint8) *Slotframe {
	i := s.findSlotframeIndex(handle)
	if i < len(s.slotframes) && s.slotframes[i].Handle == handle {
		return s.slotframes[i]
	}
	return nil
}

// Slotframes returns all slotframes in ascending handle order.
func (s *Store) Slotframes() []*Slotframe {
	out := make([]*Slotframe, len(s.slotframes))
	copy(out, s.slotframes)
	return out
}

// AddSlotframe inserts or replaces the slotframe with the given handle,
// returning the replaced slotframe, if any, so the caller can free it.
func (s *Store) AddSlotframe(handle uint8, size uint16, advertise bool) (replaced *Slotframe) {
	i := s.findSlotframeIndex(handle)
	if i < len(s.slotframes) && s.slotframes[i].Handle == handle {
		replaced = s.slotframes[i]
		for _, l := range replaced.links {
			delete(s.linkIndex, l.Handle)
		}
		s.slotframes[i] = &Slotframe{Handle: handle, Size: size, Advertise: advertise}
		return replaced
	}
	sf := &Slotframe{Handle: handle, Size: size, Advertise: advertise}
	s.slotframes = append(s.slotframes, nil)
	copy(s.slotframes[i+1:], s.slotframes[i:])
	s.slotframes[i] = sf
	return nil
}

// RemoveSlotframe deletes the slotframe with the given handle and all of
// its links, returning it (or nil if absent).
func (s *Store) RemoveSlotframe(handle uint8) *Slotframe {
	i := s.findSlotframeIndex(handle)
	if i >= len(s.slotframes) || s.slotframes[i].Handle != handle {
		return nil
	}
	sf := s.slotframes[i]
	for _, l := range sf.links {
		delete(s.linkIndex, l.Handle)
	}
	s.slotframes = append(s.slotframes[:i], s.slotframes[i+1:]...)
	return sf
}

// AddLink inserts or replaces the link with the given handle into the
// slotframe it names, returning the replaced link, if any. ErrNoSlotframe
// is returned if l.SlotframeHandle is unknown.
func (s *Store) AddLink(l Link) (replaced *Link, err error) {
	sf := s.Slotframe(l.SlotframeHandle)
	if sf == nil {
		return nil, ErrNoSlotframe
	}
	if owner, ok := s.linkIndex[l.Handle]; ok && owner != l.SlotframeHandle {
		if old := s.Slotframe(owner); old != nil {
			old.removeLink(l.Handle)
		}
	}
	if old, ok := sf.removeLink(l.Handle); ok {
		replaced = &old
	}
	sf.insertLink(l)
	s.linkIndex[l.Handle] = l.SlotframeHandle
	return replaced, nil
}

// RemoveLink deletes the link with the given handle from whichever
// slotframe owns it, returning it (or nil if absent).
func (s *Store) RemoveLink(handle uint16) *Link {
	owner, ok := s.linkIndex[handle]
	if !ok {
		return nil
	}
	delete(s.linkIndex, handle)
	sf := s.Slotframe(owner)
	if sf == nil {
		return nil
	}
	removed, ok := sf.removeLink(handle)
	if !ok {
		return nil
	}
	return &removed
}

// Link finds a link by its globally unique handle.
func (s *Store) Link(handle uint16) (Link, bool) {
	owner, ok := s.linkIndex[handle]
	if !ok {
		return Link{}, false
	}
	sf := s.Slotframe(owner)
	if sf == nil {
		return Link{}, false
	}
	return sf.findLink(handle)
}
