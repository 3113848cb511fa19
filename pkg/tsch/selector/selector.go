// Package selector implements the TSCH link selector (spec.md §4.5): given
// the current Absolute Slot Number, pick the next active link across every
// slotframe in the schedule, plus a same-offset backup RX link.
package selector

import (
	"errors"

	"github.com/ieee802154/tschmac/pkg/linkctx"
	"github.com/ieee802154/tschmac/pkg/tsch/schedule"
)

// ErrNoActiveLink is returned when the schedule has no slotframes, or every
// slotframe has zero size, so there is nothing to select (spec.md §4.7
// "structural failures ... schedule empty").
var ErrNoActiveLink = errors.New("selector: schedule has no active slotframes")

// DepthFunc reports the queue depth for a neighbor, used by the link
// comparator's rule 4 (spec.md §4.5). pkg/txqueue.Table.Depth satisfies
// this signature.
type DepthFunc func(schedule.NodeAddr) int

// Result is the outcome of GetNextActiveLink: the chosen primary link, an
// optional backup RX link at the same offset, and how far in the future
// that offset lies.
type Result struct {
	Primary         schedule.Link
	Backup          *schedule.Link
	OffsetTimeslots uint64
	OffsetNs        uint64
}

// GetNextActiveLink implements spec.md §4.5: while holding the context
// lock, it walks every slotframe, computes each one's nearest upcoming
// link relative to the current ASN, and — among the slotframes tied for
// the smallest such offset — applies the link comparator to choose a
// primary link and a backup RX link. It does not itself advance the ASN;
// the caller does that with the returned OffsetTimeslots (spec.md §4.5
// "the caller advances ASN += offset_in_timeslots").
func GetNextActiveLink(ctx *linkctx.Context, depth DepthFunc) (Result, error) {
	ctx.Lock()
	defer ctx.Unlock()

	tsch := ctx.TSCH()
	slotframes := tsch.Schedule.Slotframes()
	asn := tsch.ASN()

	var candidates []schedule.Link
	var bestOffset uint64
	haveBest := false

	for _, sf := range slotframes {
		if sf.Size == 0 {
			continue
		}
		links := sf.Links()
		if len(links) == 0 {
			continue
		}
		current := asn % uint64(sf.Size)

		var sfBest uint64
		sfHave := false
		var sfLinks []schedule.Link
		for _, l := range links {
			off := (uint64(l.Timeslot) + uint64(sf.Size) - current) % uint64(sf.Size)
			switch {
			case !sfHave || off < sfBest:
				sfBest = off
				sfHave = true
				sfLinks = []schedule.Link{l}
			case off == sfBest:
				sfLinks = append(sfLinks, l)
			}
		}
		if !sfHave {
			continue
		}
		if !haveBest || sfBest < bestOffset {
			bestOffset = sfBest
			haveBest = true
			candidates = candidates[:0]
		}
		if sfBest == bestOffset {
			candidates = append(candidates, sfLinks...)
		}
	}

	if !haveBest {
		return Result{}, ErrNoActiveLink
	}

	primary := candidates[0]
	for _, c := range candidates[1:] {
		if preferred(c, primary, depth) {
			primary = c
		}
	}

	var backup *schedule.Link
	for _, c := range candidates {
		if c.Handle == primary.Handle || !c.RX {
			continue
		}
		if backup == nil || c.SlotframeHandle < backup.SlotframeHandle {
			l := c
			backup = &l
		}
	}

	ns := bestOffset * uint64(tsch.Timeslot.TimeslotLength) * 1000
	return Result{Primary: primary, Backup: backup, OffsetTimeslots: bestOffset, OffsetNs: ns}, nil
}

// preferred reports whether a should be chosen over b by the link
// comparator (spec.md §4.5):
//
//  1. A TX link beats an RX-only link.
//  2. Among two links of the same kind (both TX or both RX): the lower
//     slotframe handle wins.
//  3. Among two RX-only links in the same slotframe, or two TX links in
//     the same slotframe belonging to the same neighbor: the lowest link
//     handle wins.
//  4. Among two TX links in the same slotframe with different neighbors:
//     the neighbor with more queued packets wins; ties fall back to link
//     handle.
func preferred(a, b schedule.Link, depth DepthFunc) bool {
	if a.TX != b.TX {
		return a.TX
	}
	// Both TX or both RX: the lower slotframe handle wins first.
	if a.SlotframeHandle != b.SlotframeHandle {
		return a.SlotframeHandle < b.SlotframeHandle
	}
	if !a.TX {
		// Both RX-only, same slotframe.
		return a.Handle < b.Handle
	}
	// Both TX, same slotframe.
	if a.Node.Key() == b.Node.Key() {
		return a.Handle < b.Handle
	}
	da, db := safeDepth(depth, a.Node), safeDepth(depth, b.Node)
	if da != db {
		return da > db
	}
	return a.Handle < b.Handle
}

func safeDepth(depth DepthFunc, addr schedule.NodeAddr) int {
	if depth == nil {
		return 0
	}
	return depth(addr)
}
