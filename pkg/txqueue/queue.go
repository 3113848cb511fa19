// Package txqueue implements the per-neighbor TX queue table (spec.md §5
// resource policy): an unbounded FIFO per neighbor address, with an
// approximate atomic depth counter the link selector's comparator uses to
// prioritize the neighbor with more queued packets.
package txqueue

import (
	"sync"
	"sync/atomic"

	"github.com/ieee802154/tschmac/pkg/tsch/schedule"
)

// Packet is a queued outgoing MAC frame awaiting its scheduled TX link.
type Packet struct {
	Dst     schedule.NodeAddr
	Payload []byte
}

type neighborQueue struct {
	mu    sync.Mutex
	items []*Packet
	depth atomic.Int64
}

// Table holds one FIFO per neighbor address.
type Table struct {
	mu    sync.RWMutex
	queue map[schedule.NodeAddr]*neighborQueue
}

// NewTable returns an empty TX queue table.
func NewTable() *Table {
	return &Table{queue: make(map[schedule.NodeAddr]*neighborQueue)}
}

func (t *Table) queueFor(dst schedule.NodeAddr, create bool) *neighborQueue {
	key := dst.Key()
	t.mu.RLock()
	q, ok := t.queue[key]
	t.mu.RUnlock()
	if ok || !create {
		return q
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if q, ok = t.queue[key]; ok {
		return q
	}
	q = &neighborQueue{}
	t.queue[key] = q
	return q
}

// Enqueue appends pkt to dst's FIFO. The queue is unbounded: callers rely
// on upper-layer flow control, not back-pressure from this table.
func (t *Table) Enqueue(dst schedule.NodeAddr, pkt *Packet) {
	q := t.queueFor(dst, true)
	q.mu.Lock()
	q.items = append(q.items, pkt)
	q.mu.Unlock()
	q.depth.Add(1)
}

// Dequeue pops the oldest packet for dst, reporting ok=false on an empty or
// unknown neighbor (the driver's NoData condition, spec.md §7).
func (t *Table) Dequeue(dst schedule.NodeAddr) (*Packet, bool) {
	q := t.queueFor(dst, false)
	if q == nil {
		return nil, false
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil, false
	}
	pkt := q.items[0]
	q.items = q.items[1:]
	q.depth.Add(-1)
	return pkt, true
}

// Depth returns the approximate queue depth for dst, the value the link
// selector's comparator reads to prioritize the fullest neighbor queue
// (spec.md §4.5 rule 4). It is approximate because it is read without
// holding the neighbor's own lock.
func (t *Table) Depth(dst schedule.NodeAddr) int {
	q := t.queueFor(dst, false)
	if q == nil {
		return 0
	}
	return int(q.depth.Load())
}
