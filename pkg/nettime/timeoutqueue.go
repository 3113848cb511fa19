package nettime

import "sync"

// Forever is the "never fires" sentinel delta AddTimeout rejects.
const Forever uint64 = ^uint64(0)

type timeoutNode struct {
	delta uint64 // ticks after the previous node in the list fires
	fn    func(elapsedTicks uint64)
	next  *timeoutNode
}

// Timeout is a handle into a TimeoutQueue returned by AddTimeout, passed to
// AbortTimeout to cancel before it fires.
type Timeout struct {
	node *timeoutNode
	q    *TimeoutQueue
}

// TimeoutQueue is a sorted delta list of pending timeouts, the structure the
// TSCH tickless loop drives with Announce as it advances past each link
// boundary. Insertion, firing and abort are all O(n) in the number of
// pending timeouts, same as the classic BSD callout wheel this mirrors.
type TimeoutQueue struct {
	mu sync.Mutex
	// announcing is true while Announce is running a node's callback;
	// elapsed() reads as 0 to a callback inspecting timing from within
	// its own firing, since by definition it is firing exactly on time.
	announcing bool
	head       *timeoutNode
}

// NewTimeoutQueue returns an empty queue.
func NewTimeoutQueue() *TimeoutQueue {
	return &TimeoutQueue{}
}

// AddTimeout schedules fn to run once dt ticks from now, relative to the
// ticks already queued ahead of it. It rejects Forever.
func (q *TimeoutQueue) AddTimeout(dt uint64, fn func(elapsedTicks uint64)) (*Timeout, error) {
	if dt == Forever {
		return nil, ErrForeverRejected
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	n := &timeoutNode{fn: fn}
	var prev *timeoutNode
	cur := q.head
	remaining := dt
	for cur != nil && cur.delta <= remaining {
		remaining -= cur.delta
		prev = cur
		cur = cur.next
	}
	n.delta = remaining
	n.next = cur
	if cur != nil {
		cur.delta -= remaining
	}
	if prev == nil {
		q.head = n
	} else {
		prev.next = n
	}
	return &Timeout{node: n, q: q}, nil
}

// AbortTimeout cancels t if it has not yet fired. Safe to call more than
// once or after t has already fired.
func (q *TimeoutQueue) AbortTimeout(t *Timeout) {
	if t == nil || t.node == nil {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	var prev *timeoutNode
	cur := q.head
	for cur != nil {
		if cur == t.node {
			if cur.next != nil {
				cur.next.delta += cur.delta
			}
			if prev == nil {
				q.head = cur.next
			} else {
				prev.next = cur.next
			}
			t.node = nil
			return
		}
		prev = cur
		cur = cur.next
	}
}

// Announce advances the queue by ticks, firing every timeout whose
// cumulative delta falls within that span in order, and leaves any
// remaining node's delta reduced by the unconsumed remainder.
func (q *TimeoutQueue) Announce(ticks uint64) {
	q.mu.Lock()
	remaining := ticks
	for q.head != nil && q.head.delta <= remaining {
		remaining -= q.head.delta
		n := q.head
		q.head = n.next
		q.announcing = true
		q.mu.Unlock()
		n.fn(0)
		q.mu.Lock()
		q.announcing = false
	}
	if q.head != nil {
		q.head.delta -= remaining
	}
	q.mu.Unlock()
}

// Announcing reports whether the queue is currently inside a firing
// callback, matching the "elapsed() == 0 during announce" rule: a callback
// that re-enters the queue sees itself as exactly on time.
func (q *TimeoutQueue) Announcing() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.announcing
}

// Empty reports whether no timeouts are pending.
func (q *TimeoutQueue) Empty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.head == nil
}

// NextDelta returns the ticks until the next pending timeout fires and
// whether one exists, the value the tickless loop sleeps for.
func (q *TimeoutQueue) NextDelta() (uint64, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.head == nil {
		return 0, false
	}
	return q.head.delta, true
}
