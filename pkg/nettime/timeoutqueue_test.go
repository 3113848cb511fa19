package nettime

import "testing"

func TestTimeoutQueue_FiresInOrder(t *testing.T) {
	q := NewTimeoutQueue()
	var order []string
	mustAdd := func(dt uint64, name string) {
		if _, err := q.AddTimeout(dt, func(uint64) { order = append(order, name) }); err != nil {
			t.Fatalf("AddTimeout(%s) error = %v", name, err)
		}
	}
	mustAdd(100, "c") // fires at 100
	mustAdd(10, "a")  // fires at 10
	mustAdd(50, "b")  // fires at 50

	q.Announce(60)
	if got := order; len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("order after Announce(60) = %v, want [a b]", got)
	}

	q.Announce(50)
	if got := order; len(got) != 3 || got[2] != "c" {
		t.Fatalf("order after Announce(50) = %v, want [a b c]", got)
	}
	if !q.Empty() {
		t.Error("Empty() = false after all timeouts fired")
	}
}

func TestTimeoutQueue_AbortTimeout(t *testing.T) {
	q := NewTimeoutQueue()
	fired := false
	to, err := q.AddTimeout(20, func(uint64) { fired = true })
	if err != nil {
		t.Fatalf("AddTimeout() error = %v", err)
	}
	later, err := q.AddTimeout(50, func(uint64) {})
	if err != nil {
		t.Fatalf("AddTimeout() error = %v", err)
	}
	_ = later

	q.AbortTimeout(to)
	q.AbortTimeout(to) // idempotent
	q.Announce(100)
	if fired {
		t.Error("aborted timeout fired")
	}
}

func TestTimeoutQueue_RejectsForever(t *testing.T) {
	q := NewTimeoutQueue()
	if _, err := q.AddTimeout(Forever, func(uint64) {}); err != ErrForeverRejected {
		t.Errorf("error = %v, want ErrForeverRejected", err)
	}
}

func TestTimeoutQueue_NextDelta(t *testing.T) {
	q := NewTimeoutQueue()
	if _, ok := q.NextDelta(); ok {
		t.Error("NextDelta() ok = true on empty queue")
	}
	q.AddTimeout(30, func(uint64) {})
	d, ok := q.NextDelta()
	if !ok || d != 30 {
		t.Errorf("NextDelta() = (%d, %v), want (30, true)", d, ok)
	}
}
