package memguard

import "testing"

func TestHeapCheck(t *testing.T) {
	h := &Heap{CeilingMB: 10, read: func() uint64 { return 11 << 20 }}
	mb, over := h.Check()
	if !over || mb != 11 {
		t.Fatalf("over ceiling: want=(11,true) got=(%v,%v)", mb, over)
	}

	h.read = func() uint64 { return 5 << 20 }
	if _, over := h.Check(); over {
		t.Fatalf("under ceiling: want over=false")
	}

	h.CeilingMB = 0
	h.read = func() uint64 { return 1 << 40 }
	if _, over := h.Check(); over {
		t.Fatalf("disabled guard must never report over")
	}

	var nilHeap *Heap
	if _, over := nilHeap.Check(); over {
		t.Fatalf("nil guard must never report over")
	}
}
