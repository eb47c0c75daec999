package memguard

import "runtime"

// Guard reports process heap usage against a ceiling.
type Guard interface {
	// Check returns the current heap in MiB and whether it exceeds the ceiling.
	Check() (heapMB float64, over bool)
}

// Heap reads runtime heap statistics. A non-positive ceiling disables it.
type Heap struct {
	CeilingMB float64
	read      func() uint64
}

func NewHeap(ceilingMB float64) *Heap {
	return &Heap{CeilingMB: ceilingMB}
}

func (h *Heap) Check() (float64, bool) {
	if h == nil {
		return 0, false
	}
	mb := float64(h.bytes()) / (1024 * 1024)
	if h.CeilingMB <= 0 {
		return mb, false
	}
	return mb, mb > h.CeilingMB
}

func (h *Heap) bytes() uint64 {
	if h.read != nil {
		return h.read()
	}
	return HeapBytes()
}

// HeapBytes is the live heap allocation of this process.
func HeapBytes() uint64 {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return ms.HeapAlloc
}

func HeapMB() float64 { return float64(HeapBytes()) / (1024 * 1024) }

// Fixed is a Guard with a scripted answer, for callers that need to simulate
// pressure.
type Fixed struct {
	MB   float64
	Over bool
}

func (f Fixed) Check() (float64, bool) { return f.MB, f.Over }
