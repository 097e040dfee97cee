// Package ringbuf provides a fixed-capacity sliding window of float64 values
// with a running sum. Rolling indicators keep their history in a Window.
// A Window is not safe for concurrent use.
package ringbuf

// Window keeps the most recent Cap() values pushed into it.
type Window struct {
	buf  []float64
	head int // next write position
	n    int // values held
	sum  float64
}

// NewWindow creates a window holding size values. Sizes below 1 are raised to 1.
func NewWindow(size int) *Window {
	return &Window{buf: make([]float64, max(size, 1))}
}

// Push appends v. When the window was already full the oldest value is
// dropped and returned with evicted=true.
func (w *Window) Push(v float64) (old float64, evicted bool) {
	if w.n == len(w.buf) {
		old, evicted = w.buf[w.head], true
		w.sum -= old
	} else {
		w.n++
	}
	w.buf[w.head] = v
	w.sum += v
	w.head = (w.head + 1) % len(w.buf)
	return old, evicted
}

func (w *Window) Sum() float64 { return w.sum }
func (w *Window) Len() int     { return w.n }
func (w *Window) Cap() int     { return len(w.buf) }
func (w *Window) Full() bool   { return w.n == len(w.buf) }

// Mean is Sum/Len, 0 for an empty window.
func (w *Window) Mean() float64 {
	if w.n == 0 {
		return 0
	}
	return w.sum / float64(w.n)
}

// Values copies the held values, oldest first.
func (w *Window) Values() []float64 {
	out := make([]float64, 0, w.n)
	start := (w.head - w.n + len(w.buf)) % len(w.buf)
	for i := 0; i < w.n; i++ {
		out = append(out, w.buf[(start+i)%len(w.buf)])
	}
	return out
}
