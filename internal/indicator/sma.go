package indicator

import (
	"strconv"

	"stocktrend/internal/ringbuf"
)

// SMA is the simple moving average of the last period prices.
type SMA struct {
	period int
	win    *ringbuf.Window
}

// NewSMA creates an SMA over period prices.
func NewSMA(period int) *SMA {
	return &SMA{period: period, win: ringbuf.NewWindow(period)}
}

func (s *SMA) Name() string { return "SMA_" + strconv.Itoa(s.period) }

func (s *SMA) Update(price float64) { s.win.Push(price) }

// Value is 0 until the window is full.
func (s *SMA) Value() float64 {
	if !s.Ready() {
		return 0
	}
	return s.win.Mean()
}

func (s *SMA) Ready() bool { return s.win.Full() }
