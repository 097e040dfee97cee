package indicator

import "strconv"

// EMA is an exponential moving average seeded with the SMA of its first
// period prices, smoothing factor 2/(period+1).
type EMA struct {
	period int
	alpha  float64
	seed   *SMA
	value  float64
	ready  bool
}

func NewEMA(period int) *EMA {
	return &EMA{
		period: period,
		alpha:  2.0 / float64(period+1),
		seed:   NewSMA(period),
	}
}

func (e *EMA) Name() string { return "EMA_" + strconv.Itoa(e.period) }

func (e *EMA) Update(price float64) {
	if e.ready {
		e.value = price*e.alpha + e.value*(1-e.alpha)
		return
	}
	e.seed.Update(price)
	if e.seed.Ready() {
		e.value, e.ready = e.seed.Value(), true
	}
}

func (e *EMA) Value() float64 { return e.value }
func (e *EMA) Ready() bool    { return e.ready }
