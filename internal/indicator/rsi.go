package indicator

import (
	"strconv"

	"stocktrend/internal/ringbuf"
)

// RSI is the Relative Strength Index computed from plain (unsmoothed) averages
// of the gains and losses over the last period price changes.
type RSI struct {
	period int
	prev   float64
	seen   bool

	gains  *ringbuf.Window
	losses *ringbuf.Window
}

// NewRSI creates an RSI over period changes (typically 14).
func NewRSI(period int) *RSI {
	return &RSI{
		period: period,
		gains:  ringbuf.NewWindow(period),
		losses: ringbuf.NewWindow(period),
	}
}

func (r *RSI) Name() string { return "RSI_" + strconv.Itoa(r.period) }

func (r *RSI) Update(price float64) {
	if r.seen {
		gain, loss := split(price - r.prev)
		r.gains.Push(gain)
		r.losses.Push(loss)
	}
	r.prev, r.seen = price, true
}

// Ready once period changes, i.e. period+1 prices, have been seen.
func (r *RSI) Ready() bool { return r.gains.Full() }

func (r *RSI) Value() float64 {
	if !r.Ready() {
		return 0
	}
	return rsiFrom(r.gains.Mean(), r.losses.Mean())
}

func split(delta float64) (gain, loss float64) {
	if delta > 0 {
		return delta, 0
	}
	return 0, -delta
}

// rsiFrom maps average gain/loss to RSI. A window with no losses reads 100,
// a completely flat window reads 50.
func rsiFrom(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50.0
		}
		return 100.0
	}
	rs := avgGain / avgLoss
	return 100.0 - (100.0 / (1.0 + rs))
}
