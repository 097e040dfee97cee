// Package stream replays a generated bar series to WebSocket clients one bar
// at a time, as if the market were trading live.
package stream

import (
	"context"
	"time"

	"stocktrend/internal/indicator"
	"stocktrend/internal/model"
)

const (
	// DefaultSpeed is the replay rate in bars per second.
	DefaultSpeed = 5.0
	// MaxSpeed caps the replay rate; 0 means unthrottled.
	MaxSpeed = 100.0

	pausePoll = 50 * time.Millisecond
)

// Frame types.
const (
	FrameBar   = "bar"
	FrameDone  = "done"
	FrameError = "error"
)

// Frame is one message on the replay socket.
type Frame struct {
	Type   string     `json:"type"`
	Symbol string     `json:"symbol,omitempty"`
	Seq    int        `json:"seq,omitempty"` // 1-based position of Bar
	Total  int        `json:"total"`
	Bar    *model.Bar `json:"bar,omitempty"`
	SMA20  *float64   `json:"sma20,omitempty"`
	RSI14  *float64   `json:"rsi14,omitempty"`
	Error  string     `json:"error,omitempty"`
}

// Replay emits a bar frame per bar, spaced 1/speed seconds apart, with the
// running SMA(20) and RSI(14) once they are ready. speed <= 0 emits without
// delay. paused may be nil. Replay stops early when emit returns false or ctx
// is cancelled, and returns how many bar frames were emitted.
func Replay(ctx context.Context, symbol string, bars []model.Bar, speed float64, paused func() bool, emit func(Frame) bool) (int, error) {
	var gap time.Duration
	if speed > 0 {
		gap = time.Duration(float64(time.Second) / speed)
	}

	sma := indicator.NewSMA(20)
	rsi := indicator.NewRSI(14)
	emitted := 0

	for i := range bars {
		for paused != nil && paused() {
			if err := sleep(ctx, pausePoll); err != nil {
				return emitted, err
			}
		}
		if i > 0 && gap > 0 {
			if err := sleep(ctx, gap); err != nil {
				return emitted, err
			}
		} else if err := ctx.Err(); err != nil {
			return emitted, err
		}

		b := bars[i]
		sma.Update(b.Close)
		rsi.Update(b.Close)
		f := Frame{Type: FrameBar, Symbol: symbol, Seq: i + 1, Total: len(bars), Bar: &b}
		if sma.Ready() {
			v := sma.Value()
			f.SMA20 = &v
		}
		if rsi.Ready() {
			v := rsi.Value()
			f.RSI14 = &v
		}
		if !emit(f) {
			return emitted, nil
		}
		emitted++
	}
	return emitted, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
