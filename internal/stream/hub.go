package stream

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"stocktrend/internal/metrics"
	"stocktrend/internal/model"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// shutdownGrace bounds how long CloseAll waits for replays to wind down.
const shutdownGrace = 2 * time.Second

var (
	// ErrShuttingDown ends replays interrupted by CloseAll.
	ErrShuttingDown = errors.New("server shutting down")

	errPeerGone = errors.New("client disconnected")
)

// Hub tracks connected replay clients.
type Hub struct {
	metrics *metrics.Metrics

	mu      sync.RWMutex
	clients map[*Client]struct{}
	closed  bool
	done    chan struct{} // closed by CloseAll
	active  sync.WaitGroup
}

// NewHub creates a Hub. m may be nil.
func NewHub(m *metrics.Metrics) *Hub {
	return &Hub{
		metrics: m,
		clients: make(map[*Client]struct{}),
		done:    make(chan struct{}),
	}
}

// Serve upgrades the request and replays bars to the new client at speed
// bars per second. It returns once the replay ends or the peer goes away.
// A replay cut short by CloseAll ends with an error frame.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, symbol string, bars []model.Bar, speed float64) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		http.Error(w, ErrShuttingDown.Error(), http.StatusServiceUnavailable)
		return
	}
	h.active.Add(1)
	h.mu.Unlock()
	defer h.active.Done()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("ws upgrade failed", "error", err)
		return
	}

	c := &Client{
		conn: conn,
		send: make(chan []byte, sendBuffer),
		hub:  h,
		gone: make(chan struct{}),
	}
	h.add(c)
	go c.writePump()
	go c.readPump()

	ctx, cancel := context.WithCancelCause(context.Background())
	defer cancel(nil)
	go func() {
		select {
		case <-c.gone:
			cancel(errPeerGone)
		case <-h.done:
			cancel(ErrShuttingDown)
		case <-ctx.Done():
		}
	}()

	n, err := Replay(ctx, symbol, bars, speed, c.paused.Load, func(f Frame) bool {
		if c.enqueue(ctx, f) && h.metrics != nil {
			h.metrics.BarsStreamed.Inc()
		}
		return true
	})
	if err == nil {
		c.enqueue(ctx, Frame{Type: FrameDone, Symbol: symbol, Total: len(bars)})
	} else if cause := context.Cause(ctx); !errors.Is(cause, errPeerGone) {
		err = cause
		c.fail(symbol, len(bars), cause)
	}
	c.finish()
	slog.Info("ws replay finished", "symbol", symbol, "bars", n, "total", len(bars), "error", err)
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// CloseAll stops every replay and refuses new ones. Running replays send an
// error frame and a close frame; CloseAll waits up to shutdownGrace for them.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	if !h.closed {
		h.closed = true
		close(h.done)
	}
	h.mu.Unlock()

	stopped := make(chan struct{})
	go func() {
		h.active.Wait()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(shutdownGrace):
		slog.Warn("ws replays still running after shutdown grace", "clients", h.ClientCount())
	}
}

func (h *Hub) add(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()
	if h.metrics != nil {
		h.metrics.WSClients.Inc()
	}
	slog.Info("ws client connected", "clients", count)
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	count := len(h.clients)
	h.mu.Unlock()
	if ok && h.metrics != nil {
		h.metrics.WSClients.Dec()
	}
	slog.Info("ws client disconnected", "clients", count)
}
