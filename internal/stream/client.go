package stream

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	sendBuffer   = 256
	writeTimeout = 10 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = 30 * time.Second
	readLimit    = 1024
)

// Client is a single replay WebSocket peer.
type Client struct {
	conn *websocket.Conn
	send chan []byte
	hub  *Hub

	paused    atomic.Bool
	gone      chan struct{} // closed when the peer disconnects
	closeOnce sync.Once
}

// control is a message the browser may send during a replay.
type control struct {
	Type string `json:"type"` // "pause" or "resume"
}

// enqueue queues a frame, waiting up to writeTimeout for buffer space. A
// client that stays full that long loses the frame.
func (c *Client) enqueue(ctx context.Context, f Frame) bool {
	msg, err := json.Marshal(f)
	if err != nil {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
	}

	t := time.NewTimer(writeTimeout)
	defer t.Stop()
	select {
	case c.send <- msg:
		return true
	case <-ctx.Done():
		return false
	case <-t.C:
		if c.hub.metrics != nil {
			c.hub.metrics.StreamDropped.Inc()
		}
		return false
	}
}

// fail queues an error frame explaining why the replay stopped early.
func (c *Client) fail(symbol string, total int, cause error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	c.enqueue(ctx, Frame{Type: FrameError, Symbol: symbol, Total: total, Error: cause.Error()})
}

// finish stops writing: the write pump flushes queued frames, sends a close
// frame and closes the connection.
func (c *Client) finish() {
	c.closeOnce.Do(func() { close(c.send) })
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "replay complete"))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.gone:
			return
		}
	}
}

func (c *Client) readPump() {
	defer func() {
		close(c.gone)
		c.hub.remove(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(readLimit)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var ctl control
		if json.Unmarshal(msg, &ctl) != nil {
			continue
		}
		switch ctl.Type {
		case "pause":
			c.paused.Store(true)
		case "resume":
			c.paused.Store(false)
		default:
			slog.Debug("ws unknown control", "type", ctl.Type)
		}
	}
}
