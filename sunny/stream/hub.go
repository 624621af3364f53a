// Package stream serves frames to browsers over websockets and feeds their
// key presses back into the emulator.
package stream

import (
	"context"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash"
	"github.com/gorilla/websocket"

	"github.com/sunny-emu/sunny/sunny/memory"
	"github.com/sunny-emu/sunny/sunny/video"
)

// Message types, the first byte of every websocket message.
const (
	// MsgFrame is followed by the frame as 160x144 RGBA bytes.
	MsgFrame byte = 0x01
	// MsgPress and MsgRelease are followed by a joypad key.
	MsgPress   byte = 0x02
	MsgRelease byte = 0x03
)

const sendBuffer = 4

// Input is a key event received from a client.
type Input struct {
	Key     memory.JoypadKey
	Pressed bool
}

// Hub tracks connected clients and broadcasts frames to all of them. Frames
// identical to the previous one are not sent again.
type Hub struct {
	clients    map[*client]bool
	register   chan *client
	unregister chan *client
	broadcast  chan []byte
	inputs     chan Input
	done       chan struct{}

	// last is only touched by the run loop.
	last      []byte
	lastHash  atomic.Uint64
	connected atomic.Int32

	upgrader websocket.Upgrader
	logger   *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients:    make(map[*client]bool),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan []byte, 1),
		inputs:     make(chan Input, 64),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024 * 16,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// Run serves the hub until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				h.drop(c)
			}
			return
		case c := <-h.register:
			h.clients[c] = true
			h.connected.Add(1)
			h.logger.Info("Client connected", "remote", c.conn.RemoteAddr().String())
			if h.last != nil {
				c.send <- h.last
			}
		case c := <-h.unregister:
			if h.clients[c] {
				h.drop(c)
				h.logger.Info("Client disconnected", "remote", c.conn.RemoteAddr().String())
			}
		case msg := <-h.broadcast:
			h.last = msg
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					// too slow to keep up
					h.drop(c)
				}
			}
		}
	}
}

func (h *Hub) drop(c *client) {
	delete(h.clients, c)
	close(c.send)
	h.connected.Add(-1)
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	return int(h.connected.Load())
}

// Inputs delivers key events sent by clients.
func (h *Hub) Inputs() <-chan Input {
	return h.inputs
}

// Publish queues a frame for broadcast. It reports false when the frame equals
// the previously published one and nothing was sent.
func (h *Hub) Publish(fb *video.FrameBuffer) bool {
	pixels := fb.Bytes()
	hash := xxhash.Sum64(pixels)
	if h.lastHash.Swap(hash) == hash {
		return false
	}

	msg := make([]byte, 0, len(pixels)+1)
	msg = append(msg, MsgFrame)
	msg = append(msg, pixels...)
	select {
	case h.broadcast <- msg:
	case <-h.done:
	}
	return true
}

// ServeHTTP upgrades the connection to a websocket and registers the client.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Websocket upgrade failed", "error", err)
		return
	}

	c := &client{hub: h, conn: conn, send: make(chan []byte, sendBuffer)}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

const writeWait = time.Second

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		if len(message) != 2 || message[1] > uint8(memory.JoypadStart) {
			continue
		}

		input := Input{Key: memory.JoypadKey(message[1])}
		switch message[0] {
		case MsgPress:
			input.Pressed = true
		case MsgRelease:
		default:
			continue
		}

		select {
		case c.hub.inputs <- input:
		default:
			c.hub.logger.Warn("Input queue full, dropping key event", "key", input.Key)
		}
	}
}

func (c *client) writePump() {
	defer c.conn.Close()

	for message := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.BinaryMessage, message); err != nil {
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}
