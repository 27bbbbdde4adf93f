package mcbridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/astral-smp/astralbot/internal/shared/logging"
)

// Frame is the wire format between the bot and the Minecraft server.
//
//	CMD  bot -> mc   run a console command, answered by RES/ERR
//	RES  either way  successful response carrying a body
//	ERR  either way  failed response carrying a message
//	EVT  mc -> bot   fire-and-forget event (status, player counts)
//	REQ  mc -> bot   request the bot must answer (link, login)
type Frame struct {
	Type  string `json:"type"`
	ID    string `json:"id,omitempty"`
	Body  string `json:"body,omitempty"`
	Topic string `json:"topic,omitempty"`
	Msg   string `json:"msg,omitempty"`
}

// EventHandler receives EVT frames.
type EventHandler func(topic, body string)

// RequestHandler answers REQ frames. The returned string becomes the
// RES body; an error becomes an ERR frame.
type RequestHandler func(topic, body string) (string, error)

type Bridge struct {
	mu        sync.Mutex
	writeMu   sync.Mutex
	conn      *websocket.Conn
	pending   map[string]chan resp
	onEvent   EventHandler
	onRequest RequestHandler
}

type resp struct {
	body string
	err  error
}

func New() *Bridge {
	return &Bridge{pending: make(map[string]chan resp)}
}

func (b *Bridge) SetEventHandler(f EventHandler) {
	b.mu.Lock()
	b.onEvent = f
	b.mu.Unlock()
}

func (b *Bridge) SetRequestHandler(f RequestHandler) {
	b.mu.Lock()
	b.onRequest = f
	b.mu.Unlock()
}

// Attach adopts a freshly upgraded connection from the Minecraft
// server, replacing any previous one.
func (b *Bridge) Attach(c *websocket.Conn) {
	b.mu.Lock()
	if b.conn != nil {
		_ = b.conn.Close()
	}
	b.conn = c
	b.mu.Unlock()
	go b.readLoop(c)
}

func (b *Bridge) readLoop(c *websocket.Conn) {
	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			break
		}
		var f Frame
		if err := json.Unmarshal(data, &f); err != nil {
			logging.L().Warn("bridge bad json", "err", err)
			continue
		}
		logging.L().Debug("bridge recv", "type", f.Type, "id", f.ID, "topic", f.Topic)

		switch f.Type {
		case "RES":
			b.deliver(f.ID, resp{body: f.Body})
		case "ERR":
			b.deliver(f.ID, resp{err: errors.New(f.Msg)})
		case "EVT":
			b.mu.Lock()
			handler := b.onEvent
			b.mu.Unlock()
			if handler != nil {
				handler(f.Topic, f.Body)
			}
		case "REQ":
			b.mu.Lock()
			handler := b.onRequest
			b.mu.Unlock()
			if handler == nil {
				b.writeFrame(c, Frame{Type: "ERR", ID: f.ID, Msg: "not ready"})
				continue
			}
			// Answer off the read loop so a slow store round-trip
			// cannot stall other frames.
			go func(f Frame) {
				body, err := handler(f.Topic, f.Body)
				if err != nil {
					b.writeFrame(c, Frame{Type: "ERR", ID: f.ID, Msg: err.Error()})
					return
				}
				b.writeFrame(c, Frame{Type: "RES", ID: f.ID, Body: body})
			}(f)
		default:
			logging.L().Debug("bridge unknown frame type", "type", f.Type)
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.conn == c {
		logging.L().Warn("bridge connection lost; failing pending commands", "pending", len(b.pending))
		b.conn = nil
		for id, ch := range b.pending {
			delete(b.pending, id)
			ch <- resp{err: errors.New("bridge closed")}
		}
	} else {
		logging.L().Debug("bridge read loop exit for stale conn")
	}
}

func (b *Bridge) deliver(id string, r resp) {
	b.mu.Lock()
	ch := b.pending[id]
	delete(b.pending, id)
	b.mu.Unlock()
	if ch != nil {
		ch <- r
	} else {
		logging.L().Debug("bridge response for unknown id", "id", id)
	}
}

func (b *Bridge) writeFrame(c *websocket.Conn, f Frame) {
	b.writeMu.Lock()
	err := c.WriteJSON(f)
	b.writeMu.Unlock()
	if err != nil {
		logging.L().Error("bridge write failed", "type", f.Type, "id", f.ID, "err", err)
	}
}

// SendCommand runs a console command on the Minecraft server and
// returns its output.
func (b *Bridge) SendCommand(ctx context.Context, body string) (string, error) {
	b.mu.Lock()
	c := b.conn
	if c == nil {
		b.mu.Unlock()
		return "", errors.New("minecraft not connected")
	}
	id := uuid.Must(uuid.NewRandom()).String()
	ch := make(chan resp, 1)
	b.pending[id] = ch
	b.mu.Unlock()

	b.writeMu.Lock()
	err := c.WriteJSON(Frame{Type: "CMD", ID: id, Body: body})
	b.writeMu.Unlock()

	if err != nil {
		b.mu.Lock()
		delete(b.pending, id)
		b.mu.Unlock()
		return "", fmt.Errorf("write failed: %w", err)
	}

	logging.L().Debug("bridge sent CMD", "id", id, "body", body)

	tmr := time.NewTimer(10 * time.Second)
	defer tmr.Stop()

	select {
	case r := <-ch:
		if r.err != nil {
			return "", r.err
		}
		return r.body, nil

	case <-tmr.C:
		b.mu.Lock()
		delete(b.pending, id)
		b.mu.Unlock()
		return "", errors.New("timeout")

	case <-ctx.Done():
		b.mu.Lock()
		delete(b.pending, id)
		b.mu.Unlock()
		return "", ctx.Err()
	}
}

func (b *Bridge) IsConnected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conn != nil
}
