package websocket

import (
	"encoding/json"
	"time"

	"sierra/internal/models"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096
)

// EventSink receives inbound live events parsed off a client connection.
// The delivery engine implements it; emits back to sessions go through the
// hub, never through the sink.
type EventSink interface {
	HandleLiveEvent(senderID uuid.UUID, event models.Event)
}

// Client is a middleman between one websocket connection and the hub.
type Client struct {
	Hub *Hub

	// The user ID this session is bound to for its lifetime.
	UserID uuid.UUID

	// SessionID identifies this connection within the user's room.
	SessionID string

	// The websocket connection.
	Conn *websocket.Conn

	// Buffered channel of outbound payloads.
	Send chan []byte

	// Sink for inbound live events.
	Sink EventSink

	Log *zap.SugaredLogger
}

// ReadPump pumps frames from the websocket connection into the event sink.
// join and leave mutate the registry directly; everything else is handed to
// the sink. Malformed frames are dropped.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Leave(c)
		c.Conn.Close()
		c.Log.Debugw("read pump stopped", "user", c.UserID, "session", c.SessionID)
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error { c.Conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Log.Warnw("read error", "user", c.UserID, "session", c.SessionID, "err", err)
			}
			break
		}

		var event models.Event
		if err := json.Unmarshal(raw, &event); err != nil {
			c.Log.Debugw("dropping malformed frame", "user", c.UserID, "err", err)
			continue
		}

		switch event.Event {
		case models.EventJoin:
			c.Hub.Join(c)
		case models.EventLeave:
			c.Hub.Leave(c)
		default:
			c.Sink.HandleLiveEvent(c.UserID, event)
		}
	}
}

// WritePump pumps payloads from the hub to the websocket connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		c.Log.Debugw("write pump stopped", "user", c.UserID, "session", c.SessionID)
	}()
	for {
		select {
		case payload, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(payload)

			// Add queued frames to the current websocket message.
			n := len(c.Send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.Send)
			}

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
