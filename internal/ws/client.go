package ws

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/sketchroom/backend/internal/metrics"
	"github.com/sketchroom/backend/internal/protocol"
	"github.com/sketchroom/backend/internal/ratelimit"
	"github.com/sketchroom/backend/internal/room"
)

const (
	writeWait         = 10 * time.Second
	pongWait          = 60 * time.Second
	pingPeriod        = (pongWait * 9) / 10
	maxMessageSize    = 64 * 1024
	messagesPerSecond = 100
	messageBurst      = 200
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// One participant's live connection to a room. The read pump decodes
// and forwards events to the hub; currentStroke is only touched on
// the hub goroutine.
type Client struct {
	hub           *Hub
	conn          *websocket.Conn
	send          chan []byte
	room          *room.Room
	sessionID     string
	user          room.User
	rateLimiter   *ratelimit.Limiter
	currentStroke string
}

func ServeWs(hub *Hub, w http.ResponseWriter, r *http.Request) {
	roomName := r.URL.Query().Get("room")
	if roomName == "" {
		roomName = "default"
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("Upgrade error:", err)
		return
	}

	sessionID := uuid.NewString()

	displayName := r.URL.Query().Get("name")
	if displayName == "" {
		displayName = fmt.Sprintf("guest-%s", sessionID[:8])
	}

	rm := hub.registry.GetOrCreate(roomName)

	client := &Client{
		hub:         hub,
		conn:        conn,
		send:        make(chan []byte, 512),
		room:        rm,
		sessionID:   sessionID,
		rateLimiter: ratelimit.NewLimiter(messagesPerSecond, messageBurst),
	}
	// Registered in the user map before the hub sees the connection,
	// so the user:list broadcast on join already includes this session.
	client.user = rm.AddUser(sessionID, displayName)

	hub.register <- client

	go client.writePump()
	go client.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	rateLimitWarnings := 0

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		if !c.rateLimiter.Allow() {
			metrics.DroppedEventsTotal.WithLabelValues("rate_limit").Inc()
			rateLimitWarnings++
			if rateLimitWarnings%100 == 1 {
				log.Printf("⚠️ Rate limit exceeded for client %s in room %s (warning #%d)",
					c.sessionID, c.room.Name, rateLimitWarnings)
			}
			if rateLimitWarnings > 1000 {
				log.Printf("🚫 Disconnecting client %s for excessive rate limit violations", c.sessionID)
				return
			}
			continue
		}

		env, err := protocol.Decode(message)
		if err != nil {
			metrics.DroppedEventsTotal.WithLabelValues("malformed").Inc()
			log.Printf("⚠️ Invalid message from client %s: %v", c.sessionID, err)
			continue
		}

		c.hub.events <- &inboundEvent{client: c, env: env}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
