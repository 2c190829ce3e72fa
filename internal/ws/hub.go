package ws

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/sketchroom/backend/internal/canvas"
	"github.com/sketchroom/backend/internal/db"
	"github.com/sketchroom/backend/internal/metrics"
	"github.com/sketchroom/backend/internal/protocol"
	"github.com/sketchroom/backend/internal/room"
)

// Routes every inbound event through a single goroutine, so all
// mutations of a room's drawing state are serialized and each sender's
// events reach its room in send order.
type Hub struct {
	registry *room.Registry
	database *db.Database // optional, records the room directory

	// Connected clients by room name
	rooms map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	events     chan *inboundEvent

	mu sync.RWMutex
}

// One decoded frame waiting for the hub loop.
type inboundEvent struct {
	client *Client
	env    *protocol.Envelope
}

// Handlers keyed by event name. Each runs on the hub goroutine with
// exclusive access to room state.
var handlers = map[string]func(*Hub, *Client, json.RawMessage){
	protocol.EventCursorMove:   (*Hub).onCursorMove,
	protocol.EventStrokeStart:  (*Hub).onStrokeStart,
	protocol.EventStrokePoints: (*Hub).onStrokePoints,
	protocol.EventStrokeEnd:    (*Hub).onStrokeEnd,
	protocol.EventStrokeErase:  (*Hub).onStrokeErase,
	protocol.EventCanvasClear:  (*Hub).onCanvasClear,
	protocol.EventUndo:         (*Hub).onUndo,
	protocol.EventRedo:         (*Hub).onRedo,
}

func NewHub(registry *room.Registry, database *db.Database) *Hub {
	return &Hub{
		registry:   registry,
		database:   database,
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		events:     make(chan *inboundEvent, 256),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.addClient(client)

		case client := <-h.unregister:
			h.removeClient(client)

		case ev := <-h.events:
			handler, ok := handlers[ev.env.Type]
			if !ok {
				metrics.DroppedEventsTotal.WithLabelValues("unknown_type").Inc()
				continue
			}
			metrics.EventsTotal.WithLabelValues(ev.env.Type).Inc()
			handler(h, ev.client, ev.env.Data)
		}
	}
}

func (h *Hub) addClient(c *Client) {
	h.mu.Lock()
	if _, ok := h.rooms[c.room.Name]; !ok {
		h.rooms[c.room.Name] = make(map[*Client]bool)
	}
	h.rooms[c.room.Name][c] = true
	count := len(h.rooms[c.room.Name])
	h.mu.Unlock()

	if h.database != nil {
		if err := h.database.CreateRoom(c.room.Name, ""); err != nil {
			log.Printf("Failed to record room %s: %v", c.room.Name, err)
		}
	}

	metrics.ConnectedClients.Inc()
	metrics.ActiveRooms.Set(float64(h.GetRoomCount()))
	log.Printf("Client %s joined room %s (total: %d)", c.sessionID, c.room.Name, count)

	h.sendUserList(c.room)
}

func (h *Hub) removeClient(c *Client) {
	h.mu.Lock()
	remaining := 0
	if clients, ok := h.rooms[c.room.Name]; ok {
		// Slow clients are evicted by emit, so the connection may be
		// gone from the set already; presence cleanup still runs.
		if _, present := clients[c]; present {
			delete(clients, c)
			close(c.send)
		}
		remaining = len(clients)
		if remaining == 0 {
			delete(h.rooms, c.room.Name)
		}
	}
	h.mu.Unlock()

	c.room.RemoveUser(c.sessionID)
	metrics.ConnectedClients.Dec()
	metrics.ActiveRooms.Set(float64(h.GetRoomCount()))

	if remaining == 0 {
		log.Printf("Room %s idle (no clients)", c.room.Name)
		return
	}
	log.Printf("Client %s left room %s (remaining: %d)", c.sessionID, c.room.Name, remaining)

	h.emit(c.room.Name, nil, protocol.EventUserLeft, protocol.UserLeft{ID: c.sessionID})
	h.sendUserList(c.room)
}

// Encodes one event and delivers it to every client in the room,
// skipping exclude when non-nil. Fire and forget: clients that cannot
// keep up lose their send buffer and are evicted.
func (h *Hub) emit(roomName string, exclude *Client, eventType string, payload any) {
	data, err := protocol.Encode(eventType, payload)
	if err != nil {
		log.Printf("Failed to encode %s event: %v", eventType, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	clients, ok := h.rooms[roomName]
	if !ok {
		return
	}
	for client := range clients {
		if client == exclude {
			continue
		}
		select {
		case client.send <- data:
		default:
			close(client.send)
			delete(clients, client)
		}
	}
}

// Room-wide event from outside the hub loop (the versions API uses
// this to tell clients to re-run replay after a restore).
func (h *Hub) BroadcastRoom(roomName, eventType string, payload any) {
	h.emit(roomName, nil, eventType, payload)
}

func (h *Hub) sendUserList(r *room.Room) {
	h.emit(r.Name, nil, protocol.EventUserList, r.Users())
}

// Event handlers. Malformed payloads are dropped, never fatal.

func (h *Hub) onCursorMove(c *Client, data json.RawMessage) {
	var p protocol.CursorMove
	if err := json.Unmarshal(data, &p); err != nil {
		metrics.DroppedEventsTotal.WithLabelValues("malformed").Inc()
		return
	}
	h.emit(c.room.Name, c, protocol.EventCursorUpdate, protocol.CursorUpdate{
		ID:    c.sessionID,
		X:     p.X,
		Y:     p.Y,
		Color: c.user.Color,
		Name:  c.user.Name,
	})
}

func (h *Hub) onStrokeStart(c *Client, data json.RawMessage) {
	var p protocol.StrokeStart
	if err := json.Unmarshal(data, &p); err != nil {
		metrics.DroppedEventsTotal.WithLabelValues("malformed").Inc()
		return
	}

	layer := c.room.State.NextLayer()
	stroke := &canvas.Stroke{
		ID:      canvas.StrokeID(layer, c.sessionID),
		OwnerID: c.sessionID,
		Color:   p.Color,
		Width:   p.Width,
		Tool:    p.Tool,
		Points:  []canvas.Point{{X: p.X, Y: p.Y}},
		Layer:   layer,
		Active:  true,
	}
	c.room.State.AddStroke(stroke)
	c.currentStroke = stroke.ID

	h.emit(c.room.Name, c, protocol.EventStrokeStart, protocol.StrokeStarted{
		StrokeStart: p,
		ID:          stroke.ID,
		Layer:       layer,
	})
}

func (h *Hub) onStrokePoints(c *Client, data json.RawMessage) {
	var p protocol.StrokePoints
	if err := json.Unmarshal(data, &p); err != nil {
		metrics.DroppedEventsTotal.WithLabelValues("malformed").Inc()
		return
	}

	// Points land on the session's own open stroke, not whatever is
	// last in the log. Dropped when the stroke was undone or erased
	// mid-gesture.
	if c.currentStroke != "" {
		c.room.State.AppendPoint(c.currentStroke, canvas.Point{X: p.X2, Y: p.Y2})
	}

	h.emit(c.room.Name, c, protocol.EventStrokePoints, p)
}

func (h *Hub) onStrokeEnd(c *Client, data json.RawMessage) {
	c.currentStroke = ""
	h.emit(c.room.Name, c, protocol.EventStrokeEnd, struct{}{})
}

func (h *Hub) onStrokeErase(c *Client, data json.RawMessage) {
	var p protocol.StrokeErase
	if err := json.Unmarshal(data, &p); err != nil {
		metrics.DroppedEventsTotal.WithLabelValues("malformed").Inc()
		return
	}

	c.room.State.EraseAt(canvas.Point{X: p.X, Y: p.Y}, canvas.EraseRadius)

	// Echoed to the sender too: their erasure is confirmed by the same
	// path their peers see.
	h.emit(c.room.Name, nil, protocol.EventStrokeErase, p)
}

func (h *Hub) onCanvasClear(c *Client, data json.RawMessage) {
	c.room.State.Clear()
	h.emit(c.room.Name, nil, protocol.EventCanvasClear, struct{}{})
}

func (h *Hub) onUndo(c *Client, data json.RawMessage) {
	id, ok := c.room.State.Undo(c.sessionID)
	if !ok {
		return
	}
	h.emit(c.room.Name, nil, protocol.EventStrokeUndo, protocol.StrokeToggled{ID: id})
}

func (h *Hub) onRedo(c *Client, data json.RawMessage) {
	id, ok := c.room.State.Redo(c.sessionID)
	if !ok {
		return
	}
	h.emit(c.room.Name, nil, protocol.EventStrokeRedo, protocol.StrokeToggled{ID: id})
}

// Stats used by the api package.

func (h *Hub) GetRoomCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	total := 0
	for _, clients := range h.rooms {
		total += len(clients)
	}
	return total
}

// Connected client counts keyed by room name.
func (h *Hub) GetActiveRooms() map[string]int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	active := make(map[string]int, len(h.rooms))
	for name, clients := range h.rooms {
		active[name] = len(clients)
	}
	return active
}
