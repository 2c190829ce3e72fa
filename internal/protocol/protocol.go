package protocol

import (
	"encoding/json"
	"fmt"
)

// Event names carried on the wire. Inbound and outbound share the
// same envelope; some names only ever travel one direction.
const (
	EventCursorMove    = "cursor:move"
	EventCursorUpdate  = "cursor:update"
	EventStrokeStart   = "stroke:start"
	EventStrokePoints  = "stroke:points"
	EventStrokeEnd     = "stroke:end"
	EventStrokeErase   = "stroke:erase"
	EventStrokeUndo    = "stroke:undo"
	EventStrokeRedo    = "stroke:redo"
	EventCanvasClear   = "canvas:clear"
	EventCanvasRefresh = "canvas:refresh"
	EventUndo          = "undo"
	EventRedo          = "redo"
	EventUserList      = "user:list"
	EventUserLeft      = "user:left"
)

// The framing for every websocket message: a named event plus its
// payload, left raw until the handler for the name decodes it.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Decodes one inbound frame. A frame without a type is malformed and
// gets dropped by the caller.
func Decode(raw []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("malformed envelope: %w", err)
	}
	if env.Type == "" {
		return nil, fmt.Errorf("envelope missing type")
	}
	return &env, nil
}

// Encodes an outbound frame. Marshal failures can only come from the
// payload types this package defines, so callers treat them as bugs.
func Encode(eventType string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: eventType, Data: data})
}

// Inbound payloads.

type CursorMove struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type StrokeStart struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Color string  `json:"color"`
	Width float64 `json:"width"`
	Tool  string  `json:"tool"`
}

type StrokePoints struct {
	X1    float64 `json:"x1"`
	Y1    float64 `json:"y1"`
	X2    float64 `json:"x2"`
	Y2    float64 `json:"y2"`
	Color string  `json:"color"`
	Width float64 `json:"width"`
	Tool  string  `json:"tool"`
}

type StrokeErase struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Outbound payloads.

type CursorUpdate struct {
	ID    string  `json:"id"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Color string  `json:"color"`
	Name  string  `json:"name"`
}

// StrokeStart echoed to peers with the room-assigned identity.
type StrokeStarted struct {
	StrokeStart
	ID    string `json:"id"`
	Layer int64  `json:"layer"`
}

type StrokeToggled struct {
	ID string `json:"id"`
}

type UserLeft struct {
	ID string `json:"id"`
}
