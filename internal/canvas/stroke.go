package canvas

import "fmt"

// Drawing tools a stroke can be made with
const (
	ToolBrush  = "brush"
	ToolEraser = "eraser"
)

// A single recorded pointer coordinate
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// One continuous pointer gesture: style attributes fixed at start,
// points appended while the gesture is open, and an active flag that
// undo/redo toggles. Strokes are never removed from a room's log.
type Stroke struct {
	ID      string  `json:"id"`
	OwnerID string  `json:"-"`
	Color   string  `json:"color"`
	Width   float64 `json:"width"`
	Tool    string  `json:"tool"`
	Points  []Point `json:"points"`
	Layer   int64   `json:"layer"`
	Active  bool    `json:"-"`
}

// Builds the cross-session-unique stroke id from the room-assigned
// layer and the authoring session id.
func StrokeID(layer int64, sessionID string) string {
	return fmt.Sprintf("%d-%s", layer, sessionID)
}
