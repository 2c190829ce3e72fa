package canvas

import (
	"sort"
	"sync"
)

// Half-width of the axis-aligned box the eraser tests stroke points
// against. Box test, not Euclidean distance.
const EraseRadius = 5.0

// The authoritative drawing state for one room: an append-only stroke
// log plus the monotonic layer counter. All methods are safe for
// concurrent use.
type State struct {
	mu        sync.RWMutex
	strokes   []*Stroke
	nextLayer int64
}

func NewState() *State {
	return &State{strokes: make([]*Stroke, 0)}
}

// Reserves the next layer value for this room. Strictly increasing
// for the lifetime of the state, so replay order never ties.
func (s *State) NextLayer() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextLayer++
	return s.nextLayer
}

// Appends a stroke to the log. Always succeeds.
func (s *State) AddStroke(st *Stroke) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.strokes = append(s.strokes, st)
}

// Appends a point to the identified stroke iff it exists and is still
// active. Returns false when the point was dropped: the stroke was
// undone or erased while the gesture was in flight, which is a no-op,
// not an error.
func (s *State) AppendPoint(strokeID string, p Point) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.strokes) - 1; i >= 0; i-- {
		if s.strokes[i].ID == strokeID {
			if !s.strokes[i].Active {
				return false
			}
			s.strokes[i].Points = append(s.strokes[i].Points, p)
			return true
		}
	}
	return false
}

// Deactivates the caller's most recently added still-active stroke.
// Returns its id, or "" when the caller has nothing left to undo.
func (s *State) Undo(ownerID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.strokes) - 1; i >= 0; i-- {
		st := s.strokes[i]
		if st.Active && st.OwnerID == ownerID {
			st.Active = false
			return st.ID, true
		}
	}
	return "", false
}

// Reactivates the caller's oldest inactive stroke. The forward scan is
// deliberate: redo restores the earliest-undone stroke first, not the
// most recent one.
func (s *State) Redo(ownerID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range s.strokes {
		if !st.Active && st.OwnerID == ownerID {
			st.Active = true
			return st.ID, true
		}
	}
	return "", false
}

// Deactivates every active non-eraser stroke with at least one point
// inside the box of half-width radius around p. Returns the ids of the
// strokes removed this call.
func (s *State) EraseAt(p Point, radius float64) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var erased []string
	for _, st := range s.strokes {
		if !st.Active || st.Tool == ToolEraser {
			continue
		}
		for _, sp := range st.Points {
			if sp.X >= p.X-radius && sp.X <= p.X+radius &&
				sp.Y >= p.Y-radius && sp.Y <= p.Y+radius {
				st.Active = false
				erased = append(erased, st.ID)
				break
			}
		}
	}
	return erased
}

// Truncates the log. Irreversible: undo/redo cannot resurrect cleared
// strokes.
func (s *State) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.strokes = make([]*Stroke, 0)
}

// Replaces the whole log, used when restoring a saved snapshot. The
// layer counter jumps past the restored strokes so new strokes still
// sort after them.
func (s *State) Replace(strokes []Stroke) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.strokes = make([]*Stroke, 0, len(strokes))
	for i := range strokes {
		st := strokes[i]
		s.strokes = append(s.strokes, &st)
		if st.Layer > s.nextLayer {
			s.nextLayer = st.Layer
		}
	}
}

// Returns copies of the active strokes sorted by layer ascending,
// insertion order preserved on (impossible) ties.
func (s *State) ActiveStrokes() []Stroke {
	s.mu.RLock()
	defer s.mu.RUnlock()
	active := make([]Stroke, 0)
	for _, st := range s.strokes {
		if !st.Active {
			continue
		}
		cp := *st
		cp.Points = make([]Point, len(st.Points))
		copy(cp.Points, st.Points)
		active = append(active, cp)
	}
	sort.SliceStable(active, func(i, j int) bool {
		return active[i].Layer < active[j].Layer
	})
	return active
}

// Number of strokes in the log, inactive ones included.
func (s *State) StrokeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.strokes)
}
