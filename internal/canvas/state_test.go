package canvas

import (
	"sync"
	"testing"
)

func newTestStroke(s *State, owner, tool string, points ...Point) *Stroke {
	layer := s.NextLayer()
	st := &Stroke{
		ID:      StrokeID(layer, owner),
		OwnerID: owner,
		Color:   "#000",
		Width:   4,
		Tool:    tool,
		Points:  points,
		Layer:   layer,
		Active:  true,
	}
	s.AddStroke(st)
	return st
}

func TestAppendPoint(t *testing.T) {
	s := NewState()
	st := newTestStroke(s, "u1", ToolBrush, Point{X: 0, Y: 0})

	if !s.AppendPoint(st.ID, Point{X: 5, Y: 5}) {
		t.Fatal("append to active stroke should succeed")
	}

	active := s.ActiveStrokes()
	if len(active) != 1 {
		t.Fatalf("expected 1 active stroke, got %d", len(active))
	}
	pts := active[0].Points
	if len(pts) != 2 || pts[0] != (Point{0, 0}) || pts[1] != (Point{5, 5}) {
		t.Errorf("unexpected points: %v", pts)
	}
}

func TestAppendPointDroppedWhenInactive(t *testing.T) {
	s := NewState()
	st := newTestStroke(s, "u1", ToolBrush, Point{X: 0, Y: 0})

	s.Undo("u1")
	if s.AppendPoint(st.ID, Point{X: 1, Y: 1}) {
		t.Error("append to undone stroke should be dropped")
	}
	if s.AppendPoint("no-such-stroke", Point{X: 1, Y: 1}) {
		t.Error("append to unknown stroke should be dropped")
	}
}

func TestUndoIsPerOwnerLIFO(t *testing.T) {
	s := NewState()
	s1 := newTestStroke(s, "u1", ToolBrush, Point{X: 0, Y: 0})
	s2 := newTestStroke(s, "u2", ToolBrush, Point{X: 10, Y: 10})
	s3 := newTestStroke(s, "u1", ToolBrush, Point{X: 20, Y: 20})

	id, ok := s.Undo("u1")
	if !ok || id != s3.ID {
		t.Fatalf("expected undo of %s, got %s (ok=%v)", s3.ID, id, ok)
	}
	id, ok = s.Undo("u1")
	if !ok || id != s1.ID {
		t.Fatalf("expected undo of %s, got %s (ok=%v)", s1.ID, id, ok)
	}
	if _, ok := s.Undo("u1"); ok {
		t.Error("u1 has nothing left to undo")
	}

	// u2's stroke is untouched throughout
	active := s.ActiveStrokes()
	if len(active) != 1 || active[0].ID != s2.ID {
		t.Errorf("expected only %s active, got %v", s2.ID, active)
	}
}

func TestRedoReactivatesOldestFirst(t *testing.T) {
	s := NewState()
	s1 := newTestStroke(s, "u1", ToolBrush, Point{X: 0, Y: 0})
	s2 := newTestStroke(s, "u1", ToolBrush, Point{X: 10, Y: 10})

	s.Undo("u1") // deactivates s2
	s.Undo("u1") // deactivates s1

	// Oldest-undone-first: s1 comes back before s2 even though s2 was
	// undone first.
	id, ok := s.Redo("u1")
	if !ok || id != s1.ID {
		t.Fatalf("expected redo of %s, got %s (ok=%v)", s1.ID, id, ok)
	}
	id, ok = s.Redo("u1")
	if !ok || id != s2.ID {
		t.Fatalf("expected redo of %s, got %s (ok=%v)", s2.ID, id, ok)
	}
	if _, ok := s.Redo("u1"); ok {
		t.Error("u1 has nothing left to redo")
	}
}

func TestUndoThenRedoAcrossUsers(t *testing.T) {
	s := NewState()
	s1 := newTestStroke(s, "u1", ToolBrush, Point{X: 0, Y: 0})
	s2 := newTestStroke(s, "u2", ToolBrush, Point{X: 10, Y: 10})

	s.Undo("u1")
	active := s.ActiveStrokes()
	if len(active) != 1 || active[0].ID != s2.ID {
		t.Fatalf("expected only u2's stroke active, got %v", active)
	}

	s.Redo("u1")
	active = s.ActiveStrokes()
	if len(active) != 2 {
		t.Fatalf("expected 2 active strokes, got %d", len(active))
	}
	if active[0].ID != s1.ID || active[1].ID != s2.ID {
		t.Errorf("expected layer order [%s %s], got [%s %s]",
			s1.ID, s2.ID, active[0].ID, active[1].ID)
	}
}

func TestActiveStrokesSortedByLayer(t *testing.T) {
	s := NewState()
	for i := 0; i < 10; i++ {
		owner := "u1"
		if i%2 == 0 {
			owner = "u2"
		}
		newTestStroke(s, owner, ToolBrush, Point{X: float64(i), Y: 0})
	}

	active := s.ActiveStrokes()
	if len(active) != 10 {
		t.Fatalf("expected 10 active strokes, got %d", len(active))
	}
	for i := 1; i < len(active); i++ {
		if active[i-1].Layer >= active[i].Layer {
			t.Fatalf("layers not strictly ascending at %d: %d >= %d",
				i, active[i-1].Layer, active[i].Layer)
		}
	}
}

func TestEraseAt(t *testing.T) {
	s := NewState()
	hit := newTestStroke(s, "u1", ToolBrush, Point{X: 100, Y: 100})
	miss := newTestStroke(s, "u1", ToolBrush, Point{X: 300, Y: 300})
	eraser := newTestStroke(s, "u2", ToolEraser, Point{X: 100, Y: 100})

	erased := s.EraseAt(Point{X: 102, Y: 98}, EraseRadius)
	if len(erased) != 1 || erased[0] != hit.ID {
		t.Fatalf("expected to erase %s, got %v", hit.ID, erased)
	}

	if erased := s.EraseAt(Point{X: 500, Y: 500}, EraseRadius); len(erased) != 0 {
		t.Errorf("erase far from any stroke should be a no-op, got %v", erased)
	}

	active := s.ActiveStrokes()
	if len(active) != 2 {
		t.Fatalf("expected 2 active strokes, got %d", len(active))
	}
	if active[0].ID != miss.ID || active[1].ID != eraser.ID {
		t.Errorf("unexpected survivors: %v, %v", active[0].ID, active[1].ID)
	}
}

func TestEraseBoxBoundary(t *testing.T) {
	s := NewState()
	onEdge := newTestStroke(s, "u1", ToolBrush, Point{X: 105, Y: 100})
	outside := newTestStroke(s, "u1", ToolBrush, Point{X: 105.1, Y: 100})

	erased := s.EraseAt(Point{X: 100, Y: 100}, EraseRadius)
	if len(erased) != 1 || erased[0] != onEdge.ID {
		t.Errorf("box test should include the edge and exclude %s, got %v",
			outside.ID, erased)
	}
}

func TestEraserStrokesAreImmune(t *testing.T) {
	s := NewState()
	newTestStroke(s, "u1", ToolEraser, Point{X: 100, Y: 100})

	if erased := s.EraseAt(Point{X: 100, Y: 100}, EraseRadius); len(erased) != 0 {
		t.Errorf("eraser strokes must not be erasable, got %v", erased)
	}
}

func TestClearIsIrreversible(t *testing.T) {
	s := NewState()
	newTestStroke(s, "u1", ToolBrush, Point{X: 0, Y: 0})
	newTestStroke(s, "u1", ToolBrush, Point{X: 1, Y: 1})
	s.Undo("u1")

	s.Clear()
	if got := s.ActiveStrokes(); len(got) != 0 {
		t.Fatalf("expected empty canvas after clear, got %d strokes", len(got))
	}
	if _, ok := s.Undo("u1"); ok {
		t.Error("undo after clear should find nothing")
	}
	if _, ok := s.Redo("u1"); ok {
		t.Error("redo after clear should find nothing")
	}
}

func TestReplaceAdvancesLayerCounter(t *testing.T) {
	s := NewState()
	s.Replace([]Stroke{
		{ID: "7-x", Tool: ToolBrush, Layer: 7, Active: true, Points: []Point{{0, 0}}},
	})

	if layer := s.NextLayer(); layer <= 7 {
		t.Errorf("layer counter must move past restored strokes, got %d", layer)
	}
}

func TestNextLayerConcurrency(t *testing.T) {
	s := NewState()

	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := make(map[int64]bool)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			layer := s.NextLayer()
			mu.Lock()
			seen[layer] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(seen) != 100 {
		t.Errorf("expected 100 distinct layers, got %d", len(seen))
	}
}
