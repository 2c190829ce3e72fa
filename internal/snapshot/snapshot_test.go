package snapshot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sketchroom/backend/internal/canvas"
	"github.com/sketchroom/backend/internal/db"
	"github.com/sketchroom/backend/internal/room"
)

func setupService(t *testing.T) (*Service, *room.Registry, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "sketchroom-snapshot-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}

	database, err := db.New(filepath.Join(tmpDir, "test.db"))
	if err != nil {
		os.RemoveAll(tmpDir)
		t.Fatalf("Failed to create database: %v", err)
	}

	registry := room.NewRegistry()
	svc := New(registry, database, DefaultConfig())

	cleanup := func() {
		database.Close()
		os.RemoveAll(tmpDir)
	}
	return svc, registry, cleanup
}

func addStroke(rm *room.Room, owner string, p canvas.Point) {
	layer := rm.State.NextLayer()
	rm.State.AddStroke(&canvas.Stroke{
		ID:      canvas.StrokeID(layer, owner),
		OwnerID: owner,
		Color:   "#000",
		Width:   4,
		Tool:    canvas.ToolBrush,
		Points:  []canvas.Point{p},
		Layer:   layer,
		Active:  true,
	})
}

func TestContentHashTracksState(t *testing.T) {
	state := canvas.NewState()

	_, emptyHash, err := Content(state)
	if err != nil {
		t.Fatalf("Content failed: %v", err)
	}

	layer := state.NextLayer()
	state.AddStroke(&canvas.Stroke{
		ID: canvas.StrokeID(layer, "s1"), OwnerID: "s1",
		Tool: canvas.ToolBrush, Points: []canvas.Point{{X: 1, Y: 2}},
		Layer: layer, Active: true,
	})

	content, hash, err := Content(state)
	if err != nil {
		t.Fatalf("Content failed: %v", err)
	}
	if hash == emptyHash {
		t.Error("hash should change when strokes change")
	}
	if content == "[]" {
		t.Error("content should include the stroke")
	}
}

func TestSnapshotNowSkipsUnchangedRooms(t *testing.T) {
	svc, registry, cleanup := setupService(t)
	defer cleanup()

	rm := registry.GetOrCreate("sketch")
	addStroke(rm, "s1", canvas.Point{X: 1, Y: 1})

	if err := svc.SnapshotNow(rm); err != nil {
		t.Fatalf("First snapshot failed: %v", err)
	}
	if err := svc.SnapshotNow(rm); err != nil {
		t.Fatalf("Second snapshot failed: %v", err)
	}

	count, _ := svc.database.GetVersionCount("sketch")
	if count != 1 {
		t.Errorf("Unchanged room should not get a second version, got %d", count)
	}

	addStroke(rm, "s1", canvas.Point{X: 2, Y: 2})
	if err := svc.SnapshotNow(rm); err != nil {
		t.Fatalf("Third snapshot failed: %v", err)
	}
	count, _ = svc.database.GetVersionCount("sketch")
	if count != 2 {
		t.Errorf("Changed room should get a new version, got %d", count)
	}
}
