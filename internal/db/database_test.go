package db

import (
	"os"
	"path/filepath"
	"testing"
)

func setupTestDB(t *testing.T) (*Database, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "sketchroom-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}

	dbPath := filepath.Join(tmpDir, "test.db")
	db, err := New(dbPath)
	if err != nil {
		os.RemoveAll(tmpDir)
		t.Fatalf("Failed to create database: %v", err)
	}

	cleanup := func() {
		db.Close()
		os.RemoveAll(tmpDir)
	}

	return db, cleanup
}

func TestRoomOperations(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	if err := db.CreateRoom("test-room", "Test Room"); err != nil {
		t.Fatalf("Failed to create room: %v", err)
	}

	room, err := db.GetRoom("test-room")
	if err != nil {
		t.Fatalf("Failed to get room: %v", err)
	}
	if room == nil {
		t.Fatal("Room should exist")
	}
	if room.Name != "Test Room" {
		t.Errorf("Expected room name 'Test Room', got '%s'", room.Name)
	}

	// Create is idempotent and keeps the first name
	if err := db.CreateRoom("test-room", "Renamed"); err != nil {
		t.Fatalf("Duplicate create should be ignored: %v", err)
	}
	room, _ = db.GetRoom("test-room")
	if room.Name != "Test Room" {
		t.Errorf("Duplicate create must not overwrite, got '%s'", room.Name)
	}

	room, err = db.GetRoom("non-existent")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if room != nil {
		t.Error("Non-existent room should return nil")
	}
}

func TestVersionOperations(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	v, err := db.CreateVersion("room-1", "First sketch", "initial", `[{"id":"1-s1"}]`, "abcd1234", "s1", false)
	if err != nil {
		t.Fatalf("Failed to create version: %v", err)
	}
	if v.ID == 0 || v.RoomID != "room-1" || v.IsAuto {
		t.Errorf("Unexpected version: %+v", v)
	}

	// The room row was created implicitly
	room, _ := db.GetRoom("room-1")
	if room == nil {
		t.Fatal("Creating a version should record the room")
	}

	got, err := db.GetVersion(v.ID)
	if err != nil {
		t.Fatalf("Failed to get version: %v", err)
	}
	if got == nil || got.Content != `[{"id":"1-s1"}]` {
		t.Errorf("Unexpected version content: %+v", got)
	}

	if got, _ := db.GetVersion(99999); got != nil {
		t.Error("Non-existent version should return nil")
	}

	versions, err := db.ListVersions("room-1", 50, 0)
	if err != nil {
		t.Fatalf("Failed to list versions: %v", err)
	}
	if len(versions) != 1 {
		t.Fatalf("Expected 1 version, got %d", len(versions))
	}

	count, _ := db.GetVersionCount("room-1")
	if count != 1 {
		t.Errorf("Expected version count 1, got %d", count)
	}

	if err := db.DeleteVersion(v.ID); err != nil {
		t.Fatalf("Failed to delete version: %v", err)
	}
	if got, _ := db.GetVersion(v.ID); got != nil {
		t.Error("Deleted version should be gone")
	}
}

func TestGetLatestVersion(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	if latest, _ := db.GetLatestVersion("room-1"); latest != nil {
		t.Error("Latest of empty room should be nil")
	}

	db.CreateVersion("room-1", "v1", "", `[]`, "hash1", "s1", false)
	v2, _ := db.CreateVersion("room-1", "v2", "", `[]`, "hash2", "s1", false)

	latest, err := db.GetLatestVersion("room-1")
	if err != nil {
		t.Fatalf("Failed to get latest: %v", err)
	}
	if latest == nil || latest.ID != v2.ID {
		t.Errorf("Expected latest to be %d, got %+v", v2.ID, latest)
	}
}

func TestDeleteOldAutoVersions(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	manual, _ := db.CreateVersion("room-1", "keep me", "", `[]`, "hash-m", "s1", false)
	var lastAuto *Version
	for i := 0; i < 5; i++ {
		lastAuto, _ = db.CreateVersion("room-1", "auto", "", `[]`, "hash-a", "", true)
	}

	if err := db.DeleteOldAutoVersions("room-1", 2); err != nil {
		t.Fatalf("Failed to prune auto versions: %v", err)
	}

	versions, _ := db.ListVersions("room-1", 50, 0)
	autos := 0
	manualSurvived := false
	for _, v := range versions {
		if v.IsAuto {
			autos++
		} else if v.ID == manual.ID {
			manualSurvived = true
		}
	}
	if autos != 2 {
		t.Errorf("Expected 2 auto versions to survive, got %d", autos)
	}
	if !manualSurvived {
		t.Error("Manual versions must never be pruned")
	}
	if got, _ := db.GetVersion(lastAuto.ID); got == nil {
		t.Error("Most recent auto version should survive pruning")
	}
}

func TestGetStats(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	db.CreateRoom("room-1", "")
	db.CreateVersion("room-1", "v1", "", `[]`, "hash", "", false)

	stats, err := db.GetStats()
	if err != nil {
		t.Fatalf("Failed to get stats: %v", err)
	}
	if stats["room_count"] != 1 {
		t.Errorf("Expected 1 room, got %v", stats["room_count"])
	}
	if stats["version_count"] != 1 {
		t.Errorf("Expected 1 version, got %v", stats["version_count"])
	}
}
