package snapshot

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/sketchroom/backend/internal/canvas"
	"github.com/sketchroom/backend/internal/db"
	"github.com/sketchroom/backend/internal/metrics"
	"github.com/sketchroom/backend/internal/room"
)

// Serializes a room's active strokes to the stored snapshot document
// and its short content hash.
func Content(state *canvas.State) (string, string, error) {
	data, err := json.Marshal(state.ActiveStrokes())
	if err != nil {
		return "", "", err
	}
	h := sha256.Sum256(data)
	return string(data), hex.EncodeToString(h[:8]), nil
}

type Config struct {
	Interval        time.Duration
	StrokeThreshold int
	KeepAutoSaves   int
}

func DefaultConfig() Config {
	return Config{
		Interval:        5 * time.Minute,
		StrokeThreshold: 25,
		KeepAutoSaves:   20,
	}
}

// Periodically auto-saves versions of busy rooms so a crashed client
// can offer its user a recent restore point. Rooms below the stroke
// threshold, or unchanged since the last save, are skipped.
type Service struct {
	registry *room.Registry
	database *db.Database
	config   Config
	stop     chan struct{}
	wg       sync.WaitGroup
}

func New(registry *room.Registry, database *db.Database, config Config) *Service {
	return &Service{
		registry: registry,
		database: database,
		config:   config,
		stop:     make(chan struct{}),
	}
}

func (s *Service) Start() {
	s.wg.Add(1)
	go s.run()
	log.Printf("📸 Snapshot service started (interval: %v, threshold: %d strokes)",
		s.config.Interval, s.config.StrokeThreshold)
}

func (s *Service) Stop() {
	close(s.stop)
	s.wg.Wait()
	log.Println("📸 Snapshot service stopped")
}

func (s *Service) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.snapshotAllRooms()
		}
	}
}

func (s *Service) snapshotAllRooms() {
	saved := 0
	for _, rm := range s.registry.Rooms() {
		if rm.State.StrokeCount() < s.config.StrokeThreshold {
			continue
		}
		if err := s.snapshotRoom(rm); err != nil {
			log.Printf("Snapshot: failed for room %s: %v", rm.Name, err)
		} else {
			saved++
		}
	}

	if saved > 0 {
		log.Printf("📸 Auto-saved %d rooms", saved)
	}
}

func (s *Service) snapshotRoom(rm *room.Room) error {
	content, contentHash, err := Content(rm.State)
	if err != nil {
		return err
	}

	// Nothing changed since the last save
	latest, err := s.database.GetLatestVersion(rm.Name)
	if err == nil && latest != nil && latest.ContentHash == contentHash {
		return nil
	}

	name := fmt.Sprintf("Auto-save %s", time.Now().Format("Jan 2, 3:04 PM"))
	if _, err := s.database.CreateVersion(rm.Name, name, "", content, contentHash, "", true); err != nil {
		return err
	}
	metrics.SnapshotsTotal.WithLabelValues("auto").Inc()

	return s.database.DeleteOldAutoVersions(rm.Name, s.config.KeepAutoSaves)
}

// SnapshotNow saves one room immediately, regardless of thresholds.
func (s *Service) SnapshotNow(rm *room.Room) error {
	return s.snapshotRoom(rm)
}
