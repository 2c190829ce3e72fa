package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sketchroom/backend/internal/canvas"
	"github.com/sketchroom/backend/internal/db"
	"github.com/sketchroom/backend/internal/metrics"
	"github.com/sketchroom/backend/internal/protocol"
	"github.com/sketchroom/backend/internal/room"
	"github.com/sketchroom/backend/internal/snapshot"
	"github.com/sketchroom/backend/internal/ws"
)

type API struct {
	hub      *ws.Hub
	registry *room.Registry
	database *db.Database
}

func New(hub *ws.Hub, registry *room.Registry, database *db.Database) *API {
	return &API{
		hub:      hub,
		registry: registry,
		database: database,
	}
}

func jsonResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

func errorResponse(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

func (a *API) HealthHandler(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) StatsHandler(w http.ResponseWriter, r *http.Request) {
	stats := map[string]interface{}{
		"active_rooms":   a.hub.GetRoomCount(),
		"active_clients": a.hub.GetClientCount(),
		"known_rooms":    a.registry.RoomCount(),
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
	}

	if a.database != nil {
		dbStats, err := a.database.GetStats()
		if err == nil {
			stats["total_rooms"] = dbStats["room_count"]
			stats["total_versions"] = dbStats["version_count"]
		}
	}

	jsonResponse(w, http.StatusOK, stats)
}

// Replay: the full set of active strokes for a room, sorted by layer,
// for clients reconstructing the canvas on join, resize or reconnect.
// A room that was never created is an empty canvas, not an error.
func (a *API) StateHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		errorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	roomName := r.URL.Query().Get("room")
	if roomName == "" {
		roomName = "default"
	}

	rm := a.registry.Get(roomName)
	if rm == nil {
		jsonResponse(w, http.StatusOK, []canvas.Stroke{})
		return
	}

	jsonResponse(w, http.StatusOK, rm.State.ActiveStrokes())
}

// Room handlers

type RoomResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	ActiveUsers int       `json:"active_users"`
	StrokeCount int       `json:"stroke_count,omitempty"`
}

type CreateRoomRequest struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

func (a *API) ListRoomsHandler(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if offset < 0 {
		offset = 0
	}

	rooms, err := a.database.ListRooms(limit, offset)
	if err != nil {
		errorResponse(w, http.StatusInternalServerError, "Failed to list rooms")
		return
	}

	activeRooms := a.hub.GetActiveRooms()

	response := make([]RoomResponse, len(rooms))
	for i, rm := range rooms {
		response[i] = RoomResponse{
			ID:          rm.ID,
			Name:        rm.Name,
			CreatedAt:   rm.CreatedAt,
			UpdatedAt:   rm.UpdatedAt,
			ActiveUsers: activeRooms[rm.ID],
		}
	}

	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"rooms":  response,
		"limit":  limit,
		"offset": offset,
	})
}

// Explicit room creation. Joining a websocket creates rooms
// implicitly, so this exists for clients that want a room to show up
// in the directory before anyone connects.
func (a *API) CreateRoomHandler(w http.ResponseWriter, r *http.Request) {
	var req CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.ID == "" {
		errorResponse(w, http.StatusBadRequest, "Room ID is required")
		return
	}

	a.registry.GetOrCreate(req.ID)

	if err := a.database.CreateRoom(req.ID, req.Name); err != nil {
		errorResponse(w, http.StatusInternalServerError, "Failed to create room")
		return
	}

	rm, err := a.database.GetRoom(req.ID)
	if err != nil || rm == nil {
		errorResponse(w, http.StatusInternalServerError, "Failed to get room")
		return
	}

	jsonResponse(w, http.StatusCreated, RoomResponse{
		ID:        rm.ID,
		Name:      rm.Name,
		CreatedAt: rm.CreatedAt,
		UpdatedAt: rm.UpdatedAt,
	})
}

func (a *API) GetRoomHandler(w http.ResponseWriter, r *http.Request) {
	// Extract room ID from path: /api/rooms/{id}
	path := strings.TrimPrefix(r.URL.Path, "/api/rooms/")
	roomID := strings.TrimSuffix(path, "/")

	if roomID == "" {
		errorResponse(w, http.StatusBadRequest, "Room ID is required")
		return
	}

	rm, err := a.database.GetRoom(roomID)
	if err != nil {
		errorResponse(w, http.StatusInternalServerError, "Failed to get room")
		return
	}

	if rm == nil {
		errorResponse(w, http.StatusNotFound, "Room not found")
		return
	}

	activeRooms := a.hub.GetActiveRooms()

	strokes := 0
	if live := a.registry.Get(roomID); live != nil {
		strokes = live.State.StrokeCount()
	}

	jsonResponse(w, http.StatusOK, RoomResponse{
		ID:          rm.ID,
		Name:        rm.Name,
		CreatedAt:   rm.CreatedAt,
		UpdatedAt:   rm.UpdatedAt,
		ActiveUsers: activeRooms[roomID],
		StrokeCount: strokes,
	})
}

func (a *API) RoomsRouter(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/rooms")

	// /api/rooms or /api/rooms/
	if path == "" || path == "/" {
		switch r.Method {
		case http.MethodGet:
			a.ListRoomsHandler(w, r)
		case http.MethodPost:
			a.CreateRoomHandler(w, r)
		default:
			errorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
		return
	}

	// /api/rooms/{id}
	if r.Method != http.MethodGet {
		errorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	a.GetRoomHandler(w, r)
}

// Version handlers

type CreateVersionRequest struct {
	RoomID      string `json:"room_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	CreatedBy   string `json:"created_by"`
	IsAuto      bool   `json:"is_auto"`
}

type VersionResponse struct {
	ID          int       `json:"id"`
	RoomID      string    `json:"room_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Content     string    `json:"content,omitempty"` // Omit in list view
	ContentHash string    `json:"content_hash"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	IsAuto      bool      `json:"is_auto"`
}

func versionResponse(v *db.Version, withContent bool) VersionResponse {
	resp := VersionResponse{
		ID:          v.ID,
		RoomID:      v.RoomID,
		Name:        v.Name,
		Description: v.Description,
		ContentHash: v.ContentHash,
		CreatedBy:   v.CreatedBy,
		CreatedAt:   v.CreatedAt,
		IsAuto:      v.IsAuto,
	}
	if withContent {
		resp.Content = v.Content
	}
	return resp
}

func (a *API) ListVersionsHandler(w http.ResponseWriter, r *http.Request) {
	roomID := r.URL.Query().Get("room_id")
	if roomID == "" {
		errorResponse(w, http.StatusBadRequest, "room_id is required")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if offset < 0 {
		offset = 0
	}

	versions, err := a.database.ListVersions(roomID, limit, offset)
	if err != nil {
		errorResponse(w, http.StatusInternalServerError, "Failed to list versions")
		return
	}

	response := make([]VersionResponse, len(versions))
	for i := range versions {
		response[i] = versionResponse(&versions[i], false)
	}

	total, _ := a.database.GetVersionCount(roomID)

	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"versions": response,
		"total":    total,
		"limit":    limit,
		"offset":   offset,
	})
}

// Snapshots the room's current active strokes as a named version.
func (a *API) CreateVersionHandler(w http.ResponseWriter, r *http.Request) {
	var req CreateVersionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.RoomID == "" {
		errorResponse(w, http.StatusBadRequest, "room_id is required")
		return
	}

	rm := a.registry.Get(req.RoomID)
	if rm == nil {
		errorResponse(w, http.StatusNotFound, "Room has no live state")
		return
	}

	if req.Name == "" {
		if req.IsAuto {
			req.Name = fmt.Sprintf("Auto-save %s", time.Now().Format("Jan 2, 3:04 PM"))
		} else {
			req.Name = fmt.Sprintf("Version %s", time.Now().Format("Jan 2, 3:04 PM"))
		}
	}

	content, contentHash, err := snapshot.Content(rm.State)
	if err != nil {
		errorResponse(w, http.StatusInternalServerError, "Failed to snapshot room")
		return
	}

	// Skip duplicate auto-saves (same content hash as latest)
	latest, err := a.database.GetLatestVersion(req.RoomID)
	if err == nil && latest != nil && latest.ContentHash == contentHash && req.IsAuto {
		jsonResponse(w, http.StatusOK, versionResponse(latest, false))
		return
	}

	version, err := a.database.CreateVersion(
		req.RoomID, req.Name, req.Description, content, contentHash, req.CreatedBy, req.IsAuto,
	)
	if err != nil {
		errorResponse(w, http.StatusInternalServerError, "Failed to create version")
		return
	}
	trigger := "manual"
	if req.IsAuto {
		trigger = "auto"
	}
	metrics.SnapshotsTotal.WithLabelValues(trigger).Inc()

	// Keep the auto-save history bounded
	if req.IsAuto {
		if err := a.database.DeleteOldAutoVersions(req.RoomID, 20); err != nil {
			log.Printf("Failed to clean up old auto versions: %v", err)
		}
	}

	jsonResponse(w, http.StatusCreated, versionResponse(version, false))
}

func (a *API) GetVersionHandler(w http.ResponseWriter, r *http.Request) {
	// Extract version ID from path: /api/versions/{id}
	path := strings.TrimPrefix(r.URL.Path, "/api/versions/")
	versionID, err := strconv.Atoi(strings.TrimSuffix(path, "/"))
	if err != nil {
		errorResponse(w, http.StatusBadRequest, "Invalid version ID")
		return
	}

	version, err := a.database.GetVersion(versionID)
	if err != nil {
		errorResponse(w, http.StatusInternalServerError, "Failed to get version")
		return
	}

	if version == nil {
		errorResponse(w, http.StatusNotFound, "Version not found")
		return
	}

	jsonResponse(w, http.StatusOK, versionResponse(version, true))
}

func (a *API) DeleteVersionHandler(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/versions/")
	versionID, err := strconv.Atoi(strings.TrimSuffix(path, "/"))
	if err != nil {
		errorResponse(w, http.StatusBadRequest, "Invalid version ID")
		return
	}

	if err := a.database.DeleteVersion(versionID); err != nil {
		errorResponse(w, http.StatusInternalServerError, "Failed to delete version")
		return
	}

	jsonResponse(w, http.StatusOK, map[string]string{"message": "Version deleted"})
}

// Replaces a room's live canvas with a saved snapshot and tells every
// connected client to re-run replay. Restored strokes carry no owner,
// so they sit under the new drawing as a fixed baseline.
func (a *API) RestoreVersionHandler(w http.ResponseWriter, r *http.Request) {
	// Extract version ID from path: /api/versions/{id}/restore
	path := strings.TrimPrefix(r.URL.Path, "/api/versions/")
	path = strings.TrimSuffix(path, "/restore")
	versionID, err := strconv.Atoi(path)
	if err != nil {
		errorResponse(w, http.StatusBadRequest, "Invalid version ID")
		return
	}

	version, err := a.database.GetVersion(versionID)
	if err != nil {
		errorResponse(w, http.StatusInternalServerError, "Failed to get version")
		return
	}

	if version == nil {
		errorResponse(w, http.StatusNotFound, "Version not found")
		return
	}

	var strokes []canvas.Stroke
	if err := json.Unmarshal([]byte(version.Content), &strokes); err != nil {
		errorResponse(w, http.StatusInternalServerError, "Corrupt version content")
		return
	}
	for i := range strokes {
		strokes[i].Active = true
	}

	rm := a.registry.GetOrCreate(version.RoomID)
	rm.State.Replace(strokes)

	a.hub.BroadcastRoom(version.RoomID, protocol.EventCanvasRefresh, struct{}{})

	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"message":       "Version restored",
		"restored_from": version.ID,
		"room_id":       version.RoomID,
		"strokes":       len(strokes),
	})
}

func (a *API) VersionsRouter(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/versions")

	// /api/versions or /api/versions/
	if path == "" || path == "/" {
		switch r.Method {
		case http.MethodGet:
			a.ListVersionsHandler(w, r)
		case http.MethodPost:
			a.CreateVersionHandler(w, r)
		default:
			errorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
		return
	}

	// /api/versions/{id}/restore
	if strings.HasSuffix(path, "/restore") {
		if r.Method != http.MethodPost {
			errorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		a.RestoreVersionHandler(w, r)
		return
	}

	// /api/versions/{id}
	switch r.Method {
	case http.MethodGet:
		a.GetVersionHandler(w, r)
	case http.MethodDelete:
		a.DeleteVersionHandler(w, r)
	default:
		errorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}
