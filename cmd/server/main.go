package main

import (
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sketchroom/backend/internal/api"
	"github.com/sketchroom/backend/internal/db"
	"github.com/sketchroom/backend/internal/room"
	"github.com/sketchroom/backend/internal/snapshot"
	"github.com/sketchroom/backend/internal/ws"
)

func main() {
	_ = godotenv.Load(".env")

	dbPath := os.Getenv("SKETCHROOM_DB_PATH")
	if dbPath == "" {
		dbPath = "./data/sketchroom.db"
	}

	database, err := db.New(dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()

	registry := room.NewRegistry()

	hub := ws.NewHub(registry, database)
	go hub.Run()

	snapConfig := snapshot.DefaultConfig()
	if v := os.Getenv("SKETCHROOM_SNAPSHOT_INTERVAL"); v != "" {
		if interval, err := time.ParseDuration(v); err == nil {
			snapConfig.Interval = interval
		} else {
			log.Printf("Ignoring invalid SKETCHROOM_SNAPSHOT_INTERVAL %q: %v", v, err)
		}
	}
	snapshots := snapshot.New(registry, database, snapConfig)
	snapshots.Start()

	apiHandler := api.New(hub, registry, database)

	// WebSocket endpoint
	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWs(hub, w, r)
	})

	http.HandleFunc("/state", apiHandler.StateHandler)
	http.HandleFunc("/health", apiHandler.HealthHandler)
	http.HandleFunc("/api/stats", apiHandler.StatsHandler)
	http.HandleFunc("/api/rooms", apiHandler.RoomsRouter)
	http.HandleFunc("/api/rooms/", apiHandler.RoomsRouter)
	http.HandleFunc("/api/versions", apiHandler.VersionsRouter)
	http.HandleFunc("/api/versions/", apiHandler.VersionsRouter)
	http.Handle("/metrics", promhttp.Handler())

	// Apply CORS middleware
	handler := corsMiddleware(http.DefaultServeMux)

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down server...")
		snapshots.Stop()
		database.Close()
		os.Exit(0)
	}()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("🎨 Sketchroom server starting on :%s", port)
	log.Printf("📁 Database: %s", dbPath)
	log.Println("Endpoints:")
	log.Println("  - WebSocket: /ws?room={room}&name={displayName}")
	log.Println("  - Replay:    GET /state?room={room}")
	log.Println("  - Health:    GET /health")
	log.Println("  - Stats:     GET /api/stats")
	log.Println("  - Metrics:   GET /metrics")
	log.Println("  - Rooms:     GET/POST /api/rooms, GET /api/rooms/{id}")
	log.Println("  - Versions:  GET/POST /api/versions")
	log.Println("  - Version:   GET/DELETE /api/versions/{id}")
	log.Println("  - Restore:   POST /api/versions/{id}/restore")

	if err := http.ListenAndServe(":"+port, handler); err != nil {
		log.Fatal("ListenAndServe: ", err)
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
