package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collectors exposed on /metrics. Registered once at init via
// promauto; the hub and api packages update them inline.
var (
	// EventsTotal counts processed websocket events by event type.
	EventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sketchroom_ws_events_total",
		Help: "Websocket events processed, by event type.",
	}, []string{"type"})

	// DroppedEventsTotal counts inbound frames dropped before dispatch
	// (malformed payloads, rate limiting).
	DroppedEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sketchroom_ws_dropped_events_total",
		Help: "Inbound websocket frames dropped, by reason.",
	}, []string{"reason"})

	// ConnectedClients tracks currently open websocket sessions.
	ConnectedClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sketchroom_connected_clients",
		Help: "Currently connected websocket clients.",
	})

	// ActiveRooms tracks rooms with at least one connected client.
	ActiveRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sketchroom_active_rooms",
		Help: "Rooms with at least one connected client.",
	})

	// SnapshotsTotal counts board versions written, by trigger.
	SnapshotsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sketchroom_snapshots_total",
		Help: "Board versions saved, by trigger (auto or manual).",
	}, []string{"trigger"})
)
