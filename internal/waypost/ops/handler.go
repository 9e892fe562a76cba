// Package ops exposes the debug/ops HTTP surface of the telemetry pipeline:
// health, live queue and journey statistics, and a websocket live tail of
// delivered batches.
package ops

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/waypost/waypost/api/types/v1alpha1"
	"github.com/waypost/waypost/internal/waypost/journey"
	"github.com/waypost/waypost/internal/waypost/queue"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The ops surface binds to loopback; cross-origin tails are fine.
		return true
	},
}

type Handler struct {
	queues   *queue.Manager
	journeys *journey.Monitor
	hub      *Hub
	logger   zerolog.Logger
	slogger  *slog.Logger
}

// NewHandler creates the ops handler and wires the live-tail hub into the
// queue manager's delivery observer.
func NewHandler(queues *queue.Manager, journeys *journey.Monitor, logger zerolog.Logger, slogger *slog.Logger) *Handler {
	h := &Handler{
		queues:   queues,
		journeys: journeys,
		hub:      NewHub(slogger),
		logger:   logger.With().Str("component", "ops-http").Logger(),
		slogger:  slogger,
	}
	queues.SetObserver(h.hub.PublishBatch)
	go h.hub.Run()
	return h
}

// Close stops the live-tail hub.
func (h *Handler) Close() {
	h.hub.Stop()
}

// Router returns a router pre-configured with all ops endpoints
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

// RegisterRoutes mounts all ops endpoints on the provided router
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/healthz", h.handleHealth)
	r.Get("/stats", h.handleStats)
	r.Get("/journeys", h.handleJourneys)
	r.Get("/stream", h.handleStream)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// statsResponse is the combined pipeline snapshot.
type statsResponse struct {
	Queues   map[v1alpha1.Category]queue.Depths `json:"queues"`
	Journeys []v1alpha1.JourneyStats            `json:"journeys"`
	Active   int                                `json:"activeJourneys"`
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, statsResponse{
		Queues:   h.queues.Depths(),
		Journeys: h.journeys.AllStats(),
		Active:   h.journeys.ActiveCount(),
	})
}

func (h *Handler) handleJourneys(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.journeys.Snapshots())
}

func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := &connection{
		ws:     ws,
		send:   make(chan []byte, 32),
		hub:    h.hub,
		logger: h.slogger,
	}
	h.hub.register <- c

	go c.writePump()
	go c.readPump()
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			h.logger.Error().Err(err).Msg("failed to encode response")
		}
	}
}
