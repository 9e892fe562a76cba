package ingest

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/waypost/waypost/api/types/v1alpha1"
	werrors "github.com/waypost/waypost/internal/waypost/errors"
)

type Handler struct {
	service Service
	logger  zerolog.Logger
}

func NewHandler(service Service, logger zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger.With().Str("component", "ingest-http").Logger(),
	}
}

// Router returns a router pre-configured with all ingestion endpoints
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

// RegisterRoutes mounts all ingestion endpoints on the provided router
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/{category}", func(r chi.Router) {
		r.Post("/", h.handleAcceptBatch)
		r.Get("/recent", h.handleRecentEvents)
	})
}

func (h *Handler) handleAcceptBatch(w http.ResponseWriter, r *http.Request) {
	category := v1alpha1.Category(chi.URLParam(r, "category"))

	var req v1alpha1.BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.service.AcceptBatch(r.Context(), category, req); err != nil {
		if errors.Is(err, werrors.ErrInvalidInput) {
			h.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error().Err(err).Str("category", string(category)).Msg("failed to store batch")
		h.respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.respondJSON(w, http.StatusAccepted, map[string]interface{}{
		"accepted": len(req.Events),
	})
}

func (h *Handler) handleRecentEvents(w http.ResponseWriter, r *http.Request) {
	category := v1alpha1.Category(chi.URLParam(r, "category"))

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, _ = strconv.Atoi(raw)
	}

	events, err := h.service.RecentEvents(r.Context(), category, limit)
	if err != nil {
		h.logger.Error().Err(err).Str("category", string(category)).Msg("failed to load events")
		h.respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.respondJSON(w, http.StatusOK, events)
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

func (h *Handler) respondError(w http.ResponseWriter, code int, msg string) {
	h.respondJSON(w, code, map[string]string{"error": msg})
}
