// Package handlers provides the local status API of a running augmenter.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Rorqualx/marketplace-scroll/internal/metrics"
	"github.com/Rorqualx/marketplace-scroll/internal/types"
	"github.com/Rorqualx/marketplace-scroll/pkg/version"
)

// StatusSource reports the state of the augmented page.
type StatusSource interface {
	Status() types.SessionStatus
}

// Reloader reloads the site markers file.
type Reloader interface {
	Reload() error
}

// Handler serves the status API.
type Handler struct {
	status   StatusSource
	reloader Reloader
}

// New creates a Handler. reloader may be nil.
func New(status StatusSource, reloader Reloader) *Handler {
	return &Handler{status: status, reloader: reloader}
}

// Routes returns the API routes. /metrics is served only when withMetrics is set.
func (h *Handler) Routes(withMetrics bool) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", h.HandleHealth)
	mux.HandleFunc("GET /v1/status", h.HandleStatus)
	mux.HandleFunc("POST /v1/selectors/reload", h.HandleReload)
	if withMetrics {
		mux.Handle("GET /metrics", metrics.Handler())
	}
	mux.HandleFunc("/", h.HandleNotFound)
	return mux
}

// HandleHealth reports that the process is up.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()
	h.writeJSONResponse(w, http.StatusOK, types.Response{
		Status:    types.ResponseOK,
		Message:   "marketplace-scroll is running",
		StartTime: startTime.UnixMilli(),
		EndTime:   time.Now().UnixMilli(),
		Version:   version.Full(),
	})
}

// HandleStatus returns a snapshot of the augmented page.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()
	if h.status == nil {
		h.writeErrorWithStatus(w, http.StatusServiceUnavailable, "page not ready", startTime)
		return
	}

	status := h.status.Status()
	h.writeJSONResponse(w, http.StatusOK, types.Response{
		Status:    types.ResponseOK,
		Message:   "",
		StartTime: startTime.UnixMilli(),
		EndTime:   time.Now().UnixMilli(),
		Version:   version.Full(),
		Session:   &status,
	})
}

// HandleReload reloads the site markers file.
func (h *Handler) HandleReload(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()
	if h.reloader == nil {
		h.writeErrorWithStatus(w, http.StatusNotFound, "selectors reload not available", startTime)
		return
	}
	if err := h.reloader.Reload(); err != nil {
		log.Warn().Err(err).Msg("Selectors reload failed")
		h.writeErrorWithStatus(w, http.StatusUnprocessableEntity, "reload failed: "+err.Error(), startTime)
		return
	}
	h.writeJSONResponse(w, http.StatusOK, types.Response{
		Status:    types.ResponseOK,
		Message:   "selectors reloaded",
		StartTime: startTime.UnixMilli(),
		EndTime:   time.Now().UnixMilli(),
		Version:   version.Full(),
	})
}

// HandleNotFound handles unknown paths.
func (h *Handler) HandleNotFound(w http.ResponseWriter, r *http.Request) {
	h.writeErrorWithStatus(w, http.StatusNotFound, "Not found", time.Now())
}

// writeErrorWithStatus writes an error response with a specific HTTP status code.
func (h *Handler) writeErrorWithStatus(w http.ResponseWriter, statusCode int, message string, startTime time.Time) {
	resp := types.Response{
		Status:    types.ResponseError,
		Message:   message,
		StartTime: startTime.UnixMilli(),
		EndTime:   time.Now().UnixMilli(),
		Version:   version.Full(),
	}
	h.writeJSONResponse(w, statusCode, resp)
}

// writeJSONResponse buffers JSON before writing so encoding errors are caught
// before headers are sent.
func (h *Handler) writeJSONResponse(w http.ResponseWriter, statusCode int, resp interface{}) {
	buf := getResponseBuffer()
	defer putResponseBuffer(buf)

	if err := json.NewEncoder(buf).Encode(resp); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"status":"error","message":"internal encoding error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	_, _ = w.Write(buf.Bytes())
}
