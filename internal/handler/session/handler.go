// Package session exposes the dataset-session lifecycle over HTTP.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/prudhvi1709/hypoforge/internal/service/loader"
	sessionService "github.com/prudhvi1709/hypoforge/internal/service/session"
	"github.com/prudhvi1709/hypoforge/pkg/utils"
)

// Handler serves session creation, inspection, deletion and sweep.
type Handler struct {
	store         *sessionService.Store
	loader        *loader.Loader
	defaultMaxAge time.Duration
}

// New creates the session handler.
func New(store *sessionService.Store, ldr *loader.Loader, defaultMaxAge time.Duration) *Handler {
	return &Handler{
		store:         store,
		loader:        ldr,
		defaultMaxAge: defaultMaxAge,
	}
}

// RegisterRoutes wires session routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/sessions", h.handleCreate)
	r.Post("/sessions/sweep", h.handleSweep)
	r.Get("/sessions/{sessionID}", h.handleGet)
	r.Delete("/sessions/{sessionID}", h.handleDelete)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Source string `json:"source"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.Source == "" {
		utils.RespondError(w, http.StatusBadRequest, "source is required")
		return
	}

	ds, err := h.loader.Load(r.Context(), payload.Source)
	if err != nil {
		utils.RespondAppError(w, err)
		return
	}

	sess, err := h.store.Create(ds, payload.Source)
	if err != nil {
		utils.RespondAppError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusCreated, map[string]any{
		"session_id":   sess.ID,
		"description":  sess.Description,
		"row_count":    sess.RowCount,
		"column_count": sess.ColumnCount,
	})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	sess, err := h.store.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		utils.RespondAppError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, sess)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if err := h.store.Delete(sessionID); err != nil {
		utils.RespondAppError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Session %s deleted", sessionID),
	})
}

func (h *Handler) handleSweep(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		MaxAgeHours *float64 `json:"max_age_hours"`
	}
	// An empty body means "use the configured default".
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	maxAge := h.defaultMaxAge
	if payload.MaxAgeHours != nil {
		if *payload.MaxAgeHours < 0 {
			utils.RespondError(w, http.StatusBadRequest, "max_age_hours must not be negative")
			return
		}
		maxAge = time.Duration(*payload.MaxAgeHours * float64(time.Hour))
	}

	removed := h.store.Sweep(maxAge)
	utils.RespondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Cleaned up %d old sessions", removed),
	})
}
