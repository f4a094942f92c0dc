// Package analysis exposes the orchestration workflows over HTTP, streaming
// incremental output as Server-Sent Events.
package analysis

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/prudhvi1709/hypoforge/internal/model/hypothesis"
	analysisService "github.com/prudhvi1709/hypoforge/internal/service/analysis"
	"github.com/prudhvi1709/hypoforge/pkg/utils"
)

// Handler serves hypothesis generation, testing, direct execution and
// synthesis.
type Handler struct {
	svc    *analysisService.Service
	logger *zap.Logger
}

// New creates the analysis handler.
func New(svc *analysisService.Service, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// RegisterRoutes wires analysis routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/sessions/{sessionID}/execute", h.handleExecute)
	r.Post("/sessions/{sessionID}/hypotheses", h.handleGenerate)
	r.Post("/sessions/{sessionID}/test", h.handleTest)
	r.Post("/synthesize", h.handleSynthesize)
}

func (h *Handler) handleExecute(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		AnalysisCode string `json:"analysis_code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.AnalysisCode == "" {
		utils.RespondError(w, http.StatusBadRequest, "analysis_code is required")
		return
	}

	success, pValue, err := h.svc.ExecuteDirect(r.Context(), chi.URLParam(r, "sessionID"), payload.AnalysisCode)
	if err != nil {
		utils.RespondAppError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"success": success,
		"p_value": pValue,
	})
}

func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	emit, ok := h.openStream(w)
	if !ok {
		return
	}

	if err := h.svc.GenerateHypotheses(r.Context(), chi.URLParam(r, "sessionID"), emit); err != nil {
		h.logger.Warn("hypothesis generation failed", zap.Error(err))
	}
}

func (h *Handler) handleTest(w http.ResponseWriter, r *http.Request) {
	var hyp hypothesis.Hypothesis
	if err := json.NewDecoder(r.Body).Decode(&hyp); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if hyp.Title == "" {
		utils.RespondError(w, http.StatusBadRequest, "hypothesis is required")
		return
	}

	emit, ok := h.openStream(w)
	if !ok {
		return
	}

	if err := h.svc.TestHypothesis(r.Context(), chi.URLParam(r, "sessionID"), hyp, emit); err != nil {
		h.logger.Warn("hypothesis test failed", zap.Error(err))
	}
}

func (h *Handler) handleSynthesize(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Hypotheses []hypothesis.Record `json:"hypotheses"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	emit, ok := h.openStream(w)
	if !ok {
		return
	}

	if err := h.svc.Synthesize(r.Context(), payload.Hypotheses, emit); err != nil {
		h.logger.Warn("synthesis failed", zap.Error(err))
	}
}

// openStream switches the response to SSE and returns an emit function.
// Errors after this point travel inside the stream, not as HTTP statuses.
func (h *Handler) openStream(w http.ResponseWriter) (analysisService.EmitFunc, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return nil, false
	}

	utils.SetupSSEHeaders(w)
	return func(ev analysisService.Event) {
		utils.SendSSEChunk(w, flusher, ev)
	}, true
}
