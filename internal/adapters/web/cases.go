package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"returns-copilot/internal/app"
	"returns-copilot/internal/core"
	"returns-copilot/internal/pipeline"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) casesList(w http.ResponseWriter, r *http.Request) {
	var status *core.CaseStatus
	if s := r.URL.Query().Get("status"); s != "" {
		cs := core.CaseStatus(s)
		status = &cs
	}

	res, err := h.svc.ListCases(r.Context(), status)
	if err != nil {
		writeError(w, r, "failed to list cases", "INTERNAL_ERROR", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cases": res.Cases})
}

func (h *Handler) caseDetail(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.GetCase(r.Context(), chi.URLParam(r, "caseID"))
	if err != nil {
		if errors.Is(err, core.ErrCaseNotFound) {
			writeError(w, r, "case not found", "NOT_FOUND", http.StatusNotFound)
			return
		}
		writeError(w, r, "failed to load case", "INTERNAL_ERROR", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

type humanDecisionRequest struct {
	Decision string `json:"decision"`
	Notes    string `json:"notes"`
}

func (h *Handler) humanDecision(w http.ResponseWriter, r *http.Request) {
	var req humanDecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, "invalid JSON body", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	if req.Decision == "" {
		writeError(w, r, "decision is required", "BAD_REQUEST", http.StatusBadRequest)
		return
	}

	c, err := h.svc.RecordHumanDecision(r.Context(), app.HumanDecisionRequest{
		CaseID:   chi.URLParam(r, "caseID"),
		Decision: req.Decision,
		Notes:    req.Notes,
	})
	if err != nil {
		if errors.Is(err, core.ErrCaseNotFound) {
			writeError(w, r, "case not found", "NOT_FOUND", http.StatusNotFound)
			return
		}
		writeError(w, r, "failed to record decision", "INTERNAL_ERROR", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

type finalizeResponse struct {
	CaseID        string                `json:"case_id"`
	Status        core.CaseStatus       `json:"status"`
	CustomerReply string                `json:"customer_reply"`
	NextActions   []pipeline.NextAction `json:"next_actions"`
}

func (h *Handler) finalizeCase(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.FinalizeCase(r.Context(), chi.URLParam(r, "caseID"))
	if err != nil {
		switch {
		case errors.Is(err, core.ErrCaseNotFound):
			writeError(w, r, "case not found", "NOT_FOUND", http.StatusNotFound)
		case errors.Is(err, pipeline.ErrFinalizeUnparseable):
			writeError(w, r, err.Error(), "FINALIZE_FAILED", http.StatusInternalServerError)
		case errors.Is(err, app.ErrHumanDecisionRequired):
			writeError(w, r, err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		default:
			writeError(w, r, "failed to finalize case", "INTERNAL_ERROR", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusOK, finalizeResponse{
		CaseID:        res.CaseID,
		Status:        res.Status,
		CustomerReply: res.CustomerReply,
		NextActions:   res.NextActions,
	})
}
