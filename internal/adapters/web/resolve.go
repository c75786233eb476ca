package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"returns-copilot/internal/app"
	"returns-copilot/internal/core"
)

type resolveRequest struct {
	OrderID          string `json:"order_id"`
	Reason           string `json:"reason"`
	CustomerMessage  string `json:"customer_message"`
	WantsStoreCredit bool   `json:"wants_store_credit"`
	PhotosProvided   bool   `json:"photos_provided"`
}

type resolveAudit struct {
	OrderFactsUsed  *core.Order           `json:"order_facts_used"`
	PolicyCitations []core.PolicyCitation `json:"policy_citations"`
	Escalate        bool                  `json:"escalate"`
	Trace           map[string]any        `json:"trace"`
}

type resolveResponse struct {
	Decision      core.Decision `json:"decision"`
	CustomerReply string        `json:"customer_reply"`
	InternalAudit resolveAudit  `json:"internal_audit"`
}

// resolve runs the pipeline for a single request with no session or case
// attached. It is the integration surface for callers that want the
// decision and reply in one round trip.
func (h *Handler) resolve(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, "invalid JSON body", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.OrderID) == "" || strings.TrimSpace(req.Reason) == "" {
		writeError(w, r, "order_id and reason are required", "BAD_REQUEST", http.StatusBadRequest)
		return
	}

	res, err := h.svc.Resolve(r.Context(), app.ResolveRequest{
		OrderID:          req.OrderID,
		Reason:           req.Reason,
		Message:          req.CustomerMessage,
		WantsStoreCredit: req.WantsStoreCredit,
		PhotosProvided:   req.PhotosProvided,
	})
	if err != nil {
		if errors.Is(err, core.ErrOrderNotFound) {
			writeError(w, r, "order not found", "NOT_FOUND", http.StatusNotFound)
			return
		}
		writeError(w, r, "failed to resolve request", "INTERNAL_ERROR", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, resolveResponse{
		Decision:      res.Decision,
		CustomerReply: res.CustomerReply,
		InternalAudit: resolveAudit{
			OrderFactsUsed:  res.OrderFacts,
			PolicyCitations: res.Citations,
			Escalate:        res.Escalate,
			Trace:           res.Trace,
		},
	})
}
