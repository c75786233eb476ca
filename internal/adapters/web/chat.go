package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"returns-copilot/internal/app"
	"returns-copilot/internal/core"

	"github.com/go-chi/chi/v5"
)

type chatMessageRequest struct {
	Message          string `json:"message"`
	OrderID          string `json:"order_id"`
	Reason           string `json:"reason"`
	WantsStoreCredit bool   `json:"wants_store_credit"`
	PhotosProvided   bool   `json:"photos_provided"`
}

type chatMessageResponse struct {
	SessionID        string           `json:"session_id"`
	AssistantMessage string           `json:"assistant_message"`
	CaseID           *string          `json:"case_id,omitempty"`
	Status           *core.CaseStatus `json:"status,omitempty"`
}

func (h *Handler) chatStart(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.StartChat(r.Context())
	if err != nil {
		writeError(w, r, "failed to start chat session", "INTERNAL_ERROR", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"session_id": res.SessionID})
}

func (h *Handler) chatSend(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req chatMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, "invalid JSON body", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, r, "message is required", "BAD_REQUEST", http.StatusBadRequest)
		return
	}

	res, err := h.svc.HandleChatMessage(r.Context(), app.ChatMessageRequest{
		SessionID:        sessionID,
		Message:          req.Message,
		OrderID:          req.OrderID,
		Reason:           req.Reason,
		WantsStoreCredit: req.WantsStoreCredit,
		PhotosProvided:   req.PhotosProvided,
	})
	if err != nil {
		if errors.Is(err, core.ErrSessionNotFound) {
			writeError(w, r, "chat session not found", "NOT_FOUND", http.StatusNotFound)
			return
		}
		writeError(w, r, "failed to process message", "INTERNAL_ERROR", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, chatMessageResponse{
		SessionID:        res.SessionID,
		AssistantMessage: res.AssistantMessage,
		CaseID:           res.CaseID,
		Status:           res.Status,
	})
}

func (h *Handler) chatMessages(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	msgs, err := h.svc.GetChatMessages(r.Context(), sessionID)
	if err != nil {
		writeError(w, r, "failed to load messages", "INTERNAL_ERROR", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session_id": sessionID, "messages": msgs})
}
