package web

import (
	"net/http"
	"os"

	"returns-copilot/internal/app"

	"github.com/go-chi/chi/v5"
)

const maxRequestBody = 1 << 20 // 1 MiB for JSON; uploads have their own cap

// Handler holds the ApplicationService and the chi router.
type Handler struct {
	svc          app.ApplicationService
	reviewerUser string
	reviewerPass string
	uploadDir    string
}

// NewHandler creates and wires the chi router with all routes.
func NewHandler(svc app.ApplicationService, allowedOrigins string) http.Handler {
	uploadDir := os.Getenv("UPLOAD_DIR")
	if uploadDir == "" {
		uploadDir = os.TempDir()
	}

	h := &Handler{
		svc:          svc,
		reviewerUser: os.Getenv("REVIEWER_USER"),
		reviewerPass: os.Getenv("REVIEWER_PASS"),
		uploadDir:    uploadDir,
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger)
	r.Use(Recoverer)
	r.Use(CORS(allowedOrigins))

	r.Get("/api/health", h.health)

	// Customer surface (public).
	r.Group(func(r chi.Router) {
		r.Use(RequestBodyLimit(maxRequestBody))
		r.Post("/api/resolve", h.resolve)
		r.Post("/api/chat/start", h.chatStart)
		r.Post("/api/chat/{sessionID}", h.chatSend)
		r.Get("/api/chat/{sessionID}/messages", h.chatMessages)
	})

	// Photo upload is part of the customer surface: a case waiting on
	// photos is progressed by the customer, not the reviewer.
	r.Post("/api/cases/{caseID}/photos", h.uploadPhoto)

	// Reviewer surface (basic auth).
	r.Group(func(r chi.Router) {
		r.Use(h.RequireReviewer)
		r.Get("/api/cases", h.casesList)
		r.Get("/api/cases/{caseID}", h.caseDetail)
		r.Post("/api/cases/{caseID}/decision", h.humanDecision)
		r.Post("/api/cases/{caseID}/finalize", h.finalizeCase)
	})

	// Uploaded photos are served back to the reviewer dashboard.
	r.Get("/uploads/*", h.serveUpload)

	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
