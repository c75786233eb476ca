package web

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"returns-copilot/internal/core"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const maxUploadBytes = 10 << 20 // 10 MiB per photo

var allowedPhotoExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

// uploadPhoto stores a customer evidence photo on disk and appends its
// URL to the case. A case waiting on photos moves to
// ready_for_human_review.
func (h *Handler) uploadPhoto(w http.ResponseWriter, r *http.Request) {
	caseID := chi.URLParam(r, "caseID")

	// Resolve the case before writing anything to disk, so an unknown
	// case ID leaves no stray file behind.
	if _, err := h.svc.GetCase(r.Context(), caseID); err != nil {
		if errors.Is(err, core.ErrCaseNotFound) {
			writeError(w, r, "case not found", "NOT_FOUND", http.StatusNotFound)
			return
		}
		writeError(w, r, "failed to load case", "INTERNAL_ERROR", http.StatusInternalServerError)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, "file field is required", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedPhotoExts[ext] {
		writeError(w, r, "unsupported file type", "BAD_REQUEST", http.StatusBadRequest)
		return
	}

	name := fmt.Sprintf("%s-%s%s", caseID, uuid.NewString(), ext)
	dst, err := os.Create(filepath.Join(h.uploadDir, name))
	if err != nil {
		writeError(w, r, "failed to store file", "INTERNAL_ERROR", http.StatusInternalServerError)
		return
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		writeError(w, r, "failed to store file", "INTERNAL_ERROR", http.StatusInternalServerError)
		return
	}

	url := "/uploads/" + name
	c, err := h.svc.AddCasePhoto(r.Context(), caseID, url)
	if err != nil {
		if errors.Is(err, core.ErrCaseNotFound) {
			writeError(w, r, "case not found", "NOT_FOUND", http.StatusNotFound)
			return
		}
		writeError(w, r, "failed to attach photo", "INTERNAL_ERROR", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"url": url, "status": c.Status})
}

// serveUpload serves stored photos back to the reviewer dashboard. The
// filename is flattened to its base to keep requests inside uploadDir.
func (h *Handler) serveUpload(w http.ResponseWriter, r *http.Request) {
	name := filepath.Base(strings.TrimPrefix(r.URL.Path, "/uploads/"))
	if name == "." || name == "/" {
		writeError(w, r, "not found", "NOT_FOUND", http.StatusNotFound)
		return
	}
	http.ServeFile(w, r, filepath.Join(h.uploadDir, name))
}
