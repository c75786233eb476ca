package web

import (
	"crypto/subtle"
	"net/http"
)

// RequireReviewer is chi middleware guarding the reviewer surface with
// HTTP basic auth. Credentials come from REVIEWER_USER/REVIEWER_PASS;
// when unset the reviewer routes are locked out entirely.
func (h *Handler) RequireReviewer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.reviewerUser == "" || h.reviewerPass == "" {
			writeError(w, r, "reviewer credentials not configured", "UNAUTHORIZED", http.StatusUnauthorized)
			return
		}

		user, pass, ok := r.BasicAuth()
		userOK := subtle.ConstantTimeCompare([]byte(user), []byte(h.reviewerUser)) == 1
		passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(h.reviewerPass)) == 1
		if !ok || !userOK || !passOK {
			w.Header().Set("WWW-Authenticate", `Basic realm="reviewer"`)
			writeError(w, r, "authentication required", "UNAUTHORIZED", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
