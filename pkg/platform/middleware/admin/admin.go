package admin

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"electiondesk/pkg/requestcontext"
)

// RequireAdminToken guards registry administration routes. An empty expected
// token disables the routes entirely rather than leaving them open.
func RequireAdminToken(expectedToken string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get("X-Admin-Token")
			if expectedToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(expectedToken)) != 1 {
				ctx := r.Context()
				logger.WarnContext(ctx, "admin token mismatch",
					"request_id", requestcontext.RequestID(ctx),
					"path", r.URL.Path,
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"admin token required"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
