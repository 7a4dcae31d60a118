package middleware

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/JonMunkholm/userimport/internal/auth"
	"github.com/JonMunkholm/userimport/internal/core"
)

// Authenticate resolves the caller from the bearer token and stores it in the
// request context.
//
// With required set, a request without a valid token is rejected with 401.
// Otherwise a missing token passes through anonymously, but a token that is
// present and invalid is still rejected. A nil verifier disables the check.
func Authenticate(v *auth.Verifier, required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if v == nil {
				next.ServeHTTP(w, r)
				return
			}

			caller, err := v.VerifyRequest(r)
			if errors.Is(err, auth.ErrMissingToken) && !required {
				next.ServeHTTP(w, r)
				return
			}
			if err != nil {
				slog.Warn("auth: rejected request",
					"path", r.URL.Path,
					"method", r.Method,
					"remote_addr", r.RemoteAddr,
					"error", err,
				)
				writeError(w, http.StatusUnauthorized, err)
				return
			}

			ctx := core.ContextWithCaller(r.Context(), caller)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// writeError writes the same JSON error body as the web package.
func writeError(w http.ResponseWriter, status int, err error) {
	msg := core.MapError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error":   msg.Message,
		"message": msg.Message,
		"action":  msg.Action,
		"code":    msg.Code,
	})
}
