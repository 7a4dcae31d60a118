package middleware

import "net/http"

// apiCSP allows nothing; the API serves JSON and CSV only.
const apiCSP = "default-src 'none'; frame-ancestors 'none'"

// SecurityHeaders adds hardening headers to all responses.
func SecurityHeaders(enableCSP bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			h.Set("Cache-Control", "no-store")
			if enableCSP {
				h.Set("Content-Security-Policy", apiCSP)
			}
			next.ServeHTTP(w, r)
		})
	}
}
