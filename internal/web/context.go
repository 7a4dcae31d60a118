package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/userimport/internal/core"
)

// WithRequestMetadata adds the client IP to context for import logging.
func WithRequestMetadata(ctx context.Context, r *http.Request) context.Context {
	return core.ContextWithIPAddress(ctx, r.RemoteAddr) // already processed by TrustedRealIP
}
