package core

import "context"

type contextKey string

const (
	ctxKeyCaller    contextKey = "import_caller"
	ctxKeyIPAddress contextKey = "import_ip"
)

// Caller identifies who started an import. It carries identity only; the
// import makes no authorization decisions.
type Caller struct {
	Subject string `json:"subject"`
	Email   string `json:"email,omitempty"`
	Role    string `json:"role,omitempty"`
}

// String returns the most readable identity available.
func (c Caller) String() string {
	if c.Email != "" {
		return c.Email
	}
	return c.Subject
}

// ContextWithCaller attaches the caller identity to ctx.
func ContextWithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, ctxKeyCaller, c)
}

// CallerFromContext returns the caller stored in ctx, if any.
func CallerFromContext(ctx context.Context) (Caller, bool) {
	c, ok := ctx.Value(ctxKeyCaller).(Caller)
	return c, ok
}

// ContextWithIPAddress adds the client IP for import logging.
func ContextWithIPAddress(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ctxKeyIPAddress, ip)
}

// GetIPAddressFromContext extracts the client IP from context.
func GetIPAddressFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyIPAddress).(string); ok {
		return v
	}
	return ""
}
