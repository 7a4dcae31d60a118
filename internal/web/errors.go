package web

// errors.go provides unified error responses for the API.
//
// Every error is logged with full technical detail and the request ID, then
// returned to the client as the user-friendly message from core.MapError.

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/JonMunkholm/userimport/internal/core"
	"github.com/go-chi/chi/v5/middleware"
)

// ErrorResponse is the JSON body of every API error.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// respondError logs err and writes its user-facing form with statusCode.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	userMsg := core.MapError(err)

	slog.Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", userMsg.Code,
		"request_id", middleware.GetReqID(r.Context()),
	)

	if statusCode == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "30")
	}
	writeJSON(w, statusCode, ErrorResponse{
		Error:   userMsg.Message,
		Message: userMsg.Message,
		Action:  userMsg.Action,
		Code:    userMsg.Code,
	})
}

// importStatus maps an import error to its HTTP status.
func importStatus(err error) int {
	var (
		fe       *core.FormatError
		tooLarge *http.MaxBytesError
	)
	switch {
	case errors.Is(err, core.ErrFileTooLarge), errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrNoFile), errors.As(err, &fe):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrTooManyImports):
		return http.StatusServiceUnavailable
	default: // BatchFatalError and anything unexpected
		return http.StatusInternalServerError
	}
}
