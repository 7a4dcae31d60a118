package web

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/JonMunkholm/userimport/internal/core"
)

// multipartMemory is how much of a multipart body is held in memory before
// the rest spills to disk.
const multipartMemory = 1 << 20

// multipartOverhead allows for boundaries and part headers on top of the file.
const multipartOverhead = 64 << 10

// handleImport imports the spreadsheet in multipart field "file".
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	maxSize := s.service.MaxFileSize()
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, r, core.ErrFileTooLarge, http.StatusRequestEntityTooLarge)
			return
		}
		if !errors.Is(err, http.ErrNotMultipart) {
			s.respondError(w, r, &core.FormatError{Err: err}, http.StatusBadRequest)
			return
		}
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, r, core.ErrNoFile, http.StatusBadRequest)
		return
	}
	defer file.Close()

	// A client disconnect must not abort a batch halfway through.
	ctx := context.WithoutCancel(WithRequestMetadata(r.Context(), r))

	report, err := s.service.Import(ctx, header.Filename, file)
	if err != nil {
		s.respondError(w, r, err, importStatus(err))
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// handleTemplate serves an empty CSV with the expected header row.
func (s *Server) handleTemplate(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="users_template.csv"`)
	if err := core.WriteTemplate(w); err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
	}
}

// handleImportHistory lists recent import audits.
func (s *Server) handleImportHistory(w http.ResponseWriter, r *http.Request) {
	limit := parseIntParam(r, "limit", core.DefaultImportHistoryLimit)

	audits, err := s.service.ListImports(r.Context(), limit)
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	if audits == nil {
		audits = []core.ImportAudit{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"imports": audits})
}

// handleImportStatus returns the current state of the import limiter.
// Used for monitoring and to check if the service can accept more imports.
func (s *Server) handleImportStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.Limiter().Status())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// parseIntParam parses a positive integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}
