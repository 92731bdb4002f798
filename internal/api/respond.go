package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/dgallion1/bondgen/internal/bonderr"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// jsonError writes a request-level error. The code is derived from the
// HTTP status, e.g. BAD_REQUEST.
func jsonError(w http.ResponseWriter, msg string, status int) {
	code := strings.ToUpper(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	writeJSON(w, status, map[string]errorBody{"error": {Code: code, Message: msg}})
}

// writeError renders a pipeline error with its code and details.
func writeError(w http.ResponseWriter, err error) {
	be := bonderr.As(err)
	if be == nil {
		be = &bonderr.Error{Code: bonderr.InternalError, Message: err.Error()}
	}
	writeJSON(w, statusFor(be.Code), map[string]errorBody{"error": {
		Code:    string(be.Code),
		Message: be.Message,
		Details: be.Details,
	}})
}

// statusFor maps error codes to HTTP statuses. Input and template
// contract failures are the caller's to fix.
func statusFor(code bonderr.Code) int {
	switch code {
	case bonderr.ParsingError, bonderr.ValidationError, bonderr.ConversionError,
		bonderr.InvalidTemplate, bonderr.InvalidTag, bonderr.MissingRequiredTags,
		bonderr.DuplicateRequiredTags, bonderr.NoBonds:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// upload is one file read from a multipart form.
type upload struct {
	Name string
	Data []byte
}

var errNoFile = errors.New("no file")

// parseForm bounds the request body and parses a multipart form. The
// caller must RemoveAll the form.
func (s *Server) parseForm(w http.ResponseWriter, r *http.Request, files int) error {
	// Extra 1MB for form overhead.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes*int64(files)+1024*1024)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return fmt.Errorf("invalid multipart form: %w", err)
	}
	return nil
}

// readUpload reads the named file field. A missing field is errNoFile.
func (s *Server) readUpload(r *http.Request, field string) (upload, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return upload{}, errNoFile
	}
	if err != nil {
		return upload{}, fmt.Errorf("%s: %w", field, err)
	}
	defer file.Close()
	return s.readPart(file, header, field)
}

func (s *Server) readPart(file multipart.File, header *multipart.FileHeader, field string) (upload, error) {
	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		return upload{}, fmt.Errorf("read %s: %w", field, err)
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		return upload{}, fmt.Errorf("%s exceeds max size (%d bytes)", field, s.cfg.MaxUploadBytes)
	}
	return upload{Name: sanitizeFilename(header.Filename), Data: data}, nil
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	// Remove any path separators that might have survived.
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}

// attachment writes data as a file download.
func attachment(w http.ResponseWriter, name, contentType string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", fmt.Sprint(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
