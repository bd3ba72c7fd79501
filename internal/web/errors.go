package web

// errors.go renders failures consistently across the web layer.
//
// Every error is logged with its technical detail and request id, mapped to
// a blueprint.UserMessage, and written as an HTMX fragment, JSON, or plain
// text depending on the client. statusFor picks the HTTP status from the
// error's type so handlers just pass the error through.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/pretrip/internal/blueprint"
	"github.com/JonMunkholm/pretrip/internal/store"
	"github.com/JonMunkholm/pretrip/internal/web/templates"
)

// ErrNoFile is returned when a multipart upload has no file part.
var ErrNoFile = errors.New("no file provided")

// errBadRequest marks malformed request bodies.
type errBadRequest struct{ msg string }

func (e *errBadRequest) Error() string { return e.msg }

func badRequest(msg string) error { return &errBadRequest{msg: msg} }

// ErrorResponse is the JSON body for API errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

// statusFor maps an error to its HTTP status.
func statusFor(err error) int {
	var (
		missing   *blueprint.MissingColumnsError
		invalid   *blueprint.ValidationError
		collision *blueprint.CollisionError
		bad       *errBadRequest
		tooBig    *http.MaxBytesError
	)
	switch {
	case errors.As(err, &missing):
		return http.StatusUnprocessableEntity
	case errors.As(err, &invalid), errors.As(err, &bad):
		return http.StatusBadRequest
	case errors.As(err, &collision),
		errors.Is(err, store.ErrNameExists),
		errors.Is(err, blueprint.ErrSubmitInFlight):
		return http.StatusConflict
	case errors.Is(err, ErrSessionNotFound),
		errors.Is(err, store.ErrNotFound),
		errors.Is(err, blueprint.ErrGroupNotFound),
		errors.Is(err, blueprint.ErrItemNotFound):
		return http.StatusNotFound
	case errors.Is(err, blueprint.ErrFixedField),
		errors.Is(err, blueprint.ErrGroupingField),
		errors.Is(err, blueprint.ErrUnknownField),
		errors.Is(err, blueprint.ErrEmptyFile),
		errors.Is(err, ErrNoFile):
		return http.StatusBadRequest
	case errors.Is(err, blueprint.ErrFileTooLarge), errors.As(err, &tooBig):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, blueprint.ErrNotCSV):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, blueprint.ErrTooManySubmissions), errors.Is(err, ErrTooManySessions):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs err and writes a user-facing response.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	s.respondErrorDetails(w, r, err, nil)
}

// respondErrorDetails is respondError with a structured details field for JSON clients.
func (s *Server) respondErrorDetails(w http.ResponseWriter, r *http.Request, err error, details any) {
	status := statusFor(err)
	userMsg := blueprint.MapError(err)

	level := slog.LevelWarn
	if status >= 500 {
		level = slog.LevelError
	}
	slog.Log(r.Context(), level, "request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", userMsg.Code,
		"request_id", middleware.GetReqID(r.Context()),
	)

	switch {
	case isHTMX(r):
		renderErrorPartial(w, r, userMsg, status)
	case wantsJSON(r):
		resp := ErrorResponse{
			Error:   userMsg.Message,
			Message: userMsg.Message,
			Action:  userMsg.Action,
			Code:    userMsg.Code,
			Details: details,
		}
		// Client-caused errors carry their own text; server errors stay generic.
		if status < 500 {
			resp.Error = err.Error()
		}
		writeJSON(w, status, resp)
	default:
		http.Error(w, userMsg.Message+" ("+userMsg.Code+")", status)
	}
}

// renderErrorPartial writes an HTMX error fragment.
func renderErrorPartial(w http.ResponseWriter, r *http.Request, msg blueprint.UserMessage, status int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := templates.ErrorAlert(msg.Message, msg.Action, msg.Code).Render(r.Context(), w); err != nil {
		slog.Error("render error partial", "error", err)
	}
}

// isHTMX checks if the request is an HTMX request.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// wantsJSON checks if the client prefers a JSON response.
func wantsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		return true
	}
	// API and admin routes default to JSON
	return strings.HasPrefix(r.URL.Path, "/api/") || strings.HasPrefix(r.URL.Path, "/admin/")
}

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}

// maxJSONBody bounds small control requests; payload uploads use the file limit.
const maxJSONBody = 1 << 20

// decodeJSON reads a JSON body of at most limit bytes, rejecting unknown
// fields and trailing data.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any, limit int64) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return blueprint.ErrFileTooLarge
		}
		return badRequest("invalid JSON body: " + err.Error())
	}
	if dec.More() {
		return badRequest("invalid JSON body: unexpected trailing data")
	}
	return nil
}
