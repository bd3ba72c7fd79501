package web

// handlers_admin.go serves the /admin/pretrip boundary used by remote
// ingestion clients: the required-column source, header validation, the
// name check, and payload submission.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/pretrip/internal/blueprint"
	"github.com/JonMunkholm/pretrip/internal/logging"
	"github.com/JonMunkholm/pretrip/internal/store"
)

// SubmitResponse is the body of a payload submission.
type SubmitResponse struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	Exists   bool   `json:"exists"`
	Items    int    `json:"items,omitempty"`
	Replaced bool   `json:"replaced,omitempty"`
}

// handleHealth reports whether the store is reachable.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		slog.Error("health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRequiredColumns(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"columns": s.schema.Required})
}

// handleValidateHeaders checks a client's header row against the required set.
// Both valid and invalid headers answer 200; the body carries the verdict.
func (s *Server) handleValidateHeaders(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Columns []string `json:"columns"`
	}
	if err := decodeJSON(w, r, &req, maxJSONBody); err != nil {
		s.respondError(w, r, err)
		return
	}

	check := blueprint.ValidateColumns(blueprint.NormalizeHeaders(req.Columns), s.schema.Required)
	if !check.Valid {
		logging.FromContext(r.Context()).Info("header validation failed", "missing", check.Missing)
	}
	writeJSON(w, http.StatusOK, check)
}

func (s *Server) handleCheckBlueprintName(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		s.respondError(w, r, &blueprint.ValidationError{Field: "name", Message: "blueprint name is required"})
		return
	}

	exists, err := s.store.Exists(r.Context(), name)
	if err != nil {
		s.respondError(w, r, fmt.Errorf("check blueprint name: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"exists": exists})
}

// handleBlueprintPayloadUpload stores a payload built by a remote client.
func (s *Server) handleBlueprintPayloadUpload(w http.ResponseWriter, r *http.Request) {
	var p blueprint.Payload
	if err := decodeJSON(w, r, &p, s.cfg.Upload.MaxFileSize); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.writeSubmit(w, r, &p)
}

// writeSubmit runs a submission and writes the status envelope.
func (s *Server) writeSubmit(w http.ResponseWriter, r *http.Request, p *blueprint.Payload) {
	res, err := s.submit(r.Context(), p)
	switch {
	case err == nil:
		msg := fmt.Sprintf("Blueprint %q saved with %d items.", p.Name, res.Items)
		if res.Replaced {
			msg = fmt.Sprintf("Blueprint %q replaced with %d items.", p.Name, res.Items)
		}
		writeJSON(w, http.StatusOK, SubmitResponse{
			Status:   "success",
			Message:  msg,
			Exists:   res.Replaced,
			Items:    res.Items,
			Replaced: res.Replaced,
		})
	case errors.Is(err, store.ErrNameExists):
		writeJSON(w, http.StatusConflict, SubmitResponse{
			Status:  "error",
			Message: blueprint.FormatUserError(err),
			Exists:  true,
		})
	default:
		s.respondError(w, r, err)
	}
}

// submit saves p under the concurrency limiter with the submit timeout.
func (s *Server) submit(ctx context.Context, p *blueprint.Payload) (store.SaveResult, error) {
	if err := p.Validate(); err != nil {
		return store.SaveResult{}, err
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return store.SaveResult{}, err
	}
	defer s.limiter.Release()

	if s.cfg.Upload.SubmitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Upload.SubmitTimeout)
		defer cancel()
	}

	res, err := s.store.Save(ctx, p)
	if err != nil {
		if errors.Is(err, store.ErrNameExists) {
			return store.SaveResult{}, err
		}
		return store.SaveResult{}, fmt.Errorf("save blueprint %q: %w", p.Name, err)
	}

	logging.FromContext(ctx).Info("blueprint saved",
		"name", p.Name,
		"template_id", res.TemplateID,
		"items", res.Items,
		"replaced", res.Replaced,
	)
	return res, nil
}

func (s *Server) handleListBlueprints(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.List(r.Context())
	if err != nil {
		s.respondError(w, r, fmt.Errorf("list blueprints: %w", err))
		return
	}
	if list == nil {
		list = []store.Summary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"blueprints": list})
}

func (s *Server) handleGetBlueprint(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(chi.URLParam(r, "name"))
	tmpl, err := s.store.Get(r.Context(), name)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tmpl)
}

// handleStatus returns limiter and session counts for monitoring.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"submissions": s.limiter.Status(),
		"sessions":    s.sessions.Len(),
	})
}
