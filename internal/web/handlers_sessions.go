package web

// handlers_sessions.go serves the /api/sessions editing API. Every
// handler is a thin dispatcher over one blueprint.Session operation; the
// session mutex serializes edits from concurrent requests.

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/pretrip/internal/blueprint"
	"github.com/JonMunkholm/pretrip/internal/logging"
	"github.com/JonMunkholm/pretrip/internal/web/templates"
)

// multipartOverhead is extra room for form boundaries around the file part.
const multipartOverhead = 64 << 10

// SessionResponse is the JSON view of an editing session.
type SessionResponse struct {
	ID        string                `json:"id"`
	FileName  string                `json:"file_name"`
	Headers   []string              `json:"headers"`
	View      blueprint.SessionView `json:"view"`
	Report    blueprint.GroupReport `json:"report"`
	EmptyRows []int                 `json:"empty_rows,omitempty"`
	ExpiresAt time.Time             `json:"expires_at"`
}

type renameRequest struct {
	Old string `json:"old"`
	New string `json:"new"`
}

type editRequest struct {
	blueprint.ItemRef
	Field string `json:"field"`
	Value string `json:"value"`
}

type submitRequest struct {
	Name     string `json:"name"`
	Override bool   `json:"override"`
}

// handleCreateSession ingests an uploaded CSV into a new editing session.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	maxSize := s.cfg.Upload.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			s.respondError(w, r, blueprint.ErrFileTooLarge)
			return
		}
		s.respondError(w, r, badRequest("invalid multipart form: "+err.Error()))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, r, ErrNoFile)
		return
	}
	defer file.Close()

	if err := blueprint.CheckExtension(header.Filename); err != nil {
		s.respondError(w, r, err)
		return
	}

	text, err := blueprint.Decode(file, maxSize)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	parsed, err := blueprint.Parse(text)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	check := blueprint.ValidateColumns(parsed.Headers, s.schema.Required)
	if !check.Valid {
		s.respondErrorDetails(w, r, check.Err(), check)
		return
	}

	res := blueprint.Assemble(parsed, s.schema)
	sess, err := s.sessions.Create(res, header.Filename)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info("session created",
		"session", sess.id,
		"file", header.Filename,
		"items", res.Report.Grouped,
		"skipped", len(res.Report.Skipped),
	)

	sess.mu.Lock()
	resp := s.sessionResponse(sess)
	sess.mu.Unlock()

	if isHTMX(r) {
		s.renderSession(w, r, http.StatusCreated, resp)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.loadSession(w, r)
	if !ok {
		return
	}

	sess.mu.Lock()
	resp := s.sessionResponse(sess)
	sess.mu.Unlock()

	if isHTMX(r) {
		s.renderSession(w, r, http.StatusOK, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	if !s.sessions.Delete(id) {
		s.respondError(w, r, ErrSessionNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRename(w http.ResponseWriter, r *http.Request) {
	var req renameRequest
	s.mutate(w, r, &req, func(m *blueprint.Session) (any, error) {
		return nil, m.RenamePrimary(req.Old, req.New)
	})
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	var ref blueprint.ItemRef
	s.mutate(w, r, &ref, func(m *blueprint.Session) (any, error) {
		return nil, m.DeleteItem(ref)
	})
}

func (s *Server) handleDuplicateItem(w http.ResponseWriter, r *http.Request) {
	var ref blueprint.ItemRef
	s.mutate(w, r, &ref, func(m *blueprint.Session) (any, error) {
		dup, err := m.DuplicateItem(ref)
		if err != nil {
			return nil, err
		}
		return dup, nil
	})
}

func (s *Server) handleEditField(w http.ResponseWriter, r *http.Request) {
	var req editRequest
	s.mutate(w, r, &req, func(m *blueprint.Session) (any, error) {
		return nil, m.EditField(req.ItemRef, req.Field, req.Value)
	})
}

// handlePreviewPayload builds the payload without submitting it.
func (s *Server) handlePreviewPayload(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.loadSession(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	name := q.Get("name")
	if name == "" {
		name = sess.fileName
	}

	sess.mu.Lock()
	p, err := blueprint.BuildPayload(sess.model, name, q.Get("override") == "true")
	sess.mu.Unlock()
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handleSubmitSession builds the payload from the session and stores it.
// A second submit while one is in flight is rejected with 409.
func (s *Server) handleSubmitSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.loadSession(w, r)
	if !ok {
		return
	}

	var req submitRequest
	if err := decodeJSON(w, r, &req, maxJSONBody); err != nil {
		s.respondError(w, r, err)
		return
	}

	log := logging.WithFields(r.Context(), "session_id", sess.id, "blueprint", req.Name)

	if err := sess.gate.Enter(); err != nil {
		log.Warn("session submit rejected", "error", err)
		s.respondError(w, r, err)
		return
	}
	defer sess.gate.Leave()

	sess.mu.Lock()
	p, err := blueprint.BuildPayload(sess.model, req.Name, req.Override)
	sess.mu.Unlock()
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	log.Info("session submit started", "items", len(p.Rows), "override", p.Override)

	s.writeSubmit(w, r, p)
}

// mutate decodes req, applies fn under the session lock, and answers with
// the updated session. A non-nil result from fn is returned as "result".
func (s *Server) mutate(w http.ResponseWriter, r *http.Request, req any, fn func(*blueprint.Session) (any, error)) {
	sess, ok := s.loadSession(w, r)
	if !ok {
		return
	}
	if err := decodeJSON(w, r, req, maxJSONBody); err != nil {
		s.respondError(w, r, err)
		return
	}

	sess.mu.Lock()
	result, err := fn(sess.model)
	resp := s.sessionResponse(sess)
	sess.mu.Unlock()

	if err != nil {
		s.respondError(w, r, fmt.Errorf("session %s: %w", sess.id, err))
		return
	}

	if isHTMX(r) {
		s.renderSession(w, r, http.StatusOK, resp)
		return
	}
	if result != nil {
		writeJSON(w, http.StatusOK, map[string]any{"session": resp, "result": result})
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) loadSession(w http.ResponseWriter, r *http.Request) (*editSession, bool) {
	sess, err := s.sessions.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		s.respondError(w, r, err)
		return nil, false
	}
	return sess, true
}

// sessionResponse snapshots sess. The caller holds sess.mu.
func (s *Server) sessionResponse(sess *editSession) SessionResponse {
	return SessionResponse{
		ID:        sess.id,
		FileName:  sess.fileName,
		Headers:   append([]string(nil), sess.headers...),
		View:      sess.model.Snapshot(),
		Report:    sess.report,
		EmptyRows: sess.emptyRows,
		ExpiresAt: s.sessions.ExpiresAt(sess.id),
	}
}

func (s *Server) renderSession(w http.ResponseWriter, r *http.Request, status int, resp SessionResponse) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := templates.SessionSummary(resp.ID, resp.View, resp.Report).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render session", "error", err)
	}
}
