// Package web provides the HTTP server for blueprint ingestion: the
// /admin/pretrip boundary endpoints and the /api/sessions editing API.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/pretrip/internal/blueprint"
	"github.com/JonMunkholm/pretrip/internal/config"
	"github.com/JonMunkholm/pretrip/internal/store"
	"github.com/JonMunkholm/pretrip/internal/web/middleware"
)

// Server is the HTTP server for the blueprint importer.
type Server struct {
	cfg      *config.Config
	store    store.Store
	schema   blueprint.Schema
	sessions *SessionRegistry
	limiter  *blueprint.SubmitLimiter
	router   *chi.Mux
	server   *http.Server

	stopOnce sync.Once
	stop     context.CancelFunc
	bgCtx    context.Context
}

// NewServer wires routes over st using cfg.
func NewServer(st store.Store, cfg *config.Config) *Server {
	bgCtx, stop := context.WithCancel(context.Background())
	s := &Server{
		cfg:      cfg,
		store:    st,
		schema:   blueprint.DefaultSchema().WithRequired(cfg.Schema.RequiredColumns),
		sessions: NewSessionRegistry(cfg.Session.TTL, cfg.Session.MaxSessions),
		limiter:  blueprint.NewSubmitLimiter(cfg.Upload.MaxConcurrent, cfg.Upload.MaxWaitTime),
		router:   chi.NewRouter(),
		bgCtx:    bgCtx,
		stop:     stop,
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	if s.cfg.Server.RequestTimeout > 0 {
		s.router.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))
	}
	s.router.Use(securityHeaders)

	if s.cfg.Rate.Enabled {
		limiter := newRateLimiter(s.cfg.Rate.RequestsPerMinute, time.Minute)
		go limiter.cleanup(s.bgCtx)
		s.router.Use(limiter.middleware)
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	auth := middleware.APIKeyAuth(s.cfg.Security)

	s.router.Route("/admin/pretrip", func(r chi.Router) {
		r.Use(auth)
		r.Get("/required-columns", s.handleRequiredColumns)
		r.Post("/validate-headers", s.handleValidateHeaders)
		r.Get("/check-blueprint-name", s.handleCheckBlueprintName)
		r.Post("/blueprint-payload-upload", s.handleBlueprintPayloadUpload)
		r.Get("/blueprints", s.handleListBlueprints)
		r.Get("/blueprints/{name}", s.handleGetBlueprint)
	})

	s.router.Route("/api", func(r chi.Router) {
		r.Use(auth)
		r.Get("/status", s.handleStatus)

		r.Post("/sessions", s.handleCreateSession)
		r.Route("/sessions/{sessionID}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Delete("/", s.handleDeleteSession)
			r.Post("/rename", s.handleRename)
			r.Post("/items/delete", s.handleDeleteItem)
			r.Post("/items/duplicate", s.handleDuplicateItem)
			r.Post("/items/edit", s.handleEditField)
			r.Get("/payload", s.handlePreviewPayload)
			r.Post("/submit", s.handleSubmitSession)
		})
	})
}

// Start begins background session sweeping and listens for HTTP requests.
func (s *Server) Start() error {
	go s.sessions.Run(s.bgCtx, s.cfg.Session.SweepInterval, func(removed int) {
		slog.Info("expired sessions evicted", "count", removed)
	})

	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("server starting", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown waits for in-flight submissions, then stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.stopOnce.Do(s.stop)

	if status := s.limiter.Status(); status.Active > 0 {
		slog.Info("waiting for submissions to complete", "active", status.Active)
		if err := s.limiter.WaitForDrain(ctx); err != nil {
			slog.Warn("submissions did not complete in time", "error", err)
		}
	}

	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler returns the router for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'self' 'unsafe-inline'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// rateLimiter is a fixed-window request counter per client IP.
type rateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     int
	window   time.Duration
	now      func() time.Time
}

type visitor struct {
	tokens    int
	lastReset time.Time
}

func newRateLimiter(rate int, window time.Duration) *rateLimiter {
	return &rateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate,
		window:   window,
		now:      time.Now,
	}
}

// cleanup drops idle visitors every window until ctx is done.
func (rl *rateLimiter) cleanup(ctx context.Context) {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.mu.Lock()
			for ip, v := range rl.visitors {
				if rl.now().Sub(v.lastReset) > rl.window*2 {
					delete(rl.visitors, ip)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// allow consumes a token for ip and reports whether the request may proceed.
func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	v, ok := rl.visitors[ip]
	if !ok || now.Sub(v.lastReset) > rl.window {
		rl.visitors[ip] = &visitor{tokens: rl.rate - 1, lastReset: now}
		return true
	}
	if v.tokens <= 0 {
		return false
	}
	v.tokens--
	return true
}

func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.allow(clientIP(r)) {
			w.Header().Set("Retry-After", "60")
			writeJSON(w, http.StatusTooManyRequests, ErrorResponse{
				Error:   "rate limit exceeded",
				Message: "Too many requests",
				Action:  "Please wait a minute and try again",
				Code:    "RATE001",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP strips the port from RemoteAddr, which TrustedRealIP has already resolved.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
