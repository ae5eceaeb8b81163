package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"opscal/internal/calendar"
	"opscal/internal/config"
	appLog "opscal/internal/log"
	"opscal/internal/metrics"
	"opscal/internal/model"
)

// Store persists records created through the API.
type Store interface {
	SaveTask(ctx context.Context, t model.Task) error
	SaveCalendarEntry(ctx context.Context, e model.CalendarEntry) error
}

// Deps are the collaborators a Server needs. Metrics may be nil.
type Deps struct {
	View       *calendar.View
	Controller *calendar.Controller
	Store      Store
	Metrics    *metrics.Metrics
}

// Server exposes the calendar view, its interactions and record creation
// over HTTP.
type Server struct {
	cfg    *config.Config
	deps   Deps
	router chi.Router
	newID  func() string
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, deps Deps) *Server {
	s := &Server{
		cfg:    cfg,
		deps:   deps,
		router: chi.NewRouter(),
		newID:  func() string { return uuid.NewString() },
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on cfg.Listen until ctx is canceled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	appLog.Info("HTTP server stopped")
	return nil
}

func (s *Server) registerRoutes() {
	r := s.router
	if s.deps.Metrics != nil {
		r.Use(s.deps.Metrics.Middleware)
	}
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		r.Use(s.basicAuthMiddleware)
	}

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/calendar", s.handleCalendar)
		r.Post("/calendar/click", s.handleClick)
		r.Post("/calendar/create-choice", s.handleCreateChoice)
		r.Post("/calendar/select", s.handleSelect)
		r.Post("/tasks", s.handleCreateTask)
		r.Post("/meetings", s.handleCreateMeeting)
	})

	r.Get("/calendar.ics", s.handleICS)

	if s.deps.Metrics != nil {
		r.Handle("/metrics", s.deps.Metrics.Handler())
	}
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Empty credentials disable auth.
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="opscal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
