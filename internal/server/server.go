package server

import (
	"net/http"
	"strconv"
	"strings"

	"forumhub/internal/app"
	"forumhub/internal/ratelimit"
	"forumhub/internal/util"
	"forumhub/pkg/domain"
	"forumhub/pkg/store"
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	App             *app.App
	RegisterLimiter *ratelimit.FixedWindowLimiter
	LoginLimiter    *ratelimit.FixedWindowLimiter
	TrustedProxies  *util.TrustedProxies
}

// Server exposes the forum HTTP API.
type Server struct {
	app             *app.App
	registerLimiter *ratelimit.FixedWindowLimiter
	loginLimiter    *ratelimit.FixedWindowLimiter
	trustedProxies  *util.TrustedProxies
	mux             *http.ServeMux
}

// New constructs the server with routes configured.
func New(cfg Config) *Server {
	s := &Server{
		app:             cfg.App,
		registerLimiter: cfg.RegisterLimiter,
		loginLimiter:    cfg.LoginLimiter,
		trustedProxies:  cfg.TrustedProxies,
		mux:             http.NewServeMux(),
	}
	s.routes()
	return s
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)

	// auth
	s.mux.HandleFunc("/auth/register", s.handleRegister)
	s.mux.HandleFunc("/auth/login", s.handleLogin)
	s.mux.HandleFunc("/auth/validate", s.handleValidate)
	s.mux.HandleFunc("/auth/logout", s.handleLogout)
	s.mux.Handle("/auth/me", s.authenticated(s.handleMe))

	// topics
	s.mux.HandleFunc("/topicos", s.handleTopics)
	s.mux.HandleFunc("/topicos/", s.handleTopicSubtree)

	// replies
	s.mux.HandleFunc("/respuestas/", s.handleReplySubtree)

	// courses
	s.mux.HandleFunc("/cursos", s.handleCourses)
	s.mux.HandleFunc("/cursos/", s.handleCourseSubtree)

	// statistics
	s.mux.HandleFunc("/estadisticas", s.handleStats)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// auth wrappers
type authHandler func(http.ResponseWriter, *http.Request, domain.User)

func (s *Server) authenticated(next authHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := s.authorize(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, codeAuthentication, "authentication required")
			return
		}
		next(w, r, user)
	})
}

func (s *Server) requireUser(w http.ResponseWriter, r *http.Request) (domain.User, bool) {
	user, ok := s.authorize(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, codeAuthentication, "authentication required")
		return domain.User{}, false
	}
	return user, true
}

func (s *Server) authorize(r *http.Request) (domain.User, bool) {
	token, ok := bearerToken(r)
	if !ok {
		return domain.User{}, false
	}
	return s.app.UserFromToken(token)
}

func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}
	return token, true
}

// allowRate applies a fixed-window limit keyed by client IP. A nil limiter
// means the limit is disabled.
func (s *Server) allowRate(w http.ResponseWriter, r *http.Request, limiter *ratelimit.FixedWindowLimiter) bool {
	if limiter == nil {
		return true
	}
	if limiter.Allow(util.ClientIP(r, s.trustedProxies)) {
		return true
	}
	w.Header().Set("Retry-After", "60")
	writeError(w, http.StatusTooManyRequests, codeRateLimited, "too many requests, slow down")
	return false
}

// pageResponse is the uniform paginated payload.
type pageResponse struct {
	Items      any   `json:"items"`
	Count      int   `json:"count"`
	Page       int   `json:"page"`
	Size       int   `json:"size"`
	TotalItems int64 `json:"totalItems"`
	TotalPages int64 `json:"totalPages"`
}

func pageFromRequest(r *http.Request) store.PageRequest {
	page := store.PageRequest{}
	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			page.Page = n
		}
	}
	if v := r.URL.Query().Get("size"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			page.Size = n
		}
	}
	return page.Normalize()
}

func writePage[T any](w http.ResponseWriter, items []T, total int64, page store.PageRequest) {
	page = page.Normalize()
	totalPages := int64(0)
	if total > 0 {
		totalPages = (total + int64(page.Size) - 1) / int64(page.Size)
	}
	writeJSON(w, http.StatusOK, pageResponse{
		Items:      items,
		Count:      len(items),
		Page:       page.Page,
		Size:       page.Size,
		TotalItems: total,
		TotalPages: totalPages,
	})
}
