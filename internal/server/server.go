// Package server exposes lookups over HTTP.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/servicearea/internal/lookup"
	"github.com/sells-group/servicearea/internal/resilience"
)

// Banner is the liveness text served at /.
const Banner = "Service area lookup API is running."

// Config configures the HTTP handler.
type Config struct {
	APITokens   []string
	CORSOrigins []string

	// Breakers, when set, are reported by /health.
	Breakers *resilience.ServiceBreakers
}

// Server routes HTTP requests to a lookup service.
type Server struct {
	svc      *lookup.Service
	breakers *resilience.ServiceBreakers
	tokens   [][]byte
	router chi.Router
}

// New builds the router for svc.
func New(svc *lookup.Service, cfg Config) *Server {
	s := &Server{svc: svc, breakers: cfg.Breakers}
	for _, t := range cfg.APITokens {
		if t != "" {
			s.tokens = append(s.tokens, []byte(t))
		}
	}

	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-API-Key"},
		MaxAge:         300,
	}))

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(s.requireToken)
		r.Get("/check", s.handleCheck)
		r.Post("/match", s.handleMatch)
		r.Get("/streets", s.handleStreets)
	})

	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// HTTPServer wraps h with the configured timeouts.
func HTTPServer(addr string, h http.Handler, readTimeout, writeTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readTimeout,
		WriteTimeout:      writeTimeout,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("server: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
