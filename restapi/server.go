// Package restapi is the coordinator's public and internal HTTP surface,
// per spec.md §6.1–§6.3: four public session endpoints, one health
// endpoint, and an internal endpoint group used only by workers.
package restapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/archiveflow/coordinator/agentregistry"
	"github.com/archiveflow/coordinator/contextstore"
	"github.com/archiveflow/coordinator/telemetry"
	"github.com/archiveflow/coordinator/workflow"
)

// Version is reported on /health. Overridden at build time is unnecessary
// for this module: there is no release pipeline in scope, so a fixed
// string is sufficient.
const Version = "0.1.0"

// Deps bundles every collaborator a handler might need. Constructed once
// at startup and passed to NewServer, per the explicit-wiring-value design
// note — no package-global state.
type Deps struct {
	Engine     *workflow.Engine
	Store      *contextstore.Store
	Registry   *agentregistry.Registry
	Logger     telemetry.Logger
	OutputBase string
}

type server struct {
	deps Deps
}

// NewServer builds the full chi.Router: public API under /api/v1, internal
// API under /internal, and /health at the root.
func NewServer(deps Deps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = telemetry.NoopLogger{}
	}
	s := &server{deps: deps}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(deps.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH"},
		AllowedHeaders:   []string{"Content-Type"},
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1/sessions", func(r chi.Router) {
		r.Post("/initialize", s.handleInitialize)
		r.Get("/{id}/status", s.handleStatus)
		r.Post("/{id}/clarify", s.handleClarify)
		r.Get("/{id}/result", s.handleResult)
	})

	r.Get("/api/v1/files/{subdir}/{filename}", s.handleDownload)

	r.Route("/internal", func(r chi.Router) {
		r.Post("/register_agent", s.handleRegisterAgent)
		r.Get("/sessions/{id}/context", s.handleGetContext)
		r.Patch("/sessions/{id}/context", s.handlePatchContext)
		r.Post("/route_message", s.handleRouteMessage)
	})

	return r
}

// requestLogger adapts the telemetry.Logger facade into a chi middleware,
// grounded on the teacher's structured-logging idiom: one line per request
// with method, path, status, and duration as key/value pairs.
func requestLogger(logger telemetry.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info(r.Context(), "http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}
