package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/opensource-finance/leadscore/internal/activity"
	"github.com/opensource-finance/leadscore/internal/contact"
	"github.com/opensource-finance/leadscore/internal/domain"
	"github.com/opensource-finance/leadscore/internal/pipeline"
	"github.com/opensource-finance/leadscore/internal/qualification"
)

// Deps are the components the API serves. Bus and Cache may be nil.
type Deps struct {
	Repo          domain.Repository
	Cache         domain.Cache
	Bus           domain.EventBus
	Processor     *pipeline.Processor
	Activities    *activity.Service
	Qualification *qualification.Engine
	Normalizer    *contact.Normalizer
	Version       string
}

// Server represents the HTTP API server.
type Server struct {
	router  *chi.Mux
	handler *Handler
	server  *http.Server
	config  domain.ServerConfig
}

// NewServer creates a new API server.
func NewServer(cfg domain.ServerConfig, deps Deps) *Server {
	handler := NewHandler(deps)
	router := chi.NewRouter()

	// Global middleware stack
	router.Use(CORSMiddleware)         // CORS for browser clients
	router.Use(RecoverMiddleware)      // Recover from panics
	router.Use(TracingMiddleware)      // OpenTelemetry tracing
	router.Use(LoggingMiddleware)      // Request logging
	router.Use(middleware.RealIP)      // Extract real IP
	router.Use(middleware.Compress(5)) // Gzip compression

	// Health endpoints (no tenant required)
	router.Get("/health", handler.Health)
	router.Get("/ready", handler.Ready)

	// API routes (tenant required)
	router.Group(func(r chi.Router) {
		r.Use(TenantMiddleware)

		// Ad-hoc scoring
		r.Post("/score", handler.Score)

		// Leads
		r.Post("/leads", handler.CreateLead)
		r.Get("/leads", handler.ListLeads)
		r.Route("/leads/{id}", func(r chi.Router) {
			r.Get("/", handler.GetLead)
			r.Delete("/", handler.DeleteLead)
			r.Get("/score", handler.GetLeadScore)
			r.Post("/activities", handler.RecordActivity)
			r.Get("/activities", handler.ListActivities)
			r.Put("/qualification", handler.SaveQualification)
			r.Get("/qualification", handler.GetQualification)
		})

		// Tenant-wide recalculation
		r.Get("/scores", handler.ListScores)

		// Qualification questionnaire
		r.Get("/qualification/questions", handler.ListQuestions)

		// Rule management
		r.Get("/rules", handler.ListRules)
		r.Get("/rules/{id}", handler.GetRule)
		r.Post("/rules", handler.CreateRule)
		r.Delete("/rules/{id}", handler.DeleteRule)
		r.Post("/rules/reload", handler.ReloadRules)
	})

	return &Server{
		router:  router,
		handler: handler,
		config:  cfg,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.config.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.WriteTimeout) * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the Chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Handler returns the handler for testing.
func (s *Server) Handler() *Handler {
	return s.handler
}
