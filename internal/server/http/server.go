// Package httpserver provides the HTTP REST API of the research assistant service.
package httpserver

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/helixir/research-assistant-service/internal/auth"
	"github.com/helixir/research-assistant-service/internal/domain"
	"github.com/helixir/research-assistant-service/internal/features"
	"github.com/helixir/research-assistant-service/internal/observability"
	"github.com/helixir/research-assistant-service/internal/repository"
	"github.com/helixir/research-assistant-service/internal/storage"
	"github.com/helixir/research-assistant-service/internal/temporal"
)

// AuthService registers users, issues tokens and resolves bearer tokens.
type AuthService interface {
	Register(ctx context.Context, in auth.RegisterInput) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*auth.LoginResult, error)
	Authenticate(ctx context.Context, token string) (*domain.User, error)
}

// FeatureService is the set of research assistant operations exposed over HTTP.
type FeatureService interface {
	GenerateSurvey(ctx context.Context, userID uuid.UUID, req features.SurveyRequest) (*features.SurveyResponse, error)
	FindGaps(ctx context.Context, req features.GapRequest) (*features.GapResponse, error)
	Translate(ctx context.Context, userID uuid.UUID, req features.TranslateRequest) (*features.TranslateResponse, error)
	PersonaSummary(ctx context.Context, userID uuid.UUID, req features.PersonaSummaryRequest) (*features.PersonaSummaryResponse, error)
	BuildMethodology(ctx context.Context, req features.MethodologyRequest) (*features.MethodologyResponse, error)
	ReplicateExperiment(ctx context.Context, req features.ReplicatorRequest) (*features.ReplicatorResponse, error)
	SynthesizeCrossDomain(ctx context.Context, req features.CrossDomainRequest) (*features.CrossDomainResponse, error)
	RecommendBenchmarks(ctx context.Context, req features.BenchmarkRequest) (*features.BenchmarkResponse, error)
	AnalyzeContradictions(ctx context.Context, req features.ContradictionRequest) (*features.ContradictionResponse, error)
	ValidateCitations(ctx context.Context, req features.CitationValidateRequest) (*features.CitationValidateResponse, error)
	GenerateLatex(ctx context.Context, req features.LatexRequest) (*features.LatexResponse, error)
	Transcribe(ctx context.Context, filename, contentType string, r io.Reader) (*features.TranscriptResponse, error)
}

// JobStarter starts the workflow backing an asynchronous survey job.
type JobStarter interface {
	StartSurveyJob(ctx context.Context, jobID uuid.UUID, input temporal.SurveyJobInput) (string, error)
}

// Pinger checks a backing store for readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthChecker reports whether an upstream service is reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Deps holds the collaborators of the HTTP server.
type Deps struct {
	Auth      AuthService
	Features  FeatureService
	Projects  repository.ProjectRepository
	Documents repository.DocumentRepository
	Sources   repository.SourceRepository
	Jobs      repository.JobRepository
	Store     storage.Store
	// JobStarter is nil when Temporal is disabled; POST /survey/jobs then answers 404.
	JobStarter JobStarter
	// Scheduler, when set, is checked by /readyz alongside the database.
	Scheduler HealthChecker
	DB        Pinger
	// Redis is nil when the inbound rate limiter is disabled.
	Redis   *redis.Client
	Metrics *observability.Metrics
	Logger  zerolog.Logger
}

// Config holds HTTP server configuration.
type Config struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	// MaxUploadBytes caps multipart uploads.
	MaxUploadBytes int64
	// AllowedOrigins lists the browser origins allowed by CORS.
	AllowedOrigins []string
	// RateLimit is the number of unauthenticated requests allowed per IP and window.
	RateLimit  int
	RateWindow time.Duration
	// ExportsDir, when set, is served read-only under ExportsRoute.
	ExportsDir   string
	ExportsRoute string
}

const defaultMaxUploadBytes = 32 << 20

// Server is the HTTP REST API server.
type Server struct {
	cfg        Config
	deps       Deps
	router     chi.Router
	httpServer *http.Server
	logger     zerolog.Logger
}

// NewServer creates a new HTTP server with all dependencies.
func NewServer(cfg Config, deps Deps) *Server {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUploadBytes
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"http://localhost:3000"}
	}

	s := &Server{
		cfg:    cfg,
		deps:   deps,
		logger: deps.Logger.With().Str("component", "http-server").Logger(),
	}

	s.router = s.buildRouter()

	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// buildRouter creates the chi router with all middleware and routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestContextMiddleware)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Content-Disposition", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(s.metricsMiddleware)
	r.Use(s.identify)
	if s.deps.Redis != nil {
		r.Use(newRateLimiter(s.deps.Redis, s.cfg.RateLimit, s.cfg.RateWindow, s.deps.Metrics, s.logger).Handler)
	}

	// Health endpoints (no auth)
	r.Get("/healthz", s.healthHandler)
	r.Get("/readyz", s.readinessHandler)

	if s.cfg.ExportsDir != "" {
		route := strings.TrimRight(s.cfg.ExportsRoute, "/")
		if route == "" {
			route = "/exports"
		}
		r.Handle(route+"/*", http.StripPrefix(route+"/", http.FileServer(http.Dir(s.cfg.ExportsDir))))
	}

	r.Post("/auth/register", s.register)
	r.Post("/auth/login", s.login)

	r.Group(func(r chi.Router) {
		r.Use(requireUser)

		r.Get("/auth/me", s.me)

		r.Post("/projects", s.createProject)
		r.Get("/projects", s.listProjects)
		r.Get("/projects/{id}", s.getProject)
		r.Get("/projects/{id}/sources", s.listProjectSources)
		r.Post("/upload", s.uploadDocument)

		r.Post("/translate", s.translate)
		r.Post("/summary/persona", s.personaSummary)
		r.Post("/cross-domain/suggest", s.crossDomain)
		r.Post("/benchmark/recommend", s.recommendBenchmarks)
		r.Post("/contradiction/scan", s.scanContradictions)
		r.Post("/citation/validate", s.validateCitations)
		r.Post("/voice/transcribe", s.transcribe)
		r.Get("/jobs/{id}", s.getJob)

		r.Group(func(r chi.Router) {
			r.Use(requireResearcher)

			r.Post("/survey/generate", s.generateSurvey)
			r.Post("/survey/gaps", s.findGaps)
			r.Post("/survey/jobs", s.startSurveyJob)
			r.Post("/methodology/build", s.buildMethodology)
			r.Post("/methodology/replicate", s.replicateExperiment)
			r.Post("/latex/generate", s.generateLatex)
		})
	})

	return r
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info().Str("address", s.httpServer.Addr).Msg("HTTP server starting")
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on HTTP address: %w", err)
	}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// healthHandler returns liveness status.
func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readinessHandler reports whether the database and, when configured, the
// job scheduler answer.
func (s *Server) readinessHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	body := map[string]string{"status": "ready"}
	ready := true

	if s.deps.DB != nil {
		body["database"] = "healthy"
		if err := s.deps.DB.Ping(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("readiness check failed: database")
			body["database"] = "unhealthy"
			ready = false
		}
	}
	if s.deps.Scheduler != nil {
		body["scheduler"] = "healthy"
		if err := s.deps.Scheduler.Health(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("readiness check failed: scheduler")
			body["scheduler"] = "unhealthy"
			ready = false
		}
	}

	if !ready {
		body["status"] = "not_ready"
		writeJSON(w, http.StatusServiceUnavailable, body)
		return
	}
	writeJSON(w, http.StatusOK, body)
}
