package http

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"spendlens/internal/analytics"
	"spendlens/internal/core"
	"spendlens/internal/log"
	"spendlens/internal/middleware/ratelimit"
	"spendlens/internal/middleware/security"
	"spendlens/internal/middleware/trace"
	"spendlens/internal/services"
)

// Analytics is the facade surface the API serves.
type Analytics interface {
	Dashboard(ctx context.Context) (services.Dashboard, error)
	AnalyticsView(ctx context.Context, year int, firstID, secondID string) (services.AnalyticsView, error)
	LoadAll(ctx context.Context) ([]core.StatementSummary, error)
	SelectForComparison(firstID, secondID string) (*analytics.ComparisonResult, bool)
	ListStatements(ctx context.Context) ([]services.StatementListItem, error)
	LoadStatementView(ctx context.Context, id string) (services.StatementView, error)
	UpdateCategory(ctx context.Context, transactionID, category string, learn bool) error
	Upload(ctx context.Context, filename string, file io.Reader, password string) (core.UploadResult, error)
}

// ReadinessCheck reports whether a dependency can serve traffic.
type ReadinessCheck func(ctx context.Context) error

type Server struct {
	http.Server
	svc       Analytics
	palette   Palette
	logger    *log.Logger
	limiter   *ratelimit.Limiter
	detector  *security.Detector
	tracer    *trace.Middleware
	checks    map[string]ReadinessCheck
	maxUpload int64
	startedAt time.Time

	rateLimitPerMinute int
	shutdownOnce       sync.Once
}

type Option func(*Server)

// WithPalette replaces the default category colors.
func WithPalette(p Palette) Option {
	return func(s *Server) {
		if len(p) > 0 {
			s.palette = p
		}
	}
}

// WithRateLimit caps mutating requests per client per minute.
func WithRateLimit(perMinute int) Option {
	return func(s *Server) { s.rateLimitPerMinute = perMinute }
}

func WithReadinessCheck(name string, check ReadinessCheck) Option {
	return func(s *Server) { s.checks[name] = check }
}

func WithMaxUploadBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUpload = n
		}
	}
}

func WithLogger(l *log.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(addr string, svc Analytics, opts ...Option) *Server {
	s := &Server{
		svc:                svc,
		palette:            DefaultPalette(),
		logger:             log.New(log.DefaultConfig()).WithComponent(log.ComponentHTTP),
		detector:           security.NewDetector(),
		checks:             make(map[string]ReadinessCheck),
		maxUpload:          10 << 20,
		startedAt:          time.Now(),
		rateLimitPerMinute: ratelimit.DefaultConfig().RequestsPerMinute,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.limiter = ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: s.rateLimitPerMinute})
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /api/categories", s.handleCategories)
	mux.HandleFunc("GET /api/dashboard", s.handleDashboard)
	mux.HandleFunc("GET /api/analytics", s.handleAnalytics)
	mux.HandleFunc("GET /api/analytics/compare", s.handleCompare)
	mux.HandleFunc("GET /api/analytics/export.xlsx", s.handleExport)
	mux.HandleFunc("GET /api/statements", s.handleListStatements)
	mux.HandleFunc("GET /api/statements/{id}", s.handleStatement)
	mux.HandleFunc("POST /api/statements/upload", s.handleUpload)
	mux.HandleFunc("PUT /api/transactions/{id}", s.handleUpdateCategory)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	limit := s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded").Write(w)
	}, http.MethodPost, http.MethodPut)

	var handler http.Handler = mux
	handler = limit(handler)
	handler = security.NoStore(handler)
	handler = headers.Middleware(handler)
	handler = s.tracer.Middleware(handler)
	handler = s.detector.Middleware(handler)
	handler = log.Middleware(s.logger)(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Shutdown stops background work and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
