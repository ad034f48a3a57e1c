package devserver

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/qaplatform/qaglue/pkg/middleware"
)

// Defaults for the vote rate limit.
const (
	DefaultVoteRate  = 5.0
	DefaultVoteBurst = 10
)

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithCatalog replaces the sample question catalog.
func WithCatalog(c *Catalog) Option {
	return func(s *Server) { s.catalog = c }
}

// WithCSRFToken sets the token POST /vote requires in X-CSRFToken.
func WithCSRFToken(token string) Option {
	return func(s *Server) { s.csrfToken = token }
}

// WithRateLimit sets the per-client vote rate and burst.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(s *Server) {
		s.voteRate = perSecond
		s.voteBurst = burst
	}
}

// WithRegistry sets the Prometheus registry served on /metrics.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) { s.registry = reg }
}

// WithClock sets the clock the rate limiter reads.
func WithClock(c clockwork.Clock) Option {
	return func(s *Server) { s.clock = c }
}

// Server is the development backend.
type Server struct {
	store     Store
	catalog   *Catalog
	hub       *Hub
	limiter   *voteLimiter
	metrics   *Metrics
	registry  *prometheus.Registry
	logger    *slog.Logger
	clock     clockwork.Clock
	csrfToken string
	voteRate  float64
	voteBurst int
	handler   http.Handler
}

// New creates a Server over store.
func New(store Store, opts ...Option) *Server {
	s := &Server{
		store:     store,
		catalog:   DefaultCatalog(),
		logger:    slog.Default(),
		clock:     clockwork.NewRealClock(),
		voteRate:  DefaultVoteRate,
		voteBurst: DefaultVoteBurst,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.registry == nil {
		s.registry = prometheus.NewRegistry()
		s.registry.MustRegister(collectors.NewGoCollector())
	}
	s.metrics = NewMetrics(s.registry)
	s.hub = NewHub(s.logger, s.metrics)
	s.limiter = newVoteLimiter(s.voteRate, s.voteBurst, s.clock.Now)
	s.handler = s.routes()
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(
		chimw.RequestID,
		chimw.Recoverer,
		middleware.OpenTelemetry(middleware.WithTracerName("qaglue/devserver")),
		middleware.Prometheus(middleware.WithRegistry(s.registry)),
		middleware.Logger(s.logger),
	)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Post("/vote", s.voteHandler)
	r.Get("/search", s.searchHandler)
	r.Route("/api", func(r chi.Router) {
		r.Get("/suggest_tags", s.suggestTagsHandler)
		r.Get("/stats", s.statsHandler)
	})
	r.Handle("/ws", s.hub)
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Hub returns the realtime hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Registry returns the metrics registry.
func (s *Server) Registry() *prometheus.Registry {
	return s.registry
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully. ready, if non-nil, receives the bound address.
func (s *Server) ListenAndServe(ctx context.Context, addr string, ready func(net.Addr)) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	if ready != nil {
		ready(ln.Addr())
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
