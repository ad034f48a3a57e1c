// Package middleware provides net/http middleware for the qaglue
// development backend.
//
// This package includes:
//   - OpenTelemetry tracing of each request
//   - Prometheus request metrics keyed by chi route pattern
//   - Structured request logging with log/slog
//
// All three have the standard func(http.Handler) http.Handler shape and
// plug into chi:
//
//	r := chi.NewRouter()
//	r.Use(
//	    middleware.OpenTelemetry(),
//	    middleware.Prometheus(middleware.WithRegistry(reg)),
//	    middleware.Logger(logger),
//	)
//
// Expose the metrics with promhttp:
//
//	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
package middleware
