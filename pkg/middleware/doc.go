// Package middleware provides net/http middleware for the state server.
//
// This package includes:
//   - OpenTelemetry tracing of every request
//   - Prometheus request metrics labelled by route pattern
//   - Panic recovery and structured request logging
//
// The middlewares compose with chi:
//
//	r := chi.NewRouter()
//	r.Use(
//	    middleware.Recover(logger),
//	    middleware.OpenTelemetry(middleware.WithTracerName("staticrouter")),
//	    middleware.Metrics(m),
//	    middleware.RequestLog(logger),
//	)
//
// Routes are labelled with the chi route pattern ("/*", "/metrics") rather
// than the raw path, keeping metric cardinality bounded.
package middleware
