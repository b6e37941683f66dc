// Package observability provides structured logging and Prometheus metrics
// for the billing client.
//
// # Logging
//
// Structured JSON logging via stdlib slog:
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("tier", tierID).Info("subscription updated")
//	logger.WithError(err).Warn("usage report dropped")
//
// # Metrics
//
// All metrics are registered against a caller-supplied registry so embedding
// applications keep control of their metrics endpoint:
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//
// Lifecycle operation counters are labeled by operation and outcome;
// backend request metrics are labeled by method, path and status class.
// All recorder methods are nil-safe so metrics stay optional.
package observability
