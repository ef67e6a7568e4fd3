/*
Package monitoring provides metrics collection for the broker.

# Overview

This package implements Prometheus-based metrics for channel traffic,
authorization decisions, worker lifecycle and the HTTP front-end. Every
Metrics value owns a private registry so that several brokers (or tests)
can coexist in one process.

# Usage

	metrics := monitoring.NewMetrics()

	// Add middleware to Gin router and expose the registry
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	// Record domain metrics
	metrics.RecordMessage("queue", monitoring.OpSend, monitoring.OutcomeOK)
	metrics.RecordDenial("sender")

All recording methods are no-ops on a nil *Metrics, so components can be
constructed without metrics in tests.
*/
package monitoring
