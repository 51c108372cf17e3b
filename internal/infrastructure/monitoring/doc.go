/*
Package monitoring provides Prometheus metrics for the kernel.

# Overview

Metrics are registered on an explicit registerer so several kernels (and
tests) can coexist in one process without colliding on the global registry.

# Metrics

- HTTP request count and latency by route template
- Dispatch calls, errors and backend latency by capability and service
- Registered services per capability
- Backend response cache hits and misses
- Process uptime

# Usage

	metrics := monitoring.NewMetrics()
	defer metrics.Close()

	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	dispatcher := service.NewDispatcher(registry, logger).WithMetrics(metrics)
*/
package monitoring
