// Package api hosts the operator HTTP surface. Notable routes:
//   - GET /healthz and /readyz for health checks; readyz fails until the dedup
//     index has been seeded from the sink.
//   - GET /metrics for Prometheus scraping.
//   - GET /v1/sources and /v1/sources/{name} for per-source schedule
//     snapshots and last-cycle counters.
package api
