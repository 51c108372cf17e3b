// Package http exposes the service registry and dispatcher over a gin JSON API.
//
// Routes:
//   - GET  /health
//   - GET  /services
//   - GET  /services/:capability
//   - POST /services/:capability/run
//   - PUT  /services/:capability/default
//   - GET  /metrics
//
// Error mapping: unknown capability or bad body 400, unknown service 404,
// no default 409, backend failure 502, deadline 504, caller gone 499.
package http
