// Package server assembles the HTTP server: logger, metrics, kernel,
// middleware stack and routes.
package server
