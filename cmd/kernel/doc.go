// Package main is the entry point for aikernel.
//
// By default it loads the service catalog, registers every backend and runs
// one text completion against the default (or -service) backend, printing
// the generated text. With -serve it runs the HTTP API instead.
//
// Configuration:
//   - Environment variables (see internal/infrastructure/config)
//   - CLI flags (override env vars)
//   - Built-in catalog: HuggingFace gpt2 as the default text-completion service
//
// Usage:
//
//	# One completion with the default service
//	HF_API_TOKEN=hf_xxx ./kernel -prompt "Hello"
//
//	# Pick a service from a catalog
//	./kernel -services services.yaml -service llama -prompt "Hello"
//
//	# HTTP API
//	./kernel -serve -port 8000
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
