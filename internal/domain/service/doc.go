// Package service provides the AI service registry and dispatcher.
//
// The registry maps a capability (text completion, chat completion,
// embedding) to named handles, each wrapping one backend implementation,
// and tracks a default handle per capability. The dispatcher resolves a
// capability plus optional name to a handle and invokes it, classifying
// failures so callers can tell "no such service" from "service ran and
// failed".
//
// Components:
//   - Backend: the uniform Invoke(ctx, request) contract
//   - Handle: a named, immutable binding of backend to capability
//   - Registry: capability -> name -> handle, with per-capability defaults
//   - Dispatcher: resolution, invocation and error normalization
//
// Errors:
//   - NotFoundError: explicit name not registered for the capability
//   - NoDefaultError: no name given and no default configured
//   - BackendError: the backend accepted the request and failed
//
// The dispatcher never retries, times out or batches. Cancellation is the
// caller's context, passed straight through to the backend.
//
// Example Usage:
//
//	registry := service.NewRegistry()
//	h, _ := service.NewHandle(types.CapabilityTextCompletion, "gpt2", backend)
//	registry.Register(h, service.AsDefault())
//
//	dispatcher := service.NewDispatcher(registry, logger)
//	resp, err := dispatcher.Run(ctx, types.CapabilityTextCompletion, types.Request{Prompt: "Hello"})
package service
