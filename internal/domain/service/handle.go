package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/GriffinCanCode/aikernel/internal/types"
)

// Backend is the contract every service implementation satisfies.
// Invoke must honour ctx cancellation.
type Backend interface {
	Invoke(ctx context.Context, req types.Request) (*types.Response, error)
}

// BackendFunc adapts a plain function to Backend
type BackendFunc func(ctx context.Context, req types.Request) (*types.Response, error)

// Invoke calls f(ctx, req)
func (f BackendFunc) Invoke(ctx context.Context, req types.Request) (*types.Response, error) {
	return f(ctx, req)
}

// CapabilityReporter is implemented by backends that declare what they support.
// NewHandle uses it to reject mismatched registrations up front.
type CapabilityReporter interface {
	Capabilities() []types.Capability
}

// DefaultsReporter is implemented by backends that merge request settings
// over configured defaults. Decorators use it to see the effective settings.
type DefaultsReporter interface {
	Defaults() types.Settings
}

// TextCompleter is the narrow interface for text and chat completion backends
type TextCompleter interface {
	CompleteText(ctx context.Context, prompt string, settings types.Settings) (string, error)
}

// Embedder is the narrow interface for embedding backends
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// CompletionBackend adapts a TextCompleter to Backend
func CompletionBackend(tc TextCompleter) Backend {
	return BackendFunc(func(ctx context.Context, req types.Request) (*types.Response, error) {
		text, err := tc.CompleteText(ctx, req.Prompt, req.Settings)
		if err != nil {
			return nil, err
		}
		return &types.Response{Text: text}, nil
	})
}

// EmbeddingBackend adapts an Embedder to Backend
func EmbeddingBackend(e Embedder) Backend {
	return BackendFunc(func(ctx context.Context, req types.Request) (*types.Response, error) {
		vec, err := e.Embed(ctx, req.Prompt)
		if err != nil {
			return nil, err
		}
		return &types.Response{Embedding: vec}, nil
	})
}

// Handle binds one backend to a capability under a stable name.
// Handles are immutable; replace them by registering a new one.
type Handle struct {
	name       string
	capability types.Capability
	backend    Backend
}

// NewHandle validates and builds a handle
func NewHandle(capability types.Capability, name string, backend Backend) (*Handle, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name cannot be empty", ErrInvalidHandle)
	}
	if !capability.Valid() {
		return nil, fmt.Errorf("%w: unknown capability %q", ErrInvalidHandle, capability)
	}
	if backend == nil {
		return nil, fmt.Errorf("%w: backend for %q is nil", ErrInvalidHandle, name)
	}
	if reporter, ok := backend.(CapabilityReporter); ok && !supports(reporter, capability) {
		return nil, fmt.Errorf("%w: backend %q does not support %s", ErrInvalidHandle, name, capability)
	}

	return &Handle{
		name:       name,
		capability: capability,
		backend:    backend,
	}, nil
}

// MustHandle is NewHandle that panics on error, for static wiring
func MustHandle(capability types.Capability, name string, backend Backend) *Handle {
	h, err := NewHandle(capability, name, backend)
	if err != nil {
		panic(err)
	}
	return h
}

// Name returns the handle name
func (h *Handle) Name() string { return h.name }

// Capability returns the declared capability
func (h *Handle) Capability() types.Capability { return h.capability }

// Backend returns the wrapped implementation
func (h *Handle) Backend() Backend { return h.backend }

func supports(r CapabilityReporter, capability types.Capability) bool {
	for _, c := range r.Capabilities() {
		if c == capability {
			return true
		}
	}
	return false
}

// errNilResponse is reported when a backend returns neither a response nor an error
var errNilResponse = errors.New("backend returned nil response")
