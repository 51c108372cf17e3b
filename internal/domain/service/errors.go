package service

import (
	"errors"
	"fmt"

	"github.com/GriffinCanCode/aikernel/internal/types"
)

// Sentinel errors for errors.Is checks at API boundaries.
var (
	ErrNotFound      = errors.New("service not found")
	ErrNoDefault     = errors.New("no default service")
	ErrBackend       = errors.New("backend failed")
	ErrInvalidHandle = errors.New("invalid service handle")
)

// NotFoundError reports an explicit name that is not registered for a capability
type NotFoundError struct {
	Capability types.Capability
	Name       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("service not found: %q (capability %s)", e.Name, e.Capability)
}

// Is matches ErrNotFound
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NoDefaultError reports a resolution without a name when no default is set
type NoDefaultError struct {
	Capability types.Capability
}

func (e *NoDefaultError) Error() string {
	return fmt.Sprintf("no default service for capability %s", e.Capability)
}

// Is matches ErrNoDefault
func (e *NoDefaultError) Is(target error) bool {
	return target == ErrNoDefault
}

// BackendError wraps a failure raised by a backend after it accepted a request
type BackendError struct {
	Capability types.Capability
	Name       string
	Err        error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend %q (%s) failed: %v", e.Name, e.Capability, e.Err)
}

// Unwrap returns the underlying cause
func (e *BackendError) Unwrap() error {
	return e.Err
}

// Is matches ErrBackend
func (e *BackendError) Is(target error) bool {
	return target == ErrBackend
}

// IsResolution reports whether err came from resolving a handle rather than running one
func IsResolution(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrNoDefault)
}
