package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/aikernel/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/aikernel/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/aikernel/internal/shared/id"
	"github.com/GriffinCanCode/aikernel/internal/types"
)

// Dispatch outcomes, also used as metric labels
const (
	OutcomeSuccess      = "success"
	OutcomeBackendError = "backend_error"
	OutcomeNotFound     = "not_found"
	OutcomeNoDefault    = "no_default"
)

// Dispatcher resolves handles from a registry and invokes them.
// It holds no per-call state and is safe for concurrent use.
type Dispatcher struct {
	registry *Registry
	logger   *zap.Logger
	metrics  *monitoring.Metrics
	tracer   *tracing.Tracer
}

// RunOption configures a single Run call
type RunOption func(*runOptions)

type runOptions struct {
	name      string
	requestID id.RequestID
}

// WithService selects an explicit service name instead of the default
func WithService(name string) RunOption {
	return func(o *runOptions) {
		o.name = name
	}
}

// WithRequestID reuses a caller-supplied request ID for logs and metrics
func WithRequestID(rid id.RequestID) RunOption {
	return func(o *runOptions) {
		o.requestID = rid
	}
}

// NewDispatcher creates a dispatcher over registry
func NewDispatcher(registry *Registry, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		registry: registry,
		logger:   logger,
	}
}

// WithMetrics attaches a metrics collector
func (d *Dispatcher) WithMetrics(metrics *monitoring.Metrics) *Dispatcher {
	d.metrics = metrics
	return d
}

// WithTracer attaches a tracer; each Run then records one span
func (d *Dispatcher) WithTracer(tracer *tracing.Tracer) *Dispatcher {
	d.tracer = tracer
	return d
}

// Registry returns the registry the dispatcher resolves against
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Run resolves a handle for capability and invokes it with req.
// Resolution errors are returned unchanged; backend failures come back as *BackendError.
func (d *Dispatcher) Run(ctx context.Context, capability types.Capability, req types.Request, opts ...RunOption) (*types.Response, error) {
	var o runOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.requestID == "" {
		o.requestID = id.NewRequestID()
	}

	log := d.logger.With(
		zap.String("request_id", o.requestID.String()),
		zap.String("capability", capability.String()),
	)

	var span *tracing.Span
	if d.tracer != nil {
		span, ctx = d.tracer.StartSpan(ctx, "dispatch "+capability.String())
		span.SetTag("request_id", o.requestID.String())
		defer func() {
			span.Finish()
			d.tracer.Submit(span)
		}()
	}

	handle, err := d.registry.Resolve(capability, o.name)
	if err != nil {
		outcome := OutcomeNotFound
		if _, ok := err.(*NoDefaultError); ok {
			outcome = OutcomeNoDefault
		}
		d.record(capability, o.name, outcome, 0)
		annotate(span, o.name, outcome, err)
		log.Warn("Service resolution failed", zap.String("service", o.name), zap.Error(err))
		return nil, err
	}

	log = log.With(zap.String("service", handle.Name()))
	log.Debug("Dispatching request", zap.Int("prompt_len", len(req.Prompt)))

	start := time.Now()
	resp, err := invoke(ctx, handle, req)
	elapsed := time.Since(start)

	if err != nil {
		d.record(capability, handle.Name(), OutcomeBackendError, elapsed)
		annotate(span, handle.Name(), OutcomeBackendError, err)
		log.Warn("Backend invocation failed", zap.Duration("duration", elapsed), zap.Error(err))
		return nil, &BackendError{
			Capability: capability,
			Name:       handle.Name(),
			Err:        err,
		}
	}

	d.record(capability, handle.Name(), OutcomeSuccess, elapsed)
	annotate(span, handle.Name(), OutcomeSuccess, nil)
	log.Debug("Request completed", zap.Duration("duration", elapsed))
	return resp, nil
}

// Complete runs a text completion and returns the generated text
func (d *Dispatcher) Complete(ctx context.Context, prompt string, settings types.Settings, opts ...RunOption) (string, error) {
	resp, err := d.Run(ctx, types.CapabilityTextCompletion, types.Request{
		Prompt:   prompt,
		Settings: settings,
	}, opts...)
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

// Embed runs an embedding request and returns the vector
func (d *Dispatcher) Embed(ctx context.Context, text string, opts ...RunOption) ([]float32, error) {
	resp, err := d.Run(ctx, types.CapabilityEmbedding, types.Request{Prompt: text}, opts...)
	if err != nil {
		return nil, err
	}
	return resp.Embedding, nil
}

// invoke calls the backend, turning panics and nil responses into errors
func invoke(ctx context.Context, h *Handle, req types.Request) (resp *types.Response, err error) {
	defer func() {
		if p := recover(); p != nil {
			resp = nil
			err = fmt.Errorf("panic: %v", p)
		}
	}()

	resp, err = h.backend.Invoke(ctx, req)
	if err == nil && resp == nil {
		err = errNilResponse
	}
	return resp, err
}

func (d *Dispatcher) record(capability types.Capability, name, outcome string, elapsed time.Duration) {
	if d.metrics == nil {
		return
	}
	d.metrics.RecordDispatch(capability.String(), name, outcome, elapsed)
}

func annotate(span *tracing.Span, name, outcome string, err error) {
	if span == nil {
		return
	}
	span.SetTag("service", name)
	span.SetTag("outcome", outcome)
	if err != nil {
		span.SetError(err)
	}
}
