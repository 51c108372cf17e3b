package factory

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/aikernel/internal/domain/service"
	"github.com/GriffinCanCode/aikernel/internal/infrastructure/config"
	"github.com/GriffinCanCode/aikernel/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/aikernel/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/aikernel/internal/providers/cache"
	"github.com/GriffinCanCode/aikernel/internal/providers/echo"
	"github.com/GriffinCanCode/aikernel/internal/providers/huggingface"
	"github.com/GriffinCanCode/aikernel/internal/providers/openai"
	"github.com/GriffinCanCode/aikernel/internal/types"
)

// Factory builds service handles from catalog entries
type Factory struct {
	services config.ServicesConfig
	logger   *zap.Logger
	metrics  *monitoring.Metrics

	mu      sync.Mutex
	closers []func()
}

// New creates a factory. Credentials in services fill entries without an api_key.
func New(services config.ServicesConfig, logger *zap.Logger, metrics *monitoring.Metrics) *Factory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Factory{
		services: services,
		logger:   logger,
		metrics:  metrics,
	}
}

// Build creates the handle described by entry
func (f *Factory) Build(entry config.ServiceEntry) (*service.Handle, error) {
	capability := entry.CapabilityType()
	if !capability.Valid() {
		return nil, fmt.Errorf("service %q: unknown capability %q", entry.Name, entry.Capability)
	}

	timeout, err := entry.TimeoutDuration()
	if err != nil {
		return nil, fmt.Errorf("service %q: invalid timeout: %w", entry.Name, err)
	}
	if timeout == 0 {
		timeout = f.services.Timeout
	}
	ttl, err := entry.CacheTTLDuration()
	if err != nil {
		return nil, fmt.Errorf("service %q: invalid cache_ttl: %w", entry.Name, err)
	}

	log := f.logger.With(zap.String("service", entry.Name), zap.String("provider", entry.Provider))

	var backend service.Backend
	switch entry.Provider {
	case config.ProviderHuggingFace:
		backend, err = huggingface.New(capability, huggingface.Config{
			Model:     entry.Model,
			BaseURL:   entry.BaseURL,
			Token:     firstNonEmpty(entry.APIKey, f.services.HuggingFaceToken),
			Timeout:   timeout,
			RateLimit: entry.RateLimit,
			Settings:  entry.Settings,
			Logger:    log,

			OnBreakerChange: f.breakerObserver(entry.Name),
		})
	case config.ProviderOpenAI:
		backend, err = openai.New(capability, openai.Config{
			Model:     entry.Model,
			BaseURL:   entry.BaseURL,
			APIKey:    firstNonEmpty(entry.APIKey, f.services.OpenAIKey),
			Timeout:   timeout,
			RateLimit: entry.RateLimit,
			Settings:  entry.Settings,
			Logger:    log,

			OnBreakerChange: f.breakerObserver(entry.Name),
		})
	case config.ProviderEcho:
		backend = echo.New("", capability)
	default:
		return nil, fmt.Errorf("service %q: unknown provider %q", entry.Name, entry.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("service %q: %w", entry.Name, err)
	}

	if ttl > 0 {
		cached := cache.New(entry.Name, backend, ttl, f.metrics)
		f.addCloser(cached.Close)
		backend = cached
	}

	return service.NewHandle(capability, entry.Name, backend)
}

// RegisterCatalog validates catalog, builds every entry and registers it.
// Nothing is registered if any entry fails to build.
func (f *Factory) RegisterCatalog(registry *service.Registry, catalog *config.Catalog) error {
	if err := catalog.Validate(); err != nil {
		return fmt.Errorf("invalid service catalog: %w", err)
	}

	handles := make([]*service.Handle, 0, len(catalog.Services))
	for _, entry := range catalog.Services {
		h, err := f.Build(entry)
		if err != nil {
			return err
		}
		handles = append(handles, h)
	}

	for i, h := range handles {
		var opts []service.RegisterOption
		if catalog.Services[i].Default {
			opts = append(opts, service.AsDefault())
		}
		if err := registry.Register(h, opts...); err != nil {
			return err
		}
		f.logger.Info("Registered service",
			zap.String("capability", h.Capability().String()),
			zap.String("service", h.Name()),
			zap.String("provider", catalog.Services[i].Provider),
			zap.Bool("default", catalog.Services[i].Default),
		)
	}

	f.ReportRegistry(registry)
	return nil
}

// ReportRegistry publishes per-capability service counts
func (f *Factory) ReportRegistry(registry *service.Registry) {
	if f.metrics == nil {
		return
	}
	for _, c := range types.Capabilities() {
		f.metrics.SetRegisteredServices(c.String(), len(registry.List(c)))
	}
}

// breakerObserver publishes breaker transitions of the named service
func (f *Factory) breakerObserver(name string) func(string, resilience.State, resilience.State) {
	if f.metrics == nil {
		return nil
	}
	f.metrics.SetBreakerState(name, int(resilience.StateClosed))
	return func(_ string, _, to resilience.State) {
		f.metrics.SetBreakerState(name, int(to))
	}
}

// Close releases resources held by built backends
func (f *Factory) Close() {
	f.mu.Lock()
	closers := f.closers
	f.closers = nil
	f.mu.Unlock()

	for _, c := range closers {
		c()
	}
}

func (f *Factory) addCloser(fn func()) {
	f.mu.Lock()
	f.closers = append(f.closers, fn)
	f.mu.Unlock()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
