package kernel

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/aikernel/internal/domain/service"
	"github.com/GriffinCanCode/aikernel/internal/infrastructure/config"
	"github.com/GriffinCanCode/aikernel/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/aikernel/internal/providers/factory"
	"github.com/GriffinCanCode/aikernel/internal/types"
)

// Kernel owns the service registry for one application session
// along with the dispatcher and the backends built from the catalog.
type Kernel struct {
	registry   *service.Registry
	dispatcher *service.Dispatcher
	factory    *factory.Factory
	logger     *zap.Logger
}

// New builds a kernel and registers every service in catalog
func New(services config.ServicesConfig, catalog *config.Catalog, logger *zap.Logger, metrics *monitoring.Metrics) (*Kernel, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	registry := service.NewRegistry()
	f := factory.New(services, logger.Named("factory"), metrics)
	if err := f.RegisterCatalog(registry, catalog); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to register services: %w", err)
	}

	dispatcher := service.NewDispatcher(registry, logger.Named("dispatcher"))
	if metrics != nil {
		dispatcher.WithMetrics(metrics)
	}

	logger.Info("Kernel initialized",
		zap.Int("services", registry.Len()),
		zap.Any("defaults", registry.Stats()["defaults"]),
	)

	return &Kernel{
		registry:   registry,
		dispatcher: dispatcher,
		factory:    f,
		logger:     logger,
	}, nil
}

// FromConfig loads the catalog named by cfg and builds a kernel
func FromConfig(cfg *config.Config, logger *zap.Logger, metrics *monitoring.Metrics) (*Kernel, error) {
	catalog, err := cfg.Catalog()
	if err != nil {
		return nil, err
	}
	return New(cfg.Services, catalog, logger, metrics)
}

// Registry returns the service registry
func (k *Kernel) Registry() *service.Registry {
	return k.registry
}

// Dispatcher returns the dispatcher bound to the registry
func (k *Kernel) Dispatcher() *service.Dispatcher {
	return k.dispatcher
}

// Register adds a handle after startup and refreshes registry metrics
func (k *Kernel) Register(h *service.Handle, opts ...service.RegisterOption) error {
	if err := k.registry.Register(h, opts...); err != nil {
		return err
	}
	k.factory.ReportRegistry(k.registry)
	return nil
}

// Complete runs one text completion against the named or default service
func (k *Kernel) Complete(ctx context.Context, prompt, name string, settings types.Settings) (string, error) {
	var opts []service.RunOption
	if name != "" {
		opts = append(opts, service.WithService(name))
	}
	return k.dispatcher.Complete(ctx, prompt, settings, opts...)
}

// Close releases backend resources
func (k *Kernel) Close() {
	k.factory.Close()
}
