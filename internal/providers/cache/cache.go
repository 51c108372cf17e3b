package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/bytedance/sonic"
	"github.com/jellydator/ttlcache/v3"

	"github.com/GriffinCanCode/aikernel/internal/domain/service"
	"github.com/GriffinCanCode/aikernel/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/aikernel/internal/types"
)

// Backend memoizes deterministic responses of a wrapped backend.
// Requests whose effective temperature is positive always reach the wrapped
// backend; the wrapped backend's defaults count when it reports them.
type Backend struct {
	name    string
	next    service.Backend
	cache   *ttlcache.Cache[string, *types.Response]
	metrics *monitoring.Metrics
}

// New wraps next with a TTL cache. Close must be called to stop the expiry loop.
func New(name string, next service.Backend, ttl time.Duration, metrics *monitoring.Metrics) *Backend {
	c := ttlcache.New[string, *types.Response](
		ttlcache.WithTTL[string, *types.Response](ttl),
		ttlcache.WithDisableTouchOnHit[string, *types.Response](),
	)
	go c.Start()

	return &Backend{
		name:    name,
		next:    next,
		cache:   c,
		metrics: metrics,
	}
}

// Capabilities forwards the wrapped backend's declaration
func (b *Backend) Capabilities() []types.Capability {
	if reporter, ok := b.next.(service.CapabilityReporter); ok {
		return reporter.Capabilities()
	}
	return types.Capabilities()
}

// Invoke serves from cache when possible. Failures are never cached.
func (b *Backend) Invoke(ctx context.Context, req types.Request) (*types.Response, error) {
	if b.effective(req.Settings).Sampled() {
		return b.next.Invoke(ctx, req)
	}

	key, err := cacheKey(req)
	if err != nil {
		return b.next.Invoke(ctx, req)
	}

	if item := b.cache.Get(key); item != nil {
		b.record(true)
		return clone(item.Value()), nil
	}
	b.record(false)

	resp, err := b.next.Invoke(ctx, req)
	if err != nil || resp == nil {
		return resp, err
	}
	b.cache.Set(key, clone(resp), ttlcache.DefaultTTL)
	return resp, nil
}

// Len returns the number of live entries
func (b *Backend) Len() int {
	return b.cache.Len()
}

// Close stops the expiry loop
func (b *Backend) Close() {
	b.cache.Stop()
}

// effective applies the wrapped backend's defaults the way it will itself
func (b *Backend) effective(settings types.Settings) types.Settings {
	if reporter, ok := b.next.(service.DefaultsReporter); ok {
		return settings.Merge(reporter.Defaults())
	}
	return settings
}

func (b *Backend) record(hit bool) {
	if b.metrics != nil {
		b.metrics.RecordCacheLookup(b.name, hit)
	}
}

// cacheKey hashes the request with sorted map keys so Extra ordering does not matter
func cacheKey(req types.Request) (string, error) {
	data, err := sonic.ConfigStd.Marshal(req)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

func clone(resp *types.Response) *types.Response {
	out := *resp
	if resp.Embedding != nil {
		out.Embedding = append([]float32(nil), resp.Embedding...)
	}
	if resp.Usage != nil {
		usage := *resp.Usage
		out.Usage = &usage
	}
	return &out
}
