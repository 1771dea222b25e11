package gatewayconfig

import (
	"context"
	"strings"
	"time"

	"github.com/tanviralimon/orcus-portal/internal/cache"
	"github.com/tanviralimon/orcus-portal/internal/observability/logger"
	"github.com/tanviralimon/orcus-portal/internal/payment/domain"
	"go.uber.org/zap"
)

// ConfigSource fetches raw gateway settings from the remote billing
// system's configuration store. A nil map means the module has no stored
// configuration.
type ConfigSource interface {
	GatewayConfig(ctx context.Context, module string) (map[string]string, error)
}

// moduleCandidates lists the historical module names a provider family
// may be stored under, in priority order. The first name that yields a
// settings payload wins.
var moduleCandidates = map[string][]string{
	"stripe":       {"stripe", "stripe_checkout", "stripeofficial"},
	"sslcommerz":   {"sslcommerz", "sslcommerz_aio", "sslcommerze"},
	"banktransfer": {"banktransfer", "mailin"},
}

// Resolver resolves and caches per-provider configuration.
type Resolver struct {
	source ConfigSource
	cache  *cache.TTLCache[string, *domain.GatewayConfig]
	ttl    time.Duration
	log    *zap.Logger
}

// NewResolver builds a Resolver with the given cache TTL.
func NewResolver(source ConfigSource, ttl time.Duration, log *zap.Logger) *Resolver {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Resolver{
		source: source,
		cache:  cache.NewTTLCache[string, *domain.GatewayConfig](),
		ttl:    ttl,
		log:    log.Named("gatewayconfig"),
	}
}

// Resolve returns the provider family's configuration, or (nil, nil) when
// the provider is not configured on the remote system. Only fetch
// failures surface as errors.
func (r *Resolver) Resolve(ctx context.Context, family string) (*domain.GatewayConfig, error) {
	family = strings.ToLower(strings.TrimSpace(family))
	if family == "" {
		return nil, nil
	}

	if cached, ok := r.cache.Get(family); ok {
		return cached, nil
	}

	candidates, ok := moduleCandidates[family]
	if !ok {
		candidates = []string{family}
	}

	var lastErr error
	for _, module := range candidates {
		settings, err := r.source.GatewayConfig(ctx, module)
		if err != nil {
			lastErr = err
			continue
		}
		if len(settings) == 0 {
			continue
		}
		cfg := &domain.GatewayConfig{
			Module:   strings.ToLower(module),
			TestMode: isTruthy(firstValue(settings, "testMode", "test_mode", "testmode", "sandbox")),
			Settings: settings,
		}
		r.cache.Set(family, cfg, r.ttl)
		logger.WithContext(ctx, r.log).Info("gateway_config_resolved",
			zap.String("family", family),
			zap.String("module", cfg.Module),
			zap.Bool("test_mode", cfg.TestMode),
		)
		return cfg, nil
	}

	if lastErr != nil {
		return nil, lastErr
	}
	// Not configured. Deliberately uncached so an operator enabling the
	// gateway takes effect without waiting out the TTL.
	return nil, nil
}

// Invalidate evicts one provider family from the cache.
func (r *Resolver) Invalidate(family string) {
	r.cache.Delete(strings.ToLower(strings.TrimSpace(family)))
}

func firstValue(settings map[string]string, keys ...string) string {
	for _, key := range keys {
		if value := strings.TrimSpace(settings[key]); value != "" {
			return value
		}
	}
	return ""
}

func isTruthy(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "on", "1", "yes", "true":
		return true
	default:
		return false
	}
}
