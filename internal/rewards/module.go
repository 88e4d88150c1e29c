package rewards

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ehfuzzz/Mile-Buy-Club-sub002/internal/pkg/pkgconfig"
	"github.com/ehfuzzz/Mile-Buy-Club-sub002/internal/pkg/pkgrouter"
	"github.com/ehfuzzz/Mile-Buy-Club-sub002/internal/rewards/cache"
	"github.com/ehfuzzz/Mile-Buy-Club-sub002/internal/rewards/inbound"
	"github.com/ehfuzzz/Mile-Buy-Club-sub002/internal/rewards/provider"
	"github.com/ehfuzzz/Mile-Buy-Club-sub002/internal/rewards/usecase"
	"github.com/ehfuzzz/Mile-Buy-Club-sub002/internal/rewards/valuation"
	"github.com/go-redis/redis/v8"
)

type Dependency struct {
	Config pkgconfig.Config
	Router *pkgrouter.Router
}

// Module owns the long-lived parts of the rewards module: the provider
// registry with its health loop and, when configured, the redis client.
type Module struct {
	Registry *provider.Registry
	redis    *redis.Client
}

func New(dep Dependency) (*Module, error) {
	cfg := dep.Config

	registry := provider.NewRegistry(
		provider.WithCheckTimeout(durationOr(cfg, prefix+"health.timeout", provider.DefaultCheckTimeout)),
		provider.WithFailureThreshold(cfg.GetInt(prefix+"health.failure_threshold")),
	)

	providers, err := loadProviders(cfg)
	if err != nil {
		return nil, err
	}
	for _, pc := range providers {
		if _, err := registry.RegisterFlightProvider(pc); err != nil {
			return nil, fmt.Errorf("register provider %s: %w", pc.Name, err)
		}
	}

	partners, err := loadPartners(cfg)
	if err != nil {
		return nil, err
	}
	programs, err := loadPrograms(cfg)
	if err != nil {
		return nil, err
	}

	engineOpts, err := loadEngineOptions(cfg)
	if err != nil {
		return nil, err
	}
	engine, err := valuation.NewEngine(engineOpts...)
	if err != nil {
		return nil, err
	}

	m := &Module{Registry: registry}

	store, err := m.newCache(cfg)
	if err != nil {
		return nil, err
	}

	cacheTTL := 60 * time.Second
	if ttlSeconds := cfg.GetInt(prefix + "cache.ttl_seconds"); ttlSeconds > 0 {
		cacheTTL = time.Duration(ttlSeconds) * time.Second
	}

	maxRetries := 2
	if cfg.IsSet(prefix + "provider.max_retries") {
		maxRetries = cfg.GetInt(prefix + "provider.max_retries")
	}

	uc := usecase.New(usecase.Dependency{
		Registry:           registry,
		Engine:             engine,
		Optimizer:          valuation.NewOptimizer(engine),
		Cache:              store,
		CacheTTL:           cacheTTL,
		ProviderTimeout:    durationOr(cfg, prefix+"provider.timeout", 5*time.Second),
		MaxProviderRetries: maxRetries,
		QuoteConcurrency:   cfg.GetInt(prefix + "provider.quote_concurrency"),
		Partners:           partners,
		Programs:           valuation.NewDirectory(programs),
	})

	inbound.RegisterHTTPEndpoint(dep.Router, uc)

	interval := durationOr(cfg, prefix+"health.interval", provider.DefaultHealthInterval)
	registry.StartHealthCheckLoop(interval)

	return m, nil
}

func (m *Module) newCache(cfg pkgconfig.Config) (cache.Store[*usecase.DealsOutput], error) {
	switch driver := cfg.GetString(prefix + "cache.driver"); driver {
	case "", "memory":
		return cache.NewMemory(usecase.CloneDealsOutput), nil
	case "redis":
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		client, err := cache.NewRedisClient(ctx,
			cfg.GetString(prefix+"cache.redis.address"),
			cfg.GetString(prefix+"cache.redis.password"),
			cfg.GetInt(prefix+"cache.redis.db"),
		)
		if err != nil {
			return nil, err
		}
		m.redis = client
		return cache.NewRedis[*usecase.DealsOutput](client, "rewards:deals:"), nil
	default:
		return nil, fmt.Errorf("unknown cache driver %q", driver)
	}
}

// Close stops the health loop and releases the redis client.
func (m *Module) Close(ctx context.Context) error {
	var errs []error
	if err := m.Registry.StopHealthCheckLoop(ctx); err != nil {
		errs = append(errs, err)
	}
	if m.redis != nil {
		if err := m.redis.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
