package usecase

import (
	"time"

	"github.com/ehfuzzz/Mile-Buy-Club-sub002/internal/rewards/cache"
	"github.com/ehfuzzz/Mile-Buy-Club-sub002/internal/rewards/entity"
	"github.com/ehfuzzz/Mile-Buy-Club-sub002/internal/rewards/provider"
	"github.com/ehfuzzz/Mile-Buy-Club-sub002/internal/rewards/valuation"
)

// Registry is the part of provider.Registry the usecase relies on.
type Registry interface {
	GetProvider(typ entity.ProviderType, name string) (provider.Provider, error)
	SelectProvider(typ entity.ProviderType) (provider.Provider, error)
	Snapshot(typ entity.ProviderType) []provider.ProviderHealth
}

type Dependency struct {
	Registry           Registry
	Engine             *valuation.Engine
	Optimizer          *valuation.Optimizer
	Cache              cache.Store[*DealsOutput]
	CacheTTL           time.Duration
	ProviderTimeout    time.Duration
	MaxProviderRetries int
	QuoteConcurrency   int
	Partners           []entity.TransferPartner
	Programs           valuation.Directory
}

type Usecase struct {
	registry           Registry
	engine             *valuation.Engine
	optimizer          *valuation.Optimizer
	cache              cache.Store[*DealsOutput]
	cacheTTL           time.Duration
	providerTimeout    time.Duration
	maxProviderRetries int
	quoteConcurrency   int
	partners           []entity.TransferPartner
	programs           valuation.Directory
}

func New(dep Dependency) *Usecase {
	quoteConcurrency := dep.QuoteConcurrency
	if quoteConcurrency <= 0 {
		quoteConcurrency = 4
	}
	return &Usecase{
		registry:           dep.Registry,
		engine:             dep.Engine,
		optimizer:          dep.Optimizer,
		cache:              dep.Cache,
		cacheTTL:           dep.CacheTTL,
		providerTimeout:    dep.ProviderTimeout,
		maxProviderRetries: dep.MaxProviderRetries,
		quoteConcurrency:   quoteConcurrency,
		partners:           dep.Partners,
		programs:           dep.Programs,
	}
}
