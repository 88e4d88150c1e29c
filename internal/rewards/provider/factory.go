package provider

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ehfuzzz/Mile-Buy-Club-sub002/internal/rewards/entity"
)

// NewFromConfig builds the flight provider variant named by cfg.Kind.
func NewFromConfig(cfg entity.ProviderConfig) (Provider, error) {
	if strings.TrimSpace(cfg.Name) == "" {
		return nil, errors.New("provider name is required")
	}
	if cfg.Type != "" && cfg.Type != entity.ProviderTypeFlight {
		return nil, fmt.Errorf("provider %s: no %s provider implementation", cfg.Name, cfg.Type)
	}

	switch strings.ToLower(cfg.Kind) {
	case "", entity.ProviderKindHTTP:
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("provider %s: base url is required", cfg.Name)
		}
		return NewHTTPFlightProvider(cfg), nil
	case entity.ProviderKindFixture:
		if cfg.FixturePath == "" {
			return nil, fmt.Errorf("provider %s: fixture path is required", cfg.Name)
		}
		if cfg.FailureRate < 0 || cfg.FailureRate >= 1 {
			return nil, fmt.Errorf("provider %s: failure rate must be in [0, 1)", cfg.Name)
		}
		return NewFixtureFlightProvider(cfg,
			WithLatency(cfg.SimulatedLatency/3, cfg.SimulatedLatency, cfg.FailureRate)), nil
	default:
		return nil, fmt.Errorf("provider %s: unknown kind %q", cfg.Name, cfg.Kind)
	}
}
