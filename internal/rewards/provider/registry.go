package provider

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ehfuzzz/Mile-Buy-Club-sub002/internal/rewards/entity"
)

const (
	DefaultFailureThreshold = 3
	DefaultCheckTimeout     = 5 * time.Second
)

type registryKey struct {
	typ  entity.ProviderType
	name string
}

// registration pairs a provider with the health the registry has observed.
// Each one has its own lock so a slow update never blocks other providers.
type registration struct {
	typ      entity.ProviderType
	name     string
	provider Provider

	mu     sync.Mutex
	health entity.HealthStatus
}

func (r *registration) status() entity.HealthStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.health
}

// ProviderHealth is one row of a registry snapshot.
type ProviderHealth struct {
	Name   string              `json:"name"`
	Type   entity.ProviderType `json:"type"`
	Health entity.HealthStatus `json:"health"`
}

// Registry owns the registered providers, keyed by (type, name), and their
// health. Providers are never replaced or removed once registered.
type Registry struct {
	mu      sync.RWMutex
	entries map[registryKey]*registration
	order   map[entity.ProviderType][]*registration

	checkTimeout     time.Duration
	failureThreshold int
	logger           *slog.Logger
	now              func() time.Time

	loopMu sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

type RegistryOption func(*Registry)

// WithCheckTimeout bounds every individual health check.
func WithCheckTimeout(d time.Duration) RegistryOption {
	return func(r *Registry) {
		if d > 0 {
			r.checkTimeout = d
		}
	}
}

// WithFailureThreshold sets how many consecutive failed checks mark a
// provider degraded.
func WithFailureThreshold(n int) RegistryOption {
	return func(r *Registry) {
		if n > 0 {
			r.failureThreshold = n
		}
	}
}

func WithLogger(l *slog.Logger) RegistryOption {
	return func(r *Registry) { r.logger = l }
}

func WithRegistryClock(now func() time.Time) RegistryOption {
	return func(r *Registry) { r.now = now }
}

func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		entries:          make(map[registryKey]*registration),
		order:            make(map[entity.ProviderType][]*registration),
		checkTimeout:     DefaultCheckTimeout,
		failureThreshold: DefaultFailureThreshold,
		logger:           slog.Default(),
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RegisterProvider adds p under (typ, name). A second registration for the
// same pair fails with ErrDuplicateProvider and leaves the first in place.
func (r *Registry) RegisterProvider(typ entity.ProviderType, name string, p Provider) error {
	typ, err := entity.ParseProviderType(string(typ))
	if err != nil {
		return fmt.Errorf("register provider %s: %w", name, err)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("register %s provider: name is required", typ)
	}
	if p == nil {
		return fmt.Errorf("register %s provider %s: provider is nil", typ, name)
	}

	key := registryKey{typ: typ, name: name}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[key]; ok {
		return fmt.Errorf("register %s provider %s: %w", typ, name, ErrDuplicateProvider)
	}

	reg := &registration{
		typ:      typ,
		name:     name,
		provider: p,
		health:   entity.HealthStatus{State: entity.HealthUnknown},
	}
	r.entries[key] = reg
	r.order[typ] = append(r.order[typ], reg)

	r.logger.Info("provider registered", "type", typ, "name", name)
	return nil
}

// RegisterFlightProvider builds a flight provider from cfg and registers it
// under its configured name.
func (r *Registry) RegisterFlightProvider(cfg entity.ProviderConfig) (Provider, error) {
	cfg.Type = entity.ProviderTypeFlight
	p, err := NewFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	if err := r.RegisterProvider(entity.ProviderTypeFlight, cfg.Name, p); err != nil {
		return nil, err
	}
	return p, nil
}

// ListProviders returns the names registered under typ in insertion order.
func (r *Registry) ListProviders(typ entity.ProviderType) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.order[typ]))
	for _, reg := range r.order[typ] {
		names = append(names, reg.name)
	}
	return names
}

func (r *Registry) GetProvider(typ entity.ProviderType, name string) (Provider, error) {
	reg, err := r.lookup(typ, name)
	if err != nil {
		return nil, err
	}
	return reg.provider, nil
}

// SelectProvider returns the first provider of typ, in insertion order, that
// is not degraded. Providers that were never checked are eligible.
func (r *Registry) SelectProvider(typ entity.ProviderType) (Provider, error) {
	r.mu.RLock()
	regs := append([]*registration(nil), r.order[typ]...)
	r.mu.RUnlock()

	if len(regs) == 0 {
		return nil, fmt.Errorf("select %s provider: %w", typ, ErrProviderNotFound)
	}
	for _, reg := range regs {
		if !reg.status().Degraded {
			return reg.provider, nil
		}
	}
	return nil, fmt.Errorf("select %s provider: %w", typ, ErrNoHealthyProvider)
}

func (r *Registry) Health(typ entity.ProviderType, name string) (entity.HealthStatus, error) {
	reg, err := r.lookup(typ, name)
	if err != nil {
		return entity.HealthStatus{}, err
	}
	return reg.status(), nil
}

// Snapshot returns every provider of typ with its current health.
func (r *Registry) Snapshot(typ entity.ProviderType) []ProviderHealth {
	r.mu.RLock()
	regs := append([]*registration(nil), r.order[typ]...)
	r.mu.RUnlock()

	out := make([]ProviderHealth, 0, len(regs))
	for _, reg := range regs {
		out = append(out, ProviderHealth{Name: reg.name, Type: reg.typ, Health: reg.status()})
	}
	return out
}

func (r *Registry) lookup(typ entity.ProviderType, name string) (*registration, error) {
	r.mu.RLock()
	reg, ok := r.entries[registryKey{typ: typ, name: strings.TrimSpace(name)}]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%s provider %q: %w", typ, name, ErrProviderNotFound)
	}
	return reg, nil
}

func (r *Registry) registrations() []*registration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]entity.ProviderType, 0, len(r.order))
	for typ := range r.order {
		types = append(types, typ)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	out := make([]*registration, 0, len(r.entries))
	for _, typ := range types {
		out = append(out, r.order[typ]...)
	}
	return out
}
