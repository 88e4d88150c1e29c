package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ehfuzzz/Mile-Buy-Club-sub002/internal/rewards/entity"
)

var (
	ErrTemporary           = errors.New("temporary provider error")
	ErrRateLimited         = errors.New("provider rate limited")
	ErrProviderUnreachable = errors.New("provider unreachable")
	ErrProviderNotFound    = errors.New("provider not found")
	ErrDuplicateProvider   = errors.New("provider already registered")
	ErrNoHealthyProvider   = errors.New("no healthy provider")
)

// RateLimitedError is returned by FetchAvailability when the provider's own
// budget rejected the call. No request was sent upstream.
type RateLimitedError struct {
	Provider   string
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("%s: rate limited, retry after %s", e.Provider, e.RetryAfter)
}

func (e *RateLimitedError) Is(target error) bool {
	return target == ErrRateLimited
}

// HealthResult is the outcome of one liveness probe.
type HealthResult struct {
	Reachable bool
	Latency   time.Duration
	Err       error
}

// Provider is an external availability source. FetchAvailability is gated by
// the provider's rate limiter; HealthCheck is not.
type Provider interface {
	Name() string
	Type() entity.ProviderType
	FetchAvailability(ctx context.Context, q entity.AvailabilityQuery) (*entity.Availability, error)
	HealthCheck(ctx context.Context) HealthResult
}

// Budgeted is implemented by providers whose fetches pass a RateLimiter.
type Budgeted interface {
	Limiter() *RateLimiter
}

// RemainingRequests reports how many more fetches p admits right now, or -1
// when p does not limit them.
func RemainingRequests(p Provider) int {
	b, ok := p.(Budgeted)
	if !ok || b.Limiter() == nil {
		return -1
	}
	perMinute, perHour := b.Limiter().Remaining()
	switch {
	case perMinute < 0:
		return perHour
	case perHour < 0:
		return perMinute
	default:
		return min(perMinute, perHour)
	}
}

// admit runs the limiter for a provider and converts a rejection into a
// RateLimitedError.
func admit(name string, limiter *RateLimiter) error {
	if limiter == nil {
		return nil
	}
	if d := limiter.TryAcquire(); !d.Allowed {
		return &RateLimitedError{Provider: name, RetryAfter: d.RetryAfter}
	}
	return nil
}
