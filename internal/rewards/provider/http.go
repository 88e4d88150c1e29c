package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ehfuzzz/Mile-Buy-Club-sub002/internal/rewards/entity"
)

const (
	defaultTimeout = 10 * time.Second
	headerAPIKey   = "X-API-Key"

	maxIdleConns    = 10
	maxConnsPerHost = 5
	idleConnTimeout = 90 * time.Second
)

// HTTPFlightProvider talks to an award-search backend that already returns
// the normalized availability document (itinerary, awards, cash).
type HTTPFlightProvider struct {
	cfg     entity.ProviderConfig
	client  *http.Client
	limiter *RateLimiter
	now     func() time.Time
}

type HTTPOption func(*HTTPFlightProvider)

func WithHTTPClient(c *http.Client) HTTPOption {
	return func(p *HTTPFlightProvider) { p.client = c }
}

func WithLimiter(l *RateLimiter) HTTPOption {
	return func(p *HTTPFlightProvider) { p.limiter = l }
}

func NewHTTPFlightProvider(cfg entity.ProviderConfig, opts ...HTTPOption) *HTTPFlightProvider {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	p := &HTTPFlightProvider{
		cfg: cfg,
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        maxIdleConns,
				MaxConnsPerHost:     maxConnsPerHost,
				IdleConnTimeout:     idleConnTimeout,
				TLSHandshakeTimeout: cfg.Timeout,
			},
		},
		limiter: NewRateLimiter(cfg.RequestsPerMinute, cfg.RequestsPerHour),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *HTTPFlightProvider) Name() string {
	return p.cfg.Name
}

func (p *HTTPFlightProvider) Type() entity.ProviderType {
	return entity.ProviderTypeFlight
}

func (p *HTTPFlightProvider) Limiter() *RateLimiter {
	return p.limiter
}

func (p *HTTPFlightProvider) FetchAvailability(ctx context.Context, q entity.AvailabilityQuery) (*entity.Availability, error) {
	if err := admit(p.Name(), p.limiter); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.BaseURL+"/availability?"+availabilityParams(q).Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%s build request: %w", p.Name(), err)
	}
	req.Header.Set("Accept", "application/json")
	if p.cfg.APIKey != "" {
		req.Header.Set(headerAPIKey, p.cfg.APIKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s fetch availability: %w: %w", p.Name(), ErrProviderUnreachable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &RateLimitedError{Provider: p.Name(), RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"))}
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, fmt.Errorf("%s fetch availability: status %d: %w", p.Name(), resp.StatusCode, ErrTemporary)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%s fetch availability: status %d: %s", p.Name(), resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var availability entity.Availability
	if err := json.NewDecoder(resp.Body).Decode(&availability); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%s decode: %w: %w", p.Name(), ErrProviderUnreachable, err)
		}
		return nil, fmt.Errorf("%s decode: %w", p.Name(), err)
	}

	availability.Provider = p.Name()
	availability.FetchedAt = p.now()
	if availability.Itinerary.Cabin == "" {
		availability.Itinerary.Cabin = q.Cabin
	}
	availability.Awards = scopeAwards(availability.Awards, p.cfg.Programs)

	return &availability, nil
}

func (p *HTTPFlightProvider) HealthCheck(ctx context.Context) HealthResult {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.BaseURL+"/health", nil)
	if err != nil {
		return HealthResult{Err: err}
	}
	if p.cfg.APIKey != "" {
		req.Header.Set(headerAPIKey, p.cfg.APIKey)
	}

	resp, err := p.client.Do(req)
	latency := time.Since(start)
	if err != nil {
		return HealthResult{Latency: latency, Err: fmt.Errorf("%w: %w", ErrProviderUnreachable, err)}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return HealthResult{Latency: latency, Err: fmt.Errorf("%w: health status %d", ErrProviderUnreachable, resp.StatusCode)}
	}
	return HealthResult{Reachable: true, Latency: latency}
}

func availabilityParams(q entity.AvailabilityQuery) url.Values {
	params := url.Values{}
	params.Set("origin", strings.ToUpper(q.Origin))
	params.Set("destination", strings.ToUpper(q.Destination))
	params.Set("depart_date", q.DepartDate.Format(time.DateOnly))
	if q.ReturnDate != nil {
		params.Set("return_date", q.ReturnDate.Format(time.DateOnly))
	}
	if q.Cabin != "" {
		params.Set("cabin", string(q.Cabin))
	}
	if q.Passengers > 0 {
		params.Set("passengers", strconv.Itoa(q.Passengers))
	}
	if q.Program != "" {
		params.Set("program", q.Program)
	}
	return params
}

func parseRetryAfter(value string) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}

func scopeAwards(awards []entity.AwardPricing, programs []string) []entity.AwardPricing {
	if len(programs) == 0 {
		return awards
	}
	allowed := make(map[string]struct{}, len(programs))
	for _, p := range programs {
		allowed[strings.ToLower(strings.TrimSpace(p))] = struct{}{}
	}
	scoped := make([]entity.AwardPricing, 0, len(awards))
	for _, a := range awards {
		if _, ok := allowed[strings.ToLower(a.Program)]; ok {
			scoped = append(scoped, a)
		}
	}
	return scoped
}
