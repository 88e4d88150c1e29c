package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ehfuzzz/Mile-Buy-Club-sub002/internal/rewards/entity"
)

// FixtureFlightProvider serves award space from a JSON file laid out like an
// award-search API response. It simulates upstream latency and occasional
// transient failures, which makes it useful for local runs and demos.
type FixtureFlightProvider struct {
	cfg     entity.ProviderConfig
	limiter *RateLimiter
	jitter  jitter
	now     func() time.Time
}

type FixtureOption func(*FixtureFlightProvider)

// WithLatency sets the simulated latency range and transient failure rate.
func WithLatency(min, max time.Duration, failureRate float64) FixtureOption {
	return func(p *FixtureFlightProvider) {
		p.jitter = jitter{min: min, max: max, failureRate: failureRate}
	}
}

func WithFixtureLimiter(l *RateLimiter) FixtureOption {
	return func(p *FixtureFlightProvider) { p.limiter = l }
}

func NewFixtureFlightProvider(cfg entity.ProviderConfig, opts ...FixtureOption) *FixtureFlightProvider {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	p := &FixtureFlightProvider{
		cfg:     cfg,
		limiter: NewRateLimiter(cfg.RequestsPerMinute, cfg.RequestsPerHour),
		jitter:  jitter{min: 50 * time.Millisecond, max: 150 * time.Millisecond, failureRate: 0.1},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (f *FixtureFlightProvider) Name() string {
	return f.cfg.Name
}

func (f *FixtureFlightProvider) Type() entity.ProviderType {
	return entity.ProviderTypeFlight
}

func (f *FixtureFlightProvider) Limiter() *RateLimiter {
	return f.limiter
}

type fixtureResponse struct {
	Status  string `json:"status"`
	Results []struct {
		Route struct {
			From string `json:"from"`
			To   string `json:"to"`
		} `json:"route"`
		Date       string  `json:"date"`
		Cabin      string  `json:"cabin"`
		Program    string  `json:"program"`
		Miles      int     `json:"miles"`
		Taxes      float64 `json:"taxes"`
		Surcharges float64 `json:"surcharges"`
		Fees       float64 `json:"fees"`
		Currency   string  `json:"currency"`
		Transfer   *struct {
			From  string  `json:"from"`
			Ratio float64 `json:"ratio"`
			Time  string  `json:"time"`
		} `json:"transfer"`
		CashFare struct {
			Total  float64 `json:"total"`
			Base   float64 `json:"base"`
			Taxes  float64 `json:"taxes"`
			Fees   float64 `json:"fees"`
			Source string  `json:"source"`
		} `json:"cash_fare"`
		Segments []fixtureSegment `json:"segments"`
	} `json:"results"`
}

type fixtureSegment struct {
	FlightNumber    string `json:"flight_number"`
	Airline         string `json:"airline"`
	From            string `json:"from"`
	To              string `json:"to"`
	Depart          string `json:"depart"`
	Arrive          string `json:"arrive"`
	DurationMinutes int    `json:"duration_minutes"`
	Aircraft        string `json:"aircraft"`
}

func (f *FixtureFlightProvider) FetchAvailability(ctx context.Context, q entity.AvailabilityQuery) (*entity.Availability, error) {
	if err := admit(f.Name(), f.limiter); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	if err := f.jitter.wait(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", f.Name(), ErrProviderUnreachable, err)
	}
	if f.jitter.fail() {
		return nil, fmt.Errorf("%s: %w", f.Name(), ErrTemporary)
	}

	resp, err := f.load()
	if err != nil {
		return nil, err
	}

	availability := &entity.Availability{
		Provider:  f.Name(),
		FetchedAt: f.now(),
		Itinerary: entity.FlightItinerary{
			Origin:      strings.ToUpper(q.Origin),
			Destination: strings.ToUpper(q.Destination),
			DepartDate:  q.DepartDate,
			ReturnDate:  q.ReturnDate,
			Cabin:       q.Cabin,
			Passengers:  max(q.Passengers, 1),
		},
	}

	bestCash := -1.0
	for _, r := range resp.Results {
		if !strings.EqualFold(r.Route.From, q.Origin) || !strings.EqualFold(r.Route.To, q.Destination) {
			continue
		}
		day, err := time.Parse(time.DateOnly, r.Date)
		if err != nil {
			return nil, fmt.Errorf("%s result date: %w", f.Name(), err)
		}
		if !sameDay(day, q.DepartDate) {
			continue
		}
		cabin, err := entity.ParseCabinClass(r.Cabin)
		if err != nil || (q.Cabin != "" && cabin != q.Cabin) {
			continue
		}
		if q.Program != "" && !strings.EqualFold(r.Program, q.Program) {
			continue
		}

		award := entity.AwardPricing{
			Program:    strings.ToLower(r.Program),
			PointsCost: r.Miles,
			Surcharges: r.Surcharges,
			Taxes:      r.Taxes,
			Fees:       r.Fees,
			TotalCash:  r.Surcharges + r.Taxes + r.Fees,
		}
		if r.Transfer != nil {
			from, ratio := r.Transfer.From, r.Transfer.Ratio
			award.TransferRequired = true
			award.TransferFrom = &from
			award.TransferRatio = &ratio
			award.TransferTime = optionalString(r.Transfer.Time)
		}
		availability.Awards = append(availability.Awards, award)

		if bestCash < 0 || r.CashFare.Total < bestCash {
			bestCash = r.CashFare.Total
			availability.Cash = entity.CashPricing{
				TotalCost: r.CashFare.Total,
				BaseFare:  r.CashFare.Base,
				Taxes:     r.CashFare.Taxes,
				Fees:      r.CashFare.Fees,
				Source:    r.CashFare.Source,
			}
			availability.Itinerary.Currency = r.Currency
			availability.Itinerary.Segments, err = f.segments(r.Segments, cabin)
			if err != nil {
				return nil, err
			}
		}
	}
	availability.Awards = scopeAwards(availability.Awards, f.cfg.Programs)

	return availability, nil
}

func (f *FixtureFlightProvider) segments(raw []fixtureSegment, cabin entity.CabinClass) ([]entity.FlightSegment, error) {
	segments := make([]entity.FlightSegment, 0, len(raw))
	for _, s := range raw {
		departAt, err := time.Parse(time.RFC3339, s.Depart)
		if err != nil {
			return nil, fmt.Errorf("%s segment departure time: %w", f.Name(), err)
		}
		arriveAt, err := time.Parse(time.RFC3339, s.Arrive)
		if err != nil {
			return nil, fmt.Errorf("%s segment arrival time: %w", f.Name(), err)
		}
		segments = append(segments, entity.FlightSegment{
			Origin:       strings.ToUpper(s.From),
			Destination:  strings.ToUpper(s.To),
			Date:         departAt,
			Airline:      s.Airline,
			FlightNumber: s.FlightNumber,
			Duration:     durationMinutes(departAt, arriveAt, s.DurationMinutes),
			Cabin:        cabin,
			Aircraft:     optionalString(s.Aircraft),
		})
	}
	return segments, nil
}

func (f *FixtureFlightProvider) HealthCheck(ctx context.Context) HealthResult {
	start := time.Now()
	if err := f.jitter.wait(ctx); err != nil {
		return HealthResult{Latency: time.Since(start), Err: err}
	}
	if _, err := os.Stat(filepath.Clean(f.cfg.FixturePath)); err != nil {
		return HealthResult{Latency: time.Since(start), Err: fmt.Errorf("%w: %w", ErrProviderUnreachable, err)}
	}
	return HealthResult{Reachable: true, Latency: time.Since(start)}
}

func (f *FixtureFlightProvider) load() (*fixtureResponse, error) {
	data, err := os.ReadFile(filepath.Clean(f.cfg.FixturePath))
	if err != nil {
		return nil, fmt.Errorf("%s read fixture: %w", f.Name(), err)
	}
	var resp fixtureResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("%s decode: %w", f.Name(), err)
	}
	return &resp, nil
}
