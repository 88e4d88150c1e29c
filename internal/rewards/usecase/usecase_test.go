package usecase

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/ehfuzzz/Mile-Buy-Club-sub002/internal/rewards/cache"
	"github.com/ehfuzzz/Mile-Buy-Club-sub002/internal/rewards/entity"
	"github.com/ehfuzzz/Mile-Buy-Club-sub002/internal/rewards/provider"
	"github.com/ehfuzzz/Mile-Buy-Club-sub002/internal/rewards/valuation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var departDay = time.Date(2026, 11, 2, 0, 0, 0, 0, time.UTC)

type stubProvider struct {
	name     string
	mu       sync.Mutex
	calls    int
	failures int
	err      error
	failFor  func(q entity.AvailabilityQuery) error
	respond  func(q entity.AvailabilityQuery) *entity.Availability
}

func (s *stubProvider) Name() string              { return s.name }
func (s *stubProvider) Type() entity.ProviderType { return entity.ProviderTypeFlight }

func (s *stubProvider) FetchAvailability(_ context.Context, q entity.AvailabilityQuery) (*entity.Availability, error) {
	s.mu.Lock()
	s.calls++
	call := s.calls
	s.mu.Unlock()

	if s.err != nil {
		return nil, s.err
	}
	if call <= s.failures {
		return nil, provider.ErrTemporary
	}
	if s.failFor != nil {
		if err := s.failFor(q); err != nil {
			return nil, err
		}
	}
	return s.respond(q), nil
}

func (s *stubProvider) HealthCheck(context.Context) provider.HealthResult {
	return provider.HealthResult{Reachable: true}
}

func (s *stubProvider) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func anaBusiness(q entity.AvailabilityQuery) *entity.Availability {
	return &entity.Availability{
		Provider: "stub",
		Itinerary: entity.FlightItinerary{
			Origin: q.Origin, Destination: q.Destination, DepartDate: q.DepartDate,
			Cabin: q.Cabin, Passengers: q.Passengers,
		},
		Awards: []entity.AwardPricing{{Program: "ana", PointsCost: 70000, Taxes: 40, TotalCash: 40}},
		Cash:   entity.CashPricing{TotalCost: 1800, BaseFare: 1700, Taxes: 100},
	}
}

func newTestUsecase(t *testing.T, providers ...provider.Provider) *Usecase {
	t.Helper()

	registry := provider.NewRegistry(provider.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	for _, p := range providers {
		require.NoError(t, registry.RegisterProvider(entity.ProviderTypeFlight, p.Name(), p))
	}

	engine, err := valuation.NewEngine()
	require.NoError(t, err)

	return New(Dependency{
		Registry:           registry,
		Engine:             engine,
		Optimizer:          valuation.NewOptimizer(engine),
		Cache:              cache.NewMemory(CloneDealsOutput),
		CacheTTL:           time.Minute,
		ProviderTimeout:    2 * time.Second,
		MaxProviderRetries: 2,
		Partners: []entity.TransferPartner{{
			SourceProgram: "amex_mr", DestinationProgram: "ana", Ratio: 1, TransferTime: "instant",
		}},
		Programs: valuation.NewDirectory([]entity.Program{{ID: "ana", Name: "ANA Mileage Club"}}),
	})
}

func dealsInput() DealsInput {
	return DealsInput{Origin: "sfo", Destination: "nrt", DepartDate: departDay, Cabin: entity.CabinBusiness, Passengers: 1}
}

func TestFindDeals_FixtureProviderWithFlexDates(t *testing.T) {
	fixture := provider.NewFixtureFlightProvider(entity.ProviderConfig{
		Name:        "fixture",
		FixturePath: "../provider/testdata/award_search.json",
	}, provider.WithLatency(0, 0, 0))
	uc := newTestUsecase(t, fixture)

	in := dealsInput()
	in.FlexDays = 1
	out, err := uc.FindDeals(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, "fixture", out.Metadata.Provider)
	assert.Equal(t, 2, out.Metadata.AwardsFound)
	assert.Equal(t, 2, out.Metadata.QuotesFetched)
	assert.Zero(t, out.Metadata.QuotesFailed)
	require.Len(t, out.Deals, 2)

	best := out.Deals[0]
	assert.Equal(t, "ana", best.Calculation.Award.Program)
	assert.Equal(t, departDay.AddDate(0, 0, 1), best.Itinerary.DepartDate, "the next day prices better")
	assert.InDelta(t, 2.85, best.Calculation.CPP, 1e-9)
	assert.InDelta(t, 2.514, best.BaselineCPP, 0.001)
	assert.NotEmpty(t, best.Instructions.Steps)

	united := out.Deals[1]
	assert.Equal(t, "united", united.Calculation.Award.Program)
	assert.Greater(t, best.Calculation.CPP, united.Calculation.CPP)
}

func TestFindDeals_CachesPerQuery(t *testing.T) {
	stub := &stubProvider{name: "stub", respond: anaBusiness}
	uc := newTestUsecase(t, stub)

	first, err := uc.FindDeals(context.Background(), dealsInput())
	require.NoError(t, err)
	assert.False(t, first.Metadata.CacheHit)

	second, err := uc.FindDeals(context.Background(), dealsInput())
	require.NoError(t, err)
	assert.True(t, second.Metadata.CacheHit)
	assert.Equal(t, 1, stub.callCount())

	other := dealsInput()
	other.Cabin = entity.CabinFirst
	_, err = uc.FindDeals(context.Background(), other)
	require.NoError(t, err)
	assert.Equal(t, 2, stub.callCount())
}

func TestFindDeals_RetriesTemporaryFailures(t *testing.T) {
	stub := &stubProvider{name: "stub", failures: 2, respond: anaBusiness}
	uc := newTestUsecase(t, stub)

	out, err := uc.FindDeals(context.Background(), dealsInput())
	require.NoError(t, err)
	require.Len(t, out.Deals, 1)
	assert.Equal(t, 3, stub.callCount())
}

func TestFindDeals_GivesUpAfterRetries(t *testing.T) {
	stub := &stubProvider{name: "stub", failures: 10, respond: anaBusiness}
	uc := newTestUsecase(t, stub)

	_, err := uc.FindDeals(context.Background(), dealsInput())
	assert.ErrorIs(t, err, provider.ErrTemporary)
	assert.Equal(t, 3, stub.callCount())
}

func TestFindDeals_RateLimitIsNotRetried(t *testing.T) {
	stub := &stubProvider{name: "stub", err: &provider.RateLimitedError{Provider: "stub", RetryAfter: 2 * time.Second}}
	uc := newTestUsecase(t, stub)

	_, err := uc.FindDeals(context.Background(), dealsInput())
	require.ErrorIs(t, err, provider.ErrRateLimited)
	assert.Equal(t, 1, stub.callCount())
}

func TestFindDeals_ProviderSelection(t *testing.T) {
	uc := newTestUsecase(t)
	_, err := uc.FindDeals(context.Background(), dealsInput())
	assert.ErrorIs(t, err, provider.ErrProviderNotFound)

	first := &stubProvider{name: "first", respond: anaBusiness}
	second := &stubProvider{name: "second", respond: anaBusiness}
	uc = newTestUsecase(t, first, second)

	in := dealsInput()
	in.Provider = "second"
	out, err := uc.FindDeals(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "second", out.Metadata.Provider)
	assert.Zero(t, first.callCount())

	in.Provider = "missing"
	_, err = uc.FindDeals(context.Background(), in)
	assert.ErrorIs(t, err, provider.ErrProviderNotFound)
}

func TestFindDeals_InvalidInput(t *testing.T) {
	uc := newTestUsecase(t, &stubProvider{name: "stub", respond: anaBusiness})

	in := dealsInput()
	in.Origin = " "
	_, err := uc.FindDeals(context.Background(), in)
	assert.ErrorIs(t, err, valuation.ErrInvalidInput)

	in = dealsInput()
	in.FlexDays = valuation.MaxFlexDays + 1
	_, err = uc.FindDeals(context.Background(), in)
	assert.ErrorIs(t, err, valuation.ErrInvalidInput)
}

func TestFindDeals_FailedQuotesAreCounted(t *testing.T) {
	stub := &stubProvider{
		name:    "stub",
		respond: anaBusiness,
		failFor: func(q entity.AvailabilityQuery) error {
			if q.Cabin == entity.CabinFirst {
				return provider.ErrTemporary
			}
			return nil
		},
	}
	uc := newTestUsecase(t, stub)
	uc.maxProviderRetries = 0

	in := dealsInput()
	in.AlternativeCabins = []entity.CabinClass{entity.CabinFirst, entity.CabinEconomy}

	out, err := uc.FindDeals(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, 1, out.Metadata.QuotesFetched)
	assert.Equal(t, 1, out.Metadata.QuotesFailed)
	require.Len(t, out.Deals, 1)
	assert.Equal(t, entity.CabinBusiness, out.Deals[0].Itinerary.Cabin)
}

// limitedStub spends one request from its limiter per fetch, like the real
// providers do.
type limitedStub struct {
	*stubProvider
	limiter *provider.RateLimiter

	mu    sync.Mutex
	dates []time.Time
}

func (s *limitedStub) Limiter() *provider.RateLimiter { return s.limiter }

func (s *limitedStub) FetchAvailability(ctx context.Context, q entity.AvailabilityQuery) (*entity.Availability, error) {
	if d := s.limiter.TryAcquire(); !d.Allowed {
		return nil, &provider.RateLimitedError{Provider: s.name, RetryAfter: d.RetryAfter}
	}
	s.mu.Lock()
	s.dates = append(s.dates, q.DepartDate)
	s.mu.Unlock()
	return s.stubProvider.FetchAvailability(ctx, q)
}

func TestFindDeals_QuotesStayWithinProviderBudget(t *testing.T) {
	frozen := func() time.Time { return departDay }
	stub := &limitedStub{
		stubProvider: &stubProvider{name: "budget", respond: anaBusiness},
		limiter:      provider.NewRateLimiter(3, 0, provider.WithClock(frozen)),
	}
	uc := newTestUsecase(t, stub)

	in := dealsInput()
	in.FlexDays = 2
	out, err := uc.FindDeals(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, 2, out.Metadata.QuotesFetched)
	assert.Equal(t, 2, out.Metadata.QuotesSkipped)
	assert.Zero(t, out.Metadata.QuotesFailed, "no quote was rejected by the limiter")
	assert.Equal(t, 3, stub.callCount())

	// the search date first, then the nearest flex days
	require.Len(t, stub.dates, 3)
	assert.Equal(t, departDay, stub.dates[0])
	assert.ElementsMatch(t, []time.Time{departDay.AddDate(0, 0, -1), departDay.AddDate(0, 0, 1)}, stub.dates[1:])

	perMinute, _ := stub.limiter.Remaining()
	assert.Zero(t, perMinute)
}

func TestFindDeals_UnlimitedProviderQuotesEveryVariant(t *testing.T) {
	stub := &stubProvider{name: "open", respond: anaBusiness}
	uc := newTestUsecase(t, stub)

	in := dealsInput()
	in.FlexDays = 2
	out, err := uc.FindDeals(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, 4, out.Metadata.QuotesFetched)
	assert.Zero(t, out.Metadata.QuotesSkipped)
	assert.Equal(t, 5, stub.callCount())
}

func TestEvaluate(t *testing.T) {
	uc := newTestUsecase(t)

	out, err := uc.Evaluate(context.Background(), EvaluateInput{
		Itinerary: entity.FlightItinerary{Origin: "SFO", Destination: "NRT", DepartDate: departDay, Cabin: entity.CabinBusiness, Passengers: 1},
		Award:     entity.AwardPricing{Program: "ana", PointsCost: 70000, Taxes: 40, TotalCash: 40},
		Cash:      entity.CashPricing{TotalCost: 1800, BaseFare: 1700, Taxes: 100},
	})
	require.NoError(t, err)
	assert.Equal(t, entity.RatingExcellent, out.Calculation.Rating)
	assert.Equal(t, "Search award space on ANA Mileage Club", out.Instructions.Steps[0].Action)

	_, err = uc.Evaluate(context.Background(), EvaluateInput{})
	assert.ErrorIs(t, err, valuation.ErrInvalidInput)
}

func TestOptimize_UsesConfiguredPartners(t *testing.T) {
	uc := newTestUsecase(t)
	in := OptimizeInput{
		Itinerary: entity.FlightItinerary{Origin: "SFO", Destination: "NRT", DepartDate: departDay, Cabin: entity.CabinBusiness, Passengers: 1},
		Award:     entity.AwardPricing{Program: "ana", PointsCost: 70000, Taxes: 40, TotalCash: 40},
		Cash:      entity.CashPricing{TotalCost: 1800, BaseFare: 1700, Taxes: 100},
		Options:   valuation.Options{TransferBonusScenarios: []float64{25}},
	}

	out, err := uc.Optimize(context.Background(), in)
	require.NoError(t, err)
	require.NotNil(t, out.TransferFrom)
	assert.Equal(t, "amex_mr", *out.TransferFrom)
	require.NotNil(t, out.Bonus)
	assert.Equal(t, 56000, out.Calculation.Award.PointsCost)
	assert.Greater(t, out.Calculation.CPP, out.Baseline.CPP)
	assert.Equal(t, 3, out.Evaluated)

	in.Partners = []entity.TransferPartner{}
	out, err = uc.Optimize(context.Background(), in)
	require.NoError(t, err)
	assert.Nil(t, out.TransferFrom, "an explicit empty list disables transfers")
	assert.Equal(t, 1, out.Evaluated)
}

func TestProviders(t *testing.T) {
	uc := newTestUsecase(t, &stubProvider{name: "a", respond: anaBusiness}, &stubProvider{name: "b", respond: anaBusiness})

	out, err := uc.Providers(context.Background(), entity.ProviderTypeFlight)
	require.NoError(t, err)
	require.Len(t, out.Providers, 2)
	assert.Equal(t, "a", out.Providers[0].Name)
	assert.Equal(t, entity.HealthUnknown, out.Providers[0].Health.State)
}
