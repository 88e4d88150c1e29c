package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/ehfuzzz/Mile-Buy-Club-sub002/internal/rewards/entity"
	"github.com/ehfuzzz/Mile-Buy-Club-sub002/internal/rewards/provider"
	"github.com/ehfuzzz/Mile-Buy-Club-sub002/internal/rewards/valuation"
	"golang.org/x/sync/errgroup"
)

type DealsInput struct {
	Origin                 string
	Destination            string
	DepartDate             time.Time
	ReturnDate             *time.Time
	Cabin                  entity.CabinClass
	Passengers             int
	Program                string
	Provider               string
	FlexDays               int
	AlternativeCabins      []entity.CabinClass
	IncludeTransferBonuses bool
	TransferBonusScenarios []float64
}

type Deal struct {
	Provider     string
	Itinerary    entity.FlightItinerary
	Calculation  entity.ValueCalculation
	BaselineCPP  float64
	TransferFrom *string
	Bonus        *string
	Summary      string
	Instructions entity.BookingInstructions
}

type DealsMetadata struct {
	Provider       string
	AwardsFound    int
	QuotesFetched  int
	QuotesFailed   int
	QuotesSkipped  int
	SkippedAwards  int
	SearchTimeMs   int64
	CacheHit       bool
	EvaluatedTotal int
}

type DealsOutput struct {
	Query    entity.AvailabilityQuery
	Metadata DealsMetadata
	Deals    []Deal
}

var errProviderFailed = errors.New("provider fetch failed")

// FindDeals fetches award space from one flight provider, prices every award
// option through the optimizer and ranks the results by cents per point.
func (u *Usecase) FindDeals(ctx context.Context, in DealsInput) (*DealsOutput, error) {
	start := time.Now()

	query, err := normalizeDealsInput(in)
	if err != nil {
		return nil, err
	}

	cacheKey := buildCacheKey(in, query)
	if u.cache != nil {
		cached, ok, err := u.cache.Get(ctx, cacheKey)
		if err != nil {
			slog.WarnContext(ctx, "deals cache read failed", "error", err)
		} else if ok {
			cached.Metadata.CacheHit = true
			cached.Metadata.SearchTimeMs = time.Since(start).Milliseconds()
			return cached, nil
		}
	}

	p, err := u.pickProvider(in.Provider)
	if err != nil {
		return nil, err
	}

	availability, err := u.fetch(ctx, p, query)
	if err != nil {
		return nil, err
	}

	variants, skipped := withinBudget(query, quoteVariants(query, in.AlternativeCabins, in.FlexDays), provider.RemainingRequests(p))
	if skipped > 0 {
		slog.InfoContext(ctx, "quote variants trimmed to provider budget", "provider", p.Name(), "skipped", skipped)
	}
	extras, failed, err := u.fetchQuotes(ctx, p, variants)
	if err != nil {
		return nil, err
	}

	opts := valuation.Options{
		IncludeTransferBonuses: in.IncludeTransferBonuses,
		TransferBonusScenarios: in.TransferBonusScenarios,
		AlternativeCabins:      in.AlternativeCabins,
		FlexDays:               in.FlexDays,
	}

	output := &DealsOutput{
		Query: query,
		Metadata: DealsMetadata{
			Provider:      p.Name(),
			AwardsFound:   len(availability.Awards),
			QuotesFetched: len(variants) - failed,
			QuotesFailed:  failed,
			QuotesSkipped: skipped,
		},
		Deals: make([]Deal, 0, len(availability.Awards)),
	}

	it := itineraryFor(query, availability.Itinerary)
	for _, award := range availability.Awards {
		opts.Quotes = quotesFor(award.Program, variants, extras)
		res, err := u.optimizer.Search(it, award, availability.Cash, u.partners, opts)
		if err != nil {
			slog.WarnContext(ctx, "award option skipped", "provider", p.Name(), "program", award.Program, "error", err)
			output.Metadata.SkippedAwards++
			continue
		}
		baseline, err := u.engine.Evaluate(it, award, availability.Cash)
		if err != nil {
			output.Metadata.SkippedAwards++
			continue
		}

		output.Metadata.EvaluatedTotal += res.Evaluated
		output.Deals = append(output.Deals, Deal{
			Provider:     p.Name(),
			Itinerary:    res.Itinerary,
			Calculation:  res.Best,
			BaselineCPP:  baseline.CPP,
			TransferFrom: transferSource(res),
			Bonus:        bonusDescription(res),
			Summary:      res.Summary,
			Instructions: valuation.BuildInstructions(res.Itinerary, res.Best, u.programs),
		})
	}

	sortDeals(output.Deals)
	output.Metadata.SearchTimeMs = time.Since(start).Milliseconds()

	if u.cache != nil {
		if err := u.cache.Set(ctx, cacheKey, output, u.cacheTTL); err != nil {
			slog.WarnContext(ctx, "deals cache write failed", "error", err)
		}
	}

	return output, nil
}

func (u *Usecase) pickProvider(name string) (provider.Provider, error) {
	if strings.TrimSpace(name) != "" {
		return u.registry.GetProvider(entity.ProviderTypeFlight, name)
	}
	return u.registry.SelectProvider(entity.ProviderTypeFlight)
}

func (u *Usecase) fetch(ctx context.Context, p provider.Provider, q entity.AvailabilityQuery) (*entity.Availability, error) {
	if u.providerTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, u.providerTimeout)
		defer cancel()
	}
	return u.fetchWithRetry(ctx, p, q)
}

// fetchWithRetry retries transient upstream failures with a doubling backoff.
// Rate limit rejections come back to the caller untouched.
func (u *Usecase) fetchWithRetry(ctx context.Context, p provider.Provider, q entity.AvailabilityQuery) (*entity.Availability, error) {
	backoff := 80 * time.Millisecond
	for attempt := 0; attempt <= u.maxProviderRetries; attempt++ {
		availability, err := p.FetchAvailability(ctx, q)
		if err == nil {
			return availability, nil
		}
		if !errors.Is(err, provider.ErrTemporary) {
			return nil, err
		}
		if attempt == u.maxProviderRetries {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", provider.ErrProviderUnreachable, ctx.Err())
		case <-time.After(backoff):
			backoff *= 2
		}
	}
	return nil, errProviderFailed
}

// fetchQuotes prices the extra cabin and date variants concurrently. A failed
// variant is only counted; the search continues without it.
func (u *Usecase) fetchQuotes(ctx context.Context, p provider.Provider, variants []entity.AvailabilityQuery) ([]*entity.Availability, int, error) {
	extras := make([]*entity.Availability, len(variants))
	if len(variants) == 0 {
		return extras, 0, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(u.quoteConcurrency)
	for i, q := range variants {
		i, q := i, q
		g.Go(func() error {
			availability, err := u.fetch(gctx, p, q)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				slog.DebugContext(ctx, "quote fetch failed",
					"provider", p.Name(), "cabin", q.Cabin, "date", q.DepartDate.Format(time.DateOnly), "error", err)
				return nil
			}
			extras[i] = availability
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	failed := 0
	for _, availability := range extras {
		if availability == nil {
			failed++
		}
	}
	return extras, failed, nil
}

// quoteVariants lists every cabin and date combination other than q itself.
func quoteVariants(q entity.AvailabilityQuery, alternatives []entity.CabinClass, flexDays int) []entity.AvailabilityQuery {
	cabins := []entity.CabinClass{q.Cabin}
	for _, c := range alternatives {
		if c != q.Cabin && !containsCabin(cabins, c) {
			cabins = append(cabins, c)
		}
	}

	var out []entity.AvailabilityQuery
	for _, cabin := range cabins {
		for offset := -flexDays; offset <= flexDays; offset++ {
			if cabin == q.Cabin && offset == 0 {
				continue
			}
			variant := q
			variant.Cabin = cabin
			variant.DepartDate = q.DepartDate.AddDate(0, 0, offset)
			if q.ReturnDate != nil {
				ret := q.ReturnDate.AddDate(0, 0, offset)
				variant.ReturnDate = &ret
			}
			out = append(out, variant)
		}
	}
	return out
}

// withinBudget keeps the variants closest to the requested date when the
// provider cannot admit all of them, and reports how many were dropped.
// A negative budget means the provider is not limited.
func withinBudget(q entity.AvailabilityQuery, variants []entity.AvailabilityQuery, budget int) ([]entity.AvailabilityQuery, int) {
	if budget < 0 || len(variants) <= budget {
		return variants, 0
	}
	sort.SliceStable(variants, func(i, j int) bool {
		return absDuration(variants[i].DepartDate.Sub(q.DepartDate)) < absDuration(variants[j].DepartDate.Sub(q.DepartDate))
	})
	return variants[:budget], len(variants) - budget
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

// quotesFor picks, from each extra availability, the cheapest award in
// program together with that availability's cash fare.
func quotesFor(program string, variants []entity.AvailabilityQuery, extras []*entity.Availability) map[valuation.QuoteKey]valuation.Quote {
	quotes := make(map[valuation.QuoteKey]valuation.Quote)
	for i, availability := range extras {
		if availability == nil {
			continue
		}
		var best *entity.AwardPricing
		for i := range availability.Awards {
			award := &availability.Awards[i]
			if !strings.EqualFold(award.Program, program) {
				continue
			}
			if best == nil || award.PointsCost < best.PointsCost {
				best = award
			}
		}
		if best == nil {
			continue
		}
		key := valuation.NewQuoteKey(variants[i].Cabin, variants[i].DepartDate)
		quotes[key] = valuation.Quote{Award: *best, Cash: availability.Cash}
	}
	return quotes
}

func sortDeals(deals []Deal) {
	sort.SliceStable(deals, func(i, j int) bool {
		a, b := deals[i].Calculation, deals[j].Calculation
		if a.CPP != b.CPP {
			return a.CPP > b.CPP
		}
		return a.Award.PointsCost < b.Award.PointsCost
	})
}

func normalizeDealsInput(in DealsInput) (entity.AvailabilityQuery, error) {
	var errs []error
	origin := strings.ToUpper(strings.TrimSpace(in.Origin))
	destination := strings.ToUpper(strings.TrimSpace(in.Destination))
	if origin == "" {
		errs = append(errs, errors.New("origin is required"))
	}
	if destination == "" {
		errs = append(errs, errors.New("destination is required"))
	}
	if in.DepartDate.IsZero() {
		errs = append(errs, errors.New("depart date is required"))
	}
	if in.ReturnDate != nil && in.ReturnDate.Before(in.DepartDate) {
		errs = append(errs, errors.New("return date precedes depart date"))
	}
	if in.Passengers < 0 {
		errs = append(errs, errors.New("passengers must not be negative"))
	}
	if in.FlexDays < 0 || in.FlexDays > valuation.MaxFlexDays {
		errs = append(errs, fmt.Errorf("flex days must be between 0 and %d", valuation.MaxFlexDays))
	}
	if len(errs) > 0 {
		return entity.AvailabilityQuery{}, fmt.Errorf("%w: %w", valuation.ErrInvalidInput, errors.Join(errs...))
	}

	cabin := in.Cabin
	if cabin == "" {
		cabin = entity.CabinEconomy
	}

	return entity.AvailabilityQuery{
		Origin:      origin,
		Destination: destination,
		DepartDate:  in.DepartDate,
		ReturnDate:  in.ReturnDate,
		Cabin:       cabin,
		Passengers:  max(in.Passengers, 1),
		Program:     strings.ToLower(strings.TrimSpace(in.Program)),
	}, nil
}

func containsCabin(cabins []entity.CabinClass, c entity.CabinClass) bool {
	for _, existing := range cabins {
		if existing == c {
			return true
		}
	}
	return false
}
