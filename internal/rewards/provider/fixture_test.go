package provider

import (
	"context"
	"testing"
	"time"

	"github.com/ehfuzzz/Mile-Buy-Club-sub002/internal/rewards/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixtureProvider(opts ...FixtureOption) *FixtureFlightProvider {
	opts = append([]FixtureOption{WithLatency(0, 0, 0)}, opts...)
	return NewFixtureFlightProvider(entity.ProviderConfig{
		Name:        "fixture",
		FixturePath: "testdata/award_search.json",
		Timeout:     time.Second,
	}, opts...)
}

func TestFixtureFlightProvider_FetchAvailability(t *testing.T) {
	p := fixtureProvider()

	availability, err := p.FetchAvailability(context.Background(), testQuery())
	require.NoError(t, err)

	require.Len(t, availability.Awards, 2)
	ana := availability.Awards[0]
	assert.Equal(t, "ana", ana.Program)
	assert.Equal(t, 70000, ana.PointsCost)
	assert.InDelta(t, 40, ana.TotalCash, 1e-9)
	require.True(t, ana.TransferRequired)
	assert.Equal(t, "amex_mr", *ana.TransferFrom)
	assert.Equal(t, "2-3 days", *ana.TransferTime)
	assert.NoError(t, ana.Validate())

	// cheapest cash fare among the matches wins
	assert.InDelta(t, 1800, availability.Cash.TotalCost, 1e-9)
	require.Len(t, availability.Itinerary.Segments, 1)
	seg := availability.Itinerary.Segments[0]
	assert.Equal(t, "NH7", seg.FlightNumber)
	assert.Equal(t, 670, seg.Duration)
	assert.Equal(t, entity.CabinBusiness, seg.Cabin)
	assert.Equal(t, "787-9", *seg.Aircraft)
	assert.NoError(t, availability.Itinerary.Validate())
}

func TestFixtureFlightProvider_Filters(t *testing.T) {
	p := fixtureProvider()

	q := testQuery()
	q.Program = "united"
	availability, err := p.FetchAvailability(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, availability.Awards, 1)
	assert.Equal(t, 88000, availability.Awards[0].PointsCost)

	q = testQuery()
	q.Cabin = entity.CabinEconomy
	availability, err = p.FetchAvailability(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, availability.Awards, 1)
	assert.Equal(t, 35000, availability.Awards[0].PointsCost)

	q = testQuery()
	q.DepartDate = q.DepartDate.AddDate(0, 0, 5)
	availability, err = p.FetchAvailability(context.Background(), q)
	require.NoError(t, err)
	assert.Empty(t, availability.Awards)
}

func TestFixtureFlightProvider_RateLimited(t *testing.T) {
	clock := newFakeClock()
	p := fixtureProvider(WithFixtureLimiter(NewRateLimiter(1, 10, WithClock(clock.Now))))

	_, err := p.FetchAvailability(context.Background(), testQuery())
	require.NoError(t, err)
	_, err = p.FetchAvailability(context.Background(), testQuery())
	assert.ErrorIs(t, err, ErrRateLimited)

	// health checks do not spend budget
	assert.True(t, p.HealthCheck(context.Background()).Reachable)
}

func TestFixtureFlightProvider_MissingFile(t *testing.T) {
	p := NewFixtureFlightProvider(entity.ProviderConfig{Name: "gone", FixturePath: "testdata/missing.json"}, WithLatency(0, 0, 0))

	res := p.HealthCheck(context.Background())
	assert.False(t, res.Reachable)
	assert.ErrorIs(t, res.Err, ErrProviderUnreachable)

	_, err := p.FetchAvailability(context.Background(), testQuery())
	assert.Error(t, err)
}

func TestFixtureFlightProvider_TransientFailure(t *testing.T) {
	p := fixtureProvider(WithLatency(0, 0, 1))
	_, err := p.FetchAvailability(context.Background(), testQuery())
	assert.ErrorIs(t, err, ErrTemporary)
}

func TestFixtureFlightProvider_CancelledContext(t *testing.T) {
	p := fixtureProvider(WithLatency(time.Second, time.Second, 0))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.FetchAvailability(ctx, testQuery())
	assert.ErrorIs(t, err, ErrProviderUnreachable)
}
