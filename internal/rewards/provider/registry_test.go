package provider

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ehfuzzz/Mile-Buy-Club-sub002/internal/rewards/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	name      string
	typ       entity.ProviderType
	reachable atomic.Bool
	checks    atomic.Int32
	block     chan struct{}
	panics    bool
}

func newStub(name string, typ entity.ProviderType, reachable bool) *stubProvider {
	s := &stubProvider{name: name, typ: typ}
	s.reachable.Store(reachable)
	return s
}

func (s *stubProvider) Name() string              { return s.name }
func (s *stubProvider) Type() entity.ProviderType { return s.typ }

func (s *stubProvider) FetchAvailability(context.Context, entity.AvailabilityQuery) (*entity.Availability, error) {
	return &entity.Availability{Provider: s.name}, nil
}

func (s *stubProvider) HealthCheck(context.Context) HealthResult {
	s.checks.Add(1)
	if s.panics {
		panic("health check exploded")
	}
	if s.block != nil {
		// ignores its context on purpose
		<-s.block
	}
	if s.reachable.Load() {
		return HealthResult{Reachable: true, Latency: time.Millisecond}
	}
	return HealthResult{Err: errors.New("connection refused")}
}

// gatedHandler holds any record with the given message until gate closes.
type gatedHandler struct {
	msg  string
	gate chan struct{}
}

func (h *gatedHandler) Enabled(context.Context, slog.Level) bool { return true }
func (h *gatedHandler) WithAttrs([]slog.Attr) slog.Handler        { return h }
func (h *gatedHandler) WithGroup(string) slog.Handler             { return h }

func (h *gatedHandler) Handle(_ context.Context, rec slog.Record) error {
	if rec.Message == h.msg {
		<-h.gate
	}
	return nil
}

func quietRegistry(opts ...RegistryOption) *Registry {
	opts = append([]RegistryOption{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	return NewRegistry(opts...)
}

func TestRegistry_RegisterRejectsDuplicates(t *testing.T) {
	r := quietRegistry()
	first := newStub("seats", entity.ProviderTypeFlight, true)
	second := newStub("seats", entity.ProviderTypeFlight, true)

	require.NoError(t, r.RegisterProvider(entity.ProviderTypeFlight, "seats", first))
	err := r.RegisterProvider(entity.ProviderTypeFlight, "seats", second)
	require.ErrorIs(t, err, ErrDuplicateProvider)

	got, err := r.GetProvider(entity.ProviderTypeFlight, "seats")
	require.NoError(t, err)
	assert.Same(t, first, got)

	// same name under another type is a different key
	assert.NoError(t, r.RegisterProvider(entity.ProviderTypeHotel, "seats", newStub("seats", entity.ProviderTypeHotel, true)))
}

func TestRegistry_ListProvidersByType(t *testing.T) {
	r := quietRegistry()
	require.NoError(t, r.RegisterProvider(entity.ProviderTypeFlight, "zeta", newStub("zeta", entity.ProviderTypeFlight, true)))
	require.NoError(t, r.RegisterProvider(entity.ProviderTypeHotel, "inns", newStub("inns", entity.ProviderTypeHotel, true)))
	require.NoError(t, r.RegisterProvider(entity.ProviderTypeFlight, "alpha", newStub("alpha", entity.ProviderTypeFlight, true)))

	assert.Equal(t, []string{"zeta", "alpha"}, r.ListProviders(entity.ProviderTypeFlight))
	assert.Equal(t, []string{"inns"}, r.ListProviders(entity.ProviderTypeHotel))
}

func TestRegistry_GetProviderNotFound(t *testing.T) {
	r := quietRegistry()
	_, err := r.GetProvider(entity.ProviderTypeFlight, "missing")
	assert.ErrorIs(t, err, ErrProviderNotFound)

	_, err = r.Health(entity.ProviderTypeFlight, "missing")
	assert.ErrorIs(t, err, ErrProviderNotFound)

	_, err = r.SelectProvider(entity.ProviderTypeFlight)
	assert.ErrorIs(t, err, ErrProviderNotFound)
}

func TestRegistry_FailuresAccumulateUntilSuccess(t *testing.T) {
	r := quietRegistry(WithFailureThreshold(3))
	bad := newStub("bad", entity.ProviderTypeFlight, false)
	good := newStub("good", entity.ProviderTypeFlight, true)
	require.NoError(t, r.RegisterProvider(entity.ProviderTypeFlight, "bad", bad))
	require.NoError(t, r.RegisterProvider(entity.ProviderTypeFlight, "good", good))

	status, err := r.Health(entity.ProviderTypeFlight, "bad")
	require.NoError(t, err)
	assert.Equal(t, entity.HealthUnknown, status.State)

	previous := 0
	for tick := 1; tick <= 5; tick++ {
		r.CheckNow(context.Background())
		status, err := r.Health(entity.ProviderTypeFlight, "bad")
		require.NoError(t, err)
		assert.Equal(t, entity.HealthUnreachable, status.State)
		assert.Greater(t, status.ConsecutiveFailures, previous)
		assert.Equal(t, tick >= 3, status.Degraded, "tick %d", tick)
		assert.Equal(t, "connection refused", status.LastError)
		previous = status.ConsecutiveFailures
	}

	selected, err := r.SelectProvider(entity.ProviderTypeFlight)
	require.NoError(t, err)
	assert.Equal(t, "good", selected.Name())

	bad.reachable.Store(true)
	r.CheckNow(context.Background())
	status, err = r.Health(entity.ProviderTypeFlight, "bad")
	require.NoError(t, err)
	assert.Equal(t, entity.HealthHealthy, status.State)
	assert.Zero(t, status.ConsecutiveFailures)
	assert.False(t, status.Degraded)

	// degraded providers are never unregistered
	assert.Equal(t, []string{"bad", "good"}, r.ListProviders(entity.ProviderTypeFlight))
}

func TestRegistry_SelectProviderAllDegraded(t *testing.T) {
	r := quietRegistry(WithFailureThreshold(1))
	require.NoError(t, r.RegisterProvider(entity.ProviderTypeFlight, "bad", newStub("bad", entity.ProviderTypeFlight, false)))

	r.CheckNow(context.Background())

	_, err := r.SelectProvider(entity.ProviderTypeFlight)
	assert.ErrorIs(t, err, ErrNoHealthyProvider)
}

func TestRegistry_SlowCheckDoesNotBlockOthers(t *testing.T) {
	r := quietRegistry(WithCheckTimeout(50 * time.Millisecond))
	hung := newStub("hung", entity.ProviderTypeFlight, true)
	hung.block = make(chan struct{})
	t.Cleanup(func() { close(hung.block) })
	fast := newStub("fast", entity.ProviderTypeFlight, true)

	require.NoError(t, r.RegisterProvider(entity.ProviderTypeFlight, "hung", hung))
	require.NoError(t, r.RegisterProvider(entity.ProviderTypeFlight, "fast", fast))

	start := time.Now()
	r.CheckNow(context.Background())
	assert.Less(t, time.Since(start), time.Second)

	hungStatus, _ := r.Health(entity.ProviderTypeFlight, "hung")
	fastStatus, _ := r.Health(entity.ProviderTypeFlight, "fast")
	assert.Equal(t, entity.HealthUnreachable, hungStatus.State)
	assert.Contains(t, hungStatus.LastError, "exceeded")
	assert.Equal(t, entity.HealthHealthy, fastStatus.State)
}

func TestRegistry_PanickingCheckIsUnreachable(t *testing.T) {
	r := quietRegistry()
	p := newStub("wild", entity.ProviderTypeFlight, true)
	p.panics = true
	require.NoError(t, r.RegisterProvider(entity.ProviderTypeFlight, "wild", p))

	r.CheckNow(context.Background())

	status, _ := r.Health(entity.ProviderTypeFlight, "wild")
	assert.Equal(t, entity.HealthUnreachable, status.State)
	assert.Contains(t, status.LastError, "panicked")
}

func TestRegistry_HealthLoopLifecycle(t *testing.T) {
	r := quietRegistry()
	p := newStub("seats", entity.ProviderTypeFlight, true)
	require.NoError(t, r.RegisterProvider(entity.ProviderTypeFlight, "seats", p))

	require.True(t, r.StartHealthCheckLoop(10*time.Millisecond))
	assert.False(t, r.StartHealthCheckLoop(10*time.Millisecond), "second start is a no-op")

	assert.Eventually(t, func() bool { return p.checks.Load() >= 3 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, r.StopHealthCheckLoop(ctx))

	stopped := p.checks.Load()
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, stopped, p.checks.Load())

	assert.True(t, r.StartHealthCheckLoop(time.Hour), "loop can be restarted after stop")
	require.NoError(t, r.StopHealthCheckLoop(ctx))
	assert.NoError(t, r.StopHealthCheckLoop(ctx), "stopping a stopped loop is fine")
}

func TestRegistry_HealthLoopStopTimeoutKeepsLoopOwned(t *testing.T) {
	gate := make(chan struct{})
	r := NewRegistry(WithLogger(slog.New(&gatedHandler{msg: "health check loop stopped", gate: gate})))
	require.True(t, r.StartHealthCheckLoop(time.Hour))

	expired, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := r.StopHealthCheckLoop(expired)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	// the first loop has not exited, so no second loop may start
	assert.False(t, r.StartHealthCheckLoop(time.Hour))

	close(gate)
	ctx, cancelWait := context.WithTimeout(context.Background(), time.Second)
	defer cancelWait()
	require.NoError(t, r.StopHealthCheckLoop(ctx))

	assert.True(t, r.StartHealthCheckLoop(time.Hour))
	require.NoError(t, r.StopHealthCheckLoop(ctx))
}

func TestRegistry_RejectsUnknownProviderType(t *testing.T) {
	r := quietRegistry()
	err := r.RegisterProvider("car", "rental", newStub("rental", "car", true))
	require.Error(t, err)
	assert.Empty(t, r.ListProviders("car"))

	hotel := newStub("inns", entity.ProviderTypeHotel, true)
	require.NoError(t, r.RegisterProvider(entity.ProviderTypeHotel, "inns", hotel))
	r.CheckNow(context.Background())

	// every accepted provider is covered by a health round
	assert.EqualValues(t, 1, hotel.checks.Load())
	status, err := r.Health(entity.ProviderTypeHotel, "inns")
	require.NoError(t, err)
	assert.Equal(t, entity.HealthHealthy, status.State)
}

type messageCounter struct {
	mu   sync.Mutex
	seen map[string]int
}

func (h *messageCounter) Enabled(context.Context, slog.Level) bool { return true }
func (h *messageCounter) WithAttrs([]slog.Attr) slog.Handler        { return h }
func (h *messageCounter) WithGroup(string) slog.Handler             { return h }

func (h *messageCounter) Handle(_ context.Context, rec slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seen[rec.Message]++
	return nil
}

func TestRegistry_RegisterFlightProviderLogsOnce(t *testing.T) {
	counter := &messageCounter{seen: map[string]int{}}
	r := NewRegistry(WithLogger(slog.New(counter)))

	_, err := r.RegisterFlightProvider(entity.ProviderConfig{Name: "award-api", Kind: "http", BaseURL: "http://127.0.0.1:1"})
	require.NoError(t, err)

	counter.mu.Lock()
	defer counter.mu.Unlock()
	assert.Equal(t, 1, counter.seen["provider registered"])
}

func TestRegistry_Snapshot(t *testing.T) {
	r := quietRegistry()
	require.NoError(t, r.RegisterProvider(entity.ProviderTypeFlight, "a", newStub("a", entity.ProviderTypeFlight, true)))
	require.NoError(t, r.RegisterProvider(entity.ProviderTypeFlight, "b", newStub("b", entity.ProviderTypeFlight, false)))
	r.CheckNow(context.Background())

	snap := r.Snapshot(entity.ProviderTypeFlight)
	require.Len(t, snap, 2)
	assert.Equal(t, "a", snap[0].Name)
	assert.Equal(t, entity.HealthHealthy, snap[0].Health.State)
	assert.Equal(t, entity.HealthUnreachable, snap[1].Health.State)
	assert.Empty(t, r.Snapshot(entity.ProviderTypeHotel))
}

func TestRegistry_RegisterFlightProvider(t *testing.T) {
	r := quietRegistry()
	_, err := r.RegisterFlightProvider(entity.ProviderConfig{Name: "award-api", Kind: "http", BaseURL: "http://127.0.0.1:1"})
	require.NoError(t, err)
	_, err = r.RegisterFlightProvider(entity.ProviderConfig{Name: "award-api", Kind: "http", BaseURL: "http://127.0.0.1:2"})
	assert.ErrorIs(t, err, ErrDuplicateProvider)

	_, err = r.RegisterFlightProvider(entity.ProviderConfig{Name: "broken", Kind: "carrier-pigeon"})
	assert.Error(t, err)
}
