package provider

import (
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Decision is the outcome of a TryAcquire call. RetryAfter is only set when
// the request was rejected.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// RateLimiter enforces a per-minute and a per-hour budget for one provider.
// Each window keeps a log of its admissions and never holds more than its
// budget inside any span of that length; a token bucket on top paces bursts.
// Budget comes back one request at a time as old admissions age out, not all
// at once at a window boundary. It never blocks: callers get a rejection plus
// the wait and decide how to retry.
type RateLimiter struct {
	mu     sync.Mutex
	minute *window
	hour   *window
	now    func() time.Time
}

type LimiterOption func(*RateLimiter)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) LimiterOption {
	return func(r *RateLimiter) { r.now = now }
}

// NewRateLimiter builds a limiter. A non-positive budget leaves that window
// unlimited.
func NewRateLimiter(perMinute, perHour int, opts ...LimiterOption) *RateLimiter {
	r := &RateLimiter{
		minute: newWindow(perMinute, time.Minute),
		hour:   newWindow(perHour, time.Hour),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// window is one budget: a ring of admission times plus a bucket refilling
// at budget/span.
type window struct {
	span   time.Duration
	bucket *rate.Limiter
	log    []time.Time
	head   int
	count  int
}

func newWindow(budget int, span time.Duration) *window {
	if budget <= 0 {
		return nil
	}
	return &window{
		span:   span,
		bucket: rate.NewLimiter(rate.Limit(float64(budget)/span.Seconds()), budget),
		log:    make([]time.Time, budget),
	}
}

// evict drops admissions that are a full span old.
func (w *window) evict(now time.Time) {
	for w.count > 0 && !now.Before(w.log[w.head].Add(w.span)) {
		w.head = (w.head + 1) % len(w.log)
		w.count--
	}
}

// logWait is how long until the oldest admission leaves the span; zero when
// the log has room.
func (w *window) logWait(now time.Time) time.Duration {
	w.evict(now)
	if w.count < len(w.log) {
		return 0
	}
	return w.log[w.head].Add(w.span).Sub(now)
}

func (w *window) record(now time.Time) {
	w.log[(w.head+w.count)%len(w.log)] = now
	w.count++
}

func (w *window) remaining(now time.Time) int {
	w.evict(now)
	free := len(w.log) - w.count
	tokens := w.bucket.TokensAt(now)
	if tokens < 0 {
		return 0
	}
	return min(free, int(math.Floor(tokens)))
}

// TryAcquire takes one request from both windows or from neither.
func (r *RateLimiter) TryAcquire() Decision {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	windows := r.windows()
	reservations := make([]*rate.Reservation, 0, len(windows))
	var wait time.Duration
	for _, w := range windows {
		if d := w.logWait(now); d > wait {
			wait = d
		}
		res := w.bucket.ReserveN(now, 1)
		reservations = append(reservations, res)
		if !res.OK() {
			wait = time.Duration(math.MaxInt64)
			continue
		}
		if d := res.DelayFrom(now); d > wait {
			wait = d
		}
	}

	if wait > 0 {
		for _, res := range reservations {
			res.CancelAt(now)
		}
		return Decision{RetryAfter: wait}
	}

	for _, w := range windows {
		w.record(now)
	}
	return Decision{Allowed: true}
}

// Remaining reports whole requests left in each window; -1 means unlimited.
func (r *RateLimiter) Remaining() (perMinute, perHour int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	return remaining(r.minute, now), remaining(r.hour, now)
}

func (r *RateLimiter) windows() []*window {
	out := make([]*window, 0, 2)
	if r.minute != nil {
		out = append(out, r.minute)
	}
	if r.hour != nil {
		out = append(out, r.hour)
	}
	return out
}

func remaining(w *window, now time.Time) int {
	if w == nil {
		return -1
	}
	return w.remaining(now)
}
