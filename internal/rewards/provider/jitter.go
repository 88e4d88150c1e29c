package provider

import (
	"context"
	"crypto/rand"
	"math"
	"math/big"
	"time"
)

// jitter simulates upstream latency and transient failures for fixture
// providers. Randomness comes from crypto/rand so it is safe across goroutines.
type jitter struct {
	min         time.Duration
	max         time.Duration
	failureRate float64
}

func (j jitter) wait(ctx context.Context) error {
	delay := j.min
	if span := j.max - j.min; span > 0 {
		delay += time.Duration(randIntn(int64(span) + 1))
	}
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (j jitter) fail() bool {
	return j.failureRate > 0 && randFloat64() < j.failureRate
}

func randIntn(n int64) int64 {
	if n <= 0 {
		return 0
	}
	value, err := rand.Int(rand.Reader, big.NewInt(n))
	if err != nil {
		return 0
	}
	return value.Int64()
}

func randFloat64() float64 {
	return float64(randIntn(1<<53)) / math.Pow(2, 53)
}
