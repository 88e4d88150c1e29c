package provider

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ehfuzzz/Mile-Buy-Club-sub002/internal/rewards/entity"
)

const DefaultHealthInterval = 30 * time.Second

// StartHealthCheckLoop checks every provider right away and then once per
// interval until StopHealthCheckLoop is called. It returns false, and does
// nothing, while a loop is still running, including one that was asked to
// stop but has not exited yet.
func (r *Registry) StartHealthCheckLoop(interval time.Duration) bool {
	r.loopMu.Lock()
	defer r.loopMu.Unlock()

	if r.done != nil {
		select {
		case <-r.done:
			r.cancel, r.done = nil, nil
		default:
			return false
		}
	}
	if interval <= 0 {
		interval = DefaultHealthInterval
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	r.cancel, r.done = cancel, done

	go func() {
		defer close(done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		r.logger.Info("health check loop started", "interval", interval.String())
		r.CheckNow(ctx)
		for {
			select {
			case <-ctx.Done():
				r.logger.Info("health check loop stopped")
				return
			case <-ticker.C:
				r.CheckNow(ctx)
			}
		}
	}()

	return true
}

// StopHealthCheckLoop stops the loop and waits for the round in flight, or
// for ctx to expire. The loop stays registered until it has exited, so a
// stop that times out can be retried.
func (r *Registry) StopHealthCheckLoop(ctx context.Context) error {
	r.loopMu.Lock()
	defer r.loopMu.Unlock()

	if r.done == nil {
		return nil
	}
	r.cancel()

	select {
	case <-r.done:
		r.cancel, r.done = nil, nil
		return nil
	case <-ctx.Done():
		return fmt.Errorf("stop health check loop: %w", ctx.Err())
	}
}

// CheckNow runs one round: a concurrent, individually bounded check per
// provider. It returns once every check has finished or timed out.
func (r *Registry) CheckNow(ctx context.Context) {
	regs := r.registrations()

	var wg sync.WaitGroup
	for _, reg := range regs {
		wg.Add(1)
		go func(reg *registration) {
			defer wg.Done()
			r.check(ctx, reg)
		}(reg)
	}
	wg.Wait()
}

func (r *Registry) check(ctx context.Context, reg *registration) {
	checkCtx, cancel := context.WithTimeout(ctx, r.checkTimeout)
	defer cancel()

	// buffered so an abandoned check can still finish and exit
	resCh := make(chan HealthResult, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				resCh <- HealthResult{Err: fmt.Errorf("health check panicked: %v", p)}
			}
		}()
		resCh <- reg.provider.HealthCheck(checkCtx)
	}()

	var res HealthResult
	select {
	case res = <-resCh:
	case <-checkCtx.Done():
		if ctx.Err() != nil {
			return
		}
		res = HealthResult{
			Latency: r.checkTimeout,
			Err:     fmt.Errorf("%w: health check exceeded %s", ErrProviderUnreachable, r.checkTimeout),
		}
	}

	r.record(reg, res)
}

func (r *Registry) record(reg *registration, res HealthResult) {
	reg.mu.Lock()
	prev := reg.health
	next := prev
	next.LastCheck = r.now()
	next.LastLatency = res.Latency

	if res.Reachable {
		next.State = entity.HealthHealthy
		next.ConsecutiveFailures = 0
		next.LastError = ""
	} else {
		next.State = entity.HealthUnreachable
		next.ConsecutiveFailures++
		next.LastError = errorText(res.Err)
	}
	next.Degraded = next.ConsecutiveFailures >= r.failureThreshold
	reg.health = next
	reg.mu.Unlock()

	logger := r.logger.With("type", reg.typ, "name", reg.name)
	switch {
	case next.Degraded && !prev.Degraded:
		logger.Warn("provider degraded", "consecutive_failures", next.ConsecutiveFailures, "error", next.LastError)
	case !next.Degraded && prev.Degraded:
		logger.Info("provider recovered", "latency", next.LastLatency.String())
	case prev.State != next.State:
		logger.Info("provider health changed", "from", prev.State, "to", next.State, "error", next.LastError)
	default:
		logger.Debug("provider health checked", "state", next.State, "latency", next.LastLatency.String())
	}
}

func errorText(err error) string {
	if err == nil {
		return ErrProviderUnreachable.Error()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Sprintf("%s: %s", ErrProviderUnreachable, "timed out")
	}
	return err.Error()
}
