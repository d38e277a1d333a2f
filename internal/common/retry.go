package common

import (
	"context"
	"log/slog"
	"time"
)

// maxBackoffExponent caps the shift in Backoff so the duration cannot overflow.
const maxBackoffExponent = 16

// Sleeper waits for d or until ctx is done, returning ctx.Err() in the latter case.
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep is the real-clock Sleeper.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Backoff returns the delay before the retry that follows the given attempt:
// 2^attempt seconds.
func Backoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > maxBackoffExponent {
		attempt = maxBackoffExponent
	}
	return time.Duration(1<<attempt) * time.Second
}

// RetryState records the progress of one logical call.
type RetryState struct {
	LastErr *APIError
	Attempt int
}

// RetryPolicy decides whether and when a failed attempt is retried.
type RetryPolicy struct {
	Backoff    func(attempt int) time.Duration
	Sleep      Sleeper
	Logger     *slog.Logger
	OnRetry    func(state RetryState, delay time.Duration)
	MaxRetries int
}

// ShouldRetry reports whether the failure recorded in state is eligible for
// another attempt.
func (p RetryPolicy) ShouldRetry(state RetryState) bool {
	return state.LastErr != nil &&
		state.Attempt < p.MaxRetries &&
		state.LastErr.Retryable()
}

// Retry runs op until it succeeds or the policy gives up. Attempts are strictly
// sequential; attempt N+1 starts only after attempt N and its backoff finished.
// A canceled ctx stops the loop without further attempts.
func Retry[T any](ctx context.Context, p RetryPolicy, op func(ctx context.Context, attempt int) (T, *APIError)) (T, *APIError) {
	if p.Backoff == nil {
		p.Backoff = Backoff
	}
	if p.Sleep == nil {
		p.Sleep = Sleep
	}
	if p.Logger == nil {
		p.Logger = slog.Default()
	}

	state := RetryState{Attempt: 1}
	for {
		result, apiErr := op(ctx, state.Attempt)
		if apiErr == nil {
			return result, nil
		}
		apiErr.Attempts = state.Attempt
		state.LastErr = apiErr

		if ctx.Err() != nil || !p.ShouldRetry(state) {
			var zero T
			return zero, apiErr
		}

		delay := p.Backoff(state.Attempt)
		p.Logger.Info("Retrying request",
			"attempt", state.Attempt+1,
			"max_attempts", p.MaxRetries,
			"delay", delay,
			"status", apiErr.Status)
		if p.OnRetry != nil {
			p.OnRetry(state, delay)
		}

		if err := p.Sleep(ctx, delay); err != nil {
			var zero T
			canceled := NewAPIError(StatusNetworkError, "request canceled")
			canceled.Err = err
			canceled.Attempts = state.Attempt
			canceled.Final = true
			return zero, canceled
		}
		state.Attempt++
	}
}
