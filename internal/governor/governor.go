// Package governor serializes and throttles every outbound model call made
// by the refactoring loop. A single Governor is shared by all agents in the
// process: no two calls anywhere in the system start closer together than
// the configured minimum interval, and throttling responses are retried with
// bounded exponential backoff.
package governor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Transport sends one request payload to the model and returns the raw
// response text. Implementations signal throttling with *TransientLimitError
// and hard quota exhaustion with *QuotaExceededError.
type Transport interface {
	Send(ctx context.Context, prompt string) (string, error)
}

// TransientLimitError reports a throttling condition. The Governor retries
// these automatically; once its retry budget is spent the caller receives a
// TransientLimitError carrying the attempt count.
type TransientLimitError struct {
	Attempts int
	Err      error
}

func (e *TransientLimitError) Error() string {
	if e.Attempts > 0 {
		return fmt.Sprintf("model throttled after %d attempts: %v", e.Attempts, e.Err)
	}
	return fmt.Sprintf("model throttled: %v", e.Err)
}

func (e *TransientLimitError) Unwrap() error { return e.Err }

// QuotaExceededError reports a non-retryable limit such as daily quota
// exhaustion. It is always fatal; the Governor never retries it.
type QuotaExceededError struct {
	Err error
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("model quota exceeded: %v", e.Err)
}

func (e *QuotaExceededError) Unwrap() error { return e.Err }

// Governor enforces the minimum spacing between model calls and retries
// throttled calls with exponential backoff. It is safe for concurrent use;
// the spacing constraint is global across every caller sharing the instance.
type Governor struct {
	limiter     *rate.Limiter
	interval    time.Duration
	maxAttempts int

	mu        sync.Mutex
	lastStart time.Time
}

// New returns a Governor enforcing at least interval between call starts and
// retrying throttled calls up to maxAttempts times. Backoff waits are seeded
// from interval and double on each attempt.
func New(interval time.Duration, maxAttempts int) *Governor {
	if interval <= 0 {
		interval = time.Second
	}
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &Governor{
		limiter:     rate.NewLimiter(rate.Every(interval), 1),
		interval:    interval,
		maxAttempts: maxAttempts,
	}
}

// Interval returns the configured minimum spacing between calls.
func (g *Governor) Interval() time.Duration { return g.interval }

// LastCallStart returns the instant the most recent call began, or the zero
// time if no call has been issued yet.
func (g *Governor) LastCallStart() time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastStart
}

// Invoke issues one model call through transport, blocking first until the
// spacing requirement is satisfied. Throttling responses are retried up to
// the configured bound with exponentially growing waits. Quota exhaustion
// and any other error are returned to the caller unretried.
func (g *Governor) Invoke(ctx context.Context, transport Transport, prompt string) (string, error) {
	var lastErr error

	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		if attempt > 0 {
			// Exponential backoff seeded from the base interval.
			backoff := g.interval << (attempt - 1)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		if err := g.wait(ctx); err != nil {
			return "", err
		}

		response, err := transport.Send(ctx, prompt)
		if err == nil {
			return response, nil
		}

		var quotaErr *QuotaExceededError
		if errors.As(err, &quotaErr) {
			return "", err
		}

		var limitErr *TransientLimitError
		if !errors.As(err, &limitErr) {
			return "", err
		}
		lastErr = err
	}

	return "", &TransientLimitError{Attempts: g.maxAttempts, Err: lastErr}
}

// wait blocks until the spacing requirement is satisfied, then records the
// call start in shared state.
func (g *Governor) wait(ctx context.Context) error {
	if err := g.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("governor wait: %w", err)
	}
	g.mu.Lock()
	g.lastStart = time.Now()
	g.mu.Unlock()
	return nil
}
