package quote

import (
	"context"
	"time"
)

// Retry default configuration.
const (
	DefaultRetryAttempts = 3
	DefaultRetryDelay    = 500 * time.Millisecond
	DefaultRetryMaxDelay = 4 * time.Second
	DefaultRetryBackoff  = 2.0
)

// Retrier wraps a Provider with bounded retries and exponential backoff.
// The evaluator uses the default budget; advisory probes (sell-route checks)
// use a smaller one.
type Retrier struct {
	provider    Provider
	attempts    int
	delay       time.Duration
	maxDelay    time.Duration
	backoffMult float64
}

// RetrierOption configures Retrier.
type RetrierOption func(*Retrier)

// WithAttempts sets the total attempt count (minimum 1).
func WithAttempts(n int) RetrierOption {
	return func(r *Retrier) {
		if n >= 1 {
			r.attempts = n
		}
	}
}

// WithDelay sets the initial retry delay.
func WithDelay(d time.Duration) RetrierOption {
	return func(r *Retrier) {
		r.delay = d
	}
}

// WithMaxDelay sets the maximum retry delay.
func WithMaxDelay(d time.Duration) RetrierOption {
	return func(r *Retrier) {
		r.maxDelay = d
	}
}

// NewRetrier wraps provider with a retry budget.
func NewRetrier(provider Provider, opts ...RetrierOption) *Retrier {
	r := &Retrier{
		provider:    provider,
		attempts:    DefaultRetryAttempts,
		delay:       DefaultRetryDelay,
		maxDelay:    DefaultRetryMaxDelay,
		backoffMult: DefaultRetryBackoff,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Compile-time interface check.
var _ Provider = (*Retrier)(nil)

// GetQuote retries the underlying provider until an attempt succeeds or the
// budget is exhausted, honoring context cancellation between attempts.
func (r *Retrier) GetQuote(ctx context.Context, inputMint, outputMint string, amountRaw uint64, slippageBps int) (*Quote, error) {
	delay := r.delay
	var lastErr error

	for attempt := 0; attempt < r.attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * r.backoffMult)
			if delay > r.maxDelay {
				delay = r.maxDelay
			}
		}

		q, err := r.provider.GetQuote(ctx, inputMint, outputMint, amountRaw, slippageBps)
		if err == nil {
			return q, nil
		}
		lastErr = err
	}

	return nil, lastErr
}
