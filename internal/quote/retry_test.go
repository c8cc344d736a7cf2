package quote

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider fails a fixed number of times before succeeding.
type fakeProvider struct {
	failures int
	calls    int
	quote    *Quote
}

func (f *fakeProvider) GetQuote(_ context.Context, inputMint, outputMint string, amountRaw uint64, slippageBps int) (*Quote, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, ErrQuoteUnavailable
	}
	if f.quote != nil {
		return f.quote, nil
	}
	return &Quote{
		InputMint:    inputMint,
		OutputMint:   outputMint,
		InAmountRaw:  amountRaw,
		OutAmountRaw: amountRaw * 2,
		SlippageBps:  slippageBps,
		RouteLabels:  []string{"Raydium"},
	}, nil
}

func TestRetrier_SucceedsAfterTransientFailures(t *testing.T) {
	fake := &fakeProvider{failures: 2}
	r := NewRetrier(fake, WithAttempts(3), WithDelay(time.Millisecond))

	q, err := r.GetQuote(context.Background(), "in", "out", 1000, 100)
	require.NoError(t, err)
	assert.Equal(t, uint64(2000), q.OutAmountRaw)
	assert.Equal(t, 3, fake.calls)
}

func TestRetrier_ExhaustsBudget(t *testing.T) {
	fake := &fakeProvider{failures: 10}
	r := NewRetrier(fake, WithAttempts(2), WithDelay(time.Millisecond))

	_, err := r.GetQuote(context.Background(), "in", "out", 1000, 100)
	assert.ErrorIs(t, err, ErrQuoteUnavailable)
	assert.Equal(t, 2, fake.calls)
}

func TestRetrier_SingleAttemptBudget(t *testing.T) {
	// Advisory probes run with a one-attempt budget: no retry at all.
	fake := &fakeProvider{failures: 1}
	r := NewRetrier(fake, WithAttempts(1), WithDelay(time.Millisecond))

	_, err := r.GetQuote(context.Background(), "in", "out", 1000, 100)
	assert.ErrorIs(t, err, ErrQuoteUnavailable)
	assert.Equal(t, 1, fake.calls)
}

func TestRetrier_ContextCancelledBetweenAttempts(t *testing.T) {
	fake := &fakeProvider{failures: 10}
	r := NewRetrier(fake, WithAttempts(5), WithDelay(50*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.GetQuote(ctx, "in", "out", 1000, 100)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, fake.calls)
}
