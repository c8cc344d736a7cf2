// Package quote provides swap quote retrieval against a Jupiter-style
// aggregator API, with bounded retries, rate limiting and a transport
// circuit breaker.
package quote

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrQuoteUnavailable is returned when no route exists for the requested
// pair/amount or the aggregator cannot be reached.
var ErrQuoteUnavailable = errors.New("quote unavailable")

// Quote is one priced swap route.
type Quote struct {
	InputMint    string
	OutputMint   string
	InAmountRaw  uint64
	OutAmountRaw uint64
	SlippageBps  int

	PriceImpactPct float64
	RouteLabels    []string // AMM labels along the route, in order

	// Raw is the untouched aggregator response, required verbatim by the
	// swap-build endpoint.
	Raw json.RawMessage
}

// Hops returns the number of AMMs on the route.
func (q *Quote) Hops() int {
	return len(q.RouteLabels)
}

// Provider retrieves swap quotes.
type Provider interface {
	// GetQuote returns a priced route for swapping amountRaw of inputMint
	// into outputMint. Fails with ErrQuoteUnavailable when no route exists
	// or transport fails.
	GetQuote(ctx context.Context, inputMint, outputMint string, amountRaw uint64, slippageBps int) (*Quote, error)
}
