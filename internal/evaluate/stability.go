package evaluate

import (
	"context"

	"solana-sniper/internal/quote"
)

// stabilityProbeCount is the number of independent quotes sampled.
const stabilityProbeCount = 3

// stabilityResult holds the outcome of the quote-stability probe.
type stabilityResult struct {
	// Representative is the second quote by fetch order (median by order,
	// not by value) so downstream pricing never reacts to the single most
	// extreme sample.
	Representative *quote.Quote
	SpreadPct      float64
}

// probeQuoteStability fetches three independent buy quotes for the fixed
// trade size with small spacing between calls and computes (max-min)/avg of
// the output amounts as a percent.
func (e *Evaluator) probeQuoteStability(ctx context.Context, outputMint string) (*stabilityResult, error) {
	quotes := make([]*quote.Quote, 0, stabilityProbeCount)

	for i := 0; i < stabilityProbeCount; i++ {
		if i > 0 {
			if err := e.sleep(ctx, e.thresholds.QuoteSpacing); err != nil {
				return nil, err
			}
		}

		q, err := e.quotes.GetQuote(ctx, e.baseMint, outputMint,
			e.thresholds.TradeSizeLamports, e.thresholds.SlippageBps)
		if err != nil {
			return nil, err
		}
		quotes = append(quotes, q)
	}

	return &stabilityResult{
		Representative: quotes[1],
		SpreadPct:      spreadPct(quotes),
	}, nil
}

func spreadPct(quotes []*quote.Quote) float64 {
	minOut := quotes[0].OutAmountRaw
	maxOut := quotes[0].OutAmountRaw
	var sum float64

	for _, q := range quotes {
		if q.OutAmountRaw < minOut {
			minOut = q.OutAmountRaw
		}
		if q.OutAmountRaw > maxOut {
			maxOut = q.OutAmountRaw
		}
		sum += float64(q.OutAmountRaw)
	}

	avg := sum / float64(len(quotes))
	if avg == 0 {
		return 0
	}
	return float64(maxOut-minOut) / avg * 100
}
