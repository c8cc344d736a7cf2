package evaluate

import (
	"solana-sniper/internal/domain"
	"solana-sniper/internal/quote"
)

// Score component budgets. Components clamp to their own sub-range and the
// total clamps to [0,100].
const (
	maxFreshnessScore = 30.0
	maxFlowScore      = 40.0
	maxRouteScore     = 15.0

	maxTxnAccelScore   = 15.0
	maxBuyRatioScore   = 10.0
	maxVolAccelScore   = 10.0
	maxMomentumScore   = 5.0
	txnAccelSaturation = 3.0 // acceleration ratio at which the sub-score maxes out

	authorityPenaltyStrict     = 15.0
	authorityPenaltyPermissive = 8.0
	maxInstabilityPenalty      = 10.0
	sellPressurePenalty        = 5.0
)

// computeScore produces the composite quality score for a candidate.
// Always computed, independent of filter outcome, and deterministic given
// candidate + quote + filter context.
func computeScore(c *domain.PoolCandidate, q *quote.Quote, res *domain.HardFilterResult, th Thresholds, nowMs int64) domain.ScoreResult {
	freshness := freshnessScore(c, th, nowMs)
	flow := flowScore(c)
	route := routeScore(q)
	penalties := penaltyScore(res, th)

	total := clamp(freshness+flow+route-penalties, 0, 100)

	return domain.ScoreResult{
		Total:     total,
		Freshness: freshness,
		Flow:      flow,
		Route:     route,
		Penalties: penalties,
	}
}

// freshnessScore decays linearly from the maximum to zero across the
// freshness window.
func freshnessScore(c *domain.PoolCandidate, th Thresholds, nowMs int64) float64 {
	window := float64(th.FreshnessWindow.Milliseconds())
	if window <= 0 {
		return 0
	}
	age := float64(c.AgeMs(nowMs))
	return clamp(maxFreshnessScore*(1-age/window), 0, maxFreshnessScore)
}

// flowScore blends transaction acceleration, buy ratio, volume acceleration
// and short-term momentum, each clamped to its own sub-range.
func flowScore(c *domain.PoolCandidate) float64 {
	w5 := c.Window(5)
	w60 := c.Window(60)

	// 5-minute txn rate vs the rolling hourly baseline.
	rate5 := float64(w5.Total()) / 5
	baseline := float64(w60.Total()) / 60
	accel := 1.0
	if baseline > 0 {
		accel = rate5 / baseline
	}
	txnScore := clamp(accel/txnAccelSaturation, 0, 1) * maxTxnAccelScore

	// Buy dominance above 0.5 scales to the full sub-range.
	buyScore := clamp((w5.BuyRatio()-0.5)*2, 0, 1) * maxBuyRatioScore

	// 5-minute volume vs the hourly per-5m average.
	volBaseline := c.VolumeIn(60) / 12
	volAccel := 1.0
	if volBaseline > 0 {
		volAccel = c.VolumeIn(5) / volBaseline
	}
	volScore := clamp(volAccel/txnAccelSaturation, 0, 1) * maxVolAccelScore

	// Short-term momentum: 5-minute price change, saturating at +30%.
	momentumScore := clamp(c.PriceChangeIn(5)/30, 0, 1) * maxMomentumScore

	return clamp(txnScore+buyScore+volScore+momentumScore, 0, maxFlowScore)
}

// routeScore rewards fewer hops and lower price impact. Zero without a quote.
func routeScore(q *quote.Quote) float64 {
	if q == nil {
		return 0
	}

	var hopScore float64
	switch q.Hops() {
	case 0, 1:
		hopScore = 10
	case 2:
		hopScore = 6
	default:
		hopScore = 2
	}

	impactScore := clamp(5-q.PriceImpactPct*2, 0, 5)

	return clamp(hopScore+impactScore, 0, maxRouteScore)
}

// penaltyScore subtracts for authority exposure, quote instability and sell
// pressure.
func penaltyScore(res *domain.HardFilterResult, th Thresholds) float64 {
	var penalty float64

	if res.Authority != nil && res.Authority.Risky() {
		if th.StrictAuthority {
			penalty += authorityPenaltyStrict
		} else {
			penalty += authorityPenaltyPermissive
		}
	}

	if res.QuoteStabilityPct != nil {
		penalty += clamp(*res.QuoteStabilityPct, 0, maxInstabilityPenalty)
	}

	if res.HasReason(domain.ReasonSellPressure) {
		penalty += sellPressurePenalty
	}

	return penalty
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
