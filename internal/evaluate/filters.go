package evaluate

import (
	"time"

	"solana-sniper/internal/domain"
)

// Sell-dominance filter constants: with at least minTxnsForPressure combined
// 5-minute transactions, a buy ratio under minBuyRatio rejects.
const (
	minTxnsForPressure = 10
	minBuyRatio        = 0.5
)

// Thresholds are the risk-irrelevant evaluation settings.
type Thresholds struct {
	FreshnessWindow time.Duration
	MinLiquiditySOL float64
	MinMcapUSD      float64
	MaxMcapUSD      float64
	MinVolume5mSOL  float64

	TradeSizeLamports    uint64
	SlippageBps          int
	QuoteStabilityCapPct float64
	QuoteSpacing         time.Duration

	StrictAuthority bool
	MinHolderCount  int
	HolderTimeout   time.Duration

	MinScore float64
}

// applyCheapFilters runs every no-network filter, recording all applicable
// rejections rather than stopping at the first.
func applyCheapFilters(c *domain.PoolCandidate, th Thresholds, nowMs int64, res *domain.HardFilterResult) {
	if c.AgeMs(nowMs) > th.FreshnessWindow.Milliseconds() {
		res.Reject(domain.ReasonPoolTooOld)
	}

	if c.LiquiditySOL < th.MinLiquiditySOL {
		res.Reject(domain.ReasonLiquidityLow)
	}

	// Market-cap band: prefer mcap, fall back to FDV, skip with a warning
	// when neither is known.
	if cap := c.CapUSD(); cap == nil {
		res.Warn(domain.WarnMcapUnknown)
	} else if *cap < th.MinMcapUSD || *cap > th.MaxMcapUSD {
		res.Reject(domain.ReasonMcapOutOfRange)
	}

	if c.VolumeIn(5) < th.MinVolume5mSOL {
		res.Reject(domain.ReasonVolumeLow)
	}

	w5 := c.Window(5)
	if w5.Total() >= minTxnsForPressure && w5.BuyRatio() < minBuyRatio {
		res.Reject(domain.ReasonSellPressure)
	}
}
