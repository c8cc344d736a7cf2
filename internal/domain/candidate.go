package domain

// WindowStats holds buy/sell transaction counts for one rolling window.
type WindowStats struct {
	Buys  int
	Sells int
}

// Total returns combined buy and sell count.
func (w WindowStats) Total() int {
	return w.Buys + w.Sells
}

// BuyRatio returns buys / (buys + sells), or 0.5 when the window is empty.
func (w WindowStats) BuyRatio() float64 {
	total := w.Total()
	if total == 0 {
		return 0.5
	}
	return float64(w.Buys) / float64(total)
}

// PoolCandidate represents a discovered liquidity pool under evaluation.
// Immutable once fetched; re-fetched each cycle and deduplicated by PoolID
// against the seen-pool set.
type PoolCandidate struct {
	PoolID    string // pool address, dedupe key
	BaseMint  string // token being traded
	QuoteMint string // pool quote side (usually wrapped SOL)
	TradeMint string // mint the agent would buy
	DEX       string // source DEX identifier

	CreatedAt int64 // pool creation timestamp (ms)
	FetchedAt int64 // snapshot timestamp (ms)

	LiquiditySOL float64 // pool liquidity in SOL

	// Rolling windows keyed by minutes: 5, 15, 30, 60.
	Txns   map[int]WindowStats
	Volume map[int]float64 // SOL-denominated volume per window

	PriceChangePct map[int]float64 // percent change per window

	MarketCapUSD *float64 // nullable, some sources omit it
	FDVUSD       *float64 // fully-diluted value, nullable
}

// AgeMs returns pool age in milliseconds at the given time.
func (c *PoolCandidate) AgeMs(nowMs int64) int64 {
	return nowMs - c.CreatedAt
}

// Window returns stats for the given window, zero value if absent.
func (c *PoolCandidate) Window(minutes int) WindowStats {
	if c.Txns == nil {
		return WindowStats{}
	}
	return c.Txns[minutes]
}

// VolumeIn returns SOL volume for the given window, 0 if absent.
func (c *PoolCandidate) VolumeIn(minutes int) float64 {
	if c.Volume == nil {
		return 0
	}
	return c.Volume[minutes]
}

// PriceChangeIn returns percent price change for the given window, 0 if absent.
func (c *PoolCandidate) PriceChangeIn(minutes int) float64 {
	if c.PriceChangePct == nil {
		return 0
	}
	return c.PriceChangePct[minutes]
}

// CapUSD returns market cap if known, else FDV, else nil.
func (c *PoolCandidate) CapUSD() *float64 {
	if c.MarketCapUSD != nil {
		return c.MarketCapUSD
	}
	return c.FDVUSD
}
