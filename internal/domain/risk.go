package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CircuitBreakerState is the observable breaker snapshot.
// Ephemeral, process-lifetime only; never re-hydrated across restarts.
type CircuitBreakerState struct {
	ConsecutiveFailures int
	Open                bool
	ReopensAt           *time.Time // cooldown expiry when Open
}

// RiskSnapshot is derived each cycle from position and trade history,
// never stored independently.
type RiskSnapshot struct {
	KillSwitchActive  bool
	AtRiskSOL         decimal.Decimal // sum of open positions' remaining-weighted entry notional
	TradesLastHour    int
	LastTradeAtByMint map[string]int64 // ms, for per-token cooldown
	Breaker           CircuitBreakerState
	TakenAt           int64 // ms
}

// CachedPrice is an explicit cache value object for a reference price
// (e.g. SOL/USD), owned and refreshed by the orchestrator.
type CachedPrice struct {
	Value     decimal.Decimal
	ExpiresAt time.Time
}

// Valid reports whether the cached value is still usable at t.
func (c CachedPrice) Valid(t time.Time) bool {
	return !c.Value.IsZero() && t.Before(c.ExpiresAt)
}
