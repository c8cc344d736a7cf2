package domain

import "github.com/shopspring/decimal"

// PositionStatus is the lifecycle state of a position.
type PositionStatus string

const (
	PositionOpen   PositionStatus = "OPEN"
	PositionClosed PositionStatus = "CLOSED"
)

// Exit reason codes for position lifecycle actions.
const (
	ExitReasonTP1           = "TP1"
	ExitReasonTP2           = "TP2"
	ExitReasonTP3           = "TP3"
	ExitReasonTrailingStop  = "TRAILING_STOP"
	ExitReasonStopLoss      = "STOP_LOSS"
	ExitReasonTimeStop      = "TIME_STOP"
	ExitReasonDustClose     = "DUST_CLOSE"
	ExitReasonZeroRemaining = "ZERO_REMAINING"
)

// ExitParams are the stop/target parameters governing one position.
// Snapshotted from config at open time; later config changes never alter
// in-flight positions.
type ExitParams struct {
	TP1Pct   decimal.Decimal // profit percent triggering tier 1
	TP1Ratio decimal.Decimal // fraction of original quantity sold at tier 1
	TP2Pct   decimal.Decimal
	TP2Ratio decimal.Decimal
	TP3Pct   decimal.Decimal // tier 3 sells all remaining

	StopLossPct decimal.Decimal // positive number, loss percent
	TrailingPct decimal.Decimal // drawdown from high-water price, arms after TP1
	TimeStopMs  int64           // max hold duration
}

// Position is an open or closed trade exposure on one token.
// Mutated every monitoring cycle and on every exit; immutable once closed.
type Position struct {
	PositionID string
	Mint       string
	PoolID     string
	Decimals   int

	Status   PositionStatus
	OpenedAt int64  // ms
	ClosedAt *int64 // ms, set when Status becomes CLOSED

	EntryPriceSOL    decimal.Decimal // SOL per whole token at entry
	EntryNotionalSOL decimal.Decimal // SOL spent at entry
	QuantityAtEntry  uint64          // raw token units received
	QuantityLeft     uint64          // raw token units still held

	// Monotonic tier flags: once true they stay true until close.
	TP1Hit bool
	TP2Hit bool
	TP3Hit bool

	Exits ExitParams

	// Metadata holds derived and rolling fields: current value, unrealized
	// P&L, high-water price, trailing arming state, realized P&L.
	Metadata PositionMetadata
}

// PositionMetadata is the free-form derived-field bag on a position.
// None of it participates in the raw-unit ledger.
type PositionMetadata struct {
	CurrentValueSOL  decimal.Decimal
	UnrealizedPnLPct decimal.Decimal
	RealizedPnLSOL   decimal.Decimal
	HighWaterPrice   decimal.Decimal
	TrailingArmed    bool
	LastCheckedAt    int64 // ms
	LastExitReason   string
}

// RemainingFraction returns QuantityLeft / QuantityAtEntry as a decimal.
func (p *Position) RemainingFraction() decimal.Decimal {
	if p.QuantityAtEntry == 0 {
		return decimal.Zero
	}
	return decimal.NewFromUint64(p.QuantityLeft).
		Div(decimal.NewFromUint64(p.QuantityAtEntry))
}

// AtRiskNotionalSOL returns the remaining-weighted entry notional:
// entryNotional * (quantityLeft / quantityAtEntry). Exposure shrinks
// proportionally with partial exits.
func (p *Position) AtRiskNotionalSOL() decimal.Decimal {
	return p.EntryNotionalSOL.Mul(p.RemainingFraction())
}

// IsOpen reports whether the position still holds quantity.
func (p *Position) IsOpen() bool {
	return p.Status == PositionOpen
}
