// Package lifecycle drives open positions through their exit ladder:
// profit tiers, trailing stop, stop loss, time stop and dust close.
package lifecycle

import (
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"solana-sniper/internal/domain"
)

var oneHundred = decimal.NewFromInt(100)

// ExitPlan is one sell action chosen for a position this cycle.
// At most one plan is produced per position per cycle.
type ExitPlan struct {
	Reason  string
	SellRaw uint64 // raw token units to request
}

// Manager evaluates exit conditions and applies fills to position state.
// It never touches the network; callers supply the current price.
type Manager struct {
	dustNotionalSOL decimal.Decimal
	log             zerolog.Logger
}

// NewManager creates a lifecycle manager. Positions whose remaining value
// drops under dustNotionalSOL are closed outright.
func NewManager(dustNotionalSOL decimal.Decimal, log zerolog.Logger) *Manager {
	return &Manager{
		dustNotionalSOL: dustNotionalSOL,
		log:             log.With().Str("component", "lifecycle").Logger(),
	}
}

// UpdateMetrics refreshes the derived fields on a position from the current
// price (SOL per whole token). High-water only ratchets upward.
func (m *Manager) UpdateMetrics(p *domain.Position, price decimal.Decimal, nowMs int64) {
	tokens := wholeTokens(p.QuantityLeft, p.Decimals)
	p.Metadata.CurrentValueSOL = price.Mul(tokens)
	p.Metadata.UnrealizedPnLPct = pnlPct(p.EntryPriceSOL, price)
	if price.GreaterThan(p.Metadata.HighWaterPrice) {
		p.Metadata.HighWaterPrice = price
	}
	p.Metadata.LastCheckedAt = nowMs
}

// SweepEmpty closes an open position that has nothing left to sell.
// Such records need no price and no swap, only the bookkeeping close.
// Returns true when the position was closed here.
func (m *Manager) SweepEmpty(p *domain.Position, nowMs int64) bool {
	if !p.IsOpen() || p.QuantityLeft > 0 {
		return false
	}

	closedAt := nowMs
	p.Status = domain.PositionClosed
	p.ClosedAt = &closedAt
	p.Metadata.LastExitReason = domain.ExitReasonZeroRemaining
	p.Metadata.LastCheckedAt = nowMs

	m.log.Info().
		Str("position_id", p.PositionID).
		Str("reason", domain.ExitReasonZeroRemaining).
		Msg("empty position closed")
	return true
}

// PlanExit picks at most one exit action for this cycle. Checks run in
// fixed priority order; a triggered check wins even if a later one would
// also fire. Callers must have run UpdateMetrics first.
func (m *Manager) PlanExit(p *domain.Position, price decimal.Decimal, nowMs int64) *ExitPlan {
	if !p.IsOpen() || p.QuantityLeft == 0 {
		return nil
	}

	// Remnants too small to ladder get swept in one shot.
	if p.Metadata.CurrentValueSOL.LessThan(m.dustNotionalSOL) {
		return &ExitPlan{Reason: domain.ExitReasonDustClose, SellRaw: p.QuantityLeft}
	}

	pnl := p.Metadata.UnrealizedPnLPct

	// Trailing outranks the tiers once armed: a reversal after TP1 exits
	// the rest before any higher tier is considered.
	if p.Metadata.TrailingArmed {
		drawdown := drawdownPct(p.Metadata.HighWaterPrice, price)
		if drawdown.GreaterThanOrEqual(p.Exits.TrailingPct) {
			return &ExitPlan{Reason: domain.ExitReasonTrailingStop, SellRaw: p.QuantityLeft}
		}
	}

	if !p.TP1Hit && pnl.GreaterThanOrEqual(p.Exits.TP1Pct) {
		return &ExitPlan{Reason: domain.ExitReasonTP1, SellRaw: tierQuantity(p, p.Exits.TP1Ratio)}
	}
	if p.TP1Hit && !p.TP2Hit && pnl.GreaterThanOrEqual(p.Exits.TP2Pct) {
		return &ExitPlan{Reason: domain.ExitReasonTP2, SellRaw: tierQuantity(p, p.Exits.TP2Ratio)}
	}
	if p.TP2Hit && !p.TP3Hit && pnl.GreaterThanOrEqual(p.Exits.TP3Pct) {
		return &ExitPlan{Reason: domain.ExitReasonTP3, SellRaw: p.QuantityLeft}
	}

	if pnl.LessThanOrEqual(p.Exits.StopLossPct.Neg()) {
		return &ExitPlan{Reason: domain.ExitReasonStopLoss, SellRaw: p.QuantityLeft}
	}

	if p.Exits.TimeStopMs > 0 && nowMs-p.OpenedAt >= p.Exits.TimeStopMs {
		return &ExitPlan{Reason: domain.ExitReasonTimeStop, SellRaw: p.QuantityLeft}
	}

	return nil
}

// ApplyFill folds a filled sell leg back into the position: the ledger is
// decremented by the REQUESTED amount so unsold remainder is never lost to
// slippage accounting, tier flags latch, realized P&L accumulates and the
// position closes when nothing is left.
func (m *Manager) ApplyFill(p *domain.Position, plan *ExitPlan, proceedsSOL decimal.Decimal, requestedRaw uint64, nowMs int64) {
	if requestedRaw > p.QuantityLeft {
		requestedRaw = p.QuantityLeft
	}
	p.QuantityLeft -= requestedRaw

	costBasis := p.EntryNotionalSOL.
		Mul(decimal.NewFromUint64(requestedRaw)).
		Div(decimal.NewFromUint64(p.QuantityAtEntry))
	p.Metadata.RealizedPnLSOL = p.Metadata.RealizedPnLSOL.Add(proceedsSOL.Sub(costBasis))
	p.Metadata.LastExitReason = plan.Reason

	switch plan.Reason {
	case domain.ExitReasonTP1:
		p.TP1Hit = true
		p.Metadata.TrailingArmed = true
	case domain.ExitReasonTP2:
		p.TP2Hit = true
	case domain.ExitReasonTP3:
		p.TP3Hit = true
	}

	if p.QuantityLeft == 0 {
		closedAt := nowMs
		p.Status = domain.PositionClosed
		p.ClosedAt = &closedAt
	}

	m.log.Info().
		Str("position_id", p.PositionID).
		Str("reason", plan.Reason).
		Uint64("sold_raw", requestedRaw).
		Uint64("left_raw", p.QuantityLeft).
		Str("realized_pnl_sol", p.Metadata.RealizedPnLSOL.String()).
		Bool("closed", !p.IsOpen()).
		Msg("exit applied")
}

// tierQuantity sizes a tier as a fraction of the ORIGINAL quantity, clamped
// to what is still held.
func tierQuantity(p *domain.Position, ratio decimal.Decimal) uint64 {
	qty := decimal.NewFromUint64(p.QuantityAtEntry).Mul(ratio).Floor()
	raw := uint64(qty.IntPart())
	if raw > p.QuantityLeft {
		raw = p.QuantityLeft
	}
	return raw
}

// wholeTokens converts raw units to whole tokens at the mint's decimals.
func wholeTokens(raw uint64, decimals int) decimal.Decimal {
	return decimal.NewFromUint64(raw).Shift(int32(-decimals))
}

// pnlPct is the percent change from entry to current price.
func pnlPct(entry, current decimal.Decimal) decimal.Decimal {
	if entry.IsZero() {
		return decimal.Zero
	}
	return current.Sub(entry).Div(entry).Mul(oneHundred)
}

// drawdownPct is the percent drop from the high-water price.
func drawdownPct(high, current decimal.Decimal) decimal.Decimal {
	if high.IsZero() {
		return decimal.Zero
	}
	return high.Sub(current).Div(high).Mul(oneHundred)
}
