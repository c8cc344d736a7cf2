package risk

import (
	"time"

	"github.com/shopspring/decimal"

	"solana-sniper/internal/domain"
)

// Caps are the hard limits the governor enforces on new entries.
type Caps struct {
	MaxAtRiskSOL     decimal.Decimal
	MaxTradesPerHour int
	TokenCooldown    time.Duration
}

// Verdict is the governor's decision on one planned entry.
type Verdict struct {
	Allow   bool
	Reasons []domain.RejectionReason
}

// CanOpenPosition decides whether a new entry on mint with plannedNotional is
// permitted. Pure function; every applicable reason is evaluated and
// recorded, none short-circuits the others. Allows only with zero reasons.
func CanOpenPosition(caps Caps, snap domain.RiskSnapshot, mint string, plannedNotional decimal.Decimal) Verdict {
	var reasons []domain.RejectionReason

	if snap.KillSwitchActive {
		reasons = append(reasons, domain.ReasonKillSwitchActive)
	}

	if snap.Breaker.Open {
		reasons = append(reasons, domain.ReasonCircuitBreakerOpen)
	}

	if lastMs, ok := snap.LastTradeAtByMint[mint]; ok {
		elapsed := time.Duration(snap.TakenAt-lastMs) * time.Millisecond
		if elapsed < caps.TokenCooldown {
			reasons = append(reasons, domain.ReasonTokenCooldown)
		}
	}

	if caps.MaxTradesPerHour > 0 && snap.TradesLastHour >= caps.MaxTradesPerHour {
		reasons = append(reasons, domain.ReasonTradeRateCap)
	}

	projected := snap.AtRiskSOL.Add(plannedNotional)
	if projected.GreaterThan(caps.MaxAtRiskSOL) {
		reasons = append(reasons, domain.ReasonMaxAtRiskExceeded)
	}

	return Verdict{
		Allow:   len(reasons) == 0,
		Reasons: reasons,
	}
}

// AtRiskNotional sums remaining-weighted entry notional across open positions.
func AtRiskNotional(positions []*domain.Position) decimal.Decimal {
	total := decimal.Zero
	for _, p := range positions {
		if p.IsOpen() {
			total = total.Add(p.AtRiskNotionalSOL())
		}
	}
	return total
}
