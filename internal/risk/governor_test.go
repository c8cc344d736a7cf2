package risk

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-sniper/internal/domain"
)

func testCaps() Caps {
	return Caps{
		MaxAtRiskSOL:     decimal.RequireFromString("2.0"),
		MaxTradesPerHour: 10,
		TokenCooldown:    30 * time.Minute,
	}
}

func cleanSnapshot() domain.RiskSnapshot {
	return domain.RiskSnapshot{
		AtRiskSOL:         decimal.Zero,
		LastTradeAtByMint: map[string]int64{},
		TakenAt:           time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC).UnixMilli(),
	}
}

func TestCanOpenPosition_AllowsCleanState(t *testing.T) {
	v := CanOpenPosition(testCaps(), cleanSnapshot(), "mintA", decimal.RequireFromString("0.5"))
	assert.True(t, v.Allow)
	assert.Empty(t, v.Reasons)
}

func TestCanOpenPosition_KillSwitchDominates(t *testing.T) {
	// Kill switch must block regardless of every other input.
	snap := cleanSnapshot()
	snap.KillSwitchActive = true

	v := CanOpenPosition(testCaps(), snap, "mintA", decimal.Zero)
	assert.False(t, v.Allow)
	assert.Contains(t, v.Reasons, domain.ReasonKillSwitchActive)
}

func TestCanOpenPosition_BreakerOpenBlocks(t *testing.T) {
	snap := cleanSnapshot()
	snap.Breaker.Open = true

	v := CanOpenPosition(testCaps(), snap, "mintA", decimal.RequireFromString("0.1"))
	assert.False(t, v.Allow)
	assert.Contains(t, v.Reasons, domain.ReasonCircuitBreakerOpen)
}

func TestCanOpenPosition_TokenCooldown(t *testing.T) {
	snap := cleanSnapshot()
	snap.LastTradeAtByMint["mintA"] = snap.TakenAt - (10 * time.Minute).Milliseconds()

	v := CanOpenPosition(testCaps(), snap, "mintA", decimal.RequireFromString("0.1"))
	assert.False(t, v.Allow)
	assert.Contains(t, v.Reasons, domain.ReasonTokenCooldown)

	// Other mints are unaffected.
	v = CanOpenPosition(testCaps(), snap, "mintB", decimal.RequireFromString("0.1"))
	assert.True(t, v.Allow)

	// Elapsed cooldown clears the block.
	snap.LastTradeAtByMint["mintA"] = snap.TakenAt - (31 * time.Minute).Milliseconds()
	v = CanOpenPosition(testCaps(), snap, "mintA", decimal.RequireFromString("0.1"))
	assert.True(t, v.Allow)
}

func TestCanOpenPosition_TradeRateCap(t *testing.T) {
	snap := cleanSnapshot()
	snap.TradesLastHour = 10

	v := CanOpenPosition(testCaps(), snap, "mintA", decimal.RequireFromString("0.1"))
	assert.False(t, v.Allow)
	assert.Contains(t, v.Reasons, domain.ReasonTradeRateCap)
}

func TestCanOpenPosition_ProjectedAtRisk(t *testing.T) {
	snap := cleanSnapshot()
	snap.AtRiskSOL = decimal.RequireFromString("1.8")

	// 1.8 + 0.5 > 2.0 blocks.
	v := CanOpenPosition(testCaps(), snap, "mintA", decimal.RequireFromString("0.5"))
	assert.False(t, v.Allow)
	assert.Contains(t, v.Reasons, domain.ReasonMaxAtRiskExceeded)

	// 1.8 + 0.2 == 2.0 is allowed at the cap.
	v = CanOpenPosition(testCaps(), snap, "mintA", decimal.RequireFromString("0.2"))
	assert.True(t, v.Allow)
}

func TestCanOpenPosition_AllReasonsRecorded(t *testing.T) {
	// No short-circuiting: every triggered reason shows up.
	snap := cleanSnapshot()
	snap.KillSwitchActive = true
	snap.Breaker.Open = true
	snap.TradesLastHour = 99
	snap.AtRiskSOL = decimal.RequireFromString("5.0")
	snap.LastTradeAtByMint["mintA"] = snap.TakenAt

	v := CanOpenPosition(testCaps(), snap, "mintA", decimal.RequireFromString("1.0"))
	assert.False(t, v.Allow)
	assert.Len(t, v.Reasons, 5)
}

func TestAtRiskNotional_ShrinksWithPartialExits(t *testing.T) {
	full := &domain.Position{
		Status:           domain.PositionOpen,
		EntryNotionalSOL: decimal.RequireFromString("1.0"),
		QuantityAtEntry:  1_000_000,
		QuantityLeft:     1_000_000,
	}
	half := &domain.Position{
		Status:           domain.PositionOpen,
		EntryNotionalSOL: decimal.RequireFromString("1.0"),
		QuantityAtEntry:  1_000_000,
		QuantityLeft:     500_000,
	}
	closed := &domain.Position{
		Status:           domain.PositionClosed,
		EntryNotionalSOL: decimal.RequireFromString("9.0"),
		QuantityAtEntry:  1_000_000,
		QuantityLeft:     0,
	}

	total := AtRiskNotional([]*domain.Position{full, half, closed})
	assert.True(t, total.Equal(decimal.RequireFromString("1.5")), "got %s", total)
}

func TestKillSwitch(t *testing.T) {
	dir := t.TempDir()
	marker := filepath.Join(dir, "halt")

	ks := NewKillSwitch(marker)
	assert.False(t, ks.Active())

	require.NoError(t, os.WriteFile(marker, nil, 0o644))
	assert.True(t, ks.Active())

	require.NoError(t, os.Remove(marker))
	assert.False(t, ks.Active())

	assert.False(t, NewKillSwitch("").Active(), "empty path disables the switch")
}
