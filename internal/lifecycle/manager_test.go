package lifecycle

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-sniper/internal/domain"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var testNowMs = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC).UnixMilli()

func testExits() domain.ExitParams {
	return domain.ExitParams{
		TP1Pct:      dec("40"),
		TP1Ratio:    dec("0.4"),
		TP2Pct:      dec("100"),
		TP2Ratio:    dec("0.3"),
		TP3Pct:      dec("250"),
		StopLossPct: dec("25"),
		TrailingPct: dec("15"),
		TimeStopMs:  (2 * time.Hour).Milliseconds(),
	}
}

// openPosition holds 1_000_000 raw units (1.0 token at 6 decimals) bought
// for 0.1 SOL, so entry price is 0.1 SOL per token.
func openPosition() *domain.Position {
	return &domain.Position{
		PositionID:       "pos-1",
		Mint:             "mint-1",
		Decimals:         6,
		Status:           domain.PositionOpen,
		OpenedAt:         testNowMs - (10 * time.Minute).Milliseconds(),
		EntryPriceSOL:    dec("0.1"),
		EntryNotionalSOL: dec("0.1"),
		QuantityAtEntry:  1_000_000,
		QuantityLeft:     1_000_000,
		Exits:            testExits(),
		Metadata:         domain.PositionMetadata{HighWaterPrice: dec("0.1")},
	}
}

func newTestManager() *Manager {
	return NewManager(dec("0.001"), zerolog.Nop())
}

func check(m *Manager, p *domain.Position, price decimal.Decimal) *ExitPlan {
	m.UpdateMetrics(p, price, testNowMs)
	return m.PlanExit(p, price, testNowMs)
}

func TestPlanExit_NoActionInsideBand(t *testing.T) {
	m := newTestManager()
	p := openPosition()

	assert.Nil(t, check(m, p, dec("0.11")), "+10% triggers nothing")
	assert.Equal(t, dec("10").String(), p.Metadata.UnrealizedPnLPct.Round(2).String())
}

func TestPlanExit_TP1SellsOriginalFraction(t *testing.T) {
	m := newTestManager()
	p := openPosition()

	plan := check(m, p, dec("0.15")) // +50%
	require.NotNil(t, plan)
	assert.Equal(t, domain.ExitReasonTP1, plan.Reason)
	assert.Equal(t, uint64(400_000), plan.SellRaw, "0.4 of original quantity")
}

func TestPlanExit_TiersAreSequential(t *testing.T) {
	// A price jump past TP2 before TP1 has fired still exits via TP1 first.
	m := newTestManager()
	p := openPosition()

	plan := check(m, p, dec("0.25")) // +150%
	require.NotNil(t, plan)
	assert.Equal(t, domain.ExitReasonTP1, plan.Reason)

	m.ApplyFill(p, plan, dec("0.1"), plan.SellRaw, testNowMs)
	require.True(t, p.TP1Hit)

	plan = check(m, p, dec("0.25"))
	require.NotNil(t, plan)
	assert.Equal(t, domain.ExitReasonTP2, plan.Reason)
	assert.Equal(t, uint64(300_000), plan.SellRaw, "0.3 of original, not of remaining")
}

func TestPlanExit_TP3SellsEverything(t *testing.T) {
	m := newTestManager()
	p := openPosition()
	p.TP1Hit = true
	p.TP2Hit = true
	p.QuantityLeft = 300_000

	plan := check(m, p, dec("0.36")) // +260%
	require.NotNil(t, plan)
	assert.Equal(t, domain.ExitReasonTP3, plan.Reason)
	assert.Equal(t, uint64(300_000), plan.SellRaw)
}

func TestPlanExit_StopLoss(t *testing.T) {
	m := newTestManager()
	p := openPosition()

	plan := check(m, p, dec("0.07")) // -30%
	require.NotNil(t, plan)
	assert.Equal(t, domain.ExitReasonStopLoss, plan.Reason)
	assert.Equal(t, p.QuantityLeft, plan.SellRaw)
}

func TestPlanExit_TimeStop(t *testing.T) {
	m := newTestManager()
	p := openPosition()
	p.OpenedAt = testNowMs - (3 * time.Hour).Milliseconds()

	plan := check(m, p, dec("0.1")) // flat, but too old
	require.NotNil(t, plan)
	assert.Equal(t, domain.ExitReasonTimeStop, plan.Reason)
}

func TestPlanExit_TrailingArmsAfterTP1AndOutranksTiers(t *testing.T) {
	m := newTestManager()
	p := openPosition()

	// Unarmed: a pullback from the high does nothing on its own.
	check(m, p, dec("0.13"))
	assert.Nil(t, check(m, p, dec("0.11")))

	// TP1 fires and arms the trailing stop.
	plan := check(m, p, dec("0.15"))
	require.NotNil(t, plan)
	m.ApplyFill(p, plan, dec("0.06"), plan.SellRaw, testNowMs)
	require.True(t, p.Metadata.TrailingArmed)

	// New high-water at 0.30, then a 20% drop: trailing wins even though
	// the price is still above the TP2 threshold.
	check(m, p, dec("0.30"))
	plan = check(m, p, dec("0.24"))
	require.NotNil(t, plan)
	assert.Equal(t, domain.ExitReasonTrailingStop, plan.Reason)
	assert.Equal(t, p.QuantityLeft, plan.SellRaw)
}

func TestPlanExit_DustClose(t *testing.T) {
	m := newTestManager()
	p := openPosition()
	p.QuantityLeft = 5_000 // 0.005 token worth 0.0005 SOL at entry price

	plan := check(m, p, dec("0.1"))
	require.NotNil(t, plan)
	assert.Equal(t, domain.ExitReasonDustClose, plan.Reason)
	assert.Equal(t, uint64(5_000), plan.SellRaw)
}

func TestSweepEmpty_ClosesZeroQuantityPosition(t *testing.T) {
	m := newTestManager()
	p := openPosition()
	p.QuantityLeft = 0

	require.True(t, m.SweepEmpty(p, testNowMs))
	assert.False(t, p.IsOpen())
	require.NotNil(t, p.ClosedAt)
	assert.Equal(t, testNowMs, *p.ClosedAt)
	assert.Equal(t, domain.ExitReasonZeroRemaining, p.Metadata.LastExitReason)

	// Held or already-closed positions are left alone.
	assert.False(t, m.SweepEmpty(openPosition(), testNowMs))
	assert.False(t, m.SweepEmpty(p, testNowMs), "closed positions never sweep twice")
}

func TestApplyFill_LedgerAndRealizedPnL(t *testing.T) {
	m := newTestManager()
	p := openPosition()

	plan := &ExitPlan{Reason: domain.ExitReasonTP1, SellRaw: 400_000}
	// Sold 0.4 token for 0.06 SOL against a 0.04 SOL cost basis.
	m.ApplyFill(p, plan, dec("0.06"), 400_000, testNowMs)

	assert.Equal(t, uint64(600_000), p.QuantityLeft)
	assert.True(t, p.TP1Hit)
	assert.True(t, p.Metadata.TrailingArmed)
	assert.True(t, p.IsOpen())
	assert.Equal(t, "0.02", p.Metadata.RealizedPnLSOL.String())

	// At-risk exposure shrank proportionally.
	assert.Equal(t, "0.06", p.AtRiskNotionalSOL().String())
}

func TestApplyFill_FullExitCloses(t *testing.T) {
	m := newTestManager()
	p := openPosition()

	plan := &ExitPlan{Reason: domain.ExitReasonStopLoss, SellRaw: p.QuantityLeft}
	m.ApplyFill(p, plan, dec("0.07"), p.QuantityLeft, testNowMs)

	assert.False(t, p.IsOpen())
	require.NotNil(t, p.ClosedAt)
	assert.Equal(t, testNowMs, *p.ClosedAt)
	assert.Zero(t, p.QuantityLeft)
	assert.Equal(t, domain.ExitReasonStopLoss, p.Metadata.LastExitReason)
}

func TestApplyFill_RequestedClampsToHeld(t *testing.T) {
	m := newTestManager()
	p := openPosition()
	p.QuantityLeft = 100_000

	plan := &ExitPlan{Reason: domain.ExitReasonTP2, SellRaw: 300_000}
	m.ApplyFill(p, plan, dec("0.01"), 300_000, testNowMs)

	assert.Zero(t, p.QuantityLeft, "ledger never goes negative")
	assert.False(t, p.IsOpen())
}

func TestUpdateMetrics_HighWaterOnlyRatchets(t *testing.T) {
	m := newTestManager()
	p := openPosition()

	m.UpdateMetrics(p, dec("0.2"), testNowMs)
	assert.Equal(t, "0.2", p.Metadata.HighWaterPrice.String())

	m.UpdateMetrics(p, dec("0.15"), testNowMs)
	assert.Equal(t, "0.2", p.Metadata.HighWaterPrice.String(), "high-water never falls")
	assert.Equal(t, "0.15", p.Metadata.CurrentValueSOL.String())
}
