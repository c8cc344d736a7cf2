package clickhouse

import (
	"context"
	"fmt"
	"time"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/storage"
)

// AnalyticsStore implements storage.AnalyticsSink using ClickHouse.
// Rows are append-only mirrors; the MergeTree tables enforce no uniqueness,
// so callers are responsible for writing each event once.
type AnalyticsStore struct {
	conn *Conn
}

// NewAnalyticsStore creates a new AnalyticsStore.
func NewAnalyticsStore(conn *Conn) *AnalyticsStore {
	return &AnalyticsStore{conn: conn}
}

// Compile-time interface check.
var _ storage.AnalyticsSink = (*AnalyticsStore)(nil)

// RecordDecision mirrors an evaluated decision.
func (s *AnalyticsStore) RecordDecision(ctx context.Context, d *domain.StrategyDecision) error {
	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO decision_events (
			decision_id, pool_id, mint, evaluated_at, should_trade,
			score_total, rejection_reasons, warnings,
			quote_stability, price_impact, summary
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare decision batch: %w", err)
	}

	reasons := make([]string, len(d.Filter.Reasons))
	for i, r := range d.Filter.Reasons {
		reasons[i] = string(r)
	}
	warnings := make([]string, len(d.Filter.Warnings))
	for i, w := range d.Filter.Warnings {
		warnings[i] = string(w)
	}

	err = batch.Append(
		d.DecisionID, d.PoolID, d.Mint, time.UnixMilli(d.EvaluatedAt), boolToUInt8(d.ShouldTrade),
		d.Score.Total, reasons, warnings,
		d.Filter.QuoteStabilityPct, d.Filter.PriceImpactPct, d.Summary,
	)
	if err != nil {
		return fmt.Errorf("append decision: %w", err)
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send decision batch: %w", err)
	}
	return nil
}

// RecordTrade mirrors a completed or failed trade.
func (s *AnalyticsStore) RecordTrade(ctx context.Context, t *domain.Trade) error {
	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO trade_events (
			trade_id, position_id, mode, side, status,
			input_mint, output_mint, requested_raw, received_raw,
			signature, error, route_summary, confirm_latency,
			exit_reason, created_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare trade batch: %w", err)
	}

	err = batch.Append(
		t.TradeID, t.PositionID, string(t.Mode), string(t.Side), string(t.Status),
		t.InputMint, t.OutputMint, t.RequestedRaw, t.ReceivedRaw,
		derefString(t.Signature), derefString(t.Error), t.RouteSummary, t.ConfirmLatency,
		t.ExitReason, time.UnixMilli(t.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("append trade: %w", err)
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send trade batch: %w", err)
	}
	return nil
}

// CountDecisions returns the number of mirrored decisions for a pool.
func (s *AnalyticsStore) CountDecisions(ctx context.Context, poolID string) (uint64, error) {
	var count uint64
	err := s.conn.QueryRow(ctx,
		`SELECT count(*) FROM decision_events WHERE pool_id = ?`, poolID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count decisions: %w", err)
	}
	return count, nil
}

// CountTrades returns the number of mirrored trades for a mint.
func (s *AnalyticsStore) CountTrades(ctx context.Context, mint string) (uint64, error) {
	var count uint64
	err := s.conn.QueryRow(ctx,
		`SELECT count(*) FROM trade_events WHERE input_mint = ? OR output_mint = ?`, mint, mint).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count trades: %w", err)
	}
	return count, nil
}

func boolToUInt8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
