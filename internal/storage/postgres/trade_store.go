package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/storage"
)

// TradeStore implements storage.TradeStore using PostgreSQL.
// Raw token quantities are stored as BIGINT; lamport and raw-unit amounts
// never approach the signed 64-bit ceiling in practice.
type TradeStore struct {
	pool *Pool
}

// NewTradeStore creates a new TradeStore.
func NewTradeStore(pool *Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeStore = (*TradeStore)(nil)

const tradeColumns = `
	trade_id, position_id, mode, side, status,
	input_mint, output_mint, requested_raw, received_raw,
	signature, error, route_summary, simulation_log, confirm_latency,
	input_before, input_after, output_before, output_after,
	exit_reason, created_at
`

// Insert adds a trade. Returns ErrDuplicateKey if trade_id exists.
func (s *TradeStore) Insert(ctx context.Context, t *domain.Trade) error {
	query := `
		INSERT INTO trades (` + tradeColumns + `
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9,
			$10, $11, $12, $13, $14,
			$15, $16, $17, $18,
			$19, $20
		)
	`

	_, err := s.pool.Exec(ctx, query,
		t.TradeID, t.PositionID, string(t.Mode), string(t.Side), string(t.Status),
		t.InputMint, t.OutputMint, int64(t.RequestedRaw), int64(t.ReceivedRaw),
		t.Signature, t.Error, t.RouteSummary, t.SimulationLog, t.ConfirmLatency,
		int64(t.InputBefore), int64(t.InputAfter), int64(t.OutputBefore), int64(t.OutputAfter),
		t.ExitReason, t.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert trade: %w", err)
	}
	return nil
}

// GetByID retrieves a trade. Returns ErrNotFound if not exists.
func (s *TradeStore) GetByID(ctx context.Context, tradeID string) (*domain.Trade, error) {
	query := `SELECT ` + tradeColumns + ` FROM trades WHERE trade_id = $1`

	t, err := scanTrade(s.pool.QueryRow(ctx, query, tradeID))
	if err != nil {
		if isNoRows(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get trade: %w", err)
	}
	return t, nil
}

// GetByMint retrieves all trades touching a mint, ordered by created_at ASC.
func (s *TradeStore) GetByMint(ctx context.Context, mint string) ([]*domain.Trade, error) {
	query := `
		SELECT ` + tradeColumns + `
		FROM trades
		WHERE input_mint = $1 OR output_mint = $1
		ORDER BY created_at ASC, trade_id ASC
	`
	return s.queryTrades(ctx, query, mint)
}

// GetSince retrieves trades with created_at >= sinceMs, ordered ASC.
func (s *TradeStore) GetSince(ctx context.Context, sinceMs int64) ([]*domain.Trade, error) {
	query := `
		SELECT ` + tradeColumns + `
		FROM trades
		WHERE created_at >= $1
		ORDER BY created_at ASC, trade_id ASC
	`
	return s.queryTrades(ctx, query, sinceMs)
}

func (s *TradeStore) queryTrades(ctx context.Context, query string, args ...interface{}) ([]*domain.Trade, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query trades: %w", err)
	}
	defer rows.Close()

	var result []*domain.Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

func scanTrade(row pgx.Row) (*domain.Trade, error) {
	var (
		t                   domain.Trade
		mode, side, status  string
		requested, received int64
		inBefore, inAfter   int64
		outBefore, outAfter int64
	)
	err := row.Scan(
		&t.TradeID, &t.PositionID, &mode, &side, &status,
		&t.InputMint, &t.OutputMint, &requested, &received,
		&t.Signature, &t.Error, &t.RouteSummary, &t.SimulationLog, &t.ConfirmLatency,
		&inBefore, &inAfter, &outBefore, &outAfter,
		&t.ExitReason, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Mode = domain.TradeMode(mode)
	t.Side = domain.TradeSide(side)
	t.Status = domain.TradeStatus(status)
	t.RequestedRaw = uint64(requested)
	t.ReceivedRaw = uint64(received)
	t.InputBefore = uint64(inBefore)
	t.InputAfter = uint64(inAfter)
	t.OutputBefore = uint64(outBefore)
	t.OutputAfter = uint64(outAfter)
	return &t, nil
}
