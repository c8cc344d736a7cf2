package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/storage"
)

// PositionStore implements storage.PositionStore using PostgreSQL.
// SOL amounts are stored as TEXT to preserve exact decimal values; exit
// parameters and derived metadata are JSONB.
type PositionStore struct {
	pool *Pool
}

// NewPositionStore creates a new PositionStore.
func NewPositionStore(pool *Pool) *PositionStore {
	return &PositionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PositionStore = (*PositionStore)(nil)

const positionColumns = `
	position_id, mint, pool_id, decimals, status, opened_at, closed_at,
	entry_price_sol, entry_notional_sol, quantity_at_entry, quantity_left,
	tp1_hit, tp2_hit, tp3_hit, exits, metadata
`

// Open persists a newly opened position. Returns ErrDuplicateKey if exists.
func (s *PositionStore) Open(ctx context.Context, p *domain.Position) error {
	exits, metadata, err := marshalPositionJSON(p)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO positions (` + positionColumns + `
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9, $10, $11,
			$12, $13, $14, $15, $16
		)
	`

	_, err = s.pool.Exec(ctx, query,
		p.PositionID, p.Mint, p.PoolID, p.Decimals, string(p.Status), p.OpenedAt, p.ClosedAt,
		p.EntryPriceSOL.String(), p.EntryNotionalSOL.String(), int64(p.QuantityAtEntry), int64(p.QuantityLeft),
		p.TP1Hit, p.TP2Hit, p.TP3Hit, exits, metadata,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert position: %w", err)
	}
	return nil
}

// Update replaces the stored position. Returns ErrNotFound if not exists.
func (s *PositionStore) Update(ctx context.Context, p *domain.Position) error {
	exits, metadata, err := marshalPositionJSON(p)
	if err != nil {
		return err
	}

	query := `
		UPDATE positions SET
			mint = $2, pool_id = $3, decimals = $4, status = $5,
			opened_at = $6, closed_at = $7,
			entry_price_sol = $8, entry_notional_sol = $9,
			quantity_at_entry = $10, quantity_left = $11,
			tp1_hit = $12, tp2_hit = $13, tp3_hit = $14,
			exits = $15, metadata = $16
		WHERE position_id = $1
	`

	tag, err := s.pool.Exec(ctx, query,
		p.PositionID, p.Mint, p.PoolID, p.Decimals, string(p.Status),
		p.OpenedAt, p.ClosedAt,
		p.EntryPriceSOL.String(), p.EntryNotionalSOL.String(),
		int64(p.QuantityAtEntry), int64(p.QuantityLeft),
		p.TP1Hit, p.TP2Hit, p.TP3Hit, exits, metadata,
	)
	if err != nil {
		return fmt.Errorf("update position: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Close marks a position closed at closedAt. Returns ErrNotFound if not exists.
func (s *PositionStore) Close(ctx context.Context, positionID string, closedAt int64) error {
	query := `
		UPDATE positions
		SET status = $2, closed_at = $3
		WHERE position_id = $1
	`

	tag, err := s.pool.Exec(ctx, query, positionID, string(domain.PositionClosed), closedAt)
	if err != nil {
		return fmt.Errorf("close position: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// GetByID retrieves a position. Returns ErrNotFound if not exists.
func (s *PositionStore) GetByID(ctx context.Context, positionID string) (*domain.Position, error) {
	query := `SELECT ` + positionColumns + ` FROM positions WHERE position_id = $1`

	p, err := scanPosition(s.pool.QueryRow(ctx, query, positionID))
	if err != nil {
		if isNoRows(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get position: %w", err)
	}
	return p, nil
}

// GetOpen retrieves all open positions, ordered by opened_at ASC.
func (s *PositionStore) GetOpen(ctx context.Context) ([]*domain.Position, error) {
	query := `
		SELECT ` + positionColumns + `
		FROM positions
		WHERE status = $1
		ORDER BY opened_at ASC, position_id ASC
	`

	rows, err := s.pool.Query(ctx, query, string(domain.PositionOpen))
	if err != nil {
		return nil, fmt.Errorf("query positions: %w", err)
	}
	defer rows.Close()

	var result []*domain.Position
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("scan position: %w", err)
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func marshalPositionJSON(p *domain.Position) (exits, metadata []byte, err error) {
	exits, err = json.Marshal(p.Exits)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal exits: %w", err)
	}
	metadata, err = json.Marshal(p.Metadata)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal metadata: %w", err)
	}
	return exits, metadata, nil
}

func scanPosition(row pgx.Row) (*domain.Position, error) {
	var (
		p                    domain.Position
		status               string
		entryPrice, notional string
		atEntry, left        int64
		exits, metadata      []byte
	)
	err := row.Scan(
		&p.PositionID, &p.Mint, &p.PoolID, &p.Decimals, &status, &p.OpenedAt, &p.ClosedAt,
		&entryPrice, &notional, &atEntry, &left,
		&p.TP1Hit, &p.TP2Hit, &p.TP3Hit, &exits, &metadata,
	)
	if err != nil {
		return nil, err
	}

	p.Status = domain.PositionStatus(status)
	p.QuantityAtEntry = uint64(atEntry)
	p.QuantityLeft = uint64(left)

	if p.EntryPriceSOL, err = decimal.NewFromString(entryPrice); err != nil {
		return nil, fmt.Errorf("parse entry price: %w", err)
	}
	if p.EntryNotionalSOL, err = decimal.NewFromString(notional); err != nil {
		return nil, fmt.Errorf("parse entry notional: %w", err)
	}
	if err := json.Unmarshal(exits, &p.Exits); err != nil {
		return nil, fmt.Errorf("unmarshal exits: %w", err)
	}
	if err := json.Unmarshal(metadata, &p.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshal metadata: %w", err)
	}
	return &p, nil
}
