package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/storage"
)

// DecisionStore implements storage.DecisionStore using PostgreSQL.
// Filter and score payloads are stored as JSONB.
type DecisionStore struct {
	pool *Pool
}

// NewDecisionStore creates a new DecisionStore.
func NewDecisionStore(pool *Pool) *DecisionStore {
	return &DecisionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.DecisionStore = (*DecisionStore)(nil)

// Insert adds a decision. Returns ErrDuplicateKey if decision_id exists.
func (s *DecisionStore) Insert(ctx context.Context, d *domain.StrategyDecision) error {
	filter, err := json.Marshal(d.Filter)
	if err != nil {
		return fmt.Errorf("marshal filter: %w", err)
	}
	score, err := json.Marshal(d.Score)
	if err != nil {
		return fmt.Errorf("marshal score: %w", err)
	}

	query := `
		INSERT INTO decisions (
			decision_id, pool_id, mint, evaluated_at,
			filter, score, should_trade, summary
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = s.pool.Exec(ctx, query,
		d.DecisionID, d.PoolID, d.Mint, d.EvaluatedAt,
		filter, score, d.ShouldTrade, d.Summary,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert decision: %w", err)
	}
	return nil
}

// GetByID retrieves a decision. Returns ErrNotFound if not exists.
func (s *DecisionStore) GetByID(ctx context.Context, decisionID string) (*domain.StrategyDecision, error) {
	query := `
		SELECT decision_id, pool_id, mint, evaluated_at,
		       filter, score, should_trade, summary
		FROM decisions
		WHERE decision_id = $1
	`

	d, err := scanDecision(s.pool.QueryRow(ctx, query, decisionID))
	if err != nil {
		if isNoRows(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get decision: %w", err)
	}
	return d, nil
}

// GetByPool retrieves all decisions for a pool, ordered by evaluated_at ASC.
func (s *DecisionStore) GetByPool(ctx context.Context, poolID string) ([]*domain.StrategyDecision, error) {
	query := `
		SELECT decision_id, pool_id, mint, evaluated_at,
		       filter, score, should_trade, summary
		FROM decisions
		WHERE pool_id = $1
		ORDER BY evaluated_at ASC, decision_id ASC
	`

	rows, err := s.pool.Query(ctx, query, poolID)
	if err != nil {
		return nil, fmt.Errorf("query decisions: %w", err)
	}
	defer rows.Close()

	var result []*domain.StrategyDecision
	for rows.Next() {
		d, err := scanDecision(rows)
		if err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		result = append(result, d)
	}
	return result, rows.Err()
}

func scanDecision(row pgx.Row) (*domain.StrategyDecision, error) {
	var (
		d      domain.StrategyDecision
		filter []byte
		score  []byte
	)
	err := row.Scan(
		&d.DecisionID, &d.PoolID, &d.Mint, &d.EvaluatedAt,
		&filter, &score, &d.ShouldTrade, &d.Summary,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(filter, &d.Filter); err != nil {
		return nil, fmt.Errorf("unmarshal filter: %w", err)
	}
	if err := json.Unmarshal(score, &d.Score); err != nil {
		return nil, fmt.Errorf("unmarshal score: %w", err)
	}
	return &d, nil
}
