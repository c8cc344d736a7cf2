package storage

import (
	"context"

	"solana-sniper/internal/domain"
)

// DecisionStore provides append-only access to strategy decisions.
type DecisionStore interface {
	// Insert adds a decision. Returns ErrDuplicateKey if decision_id exists.
	Insert(ctx context.Context, d *domain.StrategyDecision) error

	// GetByID retrieves a decision. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, decisionID string) (*domain.StrategyDecision, error)

	// GetByPool retrieves all decisions for a pool, ordered by evaluated_at ASC.
	GetByPool(ctx context.Context, poolID string) ([]*domain.StrategyDecision, error)
}

// TradeStore provides append-only access to the trade audit log.
type TradeStore interface {
	// Insert adds a trade. Returns ErrDuplicateKey if trade_id exists.
	Insert(ctx context.Context, t *domain.Trade) error

	// GetByID retrieves a trade. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, tradeID string) (*domain.Trade, error)

	// GetByMint retrieves all trades for a mint, ordered by created_at ASC.
	GetByMint(ctx context.Context, mint string) ([]*domain.Trade, error)

	// GetSince retrieves trades with created_at >= sinceMs, ordered ASC.
	// Used to derive the trades-per-hour cap and per-mint cooldowns.
	GetSince(ctx context.Context, sinceMs int64) ([]*domain.Trade, error)
}

// PositionStore provides CRUD access to positions keyed by position_id.
type PositionStore interface {
	// Open persists a newly opened position. Returns ErrDuplicateKey if exists.
	Open(ctx context.Context, p *domain.Position) error

	// Update replaces the stored position. Returns ErrNotFound if not exists.
	Update(ctx context.Context, p *domain.Position) error

	// Close marks a position closed at closedAt. Returns ErrNotFound if not exists.
	Close(ctx context.Context, positionID string, closedAt int64) error

	// GetByID retrieves a position. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, positionID string) (*domain.Position, error)

	// GetOpen retrieves all open positions, ordered by opened_at ASC.
	GetOpen(ctx context.Context) ([]*domain.Position, error)
}

// SeenPoolStore is the monotonic set of pool ids already considered.
// Entries have unbounded lifetime.
type SeenPoolStore interface {
	// MarkSeen records a pool id. Idempotent.
	MarkSeen(ctx context.Context, poolID string, seenAtMs int64) error

	// IsSeen reports whether the pool id was recorded before.
	IsSeen(ctx context.Context, poolID string) (bool, error)
}

// TokenMetadataStore keeps the latest metadata snapshot per mint.
type TokenMetadataStore interface {
	// Upsert inserts or replaces the snapshot for m.Mint.
	Upsert(ctx context.Context, m *domain.TokenMetadata) error

	// GetByMint retrieves the snapshot. Returns ErrNotFound if not exists.
	GetByMint(ctx context.Context, mint string) (*domain.TokenMetadata, error)
}

// AnalyticsSink receives append-only mirrors of decisions and trades for
// offline analysis. Sink failures never block the trading loop; callers
// log and continue.
type AnalyticsSink interface {
	// RecordDecision mirrors an evaluated decision.
	RecordDecision(ctx context.Context, d *domain.StrategyDecision) error

	// RecordTrade mirrors a completed or failed trade.
	RecordTrade(ctx context.Context, t *domain.Trade) error
}

// RuntimeStateStore is a small key-value store surfaced to the dashboard
// (risk snapshot, breaker state, last tick).
type RuntimeStateStore interface {
	// Set stores a JSON-encoded value under key, replacing any prior value.
	Set(ctx context.Context, key string, value []byte) error

	// Get retrieves the value for key. Returns ErrNotFound if not exists.
	Get(ctx context.Context, key string) ([]byte, error)
}
