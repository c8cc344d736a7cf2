package postgres

import (
	"context"
	"fmt"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/storage"
)

// TokenMetadataStore implements storage.TokenMetadataStore using PostgreSQL.
type TokenMetadataStore struct {
	pool *Pool
}

// NewTokenMetadataStore creates a new TokenMetadataStore.
func NewTokenMetadataStore(pool *Pool) *TokenMetadataStore {
	return &TokenMetadataStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TokenMetadataStore = (*TokenMetadataStore)(nil)

// Upsert inserts or replaces the snapshot for m.Mint.
func (s *TokenMetadataStore) Upsert(ctx context.Context, m *domain.TokenMetadata) error {
	query := `
		INSERT INTO token_metadata (
			mint, pool_id, dex, decimals,
			has_mint_authority, has_freeze_authority, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (mint) DO UPDATE SET
			pool_id = EXCLUDED.pool_id,
			dex = EXCLUDED.dex,
			decimals = EXCLUDED.decimals,
			has_mint_authority = EXCLUDED.has_mint_authority,
			has_freeze_authority = EXCLUDED.has_freeze_authority,
			updated_at = EXCLUDED.updated_at
	`

	_, err := s.pool.Exec(ctx, query,
		m.Mint, m.PoolID, m.DEX, m.Decimals,
		m.Authority.HasMintAuthority, m.Authority.HasFreezeAuthority, m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert token metadata: %w", err)
	}
	return nil
}

// GetByMint retrieves the snapshot. Returns ErrNotFound if not exists.
func (s *TokenMetadataStore) GetByMint(ctx context.Context, mint string) (*domain.TokenMetadata, error) {
	query := `
		SELECT mint, pool_id, dex, decimals,
		       has_mint_authority, has_freeze_authority, updated_at
		FROM token_metadata
		WHERE mint = $1
	`

	var m domain.TokenMetadata
	err := s.pool.QueryRow(ctx, query, mint).Scan(
		&m.Mint, &m.PoolID, &m.DEX, &m.Decimals,
		&m.Authority.HasMintAuthority, &m.Authority.HasFreezeAuthority, &m.UpdatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get token metadata: %w", err)
	}
	return &m, nil
}
