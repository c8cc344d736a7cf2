package domain

// TokenMetadata is the latest known metadata snapshot for a token mint.
// Upserted on every evaluation so rejections leave an audit trail too.
type TokenMetadata struct {
	Mint      string
	PoolID    string
	DEX       string
	Decimals  int
	Authority AuthorityStatus
	UpdatedAt int64 // ms
}
