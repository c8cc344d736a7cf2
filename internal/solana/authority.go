package solana

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"fmt"
)

// splMintAccountSize is the fixed byte size of an SPL token mint account.
const splMintAccountSize = 82

// MintInfo is the parsed on-chain state of an SPL token mint.
type MintInfo struct {
	Decimals           int
	HasMintAuthority   bool
	HasFreezeAuthority bool
}

// GetMintInfo fetches and parses the mint account for a token.
// SPL mint layout: COption<Pubkey> mint_authority (4+32), u64 supply,
// u8 decimals, u8 is_initialized, COption<Pubkey> freeze_authority (4+32).
func (c *HTTPClient) GetMintInfo(ctx context.Context, mint string) (*MintInfo, error) {
	info, err := c.GetAccountInfo(ctx, mint)
	if err != nil {
		return nil, fmt.Errorf("get mint account: %w", err)
	}
	if info == nil {
		return nil, fmt.Errorf("mint account %s not found", mint)
	}
	if info.Owner != TokenProgramID {
		return nil, fmt.Errorf("account %s not owned by token program (owner %s)", mint, info.Owner)
	}

	data, err := base64.StdEncoding.DecodeString(info.Data)
	if err != nil {
		return nil, fmt.Errorf("decode mint data: %w", err)
	}
	return parseMintAccount(data)
}

func parseMintAccount(data []byte) (*MintInfo, error) {
	if len(data) < splMintAccountSize {
		return nil, fmt.Errorf("mint account data too short: %d bytes", len(data))
	}

	mintAuthorityTag := binary.LittleEndian.Uint32(data[0:4])
	decimals := int(data[44])
	freezeAuthorityTag := binary.LittleEndian.Uint32(data[46:50])

	return &MintInfo{
		Decimals:           decimals,
		HasMintAuthority:   mintAuthorityTag == 1,
		HasFreezeAuthority: freezeAuthorityTag == 1,
	}, nil
}
