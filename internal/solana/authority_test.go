package solana

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildMintData constructs a minimal SPL mint account byte layout.
func buildMintData(mintAuthority, freezeAuthority bool, decimals byte) []byte {
	data := make([]byte, splMintAccountSize)
	if mintAuthority {
		data[0] = 1 // COption tag, little endian u32
	}
	data[44] = decimals
	if freezeAuthority {
		data[46] = 1
	}
	return data
}

func TestParseMintAccount(t *testing.T) {
	tests := []struct {
		name       string
		mintAuth   bool
		freezeAuth bool
		decimals   byte
	}{
		{name: "renounced", mintAuth: false, freezeAuth: false, decimals: 6},
		{name: "mint authority set", mintAuth: true, freezeAuth: false, decimals: 9},
		{name: "freeze authority set", mintAuth: false, freezeAuth: true, decimals: 6},
		{name: "both set", mintAuth: true, freezeAuth: true, decimals: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := parseMintAccount(buildMintData(tt.mintAuth, tt.freezeAuth, tt.decimals))
			require.NoError(t, err)
			assert.Equal(t, tt.mintAuth, info.HasMintAuthority)
			assert.Equal(t, tt.freezeAuth, info.HasFreezeAuthority)
			assert.Equal(t, int(tt.decimals), info.Decimals)
		})
	}
}

func TestParseMintAccount_TooShort(t *testing.T) {
	_, err := parseMintAccount(make([]byte, 40))
	assert.Error(t, err)
}

func TestValidateAddress(t *testing.T) {
	assert.NoError(t, ValidateAddress(WrappedSOLMint))
	assert.Error(t, ValidateAddress("not-base58-!!"))
	assert.Error(t, ValidateAddress("abc")) // too short
}
