package solana

import (
	"crypto/ed25519"
	"encoding/base64"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWallet(t *testing.T) *Wallet {
	t.Helper()

	_, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	w, err := NewWalletFromBase58(base58.Encode(priv))
	require.NoError(t, err)
	return w
}

func TestNewWalletFromBase58_RejectsBadInput(t *testing.T) {
	_, err := NewWalletFromBase58("garbage!!")
	assert.Error(t, err)

	// Valid base58 but wrong length.
	_, err = NewWalletFromBase58(base58.Encode([]byte{1, 2, 3}))
	assert.Error(t, err)
}

func TestWallet_SignTransaction(t *testing.T) {
	w := newTestWallet(t)

	message := []byte("versioned transaction message bytes")
	payload := make([]byte, 1+ed25519.SignatureSize+len(message))
	payload[0] = 1 // one required signature, slot zeroed
	copy(payload[1+ed25519.SignatureSize:], message)

	signed, sig, err := w.SignTransaction(base64.StdEncoding.EncodeToString(payload))
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(signed)
	require.NoError(t, err)

	sigBytes, err := base58.Decode(sig)
	require.NoError(t, err)
	assert.Equal(t, raw[1:1+ed25519.SignatureSize], sigBytes)

	pub, err := base58.Decode(w.PublicKey())
	require.NoError(t, err)
	assert.True(t, ed25519.Verify(ed25519.PublicKey(pub), message, sigBytes))
}

func TestWallet_SignTransaction_RejectsMultiSig(t *testing.T) {
	w := newTestWallet(t)

	payload := make([]byte, 1+2*ed25519.SignatureSize+8)
	payload[0] = 0x80 // compact-u16 continuation, unsupported
	_, _, err := w.SignTransaction(base64.StdEncoding.EncodeToString(payload))
	assert.Error(t, err)
}
