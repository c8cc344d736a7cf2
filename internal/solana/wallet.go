package solana

import (
	"crypto/ed25519"
	"encoding/base64"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// Wallet holds the agent's ed25519 keypair.
type Wallet struct {
	priv   ed25519.PrivateKey
	pubkey string // base58
}

// NewWalletFromBase58 builds a wallet from a base58-encoded 64-byte secret
// key (the standard Solana keypair export format). The derived public key is
// validated to be a canonical curve point.
func NewWalletFromBase58(secret string) (*Wallet, error) {
	raw, err := base58.Decode(secret)
	if err != nil {
		return nil, fmt.Errorf("decode secret key: %w", err)
	}
	if len(raw) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("secret key must be %d bytes, got %d", ed25519.PrivateKeySize, len(raw))
	}

	priv := ed25519.PrivateKey(raw)
	pub := priv.Public().(ed25519.PublicKey)
	if !isOnCurve(pub) {
		return nil, fmt.Errorf("derived public key is not a valid curve point")
	}

	return &Wallet{
		priv:   priv,
		pubkey: base58.Encode(pub),
	}, nil
}

// PublicKey returns the base58-encoded public key.
func (w *Wallet) PublicKey() string {
	return w.pubkey
}

// SignTransaction signs a base64-encoded versioned transaction payload in
// place (signature slot 0) and returns the signed payload plus the base58
// signature. Payload layout: compact-u16 signature count, signatures, message.
func (w *Wallet) SignTransaction(txBase64 string) (signed string, signature string, err error) {
	raw, err := base64.StdEncoding.DecodeString(txBase64)
	if err != nil {
		return "", "", fmt.Errorf("decode transaction payload: %w", err)
	}
	if len(raw) < 1 {
		return "", "", fmt.Errorf("empty transaction payload")
	}

	// Swap transactions carry a single required signature; the compact-u16
	// count then occupies exactly one byte.
	numSigs := int(raw[0])
	if numSigs < 1 || raw[0] > 0x7f {
		return "", "", fmt.Errorf("unsupported signature count %d", numSigs)
	}

	sigBytes := numSigs * ed25519.SignatureSize
	if len(raw) < 1+sigBytes {
		return "", "", fmt.Errorf("transaction payload shorter than signature table")
	}
	message := raw[1+sigBytes:]

	sig := ed25519.Sign(w.priv, message)
	copy(raw[1:1+ed25519.SignatureSize], sig)

	return base64.StdEncoding.EncodeToString(raw), base58.Encode(sig), nil
}

// isOnCurve reports whether the public key decodes to a canonical
// edwards25519 point.
func isOnCurve(pub ed25519.PublicKey) bool {
	_, err := new(edwards25519.Point).SetBytes(pub)
	return err == nil
}

// ValidateAddress checks that addr is a well-formed base58-encoded 32-byte
// public key.
func ValidateAddress(addr string) error {
	raw, err := base58.Decode(addr)
	if err != nil {
		return fmt.Errorf("decode address: %w", err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return fmt.Errorf("address must decode to %d bytes, got %d", ed25519.PublicKeySize, len(raw))
	}
	return nil
}
