// Package auth implements wallet signature authentication:
// message construction, detached ed25519 verification, the bearer token codec
// and the per-request gateway.
package auth

import (
	"crypto/ed25519"

	"filippo.io/edwards25519"
	lru "github.com/hashicorp/golang-lru"
	"github.com/mr-tron/base58"
)

// DefaultKeyCacheSize bounds the decoded public key cache.
const DefaultKeyCacheSize = 20000

// Verifier checks detached ed25519 signatures made by Solana wallets.
// The wallet identity string is the base58 public key itself.
type Verifier struct {
	keys *lru.Cache // wallet string -> ed25519.PublicKey
}

// NewVerifier creates a Verifier with a decoded-key cache of the given size.
func NewVerifier(cacheSize int) *Verifier {
	if cacheSize <= 0 {
		cacheSize = DefaultKeyCacheSize
	}
	cache, err := lru.New(cacheSize)
	if err != nil {
		panic(err)
	}
	return &Verifier{keys: cache}
}

// Verify reports whether signature (base58) is a valid signature of message
// by wallet (base58 public key). Malformed input and cryptographic mismatch
// both return false.
func (v *Verifier) Verify(message, signature, wallet string) bool {
	pub, ok := v.publicKey(wallet)
	if !ok {
		return false
	}

	sig, err := base58.Decode(signature)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return false
	}

	return ed25519.Verify(pub, []byte(message), sig)
}

// publicKey decodes wallet into a usable ed25519 key, caching valid keys.
func (v *Verifier) publicKey(wallet string) (ed25519.PublicKey, bool) {
	if wallet == "" {
		return nil, false
	}
	if cached, ok := v.keys.Get(wallet); ok {
		return cached.(ed25519.PublicKey), true
	}

	raw, err := base58.Decode(wallet)
	if err != nil || len(raw) != ed25519.PublicKeySize {
		return nil, false
	}
	// Off-curve keys (e.g. program derived addresses) can never sign.
	if _, err := new(edwards25519.Point).SetBytes(raw); err != nil {
		return nil, false
	}

	pub := ed25519.PublicKey(raw)
	v.keys.Add(wallet, pub)
	return pub, true
}

// IsWalletAddress reports whether s decodes to a 32-byte public key.
func IsWalletAddress(s string) bool {
	raw, err := base58.Decode(s)
	return err == nil && len(raw) == ed25519.PublicKeySize
}
