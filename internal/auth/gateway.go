package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"solana-stock-swap/internal/observability"
)

// WalletHeader carries a caller-asserted wallet address. It is trusted only by
// the routes that never required a signature, and by the development fallback.
const WalletHeader = "X-Wallet-Address"

// GatewayOptions configures Gateway.
type GatewayOptions struct {
	// Production hard-disables the wallet header fallback.
	Production bool
	// AllowDevWalletHeader enables the fallback outside production.
	AllowDevWalletHeader bool
	Logger               logrus.FieldLogger
}

// Gateway resolves a request to the wallet that signed its credential.
type Gateway struct {
	codec    *Codec
	verifier *Verifier

	devFallback bool
	logger      logrus.FieldLogger
}

// NewGateway creates a Gateway. The development fallback is active only when
// explicitly allowed and not running in production.
func NewGateway(codec *Codec, verifier *Verifier, opts GatewayOptions) *Gateway {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	g := &Gateway{
		codec:       codec,
		verifier:    verifier,
		devFallback: opts.AllowDevWalletHeader && !opts.Production,
		logger:      logger.WithField("component", "auth"),
	}
	if g.devFallback {
		g.logger.Warn("wallet header fallback enabled: requests without Authorization are trusted by X-Wallet-Address")
	}
	return g
}

// DevFallbackEnabled reports whether the wallet header fallback is active.
func (g *Gateway) DevFallbackEnabled() bool {
	return g.devFallback
}

// Authenticate returns the wallet proven by the request's credential.
//
// A present Authorization header is authoritative: if it fails to decode or
// verify the request is unauthenticated, even when a wallet header is also
// set. Only a request with no Authorization header at all may use the
// development fallback.
func (g *Gateway) Authenticate(r *http.Request) (string, bool) {
	if _, present := r.Header["Authorization"]; present {
		return g.AuthenticateToken(r.Header.Get("Authorization"))
	}

	wallet := strings.TrimSpace(r.Header.Get(WalletHeader))
	if !g.devFallback || wallet == "" || !IsWalletAddress(wallet) {
		observability.RecordAuthFailure("missing_credential")
		return "", false
	}
	g.logger.WithField("wallet", wallet).Debug("authenticated by development wallet header")
	return wallet, true
}

// AuthenticateToken verifies a full "Signature <payload>" value.
func (g *Gateway) AuthenticateToken(header string) (string, bool) {
	token, err := g.codec.Decode(header)
	if err != nil {
		reason := "malformed"
		if errors.Is(err, ErrTokenExpired) {
			reason = "expired"
		}
		observability.RecordAuthFailure(reason)
		return "", false
	}

	if !messageNamesWallet(token.Message, token.Wallet) {
		observability.RecordAuthFailure("foreign_message")
		return "", false
	}

	if !g.verifier.Verify(token.Message, token.Signature, token.Wallet) {
		observability.RecordAuthFailure("bad_signature")
		return "", false
	}

	return token.Wallet, true
}
