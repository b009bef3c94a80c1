package auth

import (
	"strconv"
	"strings"
	"time"
)

// Sign-in message layout. Changing any of these invalidates every outstanding token.
const (
	messagePrefix = "Sign in to Stock Swap\n\nWallet: "
	messageSuffix = "\n\nThis request will not trigger a blockchain transaction or cost any fees.\nNonce: "
)

// BuildMessage returns the message a wallet signs to authenticate.
// The same wallet and nonce always produce the same bytes.
func BuildMessage(wallet, nonce string) string {
	var b strings.Builder
	b.Grow(len(messagePrefix) + len(wallet) + len(messageSuffix) + len(nonce))
	b.WriteString(messagePrefix)
	b.WriteString(wallet)
	b.WriteString(messageSuffix)
	b.WriteString(nonce)
	return b.String()
}

// NonceAt formats t as a millisecond nonce.
func NonceAt(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

// messageNamesWallet reports whether message was built for wallet.
func messageNamesWallet(message, wallet string) bool {
	return strings.HasPrefix(message, messagePrefix+wallet+messageSuffix)
}
