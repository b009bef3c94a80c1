package auth

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// Token codec constants.
const (
	// Scheme is the Authorization header scheme label.
	Scheme = "Signature"

	// TokenTTL is how long a signed token stays valid after issue.
	TokenTTL = 24 * time.Hour

	// MaxClockSkew tolerates clients whose clock runs slightly ahead.
	MaxClockSkew = 5 * time.Minute
)

// Token decode errors.
var (
	ErrMalformedToken = errors.New("malformed auth token")
	ErrTokenExpired   = errors.New("auth token expired")
)

// Token is the bearer credential carried in the Authorization header.
type Token struct {
	Message   string `json:"message"`
	Signature string `json:"signature"` // base58
	Wallet    string `json:"wallet"`    // base58 public key
	Timestamp int64  `json:"timestamp"` // issued-at, unix millis
}

// IssuedAt returns the token issue time.
func (t *Token) IssuedAt() time.Time {
	return time.UnixMilli(t.Timestamp)
}

// Codec encodes and decodes bearer tokens. It holds no state besides the clock.
type Codec struct {
	now func() time.Time
}

// NewCodec creates a Codec using the wall clock.
func NewCodec() *Codec {
	return &Codec{now: time.Now}
}

// NewCodecWithClock creates a Codec with an injected clock.
func NewCodecWithClock(now func() time.Time) *Codec {
	return &Codec{now: now}
}

// Encode stamps the current time and returns the full header value.
func (c *Codec) Encode(message, signature, wallet string) string {
	return c.encode(Token{
		Message:   message,
		Signature: signature,
		Wallet:    wallet,
		Timestamp: c.now().UnixMilli(),
	})
}

func (c *Codec) encode(t Token) string {
	// Marshal of a struct of strings and an int cannot fail.
	payload, _ := json.Marshal(t)
	return Scheme + " " + base64.StdEncoding.EncodeToString(payload)
}

// Decode parses a header value. It returns ErrMalformedToken for a missing
// scheme, bad base64, bad JSON or missing fields, and ErrTokenExpired once
// the token is older than TokenTTL.
func (c *Codec) Decode(header string) (*Token, error) {
	encoded, ok := strings.CutPrefix(strings.TrimSpace(header), Scheme+" ")
	if !ok {
		return nil, ErrMalformedToken
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return nil, ErrMalformedToken
	}

	var t Token
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, ErrMalformedToken
	}
	if t.Message == "" || t.Signature == "" || t.Wallet == "" || t.Timestamp <= 0 {
		return nil, ErrMalformedToken
	}

	age := c.now().Sub(t.IssuedAt())
	if age > TokenTTL {
		return nil, ErrTokenExpired
	}
	if age < -MaxClockSkew {
		return nil, ErrMalformedToken
	}

	return &t, nil
}
