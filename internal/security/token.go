package security

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// SessionTTL is the validity window of a freshly issued session token.
const SessionTTL = 30 * 24 * time.Hour

var (
	ErrMalformedToken = errors.New("malformed session token")
	ErrBadSignature   = errors.New("session token signature mismatch")
	ErrTokenExpired   = errors.New("session token expired")
)

// Claims is the payload carried by a session token. ExpiresAt is epoch
// milliseconds; tokens are never stored server-side, so expiry is the
// only form of invalidation.
type Claims struct {
	Subject   string `json:"sub"`
	Role      Role   `json:"role"`
	Username  string `json:"username,omitempty"`
	ExpiresAt int64  `json:"exp"`
}

// TokenCodec issues and verifies compact signed session tokens of the
// form base64url(JSON claims) + "." + base64url(HMAC-SHA-256).
type TokenCodec struct {
	secret []byte
}

func NewTokenCodec(secret string) *TokenCodec {
	return &TokenCodec{secret: []byte(secret)}
}

// Issue serializes claims and attaches a signature. The result uses only
// cookie-safe characters.
func (c *TokenCodec) Issue(claims Claims) (string, error) {
	raw, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}
	payload := base64.RawURLEncoding.EncodeToString(raw)
	return payload + "." + Sign(c.secret, []byte(payload)), nil
}

// Verify checks structure, signature and expiry, in that order. Every
// failure is a typed error; callers must treat any of them as
// "unauthenticated" rather than propagating.
func (c *TokenCodec) Verify(token string) (*Claims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 2 {
		return nil, ErrMalformedToken
	}
	payload, signature := parts[0], parts[1]
	if !VerifySignature(c.secret, []byte(payload), signature) {
		return nil, ErrBadSignature
	}
	raw, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return nil, ErrMalformedToken
	}
	var claims Claims
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&claims); err != nil {
		return nil, ErrMalformedToken
	}
	if claims.Subject == "" || !claims.Role.Known() {
		return nil, ErrMalformedToken
	}
	if claims.ExpiresAt <= time.Now().UnixMilli() {
		return nil, ErrTokenExpired
	}
	return &claims, nil
}
