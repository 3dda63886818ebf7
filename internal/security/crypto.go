package security

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

// DefaultPBKDF2Iterations balances login latency against offline
// brute-force cost.
const DefaultPBKDF2Iterations = 150_000

const saltBytes = 18

// Sign computes a base64url-encoded HMAC-SHA-256 over message.
func Sign(secret []byte, message []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(message)
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// VerifySignature recomputes the MAC and compares in constant time.
func VerifySignature(secret []byte, message []byte, signature string) bool {
	got, err := base64.RawURLEncoding.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, secret)
	mac.Write(message)
	return hmac.Equal(mac.Sum(nil), got)
}

// RandomToken returns a base64url-encoded identifier built from n bytes
// of CSPRNG output. Used for salts, primary keys and share codes; a
// failing random source is not recoverable.
func RandomToken(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("security: random source unavailable: %v", err))
	}
	return base64.RawURLEncoding.EncodeToString(b)
}

// NewSalt returns a fresh per-credential salt.
func NewSalt() string {
	return RandomToken(saltBytes)
}

// HashPasscode stretches passcode with PBKDF2-SHA-256 (256-bit output).
// The salt is the base64url form produced by NewSalt.
func HashPasscode(passcode, salt string, iterations int) (string, error) {
	rawSalt, err := base64.RawURLEncoding.DecodeString(salt)
	if err != nil {
		return "", fmt.Errorf("decode salt: %w", err)
	}
	if iterations <= 0 {
		iterations = DefaultPBKDF2Iterations
	}
	key := pbkdf2.Key([]byte(passcode), rawSalt, iterations, sha256.Size, sha256.New)
	return base64.RawURLEncoding.EncodeToString(key), nil
}
