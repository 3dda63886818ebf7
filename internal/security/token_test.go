package security

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func futureExp() int64 {
	return time.Now().Add(time.Hour).UnixMilli()
}

func TestTokenRoundTrip(t *testing.T) {
	codec := NewTokenCodec("test-secret")
	claims := Claims{Subject: "user:abc", Role: RoleUser, Username: "alice", ExpiresAt: futureExp()}

	token, err := codec.Issue(claims)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	got, err := codec.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if *got != claims {
		t.Fatalf("round trip mismatch: got %+v want %+v", *got, claims)
	}
}

func TestTokenCookieSafeAlphabet(t *testing.T) {
	codec := NewTokenCodec("test-secret")
	token, err := codec.Issue(Claims{Subject: "guest:x", Role: RoleGuest, ExpiresAt: futureExp()})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if strings.ContainsAny(token, " ;,=+/\"") {
		t.Fatalf("token contains characters unsafe in a cookie value: %q", token)
	}
	if strings.Count(token, ".") != 1 {
		t.Fatalf("expected exactly one separator in %q", token)
	}
}

func TestTokenSingleByteMutationFails(t *testing.T) {
	codec := NewTokenCodec("test-secret")
	token, err := codec.Issue(Claims{Subject: "user:abc", Role: RoleUser, ExpiresAt: futureExp()})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	for i := 0; i < len(token); i++ {
		if token[i] == '.' {
			continue
		}
		mutated := []byte(token)
		if mutated[i] == 'A' {
			mutated[i] = 'B'
		} else {
			mutated[i] = 'A'
		}
		if _, err := codec.Verify(string(mutated)); err == nil {
			t.Fatalf("mutation at byte %d still verified", i)
		}
	}
}

func TestTokenWrongSecretFails(t *testing.T) {
	token, err := NewTokenCodec("secret-a").Issue(Claims{Subject: "user:abc", Role: RoleUser, ExpiresAt: futureExp()})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := NewTokenCodec("secret-b").Verify(token); !errors.Is(err, ErrBadSignature) {
		t.Fatalf("expected ErrBadSignature, got %v", err)
	}
}

func TestTokenExpiredFailsDespiteValidSignature(t *testing.T) {
	codec := NewTokenCodec("test-secret")
	token, err := codec.Issue(Claims{Subject: "user:abc", Role: RoleUser, ExpiresAt: time.Now().Add(-time.Second).UnixMilli()})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := codec.Verify(token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestTokenStructuralRejections(t *testing.T) {
	codec := NewTokenCodec("test-secret")
	cases := map[string]string{
		"empty":          "",
		"no separator":   "abcdef",
		"two separators": "a.b.c",
		"bad payload":    "!!!." + Sign([]byte("test-secret"), []byte("!!!")),
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := codec.Verify(token); err == nil {
				t.Fatalf("expected rejection for %q", token)
			}
		})
	}
}

func TestTokenNonNumericExpiryRejected(t *testing.T) {
	codec := NewTokenCodec("test-secret")
	payload := "eyJzdWIiOiJ1c2VyOmFiYyIsInJvbGUiOiJ1c2VyIiwiZXhwIjoic29vbiJ9" // {"sub":"user:abc","role":"user","exp":"soon"}
	token := payload + "." + Sign([]byte("test-secret"), []byte(payload))
	if _, err := codec.Verify(token); !errors.Is(err, ErrMalformedToken) {
		t.Fatalf("expected ErrMalformedToken, got %v", err)
	}
}
