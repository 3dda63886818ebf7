package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/memovault/memovault/internal/security"
)

func issueToken(t *testing.T, codec *security.TokenCodec, sub string, role security.Role) string {
	t.Helper()
	token, err := codec.Issue(security.Claims{
		Subject:   sub,
		Role:      role,
		ExpiresAt: time.Now().Add(time.Hour).UnixMilli(),
	})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}

func principalEcho(codec *security.TokenCodec) http.Handler {
	var inner http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := PrincipalFromContext(r.Context())
		if p.Authenticated {
			w.Header().Set("X-Sub", p.ID)
			w.Header().Set("X-Role", string(p.Role))
		}
		w.WriteHeader(http.StatusOK)
	})
	return Principal(codec)(inner)
}

func TestPrincipalMiddlewareResolvesCookie(t *testing.T) {
	codec := security.NewTokenCodec("test-secret")
	h := principalEcho(codec)

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.AddCookie(&http.Cookie{Name: security.SessionCookieName, Value: issueToken(t, codec, "user:abc", security.RoleUser)})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Header().Get("X-Sub") != "user:abc" || rec.Header().Get("X-Role") != "user" {
		t.Fatalf("principal not resolved: %v", rec.Header())
	}
}

func TestPrincipalMiddlewareAnonymousPaths(t *testing.T) {
	codec := security.NewTokenCodec("test-secret")
	h := principalEcho(codec)

	// No cookie.
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	if rec.Header().Get("X-Sub") != "" {
		t.Fatal("missing cookie must yield anonymous")
	}

	// Garbage token resolves to the same anonymous principal.
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.AddCookie(&http.Cookie{Name: security.SessionCookieName, Value: "not.a-token"})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Header().Get("X-Sub") != "" {
		t.Fatal("invalid token must yield anonymous")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("invalid token must not fail the request, got %d", rec.Code)
	}
}

func TestPrincipalFromContextFallsBackToAnonymous(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	p := PrincipalFromContext(req.Context())
	if p.Authenticated {
		t.Fatal("expected anonymous sentinel without middleware")
	}
}

func TestRequireAuth(t *testing.T) {
	codec := security.NewTokenCodec("test-secret")
	h := Principal(codec)(RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous must get 401, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.AddCookie(&http.Cookie{Name: security.SessionCookieName, Value: issueToken(t, codec, "guest:w", security.RoleGuest)})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("authenticated guest must pass, got %d", rec.Code)
	}
}

func TestRequireRoleHierarchy(t *testing.T) {
	codec := security.NewTokenCodec("test-secret")
	protected := Principal(codec)(RequireRole(security.RoleUser)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	cases := []struct {
		name string
		role security.Role
		want int
	}{
		{"guest below user", security.RoleGuest, http.StatusForbidden},
		{"user exact", security.RoleUser, http.StatusOK},
		{"admin above", security.RoleAdmin, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/x", nil)
			req.AddCookie(&http.Cookie{Name: security.SessionCookieName, Value: issueToken(t, codec, "sub:1", tc.role)})
			rec := httptest.NewRecorder()
			protected.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("role %s: got %d, want %d", tc.role, rec.Code, tc.want)
			}
		})
	}

	// Unauthenticated gets 401, not 403.
	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous must get 401, got %d", rec.Code)
	}
}
