package security

import "net/http"

// Role is an ordered enumeration; authorization is a single rank
// comparison, not a hierarchy of types.
type Role string

const (
	RoleNone  Role = "none"
	RoleGuest Role = "guest"
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func (r Role) Rank() int {
	switch r {
	case RoleGuest:
		return 1
	case RoleUser:
		return 2
	case RoleAdmin:
		return 3
	default:
		return 0
	}
}

// Known reports whether r is one of the three assignable roles.
func (r Role) Known() bool {
	return r.Rank() > 0
}

// Principal is the per-request identity derived from a verified session
// token. It is never persisted; an unauthenticated principal carries no
// id or role beyond the "none" sentinel.
type Principal struct {
	Authenticated bool
	ID            string
	Role          Role
	Username      string
	ExpiresAt     int64
}

// Anonymous is the unauthenticated sentinel.
var Anonymous = Principal{Role: RoleNone}

// Resolution reasons, for the audit log only. They never influence the
// authorization decision: every failure collapses to Anonymous.
const (
	ResolveOK           = "ok"
	ResolveNoCookie     = "no_cookie"
	ResolveInvalidToken = "invalid_token"
)

// ResolvePrincipal extracts and verifies the session cookie. The second
// return value is a diagnostic reason; callers cannot distinguish a
// missing cookie from a bad or expired token through the Principal
// itself.
func ResolvePrincipal(r *http.Request, codec *TokenCodec) (Principal, string) {
	token := GetCookie(r, SessionCookieName)
	if token == "" {
		return Anonymous, ResolveNoCookie
	}
	claims, err := codec.Verify(token)
	if err != nil {
		return Anonymous, ResolveInvalidToken
	}
	return Principal{
		Authenticated: true,
		ID:            claims.Subject,
		Role:          claims.Role,
		Username:      claims.Username,
		ExpiresAt:     claims.ExpiresAt,
	}, ResolveOK
}

// Satisfies reports whether the principal meets the minimum role. Pure
// predicate, safe to call redundantly; admin satisfies everything.
func (p Principal) Satisfies(min Role) bool {
	return p.Authenticated && p.Role.Rank() >= min.Rank()
}
