package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/memovault/memovault/internal/domain"
	"github.com/memovault/memovault/internal/security"
)

func newAuthService(e *testEnv, bootstrapUser, bootstrapPasscode string) *AuthService {
	codec := security.NewTokenCodec("test-secret")
	return NewAuthService(e.users, e.notes, e.codes, codec, bootstrapUser, bootstrapPasscode)
}

func TestLoginGuestMintsFreshSubjects(t *testing.T) {
	e := newTestEnv(t)
	svc := newAuthService(e, "", "")

	a, err := svc.LoginGuest(context.Background())
	if err != nil {
		t.Fatalf("guest login: %v", err)
	}
	b, err := svc.LoginGuest(context.Background())
	if err != nil {
		t.Fatalf("guest login: %v", err)
	}
	if !strings.HasPrefix(a.Subject, "guest:") {
		t.Fatalf("unexpected subject %q", a.Subject)
	}
	if a.Subject == b.Subject {
		t.Fatal("guest subjects must be unique")
	}
	if a.Role != security.RoleGuest {
		t.Fatalf("unexpected role %q", a.Role)
	}
	// Nothing is persisted for guests.
	count, err := e.users.Count()
	if err != nil || count != 0 {
		t.Fatalf("expected empty users table, count=%d err=%v", count, err)
	}
}

func TestLoginUserVerifiesPasscode(t *testing.T) {
	e := newTestEnv(t)
	svc := newAuthService(e, "", "")
	if _, err := svc.CreateUser("alice", "correct-horse", string(security.RoleUser)); err != nil {
		t.Fatalf("create user: %v", err)
	}

	sess, err := svc.LoginUser(context.Background(), "alice", "correct-horse")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if sess.Role != security.RoleUser || sess.Username != "alice" {
		t.Fatalf("unexpected session %+v", sess)
	}

	// Wrong passcode and unknown username collapse to the same error.
	if _, err := svc.LoginUser(context.Background(), "alice", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.LoginUser(context.Background(), "nobody", "whatever"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestBootstrapAdminOnlyOnEmptyTable(t *testing.T) {
	e := newTestEnv(t)
	svc := newAuthService(e, "root", "root-pass-123")

	sess, err := svc.LoginUser(context.Background(), "root", "root-pass-123")
	if err != nil {
		t.Fatalf("bootstrap login: %v", err)
	}
	if sess.Role != security.RoleAdmin {
		t.Fatalf("expected admin role, got %q", sess.Role)
	}

	// The admin is now a regular stored account.
	user, err := e.users.FindByUsername("root")
	if err != nil {
		t.Fatalf("find bootstrap admin: %v", err)
	}
	if user.Role != string(security.RoleAdmin) {
		t.Fatalf("unexpected stored role %q", user.Role)
	}

	// A second login goes through the normal credential path.
	if _, err := svc.LoginUser(context.Background(), "root", "root-pass-123"); err != nil {
		t.Fatalf("second bootstrap login: %v", err)
	}

	// Once any user exists, bootstrap creds alone no longer mint admins.
	e2 := newTestEnv(t)
	svc2 := newAuthService(e2, "root", "root-pass-123")
	if _, err := svc2.CreateUser("bob", "bob-passcode", string(security.RoleUser)); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, err := svc2.LoginUser(context.Background(), "root", "root-pass-123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected bootstrap to be disabled, got %v", err)
	}
}

func TestTransferCodeRoundTrip(t *testing.T) {
	e := newTestEnv(t)
	svc := newAuthService(e, "", "")
	guest := guestPrincipal("guest:wanderer")

	code, err := svc.IssueTransferCode(guest)
	if err != nil {
		t.Fatalf("issue code: %v", err)
	}
	if !strings.HasPrefix(code.Code, "G-") {
		t.Fatalf("unexpected code %q", code.Code)
	}

	sess, err := svc.RecoverGuest(code.Code)
	if err != nil {
		t.Fatalf("recover: %v", err)
	}
	if sess.Subject != guest.ID || sess.Role != security.RoleGuest {
		t.Fatalf("unexpected session %+v", sess)
	}

	// Single use.
	if _, err := svc.RecoverGuest(code.Code); !errors.Is(err, ErrCodeUsed) {
		t.Fatalf("expected ErrCodeUsed, got %v", err)
	}
	if _, err := svc.RecoverGuest("G-unknown"); !errors.Is(err, ErrCodeNotFound) {
		t.Fatalf("expected ErrCodeNotFound, got %v", err)
	}
}

func TestTransferCodeExpires(t *testing.T) {
	e := newTestEnv(t)
	svc := newAuthService(e, "", "")

	expired := &domain.GuestTransferCode{
		Code:      "G-stale",
		GuestSub:  "guest:wanderer",
		ExpiresAt: time.Now().UTC().Add(-time.Minute),
		CreatedAt: time.Now().UTC().Add(-time.Hour),
	}
	if err := e.codes.Create(expired); err != nil {
		t.Fatalf("seed code: %v", err)
	}
	if _, err := svc.RecoverGuest("G-stale"); !errors.Is(err, ErrCodeExpired) {
		t.Fatalf("expected ErrCodeExpired, got %v", err)
	}
}

func TestUpgradeGuestCarriesNotes(t *testing.T) {
	e := newTestEnv(t)
	svc := newAuthService(e, "", "")
	guest := guestPrincipal("guest:wanderer")
	e.seedNote(t, "note:1", domain.OwnerTypeGuest, guest.ID, "scratch")
	e.seedNote(t, "note:2", domain.OwnerTypeGuest, guest.ID, "ideas")
	e.seedNote(t, "note:other", domain.OwnerTypeGuest, "guest:someone-else", "not mine")

	sess, err := svc.UpgradeGuest(guest, "alice", "alice-pass-123")
	if err != nil {
		t.Fatalf("upgrade: %v", err)
	}
	if sess.Role != security.RoleUser || sess.Username != "alice" {
		t.Fatalf("unexpected session %+v", sess)
	}

	note, err := e.notes.FindByID("note:1")
	if err != nil {
		t.Fatalf("find note: %v", err)
	}
	if note.OwnerType != domain.OwnerTypeUser || note.OwnerID != sess.Subject {
		t.Fatalf("note not reassigned: %+v", note)
	}
	other, err := e.notes.FindByID("note:other")
	if err != nil {
		t.Fatalf("find note: %v", err)
	}
	if other.OwnerID != "guest:someone-else" {
		t.Fatalf("unrelated guest notes must not move: %+v", other)
	}
}

func TestCreateUserRejectsDuplicateUsername(t *testing.T) {
	e := newTestEnv(t)
	svc := newAuthService(e, "", "")
	if _, err := svc.CreateUser("alice", "passcode-1", string(security.RoleUser)); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, err := svc.CreateUser("alice", "passcode-2", string(security.RoleUser)); !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestSessionTokenRoundTripsThroughCodec(t *testing.T) {
	e := newTestEnv(t)
	codec := security.NewTokenCodec("test-secret")
	svc := NewAuthService(e.users, e.notes, e.codes, codec, "", "")

	sess, err := svc.LoginGuest(context.Background())
	if err != nil {
		t.Fatalf("guest login: %v", err)
	}
	claims, err := codec.Verify(sess.Token)
	if err != nil {
		t.Fatalf("verify issued token: %v", err)
	}
	if claims.Subject != sess.Subject || claims.Role != security.RoleGuest {
		t.Fatalf("unexpected claims %+v", claims)
	}
}
