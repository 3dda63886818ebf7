package service

import (
	"context"
	"errors"
	"time"

	"github.com/memovault/memovault/internal/domain"
	"github.com/memovault/memovault/internal/observability"
	"github.com/memovault/memovault/internal/repository"
	"github.com/memovault/memovault/internal/security"
)

var (
	ErrInvalidCredentials = errors.New("unknown username or wrong passcode")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrCodeNotFound       = errors.New("transfer code not found")
	ErrCodeUsed           = errors.New("transfer code already used")
	ErrCodeExpired        = errors.New("transfer code expired")
)

const (
	subjectTokenBytes = 18
	transferCodeTTL   = 15 * time.Minute
)

// Session is a freshly minted token plus the identity it asserts.
type Session struct {
	Token    string
	Role     security.Role
	Subject  string
	Username string
}

// TransferCode is handed to a guest so another device can adopt the
// same subject.
type TransferCode struct {
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
}

type AuthService struct {
	users repository.UserRepository
	notes repository.NoteRepository
	codes repository.TransferCodeRepository
	codec *security.TokenCodec

	bootstrapUser     string
	bootstrapPasscode string
}

func NewAuthService(users repository.UserRepository, notes repository.NoteRepository, codes repository.TransferCodeRepository, codec *security.TokenCodec, bootstrapUser, bootstrapPasscode string) *AuthService {
	return &AuthService{
		users:             users,
		notes:             notes,
		codes:             codes,
		codec:             codec,
		bootstrapUser:     bootstrapUser,
		bootstrapPasscode: bootstrapPasscode,
	}
}

// LoginGuest mints an ephemeral identity. Nothing is persisted; the
// guest exists only as long as clients hold tokens for its subject.
func (s *AuthService) LoginGuest(ctx context.Context) (*Session, error) {
	sub := "guest:" + security.RandomToken(subjectTokenBytes)
	sess, err := s.issue(sub, security.RoleGuest, "")
	observability.RecordLoginAttempt(ctx, "guest", err == nil)
	return sess, err
}

// LoginUser verifies a passcode against the stored PBKDF2 hash. Unknown
// usernames and wrong passcodes produce the same error so the endpoint
// does not leak which usernames exist.
func (s *AuthService) LoginUser(ctx context.Context, username, passcode string) (*Session, error) {
	if boot, err := s.bootstrapAdmin(username, passcode); err != nil {
		return nil, err
	} else if boot != nil {
		observability.RecordLoginAttempt(ctx, "bootstrap", true)
		return s.issue(boot.ID, security.RoleAdmin, boot.Username)
	}

	user, err := s.users.FindByUsername(username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			observability.RecordLoginAttempt(ctx, "user", false)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	hash, err := security.HashPasscode(passcode, user.PassSalt, security.DefaultPBKDF2Iterations)
	if err != nil {
		return nil, err
	}
	if hash != user.PassHash {
		observability.RecordLoginAttempt(ctx, "user", false)
		return nil, ErrInvalidCredentials
	}
	observability.RecordLoginAttempt(ctx, "user", true)
	return s.issue(user.ID, security.Role(user.Role), user.Username)
}

// bootstrapAdmin creates the very first admin from environment
// credentials, but only while the users table is empty.
func (s *AuthService) bootstrapAdmin(username, passcode string) (*domain.User, error) {
	if s.bootstrapUser == "" || s.bootstrapPasscode == "" {
		return nil, nil
	}
	if username != s.bootstrapUser || passcode != s.bootstrapPasscode {
		return nil, nil
	}
	any, err := s.users.Any()
	if err != nil || any {
		return nil, err
	}
	user, err := s.createUser(username, passcode, string(security.RoleAdmin))
	if err != nil {
		return nil, err
	}
	return user, nil
}

// IssueTransferCode gives the guest a short-lived, single-use recovery
// code for its subject.
func (s *AuthService) IssueTransferCode(p security.Principal) (*TransferCode, error) {
	now := time.Now().UTC()
	code := &domain.GuestTransferCode{
		Code:      "G-" + security.RandomToken(subjectTokenBytes),
		GuestSub:  p.ID,
		ExpiresAt: now.Add(transferCodeTTL),
		CreatedAt: now,
	}
	if err := s.codes.Create(code); err != nil {
		return nil, err
	}
	return &TransferCode{Code: code.Code, ExpiresAt: code.ExpiresAt}, nil
}

// RecoverGuest redeems a transfer code and issues a guest session for
// the stored subject. Codes are single use and expire quickly.
func (s *AuthService) RecoverGuest(code string) (*Session, error) {
	row, err := s.codes.FindByCode(code)
	if err != nil {
		if errors.Is(err, repository.ErrTransferCodeNotFound) {
			return nil, ErrCodeNotFound
		}
		return nil, err
	}
	if row.UsedAt != nil {
		return nil, ErrCodeUsed
	}
	now := time.Now().UTC()
	if !now.Before(row.ExpiresAt) {
		return nil, ErrCodeExpired
	}
	if err := s.codes.MarkUsed(code, now); err != nil {
		return nil, err
	}
	return s.issue(row.GuestSub, security.RoleGuest, "")
}

// UpgradeGuest converts a guest into a registered user, carrying its
// notes across, and supersedes the guest token with a user token.
func (s *AuthService) UpgradeGuest(p security.Principal, username, passcode string) (*Session, error) {
	user, err := s.createUser(username, passcode, string(security.RoleUser))
	if err != nil {
		return nil, err
	}
	if _, err := s.notes.ReassignOwner(domain.OwnerTypeGuest, p.ID, domain.OwnerTypeUser, user.ID); err != nil {
		return nil, err
	}
	return s.issue(user.ID, security.RoleUser, user.Username)
}

// CreateUser registers a new account; used by guest upgrade and the
// admin console.
func (s *AuthService) CreateUser(username, passcode, role string) (*domain.User, error) {
	return s.createUser(username, passcode, role)
}

func (s *AuthService) createUser(username, passcode, role string) (*domain.User, error) {
	salt := security.NewSalt()
	hash, err := security.HashPasscode(passcode, salt, security.DefaultPBKDF2Iterations)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	user := &domain.User{
		ID:        "user:" + security.RandomToken(subjectTokenBytes),
		Username:  username,
		Role:      role,
		PassSalt:  salt,
		PassHash:  hash,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.users.Create(user); err != nil {
		if errors.Is(err, repository.ErrUsernameTaken) {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}
	return user, nil
}

func (s *AuthService) issue(subject string, role security.Role, username string) (*Session, error) {
	token, err := s.codec.Issue(security.Claims{
		Subject:   subject,
		Role:      role,
		Username:  username,
		ExpiresAt: time.Now().Add(security.SessionTTL).UnixMilli(),
	})
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, Role: role, Subject: subject, Username: username}, nil
}
