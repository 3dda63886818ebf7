package service

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/memovault/memovault/internal/domain"
	"github.com/memovault/memovault/internal/repository"
	"github.com/memovault/memovault/internal/security"
	"github.com/memovault/memovault/internal/storage"
)

type testEnv struct {
	db     *gorm.DB
	users  repository.UserRepository
	notes  repository.NoteRepository
	shares repository.ShareRepository
	codes  repository.TransferCodeRepository
	meta   repository.MetaRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Discard,
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := storage.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return &testEnv{
		db:     db,
		users:  repository.NewUserRepository(db),
		notes:  repository.NewNoteRepository(db),
		shares: repository.NewShareRepository(db),
		codes:  repository.NewTransferCodeRepository(db),
		meta:   repository.NewMetaRepository(db),
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (e *testEnv) seedNote(t *testing.T, id, ownerType, ownerID, title string) *domain.Note {
	t.Helper()
	now := time.Now().UTC()
	n := &domain.Note{
		ID:        id,
		OwnerType: ownerType,
		OwnerID:   ownerID,
		Title:     title,
		Body:      "body of " + title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := e.notes.Create(n); err != nil {
		t.Fatalf("seed note: %v", err)
	}
	return n
}

func (e *testEnv) seedShare(t *testing.T, s *domain.NoteShare) *domain.NoteShare {
	t.Helper()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	if err := e.shares.Create(s); err != nil {
		t.Fatalf("seed share: %v", err)
	}
	return s
}

func userPrincipal(id string) security.Principal {
	return security.Principal{Authenticated: true, ID: id, Role: security.RoleUser}
}

func adminPrincipal(id string) security.Principal {
	return security.Principal{Authenticated: true, ID: id, Role: security.RoleAdmin}
}

func guestPrincipal(id string) security.Principal {
	return security.Principal{Authenticated: true, ID: id, Role: security.RoleGuest}
}
