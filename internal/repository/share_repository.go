package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/memovault/memovault/internal/domain"
)

var (
	ErrShareNotFound = errors.New("share not found")
	ErrShareExists   = errors.New("share code already exists")
)

type ShareRepository interface {
	Create(s *domain.NoteShare) error
	FindByCode(code string) (*domain.NoteShare, error)
	ListByOwner(ownerID string) ([]domain.NoteShare, error)
	Revoke(code string) error
	// ClaimRead atomically increments the read counter and, for
	// burn-after-read links, flips revoked in the same statement. It
	// only succeeds while the row is still un-revoked, so exactly one
	// reader can ever claim a burn link.
	ClaimRead(code string) (bool, error)
	RevokeExpired(now time.Time) (int64, error)
	RevokeOrphaned() (int64, error)
	DeleteExpiredBefore(cutoff time.Time) (int64, error)
	DeleteUnexpiringBefore(cutoff time.Time) (int64, error)
}

type GormShareRepository struct{ db *gorm.DB }

func NewShareRepository(db *gorm.DB) ShareRepository { return &GormShareRepository{db: db} }

func (r *GormShareRepository) Create(s *domain.NoteShare) error {
	err := r.db.Create(s).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrShareExists
	}
	return err
}

func (r *GormShareRepository) FindByCode(code string) (*domain.NoteShare, error) {
	var s domain.NoteShare
	if err := r.db.Where("code = ?", code).First(&s).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrShareNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *GormShareRepository) ListByOwner(ownerID string) ([]domain.NoteShare, error) {
	var shares []domain.NoteShare
	err := r.db.Where("owner_id = ?", ownerID).Order("created_at DESC").Find(&shares).Error
	return shares, err
}

// Revoke is monotonic; revoking an already-revoked link is a no-op.
func (r *GormShareRepository) Revoke(code string) error {
	return r.db.Model(&domain.NoteShare{}).Where("code = ?", code).
		Update("revoked", true).Error
}

func (r *GormShareRepository) ClaimRead(code string) (bool, error) {
	res := r.db.Model(&domain.NoteShare{}).
		Where("code = ? AND revoked = ?", code, false).
		Updates(map[string]any{
			"reads":   gorm.Expr("reads + 1"),
			"revoked": gorm.Expr("burn_after_read"),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// RevokeExpired retires links whose expiry passed without a visit, so
// they do not linger active forever.
func (r *GormShareRepository) RevokeExpired(now time.Time) (int64, error) {
	res := r.db.Model(&domain.NoteShare{}).
		Where("revoked = ? AND expires_at IS NOT NULL AND expires_at <= ?", false, now).
		Update("revoked", true)
	return res.RowsAffected, res.Error
}

// RevokeOrphaned retires links whose note was deleted independently.
func (r *GormShareRepository) RevokeOrphaned() (int64, error) {
	res := r.db.Model(&domain.NoteShare{}).
		Where("revoked = ? AND NOT EXISTS (SELECT 1 FROM notes WHERE notes.id = note_shares.note_id)", false).
		Update("revoked", true)
	return res.RowsAffected, res.Error
}

func (r *GormShareRepository) DeleteExpiredBefore(cutoff time.Time) (int64, error) {
	res := r.db.Where("revoked = ? AND expires_at IS NOT NULL AND expires_at <= ?", true, cutoff).
		Delete(&domain.NoteShare{})
	return res.RowsAffected, res.Error
}

// DeleteUnexpiringBefore purges revoked links that never had an expiry
// (burn-after-read, manual revocation) once older than the retention
// cutoff.
func (r *GormShareRepository) DeleteUnexpiringBefore(cutoff time.Time) (int64, error) {
	res := r.db.Where("revoked = ? AND expires_at IS NULL AND created_at <= ?", true, cutoff).
		Delete(&domain.NoteShare{})
	return res.RowsAffected, res.Error
}
