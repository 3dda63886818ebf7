package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/memovault/memovault/internal/domain"
)

var ErrTransferCodeNotFound = errors.New("transfer code not found")

type TransferCodeRepository interface {
	Create(c *domain.GuestTransferCode) error
	FindByCode(code string) (*domain.GuestTransferCode, error)
	MarkUsed(code string, usedAt time.Time) error
}

type GormTransferCodeRepository struct{ db *gorm.DB }

func NewTransferCodeRepository(db *gorm.DB) TransferCodeRepository {
	return &GormTransferCodeRepository{db: db}
}

func (r *GormTransferCodeRepository) Create(c *domain.GuestTransferCode) error {
	return r.db.Create(c).Error
}

func (r *GormTransferCodeRepository) FindByCode(code string) (*domain.GuestTransferCode, error) {
	var c domain.GuestTransferCode
	if err := r.db.Where("code = ?", code).First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransferCodeNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *GormTransferCodeRepository) MarkUsed(code string, usedAt time.Time) error {
	return r.db.Model(&domain.GuestTransferCode{}).Where("code = ?", code).
		Update("used_at", usedAt).Error
}
