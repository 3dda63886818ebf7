package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/memovault/memovault/internal/domain"
)

var ErrMetaNotFound = errors.New("meta key not found")

// MetaRepository stores singleton key/value rows such as the cleanup
// checkpoint. Get and Set are independent statements; callers that use
// them as a gate get best-effort claiming, not a lock.
type MetaRepository interface {
	Get(key string) (string, error)
	Set(key, value string) error
}

type GormMetaRepository struct{ db *gorm.DB }

func NewMetaRepository(db *gorm.DB) MetaRepository { return &GormMetaRepository{db: db} }

func (r *GormMetaRepository) Get(key string) (string, error) {
	var m domain.AppMeta
	if err := r.db.Where("key = ?", key).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrMetaNotFound
		}
		return "", err
	}
	return m.Value, nil
}

func (r *GormMetaRepository) Set(key, value string) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&domain.AppMeta{Key: key, Value: value, UpdatedAt: time.Now().UTC()}).Error
}
