package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/memovault/memovault/internal/domain"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrUsernameTaken = errors.New("username already taken")
)

type UserRepository interface {
	Create(u *domain.User) error
	FindByID(id string) (*domain.User, error)
	FindByUsername(username string) (*domain.User, error)
	Any() (bool, error)
	Count() (int64, error)
	List(limit, offset int) ([]domain.User, error)
	UpdateRole(id, role string) error
	UpdateSecret(id, salt, hash string) error
	CountOtherAdmins(excludeID string) (int64, error)
	Delete(id string) error
}

type GormUserRepository struct{ db *gorm.DB }

func NewUserRepository(db *gorm.DB) UserRepository { return &GormUserRepository{db: db} }

func (r *GormUserRepository) Create(u *domain.User) error {
	err := r.db.Create(u).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrUsernameTaken
	}
	return err
}

func (r *GormUserRepository) FindByID(id string) (*domain.User, error) {
	var u domain.User
	if err := r.db.Where("id = ?", id).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *GormUserRepository) FindByUsername(username string) (*domain.User, error) {
	var u domain.User
	if err := r.db.Where("username = ?", username).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *GormUserRepository) Any() (bool, error) {
	var u domain.User
	err := r.db.Select("id").Limit(1).Take(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *GormUserRepository) Count() (int64, error) {
	var n int64
	err := r.db.Model(&domain.User{}).Count(&n).Error
	return n, err
}

func (r *GormUserRepository) List(limit, offset int) ([]domain.User, error) {
	var users []domain.User
	err := r.db.Order("created_at DESC").Limit(limit).Offset(offset).Find(&users).Error
	return users, err
}

func (r *GormUserRepository) UpdateRole(id, role string) error {
	return r.db.Model(&domain.User{}).Where("id = ?", id).
		Updates(map[string]any{"role": role, "updated_at": time.Now().UTC()}).Error
}

func (r *GormUserRepository) UpdateSecret(id, salt, hash string) error {
	return r.db.Model(&domain.User{}).Where("id = ?", id).
		Updates(map[string]any{"pass_salt": salt, "pass_hash": hash, "updated_at": time.Now().UTC()}).Error
}

func (r *GormUserRepository) CountOtherAdmins(excludeID string) (int64, error) {
	var n int64
	err := r.db.Model(&domain.User{}).
		Where("role = ? AND id <> ?", "admin", excludeID).Count(&n).Error
	return n, err
}

func (r *GormUserRepository) Delete(id string) error {
	return r.db.Where("id = ?", id).Delete(&domain.User{}).Error
}
