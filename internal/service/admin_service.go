package service

import (
	"errors"
	"time"

	"github.com/memovault/memovault/internal/domain"
	"github.com/memovault/memovault/internal/repository"
	"github.com/memovault/memovault/internal/security"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrSelfDemotion  = errors.New("cannot demote own admin role")
	ErrSelfDeletion  = errors.New("cannot delete own account")
	ErrLastAdmin     = errors.New("cannot remove the last admin")
	ErrInvalidRole   = errors.New("role must be user or admin")
	ErrNoUserChanges = errors.New("no changes requested")
)

// UserPage is one page of the admin user listing.
type UserPage struct {
	Items   []UserView `json:"items"`
	Limit   int        `json:"limit"`
	Offset  int        `json:"offset"`
	Total   int64      `json:"total"`
	HasMore bool       `json:"has_more"`
}

type UserView struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UserPatch carries the admin mutation; nil means "leave unchanged".
type UserPatch struct {
	Role     *string
	Passcode *string
}

// AdminService implements the user-management console. Guard rails: an
// admin cannot demote themselves, delete themselves, or remove the last
// remaining admin.
type AdminService struct {
	users repository.UserRepository
	notes repository.NoteRepository
}

func NewAdminService(users repository.UserRepository, notes repository.NoteRepository) *AdminService {
	return &AdminService{users: users, notes: notes}
}

func (s *AdminService) ListUsers(limit, offset int) (*UserPage, error) {
	if limit < 1 {
		limit = 50
	}
	if limit > 1000 {
		limit = 1000
	}
	if offset < 0 {
		offset = 0
	}
	total, err := s.users.Count()
	if err != nil {
		return nil, err
	}
	users, err := s.users.List(limit, offset)
	if err != nil {
		return nil, err
	}
	items := make([]UserView, 0, len(users))
	for i := range users {
		items = append(items, userView(&users[i]))
	}
	return &UserPage{
		Items:   items,
		Limit:   limit,
		Offset:  offset,
		Total:   total,
		HasMore: int64(offset+len(items)) < total,
	}, nil
}

// UpdateUser changes a user's role and/or resets their passcode. The
// key may be a user id or a username.
func (s *AdminService) UpdateUser(actor security.Principal, key string, patch UserPatch) error {
	if patch.Role == nil && patch.Passcode == nil {
		return ErrNoUserChanges
	}
	target, err := s.resolveUser(key)
	if err != nil {
		return err
	}

	if patch.Role != nil {
		role := *patch.Role
		if role != string(security.RoleUser) && role != string(security.RoleAdmin) {
			return ErrInvalidRole
		}
		if target.ID == actor.ID && role != string(security.RoleAdmin) {
			return ErrSelfDemotion
		}
		if target.Role == string(security.RoleAdmin) && role != string(security.RoleAdmin) {
			others, err := s.users.CountOtherAdmins(target.ID)
			if err != nil {
				return err
			}
			if others == 0 {
				return ErrLastAdmin
			}
		}
		if err := s.users.UpdateRole(target.ID, role); err != nil {
			return err
		}
	}

	if patch.Passcode != nil {
		salt := security.NewSalt()
		hash, err := security.HashPasscode(*patch.Passcode, salt, security.DefaultPBKDF2Iterations)
		if err != nil {
			return err
		}
		if err := s.users.UpdateSecret(target.ID, salt, hash); err != nil {
			return err
		}
	}
	return nil
}

// DeleteUser removes a user and all notes they own.
func (s *AdminService) DeleteUser(actor security.Principal, key string) error {
	target, err := s.resolveUser(key)
	if err != nil {
		return err
	}
	if target.ID == actor.ID {
		return ErrSelfDeletion
	}
	if target.Role == string(security.RoleAdmin) {
		others, err := s.users.CountOtherAdmins(target.ID)
		if err != nil {
			return err
		}
		if others == 0 {
			return ErrLastAdmin
		}
	}
	if _, err := s.notes.DeleteByOwner(domain.OwnerTypeUser, target.ID); err != nil {
		return err
	}
	return s.users.Delete(target.ID)
}

func (s *AdminService) resolveUser(key string) (*domain.User, error) {
	user, err := s.users.FindByID(key)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, err
	}
	user, err = s.users.FindByUsername(key)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func userView(u *domain.User) UserView {
	return UserView{
		ID:        u.ID,
		Username:  u.Username,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
