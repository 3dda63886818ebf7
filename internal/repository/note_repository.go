package repository

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/memovault/memovault/internal/domain"
)

var ErrNoteNotFound = errors.New("note not found")

// NoteListQuery narrows a listing to one owner plus optional search,
// status filter and sort order.
type NoteListQuery struct {
	OwnerType string
	OwnerID   string
	Search    string
	Filter    string // all | active | done | pinned
	Sort      string // updated_desc | updated_asc | created_desc | created_asc
	Limit     int
}

// AdminNoteRow is a note joined with its owner's username for the admin
// console.
type AdminNoteRow struct {
	domain.Note
	OwnerUsername string `json:"owner_username"`
}

type NoteRepository interface {
	Create(n *domain.Note) error
	FindByID(id string) (*domain.Note, error)
	Update(n *domain.Note) error
	Delete(id string) error
	List(q NoteListQuery) ([]domain.Note, error)
	ListAllWithOwner(limit int) ([]AdminNoteRow, error)
	ReassignOwner(fromType, fromID, toType, toID string) (int64, error)
	DeleteByOwner(ownerType, ownerID string) (int64, error)
}

type GormNoteRepository struct{ db *gorm.DB }

func NewNoteRepository(db *gorm.DB) NoteRepository { return &GormNoteRepository{db: db} }

func (r *GormNoteRepository) Create(n *domain.Note) error {
	return r.db.Create(n).Error
}

func (r *GormNoteRepository) FindByID(id string) (*domain.Note, error) {
	var n domain.Note
	if err := r.db.Where("id = ?", id).First(&n).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoteNotFound
		}
		return nil, err
	}
	return &n, nil
}

func (r *GormNoteRepository) Update(n *domain.Note) error {
	n.UpdatedAt = time.Now().UTC()
	return r.db.Save(n).Error
}

func (r *GormNoteRepository) Delete(id string) error {
	return r.db.Where("id = ?", id).Delete(&domain.Note{}).Error
}

func (r *GormNoteRepository) List(q NoteListQuery) ([]domain.Note, error) {
	tx := r.db.Where("owner_type = ? AND owner_id = ?", q.OwnerType, q.OwnerID)

	switch q.Filter {
	case "active":
		tx = tx.Where("done = ?", false)
	case "done":
		tx = tx.Where("done = ?", true)
	case "pinned":
		tx = tx.Where("pinned = ?", true)
	}

	if s := strings.TrimSpace(q.Search); s != "" {
		like := "%" + escapeLike(s) + "%"
		tx = tx.Where("(title LIKE ? OR body LIKE ? OR tags LIKE ?)", like, like, like)
	}

	limit := q.Limit
	if limit <= 0 || limit > 500 {
		limit = 500
	}

	var notes []domain.Note
	err := tx.Order(sortClause(q.Sort)).Limit(limit).Find(&notes).Error
	return notes, err
}

func (r *GormNoteRepository) ListAllWithOwner(limit int) ([]AdminNoteRow, error) {
	if limit <= 0 || limit > 1000 {
		limit = 1000
	}
	var rows []AdminNoteRow
	err := r.db.Model(&domain.Note{}).
		Select("notes.*, users.username AS owner_username").
		Joins("LEFT JOIN users ON users.id = notes.owner_id AND notes.owner_type = ?", domain.OwnerTypeUser).
		Order("notes.updated_at DESC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

// ReassignOwner moves every note from one owner to another; used when a
// guest upgrades to a registered user.
func (r *GormNoteRepository) ReassignOwner(fromType, fromID, toType, toID string) (int64, error) {
	res := r.db.Model(&domain.Note{}).
		Where("owner_type = ? AND owner_id = ?", fromType, fromID).
		Updates(map[string]any{
			"owner_type": toType,
			"owner_id":   toID,
			"updated_at": time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}

func (r *GormNoteRepository) DeleteByOwner(ownerType, ownerID string) (int64, error) {
	res := r.db.Where("owner_type = ? AND owner_id = ?", ownerType, ownerID).Delete(&domain.Note{})
	return res.RowsAffected, res.Error
}

func sortClause(sort string) string {
	switch sort {
	case "updated_asc":
		return "pinned DESC, updated_at ASC"
	case "created_desc":
		return "pinned DESC, created_at DESC"
	case "created_asc":
		return "pinned DESC, created_at ASC"
	default:
		return "pinned DESC, updated_at DESC"
	}
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `%`, `\%`)
	return strings.ReplaceAll(s, `_`, `\_`)
}
