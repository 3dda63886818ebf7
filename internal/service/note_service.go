package service

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/memovault/memovault/internal/domain"
	"github.com/memovault/memovault/internal/repository"
	"github.com/memovault/memovault/internal/security"
)

var (
	ErrNoteNotFound = errors.New("note not found")
	ErrNotOwner     = errors.New("principal does not own the resource")
	ErrEmptyNote    = errors.New("title and body are both empty")
)

const maxTags = 12

// NoteView is the JSON shape of a note as served to its owner.
type NoteView struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Tags      []string  `json:"tags"`
	Done      bool      `json:"done"`
	Pinned    bool      `json:"pinned"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NoteInput carries create/update fields; nil pointers on update mean
// "keep the stored value".
type NoteInput struct {
	Title  *string   `json:"title"`
	Body   *string   `json:"body"`
	Tags   *[]string `json:"tags"`
	Done   *bool     `json:"done"`
	Pinned *bool     `json:"pinned"`
}

type NoteService struct {
	notes repository.NoteRepository
}

func NewNoteService(notes repository.NoteRepository) *NoteService {
	return &NoteService{notes: notes}
}

// ownerScope maps a principal onto the note ownership columns. Guests
// and users live in disjoint namespaces even if ids ever collided.
func ownerScope(p security.Principal) (ownerType, ownerID string) {
	if p.Role == security.RoleGuest {
		return domain.OwnerTypeGuest, p.ID
	}
	return domain.OwnerTypeUser, p.ID
}

func canAccessNote(p security.Principal, n *domain.Note) bool {
	if p.Role == security.RoleAdmin {
		return true
	}
	ownerType, ownerID := ownerScope(p)
	return n.OwnerType == ownerType && n.OwnerID == ownerID
}

func (s *NoteService) List(p security.Principal, search, filter, sort string) ([]NoteView, error) {
	ownerType, ownerID := ownerScope(p)
	return s.listOwner(ownerType, ownerID, search, filter, sort)
}

// ListForOwner lets an admin inspect another owner's notes.
func (s *NoteService) ListForOwner(ownerType, ownerID, search, filter, sort string) ([]NoteView, error) {
	return s.listOwner(ownerType, ownerID, search, filter, sort)
}

func (s *NoteService) listOwner(ownerType, ownerID, search, filter, sort string) ([]NoteView, error) {
	notes, err := s.notes.List(repository.NoteListQuery{
		OwnerType: ownerType,
		OwnerID:   ownerID,
		Search:    search,
		Filter:    filter,
		Sort:      sort,
	})
	if err != nil {
		return nil, err
	}
	views := make([]NoteView, 0, len(notes))
	for i := range notes {
		views = append(views, noteView(&notes[i]))
	}
	return views, nil
}

func (s *NoteService) Create(p security.Principal, in NoteInput) (*NoteView, error) {
	title := strings.TrimSpace(derefString(in.Title))
	body := strings.TrimSpace(derefString(in.Body))
	if title == "" && body == "" {
		return nil, ErrEmptyNote
	}
	ownerType, ownerID := ownerScope(p)
	now := time.Now().UTC()
	n := &domain.Note{
		ID:        "note:" + security.RandomToken(18),
		OwnerType: ownerType,
		OwnerID:   ownerID,
		Title:     title,
		Body:      body,
		Tags:      encodeTags(derefTags(in.Tags)),
		Done:      in.Done != nil && *in.Done,
		Pinned:    in.Pinned != nil && *in.Pinned,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.notes.Create(n); err != nil {
		return nil, err
	}
	v := noteView(n)
	return &v, nil
}

func (s *NoteService) Get(p security.Principal, id string) (*NoteView, error) {
	n, err := s.loadOwned(p, id)
	if err != nil {
		return nil, err
	}
	v := noteView(n)
	return &v, nil
}

func (s *NoteService) Update(p security.Principal, id string, in NoteInput) (*NoteView, error) {
	n, err := s.loadOwned(p, id)
	if err != nil {
		return nil, err
	}
	if in.Title != nil {
		n.Title = strings.TrimSpace(*in.Title)
	}
	if in.Body != nil {
		n.Body = strings.TrimSpace(*in.Body)
	}
	if in.Tags != nil {
		n.Tags = encodeTags(*in.Tags)
	}
	if in.Done != nil {
		n.Done = *in.Done
	}
	if in.Pinned != nil {
		n.Pinned = *in.Pinned
	}
	if n.Title == "" && n.Body == "" {
		return nil, ErrEmptyNote
	}
	if err := s.notes.Update(n); err != nil {
		return nil, err
	}
	v := noteView(n)
	return &v, nil
}

func (s *NoteService) Delete(p security.Principal, id string) error {
	if _, err := s.loadOwned(p, id); err != nil {
		return err
	}
	return s.notes.Delete(id)
}

func (s *NoteService) ListAll(limit int) ([]repository.AdminNoteRow, error) {
	return s.notes.ListAllWithOwner(limit)
}

func (s *NoteService) loadOwned(p security.Principal, id string) (*domain.Note, error) {
	n, err := s.notes.FindByID(id)
	if err != nil {
		if errors.Is(err, repository.ErrNoteNotFound) {
			return nil, ErrNoteNotFound
		}
		return nil, err
	}
	if !canAccessNote(p, n) {
		return nil, ErrNotOwner
	}
	return n, nil
}

func noteView(n *domain.Note) NoteView {
	return NoteView{
		ID:        n.ID,
		Title:     n.Title,
		Body:      n.Body,
		Tags:      decodeTags(n.Tags),
		Done:      n.Done,
		Pinned:    n.Pinned,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
	}
}

func encodeTags(tags []string) string {
	if len(tags) > maxTags {
		tags = tags[:maxTags]
	}
	if tags == nil {
		tags = []string{}
	}
	raw, err := json.Marshal(tags)
	if err != nil {
		return "[]"
	}
	return string(raw)
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefTags(t *[]string) []string {
	if t == nil {
		return nil
	}
	return *t
}
