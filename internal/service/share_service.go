package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/memovault/memovault/internal/domain"
	"github.com/memovault/memovault/internal/observability"
	"github.com/memovault/memovault/internal/repository"
	"github.com/memovault/memovault/internal/security"
)

var (
	ErrShareNotFound = errors.New("share link not found")
	// ErrShareGone covers explicitly revoked, burned and expired links.
	ErrShareGone = errors.New("share link gone")
	// ErrShareNoteGone means the link was live but its note vanished.
	ErrShareNoteGone = errors.New("shared note no longer exists")
)

const (
	shareCodeBytes = 18
	// Dead codes stay cached briefly; a purged row re-resolving to 404
	// within the window is indistinguishable to the client.
	deadCodeCacheTTL = time.Minute
)

// CreatedShare is the response to a share creation.
type CreatedShare struct {
	Code          string     `json:"code"`
	URL           string     `json:"url"`
	BurnAfterRead bool       `json:"burn_after_read"`
	ExpiresAt     *time.Time `json:"expires_at"`
	Note          NoteRef    `json:"note"`
}

type NoteRef struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ResolvedShare is a public note snapshot plus link metadata.
type ResolvedShare struct {
	Note ShareNote `json:"note"`
	Meta ShareMeta `json:"meta"`
}

type ShareNote struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ShareMeta struct {
	Code      string     `json:"code"`
	Reads     int64      `json:"reads"`
	Burned    bool       `json:"burned"`
	ExpiresAt *time.Time `json:"expires_at"`
	ServedAt  time.Time  `json:"served_at"`
}

type ShareService struct {
	shares  repository.ShareRepository
	notes   repository.NoteRepository
	cache   ShareLookupCache
	baseURL string
}

func NewShareService(shares repository.ShareRepository, notes repository.NoteRepository, cache ShareLookupCache, baseURL string) *ShareService {
	if cache == nil {
		cache = NewNoopShareLookupCache()
	}
	return &ShareService{shares: shares, notes: notes, cache: cache, baseURL: baseURL}
}

// Create inserts a new link for a note the principal may share. Repeated
// calls create independent links on purpose: simultaneous shares of one
// note are allowed and independently revocable.
func (s *ShareService) Create(ctx context.Context, p security.Principal, noteID string, burnAfterRead bool, expiresInSeconds int64) (*CreatedShare, error) {
	note, err := s.notes.FindByID(noteID)
	if err != nil {
		if errors.Is(err, repository.ErrNoteNotFound) {
			return nil, ErrNoteNotFound
		}
		return nil, err
	}
	if !canAccessNote(p, note) {
		return nil, ErrNotOwner
	}

	now := time.Now().UTC()
	var expiresAt *time.Time
	if expiresInSeconds > 0 {
		t := now.Add(time.Duration(expiresInSeconds) * time.Second)
		expiresAt = &t
	}

	// The code is random, never derived from the note id, so links
	// cannot be enumerated from known notes.
	share := &domain.NoteShare{
		Code:          "s_" + security.RandomToken(shareCodeBytes),
		NoteID:        note.ID,
		OwnerID:       note.OwnerID,
		CreatedAt:     now,
		ExpiresAt:     expiresAt,
		BurnAfterRead: burnAfterRead,
	}
	if err := s.shares.Create(share); err != nil {
		return nil, err
	}
	observability.RecordShareCreated(ctx, burnAfterRead)

	return &CreatedShare{
		Code:          share.Code,
		URL:           s.baseURL + "/share.html#" + share.Code,
		BurnAfterRead: share.BurnAfterRead,
		ExpiresAt:     share.ExpiresAt,
		Note:          NoteRef{ID: note.ID, Title: note.Title, UpdatedAt: note.UpdatedAt},
	}, nil
}

// Resolve walks the read-time state machine in order: unknown, revoked,
// expired, note missing, then claim. Every denying branch that finds a
// decayed row also durably revokes it, so repeated hits on a dead link
// stay cheap.
func (s *ShareService) Resolve(ctx context.Context, code string) (*ResolvedShare, error) {
	if dead, err := s.cache.IsDead(ctx, code); err == nil && dead {
		observability.RecordShareResolution(ctx, "not_found_cached")
		return nil, ErrShareNotFound
	}

	share, err := s.shares.FindByCode(code)
	if err != nil {
		if errors.Is(err, repository.ErrShareNotFound) {
			_ = s.cache.MarkDead(ctx, code, deadCodeCacheTTL)
			observability.RecordShareResolution(ctx, "not_found")
			return nil, ErrShareNotFound
		}
		return nil, err
	}

	if share.Revoked {
		observability.RecordShareResolution(ctx, "gone")
		return nil, ErrShareGone
	}

	now := time.Now().UTC()
	if share.Expired(now) {
		if err := s.shares.Revoke(code); err != nil {
			return nil, err
		}
		observability.RecordShareResolution(ctx, "expired")
		return nil, ErrShareGone
	}

	note, err := s.notes.FindByID(share.NoteID)
	if err != nil {
		if errors.Is(err, repository.ErrNoteNotFound) {
			if err := s.shares.Revoke(code); err != nil {
				return nil, err
			}
			observability.RecordShareResolution(ctx, "note_missing")
			return nil, ErrShareNoteGone
		}
		return nil, err
	}

	// Atomic claim: increments reads and, for burn links, revokes in
	// the same guarded statement. Losing the claim means another reader
	// burned the link between our load and this write.
	claimed, err := s.shares.ClaimRead(code)
	if err != nil {
		return nil, err
	}
	if !claimed {
		observability.RecordShareResolution(ctx, "gone")
		return nil, ErrShareGone
	}
	observability.RecordShareResolution(ctx, "served")

	return &ResolvedShare{
		Note: ShareNote{
			ID:        note.ID,
			Title:     note.Title,
			Body:      note.Body,
			Tags:      decodeTags(note.Tags),
			CreatedAt: note.CreatedAt,
			UpdatedAt: note.UpdatedAt,
		},
		Meta: ShareMeta{
			Code:      share.Code,
			Reads:     share.Reads + 1,
			Burned:    share.BurnAfterRead,
			ExpiresAt: share.ExpiresAt,
			ServedAt:  now,
		},
	}, nil
}

// ListOwned returns the principal's links, newest first.
func (s *ShareService) ListOwned(p security.Principal) ([]domain.NoteShare, error) {
	return s.shares.ListByOwner(p.ID)
}

// Revoke retires a link early. Only the owner or an admin may do so;
// revoking an already-dead link succeeds (the state is monotonic).
func (s *ShareService) Revoke(p security.Principal, code string) error {
	share, err := s.shares.FindByCode(code)
	if err != nil {
		if errors.Is(err, repository.ErrShareNotFound) {
			return ErrShareNotFound
		}
		return err
	}
	if p.Role != security.RoleAdmin && share.OwnerID != p.ID {
		return ErrNotOwner
	}
	return s.shares.Revoke(code)
}

func decodeTags(raw string) []string {
	if raw == "" {
		return []string{}
	}
	var tags []string
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		return []string{}
	}
	return tags
}
