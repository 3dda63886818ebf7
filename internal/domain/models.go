package domain

import "time"

// Owner type discriminators for notes. Guest-owned rows survive the
// guest's token churn because the subject id is stable per guest.
const (
	OwnerTypeUser  = "user"
	OwnerTypeGuest = "guest"
)

type User struct {
	ID        string    `gorm:"primaryKey;size:64" json:"id"`
	Username  string    `gorm:"size:64;uniqueIndex;not null" json:"username"`
	Role      string    `gorm:"size:16;not null" json:"role"`
	PassSalt  string    `gorm:"size:64;not null" json:"-"`
	PassHash  string    `gorm:"size:128;not null" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Note struct {
	ID        string    `gorm:"primaryKey;size:64" json:"id"`
	OwnerType string    `gorm:"size:8;index:idx_notes_owner;not null" json:"owner_type"`
	OwnerID   string    `gorm:"size:64;index:idx_notes_owner;not null" json:"owner_id"`
	Title     string    `gorm:"size:512" json:"title"`
	Body      string    `json:"body"`
	Tags      string    `gorm:"size:2048" json:"-"` // JSON array
	Done      bool      `json:"done"`
	Pinned    bool      `json:"pinned"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NoteShare is a public, unguessable-code-keyed grant of read access to
// one note. Revoked is monotonic: once set it is never cleared, only
// eventually purged by the cleanup sweep.
type NoteShare struct {
	Code          string     `gorm:"primaryKey;size:64" json:"code"`
	NoteID        string     `gorm:"size:64;index;not null" json:"note_id"`
	OwnerID       string     `gorm:"size:64;index;not null" json:"owner_id"`
	CreatedAt     time.Time  `json:"created_at"`
	ExpiresAt     *time.Time `gorm:"index" json:"expires_at"`
	Reads         int64      `gorm:"not null;default:0" json:"reads"`
	BurnAfterRead bool       `gorm:"not null;default:false" json:"burn_after_read"`
	Revoked       bool       `gorm:"index;not null;default:false" json:"revoked"`
}

// Expired reports whether the link's wall-clock expiry has passed. A nil
// ExpiresAt never expires by time.
func (s *NoteShare) Expired(now time.Time) bool {
	return s.ExpiresAt != nil && !now.Before(*s.ExpiresAt)
}

// GuestTransferCode lets a guest session move to another device: issued
// on one, redeemed once on the other within a short window.
type GuestTransferCode struct {
	Code      string     `gorm:"primaryKey;size:64"`
	GuestSub  string     `gorm:"size:64;not null"`
	ExpiresAt time.Time  `gorm:"not null"`
	UsedAt    *time.Time `gorm:""`
	CreatedAt time.Time
}

// AppMeta holds singleton key/value rows, such as the cleanup
// checkpoint.
type AppMeta struct {
	Key       string `gorm:"primaryKey;size:64"`
	Value     string `gorm:"size:256"`
	UpdatedAt time.Time
}

func (AppMeta) TableName() string { return "app_meta" }
