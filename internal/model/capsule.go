package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CapsuleStatus represents the lifecycle state of a capsule.
// The transition sealed -> opened happens exactly once and never reverts.
type CapsuleStatus string

const (
	CapsuleStatusSealed CapsuleStatus = "sealed"
	CapsuleStatusOpened CapsuleStatus = "opened"
)

// CapsuleTheme selects the presentation theme chosen at creation.
type CapsuleTheme string

const (
	ThemeModern     CapsuleTheme = "modern"
	ThemeVintage    CapsuleTheme = "vintage"
	ThemeMinimalist CapsuleTheme = "minimalist"
	ThemeCosmic     CapsuleTheme = "cosmic"
)

// ValidTheme reports whether t is one of the supported themes.
func ValidTheme(t CapsuleTheme) bool {
	switch t {
	case ThemeModern, ThemeVintage, ThemeMinimalist, ThemeCosmic:
		return true
	}
	return false
}

// Capsule is a piece of content locked until its open date.
// Message is ciphertext at rest; plaintext exists only transiently in memory.
type Capsule struct {
	ID            uuid.UUID      `json:"id" gorm:"type:char(36);primaryKey"`
	UserID        uuid.UUID      `json:"user_id" gorm:"type:char(36);not null;index"`
	UserName      string         `json:"user_name" gorm:"size:255;not null"` // owner display name snapshot
	Title         string         `json:"title" gorm:"size:255;not null"`
	Message       string         `json:"message" gorm:"type:mediumtext;not null"`
	OpenDate      time.Time      `json:"open_date" gorm:"not null;index"`
	Status        CapsuleStatus  `json:"status" gorm:"type:varchar(20);not null;default:'sealed';index"`
	IsGoal        bool           `json:"is_goal" gorm:"default:false"`
	VoiceNote     string         `json:"voice_note,omitempty" gorm:"type:mediumtext"`
	Theme         CapsuleTheme   `json:"theme" gorm:"type:varchar(20);not null;default:'modern'"`
	IsPublic      bool           `json:"is_public" gorm:"default:false;index"`
	CommentsCount int            `json:"comments_count" gorm:"not null;default:0"`
	// ShareToken is empty until a link is minted, so the column cannot
	// carry a unique index: every unminted capsule stores ''. Minted
	// tokens are kept unique at mint time instead.
	ShareToken    string         `json:"share_token,omitempty" gorm:"size:64;index"`
	SharePassword string         `json:"-" gorm:"size:255"` // bcrypt hash, empty when link is open
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Files     []CapsuleFile `json:"files,omitempty" gorm:"foreignKey:CapsuleID"`
	Reactions []Reaction    `json:"reactions,omitempty" gorm:"foreignKey:CapsuleID"`
}

// BeforeCreate sets UUID before creating the record.
func (c *Capsule) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// Opened reports whether the capsule has left its sealed state.
func (c *Capsule) Opened() bool {
	return c.Status == CapsuleStatusOpened
}

// CapsuleFile is an attachment stored encrypted alongside its capsule.
type CapsuleFile struct {
	ID          uuid.UUID `json:"id" gorm:"type:char(36);primaryKey"`
	CapsuleID   uuid.UUID `json:"capsule_id" gorm:"type:char(36);not null;index"`
	Name        string    `json:"name" gorm:"size:255;not null"`
	Data        []byte    `json:"data" gorm:"type:mediumblob;not null"` // ciphertext
	ContentType string    `json:"type" gorm:"size:100"`
	CreatedAt   time.Time `json:"created_at"`
}

// BeforeCreate sets UUID before creating the record.
func (f *CapsuleFile) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}

// Reaction is a user's single reaction on a capsule. The unique index on
// (capsule_id, user_id) gives the one-per-user set semantics.
type Reaction struct {
	ID        uuid.UUID `json:"-" gorm:"type:char(36);primaryKey"`
	CapsuleID uuid.UUID `json:"-" gorm:"type:char(36);not null;uniqueIndex:idx_reaction_capsule_user"`
	UserID    uuid.UUID `json:"user_id" gorm:"type:char(36);not null;uniqueIndex:idx_reaction_capsule_user"`
	Type      string    `json:"type" gorm:"size:30;not null;default:'heart'"`
	CreatedAt time.Time `json:"-"`
}

// BeforeCreate sets UUID before creating the record.
func (r *Reaction) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// Comment is an append-only note on a publicly opened capsule.
// capsules.comments_count always equals the comment row count; the two are
// written in the same transaction.
type Comment struct {
	ID        uuid.UUID `json:"id" gorm:"type:char(36);primaryKey"`
	CapsuleID uuid.UUID `json:"capsule_id" gorm:"type:char(36);not null;index"`
	UserID    uuid.UUID `json:"user_id" gorm:"type:char(36);not null"`
	UserName  string    `json:"user_name" gorm:"size:255;not null"` // snapshot at post time
	Text      string    `json:"text" gorm:"size:500;not null"`
	CreatedAt time.Time `json:"created_at"`
}

// BeforeCreate sets UUID before creating the record.
func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// MaxCommentLength is the upper bound on comment text.
const MaxCommentLength = 500
