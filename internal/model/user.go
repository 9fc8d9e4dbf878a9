package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User represents a registered user.
type User struct {
	ID           uuid.UUID `json:"id" gorm:"type:char(36);primaryKey"`
	Email        string    `json:"email" gorm:"uniqueIndex;size:255;not null"`
	PasswordHash string    `json:"-" gorm:"size:255;not null"` // Never expose in JSON
	DisplayName  string    `json:"display_name" gorm:"size:255;not null"`
	Bio          string    `json:"bio,omitempty" gorm:"type:text"`
	Avatar       string    `json:"avatar,omitempty" gorm:"type:text"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// BeforeCreate sets UUID before creating the record.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// UserProfile is the secondary public profile record layered on top of User.
// It is reconciled with the base user at read time, most recent wins.
type UserProfile struct {
	UserID    uuid.UUID `json:"user_id" gorm:"type:char(36);primaryKey"`
	Bio       string    `json:"bio,omitempty" gorm:"type:text"`
	Avatar    string    `json:"avatar,omitempty" gorm:"type:text"`
	JoinedAt  time.Time `json:"joined_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
