package model

import (
	"time"

	"github.com/google/uuid"
)

// Draft is a user's single in-progress capsule, overwritten on every
// autosave and cleared when the capsule is sealed. Content is plaintext:
// a draft has not been sealed yet.
type Draft struct {
	UserID     uuid.UUID    `json:"user_id" gorm:"type:char(36);primaryKey"`
	Title      string       `json:"title" gorm:"size:255"`
	Message    string       `json:"message" gorm:"type:mediumtext"`
	OpenDate   *time.Time   `json:"open_date,omitempty"`
	IsGoal     bool         `json:"is_goal"`
	GoalTitles string       `json:"goal_titles,omitempty" gorm:"type:text"` // newline separated
	Theme      CapsuleTheme `json:"theme" gorm:"type:varchar(20);default:'modern'"`
	UpdatedAt  time.Time    `json:"updated_at"`
}
