package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Goal is one checklist entry attached to a goal-enabled capsule.
type Goal struct {
	ID          uuid.UUID  `json:"id" gorm:"type:char(36);primaryKey"`
	CapsuleID   uuid.UUID  `json:"capsule_id" gorm:"type:char(36);not null;index"`
	UserID      uuid.UUID  `json:"user_id" gorm:"type:char(36);not null;index"`
	Title       string     `json:"title" gorm:"size:255;not null"`
	Completed   bool       `json:"completed" gorm:"default:false"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// BeforeCreate sets UUID before creating the record.
func (g *Goal) BeforeCreate(tx *gorm.DB) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	return nil
}

// GoalProgress is the derived completion state of a capsule's goal list.
// Ratio is completed/total and 0 when the list is empty; it is never stored.
type GoalProgress struct {
	Completed int     `json:"completed"`
	Total     int     `json:"total"`
	Ratio     float64 `json:"ratio"`
}

// ProgressOf computes the derived progress for a goal list.
func ProgressOf(goals []Goal) GoalProgress {
	p := GoalProgress{Total: len(goals)}
	for _, g := range goals {
		if g.Completed {
			p.Completed++
		}
	}
	if p.Total > 0 {
		p.Ratio = float64(p.Completed) / float64(p.Total)
	}
	return p
}
