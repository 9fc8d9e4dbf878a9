package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"capsulevault/internal/model"
)

// GoalRepository defines goal persistence operations.
type GoalRepository interface {
	CreateBatch(ctx context.Context, goals []model.Goal) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Goal, error)
	ListByCapsule(ctx context.Context, capsuleID uuid.UUID) ([]model.Goal, error)
	Update(ctx context.Context, goal *model.Goal) error
}

type goalRepository struct {
	db *gorm.DB
}

// NewGoalRepository creates a new goal repository.
func NewGoalRepository(db *gorm.DB) GoalRepository {
	return &goalRepository{db: db}
}

// CreateBatch inserts a goal list in one statement.
func (r *goalRepository) CreateBatch(ctx context.Context, goals []model.Goal) error {
	if len(goals) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(goals, 100).Error
}

func (r *goalRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Goal, error) {
	var goal model.Goal
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&goal).Error; err != nil {
		return nil, err
	}
	return &goal, nil
}

func (r *goalRepository) ListByCapsule(ctx context.Context, capsuleID uuid.UUID) ([]model.Goal, error) {
	var goals []model.Goal
	if err := r.db.WithContext(ctx).
		Where("capsule_id = ?", capsuleID).
		Order("created_at ASC").Find(&goals).Error; err != nil {
		return nil, err
	}
	return goals, nil
}

func (r *goalRepository) Update(ctx context.Context, goal *model.Goal) error {
	return r.db.WithContext(ctx).Save(goal).Error
}
