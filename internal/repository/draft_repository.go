package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"capsulevault/internal/model"
)

// DraftRepository defines draft persistence operations. Each user has at
// most one draft row; saves overwrite it in place.
type DraftRepository interface {
	Save(ctx context.Context, draft *model.Draft) error
	FindByUser(ctx context.Context, userID uuid.UUID) (*model.Draft, error)
	DeleteByUser(ctx context.Context, userID uuid.UUID) error
}

type draftRepository struct {
	db *gorm.DB
}

// NewDraftRepository creates a new draft repository.
func NewDraftRepository(db *gorm.DB) DraftRepository {
	return &draftRepository{db: db}
}

func (r *draftRepository) Save(ctx context.Context, draft *model.Draft) error {
	return r.db.WithContext(ctx).Save(draft).Error
}

func (r *draftRepository) FindByUser(ctx context.Context, userID uuid.UUID) (*model.Draft, error) {
	var draft model.Draft
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&draft).Error; err != nil {
		return nil, err
	}
	return &draft, nil
}

func (r *draftRepository) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&model.Draft{}).Error
}
