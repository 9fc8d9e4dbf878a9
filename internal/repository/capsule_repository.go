package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"capsulevault/internal/model"
)

// CapsuleRepository defines capsule persistence operations.
type CapsuleRepository interface {
	Create(ctx context.Context, capsule *model.Capsule, files []model.CapsuleFile, goals []model.Goal) error
	Update(ctx context.Context, capsule *model.Capsule) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Capsule, error)
	FindByShareToken(ctx context.Context, token string) (*model.Capsule, error)
	ShareTokenExists(ctx context.Context, token string) (bool, error)
	ListByOwner(ctx context.Context, userID uuid.UUID) ([]model.Capsule, error)
	ListPublicOpened(ctx context.Context) ([]model.Capsule, error)
	UpdateOwnerName(ctx context.Context, userID uuid.UUID, name string) error
	DeleteCascade(ctx context.Context, id uuid.UUID) error

	FindReaction(ctx context.Context, capsuleID, userID uuid.UUID) (*model.Reaction, error)
	AddReaction(ctx context.Context, reaction *model.Reaction) error
	RemoveReaction(ctx context.Context, capsuleID, userID uuid.UUID) error
	ListReactions(ctx context.Context, capsuleID uuid.UUID) ([]model.Reaction, error)

	AppendComment(ctx context.Context, comment *model.Comment) error
	ListComments(ctx context.Context, capsuleID uuid.UUID) ([]model.Comment, error)
}

type capsuleRepository struct {
	db *gorm.DB
}

// NewCapsuleRepository creates a new capsule repository.
func NewCapsuleRepository(db *gorm.DB) CapsuleRepository {
	return &capsuleRepository{db: db}
}

// Create persists the capsule together with its attachments and initial goal
// list in one transaction, so a failed insert leaves nothing behind.
func (r *capsuleRepository) Create(ctx context.Context, capsule *model.Capsule, files []model.CapsuleFile, goals []model.Goal) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(capsule).Error; err != nil {
			return err
		}
		for i := range files {
			files[i].CapsuleID = capsule.ID
			if err := tx.Create(&files[i]).Error; err != nil {
				return err
			}
		}
		for i := range goals {
			goals[i].CapsuleID = capsule.ID
			if err := tx.Create(&goals[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Update updates an existing capsule.
func (r *capsuleRepository) Update(ctx context.Context, capsule *model.Capsule) error {
	return r.db.WithContext(ctx).Save(capsule).Error
}

// FindByID finds a capsule by ID, attachments and reactions included.
func (r *capsuleRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Capsule, error) {
	var capsule model.Capsule
	if err := r.db.WithContext(ctx).Preload("Files").Preload("Reactions").
		Where("id = ?", id).First(&capsule).Error; err != nil {
		return nil, err
	}
	return &capsule, nil
}

// FindByShareToken resolves a share token to its capsule.
func (r *capsuleRepository) FindByShareToken(ctx context.Context, token string) (*model.Capsule, error) {
	var capsule model.Capsule
	if err := r.db.WithContext(ctx).Preload("Files").Preload("Reactions").
		Where("share_token = ?", token).First(&capsule).Error; err != nil {
		return nil, err
	}
	return &capsule, nil
}

// ShareTokenExists reports whether any capsule already carries the token.
func (r *capsuleRepository) ShareTokenExists(ctx context.Context, token string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Capsule{}).
		Where("share_token = ?", token).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListByOwner lists a user's capsules, newest first.
func (r *capsuleRepository) ListByOwner(ctx context.Context, userID uuid.UUID) ([]model.Capsule, error) {
	var capsules []model.Capsule
	if err := r.db.WithContext(ctx).Preload("Reactions").
		Where("user_id = ?", userID).
		Order("created_at DESC").Find(&capsules).Error; err != nil {
		return nil, err
	}
	return capsules, nil
}

// ListPublicOpened lists the community feed: public capsules whose time lock
// has been released.
func (r *capsuleRepository) ListPublicOpened(ctx context.Context) ([]model.Capsule, error) {
	var capsules []model.Capsule
	if err := r.db.WithContext(ctx).Preload("Reactions").
		Where("is_public = ? AND status = ?", true, model.CapsuleStatusOpened).
		Order("created_at DESC").Find(&capsules).Error; err != nil {
		return nil, err
	}
	return capsules, nil
}

// UpdateOwnerName rewrites the denormalized owner name on every capsule the
// user owns. Called when a profile's display name changes.
func (r *capsuleRepository) UpdateOwnerName(ctx context.Context, userID uuid.UUID, name string) error {
	return r.db.WithContext(ctx).Model(&model.Capsule{}).
		Where("user_id = ?", userID).
		Update("user_name", name).Error
}

// DeleteCascade removes a capsule and every row that hangs off it: goals,
// comments, reactions and attachments die with their parent.
func (r *capsuleRepository) DeleteCascade(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("capsule_id = ?", id).Delete(&model.Goal{}).Error; err != nil {
			return err
		}
		if err := tx.Where("capsule_id = ?", id).Delete(&model.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("capsule_id = ?", id).Delete(&model.Reaction{}).Error; err != nil {
			return err
		}
		if err := tx.Where("capsule_id = ?", id).Delete(&model.CapsuleFile{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&model.Capsule{}).Error
	})
}

// FindReaction returns the user's reaction on a capsule, if any.
func (r *capsuleRepository) FindReaction(ctx context.Context, capsuleID, userID uuid.UUID) (*model.Reaction, error) {
	var reaction model.Reaction
	if err := r.db.WithContext(ctx).
		Where("capsule_id = ? AND user_id = ?", capsuleID, userID).
		First(&reaction).Error; err != nil {
		return nil, err
	}
	return &reaction, nil
}

// AddReaction inserts a reaction row. The unique (capsule_id, user_id) index
// rejects a second reaction from the same user.
func (r *capsuleRepository) AddReaction(ctx context.Context, reaction *model.Reaction) error {
	return r.db.WithContext(ctx).Create(reaction).Error
}

// RemoveReaction deletes the user's reaction on a capsule.
func (r *capsuleRepository) RemoveReaction(ctx context.Context, capsuleID, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("capsule_id = ? AND user_id = ?", capsuleID, userID).
		Delete(&model.Reaction{}).Error
}

// ListReactions lists all reactions on a capsule.
func (r *capsuleRepository) ListReactions(ctx context.Context, capsuleID uuid.UUID) ([]model.Reaction, error) {
	var reactions []model.Reaction
	if err := r.db.WithContext(ctx).
		Where("capsule_id = ?", capsuleID).Find(&reactions).Error; err != nil {
		return nil, err
	}
	return reactions, nil
}

// AppendComment inserts the comment and bumps the parent's comments_count in
// the same transaction, keeping the counter equal to the row count.
func (r *capsuleRepository) AppendComment(ctx context.Context, comment *model.Comment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(comment).Error; err != nil {
			return err
		}
		return tx.Model(&model.Capsule{}).
			Where("id = ?", comment.CapsuleID).
			Update("comments_count", gorm.Expr("comments_count + 1")).Error
	})
}

// ListComments lists a capsule's comments oldest first.
func (r *capsuleRepository) ListComments(ctx context.Context, capsuleID uuid.UUID) ([]model.Comment, error) {
	var comments []model.Comment
	if err := r.db.WithContext(ctx).
		Where("capsule_id = ?", capsuleID).
		Order("created_at ASC").Find(&comments).Error; err != nil {
		return nil, err
	}
	return comments, nil
}
