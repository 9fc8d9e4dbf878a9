package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"capsulevault/internal/apperr"
	"capsulevault/internal/model"
	"capsulevault/internal/repository"
)

// GoalService tracks the checklist attached to goal-enabled capsules.
type GoalService interface {
	CreateGoals(ctx context.Context, capsuleID, callerID uuid.UUID, titles []string) ([]model.Goal, error)
	Toggle(ctx context.Context, goalID, callerID uuid.UUID) (*model.Goal, error)
	ListWithProgress(ctx context.Context, capsuleID uuid.UUID) ([]model.Goal, model.GoalProgress, error)
}

type goalService struct {
	goalRepo    repository.GoalRepository
	capsuleRepo repository.CapsuleRepository
	now         func() time.Time
}

// NewGoalService creates a new goal service.
func NewGoalService(goalRepo repository.GoalRepository, capsuleRepo repository.CapsuleRepository) GoalService {
	return &goalService{
		goalRepo:    goalRepo,
		capsuleRepo: capsuleRepo,
		now:         time.Now,
	}
}

// CreateGoals attaches a batch of goals to a goal-enabled capsule. Each goal
// starts incomplete.
func (s *goalService) CreateGoals(ctx context.Context, capsuleID, callerID uuid.UUID, titles []string) ([]model.Goal, error) {
	capsule, err := s.capsuleRepo.FindByID(ctx, capsuleID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.ErrCapsuleNotFound
		}
		return nil, apperr.Storage("load capsule", err)
	}
	if capsule.UserID != callerID {
		return nil, apperr.ErrNotOwner
	}
	if !capsule.IsGoal {
		return nil, apperr.ErrNotGoalCapsule
	}

	goals := make([]model.Goal, 0, len(titles))
	for _, title := range titles {
		if title == "" {
			return nil, apperr.NewValidation("title", "goal title must not be empty")
		}
		goals = append(goals, model.Goal{
			ID:        uuid.New(),
			CapsuleID: capsuleID,
			UserID:    callerID,
			Title:     title,
		})
	}

	if err := s.goalRepo.CreateBatch(ctx, goals); err != nil {
		return nil, apperr.Storage("create goals", err)
	}
	return goals, nil
}

// Toggle flips a goal's completion and stamps or clears completed_at.
// Goals are only toggleable once the owning capsule has opened.
func (s *goalService) Toggle(ctx context.Context, goalID, callerID uuid.UUID) (*model.Goal, error) {
	goal, err := s.goalRepo.FindByID(ctx, goalID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.ErrGoalNotFound
		}
		return nil, apperr.Storage("load goal", err)
	}
	if goal.UserID != callerID {
		return nil, apperr.ErrNotOwner
	}

	capsule, err := s.capsuleRepo.FindByID(ctx, goal.CapsuleID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.ErrCapsuleNotFound
		}
		return nil, apperr.Storage("load capsule", err)
	}
	if !capsule.Opened() {
		return nil, apperr.ErrCapsuleSealed
	}

	goal.Completed = !goal.Completed
	if goal.Completed {
		completedAt := s.now()
		goal.CompletedAt = &completedAt
	} else {
		goal.CompletedAt = nil
	}

	if err := s.goalRepo.Update(ctx, goal); err != nil {
		return nil, apperr.Storage("update goal", err)
	}
	return goal, nil
}

// ListWithProgress returns the capsule's goals and their derived progress.
// Progress is computed, never stored, and is zero for an empty list.
func (s *goalService) ListWithProgress(ctx context.Context, capsuleID uuid.UUID) ([]model.Goal, model.GoalProgress, error) {
	goals, err := s.goalRepo.ListByCapsule(ctx, capsuleID)
	if err != nil {
		return nil, model.GoalProgress{}, apperr.Storage("list goals", err)
	}
	return goals, model.ProgressOf(goals), nil
}
