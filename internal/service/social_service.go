package service

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"capsulevault/internal/apperr"
	"capsulevault/internal/model"
	"capsulevault/internal/repository"
)

// SocialService owns reactions and comments on capsules.
type SocialService interface {
	React(ctx context.Context, capsuleID, userID uuid.UUID, reactionType string) ([]model.Reaction, error)
	Comment(ctx context.Context, capsuleID, userID uuid.UUID, userName, text string) (*model.Comment, error)
	ListComments(ctx context.Context, capsuleID uuid.UUID) ([]model.Comment, error)
}

type socialService struct {
	capsuleRepo repository.CapsuleRepository
	cache       Cache

	// Per-capsule locks: a reaction toggle is a read followed by an insert
	// or delete, and two concurrent toggles from one user must not race.
	capsuleMutexes sync.Map
}

// NewSocialService creates a new social service.
func NewSocialService(capsuleRepo repository.CapsuleRepository, cache Cache) SocialService {
	return &socialService{capsuleRepo: capsuleRepo, cache: cache}
}

func (s *socialService) getMutex(capsuleID uuid.UUID) *sync.Mutex {
	value, _ := s.capsuleMutexes.LoadOrStore(capsuleID.String(), &sync.Mutex{})
	return value.(*sync.Mutex)
}

// React toggles the user's reaction on a capsule: removed if present, added
// if absent. A user never holds more than one reaction per capsule. The
// capsule only has to exist; sealed and private capsules accept reactions
// too, they just never surface in feeds.
func (s *socialService) React(ctx context.Context, capsuleID, userID uuid.UUID, reactionType string) ([]model.Reaction, error) {
	if userID == uuid.Nil {
		return nil, apperr.ErrUnauthenticated
	}
	if reactionType == "" {
		reactionType = "heart"
	}

	mutex := s.getMutex(capsuleID)
	mutex.Lock()
	defer mutex.Unlock()

	if _, err := s.capsuleRepo.FindByID(ctx, capsuleID); err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.ErrCapsuleNotFound
		}
		return nil, apperr.Storage("load capsule", err)
	}

	existing, err := s.capsuleRepo.FindReaction(ctx, capsuleID, userID)
	switch {
	case err == nil && existing != nil:
		if err := s.capsuleRepo.RemoveReaction(ctx, capsuleID, userID); err != nil {
			return nil, apperr.Storage("remove reaction", err)
		}
	case err == gorm.ErrRecordNotFound:
		reaction := &model.Reaction{
			CapsuleID: capsuleID,
			UserID:    userID,
			Type:      reactionType,
		}
		if err := s.capsuleRepo.AddReaction(ctx, reaction); err != nil {
			return nil, apperr.Storage("add reaction", err)
		}
	default:
		return nil, apperr.Storage("find reaction", err)
	}
	_ = s.cache.Delete(ctx, capsuleCacheKey(capsuleID))

	reactions, err := s.capsuleRepo.ListReactions(ctx, capsuleID)
	if err != nil {
		return nil, apperr.Storage("list reactions", err)
	}
	return reactions, nil
}

// Comment appends a comment to a capsule. Text must be non-empty after
// trimming and at most 500 characters; the append and the counter increment
// happen in one transaction.
func (s *socialService) Comment(ctx context.Context, capsuleID, userID uuid.UUID, userName, text string) (*model.Comment, error) {
	if userID == uuid.Nil {
		return nil, apperr.ErrUnauthenticated
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperr.NewValidation("text", "must not be empty")
	}
	if len([]rune(text)) > model.MaxCommentLength {
		return nil, apperr.NewValidation("text", "must be at most 500 characters")
	}

	if _, err := s.capsuleRepo.FindByID(ctx, capsuleID); err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.ErrCapsuleNotFound
		}
		return nil, apperr.Storage("load capsule", err)
	}

	comment := &model.Comment{
		ID:        uuid.New(),
		CapsuleID: capsuleID,
		UserID:    userID,
		UserName:  userName,
		Text:      text,
	}
	if err := s.capsuleRepo.AppendComment(ctx, comment); err != nil {
		return nil, apperr.Storage("append comment", err)
	}
	// The cached capsule carries comments_count; drop it so the counter
	// never lags behind the comment rows just written.
	_ = s.cache.Delete(ctx, capsuleCacheKey(capsuleID))
	return comment, nil
}

// ListComments lists a capsule's comments oldest first.
func (s *socialService) ListComments(ctx context.Context, capsuleID uuid.UUID) ([]model.Comment, error) {
	comments, err := s.capsuleRepo.ListComments(ctx, capsuleID)
	if err != nil {
		return nil, apperr.Storage("list comments", err)
	}
	return comments, nil
}
