package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"capsulevault/internal/apperr"
	"capsulevault/internal/model"
)

func TestSocialService_React(t *testing.T) {
	capsuleID := uuid.New()
	userID := uuid.New()
	otherID := uuid.New()
	capsule := &model.Capsule{ID: capsuleID, UserID: uuid.New(), Status: model.CapsuleStatusSealed}

	t.Run("first react adds a reaction", func(t *testing.T) {
		mockRepo := new(MockCapsuleRepository)
		mockRepo.On("FindByID", mock.Anything, capsuleID).Return(capsule, nil)
		mockRepo.On("FindReaction", mock.Anything, capsuleID, userID).Return(nil, gorm.ErrRecordNotFound)
		mockRepo.On("AddReaction", mock.Anything, mock.MatchedBy(func(r *model.Reaction) bool {
			return r.CapsuleID == capsuleID && r.UserID == userID && r.Type == "heart"
		})).Return(nil)
		mockRepo.On("ListReactions", mock.Anything, capsuleID).Return([]model.Reaction{
			{CapsuleID: capsuleID, UserID: userID, Type: "heart"},
		}, nil)

		service := NewSocialService(mockRepo, newFakeCache())

		reactions, err := service.React(context.Background(), capsuleID, userID, "")
		require.NoError(t, err)
		assert.Len(t, reactions, 1)
		mockRepo.AssertExpectations(t)
	})

	t.Run("second react removes it again", func(t *testing.T) {
		mockRepo := new(MockCapsuleRepository)
		mockRepo.On("FindByID", mock.Anything, capsuleID).Return(capsule, nil)
		mockRepo.On("FindReaction", mock.Anything, capsuleID, userID).Return(&model.Reaction{
			CapsuleID: capsuleID,
			UserID:    userID,
			Type:      "heart",
		}, nil)
		mockRepo.On("RemoveReaction", mock.Anything, capsuleID, userID).Return(nil)
		mockRepo.On("ListReactions", mock.Anything, capsuleID).Return([]model.Reaction{}, nil)

		service := NewSocialService(mockRepo, newFakeCache())

		reactions, err := service.React(context.Background(), capsuleID, userID, "heart")
		require.NoError(t, err)
		assert.Empty(t, reactions)
		mockRepo.AssertNotCalled(t, "AddReaction", mock.Anything, mock.Anything)
	})

	t.Run("two users react independently", func(t *testing.T) {
		mockRepo := new(MockCapsuleRepository)
		mockRepo.On("FindByID", mock.Anything, capsuleID).Return(capsule, nil)
		mockRepo.On("FindReaction", mock.Anything, capsuleID, otherID).Return(nil, gorm.ErrRecordNotFound)
		mockRepo.On("AddReaction", mock.Anything, mock.AnythingOfType("*model.Reaction")).Return(nil)
		mockRepo.On("ListReactions", mock.Anything, capsuleID).Return([]model.Reaction{
			{CapsuleID: capsuleID, UserID: userID, Type: "heart"},
			{CapsuleID: capsuleID, UserID: otherID, Type: "heart"},
		}, nil)

		service := NewSocialService(mockRepo, newFakeCache())

		reactions, err := service.React(context.Background(), capsuleID, otherID, "heart")
		require.NoError(t, err)
		assert.Len(t, reactions, 2)
	})

	t.Run("unknown capsule", func(t *testing.T) {
		mockRepo := new(MockCapsuleRepository)
		mockRepo.On("FindByID", mock.Anything, capsuleID).Return(nil, gorm.ErrRecordNotFound)

		service := NewSocialService(mockRepo, newFakeCache())

		_, err := service.React(context.Background(), capsuleID, userID, "heart")
		assert.ErrorIs(t, err, apperr.ErrCapsuleNotFound)
	})

	t.Run("anonymous caller", func(t *testing.T) {
		service := NewSocialService(new(MockCapsuleRepository), newFakeCache())

		_, err := service.React(context.Background(), capsuleID, uuid.Nil, "heart")
		assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
	})

	t.Run("react drops the cached capsule", func(t *testing.T) {
		mockRepo := new(MockCapsuleRepository)
		mockRepo.On("FindByID", mock.Anything, capsuleID).Return(capsule, nil)
		mockRepo.On("FindReaction", mock.Anything, capsuleID, userID).Return(nil, gorm.ErrRecordNotFound)
		mockRepo.On("AddReaction", mock.Anything, mock.AnythingOfType("*model.Reaction")).Return(nil)
		mockRepo.On("ListReactions", mock.Anything, capsuleID).Return([]model.Reaction{}, nil)

		cache := newFakeCache()
		key := capsuleCacheKey(capsuleID)
		require.NoError(t, cache.Set(context.Background(), key, []byte(`{}`), time.Minute))

		service := NewSocialService(mockRepo, cache)

		_, err := service.React(context.Background(), capsuleID, userID, "heart")
		require.NoError(t, err)
		assert.False(t, cache.contains(key))
	})
}

func TestSocialService_Comment(t *testing.T) {
	capsuleID := uuid.New()
	userID := uuid.New()
	capsule := &model.Capsule{ID: capsuleID, UserID: uuid.New()}

	t.Run("valid comment is appended", func(t *testing.T) {
		mockRepo := new(MockCapsuleRepository)
		mockRepo.On("FindByID", mock.Anything, capsuleID).Return(capsule, nil)
		mockRepo.On("AppendComment", mock.Anything, mock.MatchedBy(func(c *model.Comment) bool {
			return c.CapsuleID == capsuleID && c.UserID == userID && c.Text == "what a throwback"
		})).Return(nil)

		service := NewSocialService(mockRepo, newFakeCache())

		comment, err := service.Comment(context.Background(), capsuleID, userID, "Ava", "  what a throwback  ")
		require.NoError(t, err)
		assert.Equal(t, "what a throwback", comment.Text)
		assert.Equal(t, "Ava", comment.UserName)
		mockRepo.AssertExpectations(t)
	})

	t.Run("comment at the length limit passes", func(t *testing.T) {
		mockRepo := new(MockCapsuleRepository)
		mockRepo.On("FindByID", mock.Anything, capsuleID).Return(capsule, nil)
		mockRepo.On("AppendComment", mock.Anything, mock.AnythingOfType("*model.Comment")).Return(nil)

		service := NewSocialService(mockRepo, newFakeCache())

		_, err := service.Comment(context.Background(), capsuleID, userID, "Ava", strings.Repeat("x", 500))
		assert.NoError(t, err)
	})

	t.Run("comment over the length limit rejected", func(t *testing.T) {
		service := NewSocialService(new(MockCapsuleRepository), newFakeCache())

		_, err := service.Comment(context.Background(), capsuleID, userID, "Ava", strings.Repeat("x", 501))
		var validationErr *apperr.ValidationError
		assert.ErrorAs(t, err, &validationErr)
	})

	t.Run("length limit counts runes, not bytes", func(t *testing.T) {
		mockRepo := new(MockCapsuleRepository)
		mockRepo.On("FindByID", mock.Anything, capsuleID).Return(capsule, nil)
		mockRepo.On("AppendComment", mock.Anything, mock.AnythingOfType("*model.Comment")).Return(nil)

		service := NewSocialService(mockRepo, newFakeCache())

		// 500 multi-byte characters exceed 500 bytes but not 500 runes.
		_, err := service.Comment(context.Background(), capsuleID, userID, "Ava", strings.Repeat("ü", 500))
		assert.NoError(t, err)
	})

	t.Run("whitespace-only comment rejected", func(t *testing.T) {
		service := NewSocialService(new(MockCapsuleRepository), newFakeCache())

		_, err := service.Comment(context.Background(), capsuleID, userID, "Ava", "   \n\t ")
		var validationErr *apperr.ValidationError
		assert.ErrorAs(t, err, &validationErr)
	})

	t.Run("unknown capsule", func(t *testing.T) {
		mockRepo := new(MockCapsuleRepository)
		mockRepo.On("FindByID", mock.Anything, capsuleID).Return(nil, gorm.ErrRecordNotFound)

		service := NewSocialService(mockRepo, newFakeCache())

		_, err := service.Comment(context.Background(), capsuleID, userID, "Ava", "hello")
		assert.ErrorIs(t, err, apperr.ErrCapsuleNotFound)
	})

	// A cached capsule carries comments_count, so a stale entry would let
	// reads disagree with the comment rows just written.
	t.Run("comment drops the cached capsule", func(t *testing.T) {
		mockRepo := new(MockCapsuleRepository)
		mockRepo.On("FindByID", mock.Anything, capsuleID).Return(capsule, nil)
		mockRepo.On("AppendComment", mock.Anything, mock.AnythingOfType("*model.Comment")).Return(nil)

		cache := newFakeCache()
		key := capsuleCacheKey(capsuleID)
		require.NoError(t, cache.Set(context.Background(), key, []byte(`{}`), time.Minute))

		service := NewSocialService(mockRepo, cache)

		_, err := service.Comment(context.Background(), capsuleID, userID, "Ava", "hello")
		require.NoError(t, err)
		assert.False(t, cache.contains(key))
	})
}

func TestSocialService_ListComments(t *testing.T) {
	capsuleID := uuid.New()

	mockRepo := new(MockCapsuleRepository)
	mockRepo.On("ListComments", mock.Anything, capsuleID).Return([]model.Comment{
		{CapsuleID: capsuleID, Text: "first"},
		{CapsuleID: capsuleID, Text: "second"},
	}, nil)

	service := NewSocialService(mockRepo, newFakeCache())

	comments, err := service.ListComments(context.Background(), capsuleID)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "first", comments[0].Text)
}
