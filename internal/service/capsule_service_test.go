package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"capsulevault/internal/apperr"
	"capsulevault/internal/crypto"
	"capsulevault/internal/model"
)

func newTestCodec(t *testing.T) *crypto.Codec {
	t.Helper()
	codec, err := crypto.NewCodec("test-passphrase")
	require.NoError(t, err)
	return codec
}

// newCapsuleServiceAt builds a capsule service whose clock is frozen at now.
func newCapsuleServiceAt(
	capsuleRepo *MockCapsuleRepository,
	draftRepo *MockDraftRepository,
	userRepo *MockUserRepository,
	codec *crypto.Codec,
	now time.Time,
) CapsuleService {
	svc := NewCapsuleService(capsuleRepo, draftRepo, userRepo, codec, newFakeCache()).(*capsuleService)
	svc.now = func() time.Time { return now }
	return svc
}

func TestCapsuleService_Create(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ownerID := uuid.New()
	owner := &model.User{ID: ownerID, Email: "ava@example.com", DisplayName: "Ava"}

	tests := []struct {
		name      string
		input     CreateCapsuleInput
		wantField string
	}{
		{
			name:      "empty title",
			input:     CreateCapsuleInput{Message: "hi", OpenDate: now.Add(48 * time.Hour)},
			wantField: "title",
		},
		{
			name:      "empty message",
			input:     CreateCapsuleInput{Title: "t", OpenDate: now.Add(48 * time.Hour)},
			wantField: "message",
		},
		{
			name:      "open date in the past",
			input:     CreateCapsuleInput{Title: "t", Message: "m", OpenDate: now.Add(-time.Hour)},
			wantField: "open_date",
		},
		{
			name:      "open date not far enough ahead",
			input:     CreateCapsuleInput{Title: "t", Message: "m", OpenDate: now.Add(30 * time.Minute)},
			wantField: "open_date",
		},
		{
			name:      "unknown theme",
			input:     CreateCapsuleInput{Title: "t", Message: "m", OpenDate: now.Add(48 * time.Hour), Theme: "brutalist"},
			wantField: "theme",
		},
		{
			name: "goals on a non-goal capsule",
			input: CreateCapsuleInput{
				Title: "t", Message: "m", OpenDate: now.Add(48 * time.Hour),
				GoalTitles: []string{"run"},
			},
			wantField: "goals",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := newCapsuleServiceAt(new(MockCapsuleRepository), new(MockDraftRepository), new(MockUserRepository), newTestCodec(t), now)

			capsule, err := service.Create(context.Background(), ownerID, tt.input)
			assert.Nil(t, capsule)
			var validationErr *apperr.ValidationError
			assert.ErrorAs(t, err, &validationErr)
			assert.Equal(t, tt.wantField, validationErr.Field)
		})
	}

	t.Run("anonymous caller", func(t *testing.T) {
		service := newCapsuleServiceAt(new(MockCapsuleRepository), new(MockDraftRepository), new(MockUserRepository), newTestCodec(t), now)

		_, err := service.Create(context.Background(), uuid.Nil, CreateCapsuleInput{
			Title: "t", Message: "m", OpenDate: now.Add(48 * time.Hour),
		})
		assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
	})

	t.Run("successful create seals and encrypts", func(t *testing.T) {
		mockRepo := new(MockCapsuleRepository)
		mockDraftRepo := new(MockDraftRepository)
		mockUserRepo := new(MockUserRepository)
		codec := newTestCodec(t)

		mockUserRepo.On("FindByID", mock.Anything, ownerID).Return(owner, nil)
		mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*model.Capsule"), mock.Anything, mock.Anything).Return(nil)
		mockDraftRepo.On("DeleteByUser", mock.Anything, ownerID).Return(nil)

		service := newCapsuleServiceAt(mockRepo, mockDraftRepo, mockUserRepo, codec, now)

		capsule, err := service.Create(context.Background(), ownerID, CreateCapsuleInput{
			Title:    "Letter to 2027",
			Message:  "dear future me",
			OpenDate: now.Add(48 * time.Hour),
			Files: []CapsuleFileInput{
				{Name: "photo.jpg", Data: []byte("jpeg bytes"), ContentType: "image/jpeg"},
			},
		})
		require.NoError(t, err)

		assert.Equal(t, model.CapsuleStatusSealed, capsule.Status)
		assert.Equal(t, "Ava", capsule.UserName)
		assert.Equal(t, model.ThemeModern, capsule.Theme)

		// Stored message is ciphertext, not the plaintext.
		assert.NotEqual(t, "dear future me", capsule.Message)
		assert.Equal(t, "dear future me", codec.Decrypt(capsule.Message))

		// Attachment payloads were sealed too.
		createCall := mockRepo.Calls[0]
		files := createCall.Arguments.Get(2).([]model.CapsuleFile)
		require.Len(t, files, 1)
		assert.NotEqual(t, []byte("jpeg bytes"), files[0].Data)
		assert.Equal(t, []byte("jpeg bytes"), codec.DecryptFileData(files[0].Data))

		mockRepo.AssertExpectations(t)
		mockDraftRepo.AssertExpectations(t)
	})

	t.Run("goal capsule carries its goals", func(t *testing.T) {
		mockRepo := new(MockCapsuleRepository)
		mockDraftRepo := new(MockDraftRepository)
		mockUserRepo := new(MockUserRepository)

		mockUserRepo.On("FindByID", mock.Anything, ownerID).Return(owner, nil)
		mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*model.Capsule"), mock.Anything, mock.Anything).Return(nil)
		mockDraftRepo.On("DeleteByUser", mock.Anything, ownerID).Return(nil)

		service := newCapsuleServiceAt(mockRepo, mockDraftRepo, mockUserRepo, newTestCodec(t), now)

		capsule, err := service.Create(context.Background(), ownerID, CreateCapsuleInput{
			Title:      "Goals",
			Message:    "get these done",
			OpenDate:   now.Add(48 * time.Hour),
			IsGoal:     true,
			GoalTitles: []string{"run a marathon", "learn piano"},
		})
		require.NoError(t, err)
		assert.True(t, capsule.IsGoal)

		goals := mockRepo.Calls[0].Arguments.Get(3).([]model.Goal)
		require.Len(t, goals, 2)
		assert.False(t, goals[0].Completed)
		assert.Nil(t, goals[0].CompletedAt)
	})
}

func TestCapsuleService_AttemptOpen(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	capsuleID := uuid.New()
	ownerID := uuid.New()
	strangerID := uuid.New()

	t.Run("before open date stays sealed", func(t *testing.T) {
		mockRepo := new(MockCapsuleRepository)
		mockRepo.On("FindByID", mock.Anything, capsuleID).Return(&model.Capsule{
			ID:       capsuleID,
			UserID:   ownerID,
			Status:   model.CapsuleStatusSealed,
			OpenDate: now.Add(36 * time.Hour),
		}, nil)

		service := newCapsuleServiceAt(mockRepo, new(MockDraftRepository), new(MockUserRepository), newTestCodec(t), now)

		capsule, err := service.AttemptOpen(context.Background(), capsuleID, ownerID)
		assert.Nil(t, capsule)

		var lockedErr *apperr.StillLockedError
		require.ErrorAs(t, err, &lockedErr)
		// 36 hours left rounds up to 2 days.
		assert.Equal(t, 2, lockedErr.DaysRemaining)

		// No status write happened.
		mockRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("at open date transitions to opened", func(t *testing.T) {
		mockRepo := new(MockCapsuleRepository)
		mockRepo.On("FindByID", mock.Anything, capsuleID).Return(&model.Capsule{
			ID:       capsuleID,
			UserID:   ownerID,
			Status:   model.CapsuleStatusSealed,
			OpenDate: now,
		}, nil)
		mockRepo.On("Update", mock.Anything, mock.MatchedBy(func(c *model.Capsule) bool {
			return c.Status == model.CapsuleStatusOpened
		})).Return(nil)

		service := newCapsuleServiceAt(mockRepo, new(MockDraftRepository), new(MockUserRepository), newTestCodec(t), now)

		capsule, err := service.AttemptOpen(context.Background(), capsuleID, ownerID)
		require.NoError(t, err)
		assert.Equal(t, model.CapsuleStatusOpened, capsule.Status)
		mockRepo.AssertExpectations(t)
	})

	t.Run("reopening an opened capsule is a no-op", func(t *testing.T) {
		mockRepo := new(MockCapsuleRepository)
		mockRepo.On("FindByID", mock.Anything, capsuleID).Return(&model.Capsule{
			ID:       capsuleID,
			UserID:   ownerID,
			Status:   model.CapsuleStatusOpened,
			OpenDate: now.Add(-240 * time.Hour),
		}, nil)

		service := newCapsuleServiceAt(mockRepo, new(MockDraftRepository), new(MockUserRepository), newTestCodec(t), now)

		capsule, err := service.AttemptOpen(context.Background(), capsuleID, ownerID)
		require.NoError(t, err)
		assert.Equal(t, model.CapsuleStatusOpened, capsule.Status)
		mockRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("stranger cannot open another user's capsule", func(t *testing.T) {
		mockRepo := new(MockCapsuleRepository)
		mockRepo.On("FindByID", mock.Anything, capsuleID).Return(&model.Capsule{
			ID:        capsuleID,
			UserID:    ownerID,
			Status:    model.CapsuleStatusSealed,
			OpenDate:  now.Add(-time.Hour),
			VoiceNote: "keep out",
		}, nil)

		service := newCapsuleServiceAt(mockRepo, new(MockDraftRepository), new(MockUserRepository), newTestCodec(t), now)

		capsule, err := service.AttemptOpen(context.Background(), capsuleID, strangerID)
		assert.Nil(t, capsule)
		assert.ErrorIs(t, err, apperr.ErrCapsuleNotFound)
		mockRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("stranger cannot open a public sealed capsule", func(t *testing.T) {
		mockRepo := new(MockCapsuleRepository)
		mockRepo.On("FindByID", mock.Anything, capsuleID).Return(&model.Capsule{
			ID:       capsuleID,
			UserID:   ownerID,
			Status:   model.CapsuleStatusSealed,
			IsPublic: true,
			OpenDate: now.Add(-time.Hour),
		}, nil)

		service := newCapsuleServiceAt(mockRepo, new(MockDraftRepository), new(MockUserRepository), newTestCodec(t), now)

		_, err := service.AttemptOpen(context.Background(), capsuleID, strangerID)
		assert.ErrorIs(t, err, apperr.ErrCapsuleNotFound)
		mockRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("stranger may no-op a public opened capsule", func(t *testing.T) {
		mockRepo := new(MockCapsuleRepository)
		mockRepo.On("FindByID", mock.Anything, capsuleID).Return(&model.Capsule{
			ID:       capsuleID,
			UserID:   ownerID,
			Status:   model.CapsuleStatusOpened,
			IsPublic: true,
			OpenDate: now.Add(-240 * time.Hour),
		}, nil)

		service := newCapsuleServiceAt(mockRepo, new(MockDraftRepository), new(MockUserRepository), newTestCodec(t), now)

		capsule, err := service.AttemptOpen(context.Background(), capsuleID, strangerID)
		require.NoError(t, err)
		assert.Equal(t, model.CapsuleStatusOpened, capsule.Status)
	})

	t.Run("unknown capsule", func(t *testing.T) {
		mockRepo := new(MockCapsuleRepository)
		mockRepo.On("FindByID", mock.Anything, capsuleID).Return(nil, gorm.ErrRecordNotFound)

		service := newCapsuleServiceAt(mockRepo, new(MockDraftRepository), new(MockUserRepository), newTestCodec(t), now)

		_, err := service.AttemptOpen(context.Background(), capsuleID, ownerID)
		assert.ErrorIs(t, err, apperr.ErrCapsuleNotFound)
	})
}

func TestCapsuleService_Get(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	capsuleID := uuid.New()
	ownerID := uuid.New()
	strangerID := uuid.New()
	codec, err := crypto.NewCodec("test-passphrase")
	require.NoError(t, err)
	ciphertext, err := codec.Encrypt("the secret message")
	require.NoError(t, err)

	t.Run("owner reads an opened capsule decrypted", func(t *testing.T) {
		mockRepo := new(MockCapsuleRepository)
		mockRepo.On("FindByID", mock.Anything, capsuleID).Return(&model.Capsule{
			ID:      capsuleID,
			UserID:  ownerID,
			Status:  model.CapsuleStatusOpened,
			Message: ciphertext,
		}, nil)

		service := newCapsuleServiceAt(mockRepo, new(MockDraftRepository), new(MockUserRepository), codec, now)

		capsule, err := service.Get(context.Background(), capsuleID, ownerID)
		require.NoError(t, err)
		assert.Equal(t, "the secret message", capsule.Message)
	})

	t.Run("owner reads a sealed capsule ciphered", func(t *testing.T) {
		mockRepo := new(MockCapsuleRepository)
		mockRepo.On("FindByID", mock.Anything, capsuleID).Return(&model.Capsule{
			ID:      capsuleID,
			UserID:  ownerID,
			Status:  model.CapsuleStatusSealed,
			Message: ciphertext,
		}, nil)

		service := newCapsuleServiceAt(mockRepo, new(MockDraftRepository), new(MockUserRepository), codec, now)

		capsule, err := service.Get(context.Background(), capsuleID, ownerID)
		require.NoError(t, err)
		assert.Equal(t, ciphertext, capsule.Message)
	})

	t.Run("stranger cannot see a private capsule", func(t *testing.T) {
		mockRepo := new(MockCapsuleRepository)
		mockRepo.On("FindByID", mock.Anything, capsuleID).Return(&model.Capsule{
			ID:     capsuleID,
			UserID: ownerID,
			Status: model.CapsuleStatusOpened,
		}, nil)

		service := newCapsuleServiceAt(mockRepo, new(MockDraftRepository), new(MockUserRepository), codec, now)

		_, err := service.Get(context.Background(), capsuleID, strangerID)
		assert.ErrorIs(t, err, apperr.ErrCapsuleNotFound)
	})

	t.Run("stranger cannot see a public but sealed capsule", func(t *testing.T) {
		mockRepo := new(MockCapsuleRepository)
		mockRepo.On("FindByID", mock.Anything, capsuleID).Return(&model.Capsule{
			ID:       capsuleID,
			UserID:   ownerID,
			Status:   model.CapsuleStatusSealed,
			IsPublic: true,
		}, nil)

		service := newCapsuleServiceAt(mockRepo, new(MockDraftRepository), new(MockUserRepository), codec, now)

		_, err := service.Get(context.Background(), capsuleID, strangerID)
		assert.ErrorIs(t, err, apperr.ErrCapsuleNotFound)
	})

	t.Run("stranger sees a public opened capsule", func(t *testing.T) {
		mockRepo := new(MockCapsuleRepository)
		mockRepo.On("FindByID", mock.Anything, capsuleID).Return(&model.Capsule{
			ID:       capsuleID,
			UserID:   ownerID,
			Status:   model.CapsuleStatusOpened,
			IsPublic: true,
			Message:  ciphertext,
		}, nil)

		service := newCapsuleServiceAt(mockRepo, new(MockDraftRepository), new(MockUserRepository), codec, now)

		capsule, err := service.Get(context.Background(), capsuleID, strangerID)
		require.NoError(t, err)
		assert.Equal(t, "the secret message", capsule.Message)
	})
}

func TestCapsuleService_SetPublic(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	capsuleID := uuid.New()
	ownerID := uuid.New()

	t.Run("persists on a sealed capsule", func(t *testing.T) {
		mockRepo := new(MockCapsuleRepository)
		mockRepo.On("FindByID", mock.Anything, capsuleID).Return(&model.Capsule{
			ID:     capsuleID,
			UserID: ownerID,
			Status: model.CapsuleStatusSealed,
		}, nil)
		mockRepo.On("Update", mock.Anything, mock.MatchedBy(func(c *model.Capsule) bool {
			return c.IsPublic && c.Status == model.CapsuleStatusSealed
		})).Return(nil)

		service := newCapsuleServiceAt(mockRepo, new(MockDraftRepository), new(MockUserRepository), newTestCodec(t), now)

		capsule, err := service.SetPublic(context.Background(), capsuleID, ownerID, true)
		require.NoError(t, err)
		assert.True(t, capsule.IsPublic)
		mockRepo.AssertExpectations(t)
	})

	t.Run("non-owner rejected", func(t *testing.T) {
		mockRepo := new(MockCapsuleRepository)
		mockRepo.On("FindByID", mock.Anything, capsuleID).Return(&model.Capsule{
			ID:     capsuleID,
			UserID: ownerID,
		}, nil)

		service := newCapsuleServiceAt(mockRepo, new(MockDraftRepository), new(MockUserRepository), newTestCodec(t), now)

		_, err := service.SetPublic(context.Background(), capsuleID, uuid.New(), true)
		assert.ErrorIs(t, err, apperr.ErrNotOwner)
	})
}

func TestCapsuleService_Delete(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	capsuleID := uuid.New()
	ownerID := uuid.New()

	t.Run("owner deletes with cascade", func(t *testing.T) {
		mockRepo := new(MockCapsuleRepository)
		mockRepo.On("FindByID", mock.Anything, capsuleID).Return(&model.Capsule{
			ID:     capsuleID,
			UserID: ownerID,
		}, nil)
		mockRepo.On("DeleteCascade", mock.Anything, capsuleID).Return(nil)

		service := newCapsuleServiceAt(mockRepo, new(MockDraftRepository), new(MockUserRepository), newTestCodec(t), now)

		assert.NoError(t, service.Delete(context.Background(), capsuleID, ownerID))
		mockRepo.AssertExpectations(t)
	})

	t.Run("non-owner rejected", func(t *testing.T) {
		mockRepo := new(MockCapsuleRepository)
		mockRepo.On("FindByID", mock.Anything, capsuleID).Return(&model.Capsule{
			ID:     capsuleID,
			UserID: ownerID,
		}, nil)

		service := newCapsuleServiceAt(mockRepo, new(MockDraftRepository), new(MockUserRepository), newTestCodec(t), now)

		err := service.Delete(context.Background(), capsuleID, uuid.New())
		assert.ErrorIs(t, err, apperr.ErrNotOwner)
		mockRepo.AssertNotCalled(t, "DeleteCascade", mock.Anything, mock.Anything)
	})
}

func TestCapsuleService_Drafts(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ownerID := uuid.New()

	t.Run("save stamps the owner", func(t *testing.T) {
		mockDraftRepo := new(MockDraftRepository)
		mockDraftRepo.On("Save", mock.Anything, mock.MatchedBy(func(d *model.Draft) bool {
			return d.UserID == ownerID
		})).Return(nil)

		service := newCapsuleServiceAt(new(MockCapsuleRepository), mockDraftRepo, new(MockUserRepository), newTestCodec(t), now)

		err := service.SaveDraft(context.Background(), ownerID, &model.Draft{Title: "wip"})
		assert.NoError(t, err)
		mockDraftRepo.AssertExpectations(t)
	})

	t.Run("absent draft is nil, not an error", func(t *testing.T) {
		mockDraftRepo := new(MockDraftRepository)
		mockDraftRepo.On("FindByUser", mock.Anything, ownerID).Return(nil, gorm.ErrRecordNotFound)

		service := newCapsuleServiceAt(new(MockCapsuleRepository), mockDraftRepo, new(MockUserRepository), newTestCodec(t), now)

		draft, err := service.GetDraft(context.Background(), ownerID)
		assert.NoError(t, err)
		assert.Nil(t, draft)
	})
}
