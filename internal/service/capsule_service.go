package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"capsulevault/internal/apperr"
	"capsulevault/internal/crypto"
	"capsulevault/internal/model"
	"capsulevault/internal/repository"
)

const (
	capsuleCacheTTL = 5 * time.Minute

	// MinOpenLead is how far in the future an open date must lie at
	// creation time.
	MinOpenLead = time.Hour
)

// Cache is the read cache shared by the capsule-facing services. Every
// capsule write path must drop the capsule's entry so reads never serve
// state older than a completed write. *cache.Client satisfies it.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

func capsuleCacheKey(id uuid.UUID) string {
	return fmt.Sprintf("capsule:%s", id.String())
}

// CapsuleFileInput is one attachment supplied at creation, plaintext.
type CapsuleFileInput struct {
	Name        string
	Data        []byte
	ContentType string
}

// CreateCapsuleInput carries everything needed to seal a new capsule.
type CreateCapsuleInput struct {
	Title      string
	Message    string
	OpenDate   time.Time
	IsGoal     bool
	GoalTitles []string
	VoiceNote  string
	Theme      model.CapsuleTheme
	IsPublic   bool
	Files      []CapsuleFileInput
}

// CapsuleService owns the capsule lifecycle: create, open, publish, delete,
// plus the draft scratch slot.
type CapsuleService interface {
	Create(ctx context.Context, ownerID uuid.UUID, input CreateCapsuleInput) (*model.Capsule, error)
	AttemptOpen(ctx context.Context, capsuleID, callerID uuid.UUID) (*model.Capsule, error)
	Get(ctx context.Context, capsuleID, callerID uuid.UUID) (*model.Capsule, error)
	ListMine(ctx context.Context, ownerID uuid.UUID) ([]model.Capsule, error)
	ListPublic(ctx context.Context) ([]model.Capsule, error)
	SetPublic(ctx context.Context, capsuleID, callerID uuid.UUID, public bool) (*model.Capsule, error)
	Delete(ctx context.Context, capsuleID, callerID uuid.UUID) error
	SaveDraft(ctx context.Context, ownerID uuid.UUID, draft *model.Draft) error
	GetDraft(ctx context.Context, ownerID uuid.UUID) (*model.Draft, error)
}

type capsuleService struct {
	capsuleRepo repository.CapsuleRepository
	draftRepo   repository.DraftRepository
	userRepo    repository.UserRepository
	codec       *crypto.Codec
	cache       Cache
	now         func() time.Time

	// Per-capsule locks serializing check-then-act sequences (the open
	// transition) across concurrent requests.
	capsuleMutexes sync.Map
}

// NewCapsuleService creates a new capsule service.
func NewCapsuleService(
	capsuleRepo repository.CapsuleRepository,
	draftRepo repository.DraftRepository,
	userRepo repository.UserRepository,
	codec *crypto.Codec,
	cache Cache,
) CapsuleService {
	return &capsuleService{
		capsuleRepo: capsuleRepo,
		draftRepo:   draftRepo,
		userRepo:    userRepo,
		codec:       codec,
		cache:       cache,
		now:         time.Now,
	}
}

func (s *capsuleService) getMutex(capsuleID uuid.UUID) *sync.Mutex {
	value, _ := s.capsuleMutexes.LoadOrStore(capsuleID.String(), &sync.Mutex{})
	return value.(*sync.Mutex)
}

// Create validates and seals a new capsule. The message and every attachment
// payload are encrypted before anything is persisted; the capsule always
// starts sealed with no reactions and a zero comment count. The owner's
// draft slot is cleared on success.
func (s *capsuleService) Create(ctx context.Context, ownerID uuid.UUID, input CreateCapsuleInput) (*model.Capsule, error) {
	if ownerID == uuid.Nil {
		return nil, apperr.ErrUnauthenticated
	}
	if input.Title == "" {
		return nil, apperr.NewValidation("title", "must not be empty")
	}
	if input.Message == "" {
		return nil, apperr.NewValidation("message", "must not be empty")
	}
	if !input.OpenDate.After(s.now().Add(MinOpenLead)) {
		return nil, apperr.NewValidation("open_date", "must be in the future")
	}
	theme := input.Theme
	if theme == "" {
		theme = model.ThemeModern
	}
	if !model.ValidTheme(theme) {
		return nil, apperr.NewValidation("theme", "unknown theme")
	}
	if !input.IsGoal && len(input.GoalTitles) > 0 {
		return nil, apperr.NewValidation("goals", "capsule does not track goals")
	}

	owner, err := s.userRepo.FindByID(ctx, ownerID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.ErrUnauthenticated
		}
		return nil, apperr.Storage("load owner", err)
	}

	ciphertext, err := s.codec.Encrypt(input.Message)
	if err != nil {
		return nil, fmt.Errorf("encrypt message: %w", err)
	}

	files := make([]model.CapsuleFile, 0, len(input.Files))
	for _, f := range input.Files {
		if f.Name == "" {
			return nil, apperr.NewValidation("files", "attachment without a name")
		}
		sealed, err := s.codec.EncryptBytes(f.Data)
		if err != nil {
			return nil, fmt.Errorf("encrypt attachment %q: %w", f.Name, err)
		}
		files = append(files, model.CapsuleFile{
			Name:        f.Name,
			Data:        sealed,
			ContentType: f.ContentType,
		})
	}

	goals := make([]model.Goal, 0, len(input.GoalTitles))
	for _, title := range input.GoalTitles {
		if title == "" {
			continue
		}
		goals = append(goals, model.Goal{
			UserID: ownerID,
			Title:  title,
		})
	}

	capsule := &model.Capsule{
		ID:        uuid.New(),
		UserID:    ownerID,
		UserName:  owner.DisplayName,
		Title:     input.Title,
		Message:   ciphertext,
		OpenDate:  input.OpenDate,
		Status:    model.CapsuleStatusSealed,
		IsGoal:    input.IsGoal,
		VoiceNote: input.VoiceNote,
		Theme:     theme,
		IsPublic:  input.IsPublic,
	}

	if err := s.capsuleRepo.Create(ctx, capsule, files, goals); err != nil {
		return nil, apperr.Storage("create capsule", err)
	}

	if err := s.draftRepo.DeleteByUser(ctx, ownerID); err != nil {
		// The capsule is sealed; a leftover draft is only cosmetic.
		slog.Warn("failed to clear draft after seal", "user_id", ownerID, "error", err)
	}

	slog.Info("capsule sealed", "capsule_id", capsule.ID, "open_date", capsule.OpenDate)
	return capsule, nil
}

// AttemptOpen evaluates the time lock. Before the open date it fails with
// StillLocked and changes nothing; at or after it, the capsule transitions
// to opened exactly once. Re-opening an opened capsule is a no-op.
// Callers see the same capsules here as through Get: only the owner may
// trigger the transition, and everyone else is limited to capsules that
// are already public and opened. The returned message stays ciphered;
// decryption is a read-time concern.
func (s *capsuleService) AttemptOpen(ctx context.Context, capsuleID, callerID uuid.UUID) (*model.Capsule, error) {
	mutex := s.getMutex(capsuleID)
	mutex.Lock()
	defer mutex.Unlock()

	capsule, err := s.capsuleRepo.FindByID(ctx, capsuleID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.ErrCapsuleNotFound
		}
		return nil, apperr.Storage("load capsule", err)
	}

	if capsule.UserID != callerID && !(capsule.IsPublic && capsule.Opened()) {
		return nil, apperr.ErrCapsuleNotFound
	}

	if capsule.Opened() {
		return capsule, nil
	}

	now := s.now()
	if now.Before(capsule.OpenDate) {
		remaining := capsule.OpenDate.Sub(now)
		days := int(remaining / (24 * time.Hour))
		if remaining%(24*time.Hour) != 0 {
			days++
		}
		return nil, &apperr.StillLockedError{DaysRemaining: days}
	}

	capsule.Status = model.CapsuleStatusOpened
	if err := s.capsuleRepo.Update(ctx, capsule); err != nil {
		return nil, apperr.Storage("open capsule", err)
	}
	_ = s.cache.Delete(ctx, capsuleCacheKey(capsuleID))

	slog.Info("capsule opened", "capsule_id", capsule.ID)
	return capsule, nil
}

// Get returns a capsule with its content decrypted once the time lock has
// been released. Non-owners only ever see capsules that are public and
// opened; everything else is not found to them.
func (s *capsuleService) Get(ctx context.Context, capsuleID, callerID uuid.UUID) (*model.Capsule, error) {
	capsule, err := s.fetch(ctx, capsuleID)
	if err != nil {
		return nil, err
	}

	if capsule.UserID != callerID && !(capsule.IsPublic && capsule.Opened()) {
		return nil, apperr.ErrCapsuleNotFound
	}

	if capsule.Opened() {
		s.reveal(capsule)
	}
	return capsule, nil
}

func (s *capsuleService) fetch(ctx context.Context, capsuleID uuid.UUID) (*model.Capsule, error) {
	if data, _ := s.cache.Get(ctx, capsuleCacheKey(capsuleID)); data != nil {
		var cached model.Capsule
		if err := json.Unmarshal(data, &cached); err == nil {
			return &cached, nil
		}
	}

	capsule, err := s.capsuleRepo.FindByID(ctx, capsuleID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.ErrCapsuleNotFound
		}
		return nil, apperr.Storage("load capsule", err)
	}

	if payload, err := json.Marshal(capsule); err == nil {
		_ = s.cache.Set(ctx, capsuleCacheKey(capsuleID), payload, capsuleCacheTTL)
	}
	return capsule, nil
}

// reveal decrypts the message and attachments in place. Content that was
// never encrypted passes through unchanged.
func (s *capsuleService) reveal(capsule *model.Capsule) {
	capsule.Message = s.codec.Decrypt(capsule.Message)
	for i := range capsule.Files {
		capsule.Files[i].Data = s.codec.DecryptFileData(capsule.Files[i].Data)
	}
}

// ListMine lists the owner's capsules, sealed and opened alike. Messages
// stay ciphered in list views.
func (s *capsuleService) ListMine(ctx context.Context, ownerID uuid.UUID) ([]model.Capsule, error) {
	if ownerID == uuid.Nil {
		return nil, apperr.ErrUnauthenticated
	}
	capsules, err := s.capsuleRepo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, apperr.Storage("list capsules", err)
	}
	return capsules, nil
}

// ListPublic returns the community feed: public capsules whose status is
// opened. Sealed capsules never appear regardless of their public flag.
func (s *capsuleService) ListPublic(ctx context.Context) ([]model.Capsule, error) {
	capsules, err := s.capsuleRepo.ListPublicOpened(ctx)
	if err != nil {
		return nil, apperr.Storage("list public capsules", err)
	}
	return capsules, nil
}

// SetPublic flips the public flag. The flag is persisted on sealed capsules
// too, but has no externally visible effect until the capsule opens, since
// public listings also filter on status.
func (s *capsuleService) SetPublic(ctx context.Context, capsuleID, callerID uuid.UUID, public bool) (*model.Capsule, error) {
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

	capsule.IsPublic = public
	if err := s.capsuleRepo.Update(ctx, capsule); err != nil {
		return nil, apperr.Storage("update capsule", err)
	}
	_ = s.cache.Delete(ctx, capsuleCacheKey(capsuleID))
	return capsule, nil
}

// Delete removes the capsule and everything keyed to it: goals, comments,
// reactions, attachments and the share link all go in one transaction.
func (s *capsuleService) Delete(ctx context.Context, capsuleID, callerID uuid.UUID) error {
	capsule, err := s.capsuleRepo.FindByID(ctx, capsuleID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return apperr.ErrCapsuleNotFound
		}
		return apperr.Storage("load capsule", err)
	}
	if capsule.UserID != callerID {
		return apperr.ErrNotOwner
	}

	if err := s.capsuleRepo.DeleteCascade(ctx, capsuleID); err != nil {
		return apperr.Storage("delete capsule", err)
	}
	_ = s.cache.Delete(ctx, capsuleCacheKey(capsuleID))

	slog.Info("capsule deleted", "capsule_id", capsuleID)
	return nil
}

// SaveDraft overwrites the owner's single scratch slot.
func (s *capsuleService) SaveDraft(ctx context.Context, ownerID uuid.UUID, draft *model.Draft) error {
	if ownerID == uuid.Nil {
		return apperr.ErrUnauthenticated
	}
	draft.UserID = ownerID
	if err := s.draftRepo.Save(ctx, draft); err != nil {
		return apperr.Storage("save draft", err)
	}
	return nil
}

// GetDraft returns the owner's draft, or nil when there is none.
func (s *capsuleService) GetDraft(ctx context.Context, ownerID uuid.UUID) (*model.Draft, error) {
	if ownerID == uuid.Nil {
		return nil, apperr.ErrUnauthenticated
	}
	draft, err := s.draftRepo.FindByUser(ctx, ownerID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, apperr.Storage("load draft", err)
	}
	return draft, nil
}
