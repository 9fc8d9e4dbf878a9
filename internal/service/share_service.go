package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"capsulevault/internal/apperr"
	"capsulevault/internal/crypto"
	"capsulevault/internal/model"
	"capsulevault/internal/repository"
)

const shareTokenBytes = 16

// ShareLink is the minted share state returned to the owner.
type ShareLink struct {
	Token       string `json:"token"`
	HasPassword bool   `json:"has_password"`
}

// ShareService mints share links and resolves them for visitors.
type ShareService interface {
	MintOrRotate(ctx context.Context, capsuleID, callerID uuid.UUID, password *string) (*ShareLink, error)
	Resolve(ctx context.Context, token, password string) (*model.Capsule, error)
}

type shareService struct {
	capsuleRepo repository.CapsuleRepository
	codec       *crypto.Codec
	cache       Cache

	// Serializes mint-or-rotate per capsule so two concurrent calls cannot
	// both mint a token.
	mintMutexes sync.Map
}

// NewShareService creates a new share service.
func NewShareService(capsuleRepo repository.CapsuleRepository, codec *crypto.Codec, cache Cache) ShareService {
	return &shareService{capsuleRepo: capsuleRepo, codec: codec, cache: cache}
}

func (s *shareService) getMutex(capsuleID uuid.UUID) *sync.Mutex {
	value, _ := s.mintMutexes.LoadOrStore(capsuleID.String(), &sync.Mutex{})
	return value.(*sync.Mutex)
}

// MintOrRotate mints a share token for a capsule that has none, keeping it
// unique across all capsules. On a capsule that already carries a token the
// token is retained (the existing link keeps working) and only the password
// is replaced: nil leaves it alone, empty clears it, anything else sets it.
func (s *shareService) MintOrRotate(ctx context.Context, capsuleID, callerID uuid.UUID, password *string) (*ShareLink, error) {
	if callerID == uuid.Nil {
		return nil, apperr.ErrUnauthenticated
	}

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
	if capsule.UserID != callerID {
		return nil, apperr.ErrNotOwner
	}

	if capsule.ShareToken == "" {
		token, err := s.uniqueToken(ctx)
		if err != nil {
			return nil, err
		}
		capsule.ShareToken = token
	}

	if password != nil {
		if *password == "" {
			capsule.SharePassword = ""
		} else {
			hash, err := bcrypt.GenerateFromPassword([]byte(*password), bcryptCost)
			if err != nil {
				return nil, fmt.Errorf("hash share password: %w", err)
			}
			capsule.SharePassword = string(hash)
		}
	}

	if err := s.capsuleRepo.Update(ctx, capsule); err != nil {
		return nil, apperr.Storage("store share link", err)
	}
	_ = s.cache.Delete(ctx, capsuleCacheKey(capsule.ID))

	slog.Info("share link updated", "capsule_id", capsule.ID)
	return &ShareLink{
		Token:       capsule.ShareToken,
		HasPassword: capsule.SharePassword != "",
	}, nil
}

// uniqueToken draws random tokens until one is unused. The token guards
// against collision, not enumeration: it grants access to people who were
// handed the link.
func (s *shareService) uniqueToken(ctx context.Context) (string, error) {
	for {
		buf := make([]byte, shareTokenBytes)
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("generate share token: %w", err)
		}
		token := hex.EncodeToString(buf)

		exists, err := s.capsuleRepo.ShareTokenExists(ctx, token)
		if err != nil {
			return "", apperr.Storage("check share token", err)
		}
		if !exists {
			return token, nil
		}
	}
}

// Resolve looks a capsule up by share token for a visitor. Unknown tokens
// are not found; when the link carries a password, a matching one must be
// supplied before the message is decrypted. A wrong password denies access
// without ever touching the ciphertext.
func (s *shareService) Resolve(ctx context.Context, token, password string) (*model.Capsule, error) {
	if token == "" {
		return nil, apperr.ErrShareNotFound
	}

	capsule, err := s.capsuleRepo.FindByShareToken(ctx, token)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.ErrShareNotFound
		}
		return nil, apperr.Storage("resolve share token", err)
	}

	if capsule.SharePassword != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(capsule.SharePassword), []byte(password)); err != nil {
			return nil, apperr.ErrSharePassword
		}
	}

	capsule.Message = s.codec.Decrypt(capsule.Message)
	for i := range capsule.Files {
		capsule.Files[i].Data = s.codec.DecryptFileData(capsule.Files[i].Data)
	}
	return capsule, nil
}
