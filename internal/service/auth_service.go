package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"capsulevault/internal/apperr"
	"capsulevault/internal/auth"
	"capsulevault/internal/model"
	"capsulevault/internal/repository"
)

const bcryptCost = 10

// ProfileUpdate carries the fields a user may change about themselves.
// Nil fields are left untouched.
type ProfileUpdate struct {
	DisplayName *string
	Bio         *string
	Avatar      *string
}

// AuthService handles identity operations: signup, session establishment and
// profile maintenance.
type AuthService interface {
	Register(ctx context.Context, email, password, displayName string) (accessToken, refreshToken string, user *model.User, err error)
	Login(ctx context.Context, email, password string) (accessToken, refreshToken string, user *model.User, err error)
	RefreshToken(ctx context.Context, refreshToken string) (accessToken string, err error)
	Logout(ctx context.Context, refreshToken string) error
	GetUser(ctx context.Context, id uuid.UUID) (*model.User, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, update ProfileUpdate) (*model.User, error)
}

type authService struct {
	userRepo    repository.UserRepository
	capsuleRepo repository.CapsuleRepository
	jwtService  *auth.JWTService
	tokenStore  auth.TokenStoreInterface
}

// NewAuthService creates a new authentication service.
func NewAuthService(
	userRepo repository.UserRepository,
	capsuleRepo repository.CapsuleRepository,
	jwtService *auth.JWTService,
	tokenStore auth.TokenStoreInterface,
) AuthService {
	return &authService{
		userRepo:    userRepo,
		capsuleRepo: capsuleRepo,
		jwtService:  jwtService,
		tokenStore:  tokenStore,
	}
}

// Register creates a new user with a hashed password and establishes a
// session for them.
func (s *authService) Register(ctx context.Context, email, password, displayName string) (string, string, *model.User, error) {
	if email == "" {
		return "", "", nil, apperr.NewValidation("email", "must not be empty")
	}
	if password == "" {
		return "", "", nil, apperr.NewValidation("password", "must not be empty")
	}
	if displayName == "" {
		return "", "", nil, apperr.NewValidation("display_name", "must not be empty")
	}

	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err == nil && existing != nil {
		return "", "", nil, apperr.ErrDuplicateEmail
	}
	if err != nil && err != gorm.ErrRecordNotFound {
		return "", "", nil, apperr.Storage("register", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", "", nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hashedPassword),
		DisplayName:  displayName,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		// Two concurrent signups can both pass the lookup above; the
		// unique index on email decides, and the loser is a duplicate.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return "", "", nil, apperr.ErrDuplicateEmail
		}
		return "", "", nil, apperr.Storage("create user", err)
	}

	accessToken, refreshToken, err := s.establishSession(ctx, user)
	if err != nil {
		return "", "", nil, err
	}
	return accessToken, refreshToken, user, nil
}

// Login authenticates a user and establishes a session. A credential
// mismatch surfaces as ErrInvalidCredentials, never as a user-enumeration
// hint.
func (s *authService) Login(ctx context.Context, email, password string) (string, string, *model.User, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return "", "", nil, apperr.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", "", nil, apperr.ErrInvalidCredentials
	}

	accessToken, refreshToken, err := s.establishSession(ctx, user)
	if err != nil {
		return "", "", nil, err
	}
	return accessToken, refreshToken, user, nil
}

func (s *authService) establishSession(ctx context.Context, user *model.User) (string, string, error) {
	accessToken, err := s.jwtService.GenerateAccessToken(user.ID, user.Email)
	if err != nil {
		return "", "", fmt.Errorf("generate access token: %w", err)
	}

	tokenID, refreshToken, err := s.jwtService.GenerateRefreshToken(user.ID, user.Email)
	if err != nil {
		return "", "", fmt.Errorf("generate refresh token: %w", err)
	}

	if err := s.tokenStore.StoreRefreshToken(ctx, tokenID, user.ID.String(), user.Email, auth.RefreshTokenExpiry); err != nil {
		return "", "", fmt.Errorf("store refresh token: %w", err)
	}

	return accessToken, refreshToken, nil
}

// RefreshToken validates a refresh token and returns a new access token.
func (s *authService) RefreshToken(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.jwtService.ValidateToken(refreshToken)
	if err != nil {
		return "", apperr.ErrUnauthenticated
	}

	tokenID, err := s.jwtService.ExtractTokenID(refreshToken)
	if err != nil {
		return "", apperr.ErrUnauthenticated
	}

	storedUserID, storedEmail, err := s.tokenStore.GetRefreshToken(ctx, tokenID)
	if err != nil {
		return "", apperr.ErrUnauthenticated
	}
	if storedUserID != claims.UserID || storedEmail != claims.Email {
		return "", apperr.ErrUnauthenticated
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return "", apperr.ErrUnauthenticated
	}

	accessToken, err := s.jwtService.GenerateAccessToken(userID, claims.Email)
	if err != nil {
		return "", fmt.Errorf("generate access token: %w", err)
	}
	return accessToken, nil
}

// Logout drops the session only; the user record survives.
func (s *authService) Logout(ctx context.Context, refreshToken string) error {
	tokenID, err := s.jwtService.ExtractTokenID(refreshToken)
	if err != nil {
		return apperr.ErrUnauthenticated
	}
	return s.tokenStore.DeleteRefreshToken(ctx, tokenID)
}

// GetUser returns the user with the secondary profile record folded in.
// The most recently updated side wins for bio and avatar.
func (s *authService) GetUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.ErrUserNotFound
		}
		return nil, apperr.Storage("get user", err)
	}

	profile, err := s.userRepo.FindProfile(ctx, id)
	if err == nil && profile.UpdatedAt.After(user.UpdatedAt) {
		if profile.Bio != "" {
			user.Bio = profile.Bio
		}
		if profile.Avatar != "" {
			user.Avatar = profile.Avatar
		}
	}
	return user, nil
}

// UpdateProfile merges the given fields into the user and profile records.
// A changed display name is propagated into the denormalized owner name of
// every capsule the user owns; comment snapshots stay frozen.
func (s *authService) UpdateProfile(ctx context.Context, userID uuid.UUID, update ProfileUpdate) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.ErrUserNotFound
		}
		return nil, apperr.Storage("update profile", err)
	}

	nameChanged := false
	if update.DisplayName != nil && *update.DisplayName != user.DisplayName {
		if *update.DisplayName == "" {
			return nil, apperr.NewValidation("display_name", "must not be empty")
		}
		user.DisplayName = *update.DisplayName
		nameChanged = true
	}
	if update.Bio != nil {
		user.Bio = *update.Bio
	}
	if update.Avatar != nil {
		user.Avatar = *update.Avatar
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, apperr.Storage("update user", err)
	}

	profile := &model.UserProfile{
		UserID:   user.ID,
		Bio:      user.Bio,
		Avatar:   user.Avatar,
		JoinedAt: user.CreatedAt,
	}
	if err := s.userRepo.UpsertProfile(ctx, profile); err != nil {
		return nil, apperr.Storage("update user profile", err)
	}

	if nameChanged {
		if err := s.capsuleRepo.UpdateOwnerName(ctx, user.ID, user.DisplayName); err != nil {
			return nil, apperr.Storage("propagate display name", err)
		}
		slog.Info("propagated display name to capsules", "user_id", user.ID)
	}

	return user, nil
}
