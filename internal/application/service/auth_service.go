package service

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/sangkips/receipt-api/internal/application/session"
	"github.com/sangkips/receipt-api/internal/domain/entity"
	"github.com/sangkips/receipt-api/internal/domain/repository"
	"github.com/sangkips/receipt-api/internal/logger"
	"github.com/sangkips/receipt-api/pkg/apperror"
	"github.com/sangkips/receipt-api/pkg/utils"
)

const minPasswordLength = 8

// AuthService handles authentication-related operations
type AuthService struct {
	userRepo repository.UserRepository
	settings SettingsProvider
	sessions *session.Manager
	log      *logger.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(
	userRepo repository.UserRepository,
	settings SettingsProvider,
	sessions *session.Manager,
	log *logger.Logger,
) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		settings: settings,
		sessions: sessions,
		log:      log,
	}
}

// RegisterInput represents the registration input
type RegisterInput struct {
	Email           string
	Password        string
	PasswordConfirm string
	DisplayName     string
}

// Register creates a new user account with default settings
func (s *AuthService) Register(ctx context.Context, input *RegisterInput) (*entity.User, error) {
	if err := validatePassword("password", input.Password, input.PasswordConfirm); err != nil {
		return nil, err
	}

	email := entity.NormalizeEmail(input.Email)
	existingUser, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, errors.Wrap(err, "failed to look up email")
	}
	if existingUser != nil {
		return nil, apperror.NewConflictError("Email already registered")
	}

	hashedPassword, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, errors.Wrap(err, "failed to hash password")
	}

	user := &entity.User{
		Email:       email,
		Password:    hashedPassword,
		DisplayName: strings.TrimSpace(input.DisplayName),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, apperror.NewConflictError("Email already registered")
		}
		return nil, errors.Wrap(err, "failed to create user")
	}

	if _, err := s.settings.GetSettings(ctx, user.ID); err != nil {
		// Settings are created lazily on first read as well, so this is not fatal.
		s.log.Warnw("failed to create default settings", "user_id", user.ID, "error", err)
	}

	s.log.Infow("user registered", "user_id", user.ID)
	return user, nil
}

// LoginInput represents the login input
type LoginInput struct {
	Email    string
	Password string
	Meta     session.Meta
}

// LoginOutput represents the login output
type LoginOutput struct {
	User   *entity.User
	Tokens *session.Tokens
}

// Login checks credentials and opens a session
func (s *AuthService) Login(ctx context.Context, input *LoginInput) (*LoginOutput, error) {
	user, err := s.userRepo.GetByEmail(ctx, input.Email)
	if err != nil {
		return nil, errors.Wrap(err, "failed to look up user")
	}
	if user == nil || !utils.CheckPasswordHash(input.Password, user.Password) {
		return nil, apperror.ErrInvalidCredentials
	}

	tokens, err := s.sessions.Login(ctx, user, input.Meta)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user.LastLoginAt = &now
	if err := s.userRepo.Update(ctx, user); err != nil {
		s.log.Warnw("failed to record login time", "user_id", user.ID, "error", err)
	}

	return &LoginOutput{User: user, Tokens: tokens}, nil
}

// Refresh rotates the caller's tokens
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*session.Tokens, error) {
	return s.sessions.Refresh(ctx, refreshToken)
}

// Logout ends the session
func (s *AuthService) Logout(ctx context.Context, sessionID uuid.UUID) error {
	return s.sessions.Logout(ctx, sessionID)
}

// GetCurrentUser returns the current user by ID
func (s *AuthService) GetCurrentUser(ctx context.Context, userID uuid.UUID) (*entity.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load user")
	}
	if user == nil {
		return nil, apperror.NewNotFoundError("User")
	}
	return user, nil
}

// UpdateProfileInput represents the update profile input
type UpdateProfileInput struct {
	UserID      uuid.UUID
	DisplayName string
}

// UpdateProfile updates the user's display name
func (s *AuthService) UpdateProfile(ctx context.Context, input *UpdateProfileInput) (*entity.User, error) {
	user, err := s.GetCurrentUser(ctx, input.UserID)
	if err != nil {
		return nil, err
	}
	user.DisplayName = strings.TrimSpace(input.DisplayName)
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, errors.Wrap(err, "failed to update user")
	}
	return user, nil
}

// ChangePasswordInput represents the change password input
type ChangePasswordInput struct {
	UserID             uuid.UUID
	SessionID          uuid.UUID
	CurrentPassword    string
	NewPassword        string
	NewPasswordConfirm string
}

// ChangePassword changes the user's password and signs out every other session
func (s *AuthService) ChangePassword(ctx context.Context, input *ChangePasswordInput) error {
	if err := validatePassword("new_password", input.NewPassword, input.NewPasswordConfirm); err != nil {
		return err
	}

	user, err := s.GetCurrentUser(ctx, input.UserID)
	if err != nil {
		return err
	}
	if !utils.CheckPasswordHash(input.CurrentPassword, user.Password) {
		return apperror.NewFieldError("current_password", "is incorrect")
	}

	hashedPassword, err := utils.HashPassword(input.NewPassword)
	if err != nil {
		return errors.Wrap(err, "failed to hash password")
	}
	user.Password = hashedPassword
	if err := s.userRepo.Update(ctx, user); err != nil {
		return errors.Wrap(err, "failed to update password")
	}

	return s.sessions.RevokeOthers(ctx, user.ID, input.SessionID)
}

func validatePassword(field, password, confirm string) error {
	if len(password) < minPasswordLength {
		return apperror.NewFieldError(field, "must be at least 8 characters")
	}
	if password != confirm {
		return apperror.NewFieldError(field+"_confirm", "does not match")
	}
	return nil
}
