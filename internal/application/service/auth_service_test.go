package service

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sangkips/receipt-api/internal/domain/entity"
	"github.com/sangkips/receipt-api/internal/domain/repository"
	"github.com/sangkips/receipt-api/internal/logger"
	"github.com/sangkips/receipt-api/pkg/apperror"
	"github.com/sangkips/receipt-api/pkg/utils"
)

func TestRegister(t *testing.T) {
	users := new(mockUserRepo)
	settings := new(mockSettingsProvider)
	svc := NewAuthService(users, settings, nil, logger.NewNop())

	users.On("GetByEmail", mock.Anything, "owner@example.com").Return(nil, nil).Once()
	users.On("Create", mock.Anything, mock.MatchedBy(func(u *entity.User) bool {
		return u.Email == "owner@example.com" && utils.CheckPasswordHash("s3cret-pass", u.Password)
	})).Return(nil).Once()
	settings.On("GetSettings", mock.Anything, mock.Anything).Return(&entity.OwnerSettings{}, nil).Once()

	user, err := svc.Register(context.Background(), &RegisterInput{
		Email:           " Owner@Example.com ",
		Password:        "s3cret-pass",
		PasswordConfirm: "s3cret-pass",
		DisplayName:     "店主",
	})
	require.NoError(t, err)
	assert.Equal(t, "店主", user.DisplayName)
	users.AssertExpectations(t)
	settings.AssertExpectations(t)
}

func TestRegister_Validation(t *testing.T) {
	svc := NewAuthService(new(mockUserRepo), new(mockSettingsProvider), nil, logger.NewNop())

	_, err := svc.Register(context.Background(), &RegisterInput{Email: "a@b.c", Password: "short", PasswordConfirm: "short"})
	assertFieldError(t, err, "password")

	_, err = svc.Register(context.Background(), &RegisterInput{Email: "a@b.c", Password: "long-enough", PasswordConfirm: "different"})
	assertFieldError(t, err, "password_confirm")
}

func TestRegister_DuplicateEmail(t *testing.T) {
	users := new(mockUserRepo)
	svc := NewAuthService(users, new(mockSettingsProvider), nil, logger.NewNop())

	users.On("GetByEmail", mock.Anything, "owner@example.com").Return(&entity.User{}, nil).Once()
	_, err := svc.Register(context.Background(), &RegisterInput{Email: "owner@example.com", Password: "long-enough", PasswordConfirm: "long-enough"})
	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, 409, appErr.Code)

	// lost race against a concurrent registration
	users.On("GetByEmail", mock.Anything, "late@example.com").Return(nil, nil).Once()
	users.On("Create", mock.Anything, mock.Anything).Return(repository.ErrDuplicateEmail).Once()
	_, err = svc.Register(context.Background(), &RegisterInput{Email: "late@example.com", Password: "long-enough", PasswordConfirm: "long-enough"})
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, 409, appErr.Code)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	users := new(mockUserRepo)
	svc := NewAuthService(users, new(mockSettingsProvider), nil, logger.NewNop())

	hash, err := utils.HashPassword("right-password")
	require.NoError(t, err)
	users.On("GetByEmail", mock.Anything, "owner@example.com").Return(&entity.User{Email: "owner@example.com", Password: hash}, nil)
	users.On("GetByEmail", mock.Anything, "nobody@example.com").Return(nil, nil)

	_, err = svc.Login(context.Background(), &LoginInput{Email: "owner@example.com", Password: "wrong-password"})
	assert.ErrorIs(t, err, apperror.ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), &LoginInput{Email: "nobody@example.com", Password: "whatever"})
	assert.ErrorIs(t, err, apperror.ErrInvalidCredentials)
}

func TestChangePassword_WrongCurrent(t *testing.T) {
	users := new(mockUserRepo)
	svc := NewAuthService(users, new(mockSettingsProvider), nil, logger.NewNop())

	hash, err := utils.HashPassword("right-password")
	require.NoError(t, err)
	id := uuid.New()
	users.On("GetByID", mock.Anything, id).Return(&entity.User{ID: id, Password: hash}, nil)

	err = svc.ChangePassword(context.Background(), &ChangePasswordInput{
		UserID: id, CurrentPassword: "nope", NewPassword: "new-password", NewPasswordConfirm: "new-password",
	})
	assertFieldError(t, err, "current_password")
	users.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}
