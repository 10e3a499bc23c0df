package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/linemk/outlet-shop/internal/domain/models"
	"github.com/linemk/outlet-shop/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestAuthService_Login_NewUser(t *testing.T) {
	t.Setenv("JWT_SECRET", "testsecret")

	fakeRepo := newFakeUserRepo()
	authSvc := service.NewAuthService(testLogger(), fakeRepo, 60*time.Minute)
	ctx := context.Background()

	email := "newuser@example.com"
	password := "password123"

	token, err := authSvc.Login(ctx, email, password, "  Budi  ")
	require.NoError(t, err, "Login should succeed for a new user")
	assert.NotEmpty(t, token, "Token should not be empty")

	user, err := fakeRepo.GetUserByEmail(ctx, email)
	require.NoError(t, err, "User should exist after creation")
	assert.Equal(t, "Budi", user.Name)
	// Проверяем, что пароль хэширован (не равен исходному паролю)
	assert.NotEqual(t, password, string(user.PassHash), "Password should be hashed")
}

func TestAuthService_Login_ExistingUser_CorrectPassword(t *testing.T) {
	t.Setenv("JWT_SECRET", "testsecret")

	fakeRepo := newFakeUserRepo()
	authSvc := service.NewAuthService(testLogger(), fakeRepo, 60*time.Minute)
	ctx := context.Background()

	email := "existing@example.com"
	password := "password123"
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	require.NoError(t, err)
	_, err = fakeRepo.CreateUser(ctx, &models.User{Email: email, Name: "Siti", PassHash: hashed})
	require.NoError(t, err)

	// имя при повторном входе не меняется
	token, err := authSvc.Login(ctx, email, password, "Other")
	assert.NoError(t, err, "Login should succeed with correct password")
	assert.NotEmpty(t, token, "Token should be returned")
	assert.Equal(t, "Siti", fakeRepo.users[email].Name)
}

func TestAuthService_Login_ExistingUser_WrongPassword(t *testing.T) {
	t.Setenv("JWT_SECRET", "testsecret")

	fakeRepo := newFakeUserRepo()
	authSvc := service.NewAuthService(testLogger(), fakeRepo, 60*time.Minute)
	ctx := context.Background()

	email := "existing@example.com"
	hashed, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	require.NoError(t, err)
	_, err = fakeRepo.CreateUser(ctx, &models.User{Email: email, PassHash: hashed})
	require.NoError(t, err)

	token, err := authSvc.Login(ctx, email, "wrongpassword", "")
	assert.ErrorIs(t, err, service.ErrUnauthorized, "Login should fail with incorrect password")
	assert.Empty(t, token, "Token should be empty on failed login")
}

func TestAuthService_Login_NoSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	authSvc := service.NewAuthService(testLogger(), newFakeUserRepo(), time.Hour)
	token, err := authSvc.Login(context.Background(), "a@example.com", "password123", "")
	assert.Error(t, err)
	assert.Empty(t, token)
}
