package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/librarydesk/librarydesk-server/internal/auth"
	"github.com/librarydesk/librarydesk-server/internal/config"
	domainerrors "github.com/librarydesk/librarydesk-server/internal/errors"
	"github.com/librarydesk/librarydesk-server/internal/validation"
)

const testKeyHex = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func setupAuthService(t *testing.T, cfg config.AuthConfig) *AuthService {
	t.Helper()

	tokens, err := auth.NewTokenService(testKeyHex, 15*time.Minute)
	require.NoError(t, err)

	svc, err := NewAuthService(cfg, tokens, validation.New(), slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	return svc
}

func TestAuthService_Login(t *testing.T) {
	svc := setupAuthService(t, config.AuthConfig{AdminUsername: "librarian", AdminPassword: "s3cret-pass"})
	require.True(t, svc.Enabled())

	resp, err := svc.Login(context.Background(), LoginRequest{Username: "librarian", Password: "s3cret-pass"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, "librarian", resp.Username)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), resp.ExpiresAt, time.Minute)

	claims, err := svc.VerifyAccessToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "librarian", claims.Username)
}

func TestAuthService_LoginWithHash(t *testing.T) {
	hash, err := auth.HashPassword("hunter22")
	require.NoError(t, err)
	svc := setupAuthService(t, config.AuthConfig{AdminUsername: "librarian", AdminPasswordHash: hash})

	_, err = svc.Login(context.Background(), LoginRequest{Username: "librarian", Password: "hunter22"})
	assert.NoError(t, err)
}

func TestAuthService_InvalidCredentials(t *testing.T) {
	svc := setupAuthService(t, config.AuthConfig{AdminUsername: "librarian", AdminPassword: "s3cret-pass"})

	tests := []struct {
		name string
		req  LoginRequest
	}{
		{"wrong password", LoginRequest{Username: "librarian", Password: "nope"}},
		{"wrong username", LoginRequest{Username: "admin", Password: "s3cret-pass"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Login(context.Background(), tt.req)
			assert.ErrorIs(t, err, domainerrors.ErrInvalidCredentials)
		})
	}

	_, err := svc.Login(context.Background(), LoginRequest{Username: "librarian"})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestAuthService_Disabled(t *testing.T) {
	svc := setupAuthService(t, config.AuthConfig{AdminUsername: "librarian"})
	assert.False(t, svc.Enabled())

	_, err := svc.Login(context.Background(), LoginRequest{Username: "librarian", Password: "x"})
	assert.Error(t, err)
}

func TestAuthService_VerifyRejectsGarbage(t *testing.T) {
	svc := setupAuthService(t, config.AuthConfig{AdminUsername: "librarian", AdminPassword: "s3cret-pass"})

	_, err := svc.VerifyAccessToken("v4.local.garbage")
	assert.ErrorIs(t, err, domainerrors.ErrUnauthorized)
}
