package service

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"time"

	"github.com/librarydesk/librarydesk-server/internal/auth"
	"github.com/librarydesk/librarydesk-server/internal/config"
	domainerrors "github.com/librarydesk/librarydesk-server/internal/errors"
	"github.com/librarydesk/librarydesk-server/internal/validation"
)

// AuthService authenticates library staff. There is a single staff account
// configured through AUTH_ADMIN_USERNAME and a password or argon2id hash.
// When neither is set, authentication is disabled and the API is open.
type AuthService struct {
	cfg          config.AuthConfig
	passwordHash string
	tokenService *auth.TokenService
	validator    *validation.Validator
	logger       *slog.Logger
}

// NewAuthService creates a new authentication service. A plain password
// from the configuration is hashed once at startup so both settings verify
// through the same path.
func NewAuthService(cfg config.AuthConfig, tokenService *auth.TokenService, validator *validation.Validator, logger *slog.Logger) (*AuthService, error) {
	hash := cfg.AdminPasswordHash
	if hash == "" && cfg.AdminPassword != "" {
		var err error
		hash, err = auth.HashPassword(cfg.AdminPassword)
		if err != nil {
			return nil, err
		}
	}

	return &AuthService{
		cfg:          cfg,
		passwordHash: hash,
		tokenService: tokenService,
		validator:    validator,
		logger:       logger,
	}, nil
}

// LoginRequest contains staff credentials.
type LoginRequest struct {
	Username  string `json:"username" validate:"required,max=100"`
	Password  string `json:"password" validate:"required,max=1024"`
	IPAddress string `json:"-"`
}

// LoginResponse carries an access token for the admin client.
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	Username    string    `json:"username"`
}

// Enabled reports whether requests must carry an access token.
func (s *AuthService) Enabled() bool {
	return s.passwordHash != ""
}

// Login verifies staff credentials and issues an access token.
func (s *AuthService) Login(_ context.Context, req LoginRequest) (*LoginResponse, error) {
	if !s.Enabled() {
		return nil, domainerrors.Validation("authentication is not enabled on this server")
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	// Always run the hash so timing does not reveal a wrong username.
	passwordOK, err := auth.VerifyPassword(s.passwordHash, req.Password)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "verify password")
	}
	userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(s.cfg.AdminUsername)) == 1

	if !passwordOK || !userOK {
		s.logger.Warn("failed staff login", "username", req.Username, "ip", req.IPAddress)
		return nil, domainerrors.InvalidCredentials("invalid username or password")
	}

	token, expiresAt, err := s.tokenService.GenerateAccessToken(s.cfg.AdminUsername)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "issue access token")
	}

	s.logger.Info("staff login", "username", req.Username, "ip", req.IPAddress)

	return &LoginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt,
		Username:    s.cfg.AdminUsername,
	}, nil
}

// VerifyAccessToken validates an access token and returns its claims.
func (s *AuthService) VerifyAccessToken(token string) (*auth.StaffClaims, error) {
	claims, err := s.tokenService.VerifyAccessToken(token)
	if err != nil {
		return nil, domainerrors.Unauthorized("invalid or expired token").WithCause(err)
	}
	if claims.Subject != s.cfg.AdminUsername {
		return nil, domainerrors.Unauthorized("token subject is no longer valid")
	}
	return claims, nil
}
