package providers

import (
	"encoding/hex"
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/librarydesk/librarydesk-server/internal/auth"
	"github.com/librarydesk/librarydesk-server/internal/config"
	"github.com/librarydesk/librarydesk-server/internal/logger"
	"github.com/librarydesk/librarydesk-server/internal/service"
	"github.com/librarydesk/librarydesk-server/internal/validation"
)

// AuthKey wraps the authentication key bytes.
type AuthKey []byte

// ProvideAuthKey loads or generates the token signing key.
func ProvideAuthKey(i do.Injector) (AuthKey, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	key, err := auth.LoadOrGenerateKey(filepath.Join(cfg.Data.BasePath, "auth.key"))
	if err != nil {
		return nil, err
	}

	log.Info("Authentication key loaded",
		"access_token_duration", cfg.Auth.AccessTokenDuration,
		"staff_login_enabled", cfg.Auth.Enabled(),
	)

	return AuthKey(key), nil
}

// ProvideTokenService provides the PASETO token service.
func ProvideTokenService(i do.Injector) (*auth.TokenService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	authKey := do.MustInvoke[AuthKey](i)

	keyHex := hex.EncodeToString([]byte(authKey))
	return auth.NewTokenService(keyHex, cfg.Auth.AccessTokenDuration)
}

// ProvideAuthService provides the staff authentication service.
func ProvideAuthService(i do.Injector) (*service.AuthService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	tokenService := do.MustInvoke[*auth.TokenService](i)
	validator := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	if !cfg.Auth.Enabled() {
		log.Warn("No staff password configured, the API is open to anyone who can reach it")
	}

	return service.NewAuthService(cfg.Auth, tokenService, validator, log.Logger)
}
