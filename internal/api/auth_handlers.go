package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	domainerrors "github.com/librarydesk/librarydesk-server/internal/errors"
	"github.com/librarydesk/librarydesk-server/internal/service"
)

func (s *Server) registerAuthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "login",
		Method:      http.MethodPost,
		Path:        loginPath,
		Summary:     "Staff login",
		Description: "Authenticates a staff user and returns an access token. Only available when authentication is enabled.",
		Tags:        []string{"Authentication"},
	}, s.handleLogin)
}

// === DTOs ===

// LoginRequest is the request body for staff login.
type LoginRequest struct {
	Username string `json:"username,omitempty" doc:"Staff username"`
	Password string `json:"password,omitempty" doc:"Staff password"`
}

// LoginInput wraps the login request for Huma.
type LoginInput struct {
	XForwardedFor string `header:"X-Forwarded-For"`
	XRealIP       string `header:"X-Real-IP"`
	Body          LoginRequest
}

// AuthResponse contains an issued access token.
type AuthResponse struct {
	AccessToken string    `json:"access_token" doc:"PASETO access token"`
	TokenType   string    `json:"token_type" doc:"Always Bearer"`
	ExpiresAt   time.Time `json:"expires_at" doc:"Token expiry"`
	Username    string    `json:"username" doc:"Authenticated staff username"`
}

// AuthOutput wraps the auth response for Huma.
type AuthOutput struct {
	Body AuthResponse
}

// === Handlers ===

func (s *Server) handleLogin(ctx context.Context, input *LoginInput) (*AuthOutput, error) {
	if s.services.Auth == nil {
		return nil, domainerrors.Validation("authentication is not enabled on this server")
	}

	resp, err := s.services.Auth.Login(ctx, service.LoginRequest{
		Username:  input.Body.Username,
		Password:  input.Body.Password,
		IPAddress: extractIP(input.XForwardedFor, input.XRealIP),
	})
	if err != nil {
		return nil, err
	}

	return &AuthOutput{
		Body: AuthResponse{
			AccessToken: resp.AccessToken,
			TokenType:   resp.TokenType,
			ExpiresAt:   resp.ExpiresAt,
			Username:    resp.Username,
		},
	}, nil
}
