package auth

import (
	"time"
)

// StaffClaims represents the claims stored in a staff access token.
// v4.local tokens are encrypted, so clients cannot read them.
type StaffClaims struct {
	Username string `json:"username"`

	// Standard PASETO claims
	Issuer     string    `json:"iss"`
	Subject    string    `json:"sub"`
	Audience   string    `json:"aud"`
	Expiration time.Time `json:"exp"`
	NotBefore  time.Time `json:"nbf"`
	IssuedAt   time.Time `json:"iat"`
	TokenID    string    `json:"jti"`
}
