package models

import "time"

// TokenClaims is the normalized identity carried by a CineMatch token.
type TokenClaims struct {
	UserID    string    `json:"userId"`
	Email     string    `json:"email,omitempty"`
	ExpiresAt time.Time `json:"exp,omitempty"`
	IssuedAt  time.Time `json:"iat,omitempty"`
}

// HasExpiry reports whether the token carried an exp claim.
func (c *TokenClaims) HasExpiry() bool {
	return !c.ExpiresAt.IsZero()
}
