package session

import (
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/honeynil/cinematch/internal/models"
)

type tokenClaims struct {
	jwt.RegisteredClaims
	UserID       any    `json:"userId,omitempty"`
	LegacyUserID any    `json:"user_id,omitempty"`
	Email        string `json:"email,omitempty"`
}

// Decoder turns token strings into normalized claims. With a secret the HMAC
// signature is verified; without one the claims are read as-is.
type Decoder struct {
	secret []byte
	parser *jwt.Parser
	now    func() time.Time
}

func NewDecoder(secret string) *Decoder {
	return &Decoder{
		secret: []byte(secret),
		parser: jwt.NewParser(
			jwt.WithoutClaimsValidation(),
			jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
		),
		now: time.Now,
	}
}

// Verifies reports whether signatures are checked.
func (d *Decoder) Verifies() bool { return len(d.secret) > 0 }

// Decode returns nil for malformed tokens, tokens whose exp is in the past and
// tokens without a user id. It never panics.
func (d *Decoder) Decode(token string) (claims *models.TokenClaims) {
	if token == "" {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			slog.Error("token decode panicked", "panic", r)
			claims = nil
		}
	}()

	var raw tokenClaims
	var err error
	if len(d.secret) == 0 {
		_, _, err = d.parser.ParseUnverified(token, &raw)
	} else {
		_, err = d.parser.ParseWithClaims(token, &raw, func(*jwt.Token) (interface{}, error) {
			return d.secret, nil
		})
	}
	if err != nil {
		slog.Debug("token rejected", "error", err)
		return nil
	}

	if raw.ExpiresAt != nil && raw.ExpiresAt.Time.Before(d.now()) {
		return nil
	}

	userID := normalizeID(raw.UserID)
	if userID == "" {
		userID = normalizeID(raw.LegacyUserID)
	}
	if userID == "" {
		return nil
	}

	out := &models.TokenClaims{
		UserID: userID,
		Email:  raw.Email,
	}
	if out.Email == "" {
		out.Email = raw.Subject
	}
	if raw.ExpiresAt != nil {
		out.ExpiresAt = raw.ExpiresAt.Time
	}
	if raw.IssuedAt != nil {
		out.IssuedAt = raw.IssuedAt.Time
	}
	return out
}

func normalizeID(v any) string {
	switch id := v.(type) {
	case string:
		return strings.TrimSpace(id)
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	case json.Number:
		return id.String()
	default:
		return ""
	}
}
