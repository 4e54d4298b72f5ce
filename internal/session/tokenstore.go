package session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/honeynil/cinematch/internal/infrastructure/redis"
	"github.com/honeynil/cinematch/internal/models"
)

const (
	TokenCookieName = "cinematch_token"
	TokenLifetime   = 7 * 24 * time.Hour
)

// TokenStore is the single owner of one browser's token. The token is written
// to durable storage and to a cookie; reads prefer storage and fall back to the
// cookie. No method returns an error: failures are logged and read as "no token".
type TokenStore struct {
	deviceID string
	storage  Storage
	cookies  Cookies
	decoder  *Decoder
	secure   bool
}

func NewTokenStore(deviceID string, storage Storage, cookies Cookies, decoder *Decoder, secureCookie bool) *TokenStore {
	return &TokenStore{
		deviceID: deviceID,
		storage:  storage,
		cookies:  cookies,
		decoder:  decoder,
		secure:   secureCookie,
	}
}

func (s *TokenStore) tokenKey() string { return "session:" + s.deviceID + ":token" }
func (s *TokenStore) userKey() string  { return "session:" + s.deviceID + ":user" }

func (s *TokenStore) durable() bool { return s.storage != nil && s.deviceID != "" }

func (s *TokenStore) Save(ctx context.Context, token string) {
	if s.durable() {
		if err := s.storage.Set(ctx, s.tokenKey(), token, TokenLifetime); err != nil {
			slog.Error("failed to persist token", "device_id", s.deviceID, "error", err)
		}
	}
	s.cookies.Set(&http.Cookie{
		Name:     TokenCookieName,
		Value:    token,
		Path:     "/",
		Expires:  s.decoder.now().Add(TokenLifetime),
		MaxAge:   int(TokenLifetime / time.Second),
		SameSite: http.SameSiteLaxMode,
		Secure:   s.secure,
	})
}

// SaveUser keeps a snapshot of the profile returned at login next to the token.
func (s *TokenStore) SaveUser(ctx context.Context, user *models.User) {
	if user == nil || !s.durable() {
		return
	}
	data, err := json.Marshal(user)
	if err != nil {
		slog.Error("failed to marshal user snapshot", "user_id", user.ID, "error", err)
		return
	}
	if err := s.storage.Set(ctx, s.userKey(), string(data), TokenLifetime); err != nil {
		slog.Error("failed to persist user snapshot", "device_id", s.deviceID, "error", err)
	}
}

// User returns the snapshot saved by SaveUser, or nil.
func (s *TokenStore) User(ctx context.Context) *models.User {
	if !s.durable() {
		return nil
	}
	data, err := s.storage.Get(ctx, s.userKey())
	if err != nil {
		if !errors.Is(err, redis.ErrKeyNotFound) {
			slog.Error("failed to read user snapshot", "device_id", s.deviceID, "error", err)
		}
		return nil
	}
	var user models.User
	if err := json.Unmarshal([]byte(data), &user); err != nil {
		slog.Warn("dropping corrupt user snapshot", "device_id", s.deviceID, "error", err)
		return nil
	}
	return &user
}

func (s *TokenStore) Get(ctx context.Context) string {
	if s.durable() {
		token, err := s.storage.Get(ctx, s.tokenKey())
		switch {
		case err == nil && token != "":
			return token
		case err != nil && !errors.Is(err, redis.ErrKeyNotFound):
			slog.Error("failed to read token from storage", "device_id", s.deviceID, "error", err)
		}
	}
	if token, ok := s.cookies.Value(TokenCookieName); ok {
		return token
	}
	return ""
}

func (s *TokenStore) Decode(token string) *models.TokenClaims {
	return s.decoder.Decode(token)
}

func (s *TokenStore) CurrentUser(ctx context.Context) *models.TokenClaims {
	return s.decoder.Decode(s.Get(ctx))
}

// Identity returns the claims the gateway can vouch for. Unless signatures
// are verified, only a token written to durable storage by Save counts; a
// cookie token is readable by anyone who can set the cookie.
func (s *TokenStore) Identity(ctx context.Context) *models.TokenClaims {
	if s.decoder.Verifies() {
		return s.CurrentUser(ctx)
	}
	if !s.durable() {
		return nil
	}
	token, err := s.storage.Get(ctx, s.tokenKey())
	if err != nil {
		if !errors.Is(err, redis.ErrKeyNotFound) {
			slog.Error("failed to read token from storage", "device_id", s.deviceID, "error", err)
		}
		return nil
	}
	return s.decoder.Decode(token)
}

func (s *TokenStore) IsValid(ctx context.Context) bool {
	return s.CurrentUser(ctx) != nil
}

// Clear removes the token from both locations along with the user snapshot.
// Clearing an empty store is a no-op.
func (s *TokenStore) Clear(ctx context.Context) {
	if s.durable() {
		for _, key := range []string{s.tokenKey(), s.userKey()} {
			if err := s.storage.Del(ctx, key); err != nil {
				slog.Error("failed to delete session key", "key", key, "error", err)
			}
		}
	}
	s.cookies.Set(&http.Cookie{
		Name:     TokenCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		SameSite: http.SameSiteLaxMode,
		Secure:   s.secure,
	})
}
