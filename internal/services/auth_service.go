package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/honeynil/cinematch/internal/cache"
	"github.com/honeynil/cinematch/internal/infrastructure/backend"
	"github.com/honeynil/cinematch/internal/infrastructure/observability"
	"github.com/honeynil/cinematch/internal/models"
	pkgerrors "github.com/honeynil/cinematch/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

// Session is the part of session.TokenStore the auth flow writes to.
type Session interface {
	Save(ctx context.Context, token string)
	SaveUser(ctx context.Context, user *models.User)
	Decode(token string) *models.TokenClaims
	Identity(ctx context.Context) *models.TokenClaims
	Clear(ctx context.Context)
}

type AuthService struct {
	backend backend.Client
	cache   cache.ResponseCache
}

func NewAuthService(backendClient backend.Client, responseCache cache.ResponseCache) *AuthService {
	return &AuthService{backend: backendClient, cache: responseCache}
}

// Login exchanges credentials for a token and keeps it only if it decodes.
func (s *AuthService) Login(ctx context.Context, sess Session, email, password string) (*models.TokenClaims, error) {
	tracer := otel.Tracer("auth-service")
	ctx, span := tracer.Start(ctx, "Login")
	defer span.End()

	if email == "" || password == "" {
		span.SetStatus(codes.Error, "empty email or password")
		return nil, fmt.Errorf("%w: email and password are required", pkgerrors.ErrInvalidInput)
	}

	res, err := s.backend.Login(ctx, email, password)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "backend login failed")
		observability.WithContext(ctx).Error("failed to login", "email", email, "error", err)
		return nil, err
	}

	return s.startSession(ctx, sess, res)
}

// Register creates the account and logs in when the backend hands back a token.
// A nil claims result with a nil error means the account exists but no session
// was started.
func (s *AuthService) Register(ctx context.Context, sess Session, req backend.RegisterRequest) (*models.TokenClaims, error) {
	tracer := otel.Tracer("auth-service")
	ctx, span := tracer.Start(ctx, "Register")
	defer span.End()

	if req.Email == "" || req.Password == "" {
		span.SetStatus(codes.Error, "empty email or password")
		return nil, fmt.Errorf("%w: email and password are required", pkgerrors.ErrInvalidInput)
	}

	res, err := s.backend.Register(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "backend registration failed")
		slog.Error("failed to register", "email", req.Email, "error", err)
		return nil, err
	}
	if res == nil || res.Token == "" {
		slog.Info("user registered without session", "email", req.Email)
		return nil, nil
	}

	return s.startSession(ctx, sess, res)
}

func (s *AuthService) startSession(ctx context.Context, sess Session, res *backend.AuthResult) (*models.TokenClaims, error) {
	claims := sess.Decode(res.Token)
	if claims == nil {
		slog.Warn("backend returned an unusable token")
		return nil, pkgerrors.ErrInvalidToken
	}

	sess.Save(ctx, res.Token)
	sess.SaveUser(ctx, res.User)

	slog.Info("user logged in", "user_id", claims.UserID, "email", claims.Email)
	return claims, nil
}

// Logout drops the token and the user's first movie page and recommendations.
func (s *AuthService) Logout(ctx context.Context, sess Session) {
	tracer := otel.Tracer("auth-service")
	ctx, span := tracer.Start(ctx, "Logout")
	defer span.End()

	if claims := sess.Identity(ctx); claims != nil {
		s.cache.Clear(ctx, cache.MoviesKey(claims.UserID, 1))
		s.cache.Clear(ctx, cache.RecommendationsKey(claims.UserID))
		slog.Info("user logged out", "user_id", claims.UserID)
	}
	sess.Clear(ctx)
}
