package session

import (
	"context"

	"github.com/honeynil/cinematch/internal/models"
)

type contextKey int

const (
	storeKey contextKey = iota
	claimsKey
)

func WithStore(ctx context.Context, store *TokenStore) context.Context {
	return context.WithValue(ctx, storeKey, store)
}

func StoreFromContext(ctx context.Context) (*TokenStore, bool) {
	store, ok := ctx.Value(storeKey).(*TokenStore)
	return store, ok
}

func WithClaims(ctx context.Context, claims *models.TokenClaims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

func ClaimsFromContext(ctx context.Context) (*models.TokenClaims, bool) {
	claims, ok := ctx.Value(claimsKey).(*models.TokenClaims)
	return claims, ok && claims != nil
}
