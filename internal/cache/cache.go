// Package cache memoizes per-user movie lists for a fixed freshness window.
//
// Entries are replaced wholesale and expire TTL after they were stored; reads
// never extend an entry. A miss and a stale entry look the same to callers.
// Concurrent callers missing on the same key may both fetch and both store;
// the last store wins.
package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/honeynil/cinematch/internal/models"
)

const DefaultTTL = 30 * time.Minute

type ResponseCache interface {
	// Get returns a copy of the list stored under key while it is fresh.
	Get(ctx context.Context, key string) ([]models.Movie, bool)
	// Store replaces the entry under key with a copy of movies.
	Store(ctx context.Context, key string, movies []models.Movie)
	Clear(ctx context.Context, key string)
}

// MoviesKey is the bare user id for the first page of the movie list.
func MoviesKey(userID string, page int) string {
	if page <= 1 {
		return userID
	}
	return userID + ":page:" + strconv.Itoa(page)
}

func RecommendationsKey(userID string) string {
	return "recommendations:" + userID
}
