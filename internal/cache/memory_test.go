package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/honeynil/cinematch/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleMovies(n int) []models.Movie {
	movies := make([]models.Movie, n)
	for i := range movies {
		movies[i] = models.Movie{
			ID:          int64(i + 1),
			Title:       fmt.Sprintf("Movie %d", i+1),
			PosterPath:  fmt.Sprintf("/poster%d.jpg", i+1),
			VoteAverage: 7.5,
			GenreIDs:    []int{18, 28},
		}
	}
	return movies
}

func TestMemoryCache_StoreThenGetReturnsCopy(t *testing.T) {
	c := NewMemoryCache(time.Minute)
	defer c.Close()
	ctx := context.Background()

	movies := sampleMovies(3)
	c.Store(ctx, "42", movies)

	got, ok := c.Get(ctx, "42")
	require.True(t, ok)
	assert.Equal(t, movies, got)
	assert.NotSame(t, &movies[0], &got[0])

	// mutating what the caller holds must not leak into the cache
	got[0].Title = "changed"
	got[0].GenreIDs[0] = 99
	movies[1].Title = "changed too"

	again, ok := c.Get(ctx, "42")
	require.True(t, ok)
	assert.Equal(t, "Movie 1", again[0].Title)
	assert.Equal(t, 18, again[0].GenreIDs[0])
	assert.Equal(t, "Movie 2", again[1].Title)
}

func TestMemoryCache_Miss(t *testing.T) {
	c := NewMemoryCache(time.Minute)
	defer c.Close()

	got, ok := c.Get(context.Background(), "nobody")
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestMemoryCache_ExpiresAfterTTL(t *testing.T) {
	c := NewMemoryCache(30 * time.Millisecond)
	defer c.Close()
	ctx := context.Background()

	c.Store(ctx, "42", sampleMovies(2))
	_, ok := c.Get(ctx, "42")
	require.True(t, ok)

	time.Sleep(100 * time.Millisecond)
	got, ok := c.Get(ctx, "42")
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestMemoryCache_ReadsDoNotExtendEntry(t *testing.T) {
	c := NewMemoryCache(80 * time.Millisecond)
	defer c.Close()
	ctx := context.Background()

	c.Store(ctx, "42", sampleMovies(1))
	for i := 0; i < 4; i++ {
		time.Sleep(25 * time.Millisecond)
		c.Get(ctx, "42")
	}
	_, ok := c.Get(ctx, "42")
	assert.False(t, ok)
}

func TestMemoryCache_Clear(t *testing.T) {
	c := NewMemoryCache(time.Minute)
	defer c.Close()
	ctx := context.Background()

	c.Store(ctx, "42", sampleMovies(2))
	c.Clear(ctx, "42")
	_, ok := c.Get(ctx, "42")
	assert.False(t, ok)

	// clearing a missing key is harmless
	c.Clear(ctx, "42")
}

func TestMemoryCache_StoreReplacesWholesale(t *testing.T) {
	c := NewMemoryCache(time.Minute)
	defer c.Close()
	ctx := context.Background()

	c.Store(ctx, "42", sampleMovies(5))
	c.Store(ctx, "42", sampleMovies(2))

	got, ok := c.Get(ctx, "42")
	require.True(t, ok)
	assert.Len(t, got, 2)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "42", MoviesKey("42", 0))
	assert.Equal(t, "42", MoviesKey("42", 1))
	assert.Equal(t, "42:page:3", MoviesKey("42", 3))
	assert.Equal(t, "recommendations:42", RecommendationsKey("42"))
}
