package cache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/honeynil/cinematch/internal/infrastructure/redis"
	redismocks "github.com/honeynil/cinematch/internal/infrastructure/redis/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestRedisCache(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := redismocks.NewMockRedisClient(ctrl)
	c := NewRedisCache(client, 30*time.Minute)
	ctx := context.Background()

	movies := sampleMovies(2)
	payload, err := json.Marshal(movies)
	require.NoError(t, err)

	t.Run("store", func(t *testing.T) {
		client.EXPECT().Set(gomock.Any(), "movies-cache:42", string(payload), 30*time.Minute).Return(nil)
		c.Store(ctx, "42", movies)
	})

	t.Run("hit", func(t *testing.T) {
		client.EXPECT().Get(gomock.Any(), "movies-cache:42").Return(string(payload), nil)
		got, ok := c.Get(ctx, "42")
		require.True(t, ok)
		assert.Equal(t, movies, got)
	})

	t.Run("miss", func(t *testing.T) {
		client.EXPECT().Get(gomock.Any(), "movies-cache:7").Return("", redis.ErrKeyNotFound)
		got, ok := c.Get(ctx, "7")
		assert.False(t, ok)
		assert.Nil(t, got)
	})

	t.Run("transport error reads as miss", func(t *testing.T) {
		client.EXPECT().Get(gomock.Any(), "movies-cache:42").Return("", errors.New("i/o timeout"))
		_, ok := c.Get(ctx, "42")
		assert.False(t, ok)
	})

	t.Run("corrupt payload reads as miss", func(t *testing.T) {
		client.EXPECT().Get(gomock.Any(), "movies-cache:42").Return("{not json", nil)
		_, ok := c.Get(ctx, "42")
		assert.False(t, ok)
	})

	t.Run("clear", func(t *testing.T) {
		client.EXPECT().Del(gomock.Any(), "movies-cache:42").Return(nil)
		c.Clear(ctx, "42")
	})

	t.Run("store failure is swallowed", func(t *testing.T) {
		client.EXPECT().Set(gomock.Any(), "movies-cache:42", gomock.Any(), 30*time.Minute).Return(errors.New("down"))
		c.Store(ctx, "42", movies)
	})
}
