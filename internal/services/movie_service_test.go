package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/honeynil/cinematch/internal/cache"
	"github.com/honeynil/cinematch/internal/infrastructure/backend"
	backendmocks "github.com/honeynil/cinematch/internal/infrastructure/backend/mocks"
	"github.com/honeynil/cinematch/internal/infrastructure/kafka"
	kafkamocks "github.com/honeynil/cinematch/internal/infrastructure/kafka/mocks"
	"github.com/honeynil/cinematch/internal/models"
	repositorymocks "github.com/honeynil/cinematch/internal/repository/mocks"
	pkgerrors "github.com/honeynil/cinematch/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type movieFixture struct {
	backend  *backendmocks.MockClient
	producer *kafkamocks.MockKafkaProducer
	repo     *repositorymocks.MockInteractionRepository
	cache    *cache.MemoryCache
	svc      *MovieService
}

func newMovieFixture(t *testing.T) *movieFixture {
	ctrl := gomock.NewController(t)
	f := &movieFixture{
		backend:  backendmocks.NewMockClient(ctrl),
		producer: kafkamocks.NewMockKafkaProducer(ctrl),
		repo:     repositorymocks.NewMockInteractionRepository(ctrl),
		cache:    cache.NewMemoryCache(time.Minute),
	}
	t.Cleanup(f.cache.Close)
	f.svc = NewMovieService(f.backend, f.cache, f.producer, f.repo, "interactions")
	f.svc.newBackOff = func() backoff.BackOff {
		return backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 2)
	}
	return f
}

func movies(n int) []models.Movie {
	out := make([]models.Movie, n)
	for i := range out {
		out[i] = models.Movie{ID: int64(i + 1), Title: fmt.Sprintf("Movie %d", i+1)}
	}
	return out
}

func TestMovieService_MoviesIsCached(t *testing.T) {
	f := newMovieFixture(t)
	ctx := context.Background()

	f.backend.EXPECT().ListMovies(gomock.Any(), "tok", 1).Return(movies(20), nil).Times(1)

	first, err := f.svc.Movies(ctx, "42", "tok", 1)
	require.NoError(t, err)
	assert.Len(t, first, 20)

	second, err := f.svc.Movies(ctx, "42", "tok", 1)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	cached, ok := f.cache.Get(ctx, "42")
	require.True(t, ok)
	assert.Len(t, cached, 20)
}

func TestMovieService_MoviesPagesAreSeparate(t *testing.T) {
	f := newMovieFixture(t)
	ctx := context.Background()

	f.backend.EXPECT().ListMovies(gomock.Any(), "tok", 1).Return(movies(2), nil)
	f.backend.EXPECT().ListMovies(gomock.Any(), "tok", 2).Return(movies(3), nil)

	_, err := f.svc.Movies(ctx, "42", "tok", 0)
	require.NoError(t, err)
	page2, err := f.svc.Movies(ctx, "42", "tok", 2)
	require.NoError(t, err)
	assert.Len(t, page2, 3)

	_, ok := f.cache.Get(ctx, cache.MoviesKey("42", 2))
	assert.True(t, ok)
}

func TestMovieService_MoviesBackendError(t *testing.T) {
	f := newMovieFixture(t)
	ctx := context.Background()

	f.backend.EXPECT().ListMovies(gomock.Any(), "tok", 1).Return(nil, pkgerrors.ErrBackendUnavailable)

	_, err := f.svc.Movies(ctx, "42", "tok", 1)
	assert.ErrorIs(t, err, pkgerrors.ErrBackendUnavailable)
	_, ok := f.cache.Get(ctx, "42")
	assert.False(t, ok)
}

func TestMovieService_Recommendations(t *testing.T) {
	f := newMovieFixture(t)
	ctx := context.Background()

	f.backend.EXPECT().Recommendations(gomock.Any(), "tok", "42").Return(movies(5), nil).Times(1)

	for range 2 {
		recs, err := f.svc.Recommendations(ctx, "42", "tok")
		require.NoError(t, err)
		assert.Len(t, recs, 5)
	}

	_, err := f.svc.Recommendations(ctx, "", "tok")
	assert.ErrorIs(t, err, pkgerrors.ErrUnauthorized)
}

func TestMovieService_Search(t *testing.T) {
	f := newMovieFixture(t)
	ctx := context.Background()

	f.backend.EXPECT().SearchMovies(gomock.Any(), "tok", "matrix", 1).Return(movies(1), nil).Times(2)

	for range 2 {
		found, err := f.svc.Search(ctx, "tok", " matrix ", 0)
		require.NoError(t, err)
		assert.Len(t, found, 1)
	}

	_, err := f.svc.Search(ctx, "tok", "   ", 1)
	assert.ErrorIs(t, err, pkgerrors.ErrInvalidInput)
}

func TestMovieService_Movie(t *testing.T) {
	f := newMovieFixture(t)
	ctx := context.Background()

	f.backend.EXPECT().GetMovie(gomock.Any(), "tok", int64(603)).Return(&models.Movie{ID: 603, Title: "The Matrix"}, nil)
	f.backend.EXPECT().GetMovie(gomock.Any(), "tok", int64(9)).Return(nil, pkgerrors.ErrMovieNotFound)

	movie, err := f.svc.Movie(ctx, "tok", 603)
	require.NoError(t, err)
	assert.Equal(t, "The Matrix", movie.Title)

	_, err = f.svc.Movie(ctx, "tok", 9)
	assert.ErrorIs(t, err, pkgerrors.ErrMovieNotFound)

	_, err = f.svc.Movie(ctx, "tok", 0)
	assert.ErrorIs(t, err, pkgerrors.ErrInvalidInput)
}

func TestMovieService_Interact(t *testing.T) {
	createdAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("feedback clears cache and publishes", func(t *testing.T) {
		f := newMovieFixture(t)
		f.svc.now = func() time.Time { return createdAt }
		ctx := context.Background()
		f.cache.Store(ctx, cache.MoviesKey("42", 1), movies(3))
		f.cache.Store(ctx, cache.RecommendationsKey("42"), movies(2))

		f.backend.EXPECT().SendFeedback(gomock.Any(), "tok", backend.Feedback{
			UserID: "42", MovieID: 603, Interaction: "rate", Rate: 4,
		}).Return(nil)

		var sent kafka.InteractionEvent
		f.producer.EXPECT().Send(gomock.Any(), "interactions", "42", gomock.Any()).
			DoAndReturn(func(_ context.Context, _, _ string, value []byte) error {
				return json.Unmarshal(value, &sent)
			})

		err := f.svc.Interact(ctx, "42", "tok", &models.Interaction{MovieID: 603, Type: models.InteractionRate, Rating: 4})
		require.NoError(t, err)
		f.svc.Close()

		assert.Equal(t, kafka.InteractionEvent{
			UserID: "42", MovieID: 603, Type: "rate", Rating: 4, CreatedAt: "2024-05-01T12:00:00Z",
		}, sent)
		_, ok := f.cache.Get(ctx, cache.MoviesKey("42", 1))
		assert.False(t, ok)
		_, ok = f.cache.Get(ctx, cache.RecommendationsKey("42"))
		assert.False(t, ok)
	})

	t.Run("publish is retried", func(t *testing.T) {
		f := newMovieFixture(t)
		ctx := context.Background()

		f.backend.EXPECT().SendFeedback(gomock.Any(), "tok", gomock.Any()).Return(nil)
		gomock.InOrder(
			f.producer.EXPECT().Send(gomock.Any(), "interactions", "42", gomock.Any()).Return(errors.New("broker down")),
			f.producer.EXPECT().Send(gomock.Any(), "interactions", "42", gomock.Any()).Return(nil),
		)

		err := f.svc.Interact(ctx, "42", "tok", &models.Interaction{MovieID: 1, Type: models.InteractionLike})
		require.NoError(t, err)
		f.svc.Close()
	})

	t.Run("backend failure keeps cache", func(t *testing.T) {
		f := newMovieFixture(t)
		ctx := context.Background()
		f.cache.Store(ctx, cache.MoviesKey("42", 1), movies(3))

		f.backend.EXPECT().SendFeedback(gomock.Any(), "tok", gomock.Any()).Return(pkgerrors.ErrBackendUnavailable)

		err := f.svc.Interact(ctx, "42", "tok", &models.Interaction{MovieID: 1, Type: models.InteractionDislike})
		assert.ErrorIs(t, err, pkgerrors.ErrBackendUnavailable)
		f.svc.Close()
		_, ok := f.cache.Get(ctx, cache.MoviesKey("42", 1))
		assert.True(t, ok)
	})

	t.Run("invalid interactions", func(t *testing.T) {
		f := newMovieFixture(t)
		ctx := context.Background()

		assert.ErrorIs(t, f.svc.Interact(ctx, "42", "tok", nil), pkgerrors.ErrNilInteraction)
		assert.ErrorIs(t, f.svc.Interact(ctx, "42", "tok", &models.Interaction{MovieID: 1, Type: models.InteractionRate, Rating: 9}), pkgerrors.ErrInvalidInteraction)
		assert.ErrorIs(t, f.svc.Interact(ctx, "42", "tok", &models.Interaction{MovieID: 1, Type: "meh"}), pkgerrors.ErrInvalidInteraction)
	})
}

func TestMovieService_History(t *testing.T) {
	f := newMovieFixture(t)
	ctx := context.Background()
	history := []models.Interaction{{ID: 1, UserID: "42", MovieID: 603, Type: models.InteractionLike}}

	f.repo.EXPECT().ListByUser(gomock.Any(), "42", uint64(20), uint64(0)).Return(history, nil)
	f.repo.EXPECT().ListByUser(gomock.Any(), "7", uint64(20), uint64(0)).Return(nil, errors.New("db down"))

	got, err := f.svc.History(ctx, "42", 20, 0)
	require.NoError(t, err)
	assert.Equal(t, history, got)

	_, err = f.svc.History(ctx, "7", 20, 0)
	assert.Error(t, err)

	noRepo := NewMovieService(f.backend, f.cache, nil, nil, "interactions")
	_, err = noRepo.History(ctx, "42", 20, 0)
	assert.ErrorIs(t, err, pkgerrors.ErrBackendUnavailable)
}
