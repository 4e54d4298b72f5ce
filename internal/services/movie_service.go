package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/honeynil/cinematch/internal/cache"
	"github.com/honeynil/cinematch/internal/infrastructure/backend"
	"github.com/honeynil/cinematch/internal/infrastructure/kafka"
	"github.com/honeynil/cinematch/internal/infrastructure/observability"
	"github.com/honeynil/cinematch/internal/models"
	"github.com/honeynil/cinematch/internal/repository"
	pkgerrors "github.com/honeynil/cinematch/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const publishTimeout = 5 * time.Second

type MovieService struct {
	backend         backend.Client
	cache           cache.ResponseCache
	producer        kafka.KafkaProducer
	interactionRepo repository.InteractionRepository
	topic           string

	now        func() time.Time
	newBackOff func() backoff.BackOff
	pending    sync.WaitGroup
}

// NewMovieService wires the movie flows. producer and interactionRepo may be
// nil, in which case events are not published and History fails.
func NewMovieService(
	backendClient backend.Client,
	responseCache cache.ResponseCache,
	producer kafka.KafkaProducer,
	interactionRepo repository.InteractionRepository,
	topic string,
) *MovieService {
	return &MovieService{
		backend:         backendClient,
		cache:           responseCache,
		producer:        producer,
		interactionRepo: interactionRepo,
		topic:           topic,
		now:             time.Now,
		newBackOff: func() backoff.BackOff {
			eb := backoff.NewExponentialBackOff()
			eb.InitialInterval = 500 * time.Millisecond
			eb.MaxElapsedTime = 30 * time.Second
			return eb
		},
	}
}

// Movies returns a page of the movie list, served from the cache while fresh.
func (s *MovieService) Movies(ctx context.Context, userID, token string, page int) ([]models.Movie, error) {
	tracer := otel.Tracer("movie-service")
	ctx, span := tracer.Start(ctx, "Movies")
	defer span.End()

	page = max(page, 1)
	span.SetAttributes(attribute.String("user_id", userID), attribute.Int("page", page))

	return s.cached(ctx, userID, cache.MoviesKey(userID, page), func() ([]models.Movie, error) {
		return s.backend.ListMovies(ctx, token, page)
	})
}

func (s *MovieService) Recommendations(ctx context.Context, userID, token string) ([]models.Movie, error) {
	tracer := otel.Tracer("movie-service")
	ctx, span := tracer.Start(ctx, "Recommendations")
	defer span.End()

	if userID == "" {
		span.SetStatus(codes.Error, "empty user id")
		return nil, pkgerrors.ErrUnauthorized
	}

	return s.cached(ctx, userID, cache.RecommendationsKey(userID), func() ([]models.Movie, error) {
		return s.backend.Recommendations(ctx, token, userID)
	})
}

func (s *MovieService) cached(ctx context.Context, userID, key string, fetch func() ([]models.Movie, error)) ([]models.Movie, error) {
	if userID != "" {
		if movies, ok := s.cache.Get(ctx, key); ok {
			slog.Debug("serving movies from cache", "key", key, "count", len(movies))
			return movies, nil
		}
	}

	movies, err := fetch()
	if err != nil {
		observability.WithContext(ctx).Error("failed to fetch movies", "key", key, "error", err)
		return nil, err
	}

	if userID != "" {
		s.cache.Store(ctx, key, movies)
	}
	return movies, nil
}

func (s *MovieService) Search(ctx context.Context, token, query string, page int) ([]models.Movie, error) {
	tracer := otel.Tracer("movie-service")
	ctx, span := tracer.Start(ctx, "Search")
	defer span.End()

	query = strings.TrimSpace(query)
	if query == "" {
		span.SetStatus(codes.Error, "empty query")
		return nil, fmt.Errorf("%w: empty search query", pkgerrors.ErrInvalidInput)
	}

	movies, err := s.backend.SearchMovies(ctx, token, query, max(page, 1))
	if err != nil {
		span.RecordError(err)
		slog.Error("failed to search movies", "query", query, "error", err)
		return nil, err
	}
	return movies, nil
}

func (s *MovieService) Movie(ctx context.Context, token string, id int64) (*models.Movie, error) {
	tracer := otel.Tracer("movie-service")
	ctx, span := tracer.Start(ctx, "Movie")
	defer span.End()

	if id <= 0 {
		span.SetStatus(codes.Error, "invalid movie id")
		return nil, fmt.Errorf("%w: movie id %d", pkgerrors.ErrInvalidInput, id)
	}

	movie, err := s.backend.GetMovie(ctx, token, id)
	if err != nil {
		span.RecordError(err)
		slog.Error("failed to get movie", "movie_id", id, "error", err)
		return nil, err
	}
	return movie, nil
}

// Interact records a swipe or a rating. The backend is told first; only then
// are the user's cached lists dropped and the event published.
func (s *MovieService) Interact(ctx context.Context, userID, token string, interaction *models.Interaction) error {
	tracer := otel.Tracer("movie-service")
	ctx, span := tracer.Start(ctx, "Interact")
	defer span.End()

	if interaction == nil {
		span.SetStatus(codes.Error, "nil interaction")
		return pkgerrors.ErrNilInteraction
	}
	interaction.UserID = userID
	if interaction.CreatedAt.IsZero() {
		interaction.CreatedAt = s.now().UTC()
	}
	if !interaction.Valid() {
		span.SetStatus(codes.Error, "invalid interaction")
		return fmt.Errorf("%w: type %q rating %d", pkgerrors.ErrInvalidInteraction, interaction.Type, interaction.Rating)
	}

	err := s.backend.SendFeedback(ctx, token, backend.Feedback{
		UserID:      userID,
		MovieID:     interaction.MovieID,
		Interaction: string(interaction.Type),
		Rate:        interaction.Rating,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "feedback failed")
		observability.WithContext(ctx).Error("failed to send feedback", "user_id", userID, "movie_id", interaction.MovieID, "error", err)
		return err
	}

	s.cache.Clear(ctx, cache.MoviesKey(userID, 1))
	s.cache.Clear(ctx, cache.RecommendationsKey(userID))

	s.publish(interaction)

	slog.Info("interaction recorded", "user_id", userID, "movie_id", interaction.MovieID, "type", interaction.Type)
	return nil
}

func (s *MovieService) publish(interaction *models.Interaction) {
	if s.producer == nil {
		return
	}

	event := kafka.InteractionEvent{
		UserID:    interaction.UserID,
		MovieID:   interaction.MovieID,
		Type:      string(interaction.Type),
		Rating:    interaction.Rating,
		CreatedAt: interaction.CreatedAt.UTC().Format(time.RFC3339),
	}
	eventBytes, err := json.Marshal(event)
	if err != nil {
		slog.Error("failed to marshal interaction event", "user_id", event.UserID, "error", err)
		return
	}

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		err := backoff.Retry(func() error {
			ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
			defer cancel()
			return s.producer.Send(ctx, s.topic, event.UserID, eventBytes)
		}, s.newBackOff())
		if err != nil {
			slog.Error("failed to send interaction event after retries",
				"user_id", event.UserID,
				"movie_id", event.MovieID,
				"error", err)
			return
		}
		slog.Info("interaction event sent", "user_id", event.UserID, "movie_id", event.MovieID)
	}()
}

// Close waits for in-flight event publishes.
func (s *MovieService) Close() {
	s.pending.Wait()
}

func (s *MovieService) History(ctx context.Context, userID string, limit, offset uint64) ([]models.Interaction, error) {
	tracer := otel.Tracer("movie-service")
	ctx, span := tracer.Start(ctx, "History")
	defer span.End()

	if s.interactionRepo == nil {
		return nil, fmt.Errorf("%w: interaction history is not configured", pkgerrors.ErrBackendUnavailable)
	}

	history, err := s.interactionRepo.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "history lookup failed")
		observability.WithContext(ctx).Error("failed to get interaction history", "user_id", userID, "error", err)
		return nil, err
	}
	return history, nil
}
