package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/honeynil/cinematch/internal/infrastructure/observability"
	"github.com/honeynil/cinematch/internal/models"
	pkgerrors "github.com/honeynil/cinematch/pkg/errors"
)

const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 200
)

type PostgresInteractionRepository struct {
	db *sql.DB
	qb sq.StatementBuilderType
}

func NewPostgresInteractionRepository(db *sql.DB) *PostgresInteractionRepository {
	return &PostgresInteractionRepository{
		db: db,
		qb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func observe(method string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	observability.RepositoryCalls.WithLabelValues(method, status).Inc()
	observability.RepositoryDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
}

func (r *PostgresInteractionRepository) Create(ctx context.Context, interaction *models.Interaction) (id int64, err error) {
	start := time.Now()
	defer func() { observe("InteractionCreate", start, err) }()

	if interaction == nil {
		return 0, pkgerrors.ErrNilInteraction
	}
	if !interaction.Valid() {
		return 0, fmt.Errorf("%w: user %q movie %d type %q", pkgerrors.ErrInvalidInteraction, interaction.UserID, interaction.MovieID, interaction.Type)
	}

	query, args, err := r.qb.
		Insert("interactions").
		Columns("user_id", "movie_id", "type", "rating", "created_at").
		Values(interaction.UserID, interaction.MovieID, string(interaction.Type), interaction.Rating, interaction.CreatedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}

	if err = r.db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to create interaction: %w", err)
	}
	interaction.ID = id
	return id, nil
}

// ListByUser returns the newest interactions first. A zero limit means
// DefaultHistoryLimit; larger limits are capped at MaxHistoryLimit.
func (r *PostgresInteractionRepository) ListByUser(ctx context.Context, userID string, limit, offset uint64) (result []models.Interaction, err error) {
	start := time.Now()
	defer func() { observe("InteractionListByUser", start, err) }()

	if userID == "" {
		return nil, fmt.Errorf("%w: empty user id", pkgerrors.ErrInvalidInput)
	}
	if limit == 0 {
		limit = DefaultHistoryLimit
	}
	limit = min(limit, MaxHistoryLimit)

	query, args, err := r.qb.
		Select("id", "user_id", "movie_id", "type", "rating", "created_at").
		From("interactions").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("created_at DESC", "id DESC").
		Limit(limit).
		Offset(offset).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list interactions: %w", err)
	}
	defer rows.Close()

	result = []models.Interaction{}
	for rows.Next() {
		var (
			i   models.Interaction
			typ string
		)
		if err = rows.Scan(&i.ID, &i.UserID, &i.MovieID, &typ, &i.Rating, &i.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan interaction: %w", err)
		}
		i.Type = models.InteractionType(typ)
		result = append(result, i)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate interactions: %w", err)
	}
	return result, nil
}
