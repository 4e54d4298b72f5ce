//go:generate mockgen -source interaction_repository.go -destination mocks/interaction_repository.go -package mocks

package repository

import (
	"context"

	"github.com/honeynil/cinematch/internal/models"
)

type InteractionRepository interface {
	Create(ctx context.Context, interaction *models.Interaction) (int64, error)
	ListByUser(ctx context.Context, userID string, limit, offset uint64) ([]models.Interaction, error)
}
