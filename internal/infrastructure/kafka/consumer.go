package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/honeynil/cinematch/internal/models"
	"github.com/honeynil/cinematch/internal/repository"
	"github.com/segmentio/kafka-go"
)

// InteractionEvent is the payload published for every swipe or rating.
type InteractionEvent struct {
	UserID    string `json:"user_id"`
	MovieID   int64  `json:"movie_id"`
	Type      string `json:"type"`
	Rating    int    `json:"rating,omitempty"`
	CreatedAt string `json:"created_at"`
}

// Consumer copies interaction events into the history repository.
type Consumer struct {
	reader          *kafka.Reader
	interactionRepo repository.InteractionRepository
}

func NewConsumer(brokers []string, topic, groupID string, interactionRepo repository.InteractionRepository) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    topic,
			GroupID:  groupID,
			MinBytes: 10e3,
			MaxBytes: 10e6,
		}),
		interactionRepo: interactionRepo,
	}
}

// Consume blocks until ctx is cancelled.
func (c *Consumer) Consume(ctx context.Context) {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				slog.Info("Kafka consumer stopped", "topic", c.reader.Config().Topic)
				return
			}
			slog.Error("failed to read Kafka message", "topic", c.reader.Config().Topic, "error", err)
			continue
		}

		slog.Info("Kafka message received", "topic", msg.Topic, "key", string(msg.Key))
		if err := c.handle(ctx, msg.Value); err != nil {
			// TODO: Send to dead-letter queue
			slog.Error("failed to process interaction event", "key", string(msg.Key), "error", err)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, value []byte) error {
	var event InteractionEvent
	if err := json.Unmarshal(value, &event); err != nil {
		return fmt.Errorf("unmarshal interaction event: %w", err)
	}

	createdAt, err := time.Parse(time.RFC3339, event.CreatedAt)
	if err != nil {
		return fmt.Errorf("invalid created_at %q: %w", event.CreatedAt, err)
	}

	interaction := &models.Interaction{
		UserID:    event.UserID,
		MovieID:   event.MovieID,
		Type:      models.InteractionType(event.Type),
		Rating:    event.Rating,
		CreatedAt: createdAt,
	}
	if !interaction.Valid() {
		return errors.New("invalid interaction event")
	}

	id, err := c.interactionRepo.Create(ctx, interaction)
	if err != nil {
		return fmt.Errorf("store interaction: %w", err)
	}

	slog.Info("interaction recorded", "user_id", interaction.UserID, "movie_id", interaction.MovieID, "type", interaction.Type, "interaction_id", id)
	return nil
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
