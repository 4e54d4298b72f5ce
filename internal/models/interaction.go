package models

import "time"

type Interaction struct {
	ID        int64           `json:"id"`
	UserID    string          `json:"user_id"`
	MovieID   int64           `json:"movie_id"`
	Type      InteractionType `json:"type"`
	Rating    int             `json:"rating,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

type InteractionType string

const (
	InteractionLike    InteractionType = "like"
	InteractionDislike InteractionType = "dislike"
	InteractionRate    InteractionType = "rate"
)

const (
	MinRating = 1
	MaxRating = 5
)

// Valid checks the type/rating combination: ratings only accompany "rate".
func (i *Interaction) Valid() bool {
	if i.UserID == "" || i.MovieID <= 0 {
		return false
	}
	switch i.Type {
	case InteractionLike, InteractionDislike:
		return i.Rating == 0
	case InteractionRate:
		return i.Rating >= MinRating && i.Rating <= MaxRating
	default:
		return false
	}
}
