package kafka

import "time"

// FavoriteToggledEvent is emitted whenever a toggle changes a user's favorites
type FavoriteToggledEvent struct {
	EventID    string    `json:"event_id"`
	EventType  string    `json:"event_type"`
	UserKey    string    `json:"user_key"`
	FundCode   string    `json:"fund_code"`
	IsFavorite bool      `json:"is_favorite"`
	Source     string    `json:"source"`
	Outcome    string    `json:"outcome"`
	Timestamp  time.Time `json:"timestamp"`
}

// Event types
const (
	EventTypeFavoriteToggled = "fund.favorite_toggled"
)

// Kafka topics
const (
	TopicFavoriteToggled = "fund-favorite-toggled"
)
