package domain

import (
	"time"
)

// VoteRecord is the durable fact that a user token voted a given option
// on a given prediction. The (PredictionID, UserToken) pair is unique;
// records are immutable once written.
type VoteRecord struct {
	PredictionID string    `json:"prediction_id"`
	UserToken    string    `json:"user_token"`
	Option       string    `json:"option"`
	CreatedAt    time.Time `json:"created_at"`
}
