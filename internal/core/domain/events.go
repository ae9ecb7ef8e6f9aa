package domain

// Realtime event types fanned out by the broadcast hub. Payloads always
// carry the full authoritative prediction, never a delta, so a dropped
// message cannot make a subscriber drift.
const (
	EventPredictionAdded   = "prediction-added"
	EventPredictionUpdated = "prediction-updated"
)

type Event struct {
	Type       string      `json:"type"`
	Prediction *Prediction `json:"data"`
}
