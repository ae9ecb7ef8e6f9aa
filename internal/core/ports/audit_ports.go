package ports

import (
	"context"
)

// TallyAuditRepository recomputes vote counts straight from the vote
// records, bypassing the cached tallies.
type TallyAuditRepository interface {
	CountVotes(ctx context.Context, predictionID string) (map[string]int64, error)
}

// TallyDrift reports a stored tally entry that disagrees with the count
// of vote records behind it.
type TallyDrift struct {
	PredictionID string
	Option       string
	Stored       int64
	Recorded     int64
}

type AuditService interface {
	AuditAll(ctx context.Context) ([]TallyDrift, error)
}
