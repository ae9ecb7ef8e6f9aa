package ports

import (
	"context"
	"time"

	"github.com/predix/api/internal/core/domain"
)

// PredictionLedger is the durable store of predictions and vote records.
//
// ApplyVote is the single mutation entry point for votes and must be
// atomic per prediction id: the vote-record existence check, the window
// and option checks, the tally increment and the record insert either
// all happen or none do, and two concurrent calls for the same
// prediction never interleave their read-modify-write. Outcomes are
// reported with the domain sentinel errors (ErrAlreadyVoted,
// ErrPredictionNotFound, ErrPredictionClosed, ErrPredictionExpired,
// ErrInvalidOption); any other non-nil error is an infrastructure
// failure the caller may retry.
type PredictionLedger interface {
	Save(ctx context.Context, prediction *domain.Prediction) error
	GetByID(ctx context.Context, id string) (*domain.Prediction, error)
	List(ctx context.Context, filter ListFilter) ([]*domain.Prediction, error)
	ApplyVote(ctx context.Context, predictionID, userToken, option string) (*domain.Prediction, error)
	GetVote(ctx context.Context, predictionID, userToken string) (*domain.VoteRecord, error)
}

type ListFilter struct {
	Category string
	Status   string
	Search   string
	Limit    int
}

type CreatePredictionInput struct {
	Title       string
	Description string
	Category    string
	Tags        []string
	CreatedBy   string
	Options     []string
	ExpiresAt   time.Time
}

type PredictionService interface {
	Create(ctx context.Context, input CreatePredictionInput) (*domain.Prediction, error)
	Get(ctx context.Context, id string) (*domain.Prediction, error)
	List(ctx context.Context, filter ListFilter) ([]*domain.Prediction, error)
}
