package ports

import (
	"context"

	"github.com/predix/api/internal/core/domain"
)

type CastVoteInput struct {
	PredictionID string
	Option       string
	// UserToken is the client-generated opaque identity key. When empty
	// the service mints one and returns it; the one-vote invariant then
	// only spans repeat visits if the client persists the returned token.
	UserToken string
	// ClientID optionally names the caller's realtime connection so the
	// broadcast fan-out can skip echoing the update back to it.
	ClientID string
}

// CastVoteResult carries the authoritative post-vote prediction and the
// token the vote was recorded under.
type CastVoteResult struct {
	Prediction *domain.Prediction
	UserVote   string
	UserToken  string
}

type VoteService interface {
	CastVote(ctx context.Context, input CastVoteInput) (*CastVoteResult, error)
	// GetVote returns the recorded vote for (prediction, token), or
	// domain.ErrVoteNotFound. Lets a rejected-as-duplicate client
	// resynchronize which option it holds.
	GetVote(ctx context.Context, predictionID, userToken string) (*domain.VoteRecord, error)
}
