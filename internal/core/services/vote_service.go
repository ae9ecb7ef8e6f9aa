package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/predix/api/internal/core/domain"
	"github.com/predix/api/internal/core/ports"
)

const (
	applyVoteAttempts   = 3
	applyVoteRetryDelay = 50 * time.Millisecond
)

type voteService struct {
	ledger ports.PredictionLedger
	hub    ports.Broadcaster
	logger *slog.Logger
}

func NewVoteService(ledger ports.PredictionLedger, hub ports.Broadcaster, logger *slog.Logger) ports.VoteService {
	return &voteService{
		ledger: ledger,
		hub:    hub,
		logger: logger,
	}
}

func (s *voteService) CastVote(ctx context.Context, input ports.CastVoteInput) (*ports.CastVoteResult, error) {
	if input.PredictionID == "" || input.Option == "" {
		return nil, domain.ErrInvalidRequest
	}

	token := input.UserToken
	if token == "" {
		token = uuid.NewString()
	}

	var prediction *domain.Prediction
	var err error
	for attempt := 1; attempt <= applyVoteAttempts; attempt++ {
		prediction, err = s.ledger.ApplyVote(ctx, input.PredictionID, token, input.Option)
		if err == nil || isTerminal(err) {
			break
		}

		// Retrying is safe: ApplyVote either fully applied or left the
		// store untouched, and a retried duplicate lands on AlreadyVoted.
		s.logger.Warn("vote apply failed, retrying",
			"prediction_id", input.PredictionID,
			"attempt", attempt,
			"error", err)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(applyVoteRetryDelay):
		}
	}
	if err != nil {
		if isTerminal(err) {
			return nil, err
		}
		s.logger.Error("vote apply exhausted retries",
			"prediction_id", input.PredictionID,
			"error", err)
		return nil, domain.ErrTransient
	}

	// The critical section is already released; a slow hub can no longer
	// delay other voters on this prediction.
	s.hub.PublishExcept(domain.Event{
		Type:       domain.EventPredictionUpdated,
		Prediction: prediction,
	}, input.ClientID)

	return &ports.CastVoteResult{
		Prediction: prediction,
		UserVote:   input.Option,
		UserToken:  token,
	}, nil
}

func (s *voteService) GetVote(ctx context.Context, predictionID, userToken string) (*domain.VoteRecord, error) {
	if predictionID == "" || userToken == "" {
		return nil, domain.ErrInvalidRequest
	}
	return s.ledger.GetVote(ctx, predictionID, userToken)
}

// isTerminal reports whether err is a definitive rejection that must be
// surfaced to the caller immediately, never retried.
func isTerminal(err error) bool {
	return errors.Is(err, domain.ErrAlreadyVoted) ||
		errors.Is(err, domain.ErrPredictionNotFound) ||
		errors.Is(err, domain.ErrPredictionClosed) ||
		errors.Is(err, domain.ErrPredictionExpired) ||
		errors.Is(err, domain.ErrInvalidOption) ||
		errors.Is(err, domain.ErrInvalidRequest)
}
