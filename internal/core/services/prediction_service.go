package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/predix/api/internal/core/domain"
	"github.com/predix/api/internal/core/ports"
)

type predictionService struct {
	ledger ports.PredictionLedger
	hub    ports.Broadcaster
}

func NewPredictionService(ledger ports.PredictionLedger, hub ports.Broadcaster) ports.PredictionService {
	return &predictionService{
		ledger: ledger,
		hub:    hub,
	}
}

func (s *predictionService) Create(ctx context.Context, input ports.CreatePredictionInput) (*domain.Prediction, error) {
	if input.Title == "" {
		return nil, fmt.Errorf("%w: title is required", domain.ErrInvalidRequest)
	}
	if input.Category == "" {
		return nil, fmt.Errorf("%w: category is required", domain.ErrInvalidRequest)
	}
	if input.ExpiresAt.IsZero() {
		return nil, fmt.Errorf("%w: expiresAt is required", domain.ErrInvalidRequest)
	}
	if !input.ExpiresAt.After(time.Now()) {
		return nil, fmt.Errorf("%w: expiresAt must be in the future", domain.ErrInvalidRequest)
	}

	options := input.Options
	if len(options) == 0 {
		options = domain.DefaultOptions
	}
	if len(options) < 2 {
		return nil, fmt.Errorf("%w: at least two options are required", domain.ErrInvalidRequest)
	}

	votes := make(map[string]int64, len(options))
	for _, opt := range options {
		if opt == "" {
			return nil, fmt.Errorf("%w: option keys must be non-empty", domain.ErrInvalidRequest)
		}
		if _, dup := votes[opt]; dup {
			return nil, fmt.Errorf("%w: duplicate option %q", domain.ErrInvalidRequest, opt)
		}
		votes[opt] = 0
	}

	prediction := &domain.Prediction{
		ID:          uuid.NewString(),
		Title:       input.Title,
		Description: input.Description,
		Category:    input.Category,
		Tags:        input.Tags,
		CreatedBy:   input.CreatedBy,
		Options:     append([]string(nil), options...),
		Votes:       votes,
		TotalVotes:  0,
		Status:      domain.StatusActive,
		Version:     0,
		CreatedAt:   time.Now(),
		ExpiresAt:   input.ExpiresAt,
	}

	if err := s.ledger.Save(ctx, prediction); err != nil {
		return nil, err
	}

	s.hub.Publish(domain.Event{
		Type:       domain.EventPredictionAdded,
		Prediction: prediction,
	})

	return prediction, nil
}

func (s *predictionService) Get(ctx context.Context, id string) (*domain.Prediction, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: prediction id is required", domain.ErrInvalidRequest)
	}
	return s.ledger.GetByID(ctx, id)
}

func (s *predictionService) List(ctx context.Context, filter ports.ListFilter) ([]*domain.Prediction, error) {
	return s.ledger.List(ctx, filter)
}
