package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/predix/api/internal/core/domain"
	"github.com/predix/api/internal/core/ports"
)

// TotalDriftOption marks a drift entry that compares the cached
// totalVotes against the full vote-record count rather than one option.
const TotalDriftOption = "_total"

type auditService struct {
	ledger ports.PredictionLedger
	audit  ports.TallyAuditRepository
}

func NewAuditService(ledger ports.PredictionLedger, audit ports.TallyAuditRepository) ports.AuditService {
	return &auditService{
		ledger: ledger,
		audit:  audit,
	}
}

// AuditAll recomputes every prediction's tally from its vote records and
// reports entries where the cached counters disagree. Read-only.
func (s *auditService) AuditAll(ctx context.Context) ([]ports.TallyDrift, error) {
	predictions, err := s.ledger.List(ctx, ports.ListFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch predictions: %w", err)
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		drifts  []ports.TallyDrift
		errChan = make(chan error, len(predictions))
	)

	for _, prediction := range predictions {
		wg.Add(1)
		go func(p *domain.Prediction) {
			defer wg.Done()

			counts, err := s.audit.CountVotes(ctx, p.ID)
			if err != nil {
				errChan <- fmt.Errorf("failed to count votes for %s: %w", p.ID, err)
				return
			}

			var found []ports.TallyDrift
			var recordedTotal int64
			for _, opt := range p.Options {
				recorded := counts[opt]
				recordedTotal += recorded
				if stored := p.Votes[opt]; stored != recorded {
					found = append(found, ports.TallyDrift{
						PredictionID: p.ID,
						Option:       opt,
						Stored:       stored,
						Recorded:     recorded,
					})
				}
			}
			if p.TotalVotes != recordedTotal {
				found = append(found, ports.TallyDrift{
					PredictionID: p.ID,
					Option:       TotalDriftOption,
					Stored:       p.TotalVotes,
					Recorded:     recordedTotal,
				})
			}

			if len(found) > 0 {
				mu.Lock()
				drifts = append(drifts, found...)
				mu.Unlock()
			}
		}(prediction)
	}

	wg.Wait()
	close(errChan)

	for err := range errChan {
		if err != nil {
			return nil, err
		}
	}

	return drifts, nil
}
