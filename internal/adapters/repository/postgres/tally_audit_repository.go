package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/predix/api/internal/core/ports"
)

type tallyAuditRepository struct {
	db *sql.DB
}

func NewTallyAuditRepository(db *sql.DB) ports.TallyAuditRepository {
	return &tallyAuditRepository{
		db: db,
	}
}

func (r *tallyAuditRepository) CountVotes(ctx context.Context, predictionID string) (map[string]int64, error) {
	query := `
		SELECT option_key, COUNT(*)
		FROM vote_records
		WHERE prediction_id = $1
		GROUP BY option_key
	`
	rows, err := r.db.QueryContext(ctx, query, predictionID)
	if err != nil {
		return nil, fmt.Errorf("failed to count vote records: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var key string
		var count int64
		if err := rows.Scan(&key, &count); err != nil {
			return nil, fmt.Errorf("failed to scan vote count: %w", err)
		}
		counts[key] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating vote counts: %w", err)
	}
	return counts, nil
}
