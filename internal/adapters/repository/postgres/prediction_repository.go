package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/lib/pq"
	"github.com/predix/api/internal/core/domain"
	"github.com/predix/api/internal/core/ports"
)

type predictionRepository struct {
	db *sql.DB
}

func NewPredictionRepository(db *sql.DB) ports.PredictionLedger {
	return &predictionRepository{
		db: db,
	}
}

// querier lets read helpers run either on the pool or inside the
// transaction that holds a prediction's row lock.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (r *predictionRepository) Save(ctx context.Context, prediction *domain.Prediction) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	queryPrediction := `
		INSERT INTO predictions (id, title, description, category, tags, created_by, status, total_votes, version, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = tx.ExecContext(ctx, queryPrediction,
		prediction.ID, prediction.Title, prediction.Description, prediction.Category,
		pq.Array(prediction.Tags), prediction.CreatedBy, prediction.Status,
		prediction.TotalVotes, prediction.Version, prediction.CreatedAt, prediction.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert prediction: %w", err)
	}

	queryOption := `
		INSERT INTO prediction_options (prediction_id, key, position, votes)
		VALUES ($1, $2, $3, $4)
	`
	stmt, err := tx.PrepareContext(ctx, queryOption)
	if err != nil {
		return fmt.Errorf("failed to prepare option statement: %w", err)
	}
	defer stmt.Close()

	for i, key := range prediction.Options {
		_, err = stmt.ExecContext(ctx, prediction.ID, key, i, prediction.Votes[key])
		if err != nil {
			return fmt.Errorf("failed to insert option: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (r *predictionRepository) GetByID(ctx context.Context, id string) (*domain.Prediction, error) {
	return r.getPrediction(ctx, r.db, id)
}

func (r *predictionRepository) List(ctx context.Context, filter ports.ListFilter) ([]*domain.Prediction, error) {
	query := `
		SELECT id, title, description, category, tags, created_by, status, total_votes, version, created_at, expires_at
		FROM predictions
		WHERE 1=1
	`
	var args []any

	if filter.Category != "" {
		args = append(args, filter.Category)
		query += " AND LOWER(category) = LOWER($" + strconv.Itoa(len(args)) + ")"
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += " AND status = $" + strconv.Itoa(len(args)) + ""
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := strconv.Itoa(len(args))
		query += ` AND (title ILIKE $` + n + ` OR description ILIKE $` + n +
			` OR EXISTS (SELECT 1 FROM unnest(tags) AS tag WHERE tag ILIKE $` + n + `))`
	}

	query += " ORDER BY created_at DESC"

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += " LIMIT $" + strconv.Itoa(len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list predictions: %w", err)
	}
	defer rows.Close()

	return r.scanPredictions(ctx, rows)
}

func (r *predictionRepository) getPrediction(ctx context.Context, q querier, id string) (*domain.Prediction, error) {
	query := `
		SELECT id, title, description, category, tags, created_by, status, total_votes, version, created_at, expires_at
		FROM predictions
		WHERE id = $1
	`

	var prediction domain.Prediction
	err := q.QueryRowContext(ctx, query, id).Scan(
		&prediction.ID, &prediction.Title, &prediction.Description, &prediction.Category,
		pq.Array(&prediction.Tags), &prediction.CreatedBy, &prediction.Status,
		&prediction.TotalVotes, &prediction.Version, &prediction.CreatedAt, &prediction.ExpiresAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrPredictionNotFound
		}
		return nil, fmt.Errorf("failed to get prediction: %w", err)
	}

	if err := r.fetchOptions(ctx, q, &prediction); err != nil {
		return nil, err
	}

	return &prediction, nil
}

func (r *predictionRepository) scanPredictions(ctx context.Context, rows *sql.Rows) ([]*domain.Prediction, error) {
	var predictions []*domain.Prediction
	for rows.Next() {
		var prediction domain.Prediction
		err := rows.Scan(
			&prediction.ID, &prediction.Title, &prediction.Description, &prediction.Category,
			pq.Array(&prediction.Tags), &prediction.CreatedBy, &prediction.Status,
			&prediction.TotalVotes, &prediction.Version, &prediction.CreatedAt, &prediction.ExpiresAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan prediction: %w", err)
		}

		predictions = append(predictions, &prediction)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating predictions: %w", err)
	}

	for _, prediction := range predictions {
		if err := r.fetchOptions(ctx, r.db, prediction); err != nil {
			return nil, err
		}
	}

	return predictions, nil
}

func (r *predictionRepository) fetchOptions(ctx context.Context, q querier, prediction *domain.Prediction) error {
	query := `
		SELECT key, votes
		FROM prediction_options
		WHERE prediction_id = $1
		ORDER BY position
	`
	rows, err := q.QueryContext(ctx, query, prediction.ID)
	if err != nil {
		return fmt.Errorf("failed to get prediction options: %w", err)
	}
	defer rows.Close()

	prediction.Options = nil
	prediction.Votes = make(map[string]int64)
	for rows.Next() {
		var key string
		var votes int64
		if err := rows.Scan(&key, &votes); err != nil {
			return fmt.Errorf("failed to scan option: %w", err)
		}
		prediction.Options = append(prediction.Options, key)
		prediction.Votes[key] = votes
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating options: %w", err)
	}
	return nil
}
