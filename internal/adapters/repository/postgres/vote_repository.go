package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/predix/api/internal/core/domain"
)

// ApplyVote records a vote as one indivisible unit: existence check,
// voting-window and option checks, vote-record insert, tally increment
// and version bump all happen inside a single transaction. The row lock
// taken by SELECT ... FOR UPDATE serializes callers per prediction id;
// votes on different predictions proceed in parallel.
func (r *predictionRepository) ApplyVote(ctx context.Context, predictionID, userToken, option string) (*domain.Prediction, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var status string
	var expiresAt time.Time
	err = tx.QueryRowContext(ctx, `SELECT status, expires_at FROM predictions WHERE id = $1 FOR UPDATE`, predictionID).
		Scan(&status, &expiresAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrPredictionNotFound
		}
		return nil, fmt.Errorf("failed to lock prediction: %w", err)
	}

	if status != domain.StatusActive {
		return nil, domain.ErrPredictionClosed
	}
	if time.Now().After(expiresAt) {
		return nil, domain.ErrPredictionExpired
	}

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM prediction_options WHERE prediction_id = $1 AND key = $2`, predictionID, option).
		Scan(&exists)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrInvalidOption
		}
		return nil, fmt.Errorf("failed to check option: %w", err)
	}

	err = tx.QueryRowContext(ctx, `SELECT 1 FROM vote_records WHERE prediction_id = $1 AND user_token = $2`, predictionID, userToken).
		Scan(&exists)
	if err == nil {
		return nil, domain.ErrAlreadyVoted
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to check existing vote: %w", err)
	}

	// The primary key on (prediction_id, user_token) backstops the check
	// above; with the row lock held it should never actually fire.
	_, err = tx.ExecContext(ctx, `
		INSERT INTO vote_records (prediction_id, user_token, option_key)
		VALUES ($1, $2, $3)
	`, predictionID, userToken, option)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrAlreadyVoted
		}
		return nil, fmt.Errorf("failed to insert vote record: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE prediction_options SET votes = votes + 1
		WHERE prediction_id = $1 AND key = $2
	`, predictionID, option)
	if err != nil {
		return nil, fmt.Errorf("failed to increment tally: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE predictions SET total_votes = total_votes + 1, version = version + 1
		WHERE id = $1
	`, predictionID)
	if err != nil {
		return nil, fmt.Errorf("failed to update prediction counters: %w", err)
	}

	prediction, err := r.getPrediction(ctx, tx, predictionID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return prediction, nil
}

func (r *predictionRepository) GetVote(ctx context.Context, predictionID, userToken string) (*domain.VoteRecord, error) {
	query := `
		SELECT prediction_id, user_token, option_key, created_at
		FROM vote_records
		WHERE prediction_id = $1 AND user_token = $2
	`
	var record domain.VoteRecord
	err := r.db.QueryRowContext(ctx, query, predictionID, userToken).
		Scan(&record.PredictionID, &record.UserToken, &record.Option, &record.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrVoteNotFound
		}
		return nil, fmt.Errorf("failed to get vote record: %w", err)
	}
	return &record, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
