package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/garyjia/approval-engine/internal/port"
	"go.uber.org/zap"
)

// HistoryRepository implements port.HistoryRepository: the submission log
// backing the duplicate and unusual-activity heuristics.
type HistoryRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewHistoryRepository creates a new submission history repository
func NewHistoryRepository(db *sql.DB, logger *zap.Logger) port.HistoryRepository {
	return &HistoryRepository{db: db, logger: logger}
}

// RecordSubmission appends one submission event
func (r *HistoryRepository) RecordSubmission(ctx context.Context, submitter, transactionType, variant string, at time.Time) error {
	query := `
		INSERT INTO submission_history (submitter, transaction_type, variant, submitted_at)
		VALUES (?, ?, ?, ?)
	`
	_, err := executorFrom(ctx, r.db).ExecContext(ctx, query, submitter, transactionType, variant, at)
	if err != nil {
		r.logger.Error("Failed to record submission",
			zap.String("submitter", submitter),
			zap.String("transaction_type", transactionType),
			zap.Error(err))
		return fmt.Errorf("failed to record submission: %w", err)
	}
	return nil
}

// CountSince returns the submitter's submission count for the type after the
// given instant
func (r *HistoryRepository) CountSince(ctx context.Context, submitter, transactionType string, since time.Time) (int, error) {
	var count int
	err := executorFrom(ctx, r.db).QueryRowContext(ctx, `
		SELECT COUNT(*) FROM submission_history
		WHERE submitter = ? AND transaction_type = ? AND submitted_at > ?`,
		submitter, transactionType, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count submissions: %w", err)
	}
	return count, nil
}

// Verify interface compliance
var _ port.HistoryRepository = (*HistoryRepository)(nil)
