package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/promokit/promo-redeem/internal/model"
)

// ImportJobPoolInterface defines the database operations needed by ImportJobRepository.
type ImportJobPoolInterface interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ImportJobRepository provides data access for CSV import job records.
// The durable row is authoritative after a process restart; the in-memory
// cache only serves sub-second progress polling.
type ImportJobRepository struct {
	pool ImportJobPoolInterface
}

// NewImportJobRepository creates a new ImportJobRepository with the given pool.
func NewImportJobRepository(pool *pgxpool.Pool) *ImportJobRepository {
	return &ImportJobRepository{pool: pool}
}

// NewImportJobRepositoryWithPool creates a new ImportJobRepository with a
// custom pool interface. This is primarily used for testing.
func NewImportJobRepositoryWithPool(pool ImportJobPoolInterface) *ImportJobRepository {
	return &ImportJobRepository{pool: pool}
}

// Insert persists a freshly created job row.
func (r *ImportJobRepository) Insert(ctx context.Context, job *model.ImportJob) error {
	query := `INSERT INTO import_jobs
		(id, status, total_lines, processed_lines, successful_lines, failed_lines, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.pool.Exec(ctx, query,
		job.ID, job.Status, job.TotalLines,
		job.ProcessedLines, job.SuccessfulLines, job.FailedLines, job.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert import job %s: %w", job.ID, err)
	}
	return nil
}

// UpdateProgress writes the running counters after a chunk completes.
func (r *ImportJobRepository) UpdateProgress(ctx context.Context, id string, processed, successful, failed int) error {
	query := `UPDATE import_jobs
		SET processed_lines = $2, successful_lines = $3, failed_lines = $4
		WHERE id = $1`

	_, err := r.pool.Exec(ctx, query, id, processed, successful, failed)
	if err != nil {
		return fmt.Errorf("update import job %s progress: %w", id, err)
	}
	return nil
}

// MarkCompleted transitions the job to its terminal completed state.
func (r *ImportJobRepository) MarkCompleted(ctx context.Context, id string, processed, successful, failed int, at time.Time) error {
	query := `UPDATE import_jobs
		SET status = $2, processed_lines = $3, successful_lines = $4, failed_lines = $5, completed_at = $6
		WHERE id = $1`

	_, err := r.pool.Exec(ctx, query, id, model.JobStatusCompleted, processed, successful, failed, at)
	if err != nil {
		return fmt.Errorf("mark import job %s completed: %w", id, err)
	}
	return nil
}

// MarkFailed transitions the job to its terminal failed state with the error text.
func (r *ImportJobRepository) MarkFailed(ctx context.Context, id, errorMessage string, at time.Time) error {
	query := `UPDATE import_jobs
		SET status = $2, error_message = $3, completed_at = $4
		WHERE id = $1`

	_, err := r.pool.Exec(ctx, query, id, model.JobStatusFailed, errorMessage, at)
	if err != nil {
		return fmt.Errorf("mark import job %s failed: %w", id, err)
	}
	return nil
}

// GetByID retrieves a job row.
// Returns nil, nil if the job does not exist (service layer handles this).
func (r *ImportJobRepository) GetByID(ctx context.Context, id string) (*model.ImportJob, error) {
	query := `SELECT id, status, total_lines, processed_lines, successful_lines, failed_lines,
		error_message, created_at, completed_at
		FROM import_jobs WHERE id = $1`

	var job model.ImportJob
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&job.ID,
		&job.Status,
		&job.TotalLines,
		&job.ProcessedLines,
		&job.SuccessfulLines,
		&job.FailedLines,
		&job.ErrorMessage,
		&job.CreatedAt,
		&job.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get import job %s: %w", id, err)
	}
	return &job, nil
}
