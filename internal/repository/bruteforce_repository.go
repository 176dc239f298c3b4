package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/promokit/promo-redeem/internal/model"
)

// BruteForcePoolInterface defines the database operations needed by BruteForceRepository.
type BruteForcePoolInterface interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// BruteForceRepository provides data access for per-IP failed-attempt records.
// IPs are opaque string keys; no normalization or CIDR grouping.
type BruteForceRepository struct {
	pool BruteForcePoolInterface
}

// NewBruteForceRepository creates a new BruteForceRepository with the given pool.
func NewBruteForceRepository(pool *pgxpool.Pool) *BruteForceRepository {
	return &BruteForceRepository{pool: pool}
}

// NewBruteForceRepositoryWithPool creates a new BruteForceRepository with a
// custom pool interface. This is primarily used for testing.
func NewBruteForceRepositoryWithPool(pool BruteForcePoolInterface) *BruteForceRepository {
	return &BruteForceRepository{pool: pool}
}

// Get retrieves the attempt record for an IP.
// Returns nil, nil if no record exists (service layer handles this).
func (r *BruteForceRepository) Get(ctx context.Context, ip string) (*model.BruteForceRecord, error) {
	query := `SELECT ip, attempts, last_attempt_at, blocked_until
		FROM bruteforce_records WHERE ip = $1`

	var rec model.BruteForceRecord
	err := r.pool.QueryRow(ctx, query, ip).Scan(
		&rec.IP,
		&rec.Attempts,
		&rec.LastAttemptAt,
		&rec.BlockedUntil,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get bruteforce record for %s: %w", ip, err)
	}
	return &rec, nil
}

// Upsert writes the full attempt record, keyed by IP.
func (r *BruteForceRepository) Upsert(ctx context.Context, rec *model.BruteForceRecord) error {
	query := `INSERT INTO bruteforce_records (ip, attempts, last_attempt_at, blocked_until)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (ip) DO UPDATE SET
			attempts = EXCLUDED.attempts,
			last_attempt_at = EXCLUDED.last_attempt_at,
			blocked_until = EXCLUDED.blocked_until`

	_, err := r.pool.Exec(ctx, query, rec.IP, rec.Attempts, rec.LastAttemptAt, rec.BlockedUntil)
	if err != nil {
		return fmt.Errorf("upsert bruteforce record for %s: %w", rec.IP, err)
	}
	return nil
}

// Delete removes the attempt record for an IP. No-op if absent.
func (r *BruteForceRepository) Delete(ctx context.Context, ip string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM bruteforce_records WHERE ip = $1`, ip)
	if err != nil {
		return fmt.Errorf("delete bruteforce record for %s: %w", ip, err)
	}
	return nil
}
