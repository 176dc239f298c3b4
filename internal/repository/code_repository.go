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

// CodePoolInterface defines the database operations needed by CodeRepository.
// This allows for easier testing with mocks.
type CodePoolInterface interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// CodeRepository provides data access for redemption codes using pgx.
type CodeRepository struct {
	pool CodePoolInterface
}

// NewCodeRepository creates a new CodeRepository with the given pool.
func NewCodeRepository(pool *pgxpool.Pool) *CodeRepository {
	return &CodeRepository{pool: pool}
}

// NewCodeRepositoryWithPool creates a new CodeRepository with a custom pool interface.
// This is primarily used for testing.
func NewCodeRepositoryWithPool(pool CodePoolInterface) *CodeRepository {
	return &CodeRepository{pool: pool}
}

// GetByCode retrieves a code row by its (already normalized) code string.
// Returns nil, nil if the code is not found (service layer handles this).
func (r *CodeRepository) GetByCode(ctx context.Context, code string) (*model.Code, error) {
	query := `SELECT id, code, link, is_used, used_at, ip_address, created_at
		FROM codes WHERE code = $1`

	var c model.Code
	err := r.pool.QueryRow(ctx, query, code).Scan(
		&c.ID,
		&c.Code,
		&c.Link,
		&c.IsUsed,
		&c.UsedAt,
		&c.IPAddress,
		&c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found - let service handle
		}
		return nil, fmt.Errorf("get code %s: %w", code, err)
	}
	return &c, nil
}

// MarkUsed flips is_used on a single code, stamping the redeeming IP and time.
// The WHERE is_used = FALSE condition makes the write a no-op once the code has
// been redeemed; the returned bool reports whether this caller won the write.
func (r *CodeRepository) MarkUsed(ctx context.Context, id int64, ip string, at time.Time) (bool, error) {
	query := `UPDATE codes SET is_used = TRUE, used_at = $2, ip_address = $3
		WHERE id = $1 AND is_used = FALSE`

	tag, err := r.pool.Exec(ctx, query, id, at, ip)
	if err != nil {
		return false, fmt.Errorf("mark code %d used: %w", id, err)
	}
	return tag.RowsAffected() == 1, nil
}

// BulkInsert inserts a chunk of code entries as one pipelined batch of
// insert-if-absent statements. Duplicate codes (within the chunk or against
// existing rows) are silently skipped. Returns the number of rows actually
// inserted.
func (r *CodeRepository) BulkInsert(ctx context.Context, entries []model.CodeEntry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, e := range entries {
		batch.Queue(
			`INSERT INTO codes (code, link) VALUES ($1, $2) ON CONFLICT (code) DO NOTHING`,
			e.Code, e.Link)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	inserted := 0
	for range entries {
		tag, err := results.Exec()
		if err != nil {
			// One failed statement poisons the rest of the batch; surface it
			// and let the import pipeline count the whole chunk as failed.
			return inserted, fmt.Errorf("batch insert codes: %w", err)
		}
		inserted += int(tag.RowsAffected())
	}

	return inserted, nil
}

// ListPage returns one page of codes, newest first, optionally filtered by a
// case-insensitive substring match on the code or redeeming IP.
func (r *CodeRepository) ListPage(ctx context.Context, page, pageSize int, search string) ([]model.Code, int, error) {
	where := ""
	args := []any{}
	if search != "" {
		where = ` WHERE code ILIKE $1 OR ip_address ILIKE $1`
		args = append(args, "%"+search+"%")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM codes`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count codes: %w", err)
	}

	offset := (page - 1) * pageSize
	query := fmt.Sprintf(`SELECT id, code, link, is_used, used_at, ip_address, created_at
		FROM codes%s ORDER BY id DESC LIMIT $%d OFFSET $%d`, where, len(args)+1, len(args)+2)
	args = append(args, pageSize, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list codes: %w", err)
	}
	defer rows.Close()

	codes, err := scanCodes(rows)
	if err != nil {
		return nil, 0, err
	}
	return codes, total, nil
}

// ListRedeemed returns all used codes ordered by redemption time, for CSV export.
func (r *CodeRepository) ListRedeemed(ctx context.Context) ([]model.Code, error) {
	query := `SELECT id, code, link, is_used, used_at, ip_address, created_at
		FROM codes WHERE is_used = TRUE ORDER BY used_at`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list redeemed codes: %w", err)
	}
	defer rows.Close()

	return scanCodes(rows)
}

func scanCodes(rows pgx.Rows) ([]model.Code, error) {
	var codes []model.Code
	for rows.Next() {
		var c model.Code
		if err := rows.Scan(&c.ID, &c.Code, &c.Link, &c.IsUsed, &c.UsedAt, &c.IPAddress, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan code row: %w", err)
		}
		codes = append(codes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate code rows: %w", err)
	}

	// Return empty slice, not nil
	if codes == nil {
		codes = []model.Code{}
	}
	return codes, nil
}
