package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/promokit/promo-redeem/internal/model"
)

// Settings keys. The table holds exactly these two rows.
const (
	SettingStartDate = "start_date"
	SettingEndDate   = "end_date"
)

// SettingsPoolInterface defines the database operations needed by SettingsRepository.
type SettingsPoolInterface interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// SettingsRepository provides data access for the campaign window settings.
type SettingsRepository struct {
	pool SettingsPoolInterface
}

// NewSettingsRepository creates a new SettingsRepository with the given pool.
func NewSettingsRepository(pool *pgxpool.Pool) *SettingsRepository {
	return &SettingsRepository{pool: pool}
}

// NewSettingsRepositoryWithPool creates a new SettingsRepository with a custom
// pool interface. This is primarily used for testing.
func NewSettingsRepositoryWithPool(pool SettingsPoolInterface) *SettingsRepository {
	return &SettingsRepository{pool: pool}
}

// GetAll reads both campaign window values. Missing rows read as empty strings
// (unbounded).
func (r *SettingsRepository) GetAll(ctx context.Context) (*model.Settings, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT key, value FROM settings WHERE key IN ($1, $2)`,
		SettingStartDate, SettingEndDate)
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	defer rows.Close()

	var s model.Settings
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan settings row: %w", err)
		}
		switch key {
		case SettingStartDate:
			s.StartDate = value
		case SettingEndDate:
			s.EndDate = value
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate settings rows: %w", err)
	}
	return &s, nil
}

// SetAll replaces both campaign window values wholesale.
func (r *SettingsRepository) SetAll(ctx context.Context, s *model.Settings) error {
	query := `INSERT INTO settings (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`

	if _, err := r.pool.Exec(ctx, query, SettingStartDate, s.StartDate); err != nil {
		return fmt.Errorf("set %s: %w", SettingStartDate, err)
	}
	if _, err := r.pool.Exec(ctx, query, SettingEndDate, s.EndDate); err != nil {
		return fmt.Errorf("set %s: %w", SettingEndDate, err)
	}
	return nil
}
