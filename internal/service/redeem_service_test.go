package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promokit/promo-redeem/internal/clock"
	"github.com/promokit/promo-redeem/internal/model"
)

// mockCodeRepository is a mock implementation of CodeRepositoryInterface.
type mockCodeRepository struct {
	getByCodeFn    func(ctx context.Context, code string) (*model.Code, error)
	markUsedFn     func(ctx context.Context, id int64, ip string, at time.Time) (bool, error)
	bulkInsertFn   func(ctx context.Context, entries []model.CodeEntry) (int, error)
	listPageFn     func(ctx context.Context, page, pageSize int, search string) ([]model.Code, int, error)
	listRedeemedFn func(ctx context.Context) ([]model.Code, error)
}

func (m *mockCodeRepository) GetByCode(ctx context.Context, code string) (*model.Code, error) {
	if m.getByCodeFn != nil {
		return m.getByCodeFn(ctx, code)
	}
	return nil, nil
}

func (m *mockCodeRepository) MarkUsed(ctx context.Context, id int64, ip string, at time.Time) (bool, error) {
	if m.markUsedFn != nil {
		return m.markUsedFn(ctx, id, ip, at)
	}
	return true, nil
}

func (m *mockCodeRepository) BulkInsert(ctx context.Context, entries []model.CodeEntry) (int, error) {
	if m.bulkInsertFn != nil {
		return m.bulkInsertFn(ctx, entries)
	}
	return len(entries), nil
}

func (m *mockCodeRepository) ListPage(ctx context.Context, page, pageSize int, search string) ([]model.Code, int, error) {
	if m.listPageFn != nil {
		return m.listPageFn(ctx, page, pageSize, search)
	}
	return []model.Code{}, 0, nil
}

func (m *mockCodeRepository) ListRedeemed(ctx context.Context) ([]model.Code, error) {
	if m.listRedeemedFn != nil {
		return m.listRedeemedFn(ctx)
	}
	return []model.Code{}, nil
}

// mockSettingsRepository is a mock implementation of SettingsRepositoryInterface.
type mockSettingsRepository struct {
	getAllFn func(ctx context.Context) (*model.Settings, error)
	setAllFn func(ctx context.Context, s *model.Settings) error
}

func (m *mockSettingsRepository) GetAll(ctx context.Context) (*model.Settings, error) {
	if m.getAllFn != nil {
		return m.getAllFn(ctx)
	}
	return &model.Settings{}, nil
}

func (m *mockSettingsRepository) SetAll(ctx context.Context, s *model.Settings) error {
	if m.setAllFn != nil {
		return m.setAllFn(ctx, s)
	}
	return nil
}

// mockGuard is a mock implementation of GuardInterface that records calls.
type mockGuard struct {
	isBlockedFn    func(ctx context.Context, ip string) (BlockStatus, error)
	recordFn       func(ctx context.Context, ip string) (BlockStatus, error)
	isBlockedCalls int
	recordCalls    int
	clearCalls     int
}

func (m *mockGuard) IsBlocked(ctx context.Context, ip string) (BlockStatus, error) {
	m.isBlockedCalls++
	if m.isBlockedFn != nil {
		return m.isBlockedFn(ctx, ip)
	}
	return BlockStatus{}, nil
}

func (m *mockGuard) RecordFailedAttempt(ctx context.Context, ip string) (BlockStatus, error) {
	m.recordCalls++
	if m.recordFn != nil {
		return m.recordFn(ctx, ip)
	}
	return BlockStatus{}, nil
}

func (m *mockGuard) ClearAttempts(ctx context.Context, ip string) error {
	m.clearCalls++
	return nil
}

func fixedClock() *clock.Fixed {
	return &clock.Fixed{Time: time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)}
}

func TestRedeemService_Success_NormalizesCase(t *testing.T) {
	var lookedUp string
	var markedID int64
	codeRepo := &mockCodeRepository{
		getByCodeFn: func(ctx context.Context, code string) (*model.Code, error) {
			lookedUp = code
			return &model.Code{ID: 42, Code: code, Link: "https://x.com/1"}, nil
		},
		markUsedFn: func(ctx context.Context, id int64, ip string, at time.Time) (bool, error) {
			markedID = id
			return true, nil
		},
	}
	guard := &mockGuard{}
	svc := NewRedeemService(codeRepo, &mockSettingsRepository{}, guard, fixedClock())

	link, err := svc.Redeem(context.Background(), "  promo1 ", "10.0.0.1")

	require.NoError(t, err)
	assert.Equal(t, "https://x.com/1", link)
	assert.Equal(t, "PROMO1", lookedUp, "lookup must be uppercase-normalized")
	assert.Equal(t, int64(42), markedID)
	assert.Equal(t, 1, guard.clearCalls, "successful redemption clears the guard")
	assert.Equal(t, 0, guard.recordCalls)
}

func TestRedeemService_NotStarted_GuardNeverConsulted(t *testing.T) {
	settingsRepo := &mockSettingsRepository{
		getAllFn: func(ctx context.Context) (*model.Settings, error) {
			return &model.Settings{StartDate: "2025-07-01T00:00:00Z"}, nil
		},
	}
	guard := &mockGuard{
		isBlockedFn: func(ctx context.Context, ip string) (BlockStatus, error) {
			return BlockStatus{Blocked: true, MinutesRemaining: 10}, nil
		},
	}
	codeRepo := &mockCodeRepository{}
	svc := NewRedeemService(codeRepo, settingsRepo, guard, fixedClock())

	_, err := svc.Redeem(context.Background(), "PROMO1", "10.0.0.1")

	require.ErrorIs(t, err, ErrPromoNotStarted)
	// The window check short-circuits before any guard interaction,
	// even for an IP that would otherwise be blocked.
	assert.Equal(t, 0, guard.isBlockedCalls)
	assert.Equal(t, 0, guard.recordCalls)
}

func TestRedeemService_Ended(t *testing.T) {
	settingsRepo := &mockSettingsRepository{
		getAllFn: func(ctx context.Context) (*model.Settings, error) {
			return &model.Settings{EndDate: "2025-06-01T00:00:00Z"}, nil
		},
	}
	guard := &mockGuard{}
	svc := NewRedeemService(&mockCodeRepository{}, settingsRepo, guard, fixedClock())

	_, err := svc.Redeem(context.Background(), "PROMO1", "10.0.0.1")

	require.ErrorIs(t, err, ErrPromoEnded)
	assert.Equal(t, 0, guard.isBlockedCalls)
}

func TestRedeemService_EmptyWindowIsUnbounded(t *testing.T) {
	settingsRepo := &mockSettingsRepository{
		getAllFn: func(ctx context.Context) (*model.Settings, error) {
			return &model.Settings{StartDate: "", EndDate: ""}, nil
		},
	}
	codeRepo := &mockCodeRepository{
		getByCodeFn: func(ctx context.Context, code string) (*model.Code, error) {
			return &model.Code{ID: 1, Link: "https://x.com/1"}, nil
		},
	}
	svc := NewRedeemService(codeRepo, settingsRepo, &mockGuard{}, fixedClock())

	link, err := svc.Redeem(context.Background(), "PROMO1", "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, "https://x.com/1", link)
}

func TestRedeemService_Blocked(t *testing.T) {
	guard := &mockGuard{
		isBlockedFn: func(ctx context.Context, ip string) (BlockStatus, error) {
			return BlockStatus{Blocked: true, MinutesRemaining: 7}, nil
		},
	}
	codeRepo := &mockCodeRepository{
		getByCodeFn: func(ctx context.Context, code string) (*model.Code, error) {
			t.Fatal("code store must not be touched when blocked")
			return nil, nil
		},
	}
	svc := NewRedeemService(codeRepo, &mockSettingsRepository{}, guard, fixedClock())

	_, err := svc.Redeem(context.Background(), "PROMO1", "10.0.0.1")

	require.ErrorIs(t, err, ErrIPBlocked)
	var blocked *BlockedError
	require.ErrorAs(t, err, &blocked)
	assert.Equal(t, 7, blocked.MinutesRemaining)
}

func TestRedeemService_InvalidCode_IncrementsGuardOnce(t *testing.T) {
	guard := &mockGuard{}
	svc := NewRedeemService(&mockCodeRepository{}, &mockSettingsRepository{}, guard, fixedClock())

	_, err := svc.Redeem(context.Background(), "NOPE", "10.0.0.1")

	require.ErrorIs(t, err, ErrInvalidCode)
	assert.Equal(t, 1, guard.recordCalls, "invalid code increments the guard exactly once")
	assert.Equal(t, 0, guard.clearCalls)
}

func TestRedeemService_InvalidCode_NewlyBlocked(t *testing.T) {
	guard := &mockGuard{
		recordFn: func(ctx context.Context, ip string) (BlockStatus, error) {
			return BlockStatus{Blocked: true, MinutesRemaining: 15}, nil
		},
	}
	svc := NewRedeemService(&mockCodeRepository{}, &mockSettingsRepository{}, guard, fixedClock())

	_, err := svc.Redeem(context.Background(), "NOPE", "10.0.0.1")

	// The fifth miss surfaces as blocked, not invalid
	require.ErrorIs(t, err, ErrIPBlocked)
	var blocked *BlockedError
	require.ErrorAs(t, err, &blocked)
	assert.Equal(t, 15, blocked.MinutesRemaining)
}

func TestRedeemService_UsedCode_NoGuardPenalty(t *testing.T) {
	codeRepo := &mockCodeRepository{
		getByCodeFn: func(ctx context.Context, code string) (*model.Code, error) {
			return &model.Code{ID: 1, IsUsed: true}, nil
		},
	}
	guard := &mockGuard{}
	svc := NewRedeemService(codeRepo, &mockSettingsRepository{}, guard, fixedClock())

	_, err := svc.Redeem(context.Background(), "PROMO1", "10.0.0.1")

	require.ErrorIs(t, err, ErrCodeUsed)
	assert.Equal(t, 0, guard.recordCalls, "a used code is not a guessing signal")
}

func TestRedeemService_LostRace_SurfacesAsUsed(t *testing.T) {
	codeRepo := &mockCodeRepository{
		getByCodeFn: func(ctx context.Context, code string) (*model.Code, error) {
			return &model.Code{ID: 1, Link: "https://x.com/1"}, nil
		},
		markUsedFn: func(ctx context.Context, id int64, ip string, at time.Time) (bool, error) {
			return false, nil // another request won the conditional update
		},
	}
	guard := &mockGuard{}
	svc := NewRedeemService(codeRepo, &mockSettingsRepository{}, guard, fixedClock())

	_, err := svc.Redeem(context.Background(), "PROMO1", "10.0.0.1")

	require.ErrorIs(t, err, ErrCodeUsed)
	assert.Equal(t, 0, guard.clearCalls)
}

func TestRedeemService_SettingsError(t *testing.T) {
	settingsRepo := &mockSettingsRepository{
		getAllFn: func(ctx context.Context) (*model.Settings, error) {
			return nil, errors.New("database down")
		},
	}
	svc := NewRedeemService(&mockCodeRepository{}, settingsRepo, &mockGuard{}, fixedClock())

	_, err := svc.Redeem(context.Background(), "PROMO1", "10.0.0.1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidCode)
}

func TestParseSettingsTime(t *testing.T) {
	_, ok := parseSettingsTime("")
	assert.False(t, ok, "empty means unbounded")

	_, ok = parseSettingsTime("not-a-date")
	assert.False(t, ok, "garbage is treated as unset")

	ts, ok := parseSettingsTime("2025-06-01T10:30:00Z")
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC), ts)

	ts, ok = parseSettingsTime("2025-06-01")
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), ts)
}
