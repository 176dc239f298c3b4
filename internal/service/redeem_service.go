package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/promokit/promo-redeem/internal/clock"
	"github.com/promokit/promo-redeem/internal/model"
)

// CodeRepositoryInterface defines the interface for code data access.
type CodeRepositoryInterface interface {
	GetByCode(ctx context.Context, code string) (*model.Code, error)
	MarkUsed(ctx context.Context, id int64, ip string, at time.Time) (bool, error)
	BulkInsert(ctx context.Context, entries []model.CodeEntry) (int, error)
	ListPage(ctx context.Context, page, pageSize int, search string) ([]model.Code, int, error)
	ListRedeemed(ctx context.Context) ([]model.Code, error)
}

// SettingsRepositoryInterface defines the interface for campaign window access.
type SettingsRepositoryInterface interface {
	GetAll(ctx context.Context) (*model.Settings, error)
	SetAll(ctx context.Context, s *model.Settings) error
}

// GuardInterface is the brute-force guard surface the orchestrator needs.
type GuardInterface interface {
	IsBlocked(ctx context.Context, ip string) (BlockStatus, error)
	RecordFailedAttempt(ctx context.Context, ip string) (BlockStatus, error)
	ClearAttempts(ctx context.Context, ip string) error
}

// RedeemService orchestrates a single redemption attempt. The check order is
// fixed: campaign window, then lockout, then code lookup. A promotion that has
// not started must short-circuit before the guard is ever consulted.
type RedeemService struct {
	codeRepo     CodeRepositoryInterface
	settingsRepo SettingsRepositoryInterface
	guard        GuardInterface
	clock        clock.Clock
}

// NewRedeemService creates a RedeemService with the given collaborators.
func NewRedeemService(codeRepo CodeRepositoryInterface, settingsRepo SettingsRepositoryInterface, guard GuardInterface, clk clock.Clock) *RedeemService {
	return &RedeemService{
		codeRepo:     codeRepo,
		settingsRepo: settingsRepo,
		guard:        guard,
		clock:        clk,
	}
}

// Accepted layouts for the stored campaign window timestamps.
var settingsTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseSettingsTime parses a stored window value. Empty means unbounded.
// An unparseable value is treated as unbounded rather than failing every
// redemption on a bad admin input.
func parseSettingsTime(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range settingsTimeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	log.Warn().Str("value", value).Msg("unparseable campaign window value, treating as unset")
	return time.Time{}, false
}

// Redeem attempts to exchange a code for its reward link on behalf of ip.
// Returns the link on success, or one of the sentinel errors:
//   - ErrPromoNotStarted / ErrPromoEnded when outside the campaign window
//   - *BlockedError (wrapping ErrIPBlocked) when the IP is locked out
//   - ErrInvalidCode when the code does not exist (increments the guard)
//   - ErrCodeUsed when the code was already redeemed (no guard penalty)
func (s *RedeemService) Redeem(ctx context.Context, code, ip string) (string, error) {
	now := s.clock.Now()

	// 1. Campaign window, strictly before any guard interaction.
	settings, err := s.settingsRepo.GetAll(ctx)
	if err != nil {
		return "", fmt.Errorf("get settings: %w", err)
	}
	if start, ok := parseSettingsTime(settings.StartDate); ok && now.Before(start) {
		return "", ErrPromoNotStarted
	}
	if end, ok := parseSettingsTime(settings.EndDate); ok && now.After(end) {
		return "", ErrPromoEnded
	}

	// 2. Lockout.
	status, err := s.guard.IsBlocked(ctx, ip)
	if err != nil {
		return "", fmt.Errorf("check lockout: %w", err)
	}
	if status.Blocked {
		return "", &BlockedError{MinutesRemaining: status.MinutesRemaining}
	}

	// 3. Lookup. Codes are stored uppercase; match case-insensitively.
	normalized := strings.ToUpper(strings.TrimSpace(code))
	found, err := s.codeRepo.GetByCode(ctx, normalized)
	if err != nil {
		return "", fmt.Errorf("get code: %w", err)
	}

	if found == nil {
		// The only path that increments the guard.
		status, err := s.guard.RecordFailedAttempt(ctx, ip)
		if err != nil {
			return "", fmt.Errorf("record failed attempt: %w", err)
		}
		if status.Blocked {
			return "", &BlockedError{MinutesRemaining: status.MinutesRemaining}
		}
		return "", ErrInvalidCode
	}

	// A used code is not a guessing signal; no guard penalty.
	if found.IsUsed {
		return "", ErrCodeUsed
	}

	// Conditional write closes the double-redemption race: the UPDATE only
	// lands while is_used is still false, so exactly one caller wins.
	won, err := s.codeRepo.MarkUsed(ctx, found.ID, ip, now)
	if err != nil {
		return "", fmt.Errorf("mark code used: %w", err)
	}
	if !won {
		return "", ErrCodeUsed
	}

	// Redemption already succeeded; a failed clear must not undo that.
	if err := s.guard.ClearAttempts(ctx, ip); err != nil {
		log.Warn().Err(err).Str("ip", ip).Msg("failed to clear guard attempts after redemption")
	}

	return found.Link, nil
}
