package service

import (
	"context"
	"fmt"
	"time"

	"github.com/promokit/promo-redeem/internal/clock"
	"github.com/promokit/promo-redeem/internal/model"
)

// BruteForceRepositoryInterface defines the interface for attempt-record data access.
type BruteForceRepositoryInterface interface {
	Get(ctx context.Context, ip string) (*model.BruteForceRecord, error)
	Upsert(ctx context.Context, rec *model.BruteForceRecord) error
	Delete(ctx context.Context, ip string) error
}

// BlockStatus reports whether an IP is currently locked out.
type BlockStatus struct {
	Blocked          bool
	MinutesRemaining int
}

// GuardService implements the brute-force lockout policy: a fixed attempt
// threshold followed by a fixed-duration block, keyed by opaque IP string.
// Expired blocks are detected lazily on read; no background sweep runs.
type GuardService struct {
	repo          BruteForceRepositoryInterface
	clock         clock.Clock
	maxAttempts   int
	blockDuration time.Duration
}

// NewGuardService creates a GuardService with the given repository and policy.
func NewGuardService(repo BruteForceRepositoryInterface, clk clock.Clock, maxAttempts int, blockDuration time.Duration) *GuardService {
	return &GuardService{
		repo:          repo,
		clock:         clk,
		maxAttempts:   maxAttempts,
		blockDuration: blockDuration,
	}
}

// GetAttempts returns the attempt record for an IP, or nil if none exists.
func (s *GuardService) GetAttempts(ctx context.Context, ip string) (*model.BruteForceRecord, error) {
	return s.repo.Get(ctx, ip)
}

// IsBlocked reports whether an IP is locked out. A record with no blocked_until,
// or one whose blocked_until has passed, is not blocked.
func (s *GuardService) IsBlocked(ctx context.Context, ip string) (BlockStatus, error) {
	rec, err := s.repo.Get(ctx, ip)
	if err != nil {
		return BlockStatus{}, fmt.Errorf("get attempts: %w", err)
	}
	if rec == nil || rec.BlockedUntil == nil {
		return BlockStatus{}, nil
	}

	now := s.clock.Now()
	if !rec.BlockedUntil.After(now) {
		return BlockStatus{}, nil // lazy expiry
	}

	return BlockStatus{
		Blocked:          true,
		MinutesRemaining: minutesRemaining(now, *rec.BlockedUntil),
	}, nil
}

// RecordFailedAttempt increments the attempt counter for an IP, setting the
// block once the counter reaches the threshold. Returns the resulting status
// so the caller can distinguish a newly applied block from a plain miss.
func (s *GuardService) RecordFailedAttempt(ctx context.Context, ip string) (BlockStatus, error) {
	rec, err := s.repo.Get(ctx, ip)
	if err != nil {
		return BlockStatus{}, fmt.Errorf("get attempts: %w", err)
	}

	now := s.clock.Now()
	attempts := 1
	if rec != nil {
		attempts = rec.Attempts + 1
	}

	updated := &model.BruteForceRecord{
		IP:            ip,
		Attempts:      attempts,
		LastAttemptAt: now,
	}
	status := BlockStatus{}
	if attempts >= s.maxAttempts {
		until := now.Add(s.blockDuration)
		updated.BlockedUntil = &until
		status = BlockStatus{
			Blocked:          true,
			MinutesRemaining: minutesRemaining(now, until),
		}
	}

	if err := s.repo.Upsert(ctx, updated); err != nil {
		return BlockStatus{}, fmt.Errorf("record failed attempt: %w", err)
	}
	return status, nil
}

// ClearAttempts removes the attempt record for an IP. Idempotent.
func (s *GuardService) ClearAttempts(ctx context.Context, ip string) error {
	return s.repo.Delete(ctx, ip)
}

// minutesRemaining rounds the remaining block time up to whole minutes, so a
// block expiring in 30 seconds still reports 1 minute.
func minutesRemaining(now, until time.Time) int {
	d := until.Sub(now)
	mins := int(d / time.Minute)
	if d%time.Minute > 0 {
		mins++
	}
	return mins
}
