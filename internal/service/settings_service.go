package service

import (
	"context"
	"fmt"

	"github.com/promokit/promo-redeem/internal/model"
)

// SettingsService exposes the campaign window to handlers.
type SettingsService struct {
	repo SettingsRepositoryInterface
}

// NewSettingsService creates a SettingsService with the given repository.
func NewSettingsService(repo SettingsRepositoryInterface) *SettingsService {
	return &SettingsService{repo: repo}
}

// Get returns the current campaign window. Empty strings mean unbounded.
func (s *SettingsService) Get(ctx context.Context) (*model.Settings, error) {
	settings, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	return settings, nil
}

// Update replaces both campaign window values wholesale. No history is kept.
func (s *SettingsService) Update(ctx context.Context, req *model.UpdateSettingsRequest) error {
	if req == nil {
		return ErrInvalidRequest
	}
	return s.repo.SetAll(ctx, &model.Settings{
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
	})
}
