package service

import (
	"context"
	"fmt"

	"github.com/promokit/promo-redeem/internal/model"
)

// AdminPageSize is the fixed page size of the admin codes table.
const AdminPageSize = 50

// CodesService serves the admin code inventory views.
type CodesService struct {
	repo CodeRepositoryInterface
}

// NewCodesService creates a CodesService with the given repository.
func NewCodesService(repo CodeRepositoryInterface) *CodesService {
	return &CodesService{repo: repo}
}

// List returns one page of codes, newest first, optionally filtered by a
// substring match on code or redeeming IP. Pages are 1-based.
func (s *CodesService) List(ctx context.Context, page int, search string) (*model.CodeListResponse, error) {
	if page < 1 {
		page = 1
	}

	codes, total, err := s.repo.ListPage(ctx, page, AdminPageSize, search)
	if err != nil {
		return nil, fmt.Errorf("list codes: %w", err)
	}

	return &model.CodeListResponse{
		Codes:    codes,
		Total:    total,
		Page:     page,
		PageSize: AdminPageSize,
	}, nil
}

// ListRedeemed returns all used codes ordered by redemption time, for export.
func (s *CodesService) ListRedeemed(ctx context.Context) ([]model.Code, error) {
	return s.repo.ListRedeemed(ctx)
}
