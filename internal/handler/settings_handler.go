package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/promokit/promo-redeem/internal/model"
)

// SettingsServiceInterface defines the interface for campaign window logic.
type SettingsServiceInterface interface {
	Get(ctx context.Context) (*model.Settings, error)
	Update(ctx context.Context, req *model.UpdateSettingsRequest) error
}

// SettingsHandler handles the public window read and the admin window write.
type SettingsHandler struct {
	service SettingsServiceInterface
}

// NewSettingsHandler creates a new SettingsHandler with the given service.
func NewSettingsHandler(svc SettingsServiceInterface) *SettingsHandler {
	return &SettingsHandler{service: svc}
}

// Get handles GET /api/settings. The SPA reads this to decide what to render
// before the campaign opens.
func (h *SettingsHandler) Get(c *fiber.Ctx) error {
	settings, err := h.service.Get(c.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to get settings")
		return errorResponse(c, fiber.StatusInternalServerError, ErrCodeInternal, "internal server error")
	}
	return c.JSON(settings)
}

// Update handles POST /api/admin/settings, replacing both window values.
func (h *SettingsHandler) Update(c *fiber.Ctx) error {
	var req model.UpdateSettingsRequest
	if err := c.BodyParser(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, ErrCodeMissingFields, "invalid request body")
	}

	if err := h.service.Update(c.Context(), &req); err != nil {
		log.Error().Err(err).Msg("failed to update settings")
		return errorResponse(c, fiber.StatusInternalServerError, ErrCodeInternal, "internal server error")
	}

	log.Info().
		Str("start_date", req.StartDate).
		Str("end_date", req.EndDate).
		Msg("campaign window updated")
	return c.JSON(fiber.Map{"success": true})
}
