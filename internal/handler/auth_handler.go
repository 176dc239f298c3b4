package handler

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/promokit/promo-redeem/internal/model"
	"github.com/promokit/promo-redeem/internal/service"
)

// AuthServiceInterface defines the interface for the admin login flow.
type AuthServiceInterface interface {
	RequestLoginCode(ctx context.Context, email string) error
	VerifyLoginCode(ctx context.Context, email, code string) (string, error)
}

// AuthHandler handles the admin login endpoints.
type AuthHandler struct {
	service   AuthServiceInterface
	validator *validator.Validate
}

// NewAuthHandler creates a new AuthHandler with the given service and validator.
func NewAuthHandler(svc AuthServiceInterface, v *validator.Validate) *AuthHandler {
	return &AuthHandler{service: svc, validator: v}
}

// RequestCode handles POST /api/admin/login/request. It responds 200 for any
// well-formed email so the admin address cannot be enumerated.
func (h *AuthHandler) RequestCode(c *fiber.Ctx) error {
	var req model.LoginRequestRequest
	if err := c.BodyParser(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, ErrCodeMissingFields, "invalid request body")
	}
	if err := h.validator.Struct(req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, ErrCodeMissingFields, "a valid email is required")
	}

	if err := h.service.RequestLoginCode(c.Context(), req.Email); err != nil {
		log.Error().Err(err).Msg("failed to send login code")
		return errorResponse(c, fiber.StatusInternalServerError, ErrCodeInternal, "internal server error")
	}

	return c.JSON(fiber.Map{"success": true, "message": "if the address is registered, a code has been sent"})
}

// VerifyCode handles POST /api/admin/login/verify, exchanging a login code
// for a bearer token.
func (h *AuthHandler) VerifyCode(c *fiber.Ctx) error {
	var req model.LoginVerifyRequest
	if err := c.BodyParser(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, ErrCodeMissingFields, "invalid request body")
	}
	if err := h.validator.Struct(req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, ErrCodeMissingFields, "email and code are required")
	}

	token, err := h.service.VerifyLoginCode(c.Context(), req.Email, req.Code)
	if err != nil {
		if errors.Is(err, service.ErrInvalidLogin) {
			return errorResponse(c, fiber.StatusUnauthorized, ErrCodeUnauthorized, "invalid or expired login code")
		}
		log.Error().Err(err).Msg("failed to verify login code")
		return errorResponse(c, fiber.StatusInternalServerError, ErrCodeInternal, "internal server error")
	}

	return c.JSON(model.LoginVerifyResponse{Token: token})
}
