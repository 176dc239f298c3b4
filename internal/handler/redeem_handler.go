package handler

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/promokit/promo-redeem/internal/captcha"
	"github.com/promokit/promo-redeem/internal/model"
	"github.com/promokit/promo-redeem/internal/service"
)

// RedeemServiceInterface defines the interface for redemption business logic.
type RedeemServiceInterface interface {
	Redeem(ctx context.Context, code, ip string) (string, error)
}

// RedeemHandler handles the public redemption endpoint.
type RedeemHandler struct {
	service   RedeemServiceInterface
	verifier  captcha.Verifier
	validator *validator.Validate
}

// NewRedeemHandler creates a new RedeemHandler with the given collaborators.
func NewRedeemHandler(svc RedeemServiceInterface, verifier captcha.Verifier, v *validator.Validate) *RedeemHandler {
	return &RedeemHandler{service: svc, verifier: verifier, validator: v}
}

// Redeem handles POST /api/redeem. Validation failures never reach the
// orchestrator; the captcha gate sits between validation and business logic.
func (h *RedeemHandler) Redeem(c *fiber.Ctx) error {
	var req model.RedeemRequest

	if err := c.BodyParser(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, ErrCodeMissingFields, "invalid request body")
	}
	if err := h.validator.Struct(req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, ErrCodeMissingFields, "code is required")
	}

	ok, err := h.verifier.Verify(c.Context(), req.CaptchaToken, c.IP())
	if err != nil {
		log.Error().
			Err(err).
			Str("request_id", c.GetRespHeader("X-Request-ID")).
			Msg("captcha verification failed")
		return errorResponse(c, fiber.StatusInternalServerError, ErrCodeInternal, "internal server error")
	}
	if !ok {
		return errorResponse(c, fiber.StatusBadRequest, ErrCodeCaptcha, "captcha verification failed")
	}

	link, err := h.service.Redeem(c.Context(), req.Code, c.IP())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPromoNotStarted):
			return errorResponse(c, fiber.StatusForbidden, ErrCodeNotStarted, "promotion has not started yet")
		case errors.Is(err, service.ErrPromoEnded):
			return errorResponse(c, fiber.StatusForbidden, ErrCodeEnded, "promotion has ended")
		case errors.Is(err, service.ErrIPBlocked):
			var blocked *service.BlockedError
			minutes := 0
			if errors.As(err, &blocked) {
				minutes = blocked.MinutesRemaining
			}
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":             ErrCodeBlocked,
				"message":           fmt.Sprintf("too many attempts, try again in %d minutes", minutes),
				"minutes_remaining": minutes,
			})
		case errors.Is(err, service.ErrInvalidCode):
			return errorResponse(c, fiber.StatusNotFound, ErrCodeInvalid, "invalid code")
		case errors.Is(err, service.ErrCodeUsed):
			return errorResponse(c, fiber.StatusBadRequest, ErrCodeUsed, "code already used")
		}

		log.Error().
			Err(err).
			Str("request_id", c.GetRespHeader("X-Request-ID")).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Msg("failed to redeem code")
		return errorResponse(c, fiber.StatusInternalServerError, ErrCodeInternal, "internal server error")
	}

	log.Info().
		Str("request_id", c.GetRespHeader("X-Request-ID")).
		Str("ip", c.IP()).
		Msg("code redeemed successfully")

	return c.JSON(model.RedeemResponse{Success: true, Link: link})
}
