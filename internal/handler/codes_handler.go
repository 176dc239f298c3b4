package handler

import (
	"bytes"
	"context"
	"encoding/csv"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/promokit/promo-redeem/internal/model"
)

// CodesServiceInterface defines the interface for the admin code inventory.
type CodesServiceInterface interface {
	List(ctx context.Context, page int, search string) (*model.CodeListResponse, error)
	ListRedeemed(ctx context.Context) ([]model.Code, error)
}

// CodesHandler handles the admin code listing and export endpoints.
type CodesHandler struct {
	service CodesServiceInterface
}

// NewCodesHandler creates a new CodesHandler with the given service.
func NewCodesHandler(svc CodesServiceInterface) *CodesHandler {
	return &CodesHandler{service: svc}
}

// List handles GET /api/admin/codes?page&search.
func (h *CodesHandler) List(c *fiber.Ctx) error {
	page, err := strconv.Atoi(c.Query("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	search := c.Query("search")

	resp, err := h.service.List(c.Context(), page, search)
	if err != nil {
		log.Error().Err(err).Int("page", page).Msg("failed to list codes")
		return errorResponse(c, fiber.StatusInternalServerError, ErrCodeInternal, "internal server error")
	}
	return c.JSON(resp)
}

// Export handles GET /api/admin/codes/export, returning all redeemed codes as
// a CSV attachment.
func (h *CodesHandler) Export(c *fiber.Ctx) error {
	codes, err := h.service.ListRedeemed(c.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to export redeemed codes")
		return errorResponse(c, fiber.StatusInternalServerError, ErrCodeInternal, "internal server error")
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"code", "link", "used_at", "ip_address"})
	for _, code := range codes {
		usedAt := ""
		if code.UsedAt != nil {
			usedAt = code.UsedAt.UTC().Format("2006-01-02 15:04:05")
		}
		ip := ""
		if code.IPAddress != nil {
			ip = *code.IPAddress
		}
		_ = w.Write([]string{code.Code, code.Link, usedAt, ip})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		log.Error().Err(err).Msg("failed to write export csv")
		return errorResponse(c, fiber.StatusInternalServerError, ErrCodeInternal, "internal server error")
	}

	c.Set(fiber.HeaderContentType, "text/csv")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="redeemed_codes.csv"`)
	return c.Send(buf.Bytes())
}
