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

// ImportServiceInterface defines the interface for the CSV import pipeline.
type ImportServiceInterface interface {
	Upload(ctx context.Context, csvData string) (*model.UploadCSVResponse, error)
	GetJobStatus(ctx context.Context, jobID string) (*model.JobStatusResponse, error)
}

// ImportHandler handles the admin CSV import endpoints.
type ImportHandler struct {
	service   ImportServiceInterface
	validator *validator.Validate
}

// NewImportHandler creates a new ImportHandler with the given service and validator.
func NewImportHandler(svc ImportServiceInterface, v *validator.Validate) *ImportHandler {
	return &ImportHandler{service: svc, validator: v}
}

// Upload handles POST /api/admin/codes/import. The response is returned as
// soon as the job row exists; chunk processing continues in the background.
func (h *ImportHandler) Upload(c *fiber.Ctx) error {
	var req model.UploadCSVRequest
	if err := c.BodyParser(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, ErrCodeMissingFields, "invalid request body")
	}
	if err := h.validator.Struct(req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, ErrCodeMissingFields, "csv_data is required")
	}

	resp, err := h.service.Upload(c.Context(), req.CSVData)
	if err != nil {
		if errors.Is(err, service.ErrCSVEmpty) {
			return errorResponse(c, fiber.StatusBadRequest, ErrCodeCSVEmpty, "csv contains no valid lines")
		}
		log.Error().
			Err(err).
			Str("request_id", c.GetRespHeader("X-Request-ID")).
			Msg("failed to start csv import")
		return errorResponse(c, fiber.StatusInternalServerError, ErrCodeInternal, "internal server error")
	}

	log.Info().
		Str("job_id", resp.JobID).
		Int("total_lines", resp.TotalLines).
		Msg("csv import accepted")
	return c.JSON(resp)
}

// Status handles GET /api/admin/codes/import/:jobID.
func (h *ImportHandler) Status(c *fiber.Ctx) error {
	jobID := c.Params("jobID")
	if jobID == "" {
		return errorResponse(c, fiber.StatusBadRequest, ErrCodeMissingFields, "job id is required")
	}

	status, err := h.service.GetJobStatus(c.Context(), jobID)
	if err != nil {
		if errors.Is(err, service.ErrJobNotFound) {
			return errorResponse(c, fiber.StatusNotFound, ErrCodeJobNotFound, "import job not found")
		}
		log.Error().Err(err).Str("job_id", jobID).Msg("failed to get import job status")
		return errorResponse(c, fiber.StatusInternalServerError, ErrCodeInternal, "internal server error")
	}
	return c.JSON(status)
}
