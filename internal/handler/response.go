package handler

import "github.com/gofiber/fiber/v2"

// Stable machine-readable error codes carried in every failure response.
// Clients branch on "error"; "message" is for humans.
const (
	ErrCodeMissingFields = "missing_fields"
	ErrCodeCaptcha       = "captcha"
	ErrCodeUsed          = "used"
	ErrCodeNotStarted    = "not_started"
	ErrCodeEnded         = "ended"
	ErrCodeInvalid       = "invalid"
	ErrCodeBlocked       = "blocked"
	ErrCodeCSVEmpty      = "csv_empty"
	ErrCodeJobNotFound   = "job_not_found"
	ErrCodeUnauthorized  = "unauthorized"
	ErrCodeInternal      = "internal_error"
)

func errorResponse(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error":   code,
		"message": message,
	})
}
