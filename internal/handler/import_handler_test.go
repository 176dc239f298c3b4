package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promokit/promo-redeem/internal/model"
	"github.com/promokit/promo-redeem/internal/service"
	"github.com/promokit/promo-redeem/internal/validator"
)

// mockImportService is a mock implementation of ImportServiceInterface.
type mockImportService struct {
	uploadFn    func(ctx context.Context, csvData string) (*model.UploadCSVResponse, error)
	getStatusFn func(ctx context.Context, jobID string) (*model.JobStatusResponse, error)
}

func (m *mockImportService) Upload(ctx context.Context, csvData string) (*model.UploadCSVResponse, error) {
	if m.uploadFn != nil {
		return m.uploadFn(ctx, csvData)
	}
	return &model.UploadCSVResponse{Success: true, JobID: "job-1", TotalLines: 1}, nil
}

func (m *mockImportService) GetJobStatus(ctx context.Context, jobID string) (*model.JobStatusResponse, error) {
	if m.getStatusFn != nil {
		return m.getStatusFn(ctx, jobID)
	}
	return nil, service.ErrJobNotFound
}

func setupImportTestApp(mockSvc *mockImportService) *fiber.App {
	app := fiber.New()
	h := NewImportHandler(mockSvc, validator.New())
	app.Post("/api/admin/codes/import", h.Upload)
	app.Get("/api/admin/codes/import/:jobID", h.Status)
	return app
}

func TestImportUpload_Success(t *testing.T) {
	mockSvc := &mockImportService{
		uploadFn: func(ctx context.Context, csvData string) (*model.UploadCSVResponse, error) {
			assert.Equal(t, "A,https://x.com/1\nB,https://x.com/2", csvData)
			return &model.UploadCSVResponse{
				Success:    true,
				JobID:      "1750000000000-abcd1234",
				TotalLines: 2,
				Message:    "import started, 2 lines queued",
			}, nil
		},
	}
	app := setupImportTestApp(mockSvc)

	body, _ := json.Marshal(map[string]string{"csv_data": "A,https://x.com/1\nB,https://x.com/2"})
	req := httptest.NewRequest(http.MethodPost, "/api/admin/codes/import", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var result model.UploadCSVResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.True(t, result.Success)
	assert.Equal(t, "1750000000000-abcd1234", result.JobID)
	assert.Equal(t, 2, result.TotalLines)
}

func TestImportUpload_MissingCSV(t *testing.T) {
	app := setupImportTestApp(&mockImportService{})

	req := httptest.NewRequest(http.MethodPost, "/api/admin/codes/import", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestImportUpload_EmptyCSV(t *testing.T) {
	mockSvc := &mockImportService{
		uploadFn: func(ctx context.Context, csvData string) (*model.UploadCSVResponse, error) {
			return nil, service.ErrCSVEmpty
		},
	}
	app := setupImportTestApp(mockSvc)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/codes/import", bytes.NewBufferString(`{"csv_data": "nocomma"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	var result map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, ErrCodeCSVEmpty, result["error"])
}

func TestImportStatus_Found(t *testing.T) {
	mockSvc := &mockImportService{
		getStatusFn: func(ctx context.Context, jobID string) (*model.JobStatusResponse, error) {
			assert.Equal(t, "job-1", jobID)
			return &model.JobStatusResponse{
				ImportJob: model.ImportJob{
					ID:              "job-1",
					Status:          model.JobStatusProcessing,
					TotalLines:      100,
					ProcessedLines:  40,
					SuccessfulLines: 38,
					FailedLines:     2,
				},
				Progress: 40,
			}, nil
		},
	}
	app := setupImportTestApp(mockSvc)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/codes/import/job-1", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var result model.JobStatusResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, 40, result.Progress)
	assert.Equal(t, model.JobStatusProcessing, result.Status)
}

func TestImportStatus_NotFound(t *testing.T) {
	app := setupImportTestApp(&mockImportService{})

	req := httptest.NewRequest(http.MethodGet, "/api/admin/codes/import/unknown", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	var result map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, ErrCodeJobNotFound, result["error"])
}
