package model

import "time"

// Code represents a one-time redemption code mapping to a reward link.
// A code is created at import time and mutated exactly once, at redemption.
type Code struct {
	ID        int64      `json:"id"`
	Code      string     `json:"code"`
	Link      string     `json:"link"`
	IsUsed    bool       `json:"is_used"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
	IPAddress *string    `json:"ip_address,omitempty"`
	CreatedAt time.Time  `json:"-"`
}

// CodeEntry is one parsed CSV line destined for bulk insert.
type CodeEntry struct {
	Code string
	Link string
}

// Settings holds the campaign window. Empty strings mean unbounded.
type Settings struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// BruteForceRecord tracks failed redemption attempts for one IP.
type BruteForceRecord struct {
	IP            string
	Attempts      int
	LastAttemptAt time.Time
	BlockedUntil  *time.Time
}

// Import job statuses. A job becomes terminal (completed/failed) exactly once.
const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

// ImportJob is the durable record of one CSV bulk upload.
type ImportJob struct {
	ID              string     `json:"id"`
	Status          string     `json:"status"`
	TotalLines      int        `json:"total_lines"`
	ProcessedLines  int        `json:"processed_lines"`
	SuccessfulLines int        `json:"successful_lines"`
	FailedLines     int        `json:"failed_lines"`
	ErrorMessage    *string    `json:"error_message,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

// JobStatusResponse is the API snapshot for GET /api/admin/codes/import/:jobID.
// Progress is recomputed from the counters on every read.
type JobStatusResponse struct {
	ImportJob
	Progress int `json:"progress"`
}

// RedeemRequest is the DTO for POST /api/redeem.
type RedeemRequest struct {
	Code         string `json:"code" validate:"required,notblank,max=255"`
	CaptchaToken string `json:"captcha_token"`
}

// RedeemResponse is returned on successful redemption.
type RedeemResponse struct {
	Success bool   `json:"success"`
	Link    string `json:"link"`
}

// UpdateSettingsRequest replaces both campaign window values wholesale.
type UpdateSettingsRequest struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// UploadCSVRequest is the DTO for POST /api/admin/codes/import.
type UploadCSVRequest struct {
	CSVData string `json:"csv_data" validate:"required,notblank"`
}

// UploadCSVResponse acknowledges an accepted import; processing continues in background.
type UploadCSVResponse struct {
	Success    bool   `json:"success"`
	JobID      string `json:"job_id"`
	TotalLines int    `json:"total_lines"`
	Message    string `json:"message"`
}

// LoginRequestRequest asks for a one-time admin login code by email.
type LoginRequestRequest struct {
	Email string `json:"email" validate:"required,email,max=255"`
}

// LoginVerifyRequest exchanges an emailed login code for a session token.
type LoginVerifyRequest struct {
	Email string `json:"email" validate:"required,email,max=255"`
	Code  string `json:"code" validate:"required,notblank,max=16"`
}

// LoginVerifyResponse carries the admin bearer token.
type LoginVerifyResponse struct {
	Token string `json:"token"`
}

// CodeListResponse is one page of codes for the admin table.
type CodeListResponse struct {
	Codes    []Code `json:"codes"`
	Total    int    `json:"total"`
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
}
