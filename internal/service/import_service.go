package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/promokit/promo-redeem/internal/cache"
	"github.com/promokit/promo-redeem/internal/clock"
	"github.com/promokit/promo-redeem/internal/model"
)

// ImportJobRepositoryInterface defines the interface for import job data access.
type ImportJobRepositoryInterface interface {
	Insert(ctx context.Context, job *model.ImportJob) error
	UpdateProgress(ctx context.Context, id string, processed, successful, failed int) error
	MarkCompleted(ctx context.Context, id string, processed, successful, failed int, at time.Time) error
	MarkFailed(ctx context.Context, id, errorMessage string, at time.Time) error
	GetByID(ctx context.Context, id string) (*model.ImportJob, error)
}

// BulkInserter is the slice of the code repository the import pipeline needs.
type BulkInserter interface {
	BulkInsert(ctx context.Context, entries []model.CodeEntry) (int, error)
}

// ImportService runs the CSV bulk-import pipeline: the upload call creates a
// durable job row and returns immediately, then a background goroutine inserts
// codes in fixed-size chunks, updating the durable row and the in-memory cache
// after each chunk. Chunks run sequentially; the inter-chunk delay bounds load
// on the store.
type ImportService struct {
	jobRepo    ImportJobRepositoryInterface
	codes      BulkInserter
	jobCache   cache.JobCache
	clock      clock.Clock
	chunkSize  int
	chunkDelay time.Duration
}

// NewImportService creates an ImportService with the given collaborators and
// chunking policy.
func NewImportService(jobRepo ImportJobRepositoryInterface, codes BulkInserter, jobCache cache.JobCache, clk clock.Clock, chunkSize int, chunkDelay time.Duration) *ImportService {
	return &ImportService{
		jobRepo:    jobRepo,
		codes:      codes,
		jobCache:   jobCache,
		clock:      clk,
		chunkSize:  chunkSize,
		chunkDelay: chunkDelay,
	}
}

// parseCSVLines splits raw CSV text into code entries. Each line is
// CODE,LINK with both fields trimmed and the code uppercased. Blank lines and
// lines missing either field are dropped here, before the job's totals are
// fixed, so they count toward neither successful nor failed lines.
func parseCSVLines(csvData string) []model.CodeEntry {
	lines := strings.Split(strings.ReplaceAll(csvData, "\r\n", "\n"), "\n")

	var entries []model.CodeEntry
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, ",", 2)
		if len(parts) != 2 {
			continue
		}
		code := strings.ToUpper(strings.TrimSpace(parts[0]))
		link := strings.TrimSpace(parts[1])
		if code == "" || link == "" {
			continue
		}
		entries = append(entries, model.CodeEntry{Code: code, Link: link})
	}
	return entries
}

// Upload accepts raw CSV text, persists a processing job row, and kicks off
// background chunk processing. The response is returned before any code is
// inserted; callers poll GetJobStatus until the job is terminal.
// Returns ErrCSVEmpty when no usable lines remain after filtering.
func (s *ImportService) Upload(ctx context.Context, csvData string) (*model.UploadCSVResponse, error) {
	entries := parseCSVLines(csvData)
	if len(entries) == 0 {
		return nil, ErrCSVEmpty
	}

	now := s.clock.Now()
	job := &model.ImportJob{
		ID:         fmt.Sprintf("%d-%s", now.UnixMilli(), uuid.NewString()[:8]),
		Status:     model.JobStatusProcessing,
		TotalLines: len(entries),
		CreatedAt:  now,
	}
	if err := s.jobRepo.Insert(ctx, job); err != nil {
		return nil, fmt.Errorf("create import job: %w", err)
	}

	s.jobCache.Set(job.ID, cache.JobProgress{
		Status:     model.JobStatusProcessing,
		TotalLines: job.TotalLines,
		CreatedAt:  now,
	})

	// Fire-and-forget: the HTTP request context ends when the response is
	// written, so the background task runs on its own context.
	go s.runJob(context.Background(), job.ID, entries)

	return &model.UploadCSVResponse{
		Success:    true,
		JobID:      job.ID,
		TotalLines: job.TotalLines,
		Message:    fmt.Sprintf("import started, %d lines queued", job.TotalLines),
	}, nil
}

// runJob executes processChunks, funneling panics and escaped errors into the
// job's terminal failed state so no background failure is silently lost.
func (s *ImportService) runJob(ctx context.Context, jobID string, entries []model.CodeEntry) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("job_id", jobID).Interface("panic", r).Msg("import job panicked")
			s.failJob(ctx, jobID, fmt.Sprintf("panic: %v", r))
		}
	}()

	if err := s.processChunks(ctx, jobID, entries); err != nil {
		log.Error().Err(err).Str("job_id", jobID).Msg("import job failed")
		s.failJob(ctx, jobID, err.Error())
	}
}

// processChunks inserts entries in fixed-size chunks, sequentially. A failed
// chunk insert marks that whole chunk failed and processing continues; only an
// error outside the per-chunk insert (job bookkeeping) aborts the job.
// Invariant on completion: successful + failed == total.
func (s *ImportService) processChunks(ctx context.Context, jobID string, entries []model.CodeEntry) error {
	total := len(entries)
	successful := 0
	failed := 0

	numChunks := (total + s.chunkSize - 1) / s.chunkSize
	for i := 0; i < numChunks; i++ {
		start := i * s.chunkSize
		end := start + s.chunkSize
		if end > total {
			end = total
		}
		chunk := entries[start:end]

		inserted, err := s.codes.BulkInsert(ctx, chunk)
		if err != nil {
			// Chunk-level failure is recovered locally.
			log.Warn().Err(err).Str("job_id", jobID).Int("chunk", i).Msg("chunk insert failed")
			failed += len(chunk)
		} else {
			successful += inserted
			failed += len(chunk) - inserted
		}

		processed := end
		if err := s.jobRepo.UpdateProgress(ctx, jobID, processed, successful, failed); err != nil {
			return fmt.Errorf("update progress: %w", err)
		}
		if p, ok := s.jobCache.Get(jobID); ok {
			p.ProcessedLines = processed
			p.SuccessfulLines = successful
			p.FailedLines = failed
			s.jobCache.Set(jobID, p)
		}

		// Deliberate throttle between chunks, not after the last one.
		if i < numChunks-1 && s.chunkDelay > 0 {
			time.Sleep(s.chunkDelay)
		}
	}

	if err := s.jobRepo.MarkCompleted(ctx, jobID, total, successful, failed, s.clock.Now()); err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}
	// Terminal: evict so status reads come from the durable row, which also
	// carries completed_at.
	s.jobCache.Delete(jobID)

	log.Info().
		Str("job_id", jobID).
		Int("total", total).
		Int("successful", successful).
		Int("failed", failed).
		Msg("import job completed")
	return nil
}

func (s *ImportService) failJob(ctx context.Context, jobID, message string) {
	if err := s.jobRepo.MarkFailed(ctx, jobID, message, s.clock.Now()); err != nil {
		log.Error().Err(err).Str("job_id", jobID).Msg("failed to mark import job failed")
	}
	s.jobCache.Delete(jobID)
}

// GetJobStatus serves active jobs from the in-process snapshot; terminal and
// unknown jobs fall through to the durable row, which also carries the error
// message and completion time. Returns ErrJobNotFound if neither exists.
func (s *ImportService) GetJobStatus(ctx context.Context, jobID string) (*model.JobStatusResponse, error) {
	if p, ok := s.jobCache.Get(jobID); ok {
		return &model.JobStatusResponse{
			ImportJob: model.ImportJob{
				ID:              jobID,
				Status:          p.Status,
				TotalLines:      p.TotalLines,
				ProcessedLines:  p.ProcessedLines,
				SuccessfulLines: p.SuccessfulLines,
				FailedLines:     p.FailedLines,
				CreatedAt:       p.CreatedAt,
			},
			Progress: progressPercent(p.ProcessedLines, p.TotalLines),
		}, nil
	}

	job, err := s.jobRepo.GetByID(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("get import job: %w", err)
	}
	if job == nil {
		return nil, ErrJobNotFound
	}
	return &model.JobStatusResponse{ImportJob: *job, Progress: progressPercent(job.ProcessedLines, job.TotalLines)}, nil
}

func progressPercent(processed, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(processed) / float64(total) * 100))
}
