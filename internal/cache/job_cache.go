package cache

import (
	"sync"
	"time"
)

// JobProgress is the volatile progress snapshot kept per import job. It serves
// sub-second polling during active processing; the durable job row remains
// authoritative across restarts and for terminal states.
type JobProgress struct {
	Status          string    `json:"status"`
	TotalLines      int       `json:"total_lines"`
	ProcessedLines  int       `json:"processed_lines"`
	SuccessfulLines int       `json:"successful_lines"`
	FailedLines     int       `json:"failed_lines"`
	CreatedAt       time.Time `json:"created_at"`
}

// JobCache is the injected progress store abstraction. Tests substitute an
// in-memory fake without reaching into process-wide state.
type JobCache interface {
	Get(jobID string) (JobProgress, bool)
	Set(jobID string, p JobProgress)
	Delete(jobID string)
}

// MemoryJobCache is a mutex-guarded map implementation of JobCache. It has no
// eviction; job count is operationally small.
type MemoryJobCache struct {
	mu   sync.RWMutex
	jobs map[string]JobProgress
}

// NewMemoryJobCache creates an empty in-memory job cache.
func NewMemoryJobCache() *MemoryJobCache {
	return &MemoryJobCache{jobs: make(map[string]JobProgress)}
}

// Get returns the last-known progress for a job, if this process has seen it.
func (c *MemoryJobCache) Get(jobID string) (JobProgress, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.jobs[jobID]
	return p, ok
}

// Set stores the latest progress snapshot for a job.
func (c *MemoryJobCache) Set(jobID string, p JobProgress) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.jobs[jobID] = p
}

// Delete removes a job's snapshot. No-op if absent.
func (c *MemoryJobCache) Delete(jobID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.jobs, jobID)
}
