// Package ledger records completed jobs so a redelivered job is never
// rerun (and never re-billed against the LLM).
package ledger

import (
	"context"
	"sync"

	"github.com/convertfix/audit-service/internal/audit"
)

// Memory is the in-process ledger used in development. It forgets on
// restart, which matches the durability of the memory queue.
type Memory struct {
	mu      sync.RWMutex
	records map[string]audit.CompletionRecord
}

// NewMemory creates an empty in-memory ledger.
func NewMemory() *Memory {
	return &Memory{records: make(map[string]audit.CompletionRecord)}
}

// Completed reports whether the job already finished.
func (m *Memory) Completed(_ context.Context, jobID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.records[jobID]
	return ok, nil
}

// MarkCompleted stores the completion record. Marking twice is
// harmless; the first record wins.
func (m *Memory) MarkCompleted(_ context.Context, rec audit.CompletionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[rec.JobID]; !ok {
		m.records[rec.JobID] = rec
	}
	return nil
}

// Record returns the stored record for a job, for test assertions.
func (m *Memory) Record(jobID string) (audit.CompletionRecord, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[jobID]
	return rec, ok
}
