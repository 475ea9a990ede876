package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Manager tracks job records and executes submitted jobs on a bounded
// worker pool. Records live in memory for the life of the process.
type Manager struct {
	mu      sync.RWMutex
	records map[string]*Record
	closed  bool

	queue  chan queued
	wg     sync.WaitGroup
	cancel context.CancelFunc
	logger *slog.Logger
}

type queued struct {
	id  string
	job Job
}

// NewManager creates a manager with the given number of workers.
func NewManager(workers int, logger *slog.Logger) *Manager {
	if workers <= 0 {
		workers = 4
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		records: make(map[string]*Record),
		queue:   make(chan queued, 64),
		cancel:  cancel,
		logger:  logger,
	}

	for i := 0; i < workers; i++ {
		m.wg.Add(1)
		go m.worker(ctx)
	}
	return m
}

// Submit queues a job for execution and returns its record id.
func (m *Manager) Submit(job Job) (string, error) {
	id := uuid.NewString()
	rec := &Record{
		ID:        id,
		JobType:   job.Type(),
		Status:    StatusQueued,
		CreatedAt: time.Now().UTC(),
	}

	// The enqueue happens under the lock so Shutdown cannot close the
	// queue between the closed check and the send.
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return "", fmt.Errorf("job manager shut down")
	}
	m.records[id] = rec
	select {
	case m.queue <- queued{id: id, job: job}:
	default:
		delete(m.records, id)
		m.mu.Unlock()
		return "", fmt.Errorf("job queue full")
	}
	m.mu.Unlock()

	m.logger.Info("job submitted", "id", id, "type", job.Type())
	return id, nil
}

// Get returns a copy of the job record.
func (m *Manager) Get(id string) (*Record, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[id]
	if !ok {
		return nil, false
	}
	cp := *rec
	return &cp, true
}

// List returns all job records, newest first.
func (m *Manager) List() []*Record {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Record, 0, len(m.records))
	for _, rec := range m.records {
		cp := *rec
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Shutdown stops accepting work and waits for running jobs to finish.
func (m *Manager) Shutdown() {
	m.cancel()

	m.mu.Lock()
	alreadyClosed := m.closed
	m.closed = true
	m.mu.Unlock()
	if !alreadyClosed {
		close(m.queue)
	}

	m.wg.Wait()
}

func (m *Manager) worker(ctx context.Context) {
	defer m.wg.Done()
	for q := range m.queue {
		if ctx.Err() != nil {
			m.setStatus(q.id, StatusFailed, ctx.Err().Error())
			continue
		}
		m.run(ctx, q)
	}
}

func (m *Manager) run(ctx context.Context, q queued) {
	m.setStatus(q.id, StatusRunning, "")

	err := q.job.Execute(ctx)

	if progress, perr := q.job.Status(ctx); perr == nil && progress != nil {
		m.mu.Lock()
		if rec, ok := m.records[q.id]; ok {
			rec.Progress = progress
		}
		m.mu.Unlock()
	}

	if err != nil {
		m.setStatus(q.id, StatusFailed, err.Error())
		m.logger.Error("job failed", "id", q.id, "type", q.job.Type(), "error", err)
		return
	}
	m.setStatus(q.id, StatusCompleted, "")
	m.logger.Info("job completed", "id", q.id, "type", q.job.Type())
}

func (m *Manager) setStatus(id string, status Status, errMsg string) {
	now := time.Now().UTC()

	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[id]
	if !ok {
		return
	}
	rec.Status = status
	rec.Error = errMsg
	switch status {
	case StatusRunning:
		rec.StartedAt = &now
	case StatusCompleted, StatusFailed:
		rec.CompletedAt = &now
	}
}
