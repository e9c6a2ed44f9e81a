package audit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/finsolve/knowledge-gateway/models"
	"github.com/finsolve/knowledge-gateway/repositories"
	"go.uber.org/zap"
)

// Recorder appends access decisions to the audit sink asynchronously.
// Record is fire-and-forget: a failed or dropped write is logged locally and
// never alters or aborts the user-facing response it describes.
type Recorder struct {
	auditRepo   repositories.AuditRepository
	logger      *zap.Logger
	eventChan   chan *models.AuditRecord
	workerCount int
	bufferSize  int
	wg          sync.WaitGroup
	started     bool
	mu          sync.Mutex
}

// Config holds configuration for the Recorder
type Config struct {
	BufferSize  int // Size of the event buffer channel
	WorkerCount int // Number of concurrent writers
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		BufferSize:  10000,
		WorkerCount: 4,
	}
}

// NewRecorder creates a new Recorder instance
func NewRecorder(auditRepo repositories.AuditRepository, logger *zap.Logger, config Config) *Recorder {
	return &Recorder{
		auditRepo:   auditRepo,
		logger:      logger,
		eventChan:   make(chan *models.AuditRecord, config.BufferSize),
		workerCount: config.WorkerCount,
		bufferSize:  config.BufferSize,
	}
}

// Start starts the background writers
func (r *Recorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return fmt.Errorf("audit recorder already started")
	}

	for i := 0; i < r.workerCount; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}

	r.started = true
	r.logger.Info("started audit recorder",
		zap.Int("worker_count", r.workerCount),
		zap.Int("buffer_size", r.bufferSize))

	return nil
}

// Stop drains pending records and stops the writers. Waits up to timeout.
func (r *Recorder) Stop(timeout time.Duration) error {
	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		return fmt.Errorf("audit recorder not started")
	}
	r.started = false
	r.mu.Unlock()

	r.logger.Info("stopping audit recorder", zap.Int("pending_records", len(r.eventChan)))
	close(r.eventChan)

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("audit recorder stopped gracefully")
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("audit recorder stop timeout after %v", timeout)
	}
}

// Record enqueues a record without blocking. When the buffer is full the
// record is dropped with a local warning; the caller's response is already
// computed and must not be disturbed.
func (r *Recorder) Record(record *models.AuditRecord) {
	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		r.logger.Warn("audit recorder not started, dropping record",
			zap.String("decision", string(record.Decision)))
		return
	}
	r.mu.Unlock()

	select {
	case r.eventChan <- record:
	default:
		r.logger.Warn("audit buffer full, dropping record",
			zap.String("decision", string(record.Decision)),
			zap.String("role", string(record.RoleAtTime)))
	}
}

// worker drains the channel into the repository.
func (r *Recorder) worker(id int) {
	defer r.wg.Done()

	r.logger.Debug("audit writer started", zap.Int("worker_id", id))

	for record := range r.eventChan {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := r.auditRepo.Insert(ctx, record); err != nil {
			r.logger.Error("failed to write audit record",
				zap.Int("worker_id", id),
				zap.Error(err),
				zap.String("decision", string(record.Decision)))
		}
		cancel()
	}

	r.logger.Debug("audit writer stopped", zap.Int("worker_id", id))
}

// Stats represents recorder statistics
type Stats struct {
	BufferSize     int
	PendingRecords int
	WorkerCount    int
	Started        bool
}

// GetStats returns statistics about the recorder
func (r *Recorder) GetStats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	return Stats{
		BufferSize:     r.bufferSize,
		PendingRecords: len(r.eventChan),
		WorkerCount:    r.workerCount,
		Started:        r.started,
	}
}
