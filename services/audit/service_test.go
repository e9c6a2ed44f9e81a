package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/finsolve/knowledge-gateway/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// memoryAuditRepo collects inserted records; optionally fails or blocks.
type memoryAuditRepo struct {
	mu       sync.Mutex
	records  []*models.AuditRecord
	insertErr error
	block    chan struct{}
}

func (m *memoryAuditRepo) Insert(ctx context.Context, record *models.AuditRecord) error {
	if m.block != nil {
		<-m.block
	}
	if m.insertErr != nil {
		return m.insertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, record)
	return nil
}

func (m *memoryAuditRepo) List(ctx context.Context, limit, offset int) ([]*models.AuditRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*models.AuditRecord(nil), m.records...), nil
}

func (m *memoryAuditRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

func TestRecorderLifecycle(t *testing.T) {
	logger := zap.NewNop()

	t.Run("start twice fails", func(t *testing.T) {
		r := NewRecorder(&memoryAuditRepo{}, logger, DefaultConfig())
		require.NoError(t, r.Start())
		assert.Error(t, r.Start())
		require.NoError(t, r.Stop(time.Second))
	})

	t.Run("stop without start fails", func(t *testing.T) {
		r := NewRecorder(&memoryAuditRepo{}, logger, DefaultConfig())
		assert.Error(t, r.Stop(time.Second))
	})

	t.Run("stop drains pending records", func(t *testing.T) {
		repo := &memoryAuditRepo{}
		r := NewRecorder(repo, logger, Config{BufferSize: 100, WorkerCount: 2})
		require.NoError(t, r.Start())

		for i := 0; i < 50; i++ {
			r.Record(models.NewAuditRecord("user", "employee", "q", models.DecisionAnswered))
		}

		require.NoError(t, r.Stop(5*time.Second))
		assert.Equal(t, 50, repo.count())
	})
}

func TestRecord(t *testing.T) {
	logger := zap.NewNop()

	t.Run("record before start is dropped, not queued", func(t *testing.T) {
		repo := &memoryAuditRepo{}
		r := NewRecorder(repo, logger, DefaultConfig())

		r.Record(models.NewAuditRecord("user", "employee", "q", models.DecisionDenied))
		assert.Zero(t, r.GetStats().PendingRecords)
	})

	t.Run("full buffer drops instead of blocking", func(t *testing.T) {
		block := make(chan struct{})
		repo := &memoryAuditRepo{block: block}
		r := NewRecorder(repo, logger, Config{BufferSize: 2, WorkerCount: 1})
		require.NoError(t, r.Start())

		done := make(chan struct{})
		go func() {
			defer close(done)
			// more records than buffer plus the one the worker holds
			for i := 0; i < 10; i++ {
				r.Record(models.NewAuditRecord("user", "employee", "q", models.DecisionAnswered))
			}
		}()

		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("Record blocked on a full buffer")
		}

		close(block)
		require.NoError(t, r.Stop(5*time.Second))
		assert.Less(t, repo.count(), 10)
	})

	t.Run("insert failures are swallowed", func(t *testing.T) {
		repo := &memoryAuditRepo{insertErr: errors.New("sink down")}
		r := NewRecorder(repo, logger, Config{BufferSize: 10, WorkerCount: 1})
		require.NoError(t, r.Start())

		r.Record(models.NewAuditRecord("user", "employee", "q", models.DecisionAnswered))
		require.NoError(t, r.Stop(5*time.Second))
	})
}

func TestGetStats(t *testing.T) {
	r := NewRecorder(&memoryAuditRepo{}, zap.NewNop(), Config{BufferSize: 7, WorkerCount: 3})

	stats := r.GetStats()
	assert.Equal(t, 7, stats.BufferSize)
	assert.Equal(t, 3, stats.WorkerCount)
	assert.False(t, stats.Started)

	require.NoError(t, r.Start())
	assert.True(t, r.GetStats().Started)
	require.NoError(t, r.Stop(time.Second))
}
