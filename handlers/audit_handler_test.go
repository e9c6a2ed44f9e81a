package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/finsolve/knowledge-gateway/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stubAuditRepo returns canned records and captures paging arguments.
type stubAuditRepo struct {
	records    []*models.AuditRecord
	err        error
	gotLimit   int
	gotOffset  int
}

func (s *stubAuditRepo) Insert(ctx context.Context, record *models.AuditRecord) error {
	return errors.New("read-only in this test")
}

func (s *stubAuditRepo) List(ctx context.Context, limit, offset int) ([]*models.AuditRecord, error) {
	s.gotLimit = limit
	s.gotOffset = offset
	if s.err != nil {
		return nil, s.err
	}
	return s.records, nil
}

func TestHandleListRecords(t *testing.T) {
	logger := zap.NewNop()

	t.Run("returns records with paging", func(t *testing.T) {
		repo := &stubAuditRepo{records: []*models.AuditRecord{
			models.NewAuditRecord("alice", "finance_employee", "revenue?", models.DecisionAnswered),
		}}
		h := NewAuditHandler(repo, logger)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/audit/records?limit=10&offset=20", nil)
		w := httptest.NewRecorder()
		h.HandleListRecords(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 10, repo.gotLimit)
		assert.Equal(t, 20, repo.gotOffset)

		var resp AuditListResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Len(t, resp.Records, 1)
		assert.Equal(t, "alice", resp.Records[0].RequesterIdentity)
	})

	t.Run("bad paging falls back to defaults", func(t *testing.T) {
		repo := &stubAuditRepo{}
		h := NewAuditHandler(repo, logger)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/audit/records?limit=-5&offset=junk", nil)
		w := httptest.NewRecorder()
		h.HandleListRecords(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, defaultAuditPageSize, repo.gotLimit)
		assert.Equal(t, 0, repo.gotOffset)
	})

	t.Run("oversized limit is clamped", func(t *testing.T) {
		repo := &stubAuditRepo{}
		h := NewAuditHandler(repo, zap.NewNop())

		req := httptest.NewRequest(http.MethodGet, "/api/v1/audit/records?limit=9999", nil)
		w := httptest.NewRecorder()
		h.HandleListRecords(w, req)

		assert.Equal(t, defaultAuditPageSize, repo.gotLimit)
	})

	t.Run("empty trail yields an empty array not null", func(t *testing.T) {
		h := NewAuditHandler(&stubAuditRepo{}, logger)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/audit/records", nil)
		w := httptest.NewRecorder()
		h.HandleListRecords(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"records":[]`)
	})

	t.Run("repository failure returns 500", func(t *testing.T) {
		h := NewAuditHandler(&stubAuditRepo{err: errors.New("sink down")}, logger)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/audit/records", nil)
		w := httptest.NewRecorder()
		h.HandleListRecords(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}
