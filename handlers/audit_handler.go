package handlers

import (
	"net/http"
	"strconv"

	"github.com/finsolve/knowledge-gateway/middleware"
	"github.com/finsolve/knowledge-gateway/models"
	"github.com/finsolve/knowledge-gateway/repositories"
	"github.com/finsolve/knowledge-gateway/utils"
	"go.uber.org/zap"
)

const (
	defaultAuditPageSize = 50
	maxAuditPageSize     = 500
)

// AuditListResponse is the wire shape of GET /api/v1/audit/records
type AuditListResponse struct {
	Records []*models.AuditRecord `json:"records"`
	Limit   int                   `json:"limit"`
	Offset  int                   `json:"offset"`
}

// AuditHandler serves the read side of the audit trail. Writes only ever
// happen through the async recorder.
type AuditHandler struct {
	repo   repositories.AuditRepository
	logger *zap.Logger
}

// NewAuditHandler creates a new AuditHandler
func NewAuditHandler(repo repositories.AuditRepository, logger *zap.Logger) *AuditHandler {
	return &AuditHandler{
		repo:   repo,
		logger: logger,
	}
}

// HandleListRecords handles GET /api/v1/audit/records
func (h *AuditHandler) HandleListRecords(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	limit := queryInt(r, "limit", defaultAuditPageSize)
	if limit <= 0 || limit > maxAuditPageSize {
		limit = defaultAuditPageSize
	}
	offset := queryInt(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	records, err := h.repo.List(ctx, limit, offset)
	if err != nil {
		h.logger.Error("failed to list audit records",
			zap.String("request_id", requestID),
			zap.Error(err))
		_ = utils.WriteInternalServerError(w, "")
		return
	}

	if records == nil {
		records = []*models.AuditRecord{}
	}

	_ = utils.WriteOK(w, AuditListResponse{
		Records: records,
		Limit:   limit,
		Offset:  offset,
	})
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}
