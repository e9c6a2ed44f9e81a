package retrieval

import (
	"context"
	"errors"

	"github.com/finsolve/knowledge-gateway/models"
	"github.com/finsolve/knowledge-gateway/repositories"
	"github.com/finsolve/knowledge-gateway/services"
	"go.uber.org/zap"
)

// StoreIndex is an Index backed by the chunk repository. Each authorized
// department is queried directly for its own top-(k*m), so the filter is
// part of candidate selection rather than a post-hoc pass.
type StoreIndex struct {
	chunks    repositories.ChunkRepository
	overFetch int
	logger    *zap.Logger
}

// NewStoreIndex creates an index over the chunk repository.
func NewStoreIndex(chunks repositories.ChunkRepository, overFetch int, logger *zap.Logger) *StoreIndex {
	if overFetch < 2 {
		overFetch = DefaultOverFetch
	}
	return &StoreIndex{
		chunks:    chunks,
		overFetch: overFetch,
		logger:    logger,
	}
}

// Search queries each (vector, department) pair and unions the results.
// An empty access set short-circuits without touching the store. Failures
// surface as retryable errors; the caller never receives a partial pool.
func (ix *StoreIndex) Search(ctx context.Context, vectors [][]float32, accessSet []models.DepartmentID, k int) ([]models.Candidate, error) {
	if len(accessSet) == 0 || len(vectors) == 0 || k <= 0 {
		return nil, nil
	}

	perDept := k * ix.overFetch
	var out []models.Candidate

	for _, vec := range vectors {
		for _, dept := range accessSet {
			candidates, err := ix.chunks.SearchDepartment(ctx, vec, dept, perDept)
			if err != nil {
				if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
					ix.logger.Warn("retrieval timed out",
						zap.String("department", string(dept)))
					return nil, services.ErrRetrievalTimeout
				}
				ix.logger.Error("retrieval failed",
					zap.String("department", string(dept)),
					zap.Error(err))
				return nil, &services.DomainError{
					Type:      services.ErrorTypeExternal,
					Message:   "retrieval index unavailable",
					Err:       err,
					Retryable: true,
				}
			}
			out = append(out, candidates...)
		}
	}

	return out, nil
}
