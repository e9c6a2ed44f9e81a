package retrieval

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/finsolve/knowledge-gateway/models"
	"github.com/finsolve/knowledge-gateway/services"
)

// MemoryIndex is an in-process Index over a fixed chunk set. Suitable for
// tests and small single-node deployments; the Postgres-backed StoreIndex
// covers everything else.
type MemoryIndex struct {
	mu        sync.RWMutex
	byDept    map[models.DepartmentID][]*models.DocumentChunk
	overFetch int
}

// NewMemoryIndex builds an index grouping chunks by department tag.
func NewMemoryIndex(chunks []*models.DocumentChunk, overFetch int) *MemoryIndex {
	if overFetch < 2 {
		overFetch = DefaultOverFetch
	}
	byDept := make(map[models.DepartmentID][]*models.DocumentChunk)
	for _, c := range chunks {
		byDept[c.DepartmentTag] = append(byDept[c.DepartmentTag], c)
	}
	return &MemoryIndex{byDept: byDept, overFetch: overFetch}
}

type scoredChunk struct {
	chunk      *models.DocumentChunk
	similarity float64
}

// Search retrieves the top-(k*m) chunks per authorized department for each
// query vector. Departments outside the access set are never consulted, so
// the access invariant holds by construction. An empty access set returns
// no candidates without touching the index.
func (ix *MemoryIndex) Search(ctx context.Context, vectors [][]float32, accessSet []models.DepartmentID, k int) ([]models.Candidate, error) {
	if len(accessSet) == 0 || len(vectors) == 0 || k <= 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, services.ErrRetrievalTimeout
		}
		return nil, services.WrapInternal("search aborted", err)
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	perDept := k * ix.overFetch
	var out []models.Candidate

	for _, vec := range vectors {
		for _, dept := range accessSet {
			chunks := ix.byDept[dept]
			if len(chunks) == 0 {
				continue
			}

			scored := make([]scoredChunk, 0, len(chunks))
			for _, c := range chunks {
				scored = append(scored, scoredChunk{
					chunk:      c,
					similarity: CosineSimilarity(vec, c.Embedding),
				})
			}

			// Similarity desc; ties broken by recency desc then
			// document ID asc for determinism.
			sort.SliceStable(scored, func(i, j int) bool {
				if scored[i].similarity != scored[j].similarity {
					return scored[i].similarity > scored[j].similarity
				}
				if !scored[i].chunk.CreatedAt.Equal(scored[j].chunk.CreatedAt) {
					return scored[i].chunk.CreatedAt.After(scored[j].chunk.CreatedAt)
				}
				return scored[i].chunk.SourceDocumentID < scored[j].chunk.SourceDocumentID
			})

			limit := perDept
			if limit > len(scored) {
				limit = len(scored)
			}
			for _, s := range scored[:limit] {
				out = append(out, models.Candidate{
					ChunkID:       s.chunk.ChunkID,
					Similarity:    s.similarity,
					DepartmentTag: s.chunk.DepartmentTag,
				})
			}
		}
	}

	return out, nil
}

// Chunk returns the chunk with the given ID, or nil when absent.
func (ix *MemoryIndex) Chunk(chunkID string) *models.DocumentChunk {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	for _, chunks := range ix.byDept {
		for _, c := range chunks {
			if c.ChunkID == chunkID {
				return c
			}
		}
	}
	return nil
}
