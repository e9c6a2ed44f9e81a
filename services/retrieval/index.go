package retrieval

import (
	"context"
	"math"

	"github.com/finsolve/knowledge-gateway/models"
)

// DefaultOverFetch is the per-department over-retrieval multiplier. Each
// authorized department contributes up to k*m candidates so that a caller
// with narrow access is never starved by an unfiltered global top-k.
const DefaultOverFetch = 3

// Index performs filtered nearest-neighbor search. Implementations MUST
// apply the access set during candidate selection, never as a post-hoc
// filter over an unrestricted global top-k. The hard invariant: no returned
// candidate's department tag lies outside the access set.
type Index interface {
	// Search runs every query vector against the index and returns the
	// union of per-vector candidates. Duplicate chunk IDs across vectors
	// are expected; the re-ranker merges them.
	Search(ctx context.Context, vectors [][]float32, accessSet []models.DepartmentID, k int) ([]models.Candidate, error)
}

// CosineSimilarity computes the cosine of the angle between two vectors.
// Mismatched lengths and zero vectors score zero.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
