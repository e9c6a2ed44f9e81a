package repositories

import (
	"context"

	"github.com/finsolve/knowledge-gateway/models"
)

// AuditRepository is the append-only audit sink. There is deliberately no
// update or delete operation.
type AuditRepository interface {
	Insert(ctx context.Context, record *models.AuditRecord) error
	List(ctx context.Context, limit, offset int) ([]*models.AuditRecord, error)
}

// ChunkRepository provides read access to the ingested chunk store.
// Ingestion writes are out of scope for this service.
type ChunkRepository interface {
	// SearchDepartment returns the chunks of one department nearest to the
	// query vector, ordered by cosine similarity descending with ties
	// broken by recency descending then source document ID ascending.
	SearchDepartment(ctx context.Context, vector []float32, department models.DepartmentID, limit int) ([]models.Candidate, error)

	// GetByIDs fetches full chunks for citation and context assembly.
	GetByIDs(ctx context.Context, chunkIDs []string) ([]*models.DocumentChunk, error)
}
