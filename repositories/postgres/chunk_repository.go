package postgres

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"
	"github.com/finsolve/knowledge-gateway/models"
	"github.com/finsolve/knowledge-gateway/repositories"
	"go.uber.org/zap"
)

// ChunkRepository implements repositories.ChunkRepository over a Postgres
// table with a pgvector embedding column. Read-only: ingestion owns writes.
type ChunkRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewChunkRepository creates a new chunk repository
func NewChunkRepository(db *DB, logger *zap.Logger) repositories.ChunkRepository {
	return &ChunkRepository{
		db:     db,
		logger: logger,
	}
}

// SearchDepartment runs a filtered nearest-neighbor query for one
// department. The WHERE clause applies the department filter inside the
// index scan, so unauthorized content never enters the candidate pool.
// pgvector's <=> operator is cosine distance; similarity = 1 - distance.
func (r *ChunkRepository) SearchDepartment(ctx context.Context, vector []float32, department models.DepartmentID, limit int) ([]models.Candidate, error) {
	query := `
		SELECT chunk_id, department_tag, 1 - (embedding <=> $1::vector) AS similarity
		FROM document_chunks
		WHERE department_tag = $2
		ORDER BY similarity DESC, created_at DESC, source_document_id ASC
		LIMIT $3
	`

	rows, err := r.db.QueryContext(ctx, query, vectorLiteral(vector), department, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search department %s: %w", department, err)
	}
	defer rows.Close()

	var candidates []models.Candidate
	for rows.Next() {
		var c models.Candidate
		if err := rows.Scan(&c.ChunkID, &c.DepartmentTag, &c.Similarity); err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate candidates: %w", err)
	}

	r.logger.Debug("department search completed",
		zap.String("department", string(department)),
		zap.Int("candidates", len(candidates)))
	return candidates, nil
}

// GetByIDs fetches full chunk rows for context assembly and citations.
func (r *ChunkRepository) GetByIDs(ctx context.Context, chunkIDs []string) ([]*models.DocumentChunk, error) {
	if len(chunkIDs) == 0 {
		return nil, nil
	}

	query := `
		SELECT chunk_id, text, department_tag, source_document_id, position, created_at
		FROM document_chunks
		WHERE chunk_id = ANY($1)
	`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(chunkIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to get chunks: %w", err)
	}
	defer rows.Close()

	var chunks []*models.DocumentChunk
	for rows.Next() {
		chunk := &models.DocumentChunk{}
		err := rows.Scan(
			&chunk.ChunkID,
			&chunk.Text,
			&chunk.DepartmentTag,
			&chunk.SourceDocumentID,
			&chunk.Position,
			&chunk.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		chunks = append(chunks, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate chunks: %w", err)
	}

	return chunks, nil
}

// vectorLiteral renders a float32 slice in pgvector's input format.
func vectorLiteral(v []float32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(f), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}
