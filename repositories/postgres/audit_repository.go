package postgres

import (
	"context"
	"fmt"

	"github.com/lib/pq"
	"github.com/finsolve/knowledge-gateway/models"
	"github.com/finsolve/knowledge-gateway/repositories"
	"go.uber.org/zap"
)

// AuditRepository implements repositories.AuditRepository over Postgres.
// The audit_records table is append-only; no update or delete statement
// exists anywhere in this package.
type AuditRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *DB, logger *zap.Logger) repositories.AuditRepository {
	return &AuditRepository{
		db:     db,
		logger: logger,
	}
}

// Insert appends a new audit record.
func (r *AuditRepository) Insert(ctx context.Context, record *models.AuditRecord) error {
	query := `
		INSERT INTO audit_records (
			id, requester_identity, role_at_time, query_text,
			accessed_chunk_ids, decision, request_id, timestamp
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		record.ID,
		record.RequesterIdentity,
		record.RoleAtTime,
		record.QueryText,
		pq.Array(record.AccessedChunkIDs),
		record.Decision,
		record.RequestID,
		record.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit record: %w", err)
	}

	r.logger.Debug("audit record inserted",
		zap.String("id", record.ID.String()),
		zap.String("decision", string(record.Decision)))
	return nil
}

// List retrieves audit records newest first with pagination.
func (r *AuditRepository) List(ctx context.Context, limit, offset int) ([]*models.AuditRecord, error) {
	query := `
		SELECT id, requester_identity, role_at_time, query_text,
		       accessed_chunk_ids, decision, request_id, timestamp
		FROM audit_records
		ORDER BY timestamp DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit records: %w", err)
	}
	defer rows.Close()

	var records []*models.AuditRecord
	for rows.Next() {
		record := &models.AuditRecord{}
		err := rows.Scan(
			&record.ID,
			&record.RequesterIdentity,
			&record.RoleAtTime,
			&record.QueryText,
			pq.Array(&record.AccessedChunkIDs),
			&record.Decision,
			&record.RequestID,
			&record.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit record: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate audit records: %w", err)
	}

	return records, nil
}
