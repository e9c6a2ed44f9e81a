package models

import "time"

// DocumentChunk is the minimal retrievable unit of document text. Chunks are
// produced by ingestion and are read-only inside this service. Authorization
// derives solely from DepartmentTag plus the role graph; a chunk never carries
// its own role list.
type DocumentChunk struct {
	ChunkID          string       `json:"chunk_id" db:"chunk_id"`
	Text             string       `json:"text" db:"text"`
	Embedding        []float32    `json:"-" db:"embedding"`
	DepartmentTag    DepartmentID `json:"department_tag" db:"department_tag"`
	SourceDocumentID string       `json:"source_document_id" db:"source_document_id"`
	Position         int          `json:"position" db:"position"`
	CreatedAt        time.Time    `json:"created_at" db:"created_at"`
}
