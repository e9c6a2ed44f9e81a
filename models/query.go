package models

import "time"

// Intent is a coarse classification of what a query is asking for. The
// re-ranker and confidence scorer use it to weight candidates.
type Intent string

const (
	IntentDefinitional Intent = "definitional"
	IntentQuantitative Intent = "quantitative"
	IntentComparative  Intent = "comparative"
	IntentProcedural   Intent = "procedural"
	IntentGeneral      Intent = "general"
)

// Query carries one request's normalized question. It exists only for the
// duration of a single request and is never shared.
type Query struct {
	RawText        string
	NormalizedText string
	Variants       []string
	Intent         Intent
	RequesterRole  RoleID
	Timestamp      time.Time
}

// Candidate is a chunk returned by the retrieval index prior to ranking.
// Transient, per-request.
type Candidate struct {
	ChunkID       string
	Similarity    float64
	DepartmentTag DepartmentID
}

// RankedResult is a candidate after merging, deduplication and re-ranking.
// Similarity is the merged raw similarity; FinalScore additionally carries
// the intent bonus and drives ordering only.
type RankedResult struct {
	ChunkID      string
	Similarity   float64
	FinalScore   float64
	Rank         int
	DedupGroupID string
}
