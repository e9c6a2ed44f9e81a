package ask

import (
	"github.com/finsolve/knowledge-gateway/models"
	"github.com/finsolve/knowledge-gateway/services/synthesis"
)

// Request is one caller's question plus the identity it arrived under.
type Request struct {
	Identity  string
	Role      models.RoleID
	QueryText string
	RequestID string
}

// Response is the engine's answer. NoAuthorizedContent is a defined success
// outcome, not an error: the caller's role simply grants nothing relevant.
type Response struct {
	AnswerText              string                `json:"answer_text"`
	Citations               []synthesis.Citation  `json:"citations"`
	Confidence              float64               `json:"confidence"`
	AccessDeniedDepartments []models.DepartmentID `json:"access_denied_departments"`
	NoAuthorizedContent     bool                  `json:"no_authorized_content"`
	CitationOnly            bool                  `json:"citation_only,omitempty"`
}
