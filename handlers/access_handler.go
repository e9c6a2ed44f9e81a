package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/finsolve/knowledge-gateway/middleware"
	"github.com/finsolve/knowledge-gateway/models"
	"github.com/finsolve/knowledge-gateway/services"
	"github.com/finsolve/knowledge-gateway/services/suggest"
	"github.com/finsolve/knowledge-gateway/utils"
	"go.uber.org/zap"
)

// AccessService answers authorization questions about the caller's role
type AccessService interface {
	ValidateAccess(roleID models.RoleID, department models.DepartmentID) bool
	AccessibleDepartments(roleID models.RoleID) ([]models.DepartmentID, error)
}

// AccessResponse is the wire shape of GET /api/v1/access
type AccessResponse struct {
	Role        models.RoleID         `json:"role"`
	Departments []models.DepartmentID `json:"departments"`
}

// AccessCheckResponse is the wire shape of GET /api/v1/access/{department}
type AccessCheckResponse struct {
	Role       models.RoleID       `json:"role"`
	Department models.DepartmentID `json:"department"`
	Allowed    bool                `json:"allowed"`
}

// SuggestionsResponse is the wire shape of GET /api/v1/suggestions
type SuggestionsResponse struct {
	Role        models.RoleID `json:"role"`
	Suggestions []string      `json:"suggestions"`
}

// AccessHandler handles access introspection requests
type AccessHandler struct {
	service AccessService
	logger  *zap.Logger
}

// NewAccessHandler creates a new AccessHandler
func NewAccessHandler(service AccessService, logger *zap.Logger) *AccessHandler {
	return &AccessHandler{
		service: service,
		logger:  logger,
	}
}

// HandleListAccess handles GET /api/v1/access
// Returns every department the caller's role can read, direct and inherited.
func (h *AccessHandler) HandleListAccess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	identity := middleware.GetIdentityFromContext(ctx)
	if identity == nil {
		_ = utils.WriteUnauthorized(w, "Authentication required")
		return
	}

	departments, err := h.service.AccessibleDepartments(identity.Role)
	if err != nil {
		if services.IsUnauthorizedError(err) {
			h.logger.Warn("unknown role on access listing",
				zap.String("request_id", requestID),
				zap.String("role", string(identity.Role)))
			_ = utils.WriteUnauthorized(w, "Role is not recognized")
			return
		}
		_ = utils.WriteInternalServerError(w, "")
		return
	}

	_ = utils.WriteOK(w, AccessResponse{
		Role:        identity.Role,
		Departments: departments,
	})
}

// HandleCheckAccess handles GET /api/v1/access/{department}
func (h *AccessHandler) HandleCheckAccess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identity := middleware.GetIdentityFromContext(ctx)
	if identity == nil {
		_ = utils.WriteUnauthorized(w, "Authentication required")
		return
	}

	department := models.DepartmentID(chi.URLParam(r, "department"))
	if department == "" {
		_ = utils.WriteBadRequest(w, "Department is required", nil)
		return
	}

	// Unknown roles and unknown departments both come back as not allowed;
	// the check endpoint never reveals which departments exist.
	allowed := h.service.ValidateAccess(identity.Role, department)

	_ = utils.WriteOK(w, AccessCheckResponse{
		Role:       identity.Role,
		Department: department,
		Allowed:    allowed,
	})
}

// HandleSuggestions handles GET /api/v1/suggestions
func (h *AccessHandler) HandleSuggestions(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentityFromContext(r.Context())
	if identity == nil {
		_ = utils.WriteUnauthorized(w, "Authentication required")
		return
	}

	_ = utils.WriteOK(w, SuggestionsResponse{
		Role:        identity.Role,
		Suggestions: suggest.ForRole(identity.Role),
	})
}
