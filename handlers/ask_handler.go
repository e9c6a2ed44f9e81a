package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/finsolve/knowledge-gateway/middleware"
	"github.com/finsolve/knowledge-gateway/services"
	"github.com/finsolve/knowledge-gateway/services/ask"
	"github.com/finsolve/knowledge-gateway/utils"
	"go.uber.org/zap"
)

// AskRequest is the wire shape of POST /api/v1/ask
type AskRequest struct {
	Query string `json:"query" validate:"required,min=1,max=4096"`
}

// AskService defines the interface for the question answering pipeline
type AskService interface {
	Ask(ctx context.Context, req ask.Request) (*ask.Response, error)
}

// AskHandler handles question answering requests
type AskHandler struct {
	service AskService
	logger  *zap.Logger
}

// NewAskHandler creates a new AskHandler
func NewAskHandler(service AskService, logger *zap.Logger) *AskHandler {
	return &AskHandler{
		service: service,
		logger:  logger,
	}
}

// HandleAsk handles POST /api/v1/ask
func (h *AskHandler) HandleAsk(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	identity := middleware.GetIdentityFromContext(ctx)
	if identity == nil {
		h.logger.Error("identity not found in context",
			zap.String("request_id", requestID))
		_ = utils.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}

	if err := utils.ValidateStruct(&req); err != nil {
		var validationErr *utils.ValidationError
		if errors.As(err, &validationErr) {
			_ = utils.WriteBadRequest(w, validationErr.Message, validationErr.FieldDetails())
			return
		}
		_ = utils.WriteBadRequest(w, "Invalid request", nil)
		return
	}

	resp, err := h.service.Ask(ctx, ask.Request{
		Identity:  identity.Subject,
		Role:      identity.Role,
		QueryText: req.Query,
		RequestID: requestID,
	})
	if err != nil {
		h.writeServiceError(w, requestID, err)
		return
	}

	_ = utils.WriteOK(w, resp)
}

// writeServiceError maps domain errors to HTTP status codes
func (h *AskHandler) writeServiceError(w http.ResponseWriter, requestID string, err error) {
	h.logger.Warn("ask request failed",
		zap.String("request_id", requestID),
		zap.Error(err))

	switch services.GetErrorType(err) {
	case services.ErrorTypeValidation:
		_ = utils.WriteBadRequest(w, err.Error(), services.GetErrorDetails(err))
	case services.ErrorTypeUnauthorized:
		_ = utils.WriteUnauthorized(w, "Role is not recognized")
	case services.ErrorTypeForbidden:
		_ = utils.WriteForbidden(w, "")
	case services.ErrorTypeTimeout:
		_ = utils.WriteGatewayTimeout(w, "Upstream service timed out, retry the request")
	case services.ErrorTypeExternal:
		_ = utils.WriteServiceUnavailable(w, "Upstream service unavailable, retry the request")
	default:
		_ = utils.WriteInternalServerError(w, "")
	}
}
