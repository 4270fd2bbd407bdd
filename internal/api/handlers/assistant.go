package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/dinehq/maitred/internal/api"
	"github.com/dinehq/maitred/internal/api/middleware"
	"github.com/dinehq/maitred/internal/service"
)

type AssistantService interface {
	Query(ctx context.Context, req service.AssistantRequest) (*service.AssistantResponse, error)
}

type ConversationService interface {
	Reset(ctx context.Context, tenantID, userID string) error
}

type AssistantHandler struct {
	svc           AssistantService
	conversations ConversationService
}

func NewAssistantHandler(svc AssistantService, conversations ConversationService) *AssistantHandler {
	return &AssistantHandler{svc: svc, conversations: conversations}
}

type QueryRequest struct {
	Query string `json:"query"`
}

// Query runs one operator query through the assistant pipeline. The
// tenant comes from the API key; the operator from X-User-ID.
func (h *AssistantHandler) Query(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	if tenantID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusBadRequest, "X-User-ID header is required")
		return
	}

	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		api.Error(w, http.StatusBadRequest, "query is required")
		return
	}

	resp, err := h.svc.Query(r.Context(), service.AssistantRequest{
		TenantID: tenantID,
		UserID:   userID,
		Query:    req.Query,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, resp)
}

// ResetConversation clears the operator's dialogue window and last result
func (h *AssistantHandler) ResetConversation(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	if tenantID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusBadRequest, "X-User-ID header is required")
		return
	}

	if err := h.conversations.Reset(r.Context(), tenantID, userID); err != nil {
		api.HandleError(w, err)
		return
	}

	api.JSON(w, http.StatusNoContent, nil)
}
