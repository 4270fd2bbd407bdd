package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/dinehq/maitred/internal/api"
	"github.com/dinehq/maitred/internal/domain"
)

type AuthService interface {
	CreateTenant(ctx context.Context, name string, taxRate float64) (*domain.Tenant, error)
	CreateAPIKey(ctx context.Context, tenantID, name string) (string, error)
}

type MembershipService interface {
	Grant(ctx context.Context, m *domain.Membership) error
	ListMembers(ctx context.Context, tenantID string) ([]*domain.Membership, error)
}

type AuthHandler struct {
	svc         AuthService
	memberships MembershipService
}

func NewAuthHandler(svc AuthService, memberships MembershipService) *AuthHandler {
	return &AuthHandler{svc: svc, memberships: memberships}
}

type CreateTenantRequest struct {
	Name    string  `json:"name"`
	TaxRate float64 `json:"tax_rate"`
}

type TenantResponse struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	TaxRate   float64 `json:"tax_rate"`
	Currency  string  `json:"currency"`
	CreatedAt string  `json:"created_at"`
}

type CreateAPIKeyRequest struct {
	TenantID string `json:"tenant_id"`
	Name     string `json:"name"`
}

type APIKeyResponse struct {
	Token string `json:"token"`
	Name  string `json:"name"`
}

type GrantMembershipRequest struct {
	TenantID    string   `json:"tenant_id"`
	UserID      string   `json:"user_id"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
}

func (h *AuthHandler) CreateTenant(w http.ResponseWriter, r *http.Request) {
	var req CreateTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name == "" {
		api.Error(w, http.StatusBadRequest, "name is required")
		return
	}

	tenant, err := h.svc.CreateTenant(r.Context(), req.Name, req.TaxRate)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, TenantResponse{
		ID:        tenant.ID,
		Name:      tenant.Name,
		TaxRate:   tenant.TaxRate,
		Currency:  tenant.Currency,
		CreatedAt: tenant.CreatedAt.Format("2006-01-02T15:04:05Z"),
	})
}

func (h *AuthHandler) CreateAPIKey(w http.ResponseWriter, r *http.Request) {
	var req CreateAPIKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.TenantID == "" {
		api.Error(w, http.StatusBadRequest, "tenant_id is required")
		return
	}
	if req.Name == "" {
		api.Error(w, http.StatusBadRequest, "name is required")
		return
	}

	token, err := h.svc.CreateAPIKey(r.Context(), req.TenantID, req.Name)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, APIKeyResponse{
		Token: token,
		Name:  req.Name,
	})
}

func (h *AuthHandler) GrantMembership(w http.ResponseWriter, r *http.Request) {
	var req GrantMembershipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.TenantID == "" || req.UserID == "" {
		api.Error(w, http.StatusBadRequest, "tenant_id and user_id are required")
		return
	}
	role := domain.Role(req.Role)
	switch role {
	case domain.RoleOwner, domain.RoleManager, domain.RoleStaff, domain.RoleViewer:
	default:
		api.Error(w, http.StatusBadRequest, "invalid role")
		return
	}

	err := h.memberships.Grant(r.Context(), &domain.Membership{
		UserID:      req.UserID,
		TenantID:    req.TenantID,
		Role:        role,
		Permissions: req.Permissions,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, map[string]string{
		"tenant_id": req.TenantID,
		"user_id":   req.UserID,
		"role":      req.Role,
	})
}
