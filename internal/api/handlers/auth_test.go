package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dinehq/maitred/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) CreateTenant(ctx context.Context, name string, taxRate float64) (*domain.Tenant, error) {
	args := m.Called(ctx, name, taxRate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Tenant), args.Error(1)
}

func (m *MockAuthService) CreateAPIKey(ctx context.Context, tenantID, name string) (string, error) {
	args := m.Called(ctx, tenantID, name)
	return args.String(0), args.Error(1)
}

type MockMembershipService struct {
	mock.Mock
}

func (m *MockMembershipService) Grant(ctx context.Context, membership *domain.Membership) error {
	args := m.Called(ctx, membership)
	return args.Error(0)
}

func (m *MockMembershipService) ListMembers(ctx context.Context, tenantID string) ([]*domain.Membership, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Membership), args.Error(1)
}

func TestAuthHandler_CreateTenant(t *testing.T) {
	mockSvc := new(MockAuthService)
	handler := NewAuthHandler(mockSvc, new(MockMembershipService))

	mockSvc.On("CreateTenant", mock.Anything, "Luigi's Trattoria", 0.07).Return(&domain.Tenant{
		ID:        "tenant-1",
		Name:      "Luigi's Trattoria",
		TaxRate:   0.07,
		Currency:  "USD",
		CreatedAt: time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC),
	}, nil)

	body := `{"name":"Luigi's Trattoria","tax_rate":0.07}`
	req := httptest.NewRequest(http.MethodPost, "/tenants", strings.NewReader(body))
	w := httptest.NewRecorder()

	handler.CreateTenant(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp struct {
		Data TenantResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "tenant-1", resp.Data.ID)
	assert.Equal(t, 0.07, resp.Data.TaxRate)
	assert.Equal(t, "USD", resp.Data.Currency)
	mockSvc.AssertExpectations(t)
}

func TestAuthHandler_CreateTenant_MissingName(t *testing.T) {
	handler := NewAuthHandler(new(MockAuthService), new(MockMembershipService))

	req := httptest.NewRequest(http.MethodPost, "/tenants", strings.NewReader(`{"tax_rate":0.05}`))
	w := httptest.NewRecorder()

	handler.CreateTenant(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "name is required")
}

func TestAuthHandler_CreateTenant_InvalidTaxRate(t *testing.T) {
	mockSvc := new(MockAuthService)
	handler := NewAuthHandler(mockSvc, new(MockMembershipService))

	mockSvc.On("CreateTenant", mock.Anything, "Bad Rates", 1.5).
		Return(nil, domain.NewDomainError(domain.ErrCodeValidation, "tenant TaxRate must be in [0, 1)"))

	req := httptest.NewRequest(http.MethodPost, "/tenants", strings.NewReader(`{"name":"Bad Rates","tax_rate":1.5}`))
	w := httptest.NewRecorder()

	handler.CreateTenant(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthHandler_CreateAPIKey(t *testing.T) {
	mockSvc := new(MockAuthService)
	handler := NewAuthHandler(mockSvc, new(MockMembershipService))

	token := "mtd_" + strings.Repeat("ab12", 16)
	mockSvc.On("CreateAPIKey", mock.Anything, "tenant-1", "pos-terminal").Return(token, nil)

	body := `{"tenant_id":"tenant-1","name":"pos-terminal"}`
	req := httptest.NewRequest(http.MethodPost, "/apikeys", strings.NewReader(body))
	w := httptest.NewRecorder()

	handler.CreateAPIKey(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp struct {
		Data APIKeyResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, token, resp.Data.Token)
	assert.Equal(t, "pos-terminal", resp.Data.Name)
}

func TestAuthHandler_CreateAPIKey_MissingFields(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "no tenant_id", body: `{"name":"pos"}`, want: "tenant_id is required"},
		{name: "no name", body: `{"tenant_id":"tenant-1"}`, want: "name is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewAuthHandler(new(MockAuthService), new(MockMembershipService))

			req := httptest.NewRequest(http.MethodPost, "/apikeys", strings.NewReader(tt.body))
			w := httptest.NewRecorder()

			handler.CreateAPIKey(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), tt.want)
		})
	}
}

func TestAuthHandler_CreateAPIKey_TenantNotFound(t *testing.T) {
	mockSvc := new(MockAuthService)
	handler := NewAuthHandler(mockSvc, new(MockMembershipService))

	mockSvc.On("CreateAPIKey", mock.Anything, "ghost", "pos").Return("", domain.ErrTenantNotFound)

	req := httptest.NewRequest(http.MethodPost, "/apikeys", strings.NewReader(`{"tenant_id":"ghost","name":"pos"}`))
	w := httptest.NewRecorder()

	handler.CreateAPIKey(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAuthHandler_GrantMembership(t *testing.T) {
	mockMemberships := new(MockMembershipService)
	handler := NewAuthHandler(new(MockAuthService), mockMemberships)

	mockMemberships.On("Grant", mock.Anything, mock.MatchedBy(func(m *domain.Membership) bool {
		return m.TenantID == "tenant-1" && m.UserID == "alice" &&
			m.Role == domain.RoleStaff && len(m.Permissions) == 2
	})).Return(nil)

	body := `{"tenant_id":"tenant-1","user_id":"alice","role":"staff","permissions":["orders:read","orders:write"]}`
	req := httptest.NewRequest(http.MethodPost, "/memberships", strings.NewReader(body))
	w := httptest.NewRecorder()

	handler.GrantMembership(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp struct {
		Data map[string]string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "staff", resp.Data["role"])
	mockMemberships.AssertExpectations(t)
}

func TestAuthHandler_GrantMembership_InvalidRole(t *testing.T) {
	mockMemberships := new(MockMembershipService)
	handler := NewAuthHandler(new(MockAuthService), mockMemberships)

	body := `{"tenant_id":"tenant-1","user_id":"alice","role":"superadmin"}`
	req := httptest.NewRequest(http.MethodPost, "/memberships", strings.NewReader(body))
	w := httptest.NewRecorder()

	handler.GrantMembership(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid role")
	mockMemberships.AssertNotCalled(t, "Grant", mock.Anything, mock.Anything)
}

func TestAuthHandler_GrantMembership_MissingIDs(t *testing.T) {
	handler := NewAuthHandler(new(MockAuthService), new(MockMembershipService))

	req := httptest.NewRequest(http.MethodPost, "/memberships", strings.NewReader(`{"role":"staff"}`))
	w := httptest.NewRecorder()

	handler.GrantMembership(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
