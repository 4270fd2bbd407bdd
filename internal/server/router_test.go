package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dinehq/maitred/internal/api/handlers"
	"github.com/dinehq/maitred/internal/domain"
	"github.com/dinehq/maitred/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockAuthValidator struct {
	mock.Mock
}

func (m *MockAuthValidator) ValidateAPIKey(ctx context.Context, token string) (string, error) {
	args := m.Called(ctx, token)
	return args.String(0), args.Error(1)
}

type MockAssistantService struct {
	mock.Mock
}

func (m *MockAssistantService) Query(ctx context.Context, req service.AssistantRequest) (*service.AssistantResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.AssistantResponse), args.Error(1)
}

type MockConversationService struct {
	mock.Mock
}

func (m *MockConversationService) Reset(ctx context.Context, tenantID, userID string) error {
	args := m.Called(ctx, tenantID, userID)
	return args.Error(0)
}

type MockKnowledgeService struct {
	mock.Mock
}

func (m *MockKnowledgeService) Reindex(ctx context.Context, tenantID string) (int, error) {
	args := m.Called(ctx, tenantID)
	return args.Int(0), args.Error(1)
}

func (m *MockKnowledgeService) ListChunks(ctx context.Context, tenantID string) ([]*domain.KnowledgeChunk, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.KnowledgeChunk), args.Error(1)
}

type MockOperationsService struct {
	mock.Mock
}

func (m *MockOperationsService) ListOrders(ctx context.Context, tenantID, cursor string, limit int) (*service.OrderPage, error) {
	args := m.Called(ctx, tenantID, cursor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.OrderPage), args.Error(1)
}

func (m *MockOperationsService) ListTables(ctx context.Context, tenantID string) ([]*domain.Table, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Table), args.Error(1)
}

func (m *MockOperationsService) ListMenu(ctx context.Context, tenantID string) ([]*domain.MenuItem, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.MenuItem), args.Error(1)
}

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

func setupRouter() (http.Handler, *MockAuthValidator, *MockAssistantService, *MockOperationsService, *MockAuthService) {
	authValidator := new(MockAuthValidator)
	assistantSvc := new(MockAssistantService)
	conversationSvc := new(MockConversationService)
	knowledgeSvc := new(MockKnowledgeService)
	operationsSvc := new(MockOperationsService)
	authSvc := new(MockAuthService)
	membershipSvc := new(MockMembershipService)

	cfg := RouterConfig{
		AuthValidator:     authValidator,
		AssistantHandler:  handlers.NewAssistantHandler(assistantSvc, conversationSvc),
		KnowledgeHandler:  handlers.NewKnowledgeHandler(knowledgeSvc),
		OperationsHandler: handlers.NewOperationsHandler(operationsSvc),
		AuthHandler:       handlers.NewAuthHandler(authSvc, membershipSvc),
	}

	router := NewRouter(cfg)
	return router, authValidator, assistantSvc, operationsSvc, authSvc
}

const testToken = "mtd_0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

func TestRouter_HealthEndpoint(t *testing.T) {
	router, _, _, _, _ := setupRouter()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "ok", data["status"])
}

func TestRouter_AuthenticatedRoutes_RequireAuth(t *testing.T) {
	router, authValidator, _, _, _ := setupRouter()

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/assistant/query"},
		{http.MethodDelete, "/assistant/conversation"},
		{http.MethodPost, "/knowledge/reindex"},
		{http.MethodGet, "/knowledge/chunks"},
		{http.MethodGet, "/tables"},
		{http.MethodGet, "/orders"},
		{http.MethodGet, "/menu"},
	}

	for _, route := range routes {
		t.Run(route.method+" "+route.path, func(t *testing.T) {
			req := httptest.NewRequest(route.method, route.path, nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}

	authValidator.AssertExpectations(t)
}

func TestRouter_AssistantQuery_WithValidAuth(t *testing.T) {
	router, authValidator, assistantSvc, _, _ := setupRouter()

	authValidator.On("ValidateAPIKey", mock.Anything, testToken).Return("tenant-1", nil)
	assistantSvc.On("Query", mock.Anything, service.AssistantRequest{
		TenantID: "tenant-1",
		UserID:   "alice",
		Query:    "show me the menu",
	}).Return(&service.AssistantResponse{
		Success: true,
		Reply:   "7 items on the menu (7 shown, 4 vegetarian overall).",
		Action:  domain.ActionGetMenu,
	}, nil)

	req := httptest.NewRequest(http.MethodPost, "/assistant/query", strings.NewReader(`{"query":"show me the menu"}`))
	req.Header.Set("Authorization", "Bearer "+testToken)
	req.Header.Set("X-User-ID", "alice")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	authValidator.AssertExpectations(t)
	assistantSvc.AssertExpectations(t)
}

func TestRouter_InvalidToken(t *testing.T) {
	router, authValidator, _, _, _ := setupRouter()

	authValidator.On("ValidateAPIKey", mock.Anything, "mtd_bogus").Return("", domain.ErrInvalidAPIKey)

	req := httptest.NewRequest(http.MethodGet, "/tables", nil)
	req.Header.Set("Authorization", "Bearer mtd_bogus")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	authValidator.AssertExpectations(t)
}

func TestRouter_OperationsRoute_WithValidAuth(t *testing.T) {
	router, authValidator, _, operationsSvc, _ := setupRouter()

	authValidator.On("ValidateAPIKey", mock.Anything, testToken).Return("tenant-1", nil)
	operationsSvc.On("ListTables", mock.Anything, "tenant-1").Return([]*domain.Table{
		{Number: "1", Floor: "main", Capacity: 2, Status: domain.TableStatusAvailable},
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/tables", nil)
	req.Header.Set("Authorization", "Bearer "+testToken)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	operationsSvc.AssertExpectations(t)
}

func TestRouter_AdminRoutes_NoAuthRequired(t *testing.T) {
	router, _, _, _, authSvc := setupRouter()

	authSvc.On("CreateTenant", mock.Anything, "Test Bistro", 0.05).Return(&domain.Tenant{
		ID:        "tenant-1",
		Name:      "Test Bistro",
		TaxRate:   0.05,
		Currency:  "USD",
		CreatedAt: time.Now().UTC(),
	}, nil)

	req := httptest.NewRequest(http.MethodPost, "/tenants", strings.NewReader(`{"name":"Test Bistro","tax_rate":0.05}`))
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	authSvc.AssertExpectations(t)
}
