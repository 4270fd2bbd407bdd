package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dinehq/maitred/internal/domain"
	"github.com/dinehq/maitred/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

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

func TestOperationsHandler_ListOrders(t *testing.T) {
	mockSvc := new(MockOperationsService)
	handler := NewOperationsHandler(mockSvc)

	created := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	mockSvc.On("ListOrders", mock.Anything, "t1", "", 20).Return(&service.OrderPage{
		Orders: []*domain.Order{
			{
				Number: "ORD-20260829-001",
				Status: domain.OrderStatusServed,
				Items: []domain.OrderItem{
					{Name: "Margherita Pizza", Quantity: 2, LineTotal: 25.00},
				},
				Subtotal:    25.00,
				TaxAmount:   1.25,
				FinalAmount: 26.25,
				CreatedAt:   created,
			},
		},
		NextCursor: "next-page",
		HasMore:    true,
	}, nil)

	req := requestWithTenant(http.MethodGet, "/orders", nil, "t1", "")
	w := httptest.NewRecorder()

	handler.ListOrders(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data OrderListResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data.Orders, 1)
	assert.Equal(t, "ORD-20260829-001", resp.Data.Orders[0].Number)
	assert.Equal(t, "served", resp.Data.Orders[0].Status)
	assert.Equal(t, 26.25, resp.Data.Orders[0].FinalAmount)
	assert.Equal(t, "next-page", resp.Data.NextCursor)
	assert.True(t, resp.Data.HasMore)
	mockSvc.AssertExpectations(t)
}

func TestOperationsHandler_ListOrders_CustomLimitAndCursor(t *testing.T) {
	mockSvc := new(MockOperationsService)
	handler := NewOperationsHandler(mockSvc)

	mockSvc.On("ListOrders", mock.Anything, "t1", "abc", 50).
		Return(&service.OrderPage{Orders: []*domain.Order{}}, nil)

	req := requestWithTenant(http.MethodGet, "/orders?limit=50&cursor=abc", nil, "t1", "")
	w := httptest.NewRecorder()

	handler.ListOrders(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	mockSvc.AssertExpectations(t)
}

func TestOperationsHandler_ListOrders_LimitValidation(t *testing.T) {
	tests := []struct {
		name  string
		limit string
	}{
		{name: "zero", limit: "0"},
		{name: "negative", limit: "-5"},
		{name: "too large", limit: "101"},
		{name: "not a number", limit: "lots"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewOperationsHandler(new(MockOperationsService))

			req := requestWithTenant(http.MethodGet, "/orders?limit="+tt.limit, nil, "t1", "")
			w := httptest.NewRecorder()

			handler.ListOrders(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), "limit must be between 1 and 100")
		})
	}
}

func TestOperationsHandler_ListOrders_InvalidCursor(t *testing.T) {
	mockSvc := new(MockOperationsService)
	handler := NewOperationsHandler(mockSvc)

	mockSvc.On("ListOrders", mock.Anything, "t1", "!!!", 20).
		Return(nil, domain.NewDomainError(domain.ErrCodeValidation, "invalid cursor"))

	req := requestWithTenant(http.MethodGet, "/orders?cursor=!!!", nil, "t1", "")
	w := httptest.NewRecorder()

	handler.ListOrders(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOperationsHandler_ListTables(t *testing.T) {
	mockSvc := new(MockOperationsService)
	handler := NewOperationsHandler(mockSvc)

	mockSvc.On("ListTables", mock.Anything, "t1").Return([]*domain.Table{
		{Number: "1", Floor: "main", Capacity: 4, Status: domain.TableStatusAvailable},
		{Number: "2", Floor: "terrace", Capacity: 6, Status: domain.TableStatusOccupied},
	}, nil)

	req := requestWithTenant(http.MethodGet, "/tables", nil, "t1", "")
	w := httptest.NewRecorder()

	handler.ListTables(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data []TableResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 2)
	assert.Equal(t, "terrace", resp.Data[1].Floor)
	assert.Equal(t, "occupied", resp.Data[1].Status)
}

func TestOperationsHandler_ListMenu(t *testing.T) {
	mockSvc := new(MockOperationsService)
	handler := NewOperationsHandler(mockSvc)

	mockSvc.On("ListMenu", mock.Anything, "t1").Return([]*domain.MenuItem{
		{Name: "Margherita Pizza", Category: "pizza", BasePrice: 12.50, Vegetarian: true, Available: true},
	}, nil)

	req := requestWithTenant(http.MethodGet, "/menu", nil, "t1", "")
	w := httptest.NewRecorder()

	handler.ListMenu(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data []MenuItemResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, 12.50, resp.Data[0].BasePrice)
	assert.True(t, resp.Data[0].Vegetarian)
}

func TestOperationsHandler_NoTenant(t *testing.T) {
	handler := NewOperationsHandler(new(MockOperationsService))

	for _, call := range []func(http.ResponseWriter, *http.Request){
		handler.ListOrders, handler.ListTables, handler.ListMenu,
	} {
		req := requestWithTenant(http.MethodGet, "/", nil, "", "")
		w := httptest.NewRecorder()
		call(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	}
}
