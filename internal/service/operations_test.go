package service

import (
	"context"
	"testing"

	"github.com/dinehq/maitred/internal/domain"
	"github.com/dinehq/maitred/internal/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockPagedOrderRepository is a mock implementation of PagedOrderRepository
type MockPagedOrderRepository struct {
	mock.Mock
}

func (m *MockPagedOrderRepository) ListByTenantWithCursor(ctx context.Context, tenantID string, cursor *pagination.Cursor, limit int) (*OrderPage, error) {
	args := m.Called(ctx, tenantID, cursor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*OrderPage), args.Error(1)
}

func TestListOrders(t *testing.T) {
	orders := new(MockPagedOrderRepository)
	svc := NewOperationsService(orders, new(MockTableRepository), new(MockMenuRepository))

	page := &OrderPage{
		Orders:     []*domain.Order{{Number: "ORD-20260829-004"}},
		NextCursor: "next",
		HasMore:    true,
	}
	orders.On("ListByTenantWithCursor", mock.Anything, "t1", (*pagination.Cursor)(nil), 20).Return(page, nil)

	got, err := svc.ListOrders(context.Background(), "t1", "", 20)
	require.NoError(t, err)
	assert.True(t, got.HasMore)
	assert.Len(t, got.Orders, 1)
}

func TestListOrders_InvalidCursor(t *testing.T) {
	svc := NewOperationsService(new(MockPagedOrderRepository), new(MockTableRepository), new(MockMenuRepository))

	_, err := svc.ListOrders(context.Background(), "t1", "not base64!!", 20)
	require.Error(t, err)

	var de *domain.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, domain.ErrCodeValidation, de.Code)
}

func TestListTablesAndMenu(t *testing.T) {
	tables := new(MockTableRepository)
	menu := new(MockMenuRepository)
	svc := NewOperationsService(new(MockPagedOrderRepository), tables, menu)

	tables.On("ListByTenant", mock.Anything, "t1").Return([]*domain.Table{{Number: "3"}}, nil)
	menu.On("ListByTenant", mock.Anything, "t1").Return([]*domain.MenuItem{{Name: "Tiramisu"}}, nil)

	gotTables, err := svc.ListTables(context.Background(), "t1")
	require.NoError(t, err)
	assert.Len(t, gotTables, 1)

	gotMenu, err := svc.ListMenu(context.Background(), "t1")
	require.NoError(t, err)
	assert.Len(t, gotMenu, 1)
}
