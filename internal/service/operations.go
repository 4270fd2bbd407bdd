package service

import (
	"context"

	"github.com/dinehq/maitred/internal/domain"
	"github.com/dinehq/maitred/internal/pagination"
)

// OrderPage is one page of a cursor-paginated order listing
type OrderPage struct {
	Orders     []*domain.Order
	NextCursor string
	HasMore    bool
}

// PagedOrderRepository is the subset of order persistence backing the
// dashboard listing
type PagedOrderRepository interface {
	ListByTenantWithCursor(ctx context.Context, tenantID string, cursor *pagination.Cursor, limit int) (*OrderPage, error)
}

// OperationsService serves the direct read surface used by dashboards,
// bypassing the assistant pipeline.
type OperationsService struct {
	orders PagedOrderRepository
	tables TableRepositoryInterface
	menu   MenuRepositoryInterface
}

func NewOperationsService(orders PagedOrderRepository, tables TableRepositoryInterface, menu MenuRepositoryInterface) *OperationsService {
	return &OperationsService{orders: orders, tables: tables, menu: menu}
}

// ListOrders returns one page of orders, newest first
func (s *OperationsService) ListOrders(ctx context.Context, tenantID, cursorStr string, limit int) (*OrderPage, error) {
	cursor, err := pagination.DecodeCursor(cursorStr)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid cursor", err)
	}
	return s.orders.ListByTenantWithCursor(ctx, tenantID, cursor, limit)
}

// ListTables returns all tables of the tenant
func (s *OperationsService) ListTables(ctx context.Context, tenantID string) ([]*domain.Table, error) {
	return s.tables.ListByTenant(ctx, tenantID)
}

// ListMenu returns the tenant's full menu
func (s *OperationsService) ListMenu(ctx context.Context, tenantID string) ([]*domain.MenuItem, error) {
	return s.menu.ListByTenant(ctx, tenantID)
}
