package service

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/dinehq/maitred/internal/domain"
	"github.com/dinehq/maitred/internal/telemetry"
	logx "github.com/dinehq/maitred/pkg/logger"
)

// OrderRepositoryInterface defines the interface for order persistence
type OrderRepositoryInterface interface {
	NextDailySeq(ctx context.Context, tenantID string, day time.Time) (int, error)
	Create(ctx context.Context, o *domain.Order) error
	GetByNumber(ctx context.Context, tenantID, number string) (*domain.Order, error)
	ListByTenant(ctx context.Context, tenantID string, status domain.OrderStatus) ([]*domain.Order, error)
	ListByDay(ctx context.Context, tenantID string, day time.Time) ([]*domain.Order, error)
	UpdateStatus(ctx context.Context, tenantID, orderID string, status domain.OrderStatus) error
}

// TableRepositoryInterface defines the interface for table persistence
type TableRepositoryInterface interface {
	GetByNumber(ctx context.Context, tenantID, number string) (*domain.Table, error)
	ListByTenant(ctx context.Context, tenantID string) ([]*domain.Table, error)
	UpdateStatus(ctx context.Context, tenantID, tableID string, status domain.TableStatus, orderID string) error
	Occupy(ctx context.Context, tenantID, tableID, orderID string) error
}

// MenuRepositoryInterface defines the interface for menu persistence
type MenuRepositoryInterface interface {
	ListByTenant(ctx context.Context, tenantID string) ([]*domain.MenuItem, error)
	Update(ctx context.Context, m *domain.MenuItem) error
}

// CustomerRepositoryInterface defines the interface for customer persistence
type CustomerRepositoryInterface interface {
	Create(ctx context.Context, c *domain.Customer) error
	Search(ctx context.Context, tenantID, query string) ([]*domain.Customer, error)
	IncrementVisits(ctx context.Context, tenantID, customerID string) error
}

// ExecutorService dispatches a permission-cleared intent to exactly one
// handler over the closed action set. Each handler validates its own
// arguments and state preconditions; a failed precondition leaves no
// partial write behind.
type ExecutorService struct {
	orders    OrderRepositoryInterface
	tables    TableRepositoryInterface
	menu      MenuRepositoryInterface
	customers CustomerRepositoryInterface
	tx        TxRunner
	uuidGen   UUIDGenerator
	now       func() time.Time
}

func NewExecutorService(
	orders OrderRepositoryInterface,
	tables TableRepositoryInterface,
	menu MenuRepositoryInterface,
	customers CustomerRepositoryInterface,
	tx TxRunner,
	uuidGen UUIDGenerator,
) *ExecutorService {
	return &ExecutorService{
		orders:    orders,
		tables:    tables,
		menu:      menu,
		customers: customers,
		tx:        tx,
		uuidGen:   uuidGen,
		now:       time.Now,
	}
}

// Execute runs one resolved action for the tenant. Recoverable failures
// come back as domain errors; the caller turns them into user-facing
// replies and audit entries.
func (s *ExecutorService) Execute(ctx context.Context, tenant *domain.Tenant, userID string, intent *domain.ResolvedIntent) (*domain.ActionResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "ExecutorService.Execute", telemetry.SpanAttributes{
		TenantID: tenant.ID,
		UserID:   userID,
		Action:   string(intent.Action),
	})
	defer span.End()

	var (
		data map[string]any
		err  error
	)

	switch intent.Action {
	case domain.ActionGetTables:
		data, err = s.getTables(ctx, tenant.ID, intent.Arguments)
	case domain.ActionGetOrders:
		data, err = s.getOrders(ctx, tenant.ID, intent.Arguments)
	case domain.ActionGetMenu:
		data, err = s.getMenu(ctx, tenant.ID, intent.Arguments)
	case domain.ActionGetSalesSummary:
		data, err = s.getSalesSummary(ctx, tenant.ID, intent.Arguments)
	case domain.ActionGetCustomer:
		data, err = s.getCustomer(ctx, tenant.ID, intent.Arguments)
	case domain.ActionUpdateTableStatus:
		data, err = s.updateTableStatus(ctx, tenant.ID, intent.Arguments)
	case domain.ActionUpdateMenuItem:
		data, err = s.updateMenuItem(ctx, tenant.ID, intent.Arguments)
	case domain.ActionPlaceOrder:
		data, err = s.placeOrder(ctx, tenant, userID, intent.Arguments)
	case domain.ActionUpdateOrderStatus:
		data, err = s.updateOrderStatus(ctx, tenant.ID, intent.Arguments)
	case domain.ActionAddCustomer:
		data, err = s.addCustomer(ctx, tenant.ID, intent.Arguments)
	default:
		err = domain.ErrUnrecognizedQuery
	}

	if err != nil {
		span.SetError(err)
		return nil, err
	}

	return &domain.ActionResult{
		Success: true,
		Action:  intent.Action,
		Data:    data,
	}, nil
}

func (s *ExecutorService) getTables(ctx context.Context, tenantID string, args map[string]any) (map[string]any, error) {
	tables, err := s.tables.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "failed to list tables", err)
	}

	statusFilter := argString(args, "status")
	floorFilter := argString(args, "floor")

	counts := map[string]int{}
	var out []map[string]any
	for _, t := range tables {
		counts[string(t.Status)]++
		if statusFilter != "" && string(t.Status) != statusFilter {
			continue
		}
		if floorFilter != "" && !strings.EqualFold(t.Floor, floorFilter) {
			continue
		}
		out = append(out, tableMap(t))
	}

	return map[string]any{
		"tables":    out,
		"by_status": counts,
		"total":     len(tables),
	}, nil
}

func (s *ExecutorService) getOrders(ctx context.Context, tenantID string, args map[string]any) (map[string]any, error) {
	statusFilter := domain.OrderStatus(argString(args, "status"))
	if statusFilter != "" && !domain.IsValidOrderStatus(statusFilter) {
		return nil, domain.ErrInvalidOrderStatus
	}

	orders, err := s.orders.ListByTenant(ctx, tenantID, statusFilter)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "failed to list orders", err)
	}

	if num := argString(args, "table_number"); num != "" {
		table, err := s.tables.GetByNumber(ctx, tenantID, num)
		if err != nil {
			return nil, err
		}
		filtered := orders[:0]
		for _, o := range orders {
			if o.TableID == table.ID {
				filtered = append(filtered, o)
			}
		}
		orders = filtered
	}

	out := make([]map[string]any, 0, len(orders))
	for _, o := range orders {
		out = append(out, orderMap(o))
	}

	return map[string]any{
		"orders": out,
		"count":  len(out),
	}, nil
}

func (s *ExecutorService) getMenu(ctx context.Context, tenantID string, args map[string]any) (map[string]any, error) {
	items, err := s.menu.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "failed to list menu", err)
	}

	categoryFilter := argString(args, "category")
	vegFilter, vegSet := argBool(args, "vegetarian")

	vegCount := 0
	var out []map[string]any
	for _, m := range items {
		if m.Vegetarian {
			vegCount++
		}
		if categoryFilter != "" && !strings.EqualFold(m.Category, categoryFilter) {
			continue
		}
		if vegSet && m.Vegetarian != vegFilter {
			continue
		}
		out = append(out, menuItemMap(m))
	}

	return map[string]any{
		"items":            out,
		"vegetarian_count": vegCount,
		"total":            len(items),
	}, nil
}

func (s *ExecutorService) getSalesSummary(ctx context.Context, tenantID string, args map[string]any) (map[string]any, error) {
	day := s.now().UTC()
	if d := argString(args, "date"); d != "" {
		parsed, err := time.Parse("2006-01-02", d)
		if err != nil {
			return nil, domain.NewDomainError(domain.ErrCodeValidation, fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", d))
		}
		day = parsed
	}

	orders, err := s.orders.ListByDay(ctx, tenantID, day)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "failed to list orders for day", err)
	}

	revenue := 0.0
	byStatus := map[string]int{}
	for _, o := range orders {
		byStatus[string(o.Status)]++
		if o.CountsTowardRevenue() {
			revenue += o.FinalAmount
		}
	}

	return map[string]any{
		"date":            day.Format("2006-01-02"),
		"revenue":         domain.RoundCurrency(revenue),
		"order_count":     len(orders),
		"cancelled_count": byStatus[string(domain.OrderStatusCancelled)],
		"by_status":       byStatus,
	}, nil
}

func (s *ExecutorService) getCustomer(ctx context.Context, tenantID string, args map[string]any) (map[string]any, error) {
	query := argString(args, "query")
	customers, err := s.customers.Search(ctx, tenantID, query)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "customer search failed", err)
	}
	if len(customers) == 0 {
		return nil, domain.ErrCustomerNotFound
	}

	out := make([]map[string]any, 0, len(customers))
	for _, c := range customers {
		out = append(out, customerMap(c))
	}
	return map[string]any{
		"customers": out,
		"count":     len(out),
	}, nil
}

func (s *ExecutorService) updateTableStatus(ctx context.Context, tenantID string, args map[string]any) (map[string]any, error) {
	status := domain.TableStatus(argString(args, "status"))
	if !domain.IsValidTableStatus(status) {
		return nil, domain.ErrInvalidTableStatus
	}

	table, err := s.tables.GetByNumber(ctx, tenantID, argString(args, "table_number"))
	if err != nil {
		return nil, err
	}

	// Manual transitions clear any order link; seating goes through
	// place_order which sets it atomically.
	if err := s.tables.UpdateStatus(ctx, tenantID, table.ID, status, ""); err != nil {
		return nil, err
	}

	return map[string]any{
		"table_number":    table.Number,
		"previous_status": string(table.Status),
		"status":          string(status),
	}, nil
}

func (s *ExecutorService) updateMenuItem(ctx context.Context, tenantID string, args map[string]any) (map[string]any, error) {
	price, hasPrice := argFloat(args, "price")
	available, hasAvailable := argBool(args, "available")
	if !hasPrice && !hasAvailable {
		return nil, domain.NewDomainError(domain.ErrCodeMissingParameters, "update_menu_item needs a price or an availability flag")
	}
	if hasPrice && price < 0 {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "price cannot be negative")
	}

	items, err := s.menu.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "failed to list menu", err)
	}

	item, err := matchMenuItem(items, argString(args, "item_name"))
	if err != nil {
		return nil, err
	}

	if hasPrice {
		item.BasePrice = domain.RoundCurrency(price)
	}
	if hasAvailable {
		item.Available = available
	}
	if err := s.menu.Update(ctx, item); err != nil {
		return nil, err
	}

	return map[string]any{
		"item":      item.Name,
		"price":     item.BasePrice,
		"available": item.Available,
	}, nil
}

// orderItemRequest is one requested line before menu resolution
type orderItemRequest struct {
	Name     string
	Quantity int
	Variants []string
}

func (s *ExecutorService) placeOrder(ctx context.Context, tenant *domain.Tenant, userID string, args map[string]any) (map[string]any, error) {
	requests, err := orderItemsFromArgs(args)
	if err != nil {
		return nil, err
	}

	menuItems, err := s.menu.ListByTenant(ctx, tenant.ID)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "failed to list menu", err)
	}

	lines := make([]domain.OrderItem, 0, len(requests))
	for _, req := range requests {
		item, err := matchMenuItem(menuItems, req.Name)
		if err != nil {
			return nil, err
		}
		if !item.Available {
			return nil, domain.NewDomainError(domain.ErrCodeInvalidState, fmt.Sprintf("menu item %s is not available", item.Name))
		}
		lines = append(lines, domain.OrderItem{
			MenuItemID: item.ID,
			Name:       item.Name,
			Quantity:   req.Quantity,
			UnitPrice:  domain.RoundCurrency(item.UnitPrice(req.Variants)),
			Variants:   req.Variants,
		})
	}

	var customerID string
	if name := argString(args, "customer_name"); name != "" {
		// Link only on an unambiguous match; a miss never blocks the order.
		matches, err := s.customers.Search(ctx, tenant.ID, name)
		if err == nil && len(matches) == 1 {
			customerID = matches[0].ID
		}
	}

	tableNumber := argString(args, "table_number")
	now := s.now().UTC()
	order := &domain.Order{
		ID:         s.uuidGen.NewString(),
		TenantID:   tenant.ID,
		CustomerID: customerID,
		Items:      lines,
		TaxRate:    tenant.TaxRate,
		Status:     domain.OrderStatusPending,
		PlacedBy:   userID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	order.ComputeTotals()

	err = s.tx.WithTx(ctx, func(repos TxRepositories) error {
		if tableNumber != "" {
			table, err := repos.Tables().GetByNumber(ctx, tenant.ID, tableNumber)
			if err != nil {
				return err
			}
			if !table.IsAvailable() {
				return domain.ErrTableNotAvailable
			}
			order.TableID = table.ID
		}

		seq, err := repos.Orders().NextDailySeq(ctx, tenant.ID, now)
		if err != nil {
			return err
		}
		order.DailySeq = seq
		order.Number = domain.OrderNumber(now, seq)

		if err := repos.Orders().Create(ctx, order); err != nil {
			return err
		}

		if order.TableID != "" {
			// Conditional on the table still being available; a racing
			// order loses here and the whole transaction rolls back.
			if err := repos.Tables().Occupy(ctx, tenant.ID, order.TableID, order.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if customerID != "" {
		if err := s.customers.IncrementVisits(ctx, tenant.ID, customerID); err != nil {
			logx.Warn().Err(err).Str("customer_id", customerID).Msg("failed to increment customer visits")
		}
	}

	return map[string]any{
		"order_number": order.Number,
		"table_number": tableNumber,
		"items":        len(order.Items),
		"subtotal":     order.Subtotal,
		"tax_amount":   order.TaxAmount,
		"final_amount": order.FinalAmount,
	}, nil
}

// terminalOrderStatus reports whether no further transitions are allowed
func terminalOrderStatus(s domain.OrderStatus) bool {
	return s == domain.OrderStatusPaid || s == domain.OrderStatusCancelled
}

func (s *ExecutorService) updateOrderStatus(ctx context.Context, tenantID string, args map[string]any) (map[string]any, error) {
	status := domain.OrderStatus(argString(args, "status"))
	if !domain.IsValidOrderStatus(status) || status == domain.OrderStatusPending {
		return nil, domain.ErrInvalidOrderStatus
	}

	order, err := s.orders.GetByNumber(ctx, tenantID, argString(args, "order_number"))
	if err != nil {
		return nil, err
	}
	if terminalOrderStatus(order.Status) {
		return nil, domain.NewDomainError(domain.ErrCodeInvalidState,
			fmt.Sprintf("order %s is already %s", order.Number, order.Status))
	}

	err = s.tx.WithTx(ctx, func(repos TxRepositories) error {
		if err := repos.Orders().UpdateStatus(ctx, tenantID, order.ID, status); err != nil {
			return err
		}
		if order.TableID != "" && terminalOrderStatus(status) {
			return repos.Tables().UpdateStatus(ctx, tenantID, order.TableID, domain.TableStatusAvailable, "")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"order_number":    order.Number,
		"previous_status": string(order.Status),
		"status":          string(status),
	}, nil
}

func (s *ExecutorService) addCustomer(ctx context.Context, tenantID string, args map[string]any) (map[string]any, error) {
	customer := &domain.Customer{
		ID:        s.uuidGen.NewString(),
		TenantID:  tenantID,
		Name:      argString(args, "name"),
		Phone:     argString(args, "phone"),
		Email:     argString(args, "email"),
		Address:   argString(args, "address"),
		CreatedAt: s.now().UTC(),
	}
	if err := domain.ValidateCustomer(customer); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid customer", err)
	}
	if err := s.customers.Create(ctx, customer); err != nil {
		return nil, err
	}

	return map[string]any{
		"customer_id": customer.ID,
		"name":        customer.Name,
	}, nil
}

// --- argument coercion ---------------------------------------------------

// argString reads a string argument, stringifying bare numbers so "table 3"
// works whether the model sent "3" or 3.
func argString(args map[string]any, key string) string {
	switch v := args[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		if v == math.Trunc(v) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}

func argFloat(args map[string]any, key string) (float64, bool) {
	switch v := args[key].(type) {
	case float64:
		return v, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err == nil {
			return f, true
		}
	}
	return 0, false
}

func argBool(args map[string]any, key string) (bool, bool) {
	switch v := args[key].(type) {
	case bool:
		return v, true
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err == nil {
			return b, true
		}
	}
	return false, false
}

func orderItemsFromArgs(args map[string]any) ([]orderItemRequest, error) {
	raw, ok := args["items"].([]any)
	if !ok || len(raw) == 0 {
		return nil, domain.NewDomainError(domain.ErrCodeMissingParameters, "place_order needs at least one item")
	}

	requests := make([]orderItemRequest, 0, len(raw))
	for _, entry := range raw {
		m, ok := entry.(map[string]any)
		if !ok {
			return nil, domain.NewDomainError(domain.ErrCodeValidation, "order item must be an object")
		}
		req := orderItemRequest{
			Name:     argString(m, "name"),
			Quantity: 1,
		}
		if req.Name == "" {
			return nil, domain.NewDomainError(domain.ErrCodeMissingParameters, "order item needs a name")
		}
		if q, ok := argFloat(m, "quantity"); ok {
			if q < 1 || q != math.Trunc(q) {
				return nil, domain.NewDomainError(domain.ErrCodeValidation, fmt.Sprintf("invalid quantity for %s", req.Name))
			}
			req.Quantity = int(q)
		}
		if vs, ok := m["variants"].([]any); ok {
			for _, v := range vs {
				if s, ok := v.(string); ok && s != "" {
					req.Variants = append(req.Variants, s)
				}
			}
		}
		requests = append(requests, req)
	}
	return requests, nil
}

// --- result shaping ------------------------------------------------------

func tableMap(t *domain.Table) map[string]any {
	return map[string]any{
		"number":   t.Number,
		"floor":    t.Floor,
		"capacity": t.Capacity,
		"status":   string(t.Status),
	}
}

func orderMap(o *domain.Order) map[string]any {
	items := make([]map[string]any, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, map[string]any{
			"name":       it.Name,
			"quantity":   it.Quantity,
			"line_total": it.LineTotal,
		})
	}
	return map[string]any{
		"order_number": o.Number,
		"status":       string(o.Status),
		"items":        items,
		"final_amount": o.FinalAmount,
		"created_at":   o.CreatedAt.Format(time.RFC3339),
	}
}

func menuItemMap(m *domain.MenuItem) map[string]any {
	return map[string]any{
		"name":       m.Name,
		"category":   m.Category,
		"price":      m.BasePrice,
		"vegetarian": m.Vegetarian,
		"available":  m.Available,
	}
}

func customerMap(c *domain.Customer) map[string]any {
	return map[string]any{
		"name":    c.Name,
		"phone":   c.Phone,
		"email":   c.Email,
		"address": c.Address,
		"visits":  c.Visits,
	}
}
