package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/dinehq/maitred/internal/api"
	"github.com/dinehq/maitred/internal/api/middleware"
	"github.com/dinehq/maitred/internal/domain"
	"github.com/dinehq/maitred/internal/service"
)

type OperationsService interface {
	ListOrders(ctx context.Context, tenantID, cursor string, limit int) (*service.OrderPage, error)
	ListTables(ctx context.Context, tenantID string) ([]*domain.Table, error)
	ListMenu(ctx context.Context, tenantID string) ([]*domain.MenuItem, error)
}

// OperationsHandler serves the direct read endpoints used by dashboards
type OperationsHandler struct {
	svc OperationsService
}

func NewOperationsHandler(svc OperationsService) *OperationsHandler {
	return &OperationsHandler{svc: svc}
}

type OrderItemResponse struct {
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	LineTotal float64 `json:"line_total"`
}

type OrderResponse struct {
	Number      string              `json:"number"`
	Status      string              `json:"status"`
	Items       []OrderItemResponse `json:"items"`
	Subtotal    float64             `json:"subtotal"`
	TaxAmount   float64             `json:"tax_amount"`
	FinalAmount float64             `json:"final_amount"`
	CreatedAt   string              `json:"created_at"`
}

type OrderListResponse struct {
	Orders     []OrderResponse `json:"orders"`
	NextCursor string          `json:"next_cursor,omitempty"`
	HasMore    bool            `json:"has_more"`
}

type TableResponse struct {
	Number   string `json:"number"`
	Floor    string `json:"floor"`
	Capacity int    `json:"capacity"`
	Status   string `json:"status"`
}

type MenuItemResponse struct {
	Name       string  `json:"name"`
	Category   string  `json:"category"`
	BasePrice  float64 `json:"base_price"`
	Vegetarian bool    `json:"vegetarian"`
	Available  bool    `json:"available"`
}

func (h *OperationsHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	if tenantID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 100 {
			api.Error(w, http.StatusBadRequest, "limit must be between 1 and 100")
			return
		}
		limit = parsed
	}

	page, err := h.svc.ListOrders(r.Context(), tenantID, r.URL.Query().Get("cursor"), limit)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	out := OrderListResponse{
		Orders:     make([]OrderResponse, 0, len(page.Orders)),
		NextCursor: page.NextCursor,
		HasMore:    page.HasMore,
	}
	for _, o := range page.Orders {
		items := make([]OrderItemResponse, 0, len(o.Items))
		for _, it := range o.Items {
			items = append(items, OrderItemResponse{Name: it.Name, Quantity: it.Quantity, LineTotal: it.LineTotal})
		}
		out.Orders = append(out.Orders, OrderResponse{
			Number:      o.Number,
			Status:      string(o.Status),
			Items:       items,
			Subtotal:    o.Subtotal,
			TaxAmount:   o.TaxAmount,
			FinalAmount: o.FinalAmount,
			CreatedAt:   o.CreatedAt.Format("2006-01-02T15:04:05Z"),
		})
	}

	api.Success(w, http.StatusOK, out)
}

func (h *OperationsHandler) ListTables(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	if tenantID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	tables, err := h.svc.ListTables(r.Context(), tenantID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	out := make([]TableResponse, 0, len(tables))
	for _, t := range tables {
		out = append(out, TableResponse{
			Number:   t.Number,
			Floor:    t.Floor,
			Capacity: t.Capacity,
			Status:   string(t.Status),
		})
	}

	api.Success(w, http.StatusOK, out)
}

func (h *OperationsHandler) ListMenu(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	if tenantID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	items, err := h.svc.ListMenu(r.Context(), tenantID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	out := make([]MenuItemResponse, 0, len(items))
	for _, m := range items {
		out = append(out, MenuItemResponse{
			Name:       m.Name,
			Category:   m.Category,
			BasePrice:  m.BasePrice,
			Vegetarian: m.Vegetarian,
			Available:  m.Available,
		})
	}

	api.Success(w, http.StatusOK, out)
}
