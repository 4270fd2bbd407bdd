package domain

import (
	"fmt"
	"math"
	"time"
)

// OrderStatus represents the lifecycle status of an order
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusServed    OrderStatus = "served"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// OrderItem is one line of an order with its resolved pricing
type OrderItem struct {
	MenuItemID string
	Name       string
	Quantity   int
	UnitPrice  float64 // base price plus selected variant deltas
	Variants   []string
	LineTotal  float64
}

// Order represents a placed order within a tenant
type Order struct {
	ID          string
	TenantID    string
	Number      string // human-readable, e.g. ORD-20260829-004
	DailySeq    int    // monotonic per tenant per calendar day
	TableID     string // empty for takeaway
	CustomerID  string
	Items       []OrderItem
	Subtotal    float64
	TaxRate     float64
	TaxAmount   float64
	FinalAmount float64
	Status      OrderStatus
	PlacedBy    string // user id of the operator
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// RoundCurrency rounds to two decimal places. All persisted monetary
// amounts pass through this so totals compare exactly.
func RoundCurrency(v float64) float64 {
	return math.Round(v*100) / 100
}

// ComputeTotals fills Subtotal, TaxAmount and FinalAmount from the order's
// items and tax rate
func (o *Order) ComputeTotals() {
	subtotal := 0.0
	for i := range o.Items {
		o.Items[i].LineTotal = RoundCurrency(o.Items[i].UnitPrice * float64(o.Items[i].Quantity))
		subtotal += o.Items[i].LineTotal
	}
	o.Subtotal = RoundCurrency(subtotal)
	o.TaxAmount = RoundCurrency(o.Subtotal * o.TaxRate)
	o.FinalAmount = RoundCurrency(o.Subtotal + o.TaxAmount)
}

// OrderNumber builds the human-readable order number from the order date
// and the per-day sequence
func OrderNumber(day time.Time, seq int) string {
	return fmt.Sprintf("ORD-%s-%03d", day.UTC().Format("20060102"), seq)
}

// CountsTowardRevenue reports whether the order contributes to revenue sums
func (o *Order) CountsTowardRevenue() bool {
	return o.Status != OrderStatusCancelled
}

// ValidateOrder validates an Order instance
func ValidateOrder(o *Order) error {
	if o == nil {
		return fmt.Errorf("order cannot be nil")
	}

	if o.ID == "" {
		return fmt.Errorf("order ID is required")
	}

	if o.TenantID == "" {
		return fmt.Errorf("order TenantID is required")
	}

	if len(o.Items) == 0 {
		return fmt.Errorf("order must contain at least one item")
	}

	for _, item := range o.Items {
		if item.Quantity <= 0 {
			return fmt.Errorf("order item %q has non-positive quantity", item.Name)
		}
	}

	if !IsValidOrderStatus(o.Status) {
		return ErrInvalidOrderStatus
	}

	return nil
}

// IsValidOrderStatus checks if an OrderStatus is valid
func IsValidOrderStatus(s OrderStatus) bool {
	switch s {
	case OrderStatusPending, OrderStatusPreparing, OrderStatusServed,
		OrderStatusPaid, OrderStatusCancelled:
		return true
	}
	return false
}
