package domain

import (
	"fmt"
	"time"
)

// Variant is a selectable customization on a menu item with a price delta
type Variant struct {
	Name       string
	PriceDelta float64
}

// MenuItem represents one sellable item on a tenant's menu
type MenuItem struct {
	ID         string
	TenantID   string
	Name       string
	Category   string
	BasePrice  float64
	Vegetarian bool
	Available  bool
	Variants   []Variant
	UpdatedAt  time.Time
	CreatedAt  time.Time
}

// VariantDelta returns the price delta for a named variant. Unknown
// variant names contribute nothing rather than failing the order.
func (m *MenuItem) VariantDelta(name string) float64 {
	for _, v := range m.Variants {
		if v.Name == name {
			return v.PriceDelta
		}
	}
	return 0
}

// UnitPrice computes base price plus the deltas of the selected variants
func (m *MenuItem) UnitPrice(selected []string) float64 {
	price := m.BasePrice
	for _, name := range selected {
		price += m.VariantDelta(name)
	}
	return price
}

// ValidateMenuItem validates a MenuItem instance
func ValidateMenuItem(m *MenuItem) error {
	if m == nil {
		return fmt.Errorf("menu item cannot be nil")
	}

	if m.ID == "" {
		return fmt.Errorf("menu item ID is required")
	}

	if m.TenantID == "" {
		return fmt.Errorf("menu item TenantID is required")
	}

	if m.Name == "" {
		return fmt.Errorf("menu item Name is required")
	}

	if m.BasePrice < 0 {
		return fmt.Errorf("menu item BasePrice cannot be negative")
	}

	return nil
}
