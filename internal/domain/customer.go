package domain

import (
	"fmt"
	"time"
)

// Customer represents a guest record within a tenant. Phone, email and
// address are personally identifying and must be masked before any
// content leaves the system for text generation.
type Customer struct {
	ID        string
	TenantID  string
	Name      string
	Phone     string
	Email     string
	Address   string
	Visits    int
	CreatedAt time.Time
}

// ValidateCustomer validates a Customer instance
func ValidateCustomer(c *Customer) error {
	if c == nil {
		return fmt.Errorf("customer cannot be nil")
	}

	if c.ID == "" {
		return fmt.Errorf("customer ID is required")
	}

	if c.TenantID == "" {
		return fmt.Errorf("customer TenantID is required")
	}

	if c.Name == "" {
		return fmt.Errorf("customer Name is required")
	}

	return nil
}
