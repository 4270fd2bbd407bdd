package domain

import (
	"fmt"
	"time"
)

// Tenant represents one restaurant's isolated data and configuration scope
type Tenant struct {
	ID        string
	Name      string
	TaxRate   float64 // fraction of subtotal, e.g. 0.05 for 5%
	Currency  string
	CreatedAt time.Time
}

// NewTenant creates a new Tenant instance
func NewTenant(id, name string, taxRate float64, createdAt time.Time) *Tenant {
	return &Tenant{
		ID:        id,
		Name:      name,
		TaxRate:   taxRate,
		Currency:  "USD",
		CreatedAt: createdAt,
	}
}

// ValidateTenant validates a Tenant instance
func ValidateTenant(t *Tenant) error {
	if t == nil {
		return fmt.Errorf("tenant cannot be nil")
	}

	if t.ID == "" {
		return fmt.Errorf("tenant ID is required")
	}

	if t.Name == "" {
		return fmt.Errorf("tenant Name is required")
	}

	if t.TaxRate < 0 || t.TaxRate >= 1 {
		return fmt.Errorf("tenant TaxRate must be in [0, 1)")
	}

	return nil
}

// Role represents a user's role within a tenant
type Role string

const (
	RoleOwner   Role = "owner"
	RoleManager Role = "manager"
	RoleStaff   Role = "staff"
	RoleViewer  Role = "viewer"
)

// Membership links a user to a tenant with a role and explicit permissions.
// The membership store itself is an external collaborator; this is the
// shape the permission gate consumes.
type Membership struct {
	UserID      string
	TenantID    string
	Role        Role
	Permissions []string
	CreatedAt   time.Time
}

// HasPermission reports whether the membership grants the named permission
func (m *Membership) HasPermission(perm string) bool {
	for _, p := range m.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}

// BypassesPermissionChecks reports whether the role skips per-action checks
func (m *Membership) BypassesPermissionChecks() bool {
	return m.Role == RoleOwner || m.Role == RoleManager
}
