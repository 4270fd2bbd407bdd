package domain

import (
	"fmt"
	"time"
)

// TableStatus represents the operational status of a dining table
type TableStatus string

const (
	TableStatusAvailable    TableStatus = "available"
	TableStatusOccupied     TableStatus = "occupied"
	TableStatusReserved     TableStatus = "reserved"
	TableStatusCleaning     TableStatus = "cleaning"
	TableStatusOutOfService TableStatus = "out-of-service"
)

// Table represents a dining table within a tenant
type Table struct {
	ID             string
	TenantID       string
	Number         string // human name/number, e.g. "3" or "T12"
	Floor          string
	Capacity       int
	Status         TableStatus
	CurrentOrderID string // set while occupied by an open order
	UpdatedAt      time.Time
	CreatedAt      time.Time
}

// IsAvailable reports whether the table can seat a new order
func (t *Table) IsAvailable() bool {
	return t.Status == TableStatusAvailable
}

// ValidateTable validates a Table instance
func ValidateTable(t *Table) error {
	if t == nil {
		return fmt.Errorf("table cannot be nil")
	}

	if t.ID == "" {
		return fmt.Errorf("table ID is required")
	}

	if t.TenantID == "" {
		return fmt.Errorf("table TenantID is required")
	}

	if t.Number == "" {
		return fmt.Errorf("table Number is required")
	}

	if !IsValidTableStatus(t.Status) {
		return ErrInvalidTableStatus
	}

	return nil
}

// IsValidTableStatus checks if a TableStatus is valid
func IsValidTableStatus(s TableStatus) bool {
	switch s {
	case TableStatusAvailable, TableStatusOccupied, TableStatusReserved,
		TableStatusCleaning, TableStatusOutOfService:
		return true
	}
	return false
}
