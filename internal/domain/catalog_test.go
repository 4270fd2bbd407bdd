package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogCoversAllActions(t *testing.T) {
	cat := Catalog()
	require.Len(t, cat, 10)

	seen := make(map[ActionName]bool)
	for _, d := range cat {
		assert.False(t, seen[d.Name], "duplicate action %s", d.Name)
		seen[d.Name] = true
		assert.NotEmpty(t, d.Description)
		assert.NotEmpty(t, d.RequiredPermissions)
	}

	for _, name := range []ActionName{
		ActionGetTables, ActionGetOrders, ActionGetMenu,
		ActionGetSalesSummary, ActionGetCustomer,
		ActionUpdateTableStatus, ActionUpdateMenuItem,
		ActionPlaceOrder, ActionUpdateOrderStatus, ActionAddCustomer,
	} {
		assert.True(t, seen[name], "missing action %s", name)
	}
}

func TestLookupAction(t *testing.T) {
	d, ok := LookupAction(ActionPlaceOrder)
	require.True(t, ok)
	assert.Equal(t, ActionPlaceOrder, d.Name)
	assert.Equal(t, []string{"items"}, d.RequiredParams)
	assert.True(t, d.Mutating)

	_, ok = LookupAction("delete_everything")
	assert.False(t, ok)
}

func TestMutatingFlags(t *testing.T) {
	tests := []struct {
		name     ActionName
		mutating bool
	}{
		{ActionGetTables, false},
		{ActionGetOrders, false},
		{ActionGetMenu, false},
		{ActionGetSalesSummary, false},
		{ActionGetCustomer, false},
		{ActionUpdateTableStatus, true},
		{ActionUpdateMenuItem, true},
		{ActionPlaceOrder, true},
		{ActionUpdateOrderStatus, true},
		{ActionAddCustomer, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.name), func(t *testing.T) {
			d, ok := LookupAction(tt.name)
			require.True(t, ok)
			assert.Equal(t, tt.mutating, d.Mutating)
		})
	}
}

func TestActionPermissions(t *testing.T) {
	tests := []struct {
		name  ActionName
		perms []string
	}{
		{ActionGetTables, []string{PermTablesRead}},
		{ActionGetSalesSummary, []string{PermReportsRead}},
		{ActionUpdateTableStatus, []string{PermTablesWrite}},
		{ActionUpdateMenuItem, []string{PermMenuWrite}},
		{ActionPlaceOrder, []string{PermOrdersWrite}},
		{ActionAddCustomer, []string{PermCustomersWrite}},
	}

	for _, tt := range tests {
		t.Run(string(tt.name), func(t *testing.T) {
			d, ok := LookupAction(tt.name)
			require.True(t, ok)
			assert.Equal(t, tt.perms, d.RequiredPermissions)
		})
	}
}

func TestMissingParams(t *testing.T) {
	d, ok := LookupAction(ActionUpdateOrderStatus)
	require.True(t, ok)

	tests := []struct {
		name    string
		args    map[string]any
		missing []string
	}{
		{
			name:    "all present",
			args:    map[string]any{"order_number": "ORD-20260829-001", "status": "paid"},
			missing: nil,
		},
		{
			name:    "one absent",
			args:    map[string]any{"order_number": "ORD-20260829-001"},
			missing: []string{"status"},
		},
		{
			name:    "nil counts as missing",
			args:    map[string]any{"order_number": nil, "status": "paid"},
			missing: []string{"order_number"},
		},
		{
			name:    "empty string counts as missing",
			args:    map[string]any{"order_number": "", "status": "paid"},
			missing: []string{"order_number"},
		},
		{
			name:    "all missing, declaration order",
			args:    map[string]any{},
			missing: []string{"order_number", "status"},
		},
		{
			name:    "nil args map",
			args:    nil,
			missing: []string{"order_number", "status"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.missing, d.MissingParams(tt.args))
		})
	}
}

func TestMissingParamsIgnoresOptional(t *testing.T) {
	d, ok := LookupAction(ActionGetTables)
	require.True(t, ok)

	// No required params at all, so nothing is ever missing.
	assert.Empty(t, d.MissingParams(nil))
	assert.Empty(t, d.MissingParams(map[string]any{"status": ""}))
}
