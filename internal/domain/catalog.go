package domain

// ActionName identifies one declared operation the assistant can perform
type ActionName string

// The closed action set. Adding an action means adding a descriptor here
// and a case to the executor's dispatch; the compiler enforces coverage.
const (
	ActionGetTables         ActionName = "get_tables"
	ActionGetOrders         ActionName = "get_orders"
	ActionGetMenu           ActionName = "get_menu"
	ActionGetSalesSummary   ActionName = "get_sales_summary"
	ActionGetCustomer       ActionName = "get_customer"
	ActionUpdateTableStatus ActionName = "update_table_status"
	ActionUpdateMenuItem    ActionName = "update_menu_item"
	ActionPlaceOrder        ActionName = "place_order"
	ActionUpdateOrderStatus ActionName = "update_order_status"
	ActionAddCustomer       ActionName = "add_customer"
)

// Permission names checked by the permission gate
const (
	PermTablesRead     = "tables:read"
	PermTablesWrite    = "tables:write"
	PermOrdersRead     = "orders:read"
	PermOrdersWrite    = "orders:write"
	PermMenuRead       = "menu:read"
	PermMenuWrite      = "menu:write"
	PermCustomersRead  = "customers:read"
	PermCustomersWrite = "customers:write"
	PermReportsRead    = "reports:read"
)

// ActionDescriptor declares one callable action: its parameters, the
// permissions it needs, and a description shown to the language model.
type ActionDescriptor struct {
	Name                ActionName
	Description         string
	RequiredParams      []string // ordered; order is preserved in prompts
	OptionalParams      []string
	RequiredPermissions []string
	Mutating            bool
}

// catalog is the static, read-only action catalog. Safe for concurrent
// reads; never mutated at runtime.
var catalog = []ActionDescriptor{
	{
		Name:                ActionGetTables,
		Description:         "List tables with their status, optionally filtered by status or floor.",
		OptionalParams:      []string{"status", "floor"},
		RequiredPermissions: []string{PermTablesRead},
	},
	{
		Name:                ActionGetOrders,
		Description:         "List orders, optionally filtered by status or table number.",
		OptionalParams:      []string{"status", "table_number"},
		RequiredPermissions: []string{PermOrdersRead},
	},
	{
		Name:                ActionGetMenu,
		Description:         "List menu items, optionally filtered by category or vegetarian flag.",
		OptionalParams:      []string{"category", "vegetarian"},
		RequiredPermissions: []string{PermMenuRead},
	},
	{
		Name:                ActionGetSalesSummary,
		Description:         "Summarize revenue and order counts for a day. Cancelled orders are excluded from revenue.",
		OptionalParams:      []string{"date"},
		RequiredPermissions: []string{PermReportsRead},
	},
	{
		Name:                ActionGetCustomer,
		Description:         "Look up a customer record by name or phone.",
		RequiredParams:      []string{"query"},
		RequiredPermissions: []string{PermCustomersRead},
	},
	{
		Name:                ActionUpdateTableStatus,
		Description:         "Set a table's status (available, occupied, reserved, cleaning, out-of-service).",
		RequiredParams:      []string{"table_number", "status"},
		RequiredPermissions: []string{PermTablesWrite},
		Mutating:            true,
	},
	{
		Name:                ActionUpdateMenuItem,
		Description:         "Update a menu item's price or availability by item name.",
		RequiredParams:      []string{"item_name"},
		OptionalParams:      []string{"price", "available"},
		RequiredPermissions: []string{PermMenuWrite},
		Mutating:            true,
	},
	{
		Name:                ActionPlaceOrder,
		Description:         "Place an order for one or more menu items, optionally seating it at a table.",
		RequiredParams:      []string{"items"},
		OptionalParams:      []string{"table_number", "customer_name"},
		RequiredPermissions: []string{PermOrdersWrite},
		Mutating:            true,
	},
	{
		Name:                ActionUpdateOrderStatus,
		Description:         "Update an order's status by order number (preparing, served, paid, cancelled).",
		RequiredParams:      []string{"order_number", "status"},
		RequiredPermissions: []string{PermOrdersWrite},
		Mutating:            true,
	},
	{
		Name:                ActionAddCustomer,
		Description:         "Add a customer record with a name and optional phone/email.",
		RequiredParams:      []string{"name"},
		OptionalParams:      []string{"phone", "email", "address"},
		RequiredPermissions: []string{PermCustomersWrite},
		Mutating:            true,
	},
}

// Catalog returns the static action catalog
func Catalog() []ActionDescriptor {
	return catalog
}

// LookupAction returns the descriptor for an action name
func LookupAction(name ActionName) (ActionDescriptor, bool) {
	for _, d := range catalog {
		if d.Name == name {
			return d, true
		}
	}
	return ActionDescriptor{}, false
}

// MissingParams returns the required parameters absent from args, in
// declaration order
func (d ActionDescriptor) MissingParams(args map[string]any) []string {
	var missing []string
	for _, p := range d.RequiredParams {
		v, ok := args[p]
		if !ok || v == nil || v == "" {
			missing = append(missing, p)
		}
	}
	return missing
}
