package client

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// TableRow mirrors the tables API response.
type TableRow struct {
	Number   string `json:"number"`
	Floor    string `json:"floor"`
	Capacity int    `json:"capacity"`
	Status   string `json:"status"`
}

// OrderItemRow mirrors one order line in the orders API response.
type OrderItemRow struct {
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	LineTotal float64 `json:"line_total"`
}

// OrderRow mirrors one order in the orders API response.
type OrderRow struct {
	Number      string         `json:"number"`
	Status      string         `json:"status"`
	Items       []OrderItemRow `json:"items"`
	Subtotal    float64        `json:"subtotal"`
	TaxAmount   float64        `json:"tax_amount"`
	FinalAmount float64        `json:"final_amount"`
	CreatedAt   string         `json:"created_at"`
}

// OrderList mirrors the paginated orders API response.
type OrderList struct {
	Orders     []OrderRow `json:"orders"`
	NextCursor string     `json:"next_cursor,omitempty"`
	HasMore    bool       `json:"has_more"`
}

// MenuRow mirrors one item in the menu API response.
type MenuRow struct {
	Name       string  `json:"name"`
	Category   string  `json:"category"`
	BasePrice  float64 `json:"base_price"`
	Vegetarian bool    `json:"vegetarian"`
	Available  bool    `json:"available"`
}

// TablesCmd creates the tables command.
func TablesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tables",
		Short: "List tables",
		Long:  "List the restaurant's tables with their current status.",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runTables(cmd, outputJSON)
		},
	}

	return cmd
}

func runTables(cmd *cobra.Command, outputJSON bool) error {
	apiClient, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := apiClient.Get("/tables")
	if err != nil {
		return err
	}

	var tables []TableRow
	if err := json.Unmarshal(resp.Data, &tables); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		jsonBytes, _ := json.MarshalIndent(tables, "", "  ")
		fmt.Println(string(jsonBytes))
		return nil
	}

	if len(tables) == 0 {
		fmt.Println("No tables found")
		return nil
	}
	for _, t := range tables {
		fmt.Printf("  %s (%s, seats %d): %s\n", t.Number, t.Floor, t.Capacity, t.Status)
	}

	return nil
}

// OrdersCmd creates the orders command.
func OrdersCmd() *cobra.Command {
	var (
		limit  int
		cursor string
	)

	cmd := &cobra.Command{
		Use:   "orders",
		Short: "List orders",
		Long:  "List the restaurant's orders, newest first.",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runOrders(cmd, limit, cursor, outputJSON)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of results")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Pagination cursor from previous response")

	return cmd
}

func runOrders(cmd *cobra.Command, limit int, cursor string, outputJSON bool) error {
	apiClient, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	if cursor != "" {
		params.Set("cursor", cursor)
	}

	resp, err := apiClient.Get("/orders?" + params.Encode())
	if err != nil {
		return err
	}

	var list OrderList
	if err := json.Unmarshal(resp.Data, &list); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		jsonBytes, _ := json.MarshalIndent(list, "", "  ")
		fmt.Println(string(jsonBytes))
		return nil
	}

	if len(list.Orders) == 0 {
		fmt.Println("No orders found")
		return nil
	}
	for _, o := range list.Orders {
		names := make([]string, len(o.Items))
		for i, it := range o.Items {
			names[i] = fmt.Sprintf("%dx %s", it.Quantity, it.Name)
		}
		fmt.Printf("  %s [%s] %s, total %.2f\n", o.Number, o.Status, strings.Join(names, ", "), o.FinalAmount)
	}
	if list.HasMore && list.NextCursor != "" {
		fmt.Printf("\nMore results available. Use --cursor %s\n", list.NextCursor)
	}

	return nil
}

// MenuCmd creates the menu command.
func MenuCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "menu",
		Short: "List menu items",
		Long:  "List the restaurant's menu grouped by category.",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runMenu(cmd, outputJSON)
		},
	}

	return cmd
}

func runMenu(cmd *cobra.Command, outputJSON bool) error {
	apiClient, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := apiClient.Get("/menu")
	if err != nil {
		return err
	}

	var items []MenuRow
	if err := json.Unmarshal(resp.Data, &items); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		jsonBytes, _ := json.MarshalIndent(items, "", "  ")
		fmt.Println(string(jsonBytes))
		return nil
	}

	if len(items) == 0 {
		fmt.Println("No menu items found")
		return nil
	}
	for _, m := range items {
		marks := ""
		if m.Vegetarian {
			marks += " (veg)"
		}
		if !m.Available {
			marks += " [unavailable]"
		}
		fmt.Printf("  %s / %s: %.2f%s\n", m.Category, m.Name, m.BasePrice, marks)
	}

	return nil
}
