package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dinehq/maitred/internal/config"
	"github.com/dinehq/maitred/internal/database"
	"github.com/dinehq/maitred/internal/domain"
	"github.com/dinehq/maitred/internal/repository"
	"github.com/dinehq/maitred/internal/service"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

func TenantCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenant",
		Short: "Manage tenants",
		Long:  "Create, list, and seed restaurant tenants",
	}

	cmd.AddCommand(TenantCreateCmd())
	cmd.AddCommand(TenantListCmd())
	cmd.AddCommand(TenantSeedCmd())

	return cmd
}

func TenantCreateCmd() *cobra.Command {
	var taxRate float64

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a new tenant",
		Long:  "Create a new restaurant tenant with the specified name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputFormat, _ := cmd.Flags().GetString("output")
			return runTenantCreate(args[0], taxRate, outputFormat)
		},
	}

	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")
	cmd.Flags().Float64Var(&taxRate, "tax-rate", 0.05, "Tax rate as a fraction of subtotal")

	return cmd
}

func runTenantCreate(name string, taxRate float64, outputFormat string) error {
	ctx := context.Background()

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	tenantRepo := repository.NewTenantRepository(pool)
	uuidGen := &service.DefaultUUIDGenerator{}
	authSvc := service.NewAuthService(tenantRepo, nil, uuidGen)

	tenant, err := authSvc.CreateTenant(ctx, name, taxRate)
	if err != nil {
		return fmt.Errorf("failed to create tenant: %w", err)
	}

	if outputFormat == "json" {
		data := map[string]interface{}{
			"id":         tenant.ID,
			"name":       tenant.Name,
			"tax_rate":   tenant.TaxRate,
			"currency":   tenant.Currency,
			"created_at": tenant.CreatedAt,
		}
		jsonBytes, _ := json.MarshalIndent(data, "", "  ")
		fmt.Println(string(jsonBytes))
	} else {
		fmt.Printf("Tenant created: %s (%s)\n", tenant.Name, tenant.ID)
	}

	return nil
}

func TenantListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all tenants",
		Long:  "List all tenants in the system",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputFormat, _ := cmd.Flags().GetString("output")
			return runTenantList(outputFormat)
		},
	}

	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")

	return cmd
}

func runTenantList(outputFormat string) error {
	ctx := context.Background()

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	tenantRepo := repository.NewTenantRepository(pool)
	tenants, err := tenantRepo.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list tenants: %w", err)
	}

	if outputFormat == "json" {
		data := make([]map[string]interface{}, len(tenants))
		for i, t := range tenants {
			data[i] = map[string]interface{}{
				"id":         t.ID,
				"name":       t.Name,
				"tax_rate":   t.TaxRate,
				"currency":   t.Currency,
				"created_at": t.CreatedAt,
			}
		}
		jsonBytes, _ := json.MarshalIndent(data, "", "  ")
		fmt.Println(string(jsonBytes))
	} else {
		if len(tenants) == 0 {
			fmt.Println("No tenants found")
			return nil
		}
		fmt.Println("Tenants:")
		for _, t := range tenants {
			fmt.Printf("  %s: %s (tax %.1f%%, created: %s)\n", t.ID, t.Name, t.TaxRate*100, t.CreatedAt.Format("2006-01-02 15:04:05"))
		}
	}

	return nil
}

func TenantSeedCmd() *cobra.Command {
	var (
		tables int
		menu   bool
	)

	cmd := &cobra.Command{
		Use:   "seed <tenant>",
		Short: "Seed sample data for a tenant",
		Long:  "Create sample tables and a starter menu for a tenant, useful for demos and local development",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTenantSeed(args[0], tables, menu)
		},
	}

	cmd.Flags().IntVar(&tables, "tables", 8, "Number of tables to create")
	cmd.Flags().BoolVar(&menu, "menu", true, "Create a starter menu")

	return cmd
}

func runTenantSeed(tenantRef string, tableCount int, seedMenu bool) error {
	ctx := context.Background()

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	tenantRepo := repository.NewTenantRepository(pool)
	tenantID, err := resolveTenantID(ctx, tenantRepo, tenantRef)
	if err != nil {
		return err
	}

	uuidGen := &service.DefaultUUIDGenerator{}
	now := time.Now().UTC()

	tableRepo := repository.NewTableRepository(pool)
	for i := 1; i <= tableCount; i++ {
		capacity := 2
		if i%3 == 0 {
			capacity = 4
		}
		if i%5 == 0 {
			capacity = 6
		}
		t := &domain.Table{
			ID:        uuidGen.NewString(),
			TenantID:  tenantID,
			Number:    fmt.Sprintf("%d", i),
			Floor:     "main",
			Capacity:  capacity,
			Status:    domain.TableStatusAvailable,
			UpdatedAt: now,
			CreatedAt: now,
		}
		if err := tableRepo.Create(ctx, t); err != nil {
			return fmt.Errorf("failed to create table %d: %w", i, err)
		}
	}
	fmt.Printf("Created %d tables\n", tableCount)

	if seedMenu {
		menuRepo := repository.NewMenuItemRepository(pool)
		items := []*domain.MenuItem{
			{Name: "Margherita Pizza", Category: "mains", BasePrice: 12.50, Vegetarian: true, Variants: []domain.Variant{{Name: "large", PriceDelta: 4.00}}},
			{Name: "Spaghetti Carbonara", Category: "mains", BasePrice: 14.00},
			{Name: "Caesar Salad", Category: "starters", BasePrice: 8.50, Variants: []domain.Variant{{Name: "with chicken", PriceDelta: 3.50}}},
			{Name: "Tomato Soup", Category: "starters", BasePrice: 6.00, Vegetarian: true},
			{Name: "Tiramisu", Category: "desserts", BasePrice: 7.00, Vegetarian: true},
			{Name: "House Red", Category: "drinks", BasePrice: 6.50, Variants: []domain.Variant{{Name: "bottle", PriceDelta: 18.50}}},
			{Name: "Sparkling Water", Category: "drinks", BasePrice: 3.00, Vegetarian: true},
		}
		for _, item := range items {
			item.ID = uuidGen.NewString()
			item.TenantID = tenantID
			item.Available = true
			item.UpdatedAt = now
			item.CreatedAt = now
			if err := menuRepo.Create(ctx, item); err != nil {
				return fmt.Errorf("failed to create menu item %q: %w", item.Name, err)
			}
		}
		fmt.Printf("Created %d menu items\n", len(items))
	}

	fmt.Println("Run 'maitred-client reindex' or POST /knowledge/reindex to make the seeded data searchable")
	return nil
}

func getDBPool(ctx context.Context) (*pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
}
