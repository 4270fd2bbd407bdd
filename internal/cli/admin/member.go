package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dinehq/maitred/internal/domain"
	"github.com/dinehq/maitred/internal/repository"
	"github.com/spf13/cobra"
)

func MemberCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "member",
		Short: "Manage tenant memberships",
		Long:  "Grant and list tenant memberships for operator users",
	}

	cmd.AddCommand(MemberGrantCmd())
	cmd.AddCommand(MemberListCmd())

	return cmd
}

func MemberGrantCmd() *cobra.Command {
	var (
		role        string
		permissions string
	)

	cmd := &cobra.Command{
		Use:   "grant <user-id>",
		Short: "Grant a user membership in a tenant",
		Long:  "Grant or update a user's membership in a tenant. Granting again replaces the role and permissions.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tenantRef, _ := cmd.Flags().GetString("tenant")
			outputFormat, _ := cmd.Flags().GetString("output")
			return runMemberGrant(args[0], tenantRef, role, permissions, outputFormat)
		},
	}

	cmd.Flags().StringP("tenant", "t", "", "Tenant ID or name (required)")
	cmd.Flags().StringP("role", "r", "staff", "Role: owner, manager, staff or viewer")
	cmd.Flags().StringP("perms", "p", "", "Comma-separated permission names (only used for staff and viewer)")
	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")
	cmd.MarkFlagRequired("tenant")

	return cmd
}

func runMemberGrant(userID, tenantRef, role, permissions, outputFormat string) error {
	ctx := context.Background()

	switch domain.Role(role) {
	case domain.RoleOwner, domain.RoleManager, domain.RoleStaff, domain.RoleViewer:
	default:
		return fmt.Errorf("invalid role %q (expected owner, manager, staff or viewer)", role)
	}

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

	var perms []string
	for _, p := range strings.Split(permissions, ",") {
		if p = strings.TrimSpace(p); p != "" {
			perms = append(perms, p)
		}
	}

	membershipRepo := repository.NewMembershipRepository(pool)
	m := &domain.Membership{
		UserID:      userID,
		TenantID:    tenantID,
		Role:        domain.Role(role),
		Permissions: perms,
		CreatedAt:   time.Now().UTC(),
	}
	if err := membershipRepo.Upsert(ctx, m); err != nil {
		return fmt.Errorf("failed to grant membership: %w", err)
	}

	if outputFormat == "json" {
		data := map[string]interface{}{
			"user_id":     m.UserID,
			"tenant_id":   m.TenantID,
			"role":        m.Role,
			"permissions": m.Permissions,
		}
		jsonBytes, _ := json.MarshalIndent(data, "", "  ")
		fmt.Println(string(jsonBytes))
	} else {
		fmt.Printf("Granted %s role %s in tenant %s\n", userID, role, tenantID)
	}

	return nil
}

func MemberListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List members of a tenant",
		RunE: func(cmd *cobra.Command, args []string) error {
			tenantRef, _ := cmd.Flags().GetString("tenant")
			outputFormat, _ := cmd.Flags().GetString("output")
			return runMemberList(tenantRef, outputFormat)
		},
	}

	cmd.Flags().StringP("tenant", "t", "", "Tenant ID or name (required)")
	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")
	cmd.MarkFlagRequired("tenant")

	return cmd
}

func runMemberList(tenantRef, outputFormat string) error {
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

	membershipRepo := repository.NewMembershipRepository(pool)
	members, err := membershipRepo.ListByTenant(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("failed to list members: %w", err)
	}

	if outputFormat == "json" {
		data := make([]map[string]interface{}, len(members))
		for i, m := range members {
			data[i] = map[string]interface{}{
				"user_id":     m.UserID,
				"role":        m.Role,
				"permissions": m.Permissions,
				"created_at":  m.CreatedAt,
			}
		}
		jsonBytes, _ := json.MarshalIndent(data, "", "  ")
		fmt.Println(string(jsonBytes))
	} else {
		if len(members) == 0 {
			fmt.Printf("No members found for tenant %s\n", tenantID)
			return nil
		}
		fmt.Printf("Members of tenant %s:\n", tenantID)
		for _, m := range members {
			perms := "all (role bypass)"
			if !m.BypassesPermissionChecks() {
				perms = strings.Join(m.Permissions, ", ")
				if perms == "" {
					perms = "none"
				}
			}
			fmt.Printf("  %s: %s (permissions: %s)\n", m.UserID, m.Role, perms)
		}
	}

	return nil
}
