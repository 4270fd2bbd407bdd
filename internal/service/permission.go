package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dinehq/maitred/internal/domain"
	"github.com/dinehq/maitred/internal/telemetry"
)

// MembershipRepositoryInterface defines the interface for membership lookups
type MembershipRepositoryInterface interface {
	Get(ctx context.Context, userID, tenantID string) (*domain.Membership, error)
	Upsert(ctx context.Context, m *domain.Membership) error
	ListByTenant(ctx context.Context, tenantID string) ([]*domain.Membership, error)
}

// PermissionService gates resolved actions on the caller's membership.
// It runs after intent resolution and before any execution side effect.
type PermissionService struct {
	memberships MembershipRepositoryInterface
}

func NewPermissionService(memberships MembershipRepositoryInterface) *PermissionService {
	return &PermissionService{memberships: memberships}
}

// Check verifies the user may run the action within the tenant. A user
// with no membership in the tenant is denied before any permission is
// considered; that denial is distinct from an insufficient-permission
// denial so the two are never conflated in audit output.
func (s *PermissionService) Check(ctx context.Context, tenantID, userID string, action domain.ActionDescriptor) error {
	ctx, span := telemetry.StartSpan(ctx, "PermissionService.Check", telemetry.SpanAttributes{
		TenantID: tenantID,
		UserID:   userID,
		Action:   string(action.Name),
	})
	defer span.End()

	membership, err := s.memberships.Get(ctx, userID, tenantID)
	if err != nil {
		if errors.Is(err, domain.ErrNoTenantAccess) {
			return domain.ErrNoTenantAccess
		}
		span.SetError(err)
		return domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "membership lookup failed", err)
	}

	if membership.BypassesPermissionChecks() {
		return nil
	}

	// Holding any one of the action's permissions is enough.
	if len(action.RequiredPermissions) == 0 {
		return nil
	}
	for _, perm := range action.RequiredPermissions {
		if membership.HasPermission(perm) {
			return nil
		}
	}
	return domain.NewDomainError(domain.ErrCodePermissionDenied,
		fmt.Sprintf("action %s requires permission %s", action.Name,
			strings.Join(action.RequiredPermissions, " or ")))
}

// Grant upserts a membership. Used by the admin surface, not the
// query pipeline.
func (s *PermissionService) Grant(ctx context.Context, m *domain.Membership) error {
	if m.UserID == "" || m.TenantID == "" {
		return domain.ErrMissingRequiredField
	}
	return s.memberships.Upsert(ctx, m)
}

// ListMembers returns all memberships for a tenant
func (s *PermissionService) ListMembers(ctx context.Context, tenantID string) ([]*domain.Membership, error) {
	return s.memberships.ListByTenant(ctx, tenantID)
}
