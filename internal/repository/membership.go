package repository

import (
	"context"
	"errors"

	"github.com/dinehq/maitred/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MembershipRepository reads the user-to-tenant role/permission relation.
// The membership data itself is owned by the account system; the
// assistant only queries it.
type MembershipRepository struct {
	pool *pgxpool.Pool
}

func NewMembershipRepository(pool *pgxpool.Pool) *MembershipRepository {
	return &MembershipRepository{pool: pool}
}

func (r *MembershipRepository) Get(ctx context.Context, userID, tenantID string) (*domain.Membership, error) {
	var m domain.Membership
	err := r.pool.QueryRow(ctx,
		`SELECT user_id, tenant_id, role, permissions, created_at
		 FROM memberships WHERE user_id = $1 AND tenant_id = $2`,
		userID, tenantID,
	).Scan(&m.UserID, &m.TenantID, &m.Role, &m.Permissions, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNoTenantAccess
		}
		return nil, err
	}
	return &m, nil
}

func (r *MembershipRepository) Upsert(ctx context.Context, m *domain.Membership) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO memberships (user_id, tenant_id, role, permissions, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (user_id, tenant_id)
		 DO UPDATE SET role = EXCLUDED.role, permissions = EXCLUDED.permissions`,
		m.UserID, m.TenantID, m.Role, m.Permissions, m.CreatedAt,
	)
	return err
}

func (r *MembershipRepository) ListByTenant(ctx context.Context, tenantID string) ([]*domain.Membership, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT user_id, tenant_id, role, permissions, created_at
		 FROM memberships WHERE tenant_id = $1 ORDER BY created_at`,
		tenantID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []*domain.Membership
	for rows.Next() {
		var m domain.Membership
		if err := rows.Scan(&m.UserID, &m.TenantID, &m.Role, &m.Permissions, &m.CreatedAt); err != nil {
			return nil, err
		}
		members = append(members, &m)
	}
	return members, rows.Err()
}
