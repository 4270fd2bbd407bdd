package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/dinehq/maitred/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type MenuItemRepository struct {
	db dbtx
}

func NewMenuItemRepository(pool *pgxpool.Pool) *MenuItemRepository {
	return &MenuItemRepository{db: pool}
}

func NewMenuItemRepositoryWithTx(tx pgx.Tx) *MenuItemRepository {
	return &MenuItemRepository{db: tx}
}

const menuColumns = `id, tenant_id, name, category, base_price, vegetarian, available, variants, updated_at, created_at`

func scanMenuItem(row pgx.Row) (*domain.MenuItem, error) {
	var m domain.MenuItem
	var variantsJSON []byte
	err := row.Scan(&m.ID, &m.TenantID, &m.Name, &m.Category, &m.BasePrice,
		&m.Vegetarian, &m.Available, &variantsJSON, &m.UpdatedAt, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	if len(variantsJSON) > 0 {
		if err := json.Unmarshal(variantsJSON, &m.Variants); err != nil {
			return nil, err
		}
	}
	return &m, nil
}

func (r *MenuItemRepository) Create(ctx context.Context, m *domain.MenuItem) error {
	variantsJSON, err := json.Marshal(m.Variants)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx,
		`INSERT INTO menu_items (id, tenant_id, name, category, base_price, vegetarian, available, variants, updated_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		m.ID, m.TenantID, m.Name, m.Category, m.BasePrice, m.Vegetarian, m.Available, variantsJSON, m.UpdatedAt, m.CreatedAt,
	)
	return err
}

func (r *MenuItemRepository) GetByID(ctx context.Context, id string) (*domain.MenuItem, error) {
	m, err := scanMenuItem(r.db.QueryRow(ctx,
		`SELECT `+menuColumns+` FROM menu_items WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrMenuItemNotFound
		}
		return nil, err
	}
	return m, nil
}

func (r *MenuItemRepository) ListByTenant(ctx context.Context, tenantID string) ([]*domain.MenuItem, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+menuColumns+` FROM menu_items WHERE tenant_id = $1 ORDER BY category, name`,
		tenantID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*domain.MenuItem
	for rows.Next() {
		m, err := scanMenuItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

func (r *MenuItemRepository) Update(ctx context.Context, m *domain.MenuItem) error {
	variantsJSON, err := json.Marshal(m.Variants)
	if err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx,
		`UPDATE menu_items
		 SET name = $1, category = $2, base_price = $3, vegetarian = $4, available = $5, variants = $6, updated_at = $7
		 WHERE tenant_id = $8 AND id = $9`,
		m.Name, m.Category, m.BasePrice, m.Vegetarian, m.Available, variantsJSON,
		time.Now().UTC(), m.TenantID, m.ID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrMenuItemNotFound
	}
	return nil
}
