package repository

import (
	"context"
	"errors"
	"time"

	"github.com/dinehq/maitred/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TableRepository struct {
	db dbtx
}

func NewTableRepository(pool *pgxpool.Pool) *TableRepository {
	return &TableRepository{db: pool}
}

func NewTableRepositoryWithTx(tx pgx.Tx) *TableRepository {
	return &TableRepository{db: tx}
}

const tableColumns = `id, tenant_id, number, floor, capacity, status, current_order_id, updated_at, created_at`

func scanTable(row pgx.Row) (*domain.Table, error) {
	var t domain.Table
	var orderID *string
	err := row.Scan(&t.ID, &t.TenantID, &t.Number, &t.Floor, &t.Capacity, &t.Status, &orderID, &t.UpdatedAt, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	if orderID != nil {
		t.CurrentOrderID = *orderID
	}
	return &t, nil
}

func (r *TableRepository) Create(ctx context.Context, t *domain.Table) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO tables (id, tenant_id, number, floor, capacity, status, current_order_id, updated_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		t.ID, t.TenantID, t.Number, t.Floor, t.Capacity, t.Status, nullableString(t.CurrentOrderID), t.UpdatedAt, t.CreatedAt,
	)
	return err
}

func (r *TableRepository) GetByID(ctx context.Context, id string) (*domain.Table, error) {
	t, err := scanTable(r.db.QueryRow(ctx,
		`SELECT `+tableColumns+` FROM tables WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTableNotFound
		}
		return nil, err
	}
	return t, nil
}

// GetByNumber resolves a table by its human number within a tenant.
// Table numbers are unique per tenant; matching is exact only.
func (r *TableRepository) GetByNumber(ctx context.Context, tenantID, number string) (*domain.Table, error) {
	t, err := scanTable(r.db.QueryRow(ctx,
		`SELECT `+tableColumns+` FROM tables WHERE tenant_id = $1 AND number = $2`,
		tenantID, number))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTableNotFound
		}
		return nil, err
	}
	return t, nil
}

func (r *TableRepository) ListByTenant(ctx context.Context, tenantID string) ([]*domain.Table, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+tableColumns+` FROM tables WHERE tenant_id = $1 ORDER BY floor, number`,
		tenantID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []*domain.Table
	for rows.Next() {
		t, err := scanTable(rows)
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return tables, rows.Err()
}

// UpdateStatus sets a table's status unconditionally (operator override).
func (r *TableRepository) UpdateStatus(ctx context.Context, tenantID, tableID string, status domain.TableStatus, orderID string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE tables SET status = $1, current_order_id = $2, updated_at = $3
		 WHERE tenant_id = $4 AND id = $5`,
		status, nullableString(orderID), time.Now().UTC(), tenantID, tableID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTableNotFound
	}
	return nil
}

// Occupy transitions a table from available to occupied and links the
// order, in one statement. A second concurrent call sees zero rows
// affected and fails with ErrTableNotAvailable; this is the only
// duplicate-booking guard by design.
func (r *TableRepository) Occupy(ctx context.Context, tenantID, tableID, orderID string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE tables SET status = $1, current_order_id = $2, updated_at = $3
		 WHERE tenant_id = $4 AND id = $5 AND status = $6`,
		domain.TableStatusOccupied, orderID, time.Now().UTC(),
		tenantID, tableID, domain.TableStatusAvailable,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTableNotAvailable
	}
	return nil
}
