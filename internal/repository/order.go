package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/dinehq/maitred/internal/domain"
	"github.com/dinehq/maitred/internal/pagination"
	"github.com/dinehq/maitred/internal/service"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type OrderRepository struct {
	db dbtx
}

func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{db: pool}
}

func NewOrderRepositoryWithTx(tx pgx.Tx) *OrderRepository {
	return &OrderRepository{db: tx}
}

const orderColumns = `id, tenant_id, number, daily_seq, table_id, customer_id, items, subtotal, tax_rate, tax_amount, final_amount, status, placed_by, created_at, updated_at`

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var o domain.Order
	var tableID, customerID *string
	var itemsJSON []byte
	err := row.Scan(&o.ID, &o.TenantID, &o.Number, &o.DailySeq, &tableID, &customerID,
		&itemsJSON, &o.Subtotal, &o.TaxRate, &o.TaxAmount, &o.FinalAmount,
		&o.Status, &o.PlacedBy, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if tableID != nil {
		o.TableID = *tableID
	}
	if customerID != nil {
		o.CustomerID = *customerID
	}
	if len(itemsJSON) > 0 {
		if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
			return nil, err
		}
	}
	return &o, nil
}

// NextDailySeq atomically increments and returns the per-tenant per-day
// order sequence. Single round trip, single row lock; concurrent order
// placement for the same tenant and day never observes a duplicate.
func (r *OrderRepository) NextDailySeq(ctx context.Context, tenantID string, day time.Time) (int, error) {
	var seq int
	err := r.db.QueryRow(ctx,
		`INSERT INTO order_counters (tenant_id, day, seq)
		 VALUES ($1, $2, 1)
		 ON CONFLICT (tenant_id, day)
		 DO UPDATE SET seq = order_counters.seq + 1
		 RETURNING seq`,
		tenantID, day.UTC().Format("2006-01-02"),
	).Scan(&seq)
	if err != nil {
		return 0, err
	}
	return seq, nil
}

func (r *OrderRepository) Create(ctx context.Context, o *domain.Order) error {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx,
		`INSERT INTO orders (id, tenant_id, number, daily_seq, table_id, customer_id, items, subtotal, tax_rate, tax_amount, final_amount, status, placed_by, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		o.ID, o.TenantID, o.Number, o.DailySeq, nullableString(o.TableID), nullableString(o.CustomerID),
		itemsJSON, o.Subtotal, o.TaxRate, o.TaxAmount, o.FinalAmount, o.Status, o.PlacedBy,
		o.CreatedAt, o.UpdatedAt,
	)
	return err
}

func (r *OrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	o, err := scanOrder(r.db.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, err
	}
	return o, nil
}

// GetByNumber resolves an order by its human-readable number within a
// tenant. Matching is exact only.
func (r *OrderRepository) GetByNumber(ctx context.Context, tenantID, number string) (*domain.Order, error) {
	o, err := scanOrder(r.db.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE tenant_id = $1 AND number = $2`,
		tenantID, number))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, err
	}
	return o, nil
}

func (r *OrderRepository) ListByTenant(ctx context.Context, tenantID string, status domain.OrderStatus) ([]*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE tenant_id = $1`
	args := []any{tenantID}
	if status != "" {
		query += ` AND status = $2`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (r *OrderRepository) ListByTenantWithCursor(ctx context.Context, tenantID string, cursor *pagination.Cursor, limit int) (*service.OrderPage, error) {
	if limit <= 0 {
		limit = 20
	}

	var rows pgx.Rows
	var err error

	if cursor != nil {
		rows, err = r.db.Query(ctx,
			`SELECT `+orderColumns+` FROM orders
			 WHERE tenant_id = $1 AND (created_at, id) < ($2, $3)
			 ORDER BY created_at DESC, id DESC
			 LIMIT $4`,
			tenantID, cursor.Timestamp, cursor.LastID, limit+1,
		)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT `+orderColumns+` FROM orders
			 WHERE tenant_id = $1
			 ORDER BY created_at DESC, id DESC
			 LIMIT $2`,
			tenantID, limit+1,
		)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result := &service.OrderPage{Orders: orders}
	if len(orders) > limit {
		result.Orders = orders[:limit]
		result.HasMore = true
		last := result.Orders[limit-1]
		result.NextCursor = pagination.EncodeCursor(last.ID, last.CreatedAt)
	}
	return result, nil
}

func (r *OrderRepository) ListByDay(ctx context.Context, tenantID string, day time.Time) ([]*domain.Order, error) {
	start := time.Date(day.UTC().Year(), day.UTC().Month(), day.UTC().Day(), 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	rows, err := r.db.Query(ctx,
		`SELECT `+orderColumns+` FROM orders
		 WHERE tenant_id = $1 AND created_at >= $2 AND created_at < $3
		 ORDER BY created_at`,
		tenantID, start, end,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, tenantID, orderID string, status domain.OrderStatus) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE orders SET status = $1, updated_at = $2 WHERE tenant_id = $3 AND id = $4`,
		status, time.Now().UTC(), tenantID, orderID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}
