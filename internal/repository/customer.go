package repository

import (
	"context"
	"errors"

	"github.com/dinehq/maitred/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CustomerRepository struct {
	pool *pgxpool.Pool
}

func NewCustomerRepository(pool *pgxpool.Pool) *CustomerRepository {
	return &CustomerRepository{pool: pool}
}

const customerColumns = `id, tenant_id, name, phone, email, address, visits, created_at`

func scanCustomer(row pgx.Row) (*domain.Customer, error) {
	var c domain.Customer
	var phone, email, address *string
	err := row.Scan(&c.ID, &c.TenantID, &c.Name, &phone, &email, &address, &c.Visits, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	if phone != nil {
		c.Phone = *phone
	}
	if email != nil {
		c.Email = *email
	}
	if address != nil {
		c.Address = *address
	}
	return &c, nil
}

func (r *CustomerRepository) Create(ctx context.Context, c *domain.Customer) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO customers (id, tenant_id, name, phone, email, address, visits, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		c.ID, c.TenantID, c.Name, nullableString(c.Phone), nullableString(c.Email),
		nullableString(c.Address), c.Visits, c.CreatedAt,
	)
	return err
}

func (r *CustomerRepository) GetByID(ctx context.Context, id string) (*domain.Customer, error) {
	c, err := scanCustomer(r.pool.QueryRow(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCustomerNotFound
		}
		return nil, err
	}
	return c, nil
}

// Search finds customers by exact phone or case-insensitive name match
// within a tenant.
func (r *CustomerRepository) Search(ctx context.Context, tenantID, query string) ([]*domain.Customer, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+customerColumns+` FROM customers
		 WHERE tenant_id = $1 AND (phone = $2 OR LOWER(name) = LOWER($2))
		 ORDER BY created_at`,
		tenantID, query,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var customers []*domain.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

func (r *CustomerRepository) IncrementVisits(ctx context.Context, tenantID, customerID string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE customers SET visits = visits + 1 WHERE tenant_id = $1 AND id = $2`,
		tenantID, customerID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCustomerNotFound
	}
	return nil
}
