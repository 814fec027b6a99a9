package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/safarinet/billing-portal/internal/models"
)

var ErrNotFound = errors.New("not found")

type CustomerRepository struct {
	pool *pgxpool.Pool
}

func NewCustomerRepository(pool *pgxpool.Pool) *CustomerRepository {
	return &CustomerRepository{pool: pool}
}

// Create inserts a new customer
func (r *CustomerRepository) Create(ctx context.Context, c *models.Customer) error {
	query := `
		INSERT INTO portal.customers (id, phone, name, email, password_hash, status)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.pool.Exec(ctx, query,
		c.ID, c.Phone, c.Name, c.Email, c.PasswordHash, c.Status,
	)
	if err != nil {
		return fmt.Errorf("insert customer: %w", err)
	}

	return nil
}

// GetByID retrieves a customer by ID
func (r *CustomerRepository) GetByID(ctx context.Context, id string) (*models.Customer, error) {
	query := `
		SELECT id, phone, name, email, password_hash, status, created_at, updated_at
		FROM portal.customers
		WHERE id = $1
	`

	return r.scanCustomer(r.pool.QueryRow(ctx, query, id))
}

// GetByPhone retrieves a customer by phone number (the natural key shared
// with router hotspot accounts)
func (r *CustomerRepository) GetByPhone(ctx context.Context, phone string) (*models.Customer, error) {
	query := `
		SELECT id, phone, name, email, password_hash, status, created_at, updated_at
		FROM portal.customers
		WHERE phone = $1
	`

	return r.scanCustomer(r.pool.QueryRow(ctx, query, phone))
}

// List retrieves customers, newest first
func (r *CustomerRepository) List(ctx context.Context, limit, offset int) ([]*models.Customer, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, phone, name, email, password_hash, status, created_at, updated_at
		FROM portal.customers
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query customers: %w", err)
	}
	defer rows.Close()

	var customers []*models.Customer
	for rows.Next() {
		c := &models.Customer{}
		if err := rows.Scan(&c.ID, &c.Phone, &c.Name, &c.Email, &c.PasswordHash, &c.Status, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		customers = append(customers, c)
	}

	return customers, rows.Err()
}

// UpdateStatus updates only the account status
func (r *CustomerRepository) UpdateStatus(ctx context.Context, id, status string) error {
	query := `UPDATE portal.customers SET status = $1, updated_at = now() WHERE id = $2`
	_, err := r.pool.Exec(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("update customer status: %w", err)
	}
	return nil
}

func (r *CustomerRepository) scanCustomer(row pgx.Row) (*models.Customer, error) {
	c := &models.Customer{}
	err := row.Scan(&c.ID, &c.Phone, &c.Name, &c.Email, &c.PasswordHash, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan customer: %w", err)
	}
	return c, nil
}
