package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/safarinet/billing-portal/internal/models"
)

type PlanRepository struct {
	pool *pgxpool.Pool
}

func NewPlanRepository(pool *pgxpool.Pool) *PlanRepository {
	return &PlanRepository{pool: pool}
}

// Create inserts a new plan
func (r *PlanRepository) Create(ctx context.Context, p *models.Plan) error {
	query := `
		INSERT INTO portal.plans (id, name, speed, duration_days, price, data_cap_gb, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.pool.Exec(ctx, query,
		p.ID, p.Name, p.Speed, p.DurationDays, p.Price, p.DataCapGB, p.Active,
	)
	if err != nil {
		return fmt.Errorf("insert plan: %w", err)
	}

	return nil
}

// GetByID retrieves a plan by ID
func (r *PlanRepository) GetByID(ctx context.Context, id string) (*models.Plan, error) {
	query := `
		SELECT id, name, speed, duration_days, price, data_cap_gb, active, created_at, updated_at
		FROM portal.plans
		WHERE id = $1
	`

	return r.scanPlan(r.pool.QueryRow(ctx, query, id))
}

// ListActive retrieves plans available on the storefront
func (r *PlanRepository) ListActive(ctx context.Context) ([]*models.Plan, error) {
	query := `
		SELECT id, name, speed, duration_days, price, data_cap_gb, active, created_at, updated_at
		FROM portal.plans
		WHERE active = true
		ORDER BY price ASC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query plans: %w", err)
	}
	defer rows.Close()

	var plans []*models.Plan
	for rows.Next() {
		p := &models.Plan{}
		if err := rows.Scan(&p.ID, &p.Name, &p.Speed, &p.DurationDays, &p.Price, &p.DataCapGB, &p.Active, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan plan: %w", err)
		}
		plans = append(plans, p)
	}

	return plans, rows.Err()
}

func (r *PlanRepository) scanPlan(row pgx.Row) (*models.Plan, error) {
	p := &models.Plan{}
	err := row.Scan(&p.ID, &p.Name, &p.Speed, &p.DurationDays, &p.Price, &p.DataCapGB, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan plan: %w", err)
	}
	return p, nil
}
