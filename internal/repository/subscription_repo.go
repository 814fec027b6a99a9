package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/safarinet/billing-portal/internal/models"
)

type SubscriptionRepository struct {
	pool *pgxpool.Pool
}

func NewSubscriptionRepository(pool *pgxpool.Pool) *SubscriptionRepository {
	return &SubscriptionRepository{pool: pool}
}

const subscriptionColumns = `id, customer_id, plan_id, phone, status, hotspot_password,
	   starts_at, expires_at, created_at, updated_at, disabled_at`

// Create inserts a new subscription
func (r *SubscriptionRepository) Create(ctx context.Context, s *models.Subscription) error {
	query := `
		INSERT INTO portal.subscriptions (id, customer_id, plan_id, phone, status, hotspot_password, starts_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.pool.Exec(ctx, query,
		s.ID, s.CustomerID, s.PlanID, s.Phone, s.Status, s.HotspotPassword, s.StartsAt, s.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("insert subscription: %w", err)
	}

	return nil
}

// GetByID retrieves a subscription by ID
func (r *SubscriptionRepository) GetByID(ctx context.Context, id string) (*models.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM portal.subscriptions WHERE id = $1`
	return r.scanSubscription(r.pool.QueryRow(ctx, query, id))
}

// GetActiveByPhone retrieves the active subscription for a phone number
func (r *SubscriptionRepository) GetActiveByPhone(ctx context.Context, phone string) (*models.Subscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM portal.subscriptions
		WHERE phone = $1 AND status = 'active'
		ORDER BY created_at DESC
		LIMIT 1
	`
	return r.scanSubscription(r.pool.QueryRow(ctx, query, phone))
}

// GetByCustomerID retrieves all subscriptions for a customer, newest first
func (r *SubscriptionRepository) GetByCustomerID(ctx context.Context, customerID string) ([]*models.Subscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM portal.subscriptions
		WHERE customer_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, customerID)
	if err != nil {
		return nil, fmt.Errorf("query subscriptions: %w", err)
	}
	defer rows.Close()

	return r.scanSubscriptions(rows)
}

// ListExpired retrieves active subscriptions whose expiry precedes the cutoff
func (r *SubscriptionRepository) ListExpired(ctx context.Context, cutoff time.Time) ([]*models.Subscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM portal.subscriptions
		WHERE status = 'active' AND expires_at IS NOT NULL AND expires_at < $1
		ORDER BY expires_at ASC
	`

	rows, err := r.pool.Query(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("query expired subscriptions: %w", err)
	}
	defer rows.Close()

	return r.scanSubscriptions(rows)
}

// Update rewrites the mutable subscription fields
func (r *SubscriptionRepository) Update(ctx context.Context, s *models.Subscription) error {
	query := `
		UPDATE portal.subscriptions SET
			status = $1,
			hotspot_password = $2,
			starts_at = $3,
			expires_at = $4,
			disabled_at = $5,
			updated_at = now()
		WHERE id = $6
	`

	_, err := r.pool.Exec(ctx, query,
		s.Status, s.HotspotPassword, s.StartsAt, s.ExpiresAt, s.DisabledAt, s.ID,
	)
	if err != nil {
		return fmt.Errorf("update subscription: %w", err)
	}

	return nil
}

// UpdateStatus updates only the status
func (r *SubscriptionRepository) UpdateStatus(ctx context.Context, id, status string) error {
	query := `UPDATE portal.subscriptions SET status = $1, updated_at = now() WHERE id = $2`
	_, err := r.pool.Exec(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("update subscription status: %w", err)
	}
	return nil
}

func (r *SubscriptionRepository) scanSubscription(row pgx.Row) (*models.Subscription, error) {
	s := &models.Subscription{}
	err := row.Scan(
		&s.ID, &s.CustomerID, &s.PlanID, &s.Phone, &s.Status, &s.HotspotPassword,
		&s.StartsAt, &s.ExpiresAt, &s.CreatedAt, &s.UpdatedAt, &s.DisabledAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan subscription: %w", err)
	}
	return s, nil
}

func (r *SubscriptionRepository) scanSubscriptions(rows pgx.Rows) ([]*models.Subscription, error) {
	var subs []*models.Subscription
	for rows.Next() {
		s := &models.Subscription{}
		err := rows.Scan(
			&s.ID, &s.CustomerID, &s.PlanID, &s.Phone, &s.Status, &s.HotspotPassword,
			&s.StartsAt, &s.ExpiresAt, &s.CreatedAt, &s.UpdatedAt, &s.DisabledAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}
