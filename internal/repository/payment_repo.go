package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/safarinet/billing-portal/internal/models"
)

type PaymentRepository struct {
	pool *pgxpool.Pool
}

func NewPaymentRepository(pool *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{pool: pool}
}

const paymentColumns = `id, subscription_id, customer_id, plan_id, phone, amount, status,
	   checkout_request_id, merchant_request_id, mpesa_receipt, result_code, result_desc,
	   created_at, updated_at, completed_at`

// Create inserts a new payment record
func (r *PaymentRepository) Create(ctx context.Context, p *models.Payment) error {
	query := `
		INSERT INTO portal.payments (
			id, subscription_id, customer_id, plan_id, phone, amount, status,
			checkout_request_id, merchant_request_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.pool.Exec(ctx, query,
		p.ID, p.SubscriptionID, p.CustomerID, p.PlanID, p.Phone, p.Amount, p.Status,
		p.CheckoutRequestID, p.MerchantRequestID,
	)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}

	return nil
}

// GetByCheckoutRequestID retrieves a payment by the M-Pesa checkout
// reference carried in the callback
func (r *PaymentRepository) GetByCheckoutRequestID(ctx context.Context, checkoutRequestID string) (*models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM portal.payments WHERE checkout_request_id = $1`
	return r.scanPayment(r.pool.QueryRow(ctx, query, checkoutRequestID))
}

// GetByID retrieves a payment by ID
func (r *PaymentRepository) GetByID(ctx context.Context, id string) (*models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM portal.payments WHERE id = $1`
	return r.scanPayment(r.pool.QueryRow(ctx, query, id))
}

// Update rewrites the mutable payment fields
func (r *PaymentRepository) Update(ctx context.Context, p *models.Payment) error {
	query := `
		UPDATE portal.payments SET
			subscription_id = $1,
			status = $2,
			merchant_request_id = $3,
			mpesa_receipt = $4,
			result_code = $5,
			result_desc = $6,
			completed_at = $7,
			updated_at = now()
		WHERE id = $8
	`

	_, err := r.pool.Exec(ctx, query,
		p.SubscriptionID, p.Status, p.MerchantRequestID, p.MpesaReceipt,
		p.ResultCode, p.ResultDesc, p.CompletedAt, p.ID,
	)
	if err != nil {
		return fmt.Errorf("update payment: %w", err)
	}

	return nil
}

func (r *PaymentRepository) scanPayment(row pgx.Row) (*models.Payment, error) {
	p := &models.Payment{}
	err := row.Scan(
		&p.ID, &p.SubscriptionID, &p.CustomerID, &p.PlanID, &p.Phone, &p.Amount, &p.Status,
		&p.CheckoutRequestID, &p.MerchantRequestID, &p.MpesaReceipt, &p.ResultCode, &p.ResultDesc,
		&p.CreatedAt, &p.UpdatedAt, &p.CompletedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan payment: %w", err)
	}
	return p, nil
}
