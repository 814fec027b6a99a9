package models

import "time"

// Payment status constants
const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
)

// Payment records one M-Pesa transaction attempt against a subscription.
type Payment struct {
	ID             string
	SubscriptionID *string
	CustomerID     *string
	PlanID         string
	Phone          string
	Amount         float64
	Status         string

	// M-Pesa references
	CheckoutRequestID string
	MerchantRequestID *string
	MpesaReceipt      *string
	ResultCode        *int
	ResultDesc        *string

	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time
}
