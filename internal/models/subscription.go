package models

import "time"

// Subscription status constants
const (
	SubscriptionStatusPending  = "pending"
	SubscriptionStatusActive   = "active"
	SubscriptionStatusExpired  = "expired"
	SubscriptionStatusDisabled = "disabled"
)

// Subscription ties a customer to a plan for one billing period. The router
// account is the provisioning layer's own state; this record is the portal's
// view of it, reconciled by the activation service.
type Subscription struct {
	ID         string
	CustomerID string
	PlanID     string
	Phone      string
	Status     string

	// Credentials issued at activation (password shown to the customer once)
	HotspotPassword *string

	StartsAt   *time.Time
	ExpiresAt  *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
	DisabledAt *time.Time
}
