package models

// ==================== Public API DTOs ====================

// RegisterRequest creates a portal account
type RegisterRequest struct {
	Phone    string `json:"phone" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Password string `json:"password" binding:"required,min=6"`
}

// LoginRequest authenticates a portal account
type LoginRequest struct {
	Phone    string `json:"phone" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse carries the session token
type LoginResponse struct {
	Token    string `json:"token"`
	Customer struct {
		ID    string `json:"id"`
		Phone string `json:"phone"`
		Name  string `json:"name"`
	} `json:"customer"`
}

// PurchaseRequest starts an M-Pesa STK push for a plan
type PurchaseRequest struct {
	Phone  string `json:"phone" binding:"required"`
	PlanID string `json:"plan_id" binding:"required"`
}

// PurchaseResponse acknowledges the payment prompt
type PurchaseResponse struct {
	PaymentID         string `json:"payment_id"`
	CheckoutRequestID string `json:"checkout_request_id"`
	Message           string `json:"message"`
}

// PlanResponse is a storefront plan listing entry
type PlanResponse struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Speed        string   `json:"speed"`
	DurationDays int      `json:"duration_days"`
	Price        float64  `json:"price"`
	DataCapGB    *float64 `json:"data_cap_gb,omitempty"`
}

// ==================== Admin API DTOs ====================

// ProvisionRequest manually activates a subscription (admin)
type ProvisionRequest struct {
	Phone  string `json:"phone" binding:"required"`
	PlanID string `json:"plan_id" binding:"required"`
}

// BulkProvisionRequest creates a batch of hotspot accounts (admin vouchers)
type BulkProvisionRequest struct {
	Users []BulkUser `json:"users" binding:"required,dive"`
}

// BulkProvisionResponse reports the successes. Callers diff Requested
// against Created to discover which entries were skipped.
type BulkProvisionResponse struct {
	Requested int               `json:"requested"`
	Created   []UserCredentials `json:"created"`
}

// DeactivateRequest disables a subscription (admin)
type DeactivateRequest struct {
	SubscriptionID string `json:"subscription_id" binding:"required"`
	Reason         string `json:"reason"`
}
