package models

import "time"

// Customer account status constants
const (
	CustomerStatusActive    = "active"
	CustomerStatusSuspended = "suspended"
)

// Customer is a portal account, keyed by phone number (the same natural key
// used for router hotspot accounts).
type Customer struct {
	ID           string
	Phone        string
	Name         string
	Email        *string
	PasswordHash string `json:"-"`
	Status       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
