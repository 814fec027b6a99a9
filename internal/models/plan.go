package models

import "time"

// Plan is a purchasable internet package. Immutable once referenced by an
// active subscription; the provisioning layer treats it as a read-only value.
type Plan struct {
	ID           string
	Name         string
	Speed        string // human-readable speed label, e.g. "10 Mbps"
	DurationDays int
	Price        float64
	DataCapGB    *float64 // nil means uncapped
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ProfileName returns the router hotspot profile bound to this plan's
// speed tier (e.g. "10 Mbps-Profile").
func (p Plan) ProfileName() string {
	return p.Speed + "-Profile"
}
