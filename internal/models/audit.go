package models

import "time"

// ProvisionLog is one audit entry for a provisioning-side effect (router
// account created/disabled, sweep run, bulk batch). The router keeps no
// history, so this table is the only record of what was done to it and why.
type ProvisionLog struct {
	ID             string
	SubscriptionID string
	Username       string
	Action         string
	Status         string
	Message        string
	Metadata       map[string]interface{}
	CreatedAt      time.Time
}
