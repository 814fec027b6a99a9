package network

import (
	"context"
	"errors"
	"time"

	"github.com/safarinet/billing-portal/internal/models"
)

// Vendor discriminates provider implementations.
type Vendor string

const (
	VendorMikroTik Vendor = "mikrotik"
	VendorRadius   Vendor = "radius"
	VendorMock     Vendor = "mock"
)

// ErrNotSupported is returned by capabilities a provider does not implement,
// so callers cannot mistake "not implemented" for "nothing to do". The
// MikroTik provider returns it from DisableExpiredUsers because expiry there
// is enforced on-router by limit-uptime.
var ErrNotSupported = errors.New("operation not supported by network provider")

// Provider is the vendor-neutral capability set for subscriber network
// access. Subscriber-management code talks only to this contract and never
// learns which access-control technology (hotspot captive portal, PPPoE,
// RADIUS) or vendor sits behind it.
//
// Error semantics mirror the asymmetry callers depend on: CreateUser
// propagates failure of the primary effect, while DisableUser,
// CheckUserStatus, GetUserUsage, CreateManyUsers and GetActiveUsers degrade
// to false / nil / partial / empty results.
type Provider interface {
	CreateUser(ctx context.Context, phone string, plan models.Plan) (*models.UserCredentials, error)
	DisableUser(ctx context.Context, username string) bool
	CheckUserStatus(ctx context.Context, username string) bool
	GetUserUsage(ctx context.Context, username string) *models.UsageData
	CreateManyUsers(ctx context.Context, users []models.BulkUser) []models.UserCredentials
	GetActiveUsers(ctx context.Context) []string

	// DisableExpiredUsers disables every account whose expiry precedes the
	// cutoff and reports how many it touched. Providers that enforce expiry
	// themselves return ErrNotSupported.
	DisableExpiredUsers(ctx context.Context, cutoff time.Time) (int, error)

	Vendor() Vendor
}

// Disconnecter is implemented by providers holding a transport session that
// should be torn down at process shutdown.
type Disconnecter interface {
	Disconnect() error
}
