package network

import (
	"context"
	"time"

	"github.com/safarinet/billing-portal/internal/models"
)

// MikroTikProvider adapts the vendor-neutral Provider contract onto MikroTik
// RouterOS. Today it is a delegation layer over the hotspot account manager;
// a PPPoE account manager can slot in behind the same external shape when
// fiber subscribers arrive.
type MikroTikProvider struct {
	hotspot   *HotspotManager
	transport Transport
}

// NewMikroTikProvider creates a provider over the given transport.
func NewMikroTikProvider(transport Transport) *MikroTikProvider {
	return &MikroTikProvider{
		hotspot:   NewHotspotManager(transport),
		transport: transport,
	}
}

func (p *MikroTikProvider) CreateUser(ctx context.Context, phone string, plan models.Plan) (*models.UserCredentials, error) {
	return p.hotspot.CreateUser(ctx, phone, plan)
}

func (p *MikroTikProvider) DisableUser(ctx context.Context, username string) bool {
	return p.hotspot.DisableUser(ctx, username)
}

func (p *MikroTikProvider) CheckUserStatus(ctx context.Context, username string) bool {
	return p.hotspot.CheckUserStatus(ctx, username)
}

func (p *MikroTikProvider) GetUserUsage(ctx context.Context, username string) *models.UsageData {
	return p.hotspot.GetUserUsage(ctx, username)
}

func (p *MikroTikProvider) CreateManyUsers(ctx context.Context, users []models.BulkUser) []models.UserCredentials {
	return p.hotspot.CreateManyUsers(ctx, users)
}

func (p *MikroTikProvider) GetActiveUsers(ctx context.Context) []string {
	return p.hotspot.GetActiveUsers(ctx)
}

// DisableExpiredUsers is not supported: RouterOS enforces expiry itself via
// each account's limit-uptime, so there is no sweep to run here.
func (p *MikroTikProvider) DisableExpiredUsers(ctx context.Context, cutoff time.Time) (int, error) {
	return 0, ErrNotSupported
}

func (p *MikroTikProvider) Vendor() Vendor {
	return VendorMikroTik
}

// Disconnect tears down the underlying transport session.
func (p *MikroTikProvider) Disconnect() error {
	return p.transport.Disconnect()
}
