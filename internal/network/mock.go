package network

import (
	"context"
	"sync"
	"time"

	"github.com/safarinet/billing-portal/internal/models"
)

// MockProvider is a complete in-memory implementation of the Provider
// contract. It is first-class, not a test helper: the portal runs against it
// (NETWORK_PROVIDER=mock) in development and staging where no router exists,
// and tests inject it per-test without process-wide state.
type MockProvider struct {
	mu       sync.Mutex
	accounts map[string]*mockAccount
}

type mockAccount struct {
	password string
	plan     models.Plan
	expires  time.Time
	disabled bool
	bytesIn  int64
	bytesOut int64
	online   bool
}

// NewMockProvider creates an empty mock provider.
func NewMockProvider() *MockProvider {
	return &MockProvider{accounts: make(map[string]*mockAccount)}
}

func (p *MockProvider) CreateUser(ctx context.Context, phone string, plan models.Plan) (*models.UserCredentials, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	password := GenerateHotspotPassword()
	p.accounts[phone] = &mockAccount{
		password: password,
		plan:     plan,
		expires:  time.Now().AddDate(0, 0, plan.DurationDays),
	}

	return &models.UserCredentials{Username: phone, Password: password}, nil
}

func (p *MockProvider) DisableUser(ctx context.Context, username string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	acct, ok := p.accounts[username]
	if !ok {
		return false
	}
	acct.disabled = true
	acct.online = false
	return true
}

func (p *MockProvider) CheckUserStatus(ctx context.Context, username string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.accounts[username]
	return ok
}

func (p *MockProvider) GetUserUsage(ctx context.Context, username string) *models.UsageData {
	p.mu.Lock()
	defer p.mu.Unlock()

	acct, ok := p.accounts[username]
	if !ok {
		return nil
	}
	return &models.UsageData{
		BytesIn:    acct.bytesIn,
		BytesOut:   acct.bytesOut,
		DataUsedGB: float64(acct.bytesIn+acct.bytesOut) / float64(1<<30),
	}
}

func (p *MockProvider) CreateManyUsers(ctx context.Context, users []models.BulkUser) []models.UserCredentials {
	results := make([]models.UserCredentials, 0, len(users))
	for _, u := range users {
		creds, err := p.CreateUser(ctx, u.Phone, u.Plan)
		if err != nil {
			continue
		}
		results = append(results, *creds)
	}
	return results
}

func (p *MockProvider) GetActiveUsers(ctx context.Context) []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	users := make([]string, 0)
	for name, acct := range p.accounts {
		if acct.online && !acct.disabled {
			users = append(users, name)
		}
	}
	return users
}

// DisableExpiredUsers disables every enabled account whose expiry precedes
// the cutoff and returns the count. The mock supports the sweep for real so
// the expiry path is exercisable end to end.
func (p *MockProvider) DisableExpiredUsers(ctx context.Context, cutoff time.Time) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	count := 0
	for _, acct := range p.accounts {
		if !acct.disabled && acct.expires.Before(cutoff) {
			acct.disabled = true
			acct.online = false
			count++
		}
	}
	return count, nil
}

func (p *MockProvider) Vendor() Vendor {
	return VendorMock
}

// SetOnline marks an account as connected, for exercising active-session
// listings in development.
func (p *MockProvider) SetOnline(username string, online bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if acct, ok := p.accounts[username]; ok {
		acct.online = online
	}
}

// SetUsage seeds traffic counters, for exercising usage displays.
func (p *MockProvider) SetUsage(username string, bytesIn, bytesOut int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if acct, ok := p.accounts[username]; ok {
		acct.bytesIn = bytesIn
		acct.bytesOut = bytesOut
	}
}
