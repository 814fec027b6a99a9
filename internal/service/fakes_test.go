package service

import (
	"context"
	"errors"
	"time"

	"github.com/safarinet/billing-portal/internal/client"
	"github.com/safarinet/billing-portal/internal/models"
	"github.com/safarinet/billing-portal/internal/network"
	"github.com/safarinet/billing-portal/internal/repository"
)

type fakePlanRepo struct {
	plans map[string]*models.Plan
}

func (f *fakePlanRepo) GetByID(ctx context.Context, id string) (*models.Plan, error) {
	if p, ok := f.plans[id]; ok {
		copied := *p
		return &copied, nil
	}
	return nil, repository.ErrNotFound
}

type fakeSubRepo struct {
	subs      map[string]*models.Subscription
	updateErr error
}

func newFakeSubRepo() *fakeSubRepo {
	return &fakeSubRepo{subs: make(map[string]*models.Subscription)}
}

func (f *fakeSubRepo) Create(ctx context.Context, s *models.Subscription) error {
	copied := *s
	f.subs[s.ID] = &copied
	return nil
}

func (f *fakeSubRepo) GetByID(ctx context.Context, id string) (*models.Subscription, error) {
	if s, ok := f.subs[id]; ok {
		copied := *s
		return &copied, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeSubRepo) GetActiveByPhone(ctx context.Context, phone string) (*models.Subscription, error) {
	for _, s := range f.subs {
		if s.Phone == phone && s.Status == models.SubscriptionStatusActive {
			copied := *s
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeSubRepo) ListExpired(ctx context.Context, cutoff time.Time) ([]*models.Subscription, error) {
	var out []*models.Subscription
	for _, s := range f.subs {
		if s.Status == models.SubscriptionStatusActive && s.ExpiresAt != nil && s.ExpiresAt.Before(cutoff) {
			copied := *s
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeSubRepo) Update(ctx context.Context, s *models.Subscription) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	copied := *s
	f.subs[s.ID] = &copied
	return nil
}

type fakePaymentRepo struct {
	payments map[string]*models.Payment
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{payments: make(map[string]*models.Payment)}
}

func (f *fakePaymentRepo) Create(ctx context.Context, p *models.Payment) error {
	copied := *p
	f.payments[p.ID] = &copied
	return nil
}

func (f *fakePaymentRepo) GetByCheckoutRequestID(ctx context.Context, checkoutRequestID string) (*models.Payment, error) {
	for _, p := range f.payments {
		if p.CheckoutRequestID == checkoutRequestID {
			copied := *p
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakePaymentRepo) Update(ctx context.Context, p *models.Payment) error {
	copied := *p
	f.payments[p.ID] = &copied
	return nil
}

type logEntry struct {
	subscriptionID string
	username       string
	action         string
	status         string
	message        string
}

type fakeLogRepo struct {
	entries []logEntry
}

func (f *fakeLogRepo) LogAction(ctx context.Context, subscriptionID, username, action, status, message string) error {
	f.entries = append(f.entries, logEntry{subscriptionID, username, action, status, message})
	return nil
}

func (f *fakeLogRepo) LogActionWithMetadata(ctx context.Context, subscriptionID, username, action, status, message string, metadata map[string]interface{}) error {
	return f.LogAction(ctx, subscriptionID, username, action, status, message)
}

func (f *fakeLogRepo) byAction(action string) []logEntry {
	var out []logEntry
	for _, e := range f.entries {
		if e.action == action {
			out = append(out, e)
		}
	}
	return out
}

type fakeMpesa struct {
	err   error
	calls int
}

func (f *fakeMpesa) InitiateSTKPush(ctx context.Context, phone string, amount float64, reference string) (*client.STKPushResponse, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &client.STKPushResponse{
		MerchantRequestID: "merchant-1",
		CheckoutRequestID: "checkout-1",
		ResponseCode:      "0",
	}, nil
}

// failingProvider wraps the mock provider but refuses account creation, for
// exercising the provisioning-failure path.
type failingProvider struct {
	*network.MockProvider
}

func (p *failingProvider) CreateUser(ctx context.Context, phone string, plan models.Plan) (*models.UserCredentials, error) {
	return nil, errors.New("router unreachable")
}

type fakeCustomerRepo struct {
	customers map[string]*models.Customer
}

func newFakeCustomerRepo() *fakeCustomerRepo {
	return &fakeCustomerRepo{customers: make(map[string]*models.Customer)}
}

func (f *fakeCustomerRepo) Create(ctx context.Context, c *models.Customer) error {
	copied := *c
	f.customers[c.ID] = &copied
	return nil
}

func (f *fakeCustomerRepo) GetByID(ctx context.Context, id string) (*models.Customer, error) {
	if c, ok := f.customers[id]; ok {
		copied := *c
		return &copied, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeCustomerRepo) GetByPhone(ctx context.Context, phone string) (*models.Customer, error) {
	for _, c := range f.customers {
		if c.Phone == phone {
			copied := *c
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeCustomerRepo) List(ctx context.Context, limit, offset int) ([]*models.Customer, error) {
	var out []*models.Customer
	for _, c := range f.customers {
		copied := *c
		out = append(out, &copied)
	}
	return out, nil
}

func (f *fakeCustomerRepo) UpdateStatus(ctx context.Context, id, status string) error {
	c, ok := f.customers[id]
	if !ok {
		return repository.ErrNotFound
	}
	c.Status = status
	return nil
}
