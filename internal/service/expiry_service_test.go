package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/safarinet/billing-portal/internal/models"
	"github.com/safarinet/billing-portal/internal/network"
)

// sweeplessProvider reports no bulk expiry support, like the MikroTik
// provider, and records per-user disables.
type sweeplessProvider struct {
	*network.MockProvider

	mu       sync.Mutex
	disabled []string
}

func (p *sweeplessProvider) DisableExpiredUsers(ctx context.Context, cutoff time.Time) (int, error) {
	return 0, network.ErrNotSupported
}

func (p *sweeplessProvider) DisableUser(ctx context.Context, username string) bool {
	p.mu.Lock()
	p.disabled = append(p.disabled, username)
	p.mu.Unlock()
	return p.MockProvider.DisableUser(ctx, username)
}

func expiredSubscription(id, phone string, expiredBy time.Duration) *models.Subscription {
	expires := time.Now().Add(-expiredBy)
	starts := expires.AddDate(0, 0, -30)
	return &models.Subscription{
		ID:        id,
		PlanID:    "plan-1",
		Phone:     phone,
		Status:    models.SubscriptionStatusActive,
		StartsAt:  &starts,
		ExpiresAt: &expires,
	}
}

func TestSweepOnce_ExpiresOverdueSubscriptions(t *testing.T) {
	provider := network.NewMockProvider()
	subRepo := newFakeSubRepo()
	logRepo := &fakeLogRepo{}
	ctx := context.Background()

	subRepo.Create(ctx, expiredSubscription("sub-1", "254700000001", time.Hour))
	current := expiredSubscription("sub-2", "254700000002", -time.Hour)
	subRepo.Create(ctx, current)

	svc := NewExpiryService(subRepo, logRepo, network.NewServiceWithProvider(provider), time.Minute)

	n, err := svc.SweepOnce(ctx)
	if err != nil {
		t.Fatalf("SweepOnce failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("Expected 1 expired, got %d", n)
	}

	expired, _ := subRepo.GetByID(ctx, "sub-1")
	if expired.Status != models.SubscriptionStatusExpired {
		t.Errorf("Expected expired status, got %q", expired.Status)
	}
	if expired.DisabledAt == nil {
		t.Error("Expected disabled timestamp on expired subscription")
	}

	stillActive, _ := subRepo.GetByID(ctx, "sub-2")
	if stillActive.Status != models.SubscriptionStatusActive {
		t.Errorf("Current subscription must stay active, got %q", stillActive.Status)
	}

	if entries := logRepo.byAction("hotspot_expire"); len(entries) != 1 || entries[0].subscriptionID != "sub-1" {
		t.Errorf("Expected one expiry log entry for sub-1, got %v", entries)
	}
}

func TestSweepOnce_FallsBackToPerUserDisable(t *testing.T) {
	provider := &sweeplessProvider{MockProvider: network.NewMockProvider()}
	subRepo := newFakeSubRepo()
	logRepo := &fakeLogRepo{}
	ctx := context.Background()

	subRepo.Create(ctx, expiredSubscription("sub-1", "254700000001", time.Hour))
	subRepo.Create(ctx, expiredSubscription("sub-2", "254700000002", 2*time.Hour))

	svc := NewExpiryService(subRepo, logRepo, network.NewServiceWithProvider(provider), time.Minute)

	n, err := svc.SweepOnce(ctx)
	if err != nil {
		t.Fatalf("SweepOnce failed: %v", err)
	}
	if n != 2 {
		t.Fatalf("Expected 2 expired, got %d", n)
	}
	if len(provider.disabled) != 2 {
		t.Fatalf("Expected per-user disables on fallback, got %v", provider.disabled)
	}
}

func TestSweepOnce_BulkPathSkipsPerUserDisable(t *testing.T) {
	provider := &sweeplessProvider{MockProvider: network.NewMockProvider()}
	subRepo := newFakeSubRepo()
	ctx := context.Background()

	subRepo.Create(ctx, expiredSubscription("sub-1", "254700000001", time.Hour))

	// The embedded mock supports the sweep; use it directly
	svc := NewExpiryService(subRepo, &fakeLogRepo{}, network.NewServiceWithProvider(provider.MockProvider), time.Minute)

	if _, err := svc.SweepOnce(ctx); err != nil {
		t.Fatalf("SweepOnce failed: %v", err)
	}
	if len(provider.disabled) != 0 {
		t.Errorf("Bulk path must not issue per-user disables, got %v", provider.disabled)
	}
}

func TestSweepOnce_UpdateFailureSkipsCount(t *testing.T) {
	provider := network.NewMockProvider()
	subRepo := newFakeSubRepo()
	ctx := context.Background()

	subRepo.Create(ctx, expiredSubscription("sub-1", "254700000001", time.Hour))
	subRepo.updateErr = errors.New("database unavailable")

	svc := NewExpiryService(subRepo, &fakeLogRepo{}, network.NewServiceWithProvider(provider), time.Minute)

	n, err := svc.SweepOnce(ctx)
	if err != nil {
		t.Fatalf("SweepOnce failed: %v", err)
	}
	if n != 0 {
		t.Fatalf("Expected 0 counted on update failure, got %d", n)
	}
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	svc := NewExpiryService(newFakeSubRepo(), &fakeLogRepo{}, network.NewServiceWithProvider(network.NewMockProvider()), time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after context cancellation")
	}
}
