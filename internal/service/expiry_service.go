package service

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/safarinet/billing-portal/internal/models"
	"github.com/safarinet/billing-portal/internal/network"
)

// ExpiryService periodically reconciles subscriptions that have run past
// their paid period. The router already cuts access on its own via each
// account's uptime allowance; this sweep keeps the portal's subscription
// rows and the router's disabled markers in agreement with it.
type ExpiryService struct {
	subRepo SubscriptionRepo
	logRepo ProvisionLogRepo
	network *network.Service

	interval time.Duration
	now      func() time.Time
}

// NewExpiryService creates a new expiry sweep service
func NewExpiryService(subRepo SubscriptionRepo, logRepo ProvisionLogRepo, networkService *network.Service, interval time.Duration) *ExpiryService {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &ExpiryService{
		subRepo:  subRepo,
		logRepo:  logRepo,
		network:  networkService,
		interval: interval,
		now:      time.Now,
	}
}

// Run sweeps on the configured interval until the context is cancelled.
// Intended to be launched as a goroutine from main.
func (s *ExpiryService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	log.Infof("[ExpiryService] Sweep running every %s", s.interval)

	for {
		select {
		case <-ctx.Done():
			log.Infof("[ExpiryService] Sweep stopped")
			return
		case <-ticker.C:
			if n, err := s.SweepOnce(ctx); err != nil {
				log.Errorf("[ExpiryService] Sweep failed: %v", err)
			} else if n > 0 {
				log.Infof("[ExpiryService] Sweep expired %d subscriptions", n)
			}
		}
	}
}

// SweepOnce expires every active subscription past its expiry and disables
// the matching router accounts. Providers that support a bulk sweep get one
// call; the rest are walked per-user. Returns how many subscriptions were
// transitioned.
func (s *ExpiryService) SweepOnce(ctx context.Context) (int, error) {
	cutoff := s.now()

	// Bulk path first; ErrNotSupported means the provider enforces expiry
	// itself (e.g. RouterOS limit-uptime) and only the rows need updating.
	bulkDone := false
	if n, err := s.network.DisableExpiredUsers(ctx, cutoff); err == nil {
		bulkDone = true
		if n > 0 {
			log.Infof("[ExpiryService] Provider disabled %d expired accounts", n)
		}
	} else if !errors.Is(err, network.ErrNotSupported) {
		log.Warnf("[ExpiryService] Bulk expiry failed, falling back to per-user disable: %v", err)
	}

	subs, err := s.subRepo.ListExpired(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, sub := range subs {
		if !bulkDone {
			// Idempotent: false means the account was already gone or
			// already marked, which is fine here.
			s.network.DisableUser(ctx, sub.Phone)
		}

		now := s.now()
		sub.Status = models.SubscriptionStatusExpired
		sub.DisabledAt = &now
		if err := s.subRepo.Update(ctx, sub); err != nil {
			log.Errorf("[ExpiryService] Mark %s expired: %v", sub.ID, err)
			continue
		}

		s.logRepo.LogAction(ctx, sub.ID, sub.Phone, "hotspot_expire", "expired", "subscription period ended")
		count++
	}

	return count, nil
}
