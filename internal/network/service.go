package network

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/safarinet/billing-portal/internal/config"
	"github.com/safarinet/billing-portal/internal/models"
)

// ErrNoProvider is returned when the facade is used before a provider was
// selected. Unreachable through NewService, which refuses to construct a
// Service without one; kept as a guard for hand-built instances.
var ErrNoProvider = errors.New("network service has no provider configured")

// Service is the process-wide entry point to subscriber provisioning. It is
// built exactly once in main from configuration and handed to consumers by
// injection; there is no package-level singleton, so tests construct their
// own Service around a mock provider without leaking state.
type Service struct {
	provider Provider
}

// NewService selects and wires the configured provider implementation.
func NewService(cfg *config.Config) (*Service, error) {
	switch Vendor(cfg.Router.Provider) {
	case VendorMikroTik:
		transport, err := newTransport(cfg)
		if err != nil {
			return nil, err
		}
		log.Infof("[NetworkService] Using mikrotik provider via %s transport", cfg.Router.Transport)
		return &Service{provider: NewMikroTikProvider(transport)}, nil

	case VendorMock:
		log.Infof("[NetworkService] Using mock provider (no router)")
		return &Service{provider: NewMockProvider()}, nil

	case VendorRadius:
		return nil, fmt.Errorf("network provider %q is not implemented yet", cfg.Router.Provider)

	default:
		return nil, fmt.Errorf("unknown network provider %q", cfg.Router.Provider)
	}
}

func newTransport(cfg *config.Config) (Transport, error) {
	switch cfg.Router.Transport {
	case "api", "":
		return NewRouterOSClient(cfg.Router.Host, cfg.Router.APIPort, cfg.Router.Username, cfg.Router.Password), nil
	case "rest":
		return NewRESTClient(cfg.Router.RESTURL, cfg.Router.Username, cfg.Router.Password), nil
	default:
		return nil, fmt.Errorf("unknown router transport %q", cfg.Router.Transport)
	}
}

// NewServiceWithProvider wraps an already-built provider. Used by tests and
// by callers that assemble providers themselves.
func NewServiceWithProvider(provider Provider) *Service {
	return &Service{provider: provider}
}

func (s *Service) CreateUser(ctx context.Context, phone string, plan models.Plan) (*models.UserCredentials, error) {
	if s.provider == nil {
		return nil, ErrNoProvider
	}
	return s.provider.CreateUser(ctx, phone, plan)
}

func (s *Service) DisableUser(ctx context.Context, username string) bool {
	if s.provider == nil {
		return false
	}
	return s.provider.DisableUser(ctx, username)
}

func (s *Service) CheckUserStatus(ctx context.Context, username string) bool {
	if s.provider == nil {
		return false
	}
	return s.provider.CheckUserStatus(ctx, username)
}

func (s *Service) GetUserUsage(ctx context.Context, username string) *models.UsageData {
	if s.provider == nil {
		return nil
	}
	return s.provider.GetUserUsage(ctx, username)
}

func (s *Service) CreateManyUsers(ctx context.Context, users []models.BulkUser) []models.UserCredentials {
	if s.provider == nil {
		return []models.UserCredentials{}
	}
	return s.provider.CreateManyUsers(ctx, users)
}

func (s *Service) GetActiveUsers(ctx context.Context) []string {
	if s.provider == nil {
		return []string{}
	}
	return s.provider.GetActiveUsers(ctx)
}

func (s *Service) DisableExpiredUsers(ctx context.Context, cutoff time.Time) (int, error) {
	if s.provider == nil {
		return 0, ErrNoProvider
	}
	return s.provider.DisableExpiredUsers(ctx, cutoff)
}

// Vendor reports which provider implementation is active.
func (s *Service) Vendor() Vendor {
	if s.provider == nil {
		return ""
	}
	return s.provider.Vendor()
}

// Disconnect tears down the active provider's transport session, if it holds
// one. Safe during process shutdown regardless of provider kind.
func (s *Service) Disconnect() error {
	if d, ok := s.provider.(Disconnecter); ok {
		return d.Disconnect()
	}
	return nil
}
