package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/safarinet/billing-portal/internal/client"
	"github.com/safarinet/billing-portal/internal/models"
	"github.com/safarinet/billing-portal/internal/network"
	"github.com/safarinet/billing-portal/internal/repository"
)

// PaymentRepo is the slice of the payment repository the activation flow
// needs. Narrowed to an interface so tests run against in-memory fakes.
type PaymentRepo interface {
	Create(ctx context.Context, p *models.Payment) error
	GetByCheckoutRequestID(ctx context.Context, checkoutRequestID string) (*models.Payment, error)
	Update(ctx context.Context, p *models.Payment) error
}

type SubscriptionRepo interface {
	Create(ctx context.Context, s *models.Subscription) error
	GetByID(ctx context.Context, id string) (*models.Subscription, error)
	GetActiveByPhone(ctx context.Context, phone string) (*models.Subscription, error)
	ListExpired(ctx context.Context, cutoff time.Time) ([]*models.Subscription, error)
	Update(ctx context.Context, s *models.Subscription) error
}

type PlanRepo interface {
	GetByID(ctx context.Context, id string) (*models.Plan, error)
}

// ProvisionLogRepo records provisioning side effects for audit.
type ProvisionLogRepo interface {
	LogAction(ctx context.Context, subscriptionID, username, action, status, message string) error
	LogActionWithMetadata(ctx context.Context, subscriptionID, username, action, status, message string, metadata map[string]interface{}) error
}

// Payments is the M-Pesa surface the activation flow initiates through.
type Payments interface {
	InitiateSTKPush(ctx context.Context, phone string, amount float64, reference string) (*client.STKPushResponse, error)
}

// ActivationService owns the payment-to-provisioning path: a completed
// M-Pesa payment becomes an active subscription backed by a live router
// account. The router record and the subscription row are separate stores;
// this service is what reconciles them.
type ActivationService struct {
	planRepo    PlanRepo
	subRepo     SubscriptionRepo
	paymentRepo PaymentRepo
	logRepo     ProvisionLogRepo
	mpesa       Payments
	network     *network.Service
}

// NewActivationService creates a new activation service
func NewActivationService(
	planRepo PlanRepo,
	subRepo SubscriptionRepo,
	paymentRepo PaymentRepo,
	logRepo ProvisionLogRepo,
	mpesa Payments,
	networkService *network.Service,
) *ActivationService {
	return &ActivationService{
		planRepo:    planRepo,
		subRepo:     subRepo,
		paymentRepo: paymentRepo,
		logRepo:     logRepo,
		mpesa:       mpesa,
		network:     networkService,
	}
}

// InitiatePurchase starts an STK push for the plan and records the pending
// payment keyed by the checkout request ID the callback will carry.
func (s *ActivationService) InitiatePurchase(ctx context.Context, phone, planID string) (*models.Payment, error) {
	plan, err := s.planRepo.GetByID(ctx, planID)
	if err != nil {
		return nil, fmt.Errorf("plan lookup: %w", err)
	}
	if !plan.Active {
		return nil, fmt.Errorf("plan %s is not available", plan.Name)
	}

	reference := uuid.New().String()[:8]
	stkResp, err := s.mpesa.InitiateSTKPush(ctx, phone, plan.Price, reference)
	if err != nil {
		return nil, fmt.Errorf("initiate payment: %w", err)
	}

	payment := &models.Payment{
		ID:                uuid.New().String(),
		PlanID:            planID,
		Phone:             phone,
		Amount:            plan.Price,
		Status:            models.PaymentStatusPending,
		CheckoutRequestID: stkResp.CheckoutRequestID,
		MerchantRequestID: &stkResp.MerchantRequestID,
	}
	if err := s.paymentRepo.Create(ctx, payment); err != nil {
		return nil, fmt.Errorf("record payment: %w", err)
	}

	log.Infof("[ActivationService] Purchase initiated: phone=%s plan=%s checkout=%s", phone, plan.Name, stkResp.CheckoutRequestID)
	return payment, nil
}

// HandlePaymentCallback processes the Daraja webhook. A failed payment marks
// the record and stops. A successful one creates (or renews) the
// subscription and provisions the router account; if provisioning fails the
// subscription stays pending and the error propagates so the payment is
// never silently claimed as fulfilled.
func (s *ActivationService) HandlePaymentCallback(ctx context.Context, cb *client.STKCallback) error {
	stk := cb.Body.StkCallback

	payment, err := s.paymentRepo.GetByCheckoutRequestID(ctx, stk.CheckoutRequestID)
	if err != nil {
		return fmt.Errorf("payment lookup for checkout %s: %w", stk.CheckoutRequestID, err)
	}

	resultCode := stk.ResultCode
	resultDesc := stk.ResultDesc
	payment.ResultCode = &resultCode
	payment.ResultDesc = &resultDesc

	if stk.ResultCode != 0 {
		payment.Status = models.PaymentStatusFailed
		if err := s.paymentRepo.Update(ctx, payment); err != nil {
			return fmt.Errorf("mark payment failed: %w", err)
		}
		log.Warnf("[ActivationService] Payment failed: checkout=%s code=%d desc=%s", stk.CheckoutRequestID, stk.ResultCode, stk.ResultDesc)
		return nil
	}

	receipt := cb.Receipt()
	now := time.Now()
	payment.Status = models.PaymentStatusCompleted
	payment.MpesaReceipt = &receipt
	payment.CompletedAt = &now
	if err := s.paymentRepo.Update(ctx, payment); err != nil {
		return fmt.Errorf("mark payment completed: %w", err)
	}

	sub, err := s.ActivateSubscription(ctx, payment.Phone, payment.PlanID)
	if err != nil {
		return err
	}

	subID := sub.ID
	payment.SubscriptionID = &subID
	if err := s.paymentRepo.Update(ctx, payment); err != nil {
		return fmt.Errorf("link payment to subscription: %w", err)
	}

	return nil
}

// ActivateSubscription creates or renews the subscription for the phone and
// provisions the router account. The subscription is marked active only
// after provisioning succeeds.
func (s *ActivationService) ActivateSubscription(ctx context.Context, phone, planID string) (*models.Subscription, error) {
	plan, err := s.planRepo.GetByID(ctx, planID)
	if err != nil {
		return nil, fmt.Errorf("plan lookup: %w", err)
	}

	sub, err := s.subRepo.GetActiveByPhone(ctx, phone)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("subscription lookup: %w", err)
	}
	renewal := sub != nil

	if !renewal {
		sub = &models.Subscription{
			ID:     uuid.New().String(),
			PlanID: planID,
			Phone:  phone,
			Status: models.SubscriptionStatusPending,
		}
		if err := s.subRepo.Create(ctx, sub); err != nil {
			return nil, fmt.Errorf("create subscription: %w", err)
		}
	}

	creds, err := s.network.CreateUser(ctx, phone, *plan)
	if err != nil {
		// Activation failed: do not mark the subscription active
		s.logRepo.LogAction(ctx, sub.ID, phone, "hotspot_create", "failed", err.Error())
		return nil, fmt.Errorf("provision hotspot account for %s: %w", phone, err)
	}

	now := time.Now()
	expires := now.AddDate(0, 0, plan.DurationDays)
	sub.PlanID = planID
	sub.Status = models.SubscriptionStatusActive
	sub.HotspotPassword = &creds.Password
	sub.StartsAt = &now
	sub.ExpiresAt = &expires
	sub.DisabledAt = nil
	if err := s.subRepo.Update(ctx, sub); err != nil {
		return nil, fmt.Errorf("activate subscription: %w", err)
	}

	s.logRepo.LogActionWithMetadata(ctx, sub.ID, phone, "hotspot_create", "active",
		"hotspot account provisioned",
		map[string]interface{}{
			"plan":       plan.Name,
			"renewal":    renewal,
			"expires_at": expires.Format(time.RFC3339),
		})

	log.Infof("[ActivationService] Subscription active: phone=%s plan=%s renewal=%v", phone, plan.Name, renewal)
	return sub, nil
}

// DeactivateSubscription disables the router account and marks the
// subscription. A false disable result means the account was already clear;
// cleanup continues either way, per the idempotent disable contract.
func (s *ActivationService) DeactivateSubscription(ctx context.Context, subscriptionID, reason string) error {
	sub, err := s.subRepo.GetByID(ctx, subscriptionID)
	if err != nil {
		return fmt.Errorf("subscription lookup: %w", err)
	}

	if disabled := s.network.DisableUser(ctx, sub.Phone); !disabled {
		log.Infof("[ActivationService] Hotspot account for %s already clear", sub.Phone)
	}

	now := time.Now()
	sub.Status = models.SubscriptionStatusDisabled
	sub.DisabledAt = &now
	if err := s.subRepo.Update(ctx, sub); err != nil {
		return fmt.Errorf("mark subscription disabled: %w", err)
	}

	s.logRepo.LogAction(ctx, sub.ID, sub.Phone, "hotspot_disable", "disabled", reason)

	log.Infof("[ActivationService] Subscription deactivated: id=%s reason=%s", sub.ID, reason)
	return nil
}
