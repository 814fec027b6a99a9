package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/safarinet/billing-portal/internal/client"
	"github.com/safarinet/billing-portal/internal/models"
	"github.com/safarinet/billing-portal/internal/network"
)

func testPlanRepo() *fakePlanRepo {
	return &fakePlanRepo{plans: map[string]*models.Plan{
		"plan-1": {ID: "plan-1", Name: "Monthly Unlimited", Speed: "10 Mbps", DurationDays: 30, Price: 2500, Active: true},
		"plan-2": {ID: "plan-2", Name: "Retired", Speed: "1 Mbps", DurationDays: 30, Price: 500, Active: false},
	}}
}

func newActivationFixture(provider network.Provider) (*ActivationService, *fakeSubRepo, *fakePaymentRepo, *fakeLogRepo, *fakeMpesa) {
	subRepo := newFakeSubRepo()
	paymentRepo := newFakePaymentRepo()
	logRepo := &fakeLogRepo{}
	mpesa := &fakeMpesa{}

	svc := NewActivationService(
		testPlanRepo(),
		subRepo,
		paymentRepo,
		logRepo,
		mpesa,
		network.NewServiceWithProvider(provider),
	)
	return svc, subRepo, paymentRepo, logRepo, mpesa
}

func successCallback(checkoutID string) *client.STKCallback {
	var cb client.STKCallback
	cb.Body.StkCallback.CheckoutRequestID = checkoutID
	cb.Body.StkCallback.ResultCode = 0
	cb.Body.StkCallback.ResultDesc = "The service request is processed successfully."
	cb.Body.StkCallback.CallbackMetadata.Item = []client.STKCallbackItem{
		{Name: "Amount", Value: 2500.0},
		{Name: "MpesaReceiptNumber", Value: "SBK1234XYZ"},
	}
	return &cb
}

func TestInitiatePurchase(t *testing.T) {
	svc, _, paymentRepo, _, mpesa := newActivationFixture(network.NewMockProvider())

	payment, err := svc.InitiatePurchase(context.Background(), "254712345678", "plan-1")
	if err != nil {
		t.Fatalf("InitiatePurchase failed: %v", err)
	}

	if payment.Status != models.PaymentStatusPending {
		t.Errorf("Expected pending payment, got %q", payment.Status)
	}
	if payment.CheckoutRequestID != "checkout-1" {
		t.Errorf("Expected checkout id from gateway, got %q", payment.CheckoutRequestID)
	}
	if payment.PlanID != "plan-1" {
		t.Errorf("Expected plan id recorded, got %q", payment.PlanID)
	}
	if mpesa.calls != 1 {
		t.Errorf("Expected 1 STK push, got %d", mpesa.calls)
	}
	if len(paymentRepo.payments) != 1 {
		t.Errorf("Expected payment persisted, got %d", len(paymentRepo.payments))
	}
}

func TestInitiatePurchase_InactivePlan(t *testing.T) {
	svc, _, _, _, mpesa := newActivationFixture(network.NewMockProvider())

	if _, err := svc.InitiatePurchase(context.Background(), "254712345678", "plan-2"); err == nil {
		t.Fatal("Expected error for inactive plan")
	}
	if mpesa.calls != 0 {
		t.Error("No STK push should be sent for an inactive plan")
	}
}

func TestInitiatePurchase_GatewayFailure(t *testing.T) {
	svc, _, paymentRepo, _, mpesa := newActivationFixture(network.NewMockProvider())
	mpesa.err = errors.New("daraja returned status 503")

	if _, err := svc.InitiatePurchase(context.Background(), "254712345678", "plan-1"); err == nil {
		t.Fatal("Expected error when the gateway rejects the push")
	}
	if len(paymentRepo.payments) != 0 {
		t.Error("No payment should be recorded when initiation fails")
	}
}

func TestHandlePaymentCallback_Success(t *testing.T) {
	provider := network.NewMockProvider()
	svc, subRepo, paymentRepo, logRepo, _ := newActivationFixture(provider)
	ctx := context.Background()

	payment, err := svc.InitiatePurchase(ctx, "254712345678", "plan-1")
	if err != nil {
		t.Fatalf("InitiatePurchase failed: %v", err)
	}

	if err := svc.HandlePaymentCallback(ctx, successCallback(payment.CheckoutRequestID)); err != nil {
		t.Fatalf("HandlePaymentCallback failed: %v", err)
	}

	stored := paymentRepo.payments[payment.ID]
	if stored.Status != models.PaymentStatusCompleted {
		t.Errorf("Expected completed payment, got %q", stored.Status)
	}
	if stored.MpesaReceipt == nil || *stored.MpesaReceipt != "SBK1234XYZ" {
		t.Errorf("Expected receipt recorded, got %v", stored.MpesaReceipt)
	}
	if stored.SubscriptionID == nil {
		t.Fatal("Expected payment linked to subscription")
	}

	sub, err := subRepo.GetByID(ctx, *stored.SubscriptionID)
	if err != nil {
		t.Fatalf("Subscription lookup failed: %v", err)
	}
	if sub.Status != models.SubscriptionStatusActive {
		t.Errorf("Expected active subscription, got %q", sub.Status)
	}
	if sub.HotspotPassword == nil || *sub.HotspotPassword == "" {
		t.Error("Expected hotspot password on subscription")
	}
	if sub.ExpiresAt == nil || time.Until(*sub.ExpiresAt) < 29*24*time.Hour {
		t.Errorf("Expected ~30d expiry, got %v", sub.ExpiresAt)
	}

	if !provider.CheckUserStatus(ctx, "254712345678") {
		t.Error("Expected router account provisioned")
	}

	if entries := logRepo.byAction("hotspot_create"); len(entries) != 1 || entries[0].status != "active" {
		t.Errorf("Expected one active hotspot_create log entry, got %v", entries)
	}
}

func TestHandlePaymentCallback_FailedPayment(t *testing.T) {
	provider := network.NewMockProvider()
	svc, _, paymentRepo, _, _ := newActivationFixture(provider)
	ctx := context.Background()

	payment, _ := svc.InitiatePurchase(ctx, "254712345678", "plan-1")

	var cb client.STKCallback
	cb.Body.StkCallback.CheckoutRequestID = payment.CheckoutRequestID
	cb.Body.StkCallback.ResultCode = 1032
	cb.Body.StkCallback.ResultDesc = "Request cancelled by user"

	if err := svc.HandlePaymentCallback(ctx, &cb); err != nil {
		t.Fatalf("HandlePaymentCallback failed: %v", err)
	}

	stored := paymentRepo.payments[payment.ID]
	if stored.Status != models.PaymentStatusFailed {
		t.Errorf("Expected failed payment, got %q", stored.Status)
	}
	if provider.CheckUserStatus(ctx, "254712345678") {
		t.Error("No router account should be created for a failed payment")
	}
}

func TestHandlePaymentCallback_UnknownCheckout(t *testing.T) {
	svc, _, _, _, _ := newActivationFixture(network.NewMockProvider())

	if err := svc.HandlePaymentCallback(context.Background(), successCallback("nope")); err == nil {
		t.Fatal("Expected error for unknown checkout id")
	}
}

func TestActivateSubscription_ProvisioningFailureLeavesPending(t *testing.T) {
	provider := &failingProvider{network.NewMockProvider()}
	svc, subRepo, _, logRepo, _ := newActivationFixture(provider)
	ctx := context.Background()

	_, err := svc.ActivateSubscription(ctx, "254712345678", "plan-1")
	if err == nil {
		t.Fatal("Expected error when provisioning fails")
	}

	// The pending row exists but was never activated
	for _, sub := range subRepo.subs {
		if sub.Status != models.SubscriptionStatusPending {
			t.Errorf("Expected pending subscription, got %q", sub.Status)
		}
	}

	entries := logRepo.byAction("hotspot_create")
	if len(entries) != 1 || entries[0].status != "failed" {
		t.Errorf("Expected one failed hotspot_create log entry, got %v", entries)
	}
}

func TestActivateSubscription_RenewalReusesRow(t *testing.T) {
	provider := network.NewMockProvider()
	svc, subRepo, _, _, _ := newActivationFixture(provider)
	ctx := context.Background()

	first, err := svc.ActivateSubscription(ctx, "254712345678", "plan-1")
	if err != nil {
		t.Fatalf("First activation failed: %v", err)
	}

	second, err := svc.ActivateSubscription(ctx, "254712345678", "plan-1")
	if err != nil {
		t.Fatalf("Renewal failed: %v", err)
	}

	if first.ID != second.ID {
		t.Errorf("Renewal must reuse the subscription row, got %s then %s", first.ID, second.ID)
	}
	if len(subRepo.subs) != 1 {
		t.Errorf("Expected a single subscription row, got %d", len(subRepo.subs))
	}
}

func TestDeactivateSubscription(t *testing.T) {
	provider := network.NewMockProvider()
	svc, subRepo, _, logRepo, _ := newActivationFixture(provider)
	ctx := context.Background()

	sub, err := svc.ActivateSubscription(ctx, "254712345678", "plan-1")
	if err != nil {
		t.Fatalf("Activation failed: %v", err)
	}

	if err := svc.DeactivateSubscription(ctx, sub.ID, "chargeback"); err != nil {
		t.Fatalf("DeactivateSubscription failed: %v", err)
	}

	stored, _ := subRepo.GetByID(ctx, sub.ID)
	if stored.Status != models.SubscriptionStatusDisabled {
		t.Errorf("Expected disabled subscription, got %q", stored.Status)
	}
	if stored.DisabledAt == nil {
		t.Error("Expected disabled timestamp")
	}

	entries := logRepo.byAction("hotspot_disable")
	if len(entries) != 1 || entries[0].message != "chargeback" {
		t.Errorf("Expected disable log entry with reason, got %v", entries)
	}
}

func TestDeactivateSubscription_AccountAlreadyClear(t *testing.T) {
	// Account never provisioned on the router; deactivation still completes
	provider := network.NewMockProvider()
	svc, subRepo, _, _, _ := newActivationFixture(provider)
	ctx := context.Background()

	sub := &models.Subscription{ID: "sub-1", PlanID: "plan-1", Phone: "254700000009", Status: models.SubscriptionStatusActive}
	subRepo.Create(ctx, sub)

	if err := svc.DeactivateSubscription(ctx, "sub-1", "cleanup"); err != nil {
		t.Fatalf("DeactivateSubscription failed: %v", err)
	}

	stored, _ := subRepo.GetByID(ctx, "sub-1")
	if stored.Status != models.SubscriptionStatusDisabled {
		t.Errorf("Expected disabled subscription, got %q", stored.Status)
	}
}
