package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/safarinet/billing-portal/internal/client"
	"github.com/safarinet/billing-portal/internal/models"
	"github.com/safarinet/billing-portal/internal/network"
	"github.com/safarinet/billing-portal/internal/repository"
	"github.com/safarinet/billing-portal/internal/service"
)

type Handler struct {
	customerService   *service.CustomerService
	activationService *service.ActivationService
	planRepo          *repository.PlanRepository
	subRepo           *repository.SubscriptionRepository
	logRepo           *repository.ProvisionLogRepository
	network           *network.Service
}

func NewHandler(
	customerService *service.CustomerService,
	activationService *service.ActivationService,
	planRepo *repository.PlanRepository,
	subRepo *repository.SubscriptionRepository,
	logRepo *repository.ProvisionLogRepository,
	networkService *network.Service,
) *Handler {
	return &Handler{
		customerService:   customerService,
		activationService: activationService,
		planRepo:          planRepo,
		subRepo:           subRepo,
		logRepo:           logRepo,
		network:           networkService,
	}
}

// ==================== Public API Handlers ====================

// ListPlans returns storefront plans
func (h *Handler) ListPlans(c *gin.Context) {
	plans, err := h.planRepo.ListActive(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]models.PlanResponse, 0, len(plans))
	for _, p := range plans {
		resp = append(resp, models.PlanResponse{
			ID:           p.ID,
			Name:         p.Name,
			Speed:        p.Speed,
			DurationDays: p.DurationDays,
			Price:        p.Price,
			DataCapGB:    p.DataCapGB,
		})
	}

	c.JSON(http.StatusOK, gin.H{"plans": resp})
}

// Register creates a portal account
func (h *Handler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	customer, err := h.customerService.Register(c.Request.Context(), req.Phone, req.Name, req.Password)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": customer.ID, "phone": customer.Phone})
}

// Login authenticates and issues a session token
func (h *Handler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, customer, err := h.customerService.Login(c.Request.Context(), req.Phone, req.Password)
	if errors.Is(err, service.ErrInvalidCredentials) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := models.LoginResponse{Token: token}
	resp.Customer.ID = customer.ID
	resp.Customer.Phone = customer.Phone
	resp.Customer.Name = customer.Name

	c.JSON(http.StatusOK, resp)
}

// Purchase starts an STK push for a plan
func (h *Handler) Purchase(c *gin.Context) {
	var req models.PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	payment, err := h.activationService.InitiatePurchase(c.Request.Context(), req.Phone, req.PlanID)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, models.PurchaseResponse{
		PaymentID:         payment.ID,
		CheckoutRequestID: payment.CheckoutRequestID,
		Message:           "Payment prompt sent. Approve on your phone to activate.",
	})
}

// ==================== Callback Handlers ====================

// MpesaCallback processes the Daraja payment result webhook. Always
// acknowledges with 200 so the gateway does not retry endlessly; processing
// failures are logged and resolved out of band.
func (h *Handler) MpesaCallback(c *gin.Context) {
	var cb client.STKCallback
	if err := c.ShouldBindJSON(&cb); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.activationService.HandlePaymentCallback(c.Request.Context(), &cb); err != nil {
		log.Errorf("[Handler] M-Pesa callback processing failed: %v", err)
	}

	c.JSON(http.StatusOK, gin.H{"ResultCode": 0, "ResultDesc": "Accepted"})
}

// ==================== Customer API Handlers ====================

// GetMySubscriptions lists the authenticated customer's subscriptions
func (h *Handler) GetMySubscriptions(c *gin.Context) {
	customerID := c.GetString("customerID")
	if customerID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no customer in token"})
		return
	}

	subs, err := h.subRepo.GetByCustomerID(c.Request.Context(), customerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"subscriptions": subs})
}

// GetMyUsage returns the live usage snapshot for the customer's account
func (h *Handler) GetMyUsage(c *gin.Context) {
	phone := c.GetString("phone")
	if phone == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no phone in token"})
		return
	}

	usage := h.network.GetUserUsage(c.Request.Context(), phone)
	if usage == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no hotspot account"})
		return
	}

	c.JSON(http.StatusOK, usage)
}

// ==================== Admin API Handlers ====================

// ListCustomers lists portal accounts
func (h *Handler) ListCustomers(c *gin.Context) {
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)

	customers, err := h.customerService.List(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"customers": customers})
}

// SuspendCustomer blocks a portal account
func (h *Handler) SuspendCustomer(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "customer id required"})
		return
	}

	if err := h.customerService.Suspend(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "suspended"})
}

// Provision manually activates a subscription without a payment (admin
// comps, troubleshooting)
func (h *Handler) Provision(c *gin.Context) {
	var req models.ProvisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sub, err := h.activationService.ActivateSubscription(c.Request.Context(), req.Phone, req.PlanID)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, sub)
}

// ProvisionBulk creates a voucher batch. Partial failure is expected:
// the response lists only the accounts that were created.
func (h *Handler) ProvisionBulk(c *gin.Context) {
	var req models.BulkProvisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	created := h.network.CreateManyUsers(c.Request.Context(), req.Users)

	c.JSON(http.StatusOK, models.BulkProvisionResponse{
		Requested: len(req.Users),
		Created:   created,
	})
}

// Deactivate disables a subscription and its router account
func (h *Handler) Deactivate(c *gin.Context) {
	var req models.DeactivateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.activationService.DeactivateSubscription(c.Request.Context(), req.SubscriptionID, req.Reason); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deactivated"})
}

// GetActiveUsers lists currently-connected hotspot sessions
func (h *Handler) GetActiveUsers(c *gin.Context) {
	users := h.network.GetActiveUsers(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"active": users, "count": len(users)})
}

// GetUserUsage returns the usage snapshot for one router account
func (h *Handler) GetUserUsage(c *gin.Context) {
	username := c.Param("username")
	if username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username required"})
		return
	}

	usage := h.network.GetUserUsage(c.Request.Context(), username)
	if usage == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no hotspot account"})
		return
	}

	c.JSON(http.StatusOK, usage)
}

// GetUserStatus reports whether a router account exists
func (h *Handler) GetUserStatus(c *gin.Context) {
	username := c.Param("username")
	if username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username required"})
		return
	}

	exists := h.network.CheckUserStatus(c.Request.Context(), username)
	c.JSON(http.StatusOK, gin.H{"username": username, "exists": exists})
}

// GetProvisionLogs returns the audit trail for a router account
func (h *Handler) GetProvisionLogs(c *gin.Context) {
	username := c.Param("username")
	if username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username required"})
		return
	}

	entries, err := h.logRepo.GetByUsername(c.Request.Context(), username, intQuery(c, "limit", 50))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"logs": entries})
}
