package http

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/safarinet/billing-portal/internal/config"
)

// RateLimiter is a simple in-memory sliding-window limiter keyed by
// customer or client IP.
type RateLimiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	limit    int
	window   time.Duration
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
	}
}

// Allow reports whether another request under key fits in the window.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	windowStart := now.Add(-rl.window)

	var valid []time.Time
	for _, t := range rl.requests[key] {
		if t.After(windowStart) {
			valid = append(valid, t)
		}
	}

	if len(valid) >= rl.limit {
		rl.requests[key] = valid
		return false
	}

	rl.requests[key] = append(valid, now)
	return true
}

// RateLimitMiddleware rejects requests over the limiter's budget.
func RateLimitMiddleware(rl *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetString("customerID")
		if key == "" {
			key = c.ClientIP()
		}

		if !rl.Allow(key) {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded, please try again later",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

type Server struct {
	router  *gin.Engine
	handler *Handler
	cfg     *config.Config
}

// Portal API budget: per customer per minute
var customerRateLimiter = NewRateLimiter(30, time.Minute)

// Purchase budget: STK pushes cost money and annoy subscribers when
// duplicated, so keep this tight per IP
var purchaseRateLimiter = NewRateLimiter(5, time.Minute)

func NewServer(cfg *config.Config, handler *Handler) *Server {
	gin.SetMode(cfg.Server.Mode)
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(gin.Logger())

	s := &Server{
		router:  router,
		handler: handler,
		cfg:     cfg,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	// Health check
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": "billing-portal",
		})
	})

	// Public API - storefront, no authentication
	public := s.router.Group("/api/v1/public")
	{
		public.GET("/plans", s.handler.ListPlans)
		public.POST("/register", s.handler.Register)
		public.POST("/login", s.handler.Login)
		public.POST("/purchase", RateLimitMiddleware(purchaseRateLimiter), s.handler.Purchase)
	}

	// Payment gateway callbacks
	callback := s.router.Group("/api/callback")
	{
		callback.POST("/mpesa", s.handler.MpesaCallback)
	}

	// Customer API - requires JWT
	customer := s.router.Group("/api/v1")
	customer.Use(JWTAuthMiddleware(s.cfg.JWT.SecretKey))
	customer.Use(RateLimitMiddleware(customerRateLimiter))
	{
		customer.GET("/my/subscriptions", s.handler.GetMySubscriptions)
		customer.GET("/my/usage", s.handler.GetMyUsage)
	}

	// Admin API - internal secret
	admin := s.router.Group("/api/internal/admin")
	admin.Use(InternalAuthMiddleware(s.cfg.InternalSecret))
	{
		admin.GET("/customers", s.handler.ListCustomers)
		admin.POST("/customers/:id/suspend", s.handler.SuspendCustomer)

		admin.POST("/provision", s.handler.Provision)
		admin.POST("/provision/bulk", s.handler.ProvisionBulk)
		admin.POST("/deactivate", s.handler.Deactivate)

		admin.GET("/router/active", s.handler.GetActiveUsers)
		admin.GET("/router/users/:username/status", s.handler.GetUserStatus)
		admin.GET("/router/users/:username/usage", s.handler.GetUserUsage)
		admin.GET("/router/users/:username/logs", s.handler.GetProvisionLogs)
	}
}

func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}

func intQuery(c *gin.Context, key string, defaultValue int) int {
	if v := c.Query(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultValue
}
