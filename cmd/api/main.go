package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/safarinet/billing-portal/internal/client"
	"github.com/safarinet/billing-portal/internal/config"
	"github.com/safarinet/billing-portal/internal/db"
	"github.com/safarinet/billing-portal/internal/http"
	"github.com/safarinet/billing-portal/internal/network"
	"github.com/safarinet/billing-portal/internal/repository"
	"github.com/safarinet/billing-portal/internal/service"
)

func main() {
	log.Println("Starting Billing Portal...")

	// Local dev convenience; in deployment the env comes from the runtime
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded environment from .env")
	}

	// Load configuration
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Initialize database
	pool, err := db.NewPool(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	// Initialize repositories
	customerRepo := repository.NewCustomerRepository(pool)
	planRepo := repository.NewPlanRepository(pool)
	subRepo := repository.NewSubscriptionRepository(pool)
	paymentRepo := repository.NewPaymentRepository(pool)
	logRepo := repository.NewProvisionLogRepository(pool)

	// Initialize clients
	mpesaClient := client.NewMpesaClient(
		cfg.Mpesa.BaseURL,
		cfg.Mpesa.ConsumerKey,
		cfg.Mpesa.ConsumerSecret,
		cfg.Mpesa.ShortCode,
		cfg.Mpesa.Passkey,
		cfg.Mpesa.CallbackURL,
	)

	// Initialize the network provisioning backend
	networkService, err := network.NewService(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize network provider: %v", err)
	}

	// Initialize services
	customerService := service.NewCustomerService(customerRepo, cfg.JWT.SecretKey)

	activationService := service.NewActivationService(
		planRepo,
		subRepo,
		paymentRepo,
		logRepo,
		mpesaClient,
		networkService,
	)

	expiryService := service.NewExpiryService(subRepo, logRepo, networkService, 0)

	// Background expiry sweep
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	go expiryService.Run(sweepCtx)

	// Initialize HTTP server
	handler := http.NewHandler(customerService, activationService, planRepo, subRepo, logRepo, networkService)
	server := http.NewServer(cfg, handler)

	// Start server in goroutine
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Server.Port)
		log.Printf("Server starting on %s", addr)
		if err := server.Run(addr); err != nil {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	stopSweep()

	if err := networkService.Disconnect(); err != nil {
		log.Printf("Router disconnect: %v", err)
	}

	log.Println("Server exited")
}
