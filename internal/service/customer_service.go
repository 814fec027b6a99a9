package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/safarinet/billing-portal/internal/models"
	"github.com/safarinet/billing-portal/internal/repository"
)

var ErrInvalidCredentials = errors.New("invalid phone or password")

type CustomerRepo interface {
	Create(ctx context.Context, c *models.Customer) error
	GetByID(ctx context.Context, id string) (*models.Customer, error)
	GetByPhone(ctx context.Context, phone string) (*models.Customer, error)
	List(ctx context.Context, limit, offset int) ([]*models.Customer, error)
	UpdateStatus(ctx context.Context, id, status string) error
}

// CustomerService handles portal account registration and login.
type CustomerService struct {
	customerRepo CustomerRepo
	jwtSecret    string
}

// NewCustomerService creates a new customer service
func NewCustomerService(customerRepo CustomerRepo, jwtSecret string) *CustomerService {
	return &CustomerService{
		customerRepo: customerRepo,
		jwtSecret:    jwtSecret,
	}
}

// Register creates a portal account keyed by phone number.
func (s *CustomerService) Register(ctx context.Context, phone, name, password string) (*models.Customer, error) {
	if _, err := s.customerRepo.GetByPhone(ctx, phone); err == nil {
		return nil, fmt.Errorf("account for %s already exists", phone)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("customer lookup: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	customer := &models.Customer{
		ID:           uuid.New().String(),
		Phone:        phone,
		Name:         name,
		PasswordHash: string(hash),
		Status:       models.CustomerStatusActive,
	}
	if err := s.customerRepo.Create(ctx, customer); err != nil {
		return nil, fmt.Errorf("create customer: %w", err)
	}

	log.Infof("[CustomerService] Registered customer %s", customer.ID)
	return customer, nil
}

// Login verifies credentials and issues a JWT for the portal session.
func (s *CustomerService) Login(ctx context.Context, phone, password string) (string, *models.Customer, error) {
	customer, err := s.customerRepo.GetByPhone(ctx, phone)
	if errors.Is(err, repository.ErrNotFound) {
		return "", nil, ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, fmt.Errorf("customer lookup: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(customer.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	if customer.Status != models.CustomerStatusActive {
		return "", nil, fmt.Errorf("account is %s", customer.Status)
	}

	claims := jwt.MapClaims{
		"uid":   customer.ID,
		"phone": customer.Phone,
		"exp":   time.Now().Add(24 * time.Hour).Unix(),
		"iat":   time.Now().Unix(),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}

	return token, customer, nil
}

// Get retrieves a customer by ID
func (s *CustomerService) Get(ctx context.Context, id string) (*models.Customer, error) {
	return s.customerRepo.GetByID(ctx, id)
}

// List retrieves customers for the admin dashboard
func (s *CustomerService) List(ctx context.Context, limit, offset int) ([]*models.Customer, error) {
	return s.customerRepo.List(ctx, limit, offset)
}

// Suspend blocks a customer from the portal without touching their
// subscriptions; deactivation of access is a separate, explicit action.
func (s *CustomerService) Suspend(ctx context.Context, id string) error {
	return s.customerRepo.UpdateStatus(ctx, id, models.CustomerStatusSuspended)
}
