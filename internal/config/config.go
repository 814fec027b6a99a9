package config

import (
	"fmt"
	"os"
	"strconv"

	log "github.com/sirupsen/logrus"
)

// Insecure defaults that must never survive into production
var insecureDefaults = map[string]bool{
	"your-secret-key-change-in-production": true,
	"internal-secret":                      true,
	"":                                     true,
}

type Config struct {
	Server         ServerConfig
	Database       DatabaseConfig
	JWT            JWTConfig
	Router         RouterConfig
	Mpesa          MpesaConfig
	InternalSecret string
}

type ServerConfig struct {
	Port string
	Mode string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	Schema   string
	SSLMode  string
}

type JWTConfig struct {
	SecretKey string
}

// RouterConfig selects and addresses the network provisioning backend.
type RouterConfig struct {
	Provider  string // mikrotik, radius, mock
	Transport string // api (binary RouterOS API) or rest
	Host      string
	Username  string
	Password  string
	APIPort   int    // binary API port
	RESTURL   string // base URL for the REST transport, defaults to https://<host>
}

// MpesaConfig holds Daraja API credentials for STK push payments.
type MpesaConfig struct {
	BaseURL        string
	ConsumerKey    string
	ConsumerSecret string
	ShortCode      string
	Passkey        string
	CallbackURL    string
}

func Load() *Config {
	routerHost := getEnv("ROUTER_HOST", "192.168.88.1")

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Mode: getEnv("GIN_MODE", "release"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "portal_user"),
			Password: getEnv("DB_PASSWORD", "portal_pass"),
			DBName:   getEnv("DB_NAME", "portal_db"),
			Schema:   getEnv("DB_SCHEMA", "portal"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		JWT: JWTConfig{
			SecretKey: getEnv("JWT_SECRET_KEY", ""),
		},
		Router: RouterConfig{
			Provider:  getEnv("NETWORK_PROVIDER", "mikrotik"),
			Transport: getEnv("ROUTER_TRANSPORT", "api"),
			Host:      routerHost,
			Username:  getEnv("ROUTER_USER", "admin"),
			Password:  getEnv("ROUTER_PASSWORD", ""),
			APIPort:   getEnvInt("ROUTER_API_PORT", 8728),
			RESTURL:   getEnv("ROUTER_REST_URL", "https://"+routerHost),
		},
		Mpesa: MpesaConfig{
			BaseURL:        getEnv("MPESA_BASE_URL", "https://sandbox.safaricom.co.ke"),
			ConsumerKey:    getEnv("MPESA_CONSUMER_KEY", ""),
			ConsumerSecret: getEnv("MPESA_CONSUMER_SECRET", ""),
			ShortCode:      getEnv("MPESA_SHORTCODE", ""),
			Passkey:        getEnv("MPESA_PASSKEY", ""),
			CallbackURL:    getEnv("MPESA_CALLBACK_URL", ""),
		},
		InternalSecret: getEnv("INTERNAL_SECRET", ""),
	}

	// Do not log credentials
	log.Infof("[config] Billing portal loaded: port=%s db=%s/%s.%s router=%s provider=%s transport=%s",
		cfg.Server.Port, cfg.Database.Host, cfg.Database.DBName, cfg.Database.Schema,
		cfg.Router.Host, cfg.Router.Provider, cfg.Router.Transport)

	return cfg
}

// Validate rejects configurations that must not reach production.
func (c *Config) Validate() error {
	if insecureDefaults[c.JWT.SecretKey] {
		return fmt.Errorf("JWT_SECRET_KEY must be set to a secure value (current value is insecure or empty)")
	}
	if len(c.JWT.SecretKey) < 32 {
		return fmt.Errorf("JWT_SECRET_KEY must be at least 32 characters long")
	}

	if insecureDefaults[c.InternalSecret] {
		return fmt.Errorf("INTERNAL_SECRET must be set to a secure value (current value is insecure or empty)")
	}
	if len(c.InternalSecret) < 32 {
		return fmt.Errorf("INTERNAL_SECRET must be at least 32 characters long")
	}

	if c.Router.Provider != "mock" && c.Router.Password == "" {
		return fmt.Errorf("ROUTER_PASSWORD must be set when NETWORK_PROVIDER is %q", c.Router.Provider)
	}

	return nil
}

func (c *DatabaseConfig) DSN() string {
	return "postgres://" + c.User + ":" + c.Password + "@" + c.Host + ":" + c.Port + "/" + c.DBName + "?sslmode=" + c.SSLMode
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
