package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Config holds all application configuration.
type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	S3           S3Config
	Coupon       CouponConfig
	Gateway      GatewayConfig
	Checkout     CheckoutConfig
	Notification NotificationConfig
	Kafka        KafkaConfig
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Host string
	Port int
}

// DatabaseConfig holds database-related configuration.
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	MaxConnections  int
	MinConnections  int
	MaxConnLifetime int // seconds
	AutoMigrate     bool
}

// LoggerConfig holds logger-related configuration.
type LoggerConfig struct {
	Level  string
	Format string // "json" or "console"
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	APIKey string
}

// S3Config holds AWS S3 configuration for coupon rule files.
type S3Config struct {
	Enabled bool
	Bucket  string
	Region  string
	Prefix  string // Path prefix within bucket (e.g., "coupons/")
}

// CouponConfig lists the coupon rule files to load at start-up.
type CouponConfig struct {
	FilePaths []string
}

// GatewayConfig holds the card payment gateway credentials and endpoints.
type GatewayConfig struct {
	BaseURL     string
	APIKey      string
	SecretKey   string
	CallbackURL string
	Timeout     time.Duration
}

// CheckoutConfig holds the pricing policy applied when an order is created.
type CheckoutConfig struct {
	Currency              string
	FreeShippingThreshold decimal.Decimal
	ShippingCost          decimal.Decimal
	TaxRate               decimal.Decimal
	ResultURL             string // buyer-facing page the callback redirects to
}

// NotificationConfig controls the outbox worker and the email sender.
type NotificationConfig struct {
	Sender         string // "log" or "ses"
	FromAddress    string
	Region         string
	TemplatePrefix string // prepended to provider template names
	PollInterval   time.Duration
	RetryBase      time.Duration // delay before the first retry, doubled per attempt
	BatchSize      int
	MaxAttempts    int
}

// KafkaConfig controls publication of order events.
type KafkaConfig struct {
	Enabled bool
	Brokers []string
	Topic   string
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvAsInt("SERVER_PORT", 8080),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", ""),
			Database:        getEnv("DB_NAME", "storefront"),
			MaxConnections:  getEnvAsInt("DB_MAX_CONNECTIONS", 25),
			MinConnections:  getEnvAsInt("DB_MIN_CONNECTIONS", 5),
			MaxConnLifetime: getEnvAsInt("DB_MAX_CONN_LIFETIME", 300),
			AutoMigrate:     getEnvAsBool("DB_AUTO_MIGRATE", true),
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Auth: AuthConfig{
			APIKey: getEnv("API_KEY", ""),
		},
		S3: S3Config{
			Enabled: getEnvAsBool("S3_ENABLED", false),
			Bucket:  getEnv("S3_BUCKET", ""),
			Region:  getEnv("S3_REGION", "us-east-1"),
			Prefix:  getEnv("S3_PREFIX", "coupons/"),
		},
		Coupon: CouponConfig{
			FilePaths: getEnvAsSlice("COUPON_FILES", nil),
		},
		Gateway: GatewayConfig{
			BaseURL:     getEnv("GATEWAY_BASE_URL", ""),
			APIKey:      getEnv("GATEWAY_API_KEY", ""),
			SecretKey:   getEnv("GATEWAY_SECRET_KEY", ""),
			CallbackURL: getEnv("GATEWAY_CALLBACK_URL", ""),
			Timeout:     getEnvAsDuration("GATEWAY_TIMEOUT", 15*time.Second),
		},
		Checkout: CheckoutConfig{
			Currency:              getEnv("CHECKOUT_CURRENCY", "TRY"),
			FreeShippingThreshold: getEnvAsDecimal("CHECKOUT_FREE_SHIPPING_THRESHOLD", decimal.NewFromInt(150)),
			ShippingCost:          getEnvAsDecimal("CHECKOUT_SHIPPING_COST", decimal.RequireFromString("29.90")),
			TaxRate:               getEnvAsDecimal("CHECKOUT_TAX_RATE", decimal.Zero),
			ResultURL:             getEnv("CHECKOUT_RESULT_URL", "/checkout/result"),
		},
		Notification: NotificationConfig{
			Sender:         getEnv("NOTIFY_SENDER", "log"),
			FromAddress:    getEnv("NOTIFY_FROM_ADDRESS", ""),
			Region:         getEnv("NOTIFY_REGION", "us-east-1"),
			TemplatePrefix: getEnv("NOTIFY_TEMPLATE_PREFIX", "storefront-"),
			PollInterval:   getEnvAsDuration("NOTIFY_POLL_INTERVAL", 5*time.Second),
			RetryBase:      getEnvAsDuration("NOTIFY_RETRY_BASE", 30*time.Second),
			BatchSize:      getEnvAsInt("NOTIFY_BATCH_SIZE", 20),
			MaxAttempts:    getEnvAsInt("NOTIFY_MAX_ATTEMPTS", 5),
		},
		Kafka: KafkaConfig{
			Enabled: getEnvAsBool("KAFKA_ENABLED", false),
			Brokers: getEnvAsSlice("KAFKA_BROKERS", nil),
			Topic:   getEnv("KAFKA_TOPIC", "storefront.order-events"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("invalid database port: %d", c.Database.Port)
	}

	if c.Database.User == "" {
		return fmt.Errorf("database user is required")
	}

	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	if c.Database.MaxConnections < 1 {
		return fmt.Errorf("database max connections must be at least 1")
	}

	if c.Database.MinConnections < 1 {
		return fmt.Errorf("database min connections must be at least 1")
	}

	if c.Database.MinConnections > c.Database.MaxConnections {
		return fmt.Errorf("database min connections cannot exceed max connections")
	}

	if c.Auth.APIKey == "" {
		return fmt.Errorf("API key is required")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLogLevels[c.Logger.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Logger.Format != "json" && c.Logger.Format != "console" {
		return fmt.Errorf("invalid log format: %s (must be json or console)", c.Logger.Format)
	}

	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			return fmt.Errorf("S3 bucket is required when S3 is enabled")
		}
		if c.S3.Region == "" {
			return fmt.Errorf("S3 region is required when S3 is enabled")
		}
	}

	if err := c.Gateway.validate(); err != nil {
		return err
	}

	if err := c.Checkout.validate(); err != nil {
		return err
	}

	if err := c.Notification.validate(); err != nil {
		return err
	}

	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka brokers are required when kafka is enabled")
		}
		if c.Kafka.Topic == "" {
			return fmt.Errorf("kafka topic is required when kafka is enabled")
		}
	}

	return nil
}

func (c *GatewayConfig) validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("gateway base URL is required")
	}
	if c.APIKey == "" || c.SecretKey == "" {
		return fmt.Errorf("gateway API key and secret key are required")
	}
	if c.CallbackURL == "" {
		return fmt.Errorf("gateway callback URL is required")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("gateway timeout must be positive")
	}
	return nil
}

func (c *CheckoutConfig) validate() error {
	if len(c.Currency) != 3 {
		return fmt.Errorf("invalid checkout currency: %q", c.Currency)
	}
	if c.FreeShippingThreshold.IsNegative() || c.ShippingCost.IsNegative() {
		return fmt.Errorf("shipping policy values cannot be negative")
	}
	if c.TaxRate.IsNegative() || c.TaxRate.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("tax rate must be between 0 and 1")
	}
	return nil
}

func (c *NotificationConfig) validate() error {
	switch c.Sender {
	case "log":
	case "ses":
		if c.FromAddress == "" {
			return fmt.Errorf("notification from address is required for the ses sender")
		}
	default:
		return fmt.Errorf("invalid notification sender: %s (must be log or ses)", c.Sender)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("notification poll interval must be positive")
	}
	if c.RetryBase < 0 {
		return fmt.Errorf("notification retry base cannot be negative")
	}
	if c.BatchSize < 1 || c.MaxAttempts < 1 {
		return fmt.Errorf("notification batch size and max attempts must be at least 1")
	}
	return nil
}

// ConnectionString returns the PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
	)
}

// Address returns the server address.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value.
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value.
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvAsSlice splits a comma separated variable, dropping empty entries.
func getEnvAsSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
