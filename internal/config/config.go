package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for notify-service
type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Security     SecurityConfig
	Verification VerificationConfig
	Delivery     DeliveryConfig
	Keyring      KeyringConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port string
	Mode string // debug, release
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// SecurityConfig holds security settings
type SecurityConfig struct {
	APIKey             string
	JWTSecret          string
	UnsubscribeSignKey string
}

// VerificationConfig holds verification challenge defaults
type VerificationConfig struct {
	CodeLength        int
	ExpiryMinutes     int
	LinkExpiryMinutes int
	MaxAttempts       int
	RateLimitPerHour  int
	LinkBaseURL       string
}

// DeliveryConfig holds delivery provider settings
type DeliveryConfig struct {
	DefaultEmailProvider string
	DefaultSMSProvider   string
	FromEmail            string
	FromName             string
	SendGridAPIKey       string
	TwilioAccountSID     string
	TwilioAuthToken      string
	TwilioFrom           string
}

// KeyringConfig holds RSA keyring settings
type KeyringConfig struct {
	RotationHours int
	GraceHours    int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	config := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8090"),
			Mode: getEnv("GIN_MODE", "debug"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "notify"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Security: SecurityConfig{
			APIKey:             getEnv("API_KEY", ""),
			JWTSecret:          getEnv("JWT_SECRET", ""),
			UnsubscribeSignKey: getEnv("UNSUBSCRIBE_SIGNING_KEY", "notify-unsubscribe-key"),
		},
		Verification: VerificationConfig{
			CodeLength:        getEnvAsInt("CODE_LENGTH", 6),
			ExpiryMinutes:     getEnvAsInt("CODE_EXPIRY_MINUTES", 10),
			LinkExpiryMinutes: getEnvAsInt("LINK_EXPIRY_MINUTES", 60),
			MaxAttempts:       getEnvAsInt("MAX_VERIFICATION_ATTEMPTS", 5),
			RateLimitPerHour:  getEnvAsInt("RATE_LIMIT_PER_HOUR", 5),
			LinkBaseURL:       getEnv("VERIFICATION_LINK_BASE_URL", ""),
		},
		Delivery: DeliveryConfig{
			DefaultEmailProvider: getEnv("DEFAULT_EMAIL_PROVIDER", "console"),
			DefaultSMSProvider:   getEnv("DEFAULT_SMS_PROVIDER", "console"),
			FromEmail:            getEnv("EMAIL_FROM", "no-reply@localhost"),
			FromName:             getEnv("EMAIL_FROM_NAME", "Notify"),
			SendGridAPIKey:       getEnv("SENDGRID_API_KEY", ""),
			TwilioAccountSID:     getEnv("TWILIO_ACCOUNT_SID", ""),
			TwilioAuthToken:      getEnv("TWILIO_AUTH_TOKEN", ""),
			TwilioFrom:           getEnv("TWILIO_FROM", ""),
		},
		Keyring: KeyringConfig{
			RotationHours: getEnvAsInt("KEY_ROTATION_HOURS", 24),
			GraceHours:    getEnvAsInt("KEY_GRACE_HOURS", 48),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Security.APIKey == "" {
		return fmt.Errorf("API_KEY is required for inter-service authentication")
	}

	if c.Verification.CodeLength < 4 || c.Verification.CodeLength > 10 {
		return fmt.Errorf("CODE_LENGTH must be between 4 and 10")
	}

	return nil
}

// GetDSN returns the database connection string
func (c *Config) GetDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
		c.Database.SSLMode,
	)
}

// GetCodeExpiry returns the default code expiry duration
func (c *Config) GetCodeExpiry() time.Duration {
	return time.Duration(c.Verification.ExpiryMinutes) * time.Minute
}

// GetRotationInterval returns the keypair rotation interval
func (c *Config) GetRotationInterval() time.Duration {
	return time.Duration(c.Keyring.RotationHours) * time.Hour
}

// GetGracePeriod returns how long retired keys stay resolvable by key_id
func (c *Config) GetGracePeriod() time.Duration {
	return time.Duration(c.Keyring.GraceHours) * time.Hour
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
