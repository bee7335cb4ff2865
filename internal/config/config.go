package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-otp-auth/internal/domain"
)

// MinSecretLength is the shortest HMAC signing secret accepted at startup.
const MinSecretLength = 32

const (
	StoreDriverDynamo = "dynamo"
	StoreDriverMemory = "memory"

	NotifierDriverSMTP = "smtp"
	NotifierDriverSNS  = "sns"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort  string
	AppEnv   string
	LogLevel string

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string

	StoreDriver     string
	StoreTimeout    time.Duration
	DynamoBootstrap bool
	DynamoTables    DynamoTables

	JWTSecret string
	JWTIssuer string

	NotifierDriver string
	SMTPHost       string
	SMTPPort       int
	SMTPFrom       string
	SMTPUsername   string
	SMTPPassword   string
	SMTPTLS        string // "mandatory" | "opportunistic" | "none"
	SMTPTimeout    time.Duration
	SNSRegion      string
	SNSTopicARN    string

	AllowedOrigins       []string // CORS allowed origins
	ProtectedPrefixes    []string
	LoginPath            string
	RequireVerifiedLogin bool
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Users             string
	UserEmails        string
	VerificationCodes string
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort:  getEnv("APP_PORT", "3000"),
		AppEnv:   getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),

		StoreDriver:     getEnv("STORE_DRIVER", StoreDriverDynamo),
		StoreTimeout:    getEnvDuration("STORE_TIMEOUT", 5*time.Second),
		DynamoBootstrap: getEnvBool("DYNAMO_BOOTSTRAP", true),
		DynamoTables: DynamoTables{
			Users:             getEnv("DYNAMO_TABLE_USERS", "users"),
			UserEmails:        getEnv("DYNAMO_TABLE_USER_EMAILS", "user_emails"),
			VerificationCodes: getEnv("DYNAMO_TABLE_VERIFICATION_CODES", "verification_codes"),
		},

		JWTSecret: os.Getenv("JWT_SECRET"),
		JWTIssuer: getEnv("JWT_ISSUER", "go-otp-auth"),

		NotifierDriver: getEnv("NOTIFIER_DRIVER", NotifierDriverSMTP),
		SMTPHost:       getEnv("SMTP_HOST", "localhost"),
		SMTPPort:       getEnvInt("SMTP_PORT", 1025),
		SMTPFrom:       getEnv("SMTP_FROM", "noreply@example.com"),
		SMTPUsername:   getEnv("SMTP_USERNAME", ""),
		SMTPPassword:   getEnv("SMTP_PASSWORD", ""),
		SMTPTLS:        getEnv("SMTP_TLS", "opportunistic"),
		SMTPTimeout:    getEnvDuration("SMTP_TIMEOUT", 10*time.Second),
		SNSRegion:      getEnv("SNS_REGION", "us-east-1"),
		SNSTopicARN:    getEnv("SNS_TOPIC_ARN", ""),

		AllowedOrigins:       splitList(getEnv("ALLOWED_ORIGINS", "*")),
		ProtectedPrefixes:    splitList(getEnv("PROTECTED_PREFIXES", "/dashboard")),
		LoginPath:            getEnv("LOGIN_PATH", "/login"),
		RequireVerifiedLogin: getEnvBool("REQUIRE_VERIFIED_LOGIN", true),
	}
}

// IsProduction reports whether cookies must be marked Secure.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

// Validate rejects configurations the process must not serve traffic with.
// Every returned error wraps domain.ErrConfiguration.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is not set: %w", domain.ErrConfiguration)
	}
	if len(c.JWTSecret) < MinSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d bytes: %w", MinSecretLength, domain.ErrConfiguration)
	}
	switch c.StoreDriver {
	case StoreDriverDynamo, StoreDriverMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q: %w", c.StoreDriver, domain.ErrConfiguration)
	}
	switch c.NotifierDriver {
	case NotifierDriverSMTP:
		switch c.SMTPTLS {
		case "mandatory", "opportunistic", "none":
		default:
			return fmt.Errorf("unknown SMTP_TLS %q: %w", c.SMTPTLS, domain.ErrConfiguration)
		}
	case NotifierDriverSNS:
		if c.SNSTopicARN == "" {
			return fmt.Errorf("SNS_TOPIC_ARN is required for the sns notifier: %w", domain.ErrConfiguration)
		}
	default:
		return fmt.Errorf("unknown NOTIFIER_DRIVER %q: %w", c.NotifierDriver, domain.ErrConfiguration)
	}
	if !strings.HasPrefix(c.LoginPath, "/") {
		return fmt.Errorf("LOGIN_PATH must be an absolute path: %w", domain.ErrConfiguration)
	}
	if IsProtectedPath(c.LoginPath, c.ProtectedPrefixes) {
		return fmt.Errorf("LOGIN_PATH %q lies under PROTECTED_PREFIXES: %w", c.LoginPath, domain.ErrConfiguration)
	}
	return nil
}

// IsProtectedPath reports whether path equals one of prefixes or is nested
// beneath it, so "/dashboard/x" matches "/dashboard" while "/dashboards"
// does not. Empty prefixes never match.
func IsProtectedPath(path string, prefixes []string) bool {
	for _, p := range prefixes {
		p = strings.TrimSuffix(p, "/")
		if p == "" {
			continue
		}
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
