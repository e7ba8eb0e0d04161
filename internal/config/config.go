package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	// Environment
	RunMode  string // Set via flag, not env
	LogLevel string

	// MongoDB
	MongoURI    string
	MongoDbName string

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// JWT
	JwtSecret       string
	JwtTTL          time.Duration
	CaptchaTokenTTL time.Duration

	// Server
	ApiPort            string
	ServiceApiPort     string
	CorsAllowedOrigins []string // "*" allows any origin

	// Cloudflare
	CloudflareTurnstileSecretKey string
	CloudflareSiteVerifyURL      string

	// Email
	SmtpHost        string
	SmtpPort        int
	SmtpUsername    string
	SmtpPassword    string
	SmtpFromAddress string
	MockServices    bool   // store outgoing mail in Redis instead of sending it
	LogEmailsPath   string // additionally append outgoing mail to this file

	// Company details rendered into email footers
	CompanyName         string
	CompanyAddressLine1 string
	CompanyAddressLine2 string
	PrivacyPolicyURL    string
	TermsURL            string
	UnsubscribeURL      string
	PreferencesURL      string

	// AWS S3
	AwsAccessKeyID     string
	AwsSecretAccessKey string
	AwsRegion          string
	AwsS3Bucket        string

	// App Defaults
	AppName               string
	VerificationCodeTTL   time.Duration
	PasswordResetTTL      time.Duration
	PasswordResetLock     time.Duration
	AuctionCacheTTL       time.Duration
	TemplateMaxUploadSize int64 // bytes

	// Rate Limiting Defaults
	RateLimitSoftBucketSize int
	RateLimitSoftRefillRate int // tokens per second
	RateLimitHardBucketSize int
	RateLimitHardRefillRate int // tokens per second
}

// Load configuration from environment variables.
// RunMode needs to be passed in as it comes from command-line flags.
func Load(runMode string) (*Config, error) {
	// Load .env file, ignoring errors if it doesn't exist
	_ = godotenv.Load()

	cfg := &Config{
		RunMode: runMode,
	}

	var err error

	getEnv := func(key, defaultValue string) string {
		if value, exists := os.LookupEnv(key); exists {
			return value
		}
		return defaultValue
	}

	getRequiredEnv := func(key string) (string, error) {
		value, exists := os.LookupEnv(key)
		if !exists || value == "" {
			return "", fmt.Errorf("missing required environment variable: %s", key)
		}
		return value, nil
	}

	getSeconds := func(key, defaultValue string) (time.Duration, error) {
		n, err := strconv.ParseInt(getEnv(key, defaultValue), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", key, err)
		}
		return time.Duration(n) * time.Second, nil
	}

	getInt := func(key, defaultValue string) (int, error) {
		n, err := strconv.Atoi(getEnv(key, defaultValue))
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", key, err)
		}
		return n, nil
	}

	cfg.MongoURI, err = getRequiredEnv("MONGO_URI")
	if err != nil {
		return nil, err
	}
	cfg.MongoDbName = getEnv("MONGO_DB_NAME", "freight")
	cfg.RedisAddr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", "")
	cfg.JwtSecret, err = getRequiredEnv("JWT_SECRET")
	if err != nil {
		return nil, err
	}
	cfg.LogLevel = getEnv("LOG_LEVEL", "info")
	cfg.ApiPort = getEnv("API_PORT", "8080")
	cfg.ServiceApiPort = getEnv("SERVICE_API_PORT", "12345")
	for _, origin := range strings.Split(getEnv("CORS_ALLOWED_ORIGINS", "*"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.CorsAllowedOrigins = append(cfg.CorsAllowedOrigins, origin)
		}
	}
	cfg.CloudflareTurnstileSecretKey = getEnv("CLOUDFLARE_TURNSTILE_SECRET_KEY", "")
	cfg.CloudflareSiteVerifyURL = getEnv("CLOUDFLARE_SITEVERIFY_URL", "https://challenges.cloudflare.com/turnstile/v0/siteverify")
	cfg.SmtpHost = getEnv("SMTP_HOST", "")
	cfg.SmtpUsername = getEnv("SMTP_USERNAME", "")
	cfg.SmtpPassword = getEnv("SMTP_PASSWORD", "")
	cfg.SmtpFromAddress = getEnv("SMTP_FROM_ADDRESS", "noreply@freight.example.com")
	cfg.MockServices = getEnv("MOCK_SERVICES", "") == "true"
	cfg.LogEmailsPath = getEnv("LOG_EMAILS", "")
	cfg.CompanyName = getEnv("COMPANY_NAME", "Freight Auctions")
	cfg.CompanyAddressLine1 = getEnv("COMPANY_ADDRESS_LINE1", "")
	cfg.CompanyAddressLine2 = getEnv("COMPANY_ADDRESS_LINE2", "")
	cfg.PrivacyPolicyURL = getEnv("PRIVACY_POLICY_URL", "#")
	cfg.TermsURL = getEnv("TERMS_URL", "#")
	cfg.UnsubscribeURL = getEnv("UNSUBSCRIBE_URL", "#")
	cfg.PreferencesURL = getEnv("PREFERENCES_URL", "#")
	cfg.AwsAccessKeyID = getEnv("AWS_ACCESS_KEY_ID", "")
	cfg.AwsSecretAccessKey = getEnv("AWS_SECRET_ACCESS_KEY", "")
	cfg.AwsRegion = getEnv("AWS_REGION", "")
	cfg.AwsS3Bucket = getEnv("AWS_S3_BUCKET", "")
	cfg.AppName = getEnv("APP_NAME", "Freight")

	if cfg.RedisDB, err = getInt("REDIS_DB", "0"); err != nil {
		return nil, err
	}
	if cfg.SmtpPort, err = getInt("SMTP_PORT", "587"); err != nil {
		return nil, err
	}
	if cfg.JwtTTL, err = getSeconds("JWT_TTL_SECONDS", "3600"); err != nil {
		return nil, err
	}
	if cfg.CaptchaTokenTTL, err = getSeconds("CAPTCHA_TOKEN_TTL", "1200"); err != nil {
		return nil, err
	}
	if cfg.VerificationCodeTTL, err = getSeconds("VERIFICATION_CODE_TTL_SECONDS", "900"); err != nil {
		return nil, err
	}
	if cfg.PasswordResetTTL, err = getSeconds("PASSWORD_RESET_TTL_SECONDS", "900"); err != nil {
		return nil, err
	}
	if cfg.PasswordResetLock, err = getSeconds("PASSWORD_RESET_LOCK_SECONDS", "86400"); err != nil {
		return nil, err
	}
	if cfg.AuctionCacheTTL, err = getSeconds("AUCTION_CACHE_TTL_SECONDS", "60"); err != nil {
		return nil, err
	}

	maxUploadMB, err := getInt("TEMPLATE_MAX_UPLOAD_MB", "5")
	if err != nil {
		return nil, err
	}
	cfg.TemplateMaxUploadSize = int64(maxUploadMB) * 1024 * 1024

	// Rate Limiting
	if cfg.RateLimitSoftBucketSize, err = getInt("RATE_LIMIT_SOFT_BUCKET_SIZE", "5"); err != nil {
		return nil, err
	}
	if cfg.RateLimitSoftRefillRate, err = getInt("RATE_LIMIT_SOFT_REFILL_RATE", "1"); err != nil {
		return nil, err
	}
	if cfg.RateLimitHardBucketSize, err = getInt("RATE_LIMIT_HARD_BUCKET_SIZE", "20"); err != nil {
		return nil, err
	}
	if cfg.RateLimitHardRefillRate, err = getInt("RATE_LIMIT_HARD_REFILL_RATE", "4"); err != nil {
		return nil, err
	}

	return cfg, nil
}
